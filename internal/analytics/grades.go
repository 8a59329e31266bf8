package analytics

import (
	"math"

	"tradejournal/internal/domain"
)

// Grade distribution bucket keys
const (
	BucketA    = "A"
	BucketB    = "B"
	BucketC    = "C"
	BucketD    = "D"
	BucketNone = "None"
)

// gradeThresholds is checked top-down; the first match wins.
var gradeThresholds = []struct {
	minScore int
	grade    domain.Grade
}{
	{100, domain.GradeAPlus},
	{85, domain.GradeA},
	{70, domain.GradeBPlus},
	{55, domain.GradeB},
	{40, domain.GradeCPlus},
	{25, domain.GradeC},
	{10, domain.GradeDPlus},
}

// ChecklistScore is the percentage of satisfied criteria, rounded to the nearest integer.
func ChecklistScore(c domain.Checklist) int {
	return int(math.Round(float64(c.Checked()) / domain.ChecklistCriteria * 100))
}

// ChecklistGrade maps a checklist to its letter grade.
// Asian session + a moving average + (open line or 62 fibo) is an instant A.
func ChecklistGrade(c domain.Checklist) domain.Grade {
	if IsInstantA(c) {
		return domain.GradeA
	}
	score := ChecklistScore(c)
	for _, th := range gradeThresholds {
		if score >= th.minScore {
			return th.grade
		}
	}
	return domain.GradeD
}

// IsInstantA reports whether the checklist satisfies the instant-A combination.
func IsInstantA(c domain.Checklist) bool {
	return c.AsianSession &&
		(c.MovingAverage3 || c.MovingAverage4) &&
		(c.OpenLine || c.Fibo62)
}

// GradeDistribution counts trades per grade letter. All five buckets are always present.
type GradeDistribution map[string]int

// GradeDistributionOf counts every trade, open or closed, by the leading letter of its grade.
// Trades without a recognised grade fall into the None bucket.
func GradeDistributionOf(trades []*domain.Trade) GradeDistribution {
	dist := GradeDistribution{BucketA: 0, BucketB: 0, BucketC: 0, BucketD: 0, BucketNone: 0}
	for _, t := range trades {
		if t == nil {
			continue
		}
		if t.ChecklistGrade == nil {
			dist[BucketNone]++
			continue
		}
		switch b := t.ChecklistGrade.Bucket(); b {
		case BucketA, BucketB, BucketC, BucketD:
			dist[b]++
		default:
			dist[BucketNone]++
		}
	}
	return dist
}

// Graded returns the number of trades with a grade.
func (d GradeDistribution) Graded() int {
	return d[BucketA] + d[BucketB] + d[BucketC] + d[BucketD]
}

// Total returns the number of trades counted.
func (d GradeDistribution) Total() int {
	return d.Graded() + d[BucketNone]
}
