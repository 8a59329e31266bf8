package domain

// Side represents the direction of a trade (buy or sell).
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Valid reports whether the side is one of the known values.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// ExitReason indicates why a trade was closed.
type ExitReason string

const (
	ExitReasonTakeProfit ExitReason = "take_profit"
	ExitReasonStopLoss   ExitReason = "stop_loss"
	ExitReasonManual     ExitReason = "manual"
)

// Valid reports whether the exit reason is one of the known values.
func (r ExitReason) Valid() bool {
	switch r {
	case ExitReasonTakeProfit, ExitReasonStopLoss, ExitReasonManual:
		return true
	}
	return false
}

// Grade is a checklist letter grade (A+, A, B+, ... D).
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeCPlus Grade = "C+"
	GradeC     Grade = "C"
	GradeDPlus Grade = "D+"
	GradeD     Grade = "D"
)

// Bucket returns the leading letter of the grade ("A" for "A+"), or "" for an empty grade.
func (g Grade) Bucket() string {
	if g == "" {
		return ""
	}
	return string(g[0])
}
