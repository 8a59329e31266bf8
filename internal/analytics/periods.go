package analytics

import (
	"sort"
	"time"

	"tradejournal/internal/domain"
)

const (
	monthKeyLayout = "2006-01"
	dayKeyLayout   = "2006-01-02"
)

// MonthlyPnL is the summed P&L of the trades closed in one calendar month
type MonthlyPnL struct {
	Month  string  `json:"month"` // YYYY-MM, UTC
	PnL    float64 `json:"pnl"`
	Trades int     `json:"trades"`
}

// MonthlyPnLOf groups closed trades by the UTC month of their exit time.
// Buckets are returned in chronological order.
func MonthlyPnLOf(trades []*domain.Trade) []MonthlyPnL {
	closed, _ := collectClosed(trades)
	return monthlyFromClosed(closed)
}

func monthlyFromClosed(closed []closedTrade) []MonthlyPnL {
	buckets := make(map[string]*MonthlyPnL)
	for _, ct := range closed {
		key := ct.exitTime.UTC().Format(monthKeyLayout)
		b, ok := buckets[key]
		if !ok {
			b = &MonthlyPnL{Month: key}
			buckets[key] = b
		}
		b.PnL += ct.pnl
		b.Trades++
	}

	out := make([]MonthlyPnL, 0, len(buckets))
	for _, b := range buckets {
		b.PnL = finite(b.PnL)
		out = append(out, *b)
	}
	// YYYY-MM keys sort chronologically as strings
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// MonthTime parses a bucket key back into the first instant of that month (UTC).
func (m MonthlyPnL) MonthTime() (time.Time, error) {
	return time.Parse(monthKeyLayout, m.Month)
}

// DailyPnL is the summed P&L of the trades closed on one UTC day
type DailyPnL struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Weekday string  `json:"weekday"`
	PnL     float64 `json:"pnl"`
	Trades  int     `json:"trades"`
}

// DailyPnLOf buckets closed trades by UTC day for every day in [from, to).
// Days without trades are included with zero values.
func DailyPnLOf(trades []*domain.Trade, from, to time.Time) []DailyPnL {
	start := truncateDay(from)
	if !to.After(start) {
		return []DailyPnL{}
	}

	index := make(map[string]int)
	out := make([]DailyPnL, 0)
	for d := start; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayKeyLayout)
		index[key] = len(out)
		out = append(out, DailyPnL{Date: key, Weekday: d.Weekday().String()[:3]})
	}

	closed, _ := collectClosed(trades)
	for _, ct := range closed {
		exit := ct.exitTime.UTC()
		if exit.Before(from) || !exit.Before(to) {
			continue
		}
		if i, ok := index[exit.Format(dayKeyLayout)]; ok {
			out[i].PnL += ct.pnl
			out[i].Trades++
		}
	}
	for i := range out {
		out[i].PnL = finite(out[i].PnL)
	}
	return out
}

// WeekBounds returns the Sunday-to-Sunday UTC window containing t.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	day := truncateDay(t)
	start := day.AddDate(0, 0, -int(day.Weekday()))
	return start, start.AddDate(0, 0, 7)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AverageHoldingTime is the mean exit-minus-entry duration of closed trades.
func AverageHoldingTime(trades []*domain.Trade) time.Duration {
	closed, _ := collectClosed(trades)
	if len(closed) == 0 {
		return 0
	}
	var total time.Duration
	for _, ct := range closed {
		if hold := ct.exitTime.Sub(ct.entryTime); hold > 0 {
			total += hold
		}
	}
	return total / time.Duration(len(closed))
}
