package analytics

import (
	"math"
	"sort"
	"time"

	"tradejournal/internal/domain"
)

// PerformanceMetrics holds every derived metric for a trade collection
type PerformanceMetrics struct {
	// Counts
	TotalTrades     int `json:"total_trades"`
	OpenTrades      int `json:"open_trades"`
	ClosedTrades    int `json:"closed_trades"`
	WinningTrades   int `json:"winning_trades"`
	LosingTrades    int `json:"losing_trades"`
	BreakevenTrades int `json:"breakeven_trades"`
	SkippedRecords  int `json:"skipped_records"`

	// Basic Metrics
	WinRate      float64 `json:"win_rate"`
	TotalPnL     float64 `json:"total_pnl"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
	ProfitFactor float64 `json:"profit_factor"`
	AverageWin   float64 `json:"avg_win"`
	AverageLoss  float64 `json:"avg_loss"`
	WinLossRatio float64 `json:"win_loss_ratio"`
	Expectancy   float64 `json:"expectancy"`
	BestTrade    float64 `json:"best_trade"`
	WorstTrade   float64 `json:"worst_trade"`

	// Advanced Metrics
	MaxDrawdown          float64       `json:"max_drawdown"`
	MaxConsecutiveWins   int           `json:"consecutive_wins"`
	MaxConsecutiveLosses int           `json:"consecutive_losses"`
	RecoveryFactor       float64       `json:"recovery_factor"`
	SharpeRatio          float64       `json:"sharpe_ratio"`
	CalmarRatio          float64       `json:"calmar_ratio"`
	AverageHoldingTime   time.Duration `json:"avg_holding_time"`

	MonthlyPnL        []MonthlyPnL      `json:"monthly_pnl"`
	GradeDistribution GradeDistribution `json:"grade_distribution"`
	EquityCurve       []EquityPoint     `json:"equity_curve"`
}

// EquityPoint represents a point on the cumulative P&L curve
type EquityPoint struct {
	Time     time.Time `json:"time"`
	Balance  float64   `json:"balance"`
	Drawdown float64   `json:"drawdown"`
}

// closedTrade is the validated view of a closed trade used by every aggregate.
type closedTrade struct {
	trade     *domain.Trade
	pnl       float64
	exitTime  time.Time
	entryTime time.Time
}

// collectClosed returns the closed trades with a usable P&L, in input order,
// and the number of closed records skipped because their P&L was missing or non-finite.
func collectClosed(trades []*domain.Trade) (closed []closedTrade, skipped int) {
	closed = make([]closedTrade, 0, len(trades))
	for _, t := range trades {
		if t == nil || !t.IsClosed() {
			continue
		}
		if t.PnL == nil || !isFinite(*t.PnL) {
			skipped++
			continue
		}
		closed = append(closed, closedTrade{
			trade:     t,
			pnl:       *t.PnL,
			exitTime:  *t.ExitTime,
			entryTime: t.EntryTime,
		})
	}
	return closed, skipped
}

// byExitTime returns a copy of closed sorted ascending by exit time.
// Trades sharing an exit time keep their original collection order.
func byExitTime(closed []closedTrade) []closedTrade {
	sorted := make([]closedTrade, len(closed))
	copy(sorted, closed)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].exitTime.Before(sorted[j].exitTime)
	})
	return sorted
}

// AnalyzePerformance calculates all metrics for the given trades.
// The input slice is neither reordered nor modified.
func AnalyzePerformance(trades []*domain.Trade) *PerformanceMetrics {
	closed, skipped := collectClosed(trades)

	metrics := &PerformanceMetrics{
		TotalTrades:       countNonNil(trades),
		ClosedTrades:      len(closed),
		SkippedRecords:    skipped,
		MonthlyPnL:        monthlyFromClosed(closed),
		GradeDistribution: GradeDistributionOf(trades),
		EquityCurve:       make([]EquityPoint, 0, len(closed)),
	}
	metrics.OpenTrades = metrics.TotalTrades - metrics.ClosedTrades - skipped

	if len(closed) == 0 {
		return metrics
	}

	s := summarize(closed)
	metrics.WinningTrades = s.wins
	metrics.LosingTrades = s.losses
	metrics.BreakevenTrades = len(closed) - s.wins - s.losses
	metrics.TotalPnL = s.total
	metrics.GrossProfit = s.grossProfit
	metrics.GrossLoss = s.grossLoss
	metrics.WinRate = safeDiv(float64(s.wins), float64(len(closed)))
	metrics.ProfitFactor = safeDiv(s.grossProfit, s.grossLoss)
	metrics.AverageWin = safeDiv(s.grossProfit, float64(s.wins))
	metrics.AverageLoss = -safeDiv(s.grossLoss, float64(s.losses))
	metrics.WinLossRatio = safeDiv(metrics.AverageWin, math.Abs(metrics.AverageLoss))
	metrics.Expectancy = safeDiv(s.total, float64(len(closed)))
	metrics.BestTrade = s.best
	metrics.WorstTrade = s.worst

	// Walk the date-sorted sequence once for drawdown, streaks and the equity curve
	var balance, peak float64
	var wins, losses int
	var totalHolding time.Duration
	for _, ct := range byExitTime(closed) {
		balance += ct.pnl
		if balance > peak {
			peak = balance
		}
		drawdown := peak - balance
		if drawdown > metrics.MaxDrawdown {
			metrics.MaxDrawdown = drawdown
		}
		metrics.EquityCurve = append(metrics.EquityCurve, EquityPoint{
			Time:     ct.exitTime,
			Balance:  balance,
			Drawdown: drawdown,
		})

		wins, losses = advanceStreak(ct.pnl, wins, losses)
		if wins > metrics.MaxConsecutiveWins {
			metrics.MaxConsecutiveWins = wins
		}
		if losses > metrics.MaxConsecutiveLosses {
			metrics.MaxConsecutiveLosses = losses
		}

		if hold := ct.exitTime.Sub(ct.entryTime); hold > 0 {
			totalHolding += hold
		}
	}
	metrics.AverageHoldingTime = totalHolding / time.Duration(len(closed))

	metrics.RecoveryFactor = safeDiv(s.total, metrics.MaxDrawdown)
	metrics.CalmarRatio = metrics.RecoveryFactor
	metrics.SharpeRatio = sharpe(closed, metrics.Expectancy)

	metrics.sanitize()
	return metrics
}

// summary holds the order-independent sums over closed trades.
type summary struct {
	wins, losses           int
	total                  float64
	grossProfit, grossLoss float64
	best, worst            float64
}

func summarize(closed []closedTrade) summary {
	var s summary
	for i, ct := range closed {
		s.total += ct.pnl
		switch {
		case ct.pnl > 0:
			s.wins++
			s.grossProfit += ct.pnl
		case ct.pnl < 0:
			s.losses++
			s.grossLoss += -ct.pnl
		}
		if i == 0 || ct.pnl > s.best {
			s.best = ct.pnl
		}
		if i == 0 || ct.pnl < s.worst {
			s.worst = ct.pnl
		}
	}
	return s
}

// advanceStreak updates the running win/loss streak counters for one P&L value.
// A P&L of exactly zero resets both counters.
func advanceStreak(pnl float64, wins, losses int) (int, int) {
	switch {
	case pnl > 0:
		return wins + 1, 0
	case pnl < 0:
		return 0, losses + 1
	default:
		return 0, 0
	}
}

func sharpe(closed []closedTrade, mean float64) float64 {
	if len(closed) < 2 {
		return 0
	}
	var variance float64
	for _, ct := range closed {
		d := ct.pnl - mean
		variance += d * d
	}
	variance /= float64(len(closed) - 1)
	return safeDiv(mean, math.Sqrt(variance))
}

// sanitize replaces any non-finite float with 0.
func (m *PerformanceMetrics) sanitize() {
	for _, f := range []*float64{
		&m.WinRate, &m.TotalPnL, &m.GrossProfit, &m.GrossLoss, &m.ProfitFactor,
		&m.AverageWin, &m.AverageLoss, &m.WinLossRatio, &m.Expectancy, &m.BestTrade,
		&m.WorstTrade, &m.MaxDrawdown, &m.RecoveryFactor, &m.SharpeRatio, &m.CalmarRatio,
	} {
		if !isFinite(*f) {
			*f = 0
		}
	}
	for i := range m.EquityCurve {
		if !isFinite(m.EquityCurve[i].Balance) {
			m.EquityCurve[i].Balance = 0
		}
		if !isFinite(m.EquityCurve[i].Drawdown) {
			m.EquityCurve[i].Drawdown = 0
		}
	}
}

func countNonNil(trades []*domain.Trade) int {
	n := 0
	for _, t := range trades {
		if t != nil {
			n++
		}
	}
	return n
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// finite returns f, or 0 when a sum has overflowed.
func finite(f float64) float64 {
	if !isFinite(f) {
		return 0
	}
	return f
}

// safeDiv divides a by b, returning 0 for a zero denominator or a non-finite result.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := a / b
	if !isFinite(r) {
		return 0
	}
	return r
}
