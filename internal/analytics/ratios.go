package analytics

import "tradejournal/internal/domain"

// The functions below expose single metrics for callers that need only one value.
// Each one agrees with the matching field of AnalyzePerformance.

// WinRate is the fraction of closed trades with a positive P&L, in [0,1].
func WinRate(trades []*domain.Trade) float64 {
	closed, _ := collectClosed(trades)
	s := summarize(closed)
	return safeDiv(float64(s.wins), float64(len(closed)))
}

// ProfitFactor is gross profit over gross loss; 0 when there are no losses.
func ProfitFactor(trades []*domain.Trade) float64 {
	closed, _ := collectClosed(trades)
	s := summarize(closed)
	return safeDiv(s.grossProfit, s.grossLoss)
}

// AverageWin is the mean P&L of winning trades.
func AverageWin(trades []*domain.Trade) float64 {
	closed, _ := collectClosed(trades)
	s := summarize(closed)
	return safeDiv(s.grossProfit, float64(s.wins))
}

// AverageLoss is the mean P&L of losing trades (a negative number, or 0).
func AverageLoss(trades []*domain.Trade) float64 {
	closed, _ := collectClosed(trades)
	s := summarize(closed)
	return -safeDiv(s.grossLoss, float64(s.losses))
}

// WinLossRatio is AverageWin / |AverageLoss|.
func WinLossRatio(trades []*domain.Trade) float64 {
	return safeDiv(AverageWin(trades), -AverageLoss(trades))
}

// Expectancy is the mean P&L per closed trade.
func Expectancy(trades []*domain.Trade) float64 {
	closed, _ := collectClosed(trades)
	s := summarize(closed)
	return safeDiv(s.total, float64(len(closed)))
}

// BestTrade returns the highest closed P&L, or 0.
func BestTrade(trades []*domain.Trade) float64 {
	closed, _ := collectClosed(trades)
	return summarize(closed).best
}

// WorstTrade returns the lowest closed P&L, or 0.
func WorstTrade(trades []*domain.Trade) float64 {
	closed, _ := collectClosed(trades)
	return summarize(closed).worst
}

// MaxDrawdown is the largest peak-to-trough decline of cumulative P&L,
// walking closed trades in exit-time order. The peak starts at zero.
func MaxDrawdown(trades []*domain.Trade) float64 {
	closed, _ := collectClosed(trades)
	var balance, peak, maxDD float64
	for _, ct := range byExitTime(closed) {
		balance += ct.pnl
		if balance > peak {
			peak = balance
		}
		if dd := peak - balance; dd > maxDD {
			maxDD = dd
		}
	}
	if !isFinite(maxDD) {
		return 0
	}
	return maxDD
}

// ConsecutiveStreaks returns the longest runs of winning and losing trades in exit-time order.
func ConsecutiveStreaks(trades []*domain.Trade) (maxWins, maxLosses int) {
	closed, _ := collectClosed(trades)
	var wins, losses int
	for _, ct := range byExitTime(closed) {
		wins, losses = advanceStreak(ct.pnl, wins, losses)
		maxWins = max(maxWins, wins)
		maxLosses = max(maxLosses, losses)
	}
	return maxWins, maxLosses
}

// RecoveryFactor is total closed P&L over max drawdown; 0 when there was no drawdown.
func RecoveryFactor(trades []*domain.Trade) float64 {
	closed, _ := collectClosed(trades)
	return safeDiv(summarize(closed).total, MaxDrawdown(trades))
}
