package analytics

import (
	"sort"

	"tradejournal/internal/domain"
)

// SymbolStats summarises the trades of one instrument
type SymbolStats struct {
	Symbol       string  `json:"symbol"`
	Trades       int     `json:"trades"`
	ClosedTrades int     `json:"closed_trades"`
	TotalPnL     float64 `json:"total_pnl"`
	WinRate      float64 `json:"win_rate"`
}

// SymbolBreakdown groups trades by symbol, most traded first (ties by symbol name).
func SymbolBreakdown(trades []*domain.Trade) []SymbolStats {
	groups := make(map[string][]*domain.Trade)
	for _, t := range trades {
		if t == nil {
			continue
		}
		groups[t.Symbol] = append(groups[t.Symbol], t)
	}

	out := make([]SymbolStats, 0, len(groups))
	for symbol, group := range groups {
		closed, _ := collectClosed(group)
		s := summarize(closed)
		out = append(out, SymbolStats{
			Symbol:       symbol,
			Trades:       len(group),
			ClosedTrades: len(closed),
			TotalPnL:     finite(s.total),
			WinRate:      safeDiv(float64(s.wins), float64(len(closed))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Trades != out[j].Trades {
			return out[i].Trades > out[j].Trades
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// TopSymbols returns at most n entries of SymbolBreakdown. n <= 0 means all.
func TopSymbols(trades []*domain.Trade, n int) []SymbolStats {
	all := SymbolBreakdown(trades)
	if n > 0 && len(all) > n {
		return all[:n]
	}
	return all
}
