package closer

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// Closer turns an open trade and a proposed exit price into the fields that close it.
// It holds no trade state; the zero value uses time.Now.
type Closer struct {
	Clock func() time.Time
}

// New creates a Closer with the given clock. A nil clock means time.Now.
func New(clock func() time.Time) *Closer {
	return &Closer{Clock: clock}
}

var defaultCloser = &Closer{}

// Close is Closer.Close with the wall clock.
func Close(trade *domain.Trade, proposedExitPrice float64) (domain.ExitUpdate, error) {
	return defaultCloser.Close(trade, proposedExitPrice)
}

// Close computes the exit update for trade. The trade snapshot is not modified;
// callers persist the returned update against that same snapshot.
func (c *Closer) Close(trade *domain.Trade, proposedExitPrice float64) (domain.ExitUpdate, error) {
	if trade == nil {
		return domain.ExitUpdate{}, ports.NewValidationError("trade", "is required")
	}
	if trade.IsClosed() {
		return domain.ExitUpdate{}, fmt.Errorf("trade %s: %w", trade.ID, ports.ErrTradeAlreadyClosed)
	}
	if math.IsNaN(proposedExitPrice) || math.IsInf(proposedExitPrice, 0) {
		return domain.ExitUpdate{}, ports.NewValidationError("exit_price", "must be a finite number")
	}
	if proposedExitPrice <= 0 {
		return domain.ExitUpdate{}, ports.NewValidationError("exit_price", "must be greater than zero, got %v", proposedExitPrice)
	}
	if !trade.Side.Valid() {
		return domain.ExitUpdate{}, ports.NewValidationError("side", "unknown trade side %q", trade.Side)
	}

	exitPrice, reason := SnapExit(trade.Side, proposedExitPrice, trade.StopLoss, trade.TakeProfit)

	pnl, err := RealizedPnL(trade, exitPrice)
	if err != nil {
		return domain.ExitUpdate{}, err
	}

	return domain.ExitUpdate{
		ExitPrice:  exitPrice,
		ExitTime:   c.now(),
		PnL:        pnl,
		ExitReason: reason,
	}, nil
}

func (c *Closer) now() time.Time {
	if c == nil || c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock()
}

// SnapExit applies the smart-exit rule: a proposed price at or beyond take profit
// closes at take profit, at or beyond stop loss closes at stop loss, otherwise it is
// a manual exit at the proposed price. Take profit is checked first.
func SnapExit(side domain.Side, proposed, stopLoss, takeProfit float64) (float64, domain.ExitReason) {
	switch side {
	case domain.Buy:
		if proposed >= takeProfit {
			return takeProfit, domain.ExitReasonTakeProfit
		}
		if proposed <= stopLoss {
			return stopLoss, domain.ExitReasonStopLoss
		}
	case domain.Sell:
		if proposed <= takeProfit {
			return takeProfit, domain.ExitReasonTakeProfit
		}
		if proposed >= stopLoss {
			return stopLoss, domain.ExitReasonStopLoss
		}
	}
	return proposed, domain.ExitReasonManual
}

// RealizedPnL returns the P&L of trade exited at exitPrice, net of fees.
// Any non-finite input or result yields a *ports.ComputationError.
func RealizedPnL(trade *domain.Trade, exitPrice float64) (float64, error) {
	inputs := []float64{exitPrice, trade.EntryPrice, trade.Quantity, trade.EffectiveLotSize(), trade.Fees}
	for _, v := range inputs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &ports.ComputationError{Op: "realized pnl", Value: v}
		}
	}

	diff := priceMove(trade.Side, trade.EntryPrice, exitPrice)
	gross := diff.Mul(decimal.NewFromFloat(trade.Quantity)).Mul(decimal.NewFromFloat(trade.EffectiveLotSize()))
	pnl, _ := gross.Sub(decimal.NewFromFloat(trade.Fees)).Float64()
	if math.IsNaN(pnl) || math.IsInf(pnl, 0) {
		return 0, &ports.ComputationError{Op: "realized pnl", Value: pnl}
	}
	return pnl, nil
}

// priceMove is the signed per-unit price change in the trade's favour.
func priceMove(side domain.Side, entry, exit float64) decimal.Decimal {
	e, x := decimal.NewFromFloat(entry), decimal.NewFromFloat(exit)
	if side == domain.Sell {
		return e.Sub(x)
	}
	return x.Sub(e)
}
