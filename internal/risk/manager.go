package risk

import (
	"context"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// Default limits applied when a RiskConfig leaves them unset.
const (
	DefaultMaxLotSize    = 100.0
	DefaultMinRiskReward = 1.5
)

// RiskConfig holds the limits enforced on new trade entries
type RiskConfig struct {
	MaxLotSize    float64
	MinRiskReward float64 // 0 disables the risk/reward check
}

// DefaultConfig returns the limits used by the journal out of the box.
func DefaultConfig() RiskConfig {
	return RiskConfig{MaxLotSize: DefaultMaxLotSize, MinRiskReward: DefaultMinRiskReward}
}

// RiskManager validates trade entries before they are persisted
type RiskManager struct {
	config RiskConfig
}

// NewRiskManager creates a new risk manager instance
func NewRiskManager(config RiskConfig) *RiskManager {
	if config.MaxLotSize <= 0 {
		config.MaxLotSize = DefaultMaxLotSize
	}
	if config.MinRiskReward < 0 {
		config.MinRiskReward = 0
	}
	return &RiskManager{config: config}
}

// Config returns the effective limits.
func (r *RiskManager) Config() RiskConfig {
	return r.config
}

// ValidateEntry checks that a new trade is structurally sound: positive finite prices,
// stop loss and take profit on the correct sides of the entry, lot size within limits,
// and an acceptable risk/reward ratio.
func (r *RiskManager) ValidateEntry(ctx context.Context, trade *domain.Trade) error {
	if err := ValidateRecord(trade); err != nil {
		return err
	}
	if trade.LotSize > r.config.MaxLotSize {
		return ports.NewValidationError("lot_size", "cannot exceed %v", r.config.MaxLotSize)
	}

	if r.config.MinRiskReward > 0 {
		ratio := RiskRewardRatio(trade.EntryPrice, trade.StopLoss, trade.TakeProfit)
		if ratio < r.config.MinRiskReward {
			return ports.NewValidationError("take_profit",
				"risk/reward ratio is too low (%.2f:1), aim for at least %.1f:1", ratio, r.config.MinRiskReward)
		}
	}
	return nil
}

// ValidateRecord applies the structural entry rules without the configurable limits
// (max lot size, minimum risk/reward). Imported history is held to this.
func ValidateRecord(trade *domain.Trade) error {
	if trade == nil {
		return ports.NewValidationError("trade", "is required")
	}
	if strings.TrimSpace(trade.Symbol) == "" {
		return ports.NewValidationError("symbol", "must not be empty")
	}
	if !trade.Side.Valid() {
		return ports.NewValidationError("side", "must be %q or %q, got %q", domain.Buy, domain.Sell, trade.Side)
	}

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"entry_price", trade.EntryPrice},
		{"stop_loss", trade.StopLoss},
		{"take_profit", trade.TakeProfit},
		{"quantity", trade.Quantity},
		{"lot_size", trade.LotSize},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return ports.NewValidationError(f.name, "must be a valid number")
		}
		if f.value <= 0 {
			return ports.NewValidationError(f.name, "must be greater than zero")
		}
	}
	if math.IsNaN(trade.Fees) || math.IsInf(trade.Fees, 0) || trade.Fees < 0 {
		return ports.NewValidationError("fees", "must be a non-negative number")
	}
	if err := validateBoundaries(trade); err != nil {
		return err
	}
	return validateExit(trade)
}

// validateExit requires the exit fields to be all unset (open) or all set and usable (closed).
func validateExit(t *domain.Trade) error {
	set := 0
	for _, present := range []bool{t.ExitPrice != nil, t.ExitTime != nil, t.PnL != nil, t.ExitReason != nil} {
		if present {
			set++
		}
	}
	switch set {
	case 0:
		return nil
	case 4:
	default:
		return ports.NewValidationError("exit",
			"exit_price, exit_time, pnl and exit_reason must be all set or all empty (%d of 4 set)", set)
	}

	if p := *t.ExitPrice; math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return ports.NewValidationError("exit_price", "must be a finite number greater than zero")
	}
	if p := *t.PnL; math.IsNaN(p) || math.IsInf(p, 0) {
		return ports.NewValidationError("pnl", "must be a finite number")
	}
	if !t.ExitReason.Valid() {
		return ports.NewValidationError("exit_reason", "unknown exit reason %q", *t.ExitReason)
	}
	if t.ExitTime.Before(t.EntryTime) {
		return ports.NewValidationError("exit_time", "cannot be before entry_time")
	}
	return nil
}

// validateBoundaries enforces stopLoss < entry < takeProfit for buys and the mirror for sells.
func validateBoundaries(t *domain.Trade) error {
	switch t.Side {
	case domain.Buy:
		if t.TakeProfit <= t.EntryPrice {
			return ports.NewValidationError("take_profit",
				"for BUY trades, take profit (%v) must be above entry price (%v)", t.TakeProfit, t.EntryPrice)
		}
		if t.StopLoss >= t.EntryPrice {
			return ports.NewValidationError("stop_loss",
				"for BUY trades, stop loss (%v) must be below entry price (%v)", t.StopLoss, t.EntryPrice)
		}
	case domain.Sell:
		if t.TakeProfit >= t.EntryPrice {
			return ports.NewValidationError("take_profit",
				"for SELL trades, take profit (%v) must be below entry price (%v)", t.TakeProfit, t.EntryPrice)
		}
		if t.StopLoss <= t.EntryPrice {
			return ports.NewValidationError("stop_loss",
				"for SELL trades, stop loss (%v) must be above entry price (%v)", t.StopLoss, t.EntryPrice)
		}
	}
	return nil
}

// RiskRewardRatio is |takeProfit - entry| / |entry - stopLoss|, or 0 when there is no risk.
func RiskRewardRatio(entry, stopLoss, takeProfit float64) float64 {
	for _, v := range []float64{entry, stopLoss, takeProfit} {
		// decimal.NewFromFloat panics on NaN and Inf
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
	}
	e := decimal.NewFromFloat(entry)
	risk := e.Sub(decimal.NewFromFloat(stopLoss)).Abs()
	if risk.IsZero() {
		return 0
	}
	reward := decimal.NewFromFloat(takeProfit).Sub(e).Abs()
	ratio, _ := reward.Div(risk).Float64()
	return ratio
}

// RiskRewardClass labels a ratio for display.
func RiskRewardClass(ratio float64) string {
	switch {
	case ratio >= 2.0:
		return "excellent"
	case ratio >= 1.5:
		return "good"
	case ratio >= 1.0:
		return "fair"
	default:
		return "poor"
	}
}
