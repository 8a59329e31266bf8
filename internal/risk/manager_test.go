package risk

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

func TestNewRiskManager_Defaults(t *testing.T) {
	tests := []struct {
		name   string
		config RiskConfig
		want   RiskConfig
	}{
		{"default config", DefaultConfig(), RiskConfig{MaxLotSize: 100, MinRiskReward: 1.5}},
		{"zero value", RiskConfig{}, RiskConfig{MaxLotSize: 100, MinRiskReward: 0}},
		{"negative limits", RiskConfig{MaxLotSize: -1, MinRiskReward: -2}, RiskConfig{MaxLotSize: 100, MinRiskReward: 0}},
		{"custom", RiskConfig{MaxLotSize: 10, MinRiskReward: 3}, RiskConfig{MaxLotSize: 10, MinRiskReward: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewRiskManager(tt.config).Config())
		})
	}
}

func validTrade() *domain.Trade {
	return &domain.Trade{
		Symbol:     "EURUSD",
		Side:       domain.Buy,
		Quantity:   10,
		LotSize:    1,
		EntryPrice: 100,
		StopLoss:   95,
		TakeProfit: 110,
	}
}

func TestValidateEntry(t *testing.T) {
	rm := NewRiskManager(DefaultConfig())
	ctx := context.Background()

	tests := []struct {
		name      string
		mutate    func(*domain.Trade)
		wantField string // empty means valid
	}{
		{"valid buy", func(*domain.Trade) {}, ""},
		{"valid sell", func(tr *domain.Trade) {
			tr.Side, tr.StopLoss, tr.TakeProfit = domain.Sell, 105, 90
		}, ""},
		{"risk reward exactly at minimum", func(tr *domain.Trade) { tr.TakeProfit = 107.5 }, ""},
		{"max lot size allowed", func(tr *domain.Trade) { tr.LotSize = 100 }, ""},
		{"blank symbol", func(tr *domain.Trade) { tr.Symbol = "  " }, "symbol"},
		{"unknown side", func(tr *domain.Trade) { tr.Side = "long" }, "side"},
		{"zero entry", func(tr *domain.Trade) { tr.EntryPrice = 0 }, "entry_price"},
		{"NaN stop loss", func(tr *domain.Trade) { tr.StopLoss = math.NaN() }, "stop_loss"},
		{"infinite take profit", func(tr *domain.Trade) { tr.TakeProfit = math.Inf(1) }, "take_profit"},
		{"negative quantity", func(tr *domain.Trade) { tr.Quantity = -1 }, "quantity"},
		{"zero lot size", func(tr *domain.Trade) { tr.LotSize = 0 }, "lot_size"},
		{"lot size over limit", func(tr *domain.Trade) { tr.LotSize = 100.5 }, "lot_size"},
		{"negative fees", func(tr *domain.Trade) { tr.Fees = -0.5 }, "fees"},
		{"buy take profit below entry", func(tr *domain.Trade) { tr.TakeProfit = 99 }, "take_profit"},
		{"buy stop loss above entry", func(tr *domain.Trade) { tr.StopLoss = 101 }, "stop_loss"},
		{"sell take profit above entry", func(tr *domain.Trade) {
			tr.Side, tr.StopLoss, tr.TakeProfit = domain.Sell, 105, 110
		}, "take_profit"},
		{"sell stop loss below entry", func(tr *domain.Trade) {
			tr.Side, tr.StopLoss, tr.TakeProfit = domain.Sell, 95, 90
		}, "stop_loss"},
		{"risk reward too low", func(tr *domain.Trade) { tr.TakeProfit = 105 }, "take_profit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := validTrade()
			tt.mutate(trade)

			err := rm.ValidateEntry(ctx, trade)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ports.ErrValidation)
			var ve *ports.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}

	t.Run("nil trade", func(t *testing.T) {
		assert.ErrorIs(t, rm.ValidateEntry(ctx, nil), ports.ErrValidation)
	})
}

func TestValidateEntry_RiskRewardDisabled(t *testing.T) {
	rm := NewRiskManager(RiskConfig{MaxLotSize: 5})
	trade := validTrade()
	trade.TakeProfit = 100.5

	assert.NoError(t, rm.ValidateEntry(context.Background(), trade))

	trade.LotSize = 6
	assert.Error(t, rm.ValidateEntry(context.Background(), trade))
}

func TestRiskRewardRatio(t *testing.T) {
	tests := []struct {
		name                     string
		entry, stopLoss, takeProf float64
		want                     float64
	}{
		{"buy 2:1", 100, 95, 110, 2},
		{"sell 2:1", 100, 105, 90, 2},
		{"fractional prices", 1.1, 1.0, 1.25, 1.5},
		{"no risk", 100, 100, 110, 0},
		{"NaN input", math.NaN(), 95, 110, 0},
		{"infinite input", 100, 95, math.Inf(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RiskRewardRatio(tt.entry, tt.stopLoss, tt.takeProf), 1e-12)
		})
	}
}

func TestRiskRewardClass(t *testing.T) {
	cases := map[float64]string{
		3:    "excellent",
		2:    "excellent",
		1.99: "good",
		1.5:  "good",
		1.2:  "fair",
		1:    "fair",
		0.5:  "poor",
		0:    "poor",
	}
	for ratio, want := range cases {
		if got := RiskRewardClass(ratio); got != want {
			t.Errorf("RiskRewardClass(%v) = %q, want %q", ratio, got, want)
		}
	}
}

func TestValidateRecord(t *testing.T) {
	exitPrice, pnl := 110.0, 98.0
	reason := domain.ExitReasonTakeProfit

	closedTrade := func() *domain.Trade {
		tr := validTrade()
		exitTime := tr.EntryTime.Add(time.Hour)
		tr.ExitPrice, tr.ExitTime, tr.PnL, tr.ExitReason = &exitPrice, &exitTime, &pnl, &reason
		return tr
	}

	assert.NoError(t, ValidateRecord(validTrade()))
	assert.NoError(t, ValidateRecord(closedTrade()))

	// Limits are policy for new entries only
	bigLot := validTrade()
	bigLot.LotSize, bigLot.TakeProfit = 500, 101
	assert.NoError(t, ValidateRecord(bigLot))

	partial := closedTrade()
	partial.PnL = nil
	err := ValidateRecord(partial)
	var ve *ports.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "exit", ve.Field)

	// A half-set exit is rejected on entry too
	rm := NewRiskManager(DefaultConfig())
	half := validTrade()
	half.ExitPrice = &exitPrice
	assert.ErrorIs(t, rm.ValidateEntry(context.Background(), half), ports.ErrValidation)
}
