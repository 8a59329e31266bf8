package closer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

var fixedNow = time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)

func buyTrade() *domain.Trade {
	return &domain.Trade{
		ID:         "buy-1",
		Symbol:     "EURUSD",
		Side:       domain.Buy,
		Quantity:   10,
		LotSize:    1,
		EntryPrice: 100,
		StopLoss:   95,
		TakeProfit: 110,
		Fees:       2,
	}
}

func sellTrade() *domain.Trade {
	return &domain.Trade{
		ID:         "sell-1",
		Symbol:     "XAUUSD",
		Side:       domain.Sell,
		Quantity:   5,
		LotSize:    2,
		EntryPrice: 100,
		StopLoss:   105,
		TakeProfit: 90,
		Fees:       1,
	}
}

func TestCloser_Close(t *testing.T) {
	tests := []struct {
		name       string
		trade      *domain.Trade
		proposed   float64
		wantPrice  float64
		wantReason domain.ExitReason
		wantPnL    float64
	}{
		{"buy beyond take profit", buyTrade(), 115, 110, domain.ExitReasonTakeProfit, 98},
		{"buy exactly at take profit", buyTrade(), 110, 110, domain.ExitReasonTakeProfit, 98},
		{"buy beyond stop loss", buyTrade(), 90, 95, domain.ExitReasonStopLoss, -52},
		{"buy exactly at stop loss", buyTrade(), 95, 95, domain.ExitReasonStopLoss, -52},
		{"buy manual between levels", buyTrade(), 104, 104, domain.ExitReasonManual, 38},
		{"sell beyond take profit", sellTrade(), 80, 90, domain.ExitReasonTakeProfit, 99},
		{"sell beyond stop loss", sellTrade(), 120, 105, domain.ExitReasonStopLoss, -51},
		{"sell manual", sellTrade(), 97.5, 97.5, domain.ExitReasonManual, 24},
		{"manual exit at entry loses the fees", buyTrade(), 100, 100, domain.ExitReasonManual, -2},
	}

	c := New(func() time.Time { return fixedNow })
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := *tt.trade

			update, err := c.Close(tt.trade, tt.proposed)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPrice, update.ExitPrice)
			assert.Equal(t, tt.wantReason, update.ExitReason)
			assert.InDelta(t, tt.wantPnL, update.PnL, 1e-9)
			assert.Equal(t, fixedNow, update.ExitTime)
			assert.Equal(t, before, *tt.trade, "input trade must not be modified")
		})
	}
}

func TestCloser_ZeroLotSizeCountsAsOne(t *testing.T) {
	trade := buyTrade()
	trade.LotSize = 0

	update, err := New(nil).Close(trade, 104)
	require.NoError(t, err)
	assert.InDelta(t, 38.0, update.PnL, 1e-9)
	assert.WithinDuration(t, time.Now(), update.ExitTime, time.Minute)
}

func TestCloser_DecimalPrecision(t *testing.T) {
	trade := buyTrade()
	trade.EntryPrice = 1.1
	trade.StopLoss = 1.0
	trade.TakeProfit = 1.5
	trade.Quantity = 3
	trade.Fees = 0

	update, err := Close(trade, 1.3)
	require.NoError(t, err)
	// 0.2 * 3 with floats would be 0.6000000000000005
	assert.Equal(t, 0.6, update.PnL)
}

func TestCloser_Errors(t *testing.T) {
	closedTrade := buyTrade()
	price := 110.0
	exit := fixedNow
	closedTrade.ExitPrice = &price
	closedTrade.ExitTime = &exit

	badSide := buyTrade()
	badSide.Side = "long"

	tests := []struct {
		name      string
		trade     *domain.Trade
		proposed  float64
		wantErr   error
		wantField string
	}{
		{"nil trade", nil, 100, ports.ErrValidation, "trade"},
		{"NaN price", buyTrade(), math.NaN(), ports.ErrValidation, "exit_price"},
		{"infinite price", buyTrade(), math.Inf(1), ports.ErrValidation, "exit_price"},
		{"zero price", buyTrade(), 0, ports.ErrValidation, "exit_price"},
		{"negative price", buyTrade(), -5, ports.ErrValidation, "exit_price"},
		{"unknown side", badSide, 100, ports.ErrValidation, "side"},
		{"already closed", closedTrade, 105, ports.ErrTradeAlreadyClosed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update, err := Close(tt.trade, tt.proposed)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.ExitUpdate{}, update)

			if tt.wantField != "" {
				var ve *ports.ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, tt.wantField, ve.Field)
			}
		})
	}
}

func TestCloser_ComputationError(t *testing.T) {
	corrupt := []func(*domain.Trade){
		func(tr *domain.Trade) { tr.EntryPrice = math.Inf(1) },
		func(tr *domain.Trade) { tr.Quantity = math.NaN() },
		func(tr *domain.Trade) { tr.Fees = math.Inf(-1) },
	}
	for i, mutate := range corrupt {
		trade := buyTrade()
		mutate(trade)

		_, err := Close(trade, 104)
		if !errors.Is(err, ports.ErrComputation) {
			t.Errorf("case %d: got %v, want ErrComputation", i, err)
		}
		var ce *ports.ComputationError
		if !errors.As(err, &ce) || ce.Op != "realized pnl" {
			t.Errorf("case %d: expected *ports.ComputationError, got %T", i, err)
		}
	}
}

func TestSnapExit(t *testing.T) {
	// Degenerate levels: take profit wins when both match
	price, reason := SnapExit(domain.Buy, 100, 100, 100)
	assert.Equal(t, 100.0, price)
	assert.Equal(t, domain.ExitReasonTakeProfit, reason)

	price, reason = SnapExit(domain.Sell, 100, 100, 100)
	assert.Equal(t, 100.0, price)
	assert.Equal(t, domain.ExitReasonTakeProfit, reason)

	price, reason = SnapExit("hold", 42, 10, 90)
	assert.Equal(t, 42.0, price)
	assert.Equal(t, domain.ExitReasonManual, reason)
}
