package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "trade-journal-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: ports.NopLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func newTrade(symbol string, entry time.Time) *domain.Trade {
	score := 50
	grade := domain.GradeB
	return &domain.Trade{
		ID:             uuid.NewString(),
		Symbol:         symbol,
		Side:           domain.Buy,
		Quantity:       10,
		LotSize:        1,
		EntryPrice:     100,
		StopLoss:       95,
		TakeProfit:     110,
		EntryTime:      entry,
		Fees:           2,
		Notes:          "breakout retest",
		Checklist:      domain.Checklist{AsianSession: true, OpenLine: true, Fibo62: true},
		ChecklistScore: &score,
		ChecklistGrade: &grade,
		CreatedAt:      entry,
		UpdatedAt:      entry,
	}
}

func TestNewRepository_RequiresLogger(t *testing.T) {
	_, err := NewRepository(Config{DBPath: ":memory:"})
	assert.Error(t, err)
}

func TestRepository_CreateAndGetTrade(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	entry := time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)
	trade := newTrade("EURUSD", entry)
	require.NoError(t, repo.CreateTrade(ctx, trade))

	got, err := repo.GetTrade(ctx, trade.ID)
	require.NoError(t, err)

	assert.Equal(t, trade.ID, got.ID)
	assert.Equal(t, "EURUSD", got.Symbol)
	assert.Equal(t, domain.Buy, got.Side)
	assert.Equal(t, 100.0, got.EntryPrice)
	assert.True(t, entry.Equal(got.EntryTime))
	assert.Equal(t, trade.Checklist, got.Checklist)
	require.NotNil(t, got.ChecklistScore)
	assert.Equal(t, 50, *got.ChecklistScore)
	require.NotNil(t, got.ChecklistGrade)
	assert.Equal(t, domain.GradeB, *got.ChecklistGrade)
	assert.False(t, got.IsClosed())
	assert.Nil(t, got.PnL)
	assert.Nil(t, got.ExitReason)
}

func TestRepository_CreateTradeErrors(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(*Repository) *domain.Trade
		wantErr error
	}{
		{
			name: "missing id",
			setup: func(r *Repository) *domain.Trade {
				t := newTrade("EURUSD", time.Now())
				t.ID = ""
				return t
			},
			wantErr: ports.ErrInvalidRequest,
		},
		{
			name: "duplicate id",
			setup: func(r *Repository) *domain.Trade {
				t := newTrade("EURUSD", time.Now())
				if err := r.CreateTrade(ctx, t); err != nil {
					panic(err)
				}
				return t
			},
			wantErr: ports.ErrDuplicateEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.CreateTrade(ctx, tt.setup(repo))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRepository_GetTradeNotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetTrade(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_ListTradesOrderAndPaging(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		trade := newTrade("XAUUSD", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.CreateTrade(ctx, trade))
		ids = append(ids, trade.ID)
	}

	all, err := repo.ListTrades(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	// Newest entry first
	assert.Equal(t, ids[4], all[0].ID)
	assert.Equal(t, ids[0], all[4].ID)

	page, err := repo.ListTrades(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	count, err := repo.CountTrades(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestRepository_CloseTrade(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	trade := newTrade("EURUSD", time.Now().Add(-time.Hour))
	require.NoError(t, repo.CreateTrade(ctx, trade))

	exitTime := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	update := domain.ExitUpdate{ExitPrice: 110, ExitTime: exitTime, PnL: 98, ExitReason: domain.ExitReasonTakeProfit}

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "open trade closes", id: trade.ID},
		{name: "second close rejected", id: trade.ID, wantErr: ports.ErrTradeAlreadyClosed},
		{name: "unknown trade", id: "missing", wantErr: ports.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.CloseTrade(ctx, tt.id, update)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	got, err := repo.GetTrade(ctx, trade.ID)
	require.NoError(t, err)
	require.True(t, got.IsClosed())
	assert.Equal(t, 110.0, *got.ExitPrice)
	assert.Equal(t, 98.0, *got.PnL)
	assert.Equal(t, domain.ExitReasonTakeProfit, *got.ExitReason)
	assert.True(t, exitTime.Equal(*got.ExitTime))
}

func TestRepository_CloseTradeConcurrent(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	trade := newTrade("EURUSD", time.Now())
	require.NoError(t, repo.CreateTrade(ctx, trade))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(price float64) {
			defer wg.Done()
			errs <- repo.CloseTrade(ctx, trade.ID, domain.ExitUpdate{
				ExitPrice: price, ExitTime: time.Now(), PnL: price - 100, ExitReason: domain.ExitReasonManual,
			})
		}(100 + float64(i))
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ports.ErrTradeAlreadyClosed):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, rejected)
}

func TestRepository_UpdateTrade(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	trade := newTrade("EURUSD", time.Now())
	require.NoError(t, repo.CreateTrade(ctx, trade))

	trade.Notes = "moved stop to breakeven"
	trade.StopLoss = 99
	trade.Checklist.MovingAverage3 = true
	require.NoError(t, repo.UpdateTrade(ctx, trade))

	got, err := repo.GetTrade(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, "moved stop to breakeven", got.Notes)
	assert.Equal(t, 99.0, got.StopLoss)
	assert.True(t, got.Checklist.MovingAverage3)

	require.NoError(t, repo.CloseTrade(ctx, trade.ID, domain.ExitUpdate{
		ExitPrice: 105, ExitTime: time.Now(), PnL: 48, ExitReason: domain.ExitReasonManual,
	}))
	err = repo.UpdateTrade(ctx, trade)
	assert.ErrorIs(t, err, ports.ErrTradeAlreadyClosed)

	missing := newTrade("EURUSD", time.Now())
	assert.ErrorIs(t, repo.UpdateTrade(ctx, missing), ports.ErrNotFound)
}

func TestRepository_DeleteAndClear(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	first := newTrade("EURUSD", time.Now())
	second := newTrade("GBPUSD", time.Now())
	third := newTrade("USDJPY", time.Now())
	for _, tr := range []*domain.Trade{first, second, third} {
		require.NoError(t, repo.CreateTrade(ctx, tr))
	}

	require.NoError(t, repo.DeleteTrade(ctx, first.ID))
	assert.ErrorIs(t, repo.DeleteTrade(ctx, first.ID), ports.ErrNotFound)

	n, err := repo.ClearTrades(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := repo.CountTrades(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
