package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"tradejournal/internal/analytics"
	"tradejournal/internal/closer"
	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
	"tradejournal/internal/risk"
)

const (
	defaultPageSize   = 500
	sharedLoadTimeout = 30 * time.Second
)

// NewTrade is the input for recording a trade entry.
type NewTrade struct {
	Symbol     string           `json:"symbol"`
	Side       domain.Side      `json:"side"`
	Quantity   float64          `json:"quantity"`
	LotSize    float64          `json:"lot_size"`
	EntryPrice float64          `json:"entry_price"`
	StopLoss   float64          `json:"stop_loss"`
	TakeProfit float64          `json:"take_profit"`
	EntryTime  *time.Time       `json:"entry_time"`
	Fees       float64          `json:"fees"`
	Notes      string           `json:"notes"`
	Checklist  domain.Checklist `json:"checklist_data"`
}

// TradeEdit carries the fields of an edit request. Nil fields are left unchanged.
// Side, EntryPrice and EntryTime are accepted only when they match the stored values.
type TradeEdit struct {
	Symbol     *string           `json:"symbol"`
	Quantity   *float64          `json:"quantity"`
	LotSize    *float64          `json:"lot_size"`
	StopLoss   *float64          `json:"stop_loss"`
	TakeProfit *float64          `json:"take_profit"`
	Fees       *float64          `json:"fees"`
	Notes      *string           `json:"notes"`
	Checklist  *domain.Checklist `json:"checklist_data"`

	Side       *domain.Side `json:"side"`
	EntryPrice *float64     `json:"entry_price"`
	EntryTime  *time.Time   `json:"entry_time"`
}

// JournalService runs the journal use cases against the record store.
type JournalService struct {
	logger   ports.Logger
	repo     ports.TradeRepository
	risk     *risk.RiskManager
	closer   *closer.Closer
	now      func() time.Time
	pageSize int

	// loads coalesces concurrent full-journal reads
	loads singleflight.Group
}

// NewJournalService creates a new application service instance.
func NewJournalService(logger ports.Logger, repo ports.TradeRepository, riskMgr *risk.RiskManager) (*JournalService, error) {
	if logger == nil || repo == nil || riskMgr == nil {
		return nil, fmt.Errorf("missing required dependencies for JournalService")
	}
	s := &JournalService{
		logger:   logger,
		repo:     repo,
		risk:     riskMgr,
		pageSize: defaultPageSize,
	}
	s.SetClock(nil)
	return s, nil
}

// SetClock replaces the wall clock used for entry, exit and audit timestamps. Nil restores time.Now.
func (s *JournalService) SetClock(clock func() time.Time) {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	s.now = clock
	s.closer = closer.New(clock)
}

// SetPageSize changes the batch size used when loading the full journal.
func (s *JournalService) SetPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

// CreateTrade validates and stores a new open trade.
func (s *JournalService) CreateTrade(ctx context.Context, in NewTrade) (*domain.Trade, error) {
	now := s.now()
	trade := &domain.Trade{
		ID:         uuid.NewString(),
		Symbol:     strings.ToUpper(strings.TrimSpace(in.Symbol)),
		Side:       domain.Side(strings.ToLower(string(in.Side))),
		Quantity:   in.Quantity,
		LotSize:    in.LotSize,
		EntryPrice: in.EntryPrice,
		StopLoss:   in.StopLoss,
		TakeProfit: in.TakeProfit,
		EntryTime:  now,
		Fees:       in.Fees,
		Notes:      strings.TrimSpace(in.Notes),
		Checklist:  in.Checklist,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if trade.LotSize == 0 {
		trade.LotSize = 1
	}
	if in.EntryTime != nil && !in.EntryTime.IsZero() {
		trade.EntryTime = in.EntryTime.UTC()
	}

	if err := s.risk.ValidateEntry(ctx, trade); err != nil {
		s.logger.Warn(ctx, "Trade entry rejected", map[string]interface{}{"symbol": trade.Symbol, "reason": err.Error()})
		return nil, err
	}
	gradeChecklist(trade)

	if err := s.repo.CreateTrade(ctx, trade); err != nil {
		s.logger.Error(ctx, err, "Failed to save trade", map[string]interface{}{"symbol": trade.Symbol})
		return nil, fmt.Errorf("failed to save trade: %w", err)
	}

	s.logger.Info(ctx, "Trade recorded", map[string]interface{}{
		"tradeID":    trade.ID,
		"symbol":     trade.Symbol,
		"side":       trade.Side,
		"entryPrice": trade.EntryPrice,
		"grade":      *trade.ChecklistGrade,
	})
	return trade, nil
}

// EditTrade applies an edit to an open trade.
func (s *JournalService) EditTrade(ctx context.Context, id string, edit TradeEdit) (*domain.Trade, error) {
	trade, err := s.repo.GetTrade(ctx, id)
	if err != nil {
		return nil, err
	}
	if trade.IsClosed() {
		return nil, fmt.Errorf("trade %s: %w", id, ports.ErrTradeAlreadyClosed)
	}

	if edit.Side != nil && domain.Side(strings.ToLower(string(*edit.Side))) != trade.Side {
		return nil, fmt.Errorf("side: %w", ports.ErrImmutableField)
	}
	if edit.EntryPrice != nil && *edit.EntryPrice != trade.EntryPrice {
		return nil, fmt.Errorf("entry_price: %w", ports.ErrImmutableField)
	}
	if edit.EntryTime != nil && !edit.EntryTime.Equal(trade.EntryTime) {
		return nil, fmt.Errorf("entry_time: %w", ports.ErrImmutableField)
	}

	if edit.Symbol != nil {
		trade.Symbol = strings.ToUpper(strings.TrimSpace(*edit.Symbol))
	}
	if edit.Quantity != nil {
		trade.Quantity = *edit.Quantity
	}
	if edit.LotSize != nil {
		trade.LotSize = *edit.LotSize
	}
	if edit.StopLoss != nil {
		trade.StopLoss = *edit.StopLoss
	}
	if edit.TakeProfit != nil {
		trade.TakeProfit = *edit.TakeProfit
	}
	if edit.Fees != nil {
		trade.Fees = *edit.Fees
	}
	if edit.Notes != nil {
		trade.Notes = strings.TrimSpace(*edit.Notes)
	}
	if edit.Checklist != nil {
		trade.Checklist = *edit.Checklist
	}

	if err := s.risk.ValidateEntry(ctx, trade); err != nil {
		return nil, err
	}
	gradeChecklist(trade)
	trade.UpdatedAt = s.now()

	if err := s.repo.UpdateTrade(ctx, trade); err != nil {
		s.logger.Error(ctx, err, "Failed to update trade", map[string]interface{}{"tradeID": id})
		return nil, fmt.Errorf("failed to update trade: %w", err)
	}
	s.logger.Info(ctx, "Trade updated", map[string]interface{}{"tradeID": id})
	return trade, nil
}

// CloseTrade closes an open trade at the proposed price, snapped to its stop loss or take profit.
// The exit is written with a compare-and-swap against the snapshot read here, so a concurrent
// close loses with ErrTradeAlreadyClosed instead of overwriting the first one.
func (s *JournalService) CloseTrade(ctx context.Context, id string, proposedExitPrice float64) (*domain.Trade, error) {
	trade, err := s.repo.GetTrade(ctx, id)
	if err != nil {
		return nil, err
	}

	update, err := s.closer.Close(trade, proposedExitPrice)
	if err != nil {
		var compErr *ports.ComputationError
		if errors.As(err, &compErr) {
			s.logger.Error(ctx, err, "Refusing to close trade with corrupt data", map[string]interface{}{"tradeID": id})
		}
		return nil, err
	}

	if err := s.repo.CloseTrade(ctx, id, update); err != nil {
		if errors.Is(err, ports.ErrTradeAlreadyClosed) {
			s.logger.Warn(ctx, "Trade was closed concurrently", map[string]interface{}{"tradeID": id})
			return nil, err
		}
		s.logger.Error(ctx, err, "Failed to persist trade close", map[string]interface{}{"tradeID": id})
		return nil, fmt.Errorf("failed to close trade: %w", err)
	}

	trade.Apply(update)
	trade.UpdatedAt = update.ExitTime

	s.logger.Info(ctx, "Trade closed", map[string]interface{}{
		"tradeID":       id,
		"symbol":        trade.Symbol,
		"proposedPrice": proposedExitPrice,
		"exitPrice":     update.ExitPrice,
		"exitReason":    update.ExitReason,
		"pnl":           update.PnL,
	})
	return trade, nil
}

// DeleteTrade removes a trade.
func (s *JournalService) DeleteTrade(ctx context.Context, id string) error {
	if err := s.repo.DeleteTrade(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "Trade deleted", map[string]interface{}{"tradeID": id})
	return nil
}

// ClearTrades removes every trade from the journal.
func (s *JournalService) ClearTrades(ctx context.Context) (int64, error) {
	n, err := s.repo.ClearTrades(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to clear trades")
		return 0, err
	}
	s.logger.Warn(ctx, "Journal cleared", map[string]interface{}{"deleted": n})
	return n, nil
}

// GetTrade returns a single trade.
func (s *JournalService) GetTrade(ctx context.Context, id string) (*domain.Trade, error) {
	return s.repo.GetTrade(ctx, id)
}

// ListTrades returns one page of trades, newest first, and the total number of trades.
func (s *JournalService) ListTrades(ctx context.Context, limit, offset int) ([]*domain.Trade, int, error) {
	trades, err := s.repo.ListTrades(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountTrades(ctx)
	if err != nil {
		return nil, 0, err
	}
	return trades, total, nil
}

// AllTrades loads the whole journal in pages. Concurrent callers share one load;
// the returned trades must be treated as read-only. The shared load is detached from
// any single caller's cancellation, while each caller still returns when its own ctx ends.
func (s *JournalService) AllTrades(ctx context.Context) ([]*domain.Trade, error) {
	ch := s.loads.DoChan("all", func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		return s.loadAll(loadCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		trades := res.Val.([]*domain.Trade)
		if res.Shared {
			s.logger.Debug(ctx, "Shared in-flight journal load", map[string]interface{}{"trades": len(trades)})
		}
		out := make([]*domain.Trade, len(trades))
		copy(out, trades)
		return out, nil
	}
}

func (s *JournalService) loadAll(ctx context.Context) ([]*domain.Trade, error) {
	all := make([]*domain.Trade, 0)
	for offset := 0; ; offset += s.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := s.repo.ListTrades(ctx, s.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to load trades at offset %d: %w", offset, err)
		}
		all = append(all, page...)
		if len(page) < s.pageSize {
			break
		}
	}
	return all, nil
}

// Metrics computes the performance metrics of the whole journal.
func (s *JournalService) Metrics(ctx context.Context) (*analytics.PerformanceMetrics, error) {
	trades, err := s.AllTrades(ctx)
	if err != nil {
		return nil, err
	}
	metrics := analytics.AnalyzePerformance(trades)
	if metrics.SkippedRecords > 0 {
		s.logger.Warn(ctx, "Malformed closed trades excluded from metrics", map[string]interface{}{
			"skipped": metrics.SkippedRecords,
		})
	}
	return metrics, nil
}

// ImportTrades stores previously exported trades. Every record is validated before any is
// written, so a bad file imports nothing. Trades whose ID already exists are skipped.
// It returns the number of trades written.
func (s *JournalService) ImportTrades(ctx context.Context, trades []*domain.Trade) (int, error) {
	for i, t := range trades {
		if t == nil {
			continue
		}
		if t.LotSize == 0 {
			t.LotSize = 1
		}
		if err := risk.ValidateRecord(t); err != nil {
			var ve *ports.ValidationError
			if errors.As(err, &ve) {
				return 0, ports.NewValidationError(ve.Field, "record %d: %s", i+1, ve.Reason)
			}
			return 0, err
		}
	}

	imported := 0
	for _, t := range trades {
		if t == nil {
			continue
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = s.now()
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
		gradeChecklist(t)

		if err := s.repo.CreateTrade(ctx, t); err != nil {
			if errors.Is(err, ports.ErrDuplicateEntry) {
				s.logger.Warn(ctx, "Skipping duplicate trade on import", map[string]interface{}{"tradeID": t.ID})
				continue
			}
			return imported, fmt.Errorf("failed to import trade %s: %w", t.ID, err)
		}
		imported++
	}
	s.logger.Info(ctx, "Trades imported", map[string]interface{}{"imported": imported, "records": len(trades)})
	return imported, nil
}

// gradeChecklist stores the derived checklist score and grade on the trade.
func gradeChecklist(t *domain.Trade) {
	score := analytics.ChecklistScore(t.Checklist)
	grade := analytics.ChecklistGrade(t.Checklist)
	t.ChecklistScore = &score
	t.ChecklistGrade = &grade
}
