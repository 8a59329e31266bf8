package ports

import (
	"context"

	"tradejournal/internal/domain"
)

// TradeRepository defines the record store the journal reads from and writes to.
type TradeRepository interface {
	// ListTrades retrieves trades ordered by entry time descending, paginated by limit/offset.
	ListTrades(ctx context.Context, limit, offset int) ([]*domain.Trade, error)
	// CountTrades returns the total number of stored trades.
	CountTrades(ctx context.Context) (int, error)
	// GetTrade retrieves a trade by its ID. Returns ErrNotFound if it does not exist.
	GetTrade(ctx context.Context, id string) (*domain.Trade, error)
	// CreateTrade saves a new trade. The trade must already carry its ID.
	CreateTrade(ctx context.Context, trade *domain.Trade) error
	// UpdateTrade writes the editable fields of an open trade.
	UpdateTrade(ctx context.Context, trade *domain.Trade) error
	// CloseTrade atomically writes the exit fields, only if the trade is still open.
	// Returns ErrTradeAlreadyClosed if another writer closed it first.
	CloseTrade(ctx context.Context, id string, update domain.ExitUpdate) error
	// DeleteTrade removes a trade by its ID.
	DeleteTrade(ctx context.Context, id string) error
	// ClearTrades removes every trade and returns how many were deleted.
	ClearTrades(ctx context.Context) (int64, error)
}
