package storage

import (
	"context"

	"github.com/jwtly10/insightflow/internal/types"
)

// StrategyStore provides access to saved strategies.
type StrategyStore interface {
	// Insert adds a strategy. An empty ID is replaced with a new UUID, which is
	// written back into s. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, s *types.Strategy) error

	// GetByID returns ErrNotFound if no strategy has the ID.
	GetByID(ctx context.Context, id string) (*types.Strategy, error)

	// List returns all strategies ordered by creation, oldest first.
	List(ctx context.Context) ([]types.Strategy, error)
}

// TradeStore provides access to the closed trades of backtest runs.
type TradeStore interface {
	// InsertRun stores trades under runID atomically. Trades without an ID are
	// numbered by position. Returns ErrDuplicateKey if the run already has
	// trades or two trades share an ID.
	InsertRun(ctx context.Context, runID string, trades []types.Trade) error

	// GetByRun returns the run's trades ordered by entry index, then ID.
	// Returns ErrNotFound for an unknown run.
	GetByRun(ctx context.Context, runID string) ([]types.Trade, error)
}
