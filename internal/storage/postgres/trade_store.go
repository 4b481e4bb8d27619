package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jwtly10/insightflow/internal/storage"
	"github.com/jwtly10/insightflow/internal/types"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ storage.TradeStore = (*TradeStore)(nil)

// InsertRun creates the run row and all of its trades in one transaction.
func (s *TradeStore) InsertRun(ctx context.Context, runID string, trades []types.Trade) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO backtest_runs (id) VALUES ($1)`, runID); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, t := range storage.NumberTrades(trades) {
		batch.Queue(`
			INSERT INTO trades (
				run_id, trade_id, entry_index, exit_index, entry_price, exit_price,
				pnl, rr, direction, size, stop_loss, take_profit, exit_reason
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			runID, t.ID, t.EntryIndex, t.ExitIndex, t.EntryPrice, t.ExitPrice,
			t.PnL, t.RR, string(t.Direction), t.Size, t.StopLoss, t.TakeProfit, t.ExitReason,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trades: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *TradeStore) GetByRun(ctx context.Context, runID string) ([]types.Trade, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM backtest_runs WHERE id = $1)`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check run: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT trade_id, entry_index, exit_index, entry_price, exit_price,
		       pnl, rr, direction, size, stop_loss, take_profit, exit_reason
		FROM trades
		WHERE run_id = $1
		ORDER BY entry_index ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	result := []types.Trade{}
	for rows.Next() {
		var (
			t         types.Trade
			direction string
		)
		if err := rows.Scan(&t.ID, &t.EntryIndex, &t.ExitIndex, &t.EntryPrice, &t.ExitPrice,
			&t.PnL, &t.RR, &direction, &t.Size, &t.StopLoss, &t.TakeProfit, &t.ExitReason); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Direction = types.Direction(direction)
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return result, nil
}
