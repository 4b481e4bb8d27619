package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jwtly10/insightflow/internal/storage"
	"github.com/jwtly10/insightflow/internal/types"
)

// StrategyStore implements storage.StrategyStore using PostgreSQL.
type StrategyStore struct {
	pool *Pool
}

func NewStrategyStore(pool *Pool) *StrategyStore {
	return &StrategyStore{pool: pool}
}

var _ storage.StrategyStore = (*StrategyStore)(nil)

func (s *StrategyStore) Insert(ctx context.Context, st *types.Strategy) error {
	if st == nil {
		return storage.ErrInvalidInput
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}

	tags := st.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO strategies (id, name, tags, win_rate, emotion)
		VALUES ($1, $2, $3, $4, $5)`,
		st.ID, st.Name, tags, st.WinRate, string(st.Emotion),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert strategy: %w", err)
	}
	return nil
}

func (s *StrategyStore) GetByID(ctx context.Context, id string) (*types.Strategy, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, tags, win_rate, emotion
		FROM strategies
		WHERE id = $1`, id)

	st, err := scanStrategy(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get strategy: %w", err)
	}
	return st, nil
}

func (s *StrategyStore) List(ctx context.Context) ([]types.Strategy, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, tags, win_rate, emotion
		FROM strategies
		ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query strategies: %w", err)
	}
	defer rows.Close()

	var result []types.Strategy
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		result = append(result, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategies: %w", err)
	}
	return result, nil
}

func scanStrategy(row pgx.Row) (*types.Strategy, error) {
	var (
		st      types.Strategy
		emotion string
	)
	if err := row.Scan(&st.ID, &st.Name, &st.Tags, &st.WinRate, &emotion); err != nil {
		return nil, err
	}
	st.Emotion = types.Emotion(emotion)
	return &st, nil
}
