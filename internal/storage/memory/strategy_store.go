package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jwtly10/insightflow/internal/storage"
	"github.com/jwtly10/insightflow/internal/types"
)

// StrategyStore is an in-memory implementation of storage.StrategyStore.
type StrategyStore struct {
	mu    sync.RWMutex
	data  map[string]types.Strategy
	order []string
}

func NewStrategyStore() *StrategyStore {
	return &StrategyStore{data: make(map[string]types.Strategy)}
}

func (s *StrategyStore) Insert(_ context.Context, st *types.Strategy) error {
	if st == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if _, exists := s.data[st.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[st.ID] = cloneStrategy(*st)
	s.order = append(s.order, st.ID)
	return nil
}

func (s *StrategyStore) GetByID(_ context.Context, id string) (*types.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := cloneStrategy(st)
	return &copy, nil
}

func (s *StrategyStore) List(_ context.Context) ([]types.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]types.Strategy, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, cloneStrategy(s.data[id]))
	}
	return result, nil
}

func cloneStrategy(st types.Strategy) types.Strategy {
	st.Tags = append([]string(nil), st.Tags...)
	return st
}

var _ storage.StrategyStore = (*StrategyStore)(nil)
