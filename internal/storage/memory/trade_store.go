package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jwtly10/insightflow/internal/storage"
	"github.com/jwtly10/insightflow/internal/types"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	runs map[string][]types.Trade
}

func NewTradeStore() *TradeStore {
	return &TradeStore{runs: make(map[string][]types.Trade)}
}

func (s *TradeStore) InsertRun(_ context.Context, runID string, trades []types.Trade) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[runID]; exists {
		return storage.ErrDuplicateKey
	}

	trades = storage.NumberTrades(trades)
	ids := make(map[int]struct{}, len(trades))
	for _, t := range trades {
		if _, dup := ids[t.ID]; dup {
			return storage.ErrDuplicateKey
		}
		ids[t.ID] = struct{}{}
	}

	s.runs[runID] = trades
	return nil
}

func (s *TradeStore) GetByRun(_ context.Context, runID string) ([]types.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades, exists := s.runs[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	result := append([]types.Trade{}, trades...)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].EntryIndex != result[j].EntryIndex {
			return result[i].EntryIndex < result[j].EntryIndex
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
