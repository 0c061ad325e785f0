package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"solarpool/internal/amm"
)

// MemoryPoolStore keeps pool records in a map, stored in their binary layout.
type MemoryPoolStore struct {
	mu    sync.RWMutex
	pools map[solana.PublicKey][]byte
}

func NewMemoryPoolStore() *MemoryPoolStore {
	return &MemoryPoolStore{pools: make(map[solana.PublicKey][]byte)}
}

var _ amm.PoolStore = (*MemoryPoolStore)(nil)

func (s *MemoryPoolStore) InsertPool(ctx context.Context, id solana.PublicKey, pool *amm.LiquidityPool) error {
	data, err := pool.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode pool: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[id]; ok {
		return fmt.Errorf("%w: %s", amm.ErrDuplicatePool, id)
	}
	s.pools[id] = data
	return nil
}

func (s *MemoryPoolStore) GetPool(ctx context.Context, id solana.PublicKey) (*amm.LiquidityPool, error) {
	s.mu.RLock()
	data, ok := s.pools[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", amm.ErrPoolNotFound, id)
	}

	var pool amm.LiquidityPool
	if err := pool.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode pool %s: %w", id, err)
	}
	return &pool, nil
}
