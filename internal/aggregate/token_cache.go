package aggregate

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"solarpool/internal/model"
)

// MintSource resolves mint metadata.
type MintSource interface {
	Mint(key solana.PublicKey) (model.Mint, error)
}

// TokenDecimalsCache caches mint decimals by address.
type TokenDecimalsCache struct {
	mu   sync.RWMutex
	data map[solana.PublicKey]uint8
}

func NewTokenDecimalsCache() *TokenDecimalsCache {
	return &TokenDecimalsCache{data: make(map[solana.PublicKey]uint8)}
}

func (c *TokenDecimalsCache) Get(mint solana.PublicKey) (uint8, bool) {
	c.mu.RLock()
	decimals, ok := c.data[mint]
	c.mu.RUnlock()
	return decimals, ok
}

func (c *TokenDecimalsCache) Set(mint solana.PublicKey, decimals uint8) {
	c.mu.Lock()
	c.data[mint] = decimals
	c.mu.Unlock()
}

// FetchTokenDecimals loads mint decimals from source.
func FetchTokenDecimals(source MintSource, mint solana.PublicKey) (uint8, error) {
	if source == nil {
		return 0, fmt.Errorf("mint source is nil")
	}
	m, err := source.Mint(mint)
	if err != nil {
		return 0, err
	}
	return m.Decimals, nil
}
