package amm

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"solarpool/internal/model"
)

// Ledger is the settlement primitive set the program moves value through.
// Implementations apply or reject each call as a whole.
type Ledger interface {
	TokenAccount(key solana.PublicKey) (model.TokenAccount, error)
	NativeBalance(key solana.PublicKey) uint64
	TransferNative(from, to solana.PublicKey, amount uint64) error
	TransferToken(mint, from, to solana.PublicKey, authority Authority, amount uint64) error
}

// Settlement runs fn as one all-or-nothing unit with the given signers.
// If fn returns an error nothing it did is observable afterwards.
type Settlement interface {
	Atomic(ctx context.Context, signers []solana.PublicKey, fn func(Ledger) error) error
}

// PoolStore persists pool records keyed by pool id.
type PoolStore interface {
	// InsertPool fails with ErrDuplicatePool when id is taken.
	InsertPool(ctx context.Context, id solana.PublicKey, pool *LiquidityPool) error
	// GetPool fails with ErrPoolNotFound when id is unknown.
	GetPool(ctx context.Context, id solana.PublicKey) (*LiquidityPool, error)
}
