package amm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Program is the pool program: a factory for pools and a swap engine over
// them. It holds no balances; every read and write goes through settlement.
type Program struct {
	id         solana.PublicKey
	store      PoolStore
	settlement Settlement
	logger     *zap.Logger
}

func NewProgram(programID solana.PublicKey, store PoolStore, settlement Settlement, logger *zap.Logger) *Program {
	if logger == nil {
		logger = zap.NewNop()
	}
	if programID.IsZero() {
		programID = DefaultProgramID
	}
	return &Program{
		id:         programID,
		store:      store,
		settlement: settlement,
		logger:     logger,
	}
}

func (p *Program) ID() solana.PublicKey {
	return p.id
}

// PoolAddress returns the pool id (its authority) and canonical bump for owner.
func (p *Program) PoolAddress(owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return DeriveAuthority(p.id, owner)
}

// Pool loads a pool record.
func (p *Program) Pool(ctx context.Context, id solana.PublicKey) (*LiquidityPool, error) {
	return p.store.GetPool(ctx, id)
}

// Reserves returns the live balances of a pool's reserves.
func (p *Program) Reserves(ctx context.Context, id solana.PublicKey) (uint64, uint64, error) {
	pool, err := p.store.GetPool(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	var reserveA, reserveB uint64
	err = p.settlement.Atomic(ctx, nil, func(l Ledger) error {
		a, err := l.TokenAccount(pool.ReserveA)
		if err != nil {
			return fmt.Errorf("reserve_a: %w", err)
		}
		b, err := l.TokenAccount(pool.ReserveB)
		if err != nil {
			return fmt.Errorf("reserve_b: %w", err)
		}
		reserveA, reserveB = a.Amount, b.Amount
		return nil
	})
	return reserveA, reserveB, err
}

// TransferNative moves native currency from a signing account.
func (p *Program) TransferNative(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return ErrInsufficientInput
	}
	return p.settlement.Atomic(ctx, []solana.PublicKey{from}, func(l Ledger) error {
		return l.TransferNative(from, to, amount)
	})
}

// TransferToken moves tokens between two accounts on behalf of a signing owner.
func (p *Program) TransferToken(ctx context.Context, mint, from, to, owner solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return ErrInsufficientInput
	}
	return p.settlement.Atomic(ctx, []solana.PublicKey{owner}, func(l Ledger) error {
		return l.TransferToken(mint, from, to, SignerAuthority(owner), amount)
	})
}

// poolAuthority re-derives the signer for a stored pool and checks that it
// is the pool id.
func (p *Program) poolAuthority(id solana.PublicKey, pool *LiquidityPool) (Authority, error) {
	addr, err := AuthorityAddress(p.id, pool.Owner, pool.AuthorityBump)
	if err != nil {
		return Authority{}, fmt.Errorf("%w: %v", ErrAuthorityMismatch, err)
	}
	if !addr.Equals(id) {
		return Authority{}, fmt.Errorf("%w: bump %d derives %s, pool is %s", ErrAuthorityMismatch, pool.AuthorityBump, addr, id)
	}
	return p.signFor(addr, AuthoritySeeds(pool.Owner, pool.AuthorityBump)), nil
}
