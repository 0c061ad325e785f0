package amm

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// CreatePoolRequest registers two funded reserves under an owner's authority.
type CreatePoolRequest struct {
	Owner       solana.PublicKey
	Bump        uint8
	FeeRate     FeeRate
	MintPool    solana.PublicKey
	MintA       solana.PublicKey
	MintB       solana.PublicKey
	ReserveA    solana.PublicKey
	ReserveB    solana.PublicKey
	FeeAccountA solana.PublicKey
	FeeAccountB solana.PublicKey
}

func (r CreatePoolRequest) pool() *LiquidityPool {
	return &LiquidityPool{
		Owner:         r.Owner,
		AuthorityBump: r.Bump,
		FeeRate:       r.FeeRate,
		MintPool:      r.MintPool,
		MintA:         r.MintA,
		MintB:         r.MintB,
		ReserveA:      r.ReserveA,
		ReserveB:      r.ReserveB,
		FeeAccountA:   r.FeeAccountA,
		FeeAccountB:   r.FeeAccountB,
	}
}

// CreatePool validates the request against the ledger and stores the pool
// at its authority address. No tokens move.
func (p *Program) CreatePool(ctx context.Context, req CreatePoolRequest) (*LiquidityPool, solana.PublicKey, error) {
	pool, id, err := p.createPool(ctx, req)
	if err != nil {
		p.logger.Debug("create pool rejected",
			zap.String("owner", req.Owner.String()),
			zap.String("kind", KindOf(err).String()),
			zap.Error(err))
		return nil, solana.PublicKey{}, err
	}
	p.logger.Info("pool created",
		zap.String("pool", id.String()),
		zap.String("owner", pool.Owner.String()),
		zap.String("mint_a", pool.MintA.String()),
		zap.String("mint_b", pool.MintB.String()),
		zap.String("fee", pool.FeeRate.String()))
	return pool, id, nil
}

func (p *Program) createPool(ctx context.Context, req CreatePoolRequest) (*LiquidityPool, solana.PublicKey, error) {
	pool := req.pool()
	if err := pool.Validate(); err != nil {
		return nil, solana.PublicKey{}, err
	}

	id, bump, err := DeriveAuthority(p.id, pool.Owner)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	if bump != pool.AuthorityBump {
		return nil, solana.PublicKey{}, fmt.Errorf("%w: bump %d is not canonical (%d)", ErrInvalidAuthority, pool.AuthorityBump, bump)
	}

	if _, err := p.store.GetPool(ctx, id); err == nil {
		return nil, solana.PublicKey{}, fmt.Errorf("%w: owner %s", ErrDuplicatePool, pool.Owner)
	} else if !errors.Is(err, ErrPoolNotFound) {
		return nil, solana.PublicKey{}, fmt.Errorf("load pool: %w", err)
	}

	err = p.settlement.Atomic(ctx, nil, func(l Ledger) error {
		return checkReserves(l, id, pool)
	})
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	if err := p.store.InsertPool(ctx, id, pool); err != nil {
		return nil, solana.PublicKey{}, err
	}
	return pool, id, nil
}

func checkReserves(l Ledger, authority solana.PublicKey, pool *LiquidityPool) error {
	reserves := []struct {
		name    string
		key     solana.PublicKey
		mint    solana.PublicKey
		feeAcct solana.PublicKey
	}{
		{"reserve_a", pool.ReserveA, pool.MintA, pool.FeeAccountA},
		{"reserve_b", pool.ReserveB, pool.MintB, pool.FeeAccountB},
	}
	for _, r := range reserves {
		acct, err := l.TokenAccount(r.key)
		if err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
		if !acct.Mint.Equals(r.mint) {
			return fmt.Errorf("%w: %s holds %s, want %s", ErrMintMismatch, r.name, acct.Mint, r.mint)
		}
		if !acct.Owner.Equals(authority) {
			return fmt.Errorf("%w: %s is owned by %s, want %s", ErrInvalidAuthority, r.name, acct.Owner, authority)
		}
		if acct.Amount == 0 {
			return fmt.Errorf("%w: %s", ErrZeroReserve, r.name)
		}

		if r.feeAcct.IsZero() {
			continue
		}
		fee, err := l.TokenAccount(r.feeAcct)
		if err != nil {
			return fmt.Errorf("fee account for %s: %w", r.name, err)
		}
		if !fee.Mint.Equals(r.mint) {
			return fmt.Errorf("%w: fee account %s holds %s, want %s", ErrFeeAccountMismatch, r.feeAcct, fee.Mint, r.mint)
		}
	}
	return nil
}
