package amm

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solarpool/internal/model"
)

const swapMessageTag = "solarpool:swap"

// SwapRequest trades Amount of InputMint from Source for the pool's other
// token, paid into Destination. User signs Message().
type SwapRequest struct {
	Pool        solana.PublicKey
	User        solana.PublicKey
	InputMint   solana.PublicKey
	Amount      uint64
	Source      solana.PublicKey
	Destination solana.PublicKey
	FeeAccount  solana.PublicKey
	Signature   solana.Signature
}

// Message returns the bytes the user signs.
func (r *SwapRequest) Message() []byte {
	msg := make([]byte, 0, len(swapMessageTag)+6*solana.PublicKeyLength+8)
	msg = append(msg, swapMessageTag...)
	msg = append(msg, r.Pool.Bytes()...)
	msg = append(msg, r.User.Bytes()...)
	msg = append(msg, r.InputMint.Bytes()...)
	msg = binary.LittleEndian.AppendUint64(msg, r.Amount)
	msg = append(msg, r.Source.Bytes()...)
	msg = append(msg, r.Destination.Bytes()...)
	msg = append(msg, r.FeeAccount.Bytes()...)
	return msg
}

// Sign sets User and Signature from key.
func (r *SwapRequest) Sign(key solana.PrivateKey) error {
	r.User = key.PublicKey()
	sig, err := key.Sign(r.Message())
	if err != nil {
		return fmt.Errorf("sign swap: %w", err)
	}
	r.Signature = sig
	return nil
}

func (r *SwapRequest) verify() error {
	if r.User.IsZero() {
		return fmt.Errorf("%w: no user", ErrUnauthorized)
	}
	if !r.Signature.Verify(r.User, r.Message()) {
		return fmt.Errorf("%w: bad signature for %s", ErrUnauthorized, r.User)
	}
	return nil
}

// SwapResult describes a committed swap.
type SwapResult struct {
	Pool       solana.PublicKey `json:"pool"`
	User       solana.PublicKey `json:"user"`
	Direction  Direction        `json:"direction"`
	InputMint  solana.PublicKey `json:"input_mint"`
	OutputMint solana.PublicKey `json:"output_mint"`
	Quote
}

// Receipt converts the result into its journal record. Step numbers are
// only unique within runID.
func (r *SwapResult) Receipt(runID string, step int, at time.Time) model.SwapReceipt {
	return model.SwapReceipt{
		Pool:             r.Pool.String(),
		User:             r.User.String(),
		Direction:        r.Direction.String(),
		InputMint:        r.InputMint.String(),
		OutputMint:       r.OutputMint.String(),
		AmountIn:         r.AmountIn,
		Fee:              r.Fee,
		NetInput:         r.NetInput,
		AmountOut:        r.AmountOut,
		ReserveInBefore:  r.ReserveInBefore,
		ReserveOutBefore: r.ReserveOutBefore,
		ReserveInAfter:   r.ReserveInAfter,
		ReserveOutAfter:  r.ReserveOutAfter,
		RunID:            runID,
		Step:             step,
		ExecutedAt:       at.UTC().Format(time.RFC3339Nano),
	}
}

// Swap executes req as one settlement unit.
func (p *Program) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	res, err := p.swap(ctx, &req)
	if err != nil {
		p.logger.Debug("swap rejected",
			zap.String("pool", req.Pool.String()),
			zap.String("user", req.User.String()),
			zap.Uint64("amount_in", req.Amount),
			zap.String("kind", KindOf(err).String()),
			zap.Error(err))
		return nil, err
	}
	p.logger.Info("swap executed",
		zap.String("pool", res.Pool.String()),
		zap.String("direction", res.Direction.String()),
		zap.Uint64("amount_in", res.AmountIn),
		zap.Uint64("fee", res.Fee),
		zap.Uint64("amount_out", res.AmountOut))
	return res, nil
}

func (p *Program) swap(ctx context.Context, req *SwapRequest) (*SwapResult, error) {
	if req.Amount == 0 {
		return nil, ErrInsufficientInput
	}
	if err := req.verify(); err != nil {
		return nil, err
	}

	pool, err := p.store.GetPool(ctx, req.Pool)
	if err != nil {
		return nil, err
	}
	leg, err := pool.Leg(req.InputMint)
	if err != nil {
		return nil, err
	}
	authority, err := p.poolAuthority(req.Pool, pool)
	if err != nil {
		return nil, err
	}
	if !pool.FeeRate.IsZero() && !req.FeeAccount.Equals(leg.FeeAccount) {
		return nil, fmt.Errorf("%w: got %s, pool expects %s", ErrFeeAccountMismatch, req.FeeAccount, leg.FeeAccount)
	}

	res := &SwapResult{
		Pool:       req.Pool,
		User:       req.User,
		Direction:  leg.Direction,
		InputMint:  leg.InputMint,
		OutputMint: leg.OutputMint,
	}
	err = p.settlement.Atomic(ctx, []solana.PublicKey{req.User}, func(l Ledger) error {
		reserveIn, reserveOut, err := loadLeg(l, req.Pool, leg)
		if err != nil {
			return err
		}
		if err := checkUserAccounts(l, req, leg); err != nil {
			return err
		}

		q, err := QuoteSwap(reserveIn, reserveOut, req.Amount, pool.FeeRate)
		if err != nil {
			return err
		}

		user := SignerAuthority(req.User)
		if err := l.TransferToken(leg.InputMint, req.Source, leg.ReserveIn, user, q.NetInput); err != nil {
			return fmt.Errorf("transfer input: %w", err)
		}
		if q.Fee > 0 {
			if err := l.TransferToken(leg.InputMint, req.Source, leg.FeeAccount, user, q.Fee); err != nil {
				return fmt.Errorf("transfer fee: %w", err)
			}
		}
		if err := l.TransferToken(leg.OutputMint, leg.ReserveOut, req.Destination, authority, q.AmountOut); err != nil {
			return fmt.Errorf("transfer output: %w", err)
		}

		inAfter, outAfter, err := loadLeg(l, req.Pool, leg)
		if err != nil {
			return err
		}
		if inAfter != q.ReserveInAfter || outAfter != q.ReserveOutAfter {
			return fmt.Errorf("%w: reserves (%d, %d), expected (%d, %d)", ErrInvariantViolated, inAfter, outAfter, q.ReserveInAfter, q.ReserveOutAfter)
		}
		if err := CheckInvariant(reserveIn, reserveOut, inAfter, outAfter); err != nil {
			return err
		}
		res.Quote = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Quote prices a swap against the pool's live reserves without moving funds.
func (p *Program) Quote(ctx context.Context, poolID, inputMint solana.PublicKey, amount uint64) (Quote, error) {
	if amount == 0 {
		return Quote{}, ErrInsufficientInput
	}
	pool, err := p.store.GetPool(ctx, poolID)
	if err != nil {
		return Quote{}, err
	}
	leg, err := pool.Leg(inputMint)
	if err != nil {
		return Quote{}, err
	}
	if _, err := p.poolAuthority(poolID, pool); err != nil {
		return Quote{}, err
	}

	var q Quote
	err = p.settlement.Atomic(ctx, nil, func(l Ledger) error {
		reserveIn, reserveOut, err := loadLeg(l, poolID, leg)
		if err != nil {
			return err
		}
		q, err = QuoteSwap(reserveIn, reserveOut, amount, pool.FeeRate)
		return err
	})
	return q, err
}

// loadLeg reads both reserves of a leg and checks they are still held by
// the pool authority in the expected mints.
func loadLeg(l Ledger, authority solana.PublicKey, leg Leg) (uint64, uint64, error) {
	in, err := l.TokenAccount(leg.ReserveIn)
	if err != nil {
		return 0, 0, fmt.Errorf("reserve in: %w", err)
	}
	out, err := l.TokenAccount(leg.ReserveOut)
	if err != nil {
		return 0, 0, fmt.Errorf("reserve out: %w", err)
	}
	if !in.Owner.Equals(authority) || !out.Owner.Equals(authority) {
		return 0, 0, fmt.Errorf("%w: reserves are not held by %s", ErrAuthorityMismatch, authority)
	}
	if !in.Mint.Equals(leg.InputMint) || !out.Mint.Equals(leg.OutputMint) {
		return 0, 0, fmt.Errorf("%w: reserve mints changed", ErrMintMismatch)
	}
	return in.Amount, out.Amount, nil
}

func checkUserAccounts(l Ledger, req *SwapRequest, leg Leg) error {
	src, err := l.TokenAccount(req.Source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if !src.Mint.Equals(leg.InputMint) {
		return fmt.Errorf("%w: source holds %s, want %s", ErrMintMismatch, src.Mint, leg.InputMint)
	}
	if !src.Owner.Equals(req.User) {
		return fmt.Errorf("%w: source is owned by %s", ErrUnauthorized, src.Owner)
	}
	dst, err := l.TokenAccount(req.Destination)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if !dst.Mint.Equals(leg.OutputMint) {
		return fmt.Errorf("%w: destination holds %s, want %s", ErrMintMismatch, dst.Mint, leg.OutputMint)
	}
	if !dst.Owner.Equals(req.User) {
		return fmt.Errorf("%w: destination is owned by %s", ErrInvalidAccount, dst.Owner)
	}
	return nil
}
