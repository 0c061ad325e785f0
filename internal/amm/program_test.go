package amm_test

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"solarpool/internal/amm"
	"solarpool/internal/ledger"
	"solarpool/internal/storage"
)

func privateKey(name string) solana.PrivateKey {
	seed := sha256.Sum256([]byte(name))
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:]))
}

func publicKey(name string) solana.PublicKey {
	return privateKey(name).PublicKey()
}

type fixture struct {
	program   *amm.Program
	store     *storage.MemoryPoolStore
	ledger    *ledger.Ledger
	owner     solana.PublicKey
	authority solana.PublicKey
	bump      uint8
	trader    solana.PrivateKey
	mintPool  solana.PublicKey
	mintA     solana.PublicKey
	mintB     solana.PublicKey
	reserveA  solana.PublicKey
	reserveB  solana.PublicKey
	feeA      solana.PublicKey
	feeB      solana.PublicKey
	traderA   solana.PublicKey
	traderB   solana.PublicKey
}

// newFixture provisions mints, reserves seeded with (100_000, 100_000), fee
// accounts and a trader holding 10_000 A. The pool is not created.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	l := ledger.New(nil)
	store := storage.NewMemoryPoolStore()
	f := &fixture{
		program:  amm.NewProgram(amm.DefaultProgramID, store, l, nil),
		store:    store,
		ledger:   l,
		owner:    publicKey("owner"),
		trader:   privateKey("trader"),
		mintPool: publicKey("mint_pool"),
		mintA:    publicKey("mint_a"),
		mintB:    publicKey("mint_b"),
	}
	var err error
	f.authority, f.bump, err = f.program.PoolAddress(f.owner)
	require.NoError(t, err)

	mintAuthority := publicKey("token_owner")
	for _, mint := range []solana.PublicKey{f.mintPool, f.mintA, f.mintB} {
		require.NoError(t, l.CreateMint(mint, mintAuthority, 0))
	}

	f.reserveA, err = l.CreateAssociatedTokenAccount(f.authority, f.mintA)
	require.NoError(t, err)
	f.reserveB, err = l.CreateAssociatedTokenAccount(f.authority, f.mintB)
	require.NoError(t, err)
	require.NoError(t, l.MintTo(f.mintA, f.reserveA, mintAuthority, 100_000))
	require.NoError(t, l.MintTo(f.mintB, f.reserveB, mintAuthority, 100_000))

	collector := publicKey("fee_collector")
	f.feeA, err = l.CreateAssociatedTokenAccount(collector, f.mintA)
	require.NoError(t, err)
	f.feeB, err = l.CreateAssociatedTokenAccount(collector, f.mintB)
	require.NoError(t, err)

	f.traderA, err = l.CreateAssociatedTokenAccount(f.trader.PublicKey(), f.mintA)
	require.NoError(t, err)
	f.traderB, err = l.CreateAssociatedTokenAccount(f.trader.PublicKey(), f.mintB)
	require.NoError(t, err)
	require.NoError(t, l.MintTo(f.mintA, f.traderA, mintAuthority, 10_000))

	return f
}

func (f *fixture) createRequest(rate amm.FeeRate) amm.CreatePoolRequest {
	return amm.CreatePoolRequest{
		Owner:       f.owner,
		Bump:        f.bump,
		FeeRate:     rate,
		MintPool:    f.mintPool,
		MintA:       f.mintA,
		MintB:       f.mintB,
		ReserveA:    f.reserveA,
		ReserveB:    f.reserveB,
		FeeAccountA: f.feeA,
		FeeAccountB: f.feeB,
	}
}

// poolRecord is the record CreatePool would store for the fixture at 1/100.
func (f *fixture) poolRecord() *amm.LiquidityPool {
	return &amm.LiquidityPool{
		Owner:         f.owner,
		AuthorityBump: f.bump,
		FeeRate:       amm.FeeRate{Numerator: 1, Denominator: 100},
		MintPool:      f.mintPool,
		MintA:         f.mintA,
		MintB:         f.mintB,
		ReserveA:      f.reserveA,
		ReserveB:      f.reserveB,
		FeeAccountA:   f.feeA,
		FeeAccountB:   f.feeB,
	}
}

func (f *fixture) createPool(t *testing.T, rate amm.FeeRate) solana.PublicKey {
	t.Helper()
	_, id, err := f.program.CreatePool(context.Background(), f.createRequest(rate))
	require.NoError(t, err)
	return id
}

func (f *fixture) swapAToB(t *testing.T, pool solana.PublicKey, amount uint64) amm.SwapRequest {
	t.Helper()
	req := amm.SwapRequest{
		Pool:        pool,
		InputMint:   f.mintA,
		Amount:      amount,
		Source:      f.traderA,
		Destination: f.traderB,
		FeeAccount:  f.feeA,
	}
	require.NoError(t, req.Sign(f.trader))
	return req
}

func (f *fixture) balance(t *testing.T, key solana.PublicKey) uint64 {
	t.Helper()
	acct, err := f.ledger.TokenAccount(key)
	require.NoError(t, err)
	return acct.Amount
}

func TestCreatePool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pool, id, err := f.program.CreatePool(ctx, f.createRequest(amm.FeeRate{Numerator: 1, Denominator: 100}))
	require.NoError(t, err)
	require.Equal(t, f.authority, id)
	require.Equal(t, f.owner, pool.Owner)

	stored, err := f.program.Pool(ctx, id)
	require.NoError(t, err)
	require.Equal(t, pool, stored)

	a, b, err := f.program.Reserves(ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint64(100_000), a)
	require.Equal(t, uint64(100_000), b)

	_, _, err = f.program.CreatePool(ctx, f.createRequest(amm.ZeroFee))
	require.ErrorIs(t, err, amm.ErrDuplicatePool)
	require.Equal(t, amm.KindState, amm.KindOf(err))
}

func TestCreatePoolRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture, req *amm.CreatePoolRequest)
		want   error
	}{
		{"non-canonical bump", func(f *fixture, req *amm.CreatePoolRequest) { req.Bump-- }, amm.ErrInvalidAuthority},
		{"reserve held by someone else", func(f *fixture, req *amm.CreatePoolRequest) { req.ReserveA = f.traderA }, amm.ErrInvalidAuthority},
		{"reserve of wrong mint", func(f *fixture, req *amm.CreatePoolRequest) { req.ReserveA, req.ReserveB = f.reserveB, f.reserveA }, amm.ErrMintMismatch},
		{"fee account of wrong mint", func(f *fixture, req *amm.CreatePoolRequest) { req.FeeAccountA = f.feeB }, amm.ErrFeeAccountMismatch},
		{"fee rate out of range", func(f *fixture, req *amm.CreatePoolRequest) { req.FeeRate = amm.FeeRate{Numerator: 2, Denominator: 1} }, amm.ErrInvalidFeeRate},
		{"missing reserve", func(f *fixture, req *amm.CreatePoolRequest) { req.ReserveB = publicKey("nowhere") }, amm.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := f.createRequest(amm.FeeRate{Numerator: 1, Denominator: 100})
			tt.mutate(f, &req)

			_, _, err := f.program.CreatePool(context.Background(), req)
			require.ErrorIs(t, err, tt.want)

			_, err = f.program.Pool(context.Background(), f.authority)
			require.ErrorIs(t, err, amm.ErrPoolNotFound)
		})
	}
}

func TestCreatePoolRejectsEmptyReserve(t *testing.T) {
	f := newFixture(t)
	empty, err := f.ledger.CreateAssociatedTokenAccount(f.authority, f.mintPool)
	require.NoError(t, err)

	req := f.createRequest(amm.ZeroFee)
	req.MintB = f.mintPool
	req.MintPool = f.mintB
	req.ReserveB = empty
	req.FeeAccountB = solana.PublicKey{}

	_, _, err = f.program.CreatePool(context.Background(), req)
	require.ErrorIs(t, err, amm.ErrZeroReserve)
}

func TestSwapConcreteScenario(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, amm.FeeRate{Numerator: 1, Denominator: 100})

	res, err := f.program.Swap(context.Background(), f.swapAToB(t, pool, 800))
	require.NoError(t, err)
	require.Equal(t, amm.AToB, res.Direction)
	require.Equal(t, uint64(8), res.Fee)
	require.Equal(t, uint64(792), res.NetInput)
	require.Equal(t, uint64(785), res.AmountOut)
	require.Equal(t, uint64(100_792), res.ReserveInAfter)
	require.Equal(t, uint64(99_215), res.ReserveOutAfter)

	require.Equal(t, uint64(100_792), f.balance(t, f.reserveA))
	require.Equal(t, uint64(99_215), f.balance(t, f.reserveB))
	require.Equal(t, uint64(8), f.balance(t, f.feeA))
	require.Equal(t, uint64(9_200), f.balance(t, f.traderA))
	require.Equal(t, uint64(785), f.balance(t, f.traderB))

	receipt := res.Receipt("run-1", 3, time.Now())
	require.Equal(t, "a_to_b", receipt.Direction)
	require.Equal(t, "run-1", receipt.RunID)
	require.Equal(t, 3, receipt.Step)
}

func TestSwapBackToA(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, amm.FeeRate{Numerator: 1, Denominator: 100})
	ctx := context.Background()

	_, err := f.program.Swap(ctx, f.swapAToB(t, pool, 800))
	require.NoError(t, err)

	req := amm.SwapRequest{
		Pool:        pool,
		InputMint:   f.mintB,
		Amount:      785,
		Source:      f.traderB,
		Destination: f.traderA,
		FeeAccount:  f.feeB,
	}
	require.NoError(t, req.Sign(f.trader))
	res, err := f.program.Swap(ctx, req)
	require.NoError(t, err)
	require.Equal(t, amm.BToA, res.Direction)
	require.Equal(t, uint64(7), res.Fee)
	require.Less(t, res.AmountOut, uint64(800))
	require.Equal(t, uint64(7), f.balance(t, f.feeB))
	require.Equal(t, uint64(0), f.balance(t, f.traderB))
}

func TestSwapZeroInputRejectedBeforeReads(t *testing.T) {
	f := newFixture(t)

	// The pool does not exist: a zero amount must still fail validation first.
	req := f.swapAToB(t, publicKey("missing pool"), 0)
	_, err := f.program.Swap(context.Background(), req)
	require.ErrorIs(t, err, amm.ErrInsufficientInput)
	require.Equal(t, amm.KindValidation, amm.KindOf(err))
}

func TestSwapRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture, req *amm.SwapRequest)
		resign bool
		want   error
	}{
		{"tampered amount", func(f *fixture, req *amm.SwapRequest) { req.Amount = 900 }, false, amm.ErrUnauthorized},
		{"unknown pool", func(f *fixture, req *amm.SwapRequest) { req.Pool = publicKey("missing pool") }, true, amm.ErrPoolNotFound},
		{"unsupported mint", func(f *fixture, req *amm.SwapRequest) { req.InputMint = f.mintPool }, true, amm.ErrUnsupportedMint},
		{"wrong fee account", func(f *fixture, req *amm.SwapRequest) { req.FeeAccount = f.feeB }, true, amm.ErrFeeAccountMismatch},
		{"destination of input mint", func(f *fixture, req *amm.SwapRequest) { req.Destination = f.traderA }, true, amm.ErrMintMismatch},
		{"source not owned by user", func(f *fixture, req *amm.SwapRequest) { req.Source = f.feeA }, true, amm.ErrUnauthorized},
		{"more than balance", func(f *fixture, req *amm.SwapRequest) { req.Amount = 10_001 }, true, amm.ErrInsufficientFunds},
		{"output rounds to zero", func(f *fixture, req *amm.SwapRequest) { req.Amount = 1 }, true, amm.ErrInsufficientOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			pool := f.createPool(t, amm.FeeRate{Numerator: 1, Denominator: 100})
			before := f.ledger.Snapshot()

			req := f.swapAToB(t, pool, 800)
			tt.mutate(f, &req)
			if tt.resign {
				require.NoError(t, req.Sign(f.trader))
			}

			_, err := f.program.Swap(context.Background(), req)
			require.ErrorIs(t, err, tt.want)

			after := f.ledger.Snapshot()
			require.Equal(t, before.Accounts, after.Accounts)
		})
	}
}

func TestSwapRejectsSubstitutedPoolRecord(t *testing.T) {
	tests := []struct {
		name   string
		record func(t *testing.T, f *fixture) (solana.PublicKey, *amm.LiquidityPool)
	}{
		{"bump of another address", func(t *testing.T, f *fixture) (solana.PublicKey, *amm.LiquidityPool) {
			pool := f.poolRecord()
			pool.AuthorityBump--
			return publicKey("substituted pool"), pool
		}},
		{"wrong bump under the pool id", func(t *testing.T, f *fixture) (solana.PublicKey, *amm.LiquidityPool) {
			pool := f.poolRecord()
			pool.AuthorityBump--
			return f.authority, pool
		}},
		{"reserve held by another owner", func(t *testing.T, f *fixture) (solana.PublicKey, *amm.LiquidityPool) {
			decoy, err := f.ledger.CreateAssociatedTokenAccount(publicKey("mallory"), f.mintB)
			require.NoError(t, err)
			require.NoError(t, f.ledger.MintTo(f.mintB, decoy, publicKey("token_owner"), 100_000))
			pool := f.poolRecord()
			pool.ReserveB = decoy
			return f.authority, pool
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id, pool := tt.record(t, f)
			require.NoError(t, f.store.InsertPool(context.Background(), id, pool))
			before := f.ledger.Snapshot()

			_, err := f.program.Swap(context.Background(), f.swapAToB(t, id, 800))
			require.ErrorIs(t, err, amm.ErrAuthorityMismatch)
			require.Equal(t, "AuthorityMismatch", amm.CodeOf(err))

			after := f.ledger.Snapshot()
			require.Equal(t, before.Accounts, after.Accounts)
		})
	}
}

func TestSwapWithoutFee(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, amm.ZeroFee)

	req := f.swapAToB(t, pool, 800)
	req.FeeAccount = solana.PublicKey{}
	require.NoError(t, req.Sign(f.trader))

	res, err := f.program.Swap(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.Fee)
	require.Equal(t, uint64(793), res.AmountOut)
	require.Equal(t, uint64(0), f.balance(t, f.feeA))
}

func TestQuoteMatchesSwap(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, amm.FeeRate{Numerator: 3, Denominator: 1000})
	ctx := context.Background()

	q, err := f.program.Quote(ctx, pool, f.mintA, 2_500)
	require.NoError(t, err)
	require.Equal(t, uint64(100_000), f.balance(t, f.reserveA))

	res, err := f.program.Swap(ctx, f.swapAToB(t, pool, 2_500))
	require.NoError(t, err)
	require.Equal(t, q, res.Quote)

	_, err = f.program.Quote(ctx, pool, f.mintA, 0)
	require.ErrorIs(t, err, amm.ErrInsufficientInput)
}

func TestTransferPassThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trader := f.trader.PublicKey()
	payee := publicKey("payee")

	require.NoError(t, f.ledger.Airdrop(trader, 1_000))
	require.NoError(t, f.program.TransferNative(ctx, trader, payee, 400))
	require.Equal(t, uint64(600), f.ledger.NativeBalance(trader))
	require.Equal(t, uint64(400), f.ledger.NativeBalance(payee))

	err := f.program.TransferNative(ctx, trader, payee, 601)
	require.ErrorIs(t, err, amm.ErrInsufficientFunds)
	require.Equal(t, amm.KindSettlement, amm.KindOf(err))

	require.ErrorIs(t, f.program.TransferNative(ctx, trader, payee, 0), amm.ErrInsufficientInput)

	payeeA, err := f.ledger.CreateAssociatedTokenAccount(payee, f.mintA)
	require.NoError(t, err)
	require.NoError(t, f.program.TransferToken(ctx, f.mintA, f.traderA, payeeA, trader, 250))
	require.Equal(t, uint64(250), f.balance(t, payeeA))

	// Only the owner may move an account's tokens.
	err = f.program.TransferToken(ctx, f.mintA, f.traderA, payeeA, payee, 1)
	require.ErrorIs(t, err, amm.ErrUnauthorized)

	// Reserves can only move under the pool authority's seeds.
	err = f.program.TransferToken(ctx, f.mintA, f.reserveA, payeeA, f.authority, 1)
	require.ErrorIs(t, err, amm.ErrUnauthorized)
}
