package ledger

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"solarpool/internal/amm"
)

func key(name string) solana.PublicKey {
	seed := sha256.Sum256([]byte(name))
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:])).PublicKey()
}

func setup(t *testing.T) (*Ledger, solana.PublicKey, solana.PublicKey, solana.PublicKey) {
	t.Helper()
	l := New(nil)
	mint := key("mint")
	require.NoError(t, l.CreateMint(mint, key("mint authority"), 6))

	alice, err := l.CreateAssociatedTokenAccount(key("alice"), mint)
	require.NoError(t, err)
	bob, err := l.CreateAssociatedTokenAccount(key("bob"), mint)
	require.NoError(t, err)
	require.NoError(t, l.MintTo(mint, alice, key("mint authority"), 1_000))
	return l, mint, alice, bob
}

func TestAtomicCommitsOnSuccess(t *testing.T) {
	l, mint, alice, bob := setup(t)

	err := l.Atomic(context.Background(), []solana.PublicKey{key("alice")}, func(tx amm.Ledger) error {
		return tx.TransferToken(mint, alice, bob, amm.SignerAuthority(key("alice")), 300)
	})
	require.NoError(t, err)

	a, err := l.TokenAccount(alice)
	require.NoError(t, err)
	b, err := l.TokenAccount(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(700), a.Amount)
	require.Equal(t, uint64(300), b.Amount)
}

func TestAtomicRollsBackOnError(t *testing.T) {
	l, mint, alice, bob := setup(t)
	boom := errors.New("boom")

	err := l.Atomic(context.Background(), []solana.PublicKey{key("alice")}, func(tx amm.Ledger) error {
		if err := tx.TransferToken(mint, alice, bob, amm.SignerAuthority(key("alice")), 300); err != nil {
			return err
		}
		acct, err := tx.TokenAccount(bob)
		require.NoError(t, err)
		require.Equal(t, uint64(300), acct.Amount)
		return boom
	})
	require.ErrorIs(t, err, boom)

	b, err := l.TokenAccount(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(0), b.Amount)
}

func TestAtomicDiscardsWhenCancelled(t *testing.T) {
	l, mint, alice, bob := setup(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := l.Atomic(ctx, []solana.PublicKey{key("alice")}, func(tx amm.Ledger) error {
		err := tx.TransferToken(mint, alice, bob, amm.SignerAuthority(key("alice")), 300)
		cancel()
		return err
	})
	require.ErrorIs(t, err, context.Canceled)

	a, err := l.TokenAccount(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), a.Amount)
}

func TestTransferTokenChecks(t *testing.T) {
	l, mint, alice, bob := setup(t)
	other := key("other mint")
	require.NoError(t, l.CreateMint(other, key("mint authority"), 0))
	carol, err := l.CreateAssociatedTokenAccount(key("carol"), other)
	require.NoError(t, err)

	tests := []struct {
		name    string
		signers []solana.PublicKey
		fn      func(tx amm.Ledger) error
		want    error
	}{
		{"not signed", nil, func(tx amm.Ledger) error {
			return tx.TransferToken(mint, alice, bob, amm.SignerAuthority(key("alice")), 1)
		}, amm.ErrUnauthorized},
		{"not owner", []solana.PublicKey{key("bob")}, func(tx amm.Ledger) error {
			return tx.TransferToken(mint, alice, bob, amm.SignerAuthority(key("bob")), 1)
		}, amm.ErrUnauthorized},
		{"insufficient funds", []solana.PublicKey{key("alice")}, func(tx amm.Ledger) error {
			return tx.TransferToken(mint, alice, bob, amm.SignerAuthority(key("alice")), 1_001)
		}, amm.ErrInsufficientFunds},
		{"mint mismatch", []solana.PublicKey{key("alice")}, func(tx amm.Ledger) error {
			return tx.TransferToken(mint, alice, carol, amm.SignerAuthority(key("alice")), 1)
		}, amm.ErrMintMismatch},
		{"missing account", []solana.PublicKey{key("alice")}, func(tx amm.Ledger) error {
			return tx.TransferToken(mint, alice, key("nobody"), amm.SignerAuthority(key("alice")), 1)
		}, amm.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Atomic(context.Background(), tt.signers, tt.fn)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReserveCannotBeMovedWithPublicSeeds(t *testing.T) {
	l, mint, _, bob := setup(t)
	owner := key("pool owner")
	authority, bump, err := amm.DeriveAuthority(amm.DefaultProgramID, owner)
	require.NoError(t, err)

	reserve, err := l.CreateAssociatedTokenAccount(authority, mint)
	require.NoError(t, err)
	require.NoError(t, l.MintTo(mint, reserve, key("mint authority"), 500))

	err = l.Atomic(context.Background(), []solana.PublicKey{authority}, func(tx amm.Ledger) error {
		return tx.TransferToken(mint, reserve, bob, amm.SignerAuthority(authority), 1)
	})
	require.ErrorIs(t, err, amm.ErrUnauthorized)

	for _, b := range []uint8{bump, bump - 1} {
		seeds := amm.Authority{Key: authority, ProgramID: amm.DefaultProgramID, Seeds: amm.AuthoritySeeds(owner, b)}
		err = l.Atomic(context.Background(), nil, func(tx amm.Ledger) error {
			return tx.TransferToken(mint, reserve, bob, seeds, 499)
		})
		require.ErrorIs(t, err, amm.ErrUnauthorized)
	}

	r, err := l.TokenAccount(reserve)
	require.NoError(t, err)
	require.Equal(t, uint64(500), r.Amount)
	b, err := l.TokenAccount(bob)
	require.NoError(t, err)
	require.Zero(t, b.Amount)
}

func TestNativeTransfers(t *testing.T) {
	l := New(nil)
	alice, bob := key("alice"), key("bob")
	require.NoError(t, l.Airdrop(alice, 100))
	require.ErrorIs(t, l.Airdrop(alice, math.MaxUint64), amm.ErrArithmeticOverflow)

	err := l.Atomic(context.Background(), []solana.PublicKey{alice}, func(tx amm.Ledger) error {
		return tx.TransferNative(alice, bob, 40)
	})
	require.NoError(t, err)
	require.Equal(t, uint64(60), l.NativeBalance(alice))
	require.Equal(t, uint64(40), l.NativeBalance(bob))

	err = l.Atomic(context.Background(), nil, func(tx amm.Ledger) error {
		return tx.TransferNative(alice, bob, 1)
	})
	require.ErrorIs(t, err, amm.ErrUnauthorized)

	require.NoError(t, l.Airdrop(bob, math.MaxUint64-40))
	err = l.Atomic(context.Background(), []solana.PublicKey{alice}, func(tx amm.Ledger) error {
		return tx.TransferNative(alice, bob, 1)
	})
	require.ErrorIs(t, err, amm.ErrArithmeticOverflow)
	require.Equal(t, uint64(60), l.NativeBalance(alice))
}

func TestProvisioning(t *testing.T) {
	l, mint, alice, _ := setup(t)

	require.Error(t, l.CreateMint(mint, key("mint authority"), 0))
	_, err := l.CreateAssociatedTokenAccount(key("alice"), mint)
	require.Error(t, err)
	require.ErrorIs(t, l.CreateTokenAccount(key("account"), key("no mint"), key("alice")), amm.ErrAccountNotFound)
	require.ErrorIs(t, l.MintTo(mint, alice, key("alice"), 1), amm.ErrUnauthorized)

	m, err := l.Mint(mint)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), m.Supply)
	require.Equal(t, uint8(6), m.Decimals)

	expected, _, err := solana.FindAssociatedTokenAddress(key("alice"), mint)
	require.NoError(t, err)
	require.Equal(t, expected, alice)

	snap := l.Snapshot()
	require.Len(t, snap.Mints, 1)
	require.Len(t, snap.Accounts, 2)
	require.Less(t, snap.Accounts[0].Key.String(), snap.Accounts[1].Key.String())
}
