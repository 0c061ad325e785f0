package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gagliardetto/solana-go"

	"solarpool/internal/amm"
	"solarpool/internal/model"
)

// txn is the view handed to an Atomic callback. Reads fall through to the
// committed state; writes stay in the overlay.
type txn struct {
	base     *Ledger
	signers  map[solana.PublicKey]struct{}
	native   map[solana.PublicKey]uint64
	accounts map[solana.PublicKey]model.TokenAccount
}

var _ amm.Ledger = (*txn)(nil)

func (t *txn) TokenAccount(key solana.PublicKey) (model.TokenAccount, error) {
	if acct, ok := t.accounts[key]; ok {
		return acct, nil
	}
	acct, ok := t.base.accounts[key]
	if !ok {
		return model.TokenAccount{}, fmt.Errorf("%w: token account %s", amm.ErrAccountNotFound, key)
	}
	return acct, nil
}

func (t *txn) NativeBalance(key solana.PublicKey) uint64 {
	if amount, ok := t.native[key]; ok {
		return amount
	}
	return t.base.native[key]
}

func (t *txn) TransferNative(from, to solana.PublicKey, amount uint64) error {
	if !t.signed(from) {
		return fmt.Errorf("%w: %s did not sign", amm.ErrUnauthorized, from)
	}
	balance := t.NativeBalance(from)
	if balance < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", amm.ErrInsufficientFunds, from, balance, amount)
	}
	if from.Equals(to) {
		return nil
	}
	credit, overflow := math.SafeAdd(t.NativeBalance(to), amount)
	if overflow {
		return fmt.Errorf("%w: credit %s", amm.ErrArithmeticOverflow, to)
	}
	t.native[from] = balance - amount
	t.native[to] = credit
	return nil
}

func (t *txn) TransferToken(mint, from, to solana.PublicKey, authority amm.Authority, amount uint64) error {
	src, err := t.TokenAccount(from)
	if err != nil {
		return err
	}
	dst, err := t.TokenAccount(to)
	if err != nil {
		return err
	}
	if !src.Mint.Equals(mint) {
		return fmt.Errorf("%w: %s holds %s, not %s", amm.ErrMintMismatch, from, src.Mint, mint)
	}
	if !dst.Mint.Equals(mint) {
		return fmt.Errorf("%w: %s holds %s, not %s", amm.ErrMintMismatch, to, dst.Mint, mint)
	}
	if err := t.authorize(src, authority); err != nil {
		return err
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", amm.ErrInsufficientFunds, from, src.Amount, amount)
	}
	if from.Equals(to) {
		return nil
	}
	credit, overflow := math.SafeAdd(dst.Amount, amount)
	if overflow {
		return fmt.Errorf("%w: credit %s", amm.ErrArithmeticOverflow, to)
	}
	src.Amount -= amount
	dst.Amount = credit
	t.accounts[from] = src
	t.accounts[to] = dst
	return nil
}

// authorize accepts the account owner either as a batch signer or as a
// program-derived authority issued by its program.
func (t *txn) authorize(src model.TokenAccount, authority amm.Authority) error {
	if !authority.Key.Equals(src.Owner) {
		return fmt.Errorf("%w: %s does not own %s", amm.ErrUnauthorized, authority.Key, src.Key)
	}
	if authority.IsDerived() {
		return authority.Verify()
	}
	if !t.signed(authority.Key) {
		return fmt.Errorf("%w: %s did not sign", amm.ErrUnauthorized, authority.Key)
	}
	return nil
}

func (t *txn) signed(key solana.PublicKey) bool {
	_, ok := t.signers[key]
	return ok
}
