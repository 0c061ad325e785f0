package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"filippo.io/edwards25519"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solarpool/internal/amm"
	"solarpool/internal/model"
)

// Ledger is an in-memory settlement runtime. Atomic batches are serialized
// and staged in an overlay that is only committed when the batch succeeds.
type Ledger struct {
	mu       sync.Mutex
	native   map[solana.PublicKey]uint64
	mints    map[solana.PublicKey]model.Mint
	accounts map[solana.PublicKey]model.TokenAccount
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		native:   make(map[solana.PublicKey]uint64),
		mints:    make(map[solana.PublicKey]model.Mint),
		accounts: make(map[solana.PublicKey]model.TokenAccount),
		logger:   logger,
	}
}

// Atomic implements amm.Settlement.
func (l *Ledger) Atomic(ctx context.Context, signers []solana.PublicKey, fn func(amm.Ledger) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &txn{
		base:     l,
		signers:  make(map[solana.PublicKey]struct{}, len(signers)),
		native:   make(map[solana.PublicKey]uint64),
		accounts: make(map[solana.PublicKey]model.TokenAccount),
	}
	for _, s := range signers {
		if !onCurve(s) {
			return fmt.Errorf("%w: %s has no private key and cannot sign", amm.ErrUnauthorized, s)
		}
		tx.signers[s] = struct{}{}
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for key, amount := range tx.native {
		l.native[key] = amount
	}
	for key, acct := range tx.accounts {
		l.accounts[key] = acct
	}
	if len(tx.native)+len(tx.accounts) > 0 {
		l.logger.Debug("batch committed",
			zap.Int("native_writes", len(tx.native)),
			zap.Int("token_writes", len(tx.accounts)))
	}
	return nil
}

// Airdrop credits native currency to an account.
func (l *Ledger) Airdrop(to solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, overflow := math.SafeAdd(l.native[to], amount)
	if overflow {
		return fmt.Errorf("%w: airdrop to %s", amm.ErrArithmeticOverflow, to)
	}
	l.native[to] = balance
	return nil
}

// CreateMint registers a mint with zero supply.
func (l *Ledger) CreateMint(key, authority solana.PublicKey, decimals uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if key.IsZero() {
		return fmt.Errorf("%w: mint key is required", amm.ErrInvalidAccount)
	}
	if _, ok := l.mints[key]; ok {
		return fmt.Errorf("%w: mint %s already exists", amm.ErrInvalidAccount, key)
	}
	l.mints[key] = model.Mint{Key: key, Authority: authority, Decimals: decimals}
	return nil
}

// CreateTokenAccount opens an empty account for mint held by owner.
func (l *Ledger) CreateTokenAccount(key, mint, owner solana.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.createTokenAccount(key, mint, owner)
}

// CreateAssociatedTokenAccount opens owner's associated account for mint.
func (l *Ledger) CreateAssociatedTokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	key, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("find associated account: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.createTokenAccount(key, mint, owner); err != nil {
		return solana.PublicKey{}, err
	}
	return key, nil
}

func (l *Ledger) createTokenAccount(key, mint, owner solana.PublicKey) error {
	if key.IsZero() || owner.IsZero() {
		return fmt.Errorf("%w: account key and owner are required", amm.ErrInvalidAccount)
	}
	if _, ok := l.mints[mint]; !ok {
		return fmt.Errorf("%w: mint %s", amm.ErrAccountNotFound, mint)
	}
	if _, ok := l.accounts[key]; ok {
		return fmt.Errorf("%w: token account %s already exists", amm.ErrInvalidAccount, key)
	}
	l.accounts[key] = model.TokenAccount{Key: key, Mint: mint, Owner: owner}
	return nil
}

// MintTo issues new supply into dest. authority must be the mint authority.
func (l *Ledger) MintTo(mint, dest, authority solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.mints[mint]
	if !ok {
		return fmt.Errorf("%w: mint %s", amm.ErrAccountNotFound, mint)
	}
	if !m.Authority.Equals(authority) {
		return fmt.Errorf("%w: %s is not the authority of mint %s", amm.ErrUnauthorized, authority, mint)
	}
	acct, ok := l.accounts[dest]
	if !ok {
		return fmt.Errorf("%w: token account %s", amm.ErrAccountNotFound, dest)
	}
	if !acct.Mint.Equals(mint) {
		return fmt.Errorf("%w: %s holds %s", amm.ErrMintMismatch, dest, acct.Mint)
	}

	supply, overflow := math.SafeAdd(m.Supply, amount)
	if overflow {
		return fmt.Errorf("%w: supply of %s", amm.ErrArithmeticOverflow, mint)
	}
	balance, overflow := math.SafeAdd(acct.Amount, amount)
	if overflow {
		return fmt.Errorf("%w: balance of %s", amm.ErrArithmeticOverflow, dest)
	}
	m.Supply = supply
	acct.Amount = balance
	l.mints[mint] = m
	l.accounts[dest] = acct
	return nil
}

// TokenAccount returns a committed token account.
func (l *Ledger) TokenAccount(key solana.PublicKey) (model.TokenAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[key]
	if !ok {
		return model.TokenAccount{}, fmt.Errorf("%w: token account %s", amm.ErrAccountNotFound, key)
	}
	return acct, nil
}

// Mint returns a registered mint.
func (l *Ledger) Mint(key solana.PublicKey) (model.Mint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.mints[key]
	if !ok {
		return model.Mint{}, fmt.Errorf("%w: mint %s", amm.ErrAccountNotFound, key)
	}
	return m, nil
}

func (l *Ledger) NativeBalance(key solana.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.native[key]
}

// Snapshot copies every committed balance, sorted by key.
func (l *Ledger) Snapshot() model.LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := model.LedgerSnapshot{
		Native:   make(map[string]uint64, len(l.native)),
		Mints:    make([]model.Mint, 0, len(l.mints)),
		Accounts: make([]model.TokenAccount, 0, len(l.accounts)),
		TakenAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	for key, amount := range l.native {
		snap.Native[key.String()] = amount
	}
	for _, m := range l.mints {
		snap.Mints = append(snap.Mints, m)
	}
	for _, acct := range l.accounts {
		snap.Accounts = append(snap.Accounts, acct)
	}
	sort.Slice(snap.Mints, func(i, j int) bool {
		return snap.Mints[i].Key.String() < snap.Mints[j].Key.String()
	})
	sort.Slice(snap.Accounts, func(i, j int) bool {
		return snap.Accounts[i].Key.String() < snap.Accounts[j].Key.String()
	})
	return snap
}

// onCurve reports whether key is a valid ed25519 point. Program-derived
// addresses are not, so they can only act through seeds.
func onCurve(key solana.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(key[:])
	return err == nil
}
