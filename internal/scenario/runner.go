package scenario

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"solarpool/internal/amm"
	"solarpool/internal/ledger"
	"solarpool/internal/model"
	"solarpool/internal/storage"
)

// RunConfig holds runtime settings for a scenario run.
type RunConfig struct {
	// Fee is used by create_pool steps that do not set their own.
	Fee       amm.FeeRate
	BatchSize int
}

// Report summarizes a finished run.
type Report struct {
	RunID    string
	Scenario string
	Steps    int
	Pools    map[string]solana.PublicKey
	Swaps    []amm.SwapResult
	Rejected int
}

// Runner plays scenarios against a program and its ledger.
type Runner struct {
	runID    string
	cfg      RunConfig
	program  *amm.Program
	ledger   *ledger.Ledger
	keys     *Keyring
	sinks    []storage.Storage
	logger   *zap.Logger
	pools    map[string]solana.PublicKey
	accounts map[string]solana.PublicKey
	pending  []model.SwapReceipt
}

// NewRunner builds a Runner with its dependencies. Receipts of committed
// swaps are written to every sink.
func NewRunner(cfg RunConfig, program *amm.Program, l *ledger.Ledger, keys *Keyring, logger *zap.Logger, sinks ...storage.Storage) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keys == nil {
		keys = NewKeyring()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Fee.Denominator == 0 {
		cfg.Fee = amm.ZeroFee
	}
	return &Runner{
		runID:    uuid.New().String(),
		cfg:      cfg,
		program:  program,
		ledger:   l,
		keys:     keys,
		sinks:    sinks,
		logger:   logger,
		pools:    make(map[string]solana.PublicKey),
		accounts: make(map[string]solana.PublicKey),
	}
}

// Run executes every step in order and stops at the first unexpected outcome.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	if r.program == nil {
		return nil, fmt.Errorf("program is nil")
	}
	if r.ledger == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	if sc == nil || len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario has no steps")
	}

	report := &Report{RunID: r.runID, Scenario: sc.Name, Pools: r.pools}
	r.logger.Info("scenario start", zap.String("run_id", r.runID), zap.String("name", sc.Name), zap.Int("steps", len(sc.Steps)))

	for i, step := range sc.Steps {
		select {
		case <-ctx.Done():
			return nil, r.abort(ctx.Err())
		default:
		}

		n := i + 1
		res, err := r.exec(ctx, n, step)
		if step.ExpectError != "" {
			if err == nil {
				return nil, r.abort(fmt.Errorf("step %d (%s): expected %s, got success", n, step.Op, step.ExpectError))
			}
			if code := amm.CodeOf(err); code != step.ExpectError {
				return nil, r.abort(fmt.Errorf("step %d (%s): expected %s, got %w", n, step.Op, step.ExpectError, err))
			}
			report.Rejected++
			r.logger.Info("step rejected as expected", zap.Int("step", n), zap.String("op", step.Op), zap.String("code", step.ExpectError))
			continue
		}
		if err != nil {
			return nil, r.abort(fmt.Errorf("step %d (%s): %w", n, step.Op, err))
		}

		if res != nil {
			report.Swaps = append(report.Swaps, *res)
			r.pending = append(r.pending, res.Receipt(r.runID, n, time.Now()))
			if len(r.pending) >= r.cfg.BatchSize {
				if err := r.flush(); err != nil {
					return nil, err
				}
			}
		}
		report.Steps++
	}

	if err := r.flush(); err != nil {
		return nil, err
	}

	r.logger.Info("scenario complete",
		zap.String("name", sc.Name),
		zap.Int("steps", report.Steps),
		zap.Int("swaps", len(report.Swaps)),
		zap.Int("rejected", report.Rejected),
	)
	return report, nil
}

// abort flushes receipts of swaps that already committed before returning err.
func (r *Runner) abort(err error) error {
	if ferr := r.flush(); ferr != nil {
		return errors.Join(err, ferr)
	}
	return err
}

func (r *Runner) flush() error {
	if len(r.pending) == 0 {
		return nil
	}
	for _, sink := range r.sinks {
		if err := sink.PutReceiptBatch(r.pending); err != nil {
			return fmt.Errorf("store receipts: %w", err)
		}
	}
	r.logger.Debug("receipts flushed", zap.Int("count", len(r.pending)))
	r.pending = r.pending[:0]
	return nil
}

func (r *Runner) exec(ctx context.Context, n int, step Step) (*amm.SwapResult, error) {
	switch step.Op {
	case OpAirdrop:
		to, err := r.resolve(step.To)
		if err != nil {
			return nil, err
		}
		return nil, r.ledger.Airdrop(to, step.Amount)

	case OpCreateMint:
		mint, err := r.resolve(step.Name)
		if err != nil {
			return nil, err
		}
		authority, err := r.resolve(step.Authority)
		if err != nil {
			return nil, err
		}
		return nil, r.ledger.CreateMint(mint, authority, step.Decimals)

	case OpCreateAccount:
		return nil, r.createAccount(step)

	case OpMintTo:
		keys, err := r.resolveAll(step.Mint, step.Account, step.Authority)
		if err != nil {
			return nil, err
		}
		return nil, r.ledger.MintTo(keys[0], keys[1], keys[2], step.Amount)

	case OpCreatePool:
		return nil, r.createPool(ctx, step)

	case OpSwap:
		return r.swap(ctx, step)

	case OpTransferNative:
		keys, err := r.resolveAll(step.From, step.To)
		if err != nil {
			return nil, err
		}
		return nil, r.program.TransferNative(ctx, keys[0], keys[1], step.Amount)

	case OpTransferToken:
		keys, err := r.resolveAll(step.Mint, step.From, step.To, step.Owner)
		if err != nil {
			return nil, err
		}
		return nil, r.program.TransferToken(ctx, keys[0], keys[1], keys[2], keys[3], step.Amount)

	case OpBalances:
		return nil, r.balances(n, step)

	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func (r *Runner) createAccount(step Step) error {
	keys, err := r.resolveAll(step.Owner, step.Mint)
	if err != nil {
		return err
	}
	owner, mint := keys[0], keys[1]

	var key solana.PublicKey
	if step.Account != "" {
		key = r.keys.PublicKey(step.Account)
		if err := r.ledger.CreateTokenAccount(key, mint, owner); err != nil {
			return err
		}
	} else {
		key, err = r.ledger.CreateAssociatedTokenAccount(owner, mint)
		if err != nil {
			return err
		}
	}
	if step.Name != "" {
		r.accounts[step.Name] = key
	}
	return nil
}

func (r *Runner) createPool(ctx context.Context, step Step) error {
	owner, err := r.resolve(step.Owner)
	if err != nil {
		return err
	}
	fee := r.cfg.Fee
	if step.Fee != "" {
		fee, err = amm.ParseFeeRate(step.Fee)
		if err != nil {
			return err
		}
	}
	_, bump, err := r.program.PoolAddress(owner)
	if err != nil {
		return err
	}
	keys, err := r.resolveAll(step.MintPool, step.MintA, step.MintB, step.ReserveA, step.ReserveB, step.FeeAccountA, step.FeeAccountB)
	if err != nil {
		return err
	}

	_, id, err := r.program.CreatePool(ctx, amm.CreatePoolRequest{
		Owner:       owner,
		Bump:        bump,
		FeeRate:     fee,
		MintPool:    keys[0],
		MintA:       keys[1],
		MintB:       keys[2],
		ReserveA:    keys[3],
		ReserveB:    keys[4],
		FeeAccountA: keys[5],
		FeeAccountB: keys[6],
	})
	if err != nil {
		return err
	}
	name := step.Name
	if name == "" {
		name = step.Owner
	}
	r.pools[name] = id
	return nil
}

func (r *Runner) swap(ctx context.Context, step Step) (*amm.SwapResult, error) {
	keys, err := r.resolveAll(step.Pool, step.Input, step.Source, step.Destination, step.FeeAccount)
	if err != nil {
		return nil, err
	}
	req := amm.SwapRequest{
		Pool:        keys[0],
		InputMint:   keys[1],
		Amount:      step.Amount,
		Source:      keys[2],
		Destination: keys[3],
		FeeAccount:  keys[4],
	}
	if err := req.Sign(r.keys.Get(step.User)); err != nil {
		return nil, err
	}
	return r.program.Swap(ctx, req)
}

func (r *Runner) balances(n int, step Step) error {
	refs := append([]string(nil), step.Accounts...)
	for ref := range step.Expect {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}

		key, err := r.resolve(ref)
		if err != nil {
			return err
		}
		amount, kind := r.balance(key)
		r.logger.Info("balance",
			zap.Int("step", n),
			zap.String("account", ref),
			zap.String("kind", kind),
			zap.Uint64("amount", amount))

		if want, ok := step.Expect[ref]; ok && want != amount {
			return fmt.Errorf("balance of %s: got %d, want %d", ref, amount, want)
		}
	}
	return nil
}

// balance reports a token balance, or the native balance for keys that are
// not token accounts.
func (r *Runner) balance(key solana.PublicKey) (uint64, string) {
	if acct, err := r.ledger.TokenAccount(key); err == nil {
		return acct.Amount, "token"
	}
	return r.ledger.NativeBalance(key), "native"
}

func (r *Runner) resolveAll(refs ...string) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, len(refs))
	for i, ref := range refs {
		key, err := r.resolve(ref)
		if err != nil {
			return nil, err
		}
		keys[i] = key
	}
	return keys, nil
}

// resolve turns a reference into a key. An empty reference is the zero key.
func (r *Runner) resolve(ref string) (solana.PublicKey, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return solana.PublicKey{}, nil

	case strings.HasPrefix(ref, "pool:"):
		name := strings.TrimPrefix(ref, "pool:")
		id, ok := r.pools[name]
		if !ok {
			return solana.PublicKey{}, fmt.Errorf("%w: no pool named %q", amm.ErrPoolNotFound, name)
		}
		return id, nil

	case strings.HasPrefix(ref, "authority:"):
		owner, err := r.resolve(strings.TrimPrefix(ref, "authority:"))
		if err != nil {
			return solana.PublicKey{}, err
		}
		addr, _, err := r.program.PoolAddress(owner)
		return addr, err

	case strings.HasPrefix(ref, "ata:"):
		parts := strings.SplitN(strings.TrimPrefix(ref, "ata:"), "/", 2)
		if len(parts) != 2 {
			return solana.PublicKey{}, fmt.Errorf("bad associated account reference %q", ref)
		}
		keys, err := r.resolveAll(parts[0], parts[1])
		if err != nil {
			return solana.PublicKey{}, err
		}
		addr, _, err := solana.FindAssociatedTokenAddress(keys[0], keys[1])
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("find associated account %q: %w", ref, err)
		}
		return addr, nil
	}

	if key, ok := r.accounts[ref]; ok {
		return key, nil
	}
	return r.keys.PublicKey(ref), nil
}
