package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"solarpool/internal/amm"
	"solarpool/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	pool_id        TEXT PRIMARY KEY,
	owner          TEXT NOT NULL UNIQUE,
	authority_bump SMALLINT NOT NULL,
	fee_numerator  BIGINT NOT NULL,
	fee_denominator BIGINT NOT NULL,
	mint_a         TEXT NOT NULL,
	mint_b         TEXT NOT NULL,
	data           BYTEA NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS swap_receipts (
	run_id             TEXT NOT NULL,
	pool_id            TEXT NOT NULL,
	step               INTEGER NOT NULL,
	user_key           TEXT NOT NULL,
	direction          TEXT NOT NULL,
	input_mint         TEXT NOT NULL,
	output_mint        TEXT NOT NULL,
	amount_in          NUMERIC NOT NULL,
	fee                NUMERIC NOT NULL,
	net_input          NUMERIC NOT NULL,
	amount_out         NUMERIC NOT NULL,
	reserve_in_after   NUMERIC NOT NULL,
	reserve_out_after  NUMERIC NOT NULL,
	executed_at        TEXT NOT NULL,
	PRIMARY KEY (run_id, pool_id, step)
);
CREATE TABLE IF NOT EXISTS pool_stats (
	pool_id    TEXT PRIMARY KEY,
	mint_a     TEXT NOT NULL,
	mint_b     TEXT NOT NULL,
	swap_count BIGINT NOT NULL,
	volume_a   NUMERIC NOT NULL,
	volume_b   NUMERIC NOT NULL,
	fee_a      NUMERIC NOT NULL,
	fee_b      NUMERIC NOT NULL,
	output_a   NUMERIC NOT NULL,
	output_b   NUMERIC NOT NULL,
	reserve_a  NUMERIC NOT NULL,
	reserve_b  NUMERIC NOT NULL,
	fee_rate_a NUMERIC,
	fee_rate_b NUMERIC,
	first_step INTEGER NOT NULL,
	last_step  INTEGER NOT NULL,
	last_run_id TEXT NOT NULL,
	last_seen  TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for pools, receipts and stats.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects and pings, retrying with exponential backoff.
func NewStore(ctx context.Context, dsn string, maxRetries int, backoff time.Duration) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	err = withRetry(ctx, maxRetries, backoff, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

var _ amm.PoolStore = (*Store)(nil)

// InsertPool stores a new pool. Conflicts on id or owner are duplicates.
func (s *Store) InsertPool(ctx context.Context, id solana.PublicKey, pool *amm.LiquidityPool) error {
	data, err := pool.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode pool: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO pools (
			pool_id, owner, authority_bump, fee_numerator, fee_denominator, mint_a, mint_b, data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT DO NOTHING
	`,
		id.String(),
		pool.Owner.String(),
		int16(pool.AuthorityBump),
		int64(pool.FeeRate.Numerator),
		int64(pool.FeeRate.Denominator),
		pool.MintA.String(),
		pool.MintB.String(),
		data,
	)
	if err != nil {
		return fmt.Errorf("insert pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", amm.ErrDuplicatePool, id)
	}
	return nil
}

func (s *Store) GetPool(ctx context.Context, id solana.PublicKey) (*amm.LiquidityPool, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM pools WHERE pool_id=$1`, id.String())
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", amm.ErrPoolNotFound, id)
		}
		return nil, fmt.Errorf("load pool: %w", err)
	}
	var pool amm.LiquidityPool
	if err := pool.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode pool %s: %w", id, err)
	}
	return &pool, nil
}

// InsertReceipts appends swap receipts; replays of the same run step are ignored.
func (s *Store) InsertReceipts(ctx context.Context, receipts []model.SwapReceipt) error {
	if len(receipts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range receipts {
		batch.Queue(`
			INSERT INTO swap_receipts (
				run_id, pool_id, step, user_key, direction, input_mint, output_mint,
				amount_in, fee, net_input, amount_out, reserve_in_after, reserve_out_after, executed_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (run_id, pool_id, step) DO NOTHING
		`,
			r.RunID,
			r.Pool,
			r.Step,
			r.User,
			r.Direction,
			r.InputMint,
			r.OutputMint,
			fmt.Sprint(r.AmountIn),
			fmt.Sprint(r.Fee),
			fmt.Sprint(r.NetInput),
			fmt.Sprint(r.AmountOut),
			fmt.Sprint(r.ReserveInAfter),
			fmt.Sprint(r.ReserveOutAfter),
			r.ExecutedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range receipts {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPoolStats inserts or updates aggregated pool totals.
func (s *Store) UpsertPoolStats(ctx context.Context, stats []model.PoolStats) error {
	if len(stats) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, st := range stats {
		batch.Queue(`
			INSERT INTO pool_stats (
				pool_id, mint_a, mint_b, swap_count, volume_a, volume_b, fee_a, fee_b,
				output_a, output_b, reserve_a, reserve_b, fee_rate_a, fee_rate_b, first_step, last_step,
				last_run_id, last_seen, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now())
			ON CONFLICT (pool_id)
			DO UPDATE SET
				swap_count = EXCLUDED.swap_count,
				volume_a = EXCLUDED.volume_a,
				volume_b = EXCLUDED.volume_b,
				fee_a = EXCLUDED.fee_a,
				fee_b = EXCLUDED.fee_b,
				output_a = EXCLUDED.output_a,
				output_b = EXCLUDED.output_b,
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				fee_rate_a = EXCLUDED.fee_rate_a,
				fee_rate_b = EXCLUDED.fee_rate_b,
				first_step = EXCLUDED.first_step,
				last_step = EXCLUDED.last_step,
				last_run_id = EXCLUDED.last_run_id,
				last_seen = EXCLUDED.last_seen,
				updated_at = now()
		`,
			st.Pool,
			st.MintA,
			st.MintB,
			int64(st.SwapCount),
			st.VolumeA,
			st.VolumeB,
			st.FeeA,
			st.FeeB,
			st.OutputA,
			st.OutputB,
			st.ReserveA,
			st.ReserveB,
			st.FeeRateA,
			st.FeeRateB,
			st.FirstStep,
			st.LastStep,
			st.LastRunID,
			st.LastSeen,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range stats {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
