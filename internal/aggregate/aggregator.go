package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solarpool/internal/model"
)

// StatsSink receives aggregated pool totals.
type StatsSink interface {
	UpsertPoolStats(ctx context.Context, stats []model.PoolStats) error
}

// Config controls aggregation behavior.
type Config struct {
	BatchSize int
}

// Aggregator folds swap receipts into per-pool totals.
type Aggregator struct {
	cfg          Config
	sink         StatsSink
	mints        MintSource
	logger       *zap.Logger
	decimals     *TokenDecimalsCache
	accumulators map[string]*Accumulator
}

// NewAggregator builds an aggregator. sink and mints may be nil: without
// mints amounts are reported in base units.
func NewAggregator(cfg Config, sink StatsSink, mints MintSource, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}

	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		mints:        mints,
		logger:       logger,
		decimals:     NewTokenDecimalsCache(),
		accumulators: make(map[string]*Accumulator),
	}
}

// Run aggregates a receipts JSONL file. Undecodable lines are logged and skipped.
func (a *Aggregator) Run(ctx context.Context, inputPath string) ([]model.PoolStats, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	receipts := make([]model.SwapReceipt, 0, 256)
	var total, failed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var receipt model.SwapReceipt
		if err := json.Unmarshal(line, &receipt); err != nil {
			failed++
			a.logger.Warn("decode receipt", zap.Int("line", total), zap.Error(err))
			continue
		}
		receipts = append(receipts, receipt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	stats, err := a.Aggregate(ctx, receipts)
	if err != nil {
		return nil, err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("failed", failed),
		zap.Int("pools", len(stats)),
	)
	return stats, nil
}

// Aggregate folds receipts into per-pool totals sorted by pool and, when a
// sink is configured, upserts them in batches.
func (a *Aggregator) Aggregate(ctx context.Context, receipts []model.SwapReceipt) ([]model.PoolStats, error) {
	for _, receipt := range receipts {
		acc := a.accumulators[receipt.Pool]
		if acc == nil {
			acc = NewAccumulator(receipt)
			a.accumulators[receipt.Pool] = acc
		}
		if err := acc.AddReceipt(receipt); err != nil {
			a.logger.Warn("aggregate receipt", zap.String("pool", receipt.Pool), zap.String("run_id", receipt.RunID), zap.Int("step", receipt.Step), zap.Error(err))
		}
	}

	stats := make([]model.PoolStats, 0, len(a.accumulators))
	for _, acc := range a.accumulators {
		if acc.SwapCount == 0 {
			continue
		}
		stats = append(stats, a.flushAccumulator(acc))
	}
	a.accumulators = make(map[string]*Accumulator)
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Pool < stats[j].Pool
	})

	if a.sink != nil {
		for start := 0; start < len(stats); start += a.cfg.BatchSize {
			end := start + a.cfg.BatchSize
			if end > len(stats) {
				end = len(stats)
			}
			if err := a.sink.UpsertPoolStats(ctx, stats[start:end]); err != nil {
				return nil, fmt.Errorf("upsert pool stats: %w", err)
			}
		}
	}
	return stats, nil
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) model.PoolStats {
	decimalsA := a.getTokenDecimals(acc.MintA)
	decimalsB := a.getTokenDecimals(acc.MintB)

	feeRateA, feeRateB := computeFeeRates(acc.FeeA, acc.FeeB, acc.ReserveA, acc.ReserveB)
	return model.PoolStats{
		Pool:      acc.Pool,
		MintA:     acc.MintA,
		MintB:     acc.MintB,
		SwapCount: acc.SwapCount,
		VolumeA:   formatTokenAmount(acc.VolumeA, decimalsA),
		VolumeB:   formatTokenAmount(acc.VolumeB, decimalsB),
		FeeA:      formatTokenAmount(acc.FeeA, decimalsA),
		FeeB:      formatTokenAmount(acc.FeeB, decimalsB),
		OutputA:   formatTokenAmount(acc.OutputA, decimalsA),
		OutputB:   formatTokenAmount(acc.OutputB, decimalsB),
		ReserveA:  formatTokenAmount(acc.ReserveA, decimalsA),
		ReserveB:  formatTokenAmount(acc.ReserveB, decimalsB),
		FeeRateA:  feeRateA,
		FeeRateB:  feeRateB,
		FirstStep: acc.FirstStep,
		LastStep:  acc.LastStep,
		LastRunID: acc.LastRunID,
		LastSeen:  acc.LastSeen(),
	}
}

// getTokenDecimals returns 0 when the mint cannot be resolved.
func (a *Aggregator) getTokenDecimals(mint string) uint8 {
	if a.mints == nil {
		return 0
	}
	key, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		a.logger.Warn("invalid mint", zap.String("mint", mint), zap.Error(err))
		return 0
	}
	if decimals, ok := a.decimals.Get(key); ok {
		return decimals
	}
	decimals, err := FetchTokenDecimals(a.mints, key)
	if err != nil {
		a.logger.Warn("mint decimals", zap.String("mint", mint), zap.Error(err))
		return 0
	}
	a.decimals.Set(key, decimals)
	return decimals
}
