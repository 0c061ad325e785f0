package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solarpool/internal/amm"
	"solarpool/internal/config"
	"solarpool/internal/ledger"
	"solarpool/internal/model"
	"solarpool/internal/scenario"
	"solarpool/internal/storage"
	"solarpool/internal/storage/postgres"
)

func runScenario(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	programID, err := config.ParseProgramID(cfg.ProgramID, amm.DefaultProgramID)
	if err != nil {
		return err
	}
	fee, err := amm.ParseFeeRate(cfg.Fee)
	if err != nil {
		return fmt.Errorf("parse fee: %w", err)
	}

	sc := scenario.Default(fee)
	if cfg.Scenario != "" {
		sc, err = scenario.Load(cfg.Scenario)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pools amm.PoolStore = storage.NewMemoryPoolStore()
	var sinks []storage.Storage
	if cfg.Receipts != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Receipts))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.MaxRetries, cfg.RetryBackoff)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		pools = store
		sinks = append(sinks, &pgReceipts{ctx: ctx, store: store})
	}

	l := ledger.New(logger)
	program := amm.NewProgram(programID, pools, l, logger)
	runner := scenario.NewRunner(scenario.RunConfig{Fee: fee}, program, l, scenario.NewKeyring(), logger, sinks...)

	logger.Info("run start",
		zap.String("program_id", programID.String()),
		zap.String("fee", fee.String()),
		zap.String("scenario", sc.Name),
		zap.String("receipts", cfg.Receipts),
		zap.Bool("postgres", cfg.PGDSN != ""),
	)

	report, err := runner.Run(ctx, sc)
	if err != nil {
		return err
	}
	logger.Info("run complete", zap.String("run_id", report.RunID), zap.Int("swaps", len(report.Swaps)))

	if cfg.Snapshot != "" {
		if err := scenario.NewSnapshotStore(cfg.Snapshot).Save(l.Snapshot()); err != nil {
			return err
		}
		logger.Info("snapshot written", zap.String("path", cfg.Snapshot))
	}

	for name, id := range report.Pools {
		a, b, err := program.Reserves(ctx, id)
		if err != nil {
			return err
		}
		logger.Info("pool reserves",
			zap.String("name", name),
			zap.String("pool", id.String()),
			zap.Uint64("reserve_a", a),
			zap.Uint64("reserve_b", b))
	}
	return nil
}

// pgReceipts adapts the Postgres store to the receipt sink interface.
type pgReceipts struct {
	ctx   context.Context
	store *postgres.Store
}

func (p *pgReceipts) PutReceiptBatch(receipts []model.SwapReceipt) error {
	return p.store.InsertReceipts(p.ctx, receipts)
}
