package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "solarpool",
		Short:        "Constant-product pool program and simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Play a scenario against an in-memory ledger",
		RunE:  runScenario,
	}

	runCmd.Flags().String("program-id", "", "program id (base58), defaults to the built-in id")
	runCmd.Flags().String("fee", "1/100", "fee rate for pools that do not set one (n/d or decimal)")
	runCmd.Flags().String("scenario", "", "scenario JSON file, empty runs the built-in harness")
	runCmd.Flags().String("receipts", "./data/receipts.jsonl", "swap receipts JSONL path, empty disables")
	runCmd.Flags().String("snapshot", "", "write the final ledger snapshot to this path")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for pools and receipts")
	runCmd.Flags().Int("max-retries", 5, "maximum connection retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive pool authorities and canonical bumps",
		RunE:  runDerive,
	}

	deriveCmd.Flags().String("program-id", "", "program id (base58), defaults to the built-in id")
	deriveCmd.Flags().StringSlice("owner", nil, "pool owners (comma-separated base58)")
	deriveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(deriveCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against given reserves",
		RunE:  runQuote,
	}

	quoteCmd.Flags().Uint64("reserve-in", 0, "input-side reserve balance")
	quoteCmd.Flags().Uint64("reserve-out", 0, "output-side reserve balance")
	quoteCmd.Flags().Uint64("amount", 0, "input amount in base units")
	quoteCmd.Flags().String("fee", "1/100", "fee rate (n/d or decimal)")
	quoteCmd.Flags().Uint("decimals", 0, "token decimals for display amounts")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate swap receipts into per-pool totals",
		RunE:  runStats,
	}

	statsCmd.Flags().String("in", "./data/receipts.jsonl", "input receipts JSONL")
	statsCmd.Flags().String("pg-dsn", "", "Postgres DSN, stats are upserted when set")
	statsCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	statsCmd.Flags().Int("max-retries", 5, "maximum connection retry attempts")
	statsCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	statsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(statsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
