package config

import (
	"time"

	"github.com/spf13/pflag"
)

// StatsConfig holds configuration for receipt aggregation.
type StatsConfig struct {
	Input        string
	PGDSN        string
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadStats merges config file, environment variables, and flags into StatsConfig.
func LoadStats(cfgFile string, flags *pflag.FlagSet) (StatsConfig, error) {
	v := newViper()
	v.SetDefault("in", "./data/receipts.jsonl")
	v.SetDefault("batch-size", 1000)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)

	if err := readConfig(v, cfgFile, flags); err != nil {
		return StatsConfig{}, err
	}

	return StatsConfig{
		Input:        v.GetString("in"),
		PGDSN:        v.GetString("pg-dsn"),
		BatchSize:    v.GetInt("batch-size"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

// QuoteConfig holds configuration for offline quotes.
type QuoteConfig struct {
	ReserveIn  uint64
	ReserveOut uint64
	Amount     uint64
	Fee        string
	Decimals   uint8
	LogLevel   string
}

func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v := newViper()
	v.SetDefault("fee", "1/100")

	if err := readConfig(v, cfgFile, flags); err != nil {
		return QuoteConfig{}, err
	}

	return QuoteConfig{
		ReserveIn:  v.GetUint64("reserve-in"),
		ReserveOut: v.GetUint64("reserve-out"),
		Amount:     v.GetUint64("amount"),
		Fee:        v.GetString("fee"),
		Decimals:   uint8(v.GetUint("decimals")),
		LogLevel:   v.GetString("log-level"),
	}, nil
}
