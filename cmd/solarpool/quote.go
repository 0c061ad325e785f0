package main

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"solarpool/internal/amm"
	"solarpool/internal/config"
)

type quoteOutput struct {
	amm.Quote
	FeeRate   string `json:"fee_rate"`
	UIIn      string `json:"ui_amount_in"`
	UIOut     string `json:"ui_amount_out"`
	UIFee     string `json:"ui_fee"`
	SpotPrice string `json:"spot_price"`
	ExecPrice string `json:"execution_price"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	fee, err := amm.ParseFeeRate(cfg.Fee)
	if err != nil {
		return fmt.Errorf("parse fee: %w", err)
	}
	q, err := amm.QuoteSwap(cfg.ReserveIn, cfg.ReserveOut, cfg.Amount, fee)
	if err != nil {
		return err
	}

	exp := -int32(cfg.Decimals)
	spot := baseUnits(cfg.ReserveOut, 0).Div(baseUnits(cfg.ReserveIn, 0))
	exec := baseUnits(q.AmountOut, 0).Div(baseUnits(q.AmountIn, 0))

	return writeJSON(cmd.OutOrStdout(), quoteOutput{
		Quote:     q,
		FeeRate:   fee.String(),
		UIIn:      baseUnits(q.AmountIn, exp).String(),
		UIOut:     baseUnits(q.AmountOut, exp).String(),
		UIFee:     baseUnits(q.Fee, exp).String(),
		SpotPrice: spot.StringFixed(8),
		ExecPrice: exec.StringFixed(8),
	})
}

func baseUnits(v uint64, exp int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), exp)
}
