package scenario

import (
	"solarpool/internal/amm"
)

const (
	defaultReserve  = 100_000
	defaultTrade    = 800
	defaultAirdrop  = 5_000_000_000
	defaultTraderA  = 10_000
	defaultPoolName = "main"
)

// Default is the built-in harness: fund the actors, create three mints,
// seed the owner's authority with both reserves, create the pool, and
// trade against it in both directions.
func Default(fee amm.FeeRate) *Scenario {
	createPool := Step{
		Op:          OpCreatePool,
		Name:        defaultPoolName,
		Owner:       "amm_owner",
		Fee:         fee.String(),
		MintPool:    "mint_pool",
		MintA:       "mint_a",
		MintB:       "mint_b",
		ReserveA:    "reserve_a",
		ReserveB:    "reserve_b",
		FeeAccountA: "fee_a",
		FeeAccountB: "fee_b",
	}
	duplicate := createPool
	duplicate.ExpectError = amm.ErrDuplicatePool.Code

	steps := []Step{
		{Op: OpAirdrop, To: "payer", Amount: defaultAirdrop},
		{Op: OpAirdrop, To: "amm_owner", Amount: defaultAirdrop},
		{Op: OpAirdrop, To: "trader", Amount: defaultAirdrop},

		{Op: OpCreateMint, Name: "mint_pool", Authority: "token_owner"},
		{Op: OpCreateAccount, Name: "pool_lp", Owner: "authority:amm_owner", Mint: "mint_pool"},
		{Op: OpCreateMint, Name: "mint_a", Authority: "token_owner"},
		{Op: OpCreateAccount, Name: "reserve_a", Owner: "authority:amm_owner", Mint: "mint_a"},
		{Op: OpMintTo, Mint: "mint_a", Account: "reserve_a", Authority: "token_owner", Amount: defaultReserve},
		{Op: OpCreateMint, Name: "mint_b", Authority: "token_owner"},
		{Op: OpCreateAccount, Name: "reserve_b", Owner: "authority:amm_owner", Mint: "mint_b"},
		{Op: OpMintTo, Mint: "mint_b", Account: "reserve_b", Authority: "token_owner", Amount: defaultReserve},

		{Op: OpCreateAccount, Name: "fee_a", Owner: "fee_collector", Mint: "mint_a"},
		{Op: OpCreateAccount, Name: "fee_b", Owner: "fee_collector", Mint: "mint_b"},
		{Op: OpCreateAccount, Name: "trader_a", Owner: "trader", Mint: "mint_a"},
		{Op: OpCreateAccount, Name: "trader_b", Owner: "trader", Mint: "mint_b"},
		{Op: OpMintTo, Mint: "mint_a", Account: "trader_a", Authority: "token_owner", Amount: defaultTraderA},

		createPool,
		{Op: OpBalances, Expect: map[string]uint64{"reserve_a": defaultReserve, "reserve_b": defaultReserve}},
	}

	swap := Step{
		Op:          OpSwap,
		Pool:        "pool:" + defaultPoolName,
		User:        "trader",
		Input:       "mint_a",
		Amount:      defaultTrade,
		Source:      "trader_a",
		Destination: "trader_b",
		FeeAccount:  "fee_a",
	}
	steps = append(steps, swap)

	q, err := amm.QuoteSwap(defaultReserve, defaultReserve, defaultTrade, fee)
	if err == nil {
		steps = append(steps, Step{Op: OpBalances, Expect: map[string]uint64{
			"reserve_a": q.ReserveInAfter,
			"reserve_b": q.ReserveOutAfter,
			"fee_a":     q.Fee,
			"trader_a":  defaultTraderA - defaultTrade,
			"trader_b":  q.AmountOut,
		}})
	}

	zero := swap
	zero.Amount = 0
	zero.ExpectError = amm.ErrInsufficientInput.Code
	steps = append(steps, zero, duplicate)

	if err == nil {
		steps = append(steps, Step{
			Op:          OpSwap,
			Pool:        "pool:" + defaultPoolName,
			User:        "trader",
			Input:       "mint_b",
			Amount:      q.AmountOut,
			Source:      "trader_b",
			Destination: "trader_a",
			FeeAccount:  "fee_b",
		})
	}

	steps = append(steps,
		Step{Op: OpTransferNative, From: "trader", To: "payer", Amount: 1_000_000},
		Step{Op: OpCreateAccount, Name: "payer_a", Owner: "payer", Mint: "mint_a"},
		Step{Op: OpTransferToken, Mint: "mint_a", From: "trader_a", To: "payer_a", Owner: "trader", Amount: 100},
		Step{Op: OpBalances, Accounts: []string{
			"payer", "trader", "payer_a",
			"trader_a", "trader_b",
			"reserve_a", "reserve_b",
			"fee_a", "fee_b",
		}},
	)

	return &Scenario{Name: "harness", Steps: steps}
}
