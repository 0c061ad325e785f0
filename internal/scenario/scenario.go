package scenario

import (
	"encoding/json"
	"fmt"
	"os"
)

// Step operations.
const (
	OpAirdrop        = "airdrop"
	OpCreateMint     = "create_mint"
	OpCreateAccount  = "create_account"
	OpMintTo         = "mint_to"
	OpCreatePool     = "create_pool"
	OpSwap           = "swap"
	OpTransferNative = "transfer_native"
	OpTransferToken  = "transfer_token"
	OpBalances       = "balances"
)

// Scenario is an ordered list of steps played against one ledger.
//
// Keys are referenced by name. A plain name resolves to a keyring key;
// "authority:<owner>" to the pool authority of owner; "pool:<name>" to a
// created pool; "ata:<owner>/<mint>" to the associated token account.
type Scenario struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Step is one operation. Only the fields used by Op are read.
type Step struct {
	Op   string `json:"op"`
	Name string `json:"name,omitempty"`

	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Mint      string `json:"mint,omitempty"`
	Account   string `json:"account,omitempty"`
	Authority string `json:"authority,omitempty"`
	Amount    uint64 `json:"amount,omitempty"`
	Decimals  uint8  `json:"decimals,omitempty"`

	Fee         string `json:"fee,omitempty"`
	MintPool    string `json:"mint_pool,omitempty"`
	MintA       string `json:"mint_a,omitempty"`
	MintB       string `json:"mint_b,omitempty"`
	ReserveA    string `json:"reserve_a,omitempty"`
	ReserveB    string `json:"reserve_b,omitempty"`
	FeeAccountA string `json:"fee_account_a,omitempty"`
	FeeAccountB string `json:"fee_account_b,omitempty"`

	Pool        string `json:"pool,omitempty"`
	User        string `json:"user,omitempty"`
	Input       string `json:"input,omitempty"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
	FeeAccount  string `json:"fee_account,omitempty"`

	Accounts []string          `json:"accounts,omitempty"`
	Expect   map[string]uint64 `json:"expect,omitempty"`

	// ExpectError is the error code the step must fail with.
	ExpectError string `json:"expect_error,omitempty"`
}

// Load reads a scenario from a JSON file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	return &sc, nil
}
