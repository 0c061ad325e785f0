package model

// LedgerSnapshot is a point-in-time copy of ledger balances.
type LedgerSnapshot struct {
	Native   map[string]uint64 `json:"native"`
	Mints    []Mint            `json:"mints"`
	Accounts []TokenAccount    `json:"accounts"`
	TakenAt  string            `json:"taken_at"`
}
