package model

import "github.com/gagliardetto/solana-go"

// Mint captures token mint metadata.
type Mint struct {
	Key       solana.PublicKey `json:"key"`
	Authority solana.PublicKey `json:"authority"`
	Decimals  uint8            `json:"decimals"`
	Supply    uint64           `json:"supply"`
}

// TokenAccount is a balance of one mint held for an owner.
type TokenAccount struct {
	Key    solana.PublicKey `json:"key"`
	Mint   solana.PublicKey `json:"mint"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}
