package model

import (
	"encoding/json"
)

// SwapReceipt is the normalized record of one committed swap.
type SwapReceipt struct {
	Pool             string `json:"pool"`
	User             string `json:"user"`
	Direction        string `json:"direction"`
	InputMint        string `json:"input_mint"`
	OutputMint       string `json:"output_mint"`
	AmountIn         uint64 `json:"amount_in"`
	Fee              uint64 `json:"fee"`
	NetInput         uint64 `json:"net_input"`
	AmountOut        uint64 `json:"amount_out"`
	ReserveInBefore  uint64 `json:"reserve_in_before"`
	ReserveOutBefore uint64 `json:"reserve_out_before"`
	ReserveInAfter   uint64 `json:"reserve_in_after"`
	ReserveOutAfter  uint64 `json:"reserve_out_after"`
	RunID            string `json:"run_id"`
	Step             int    `json:"step"`
	ExecutedAt       string `json:"executed_at"`
}

// MarshalJSON ensures SwapReceipt is encoded with stable field names.
func (r SwapReceipt) MarshalJSON() ([]byte, error) {
	type Alias SwapReceipt
	return json.Marshal(Alias(r))
}

// UnmarshalJSON decodes a SwapReceipt from JSON.
func (r *SwapReceipt) UnmarshalJSON(data []byte) error {
	type Alias SwapReceipt
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = SwapReceipt(a)
	return nil
}
