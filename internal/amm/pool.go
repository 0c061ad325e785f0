package amm

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	PoolAccountSize = (8 + // discriminator
		32 + // owner
		1 + // authority_bump
		4 + // fee numerator
		4 + // fee denominator
		32 + // mint_pool
		32 + // mint_a
		32 + // mint_b
		32 + // reserve_a
		32 + // reserve_b
		32 + // fee_account_a
		32) // fee_account_b
)

// PoolAccountDiscriminator prefixes every encoded LiquidityPool.
var PoolAccountDiscriminator = accountDiscriminator("LiquidityPool")

func accountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:8]
}

// LiquidityPool binds an owner, a fee configuration and two reserves.
// Reserve balances are never cached here; they are read from the ledger.
type LiquidityPool struct {
	Owner         solana.PublicKey `json:"owner"`
	AuthorityBump uint8            `json:"authority_bump"`
	FeeRate       FeeRate          `json:"fee_rate"`
	MintPool      solana.PublicKey `json:"mint_pool"`
	MintA         solana.PublicKey `json:"mint_a"`
	MintB         solana.PublicKey `json:"mint_b"`
	ReserveA      solana.PublicKey `json:"reserve_a"`
	ReserveB      solana.PublicKey `json:"reserve_b"`
	FeeAccountA   solana.PublicKey `json:"fee_account_a"`
	FeeAccountB   solana.PublicKey `json:"fee_account_b"`
}

// Direction is the side of the pool a swap enters from.
type Direction uint8

const (
	AToB Direction = iota
	BToA
)

func (d Direction) String() string {
	if d == BToA {
		return "b_to_a"
	}
	return "a_to_b"
}

// Leg resolves the accounts involved in swapping one pool token for the other.
type Leg struct {
	Direction  Direction
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	ReserveIn  solana.PublicKey
	ReserveOut solana.PublicKey
	FeeAccount solana.PublicKey
}

// Leg returns the swap leg entered with inputMint.
func (p *LiquidityPool) Leg(inputMint solana.PublicKey) (Leg, error) {
	switch {
	case inputMint.Equals(p.MintA):
		return Leg{
			Direction:  AToB,
			InputMint:  p.MintA,
			OutputMint: p.MintB,
			ReserveIn:  p.ReserveA,
			ReserveOut: p.ReserveB,
			FeeAccount: p.FeeAccountA,
		}, nil
	case inputMint.Equals(p.MintB):
		return Leg{
			Direction:  BToA,
			InputMint:  p.MintB,
			OutputMint: p.MintA,
			ReserveIn:  p.ReserveB,
			ReserveOut: p.ReserveA,
			FeeAccount: p.FeeAccountB,
		}, nil
	default:
		return Leg{}, fmt.Errorf("%w: %s", ErrUnsupportedMint, inputMint)
	}
}

type namedKey struct {
	name string
	key  solana.PublicKey
}

// Validate checks the static shape of the record.
func (p *LiquidityPool) Validate() error {
	if err := p.FeeRate.Validate(); err != nil {
		return err
	}
	required := []namedKey{
		{"owner", p.Owner},
		{"mint_pool", p.MintPool},
		{"mint_a", p.MintA},
		{"mint_b", p.MintB},
		{"reserve_a", p.ReserveA},
		{"reserve_b", p.ReserveB},
	}
	if !p.FeeRate.IsZero() {
		required = append(required, namedKey{"fee_account_a", p.FeeAccountA}, namedKey{"fee_account_b", p.FeeAccountB})
	}
	for _, item := range required {
		if item.key.IsZero() {
			return fmt.Errorf("%w: %s is required", ErrInvalidAccount, item.name)
		}
	}
	if p.MintA.Equals(p.MintB) {
		return fmt.Errorf("%w: mint_a and mint_b are the same mint", ErrInvalidAccount)
	}
	if p.MintPool.Equals(p.MintA) || p.MintPool.Equals(p.MintB) {
		return fmt.Errorf("%w: mint_pool must differ from the reserve mints", ErrInvalidAccount)
	}
	if p.ReserveA.Equals(p.ReserveB) {
		return fmt.Errorf("%w: reserve_a and reserve_b are the same account", ErrInvalidAccount)
	}
	for _, fee := range []solana.PublicKey{p.FeeAccountA, p.FeeAccountB} {
		if !fee.IsZero() && (fee.Equals(p.ReserveA) || fee.Equals(p.ReserveB)) {
			return fmt.Errorf("%w: fee account %s is a reserve", ErrInvalidAccount, fee)
		}
	}
	return nil
}

// MarshalBinary encodes the pool into its fixed-size account layout.
func (p *LiquidityPool) MarshalBinary() ([]byte, error) {
	data := make([]byte, PoolAccountSize)
	var offset int

	putBytes(data, PoolAccountDiscriminator, &offset)
	putKey(data, p.Owner, &offset)
	putUint8(data, p.AuthorityBump, &offset)
	putUint32(data, p.FeeRate.Numerator, &offset)
	putUint32(data, p.FeeRate.Denominator, &offset)
	putKey(data, p.MintPool, &offset)
	putKey(data, p.MintA, &offset)
	putKey(data, p.MintB, &offset)
	putKey(data, p.ReserveA, &offset)
	putKey(data, p.ReserveB, &offset)
	putKey(data, p.FeeAccountA, &offset)
	putKey(data, p.FeeAccountB, &offset)

	return data, nil
}

// UnmarshalBinary decodes a pool from its fixed-size account layout.
func (p *LiquidityPool) UnmarshalBinary(data []byte) error {
	if len(data) < PoolAccountSize {
		return fmt.Errorf("pool account data: want %d bytes, got %d", PoolAccountSize, len(data))
	}
	if !bytes.Equal(data[:8], PoolAccountDiscriminator) {
		return fmt.Errorf("pool account data: bad discriminator %x", data[:8])
	}

	offset := 8
	getKey(data, &p.Owner, &offset)
	getUint8(data, &p.AuthorityBump, &offset)
	getUint32(data, &p.FeeRate.Numerator, &offset)
	getUint32(data, &p.FeeRate.Denominator, &offset)
	getKey(data, &p.MintPool, &offset)
	getKey(data, &p.MintA, &offset)
	getKey(data, &p.MintB, &offset)
	getKey(data, &p.ReserveA, &offset)
	getKey(data, &p.ReserveB, &offset)
	getKey(data, &p.FeeAccountA, &offset)
	getKey(data, &p.FeeAccountB, &offset)

	return nil
}

func putBytes(dst []byte, v []byte, offset *int) {
	copy(dst[*offset:], v)
	*offset += len(v)
}

func putKey(dst []byte, v solana.PublicKey, offset *int) {
	copy(dst[*offset:], v[:])
	*offset += solana.PublicKeyLength
}
func getKey(src []byte, dst *solana.PublicKey, offset *int) {
	*dst = solana.PublicKeyFromBytes(src[*offset : *offset+solana.PublicKeyLength])
	*offset += solana.PublicKeyLength
}

func putUint8(dst []byte, v uint8, offset *int) {
	dst[*offset] = v
	*offset += 1
}
func getUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[*offset]
	*offset += 1
}

func putUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst[*offset:], v)
	*offset += 4
}
func getUint32(src []byte, dst *uint32, offset *int) {
	*dst = binary.LittleEndian.Uint32(src[*offset:])
	*offset += 4
}
