package amm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// AuthoritySeed is the namespace tag every pool authority is derived under.
const AuthoritySeed = "solarpool"

// DefaultProgramID is the program the pool authorities are derived for.
var DefaultProgramID = solana.MustPublicKeyFromBase58("GUkh3LZRi1YrxCmJSrhRkj8rGKDxMKq1xJLWeMziHirj")

// AuthoritySeeds returns the signer seeds for (tag, owner, bump).
func AuthoritySeeds(owner solana.PublicKey, bump uint8) [][]byte {
	return [][]byte{[]byte(AuthoritySeed), owner.Bytes(), {bump}}
}

// DeriveAuthority searches bumps from 255 down and returns the first
// address that is off the ed25519 curve, together with its bump.
func DeriveAuthority(programID, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(AuthoritySeed), owner.Bytes()}, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: derive authority for %s: %v", ErrInvalidAuthority, owner, err)
	}
	return addr, bump, nil
}

// AuthorityAddress re-derives the authority for a stored bump. Addresses
// that land on the curve are rejected, since a private key could exist.
func AuthorityAddress(programID, owner solana.PublicKey, bump uint8) (solana.PublicKey, error) {
	addr, err := solana.CreateProgramAddress(AuthoritySeeds(owner, bump), programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: bump %d for %s: %v", ErrInvalidAuthority, bump, owner, err)
	}
	return addr, nil
}

// Authority is the identity presented when moving tokens. A signer
// authority has no seeds; a derived one carries the seeds that re-create
// Key under ProgramID. Derived authorities are only honored when minted by
// the Program that owns ProgramID, so public seeds alone cannot move a
// reserve.
type Authority struct {
	Key       solana.PublicKey
	ProgramID solana.PublicKey
	Seeds     [][]byte

	issuer *Program
}

func SignerAuthority(key solana.PublicKey) Authority {
	return Authority{Key: key}
}

// signFor returns the derived authority p presents for its own seeds.
func (p *Program) signFor(key solana.PublicKey, seeds [][]byte) Authority {
	return Authority{Key: key, ProgramID: p.id, Seeds: seeds, issuer: p}
}

func (a Authority) IsDerived() bool {
	return len(a.Seeds) > 0
}

// Verify checks that a derived authority was issued by its program and that
// its seeds re-create its key.
func (a Authority) Verify() error {
	if !a.IsDerived() {
		return nil
	}
	if a.issuer == nil || !a.issuer.id.Equals(a.ProgramID) {
		return fmt.Errorf("%w: %s was not issued by program %s", ErrUnauthorized, a.Key, a.ProgramID)
	}
	addr, err := solana.CreateProgramAddress(a.Seeds, a.ProgramID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !addr.Equals(a.Key) {
		return fmt.Errorf("%w: seeds derive %s, not %s", ErrUnauthorized, addr, a.Key)
	}
	return nil
}
