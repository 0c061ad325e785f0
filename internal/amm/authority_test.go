package amm

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func testKey(name string) solana.PublicKey {
	seed := sha256.Sum256([]byte(name))
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:])).PublicKey()
}

func TestDeriveAuthorityIsDeterministic(t *testing.T) {
	owner := testKey("owner")

	addr, bump, err := DeriveAuthority(DefaultProgramID, owner)
	require.NoError(t, err)
	again, bumpAgain, err := DeriveAuthority(DefaultProgramID, owner)
	require.NoError(t, err)
	require.Equal(t, addr, again)
	require.Equal(t, bump, bumpAgain)

	rederived, err := AuthorityAddress(DefaultProgramID, owner, bump)
	require.NoError(t, err)
	require.Equal(t, addr, rederived)

	other, _, err := DeriveAuthority(DefaultProgramID, testKey("someone else"))
	require.NoError(t, err)
	require.NotEqual(t, addr, other)

	elsewhere, _, err := DeriveAuthority(solana.TokenProgramID, owner)
	require.NoError(t, err)
	require.NotEqual(t, addr, elsewhere)
}

func TestAuthorityVerify(t *testing.T) {
	owner := testKey("owner")
	addr, bump, err := DeriveAuthority(DefaultProgramID, owner)
	require.NoError(t, err)
	program := NewProgram(DefaultProgramID, nil, nil, nil)

	auth := program.signFor(addr, AuthoritySeeds(owner, bump))
	require.True(t, auth.IsDerived())
	require.NoError(t, auth.Verify())

	forged := program.signFor(testKey("victim"), AuthoritySeeds(owner, bump))
	require.ErrorIs(t, forged.Verify(), ErrUnauthorized)

	wrongBump := program.signFor(addr, AuthoritySeeds(owner, bump-1))
	require.ErrorIs(t, wrongBump.Verify(), ErrUnauthorized)

	other := NewProgram(solana.TokenProgramID, nil, nil, nil)
	wrongProgram := other.signFor(addr, AuthoritySeeds(owner, bump))
	require.ErrorIs(t, wrongProgram.Verify(), ErrUnauthorized)

	signer := SignerAuthority(owner)
	require.False(t, signer.IsDerived())
	require.NoError(t, signer.Verify())
}

func TestAuthorityFromPublicSeedsIsRejected(t *testing.T) {
	owner := testKey("owner")
	addr, bump, err := DeriveAuthority(DefaultProgramID, owner)
	require.NoError(t, err)

	self := Authority{Key: addr, ProgramID: DefaultProgramID, Seeds: AuthoritySeeds(owner, bump)}
	require.ErrorIs(t, self.Verify(), ErrUnauthorized)

	relabeled := NewProgram(solana.TokenProgramID, nil, nil, nil).signFor(addr, AuthoritySeeds(owner, bump))
	relabeled.ProgramID = DefaultProgramID
	require.ErrorIs(t, relabeled.Verify(), ErrUnauthorized)
}

func TestAuthoritySeedsLayout(t *testing.T) {
	owner := testKey("owner")
	seeds := AuthoritySeeds(owner, 254)
	require.Len(t, seeds, 3)
	require.Equal(t, []byte("solarpool"), seeds[0])
	require.Equal(t, owner.Bytes(), seeds[1])
	require.Equal(t, []byte{254}, seeds[2])
}
