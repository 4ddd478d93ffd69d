package vault

import (
	"testing"

	"diamondhand/pda"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgram = pda.MustParseAddress("5Zm2UQMSM63NLJGkQYP6xqqGm2EPzYyVNtyPpJnJb5iD")

func TestDeriveAddressDeterministic(t *testing.T) {
	for _, asset := range []AssetClass{Native(), FungibleToken(testMint)} {
		a1, b1, err := DeriveAddress(testOwner, asset, testProgram)
		require.NoError(t, err)
		a2, b2, err := DeriveAddress(testOwner, asset, testProgram)
		require.NoError(t, err)
		assert.Equal(t, a1, a2)
		assert.Equal(t, b1, b2)
		assert.False(t, pda.IsOnCurve(a1[:]))

		// bump 可以直接重建地址
		again, err := pda.CreateProgramAddress(SignerSeeds(testOwner, asset, b1), testProgram)
		require.NoError(t, err)
		assert.Equal(t, a1, again)
	}
}

func TestDeriveAddressSeparatesInputs(t *testing.T) {
	native, _, err := DeriveAddress(testOwner, Native(), testProgram)
	require.NoError(t, err)
	fungible, _, err := DeriveAddress(testOwner, FungibleToken(testMint), testProgram)
	require.NoError(t, err)
	otherOwner, _, err := DeriveAddress(testMint, Native(), testProgram)
	require.NoError(t, err)
	otherProgram, _, err := DeriveAddress(testOwner, Native(), testMint)
	require.NoError(t, err)

	seen := map[pda.Address]bool{native: true}
	for _, a := range []pda.Address{fungible, otherOwner, otherProgram} {
		assert.False(t, seen[a])
		seen[a] = true
	}
}

func TestDeriveAddressRejectsInvalidAsset(t *testing.T) {
	_, _, err := DeriveAddress(testOwner, AssetClass{Kind: AssetFungible}, testProgram)
	assert.ErrorIs(t, err, ErrInvalidAsset)
	_, _, err = DeriveAddress(testOwner, AssetClass{Kind: AssetNative, Mint: testMint}, testProgram)
	assert.ErrorIs(t, err, ErrInvalidAsset)
	_, _, err = DeriveAddress(testOwner, AssetClass{Kind: 9}, testProgram)
	assert.ErrorIs(t, err, ErrInvalidAsset)
}
