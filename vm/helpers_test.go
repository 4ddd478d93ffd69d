package vm

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"diamondhand/pda"

	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) (ed25519.PrivateKey, pda.Address) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return priv, PublicAddress(priv)
}

func balanceOf(t *testing.T, sv StateView, addr pda.Address) uint64 {
	t.Helper()
	acc, exists, err := LoadAccount(sv, addr)
	require.NoError(t, err)
	if !exists {
		return 0
	}
	return acc.Lamports
}
