package vault_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"diamondhand/pda"
	"diamondhand/token"
	"diamondhand/vault"
	"diamondhand/vm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vaultProgram = pda.MustParseAddress("5Zm2UQMSM63NLJGkQYP6xqqGm2EPzYyVNtyPpJnJb5iD")
	tokenProgram = pda.MustParseAddress("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	ataProgram   = pda.MustParseAddress("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

type chain struct {
	exec  *vm.Executor
	clock *vm.ManualClock
	mgr   *vault.Manager
	nonce uint64
}

func newChain(t *testing.T) *chain {
	t.Helper()
	clock := vm.NewManualClock(1_700_000_000)
	rent := vm.DefaultRent()
	tokens := token.NewService(tokenProgram, ataProgram)
	mgr := vault.NewManager(vaultProgram, tokens)

	reg := vm.NewHandlerRegistry()
	require.NoError(t, vm.RegisterDefaultHandlers(reg))
	require.NoError(t, token.RegisterHandlers(reg, tokens))
	require.NoError(t, vault.RegisterHandlers(reg, mgr))
	return &chain{
		exec:  vm.NewExecutor(vm.NewMemStore(), reg, clock, rent),
		clock: clock,
		mgr:   mgr,
	}
}

func (c *chain) send(kind string, in *vault.Instruction, key ed25519.PrivateKey) (*vm.Receipt, error) {
	c.nonce++
	return c.exec.Execute(vm.SignTx(kind, c.nonce, in.Encode(), key))
}

func TestInstructionEncoding(t *testing.T) {
	in := &vault.Instruction{
		Owner:            vaultProgram,
		Asset:            vault.FungibleToken(tokenProgram),
		UnlockTimestamp:  -42,
		AlwaysUnlockable: true,
		Amount:           7,
	}
	got, err := vault.DecodeInstruction(in.Encode())
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = vault.DecodeInstruction([]byte{0xff})
	assert.Error(t, err)
}

func TestVaultTransactions(t *testing.T) {
	c := newChain(t)
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	owner := vm.PublicAddress(priv)
	require.NoError(t, c.exec.Airdrop(owner, 5_000_000_000))

	in := &vault.Instruction{Owner: owner, Asset: vault.Native(), UnlockTimestamp: 1_700_000_600}
	rc, err := c.send(vault.KindCreate, in, priv)
	require.NoError(t, err)
	assert.True(t, rc.Succeeded())

	in.Amount = 1_000_000_000
	rc, err = c.send(vault.KindDeposit, in, priv)
	require.NoError(t, err)
	assert.True(t, rc.Succeeded())

	// 第二次创建：整笔交易失败，只留下失败回执
	rc, err = c.send(vault.KindCreate, in, priv)
	assert.ErrorIs(t, err, vault.ErrAddressCollision)
	assert.False(t, rc.Succeeded())
	stored, ok, err := c.exec.Receipt(rc.TxID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vm.StatusFailed, stored.Status)

	// 锁定期内提取失败，余额不变
	rc, err = c.send(vault.KindWithdraw, in, priv)
	assert.ErrorIs(t, err, vault.ErrStillLocked)
	assert.Contains(t, rc.Error, "store is LOCKED")
	view, err := c.mgr.Get(c.exec.View(), c.clock, owner, vault.Native())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), view.Balance)

	c.clock.Advance(10 * time.Minute)
	rc, err = c.send(vault.KindWithdraw, in, priv)
	require.NoError(t, err)
	assert.True(t, rc.Succeeded())
	found := false
	for _, l := range rc.Logs {
		if strings.Contains(l, "withdraw 1.000000000 SOL") {
			found = true
		}
	}
	assert.True(t, found, "logs: %v", rc.Logs)

	acc, exists, err := vm.LoadAccount(c.exec.View(), owner)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, uint64(5_000_000_000), acc.Lamports)
}
