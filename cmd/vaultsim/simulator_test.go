package main

import (
	"testing"

	"diamondhand/config"
	"diamondhand/db"
	"diamondhand/vault"
	"diamondhand/vm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenariosInMemory(t *testing.T) {
	sim, err := NewSimulator(config.DefaultConfig(), vm.NewMemStore())
	require.NoError(t, err)
	require.NoError(t, sim.Run("all"))
	assert.Error(t, sim.Run("nope"))

	// 场景结束后所有金库都已关闭
	sum, err := sim.Summarize()
	require.NoError(t, err)
	assert.Positive(t, sum.Accounts)
	assert.Zero(t, sum.OpenVaults)
	assert.Zero(t, sum.VaultLamports)
}

func TestSummarizeCountsOpenVaults(t *testing.T) {
	sim, err := NewSimulator(config.DefaultConfig(), vm.NewMemStore())
	require.NoError(t, err)
	priv, owner, err := sim.newWallet(1_000_000_000)
	require.NoError(t, err)

	in := &vault.Instruction{Owner: owner, Asset: vault.Native(), UnlockTimestamp: simEpoch + 60}
	_, err = sim.send(vault.KindCreate, in.Encode(), priv)
	require.NoError(t, err)
	in.Amount, err = amount("0.25", vault.NativeDecimals)
	require.NoError(t, err)
	_, err = sim.send(vault.KindDeposit, in.Encode(), priv)
	require.NoError(t, err)

	sum, err := sim.Summarize()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.OpenVaults)
	reserve := vm.DefaultRent().MinimumBalance(vault.RecordSize)
	assert.Equal(t, reserve+250_000_000, sum.VaultLamports)

	_, err = amount("0.0000000001", vault.NativeDecimals)
	assert.Error(t, err)
}

func TestScenariosOnBadger(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Path = t.TempDir()
	mgr, err := db.NewManager(cfg.Database)
	require.NoError(t, err)
	defer mgr.Close()

	sim, err := NewSimulator(cfg, mgr)
	require.NoError(t, err)
	require.NoError(t, sim.Run("native"))
	require.NoError(t, sim.Run("fungible"))

	sum, err := sim.Summarize()
	require.NoError(t, err)
	assert.Zero(t, sum.OpenVaults)
}
