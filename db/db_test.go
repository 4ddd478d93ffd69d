package db_test

import (
	"sync"
	"testing"

	"diamondhand/config"
	"diamondhand/db"
	"diamondhand/keys"
	"diamondhand/pda"
	"diamondhand/vm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) *db.Manager {
	t.Helper()
	cfg := config.DefaultConfig().Database
	cfg.InMemory = true
	cfg.CacheSize = 8
	mgr, err := db.NewManager(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestApplyAndGet(t *testing.T) {
	mgr := openMem(t)
	addr := pda.MustParseAddress("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	key := keys.KeyAccount(addr.String())

	val, err := mgr.Get(key)
	require.NoError(t, err)
	assert.Nil(t, val)

	acc := &vm.Account{Lamports: 42, Owner: vm.SystemProgramID}
	require.NoError(t, mgr.Apply([]vm.WriteOp{
		{Key: key, Value: acc.Marshal()},
		{Key: keys.KeyReceipt("tx1"), Value: []byte(`{}`)},
	}))

	// 第二次读取命中缓存，结果一致
	for i := 0; i < 2; i++ {
		val, err = mgr.Get(key)
		require.NoError(t, err)
		got, err := vm.UnmarshalAccount(val)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), got.Lamports)
	}

	require.NoError(t, mgr.Apply([]vm.WriteOp{{Key: key, Del: true}}))
	val, err = mgr.Get(key)
	require.NoError(t, err)
	assert.Nil(t, val)

	receipts, err := mgr.Scan(keys.KeyReceiptPrefix())
	require.NoError(t, err)
	assert.Len(t, receipts, 1)
}

func TestGetReturnsCopy(t *testing.T) {
	mgr := openMem(t)
	key := keys.KeyAccount("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	require.NoError(t, mgr.Apply([]vm.WriteOp{{Key: key, Value: []byte{1, 2, 3}}}))

	v, err := mgr.Get(key)
	require.NoError(t, err)
	v[0] = 9
	again, err := mgr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
}

func TestExecutorOnBadger(t *testing.T) {
	mgr := openMem(t)
	reg := vm.NewHandlerRegistry()
	require.NoError(t, vm.RegisterDefaultHandlers(reg))
	exec := vm.NewExecutor(mgr, reg, vm.NewManualClock(1), vm.DefaultRent())

	addr := pda.MustParseAddress("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	require.NoError(t, exec.Airdrop(addr, 1_000))
	acc, ok, err := vm.LoadAccount(exec.View(), addr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1_000), acc.Lamports)
}

func TestClosedManager(t *testing.T) {
	cfg := config.DefaultConfig().Database
	cfg.InMemory = true
	mgr, err := db.NewManager(cfg)
	require.NoError(t, err)
	require.NoError(t, mgr.Close())
	require.NoError(t, mgr.Close())

	_, err = mgr.Get("v1_receipt_x")
	assert.ErrorIs(t, err, db.ErrClosed)
	err = mgr.Apply([]vm.WriteOp{{Key: "k", Value: []byte("v")}})
	assert.ErrorIs(t, err, db.ErrClosed)
}

func TestConcurrentGetNeverCachesStaleValue(t *testing.T) {
	mgr := openMem(t)
	addr := pda.MustParseAddress("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	key := keys.KeyAccount(addr.String())
	const rounds = 200

	put := func(lamports uint64) {
		acc := &vm.Account{Lamports: lamports, Owner: vm.SystemProgramID}
		require.NoError(t, mgr.Apply([]vm.WriteOp{{Key: key, Value: acc.Marshal()}}))
	}
	put(0)

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for i := 0; i < rounds; i++ {
				val, err := mgr.Get(key)
				if !assert.NoError(t, err) {
					return
				}
				acc, err := vm.UnmarshalAccount(val)
				if !assert.NoError(t, err) {
					return
				}
				// 每个读者看到的余额单调不减
				assert.GreaterOrEqual(t, acc.Lamports, last)
				last = acc.Lamports
			}
		}()
	}
	for i := uint64(1); i <= rounds; i++ {
		put(i)
	}
	wg.Wait()

	val, err := mgr.Get(key)
	require.NoError(t, err)
	acc, err := vm.UnmarshalAccount(val)
	require.NoError(t, err)
	assert.Equal(t, uint64(rounds), acc.Lamports)
}
