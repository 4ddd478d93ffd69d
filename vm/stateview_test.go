package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateViewReadThroughAndOverlay(t *testing.T) {
	store := NewMemStore()
	require.NoError(t, store.Apply([]WriteOp{{Key: "a", Value: []byte("1")}}))

	sv := NewStateView(store.Get)
	v, ok, err := sv.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	sv.Set("a", []byte("2"))
	sv.Del("b")
	v, _, _ = sv.Get("a")
	assert.Equal(t, []byte("2"), v)

	// 底层存储不受影响
	raw, _ := store.Get("a")
	assert.Equal(t, []byte("1"), raw)

	diff := sv.Diff()
	require.Len(t, diff, 2)
	assert.Equal(t, "a", diff[0].Key)
	assert.Equal(t, "b", diff[1].Key)
	assert.True(t, diff[1].Del)
}

func TestStateViewSnapshotRevert(t *testing.T) {
	sv := NewStateView(nil)
	sv.Set("k", []byte("v1"))
	snap := sv.Snapshot()

	sv.Set("k", []byte("v2"))
	sv.Set("other", []byte("x"))
	sv.Del("k")

	require.NoError(t, sv.Revert(snap))
	v, ok, err := sv.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v)
	_, ok, _ = sv.Get("other")
	assert.False(t, ok)

	assert.ErrorIs(t, sv.Revert(100), ErrInvalidSnapshot)
	assert.ErrorIs(t, sv.Revert(-1), ErrInvalidSnapshot)
}

func TestAccountEncoding(t *testing.T) {
	acc := &Account{Lamports: 42, Owner: SystemProgramID, Data: []byte{1, 2, 3}}
	got, err := UnmarshalAccount(acc.Marshal())
	require.NoError(t, err)
	assert.Equal(t, acc, got)

	empty, err := UnmarshalAccount((&Account{}).Marshal())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), empty.Lamports)
	assert.Nil(t, empty.Data)

	_, err = UnmarshalAccount([]byte{0xff})
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestRentMinimumBalance(t *testing.T) {
	r := DefaultRent()
	// (128 + 83) * 3480 * 2
	assert.Equal(t, uint64(1468560), r.MinimumBalance(83))
	assert.True(t, r.IsExempt(1468560, 83))
	assert.False(t, r.IsExempt(1468559, 83))
}

func TestSafeMath(t *testing.T) {
	s, err := SafeAdd(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), s)

	_, err = SafeAdd(^uint64(0), 1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = SafeSub(1, 2)
	assert.ErrorIs(t, err, ErrUnderflow)
}
