package vault

import (
	"errors"
	"math"
	"testing"

	"diamondhand/vm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnlockMonotonic(t *testing.T) {
	p := NewUnlockPolicy(1_700_000_000, false)
	assert.False(t, p.IsUnlockedAt(1_699_999_999))
	assert.True(t, p.IsUnlockedAt(1_700_000_000))

	// 一旦解锁，之后任何时刻都保持解锁
	unlocked := false
	for now := int64(1_699_999_990); now < 1_700_000_010; now++ {
		if unlocked {
			assert.True(t, p.IsUnlockedAt(now), "now=%d", now)
		}
		unlocked = p.IsUnlockedAt(now)
	}
}

func TestAlwaysUnlockableOverride(t *testing.T) {
	p := NewUnlockPolicy(math.MaxInt64, true)
	for _, now := range []int64{math.MinInt64, -1, 0, 1_700_000_000} {
		assert.True(t, p.IsUnlockedAt(now))
	}
}

func TestIsUnlockedReadsClock(t *testing.T) {
	rec := NewRecord(testOwner, NewUnlockPolicy(100, false), Native(), 255, 0)
	clock := vm.NewManualClock(99)

	ok, err := IsUnlocked(rec, clock)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Set(100)
	ok, err = IsUnlocked(rec, clock)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Fail(errors.New("sysvar unavailable"))
	_, err = IsUnlocked(rec, clock)
	assert.ErrorIs(t, err, ErrExternalService)

	always := NewRecord(testOwner, NewUnlockPolicy(0, true), Native(), 255, 0)
	_, err = IsUnlocked(always, clock)
	assert.ErrorIs(t, err, ErrExternalService)
}
