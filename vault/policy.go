package vault

import (
	"diamondhand/vm"
)

// UnlockPolicy 解锁条件：到达时间戳，或者始终可解锁
type UnlockPolicy struct {
	unlockTimestamp  int64
	alwaysUnlockable bool
}

// NewUnlockPolicy 创建后不可修改
func NewUnlockPolicy(unlockTimestamp int64, alwaysUnlockable bool) UnlockPolicy {
	return UnlockPolicy{unlockTimestamp: unlockTimestamp, alwaysUnlockable: alwaysUnlockable}
}

func (p UnlockPolicy) UnlockTimestamp() int64 { return p.unlockTimestamp }
func (p UnlockPolicy) AlwaysUnlockable() bool { return p.alwaysUnlockable }

// IsUnlockedAt now >= unlock_timestamp || always_unlockable
func (p UnlockPolicy) IsUnlockedAt(now int64) bool {
	return p.alwaysUnlockable || now >= p.unlockTimestamp
}

// IsUnlocked 读取时钟后判断；时钟失败返回 ErrExternalService
func IsUnlocked(r *Record, clock vm.Clock) (bool, error) {
	// always_unlockable 也要先读时钟；时钟失败即操作失败
	now, err := clock.UnixTimestamp()
	if err != nil {
		return false, externalErr("read clock", err)
	}
	return r.Policy().IsUnlockedAt(now), nil
}
