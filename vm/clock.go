package vm

import (
	"sync"
	"time"
)

// SystemClock 读取本机时间
type SystemClock struct{}

func (SystemClock) UnixTimestamp() (int64, error) {
	return time.Now().Unix(), nil
}

// ManualClock 手动推进的时钟，用于模拟器和测试
type ManualClock struct {
	mu  sync.Mutex
	now int64
	err error
}

// NewManualClock 以给定时间初始化
func NewManualClock(now int64) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) UnixTimestamp() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return c.now, nil
}

// Set 设置当前时间
func (c *ManualClock) Set(now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance 向前推进
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += int64(d / time.Second)
}

// Fail 之后的读取都返回 err；传 nil 恢复
func (c *ManualClock) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}
