package vm

import (
	"strings"
	"sync"
)

// MemStore 基于 map 的内存存储，语义与持久化存储一致
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore 创建内存存储
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// Apply 在同一把锁内应用全部写入
func (m *MemStore) Apply(ops []WriteOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		if op.Del {
			delete(m.data, op.Key)
			continue
		}
		val := make([]byte, len(op.Value))
		copy(val, op.Value)
		m.data[op.Key] = val
	}
	return nil
}

// Scan 扫描指定前缀下的所有键值对
func (m *MemStore) Scan(prefix string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte)
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			val := make([]byte, len(v))
			copy(val, v)
			out[k] = val
		}
	}
	return out, nil
}
