package db

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"diamondhand/config"
	"diamondhand/keys"
	"diamondhand/logs"
	"diamondhand/vm"

	"github.com/dgraph-io/badger/v2"
	lru "github.com/hashicorp/golang-lru"
)

var (
	// ErrClosed 数据库已关闭
	ErrClosed = errors.New("database is not initialized or closed")
)

// Manager 封装 BadgerDB 的管理器，实现 vm.Store
// 每个执行单元的写集在一个 badger 事务里提交，要么全部可见，要么全部不可见。
type Manager struct {
	Db *badger.DB
	mu sync.RWMutex

	// 账户记录读缓存（只缓存已提交的值）
	cache *lru.Cache
}

// NewManager 按配置打开数据库；InMemory 时不落盘
func NewManager(cfg config.DatabaseConfig) (*Manager, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// badger v2 不自动创建父目录，需要手动创建
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New(size)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create read cache: %w", err)
	}
	logs.Debug("[db] opened path=%q in_memory=%t cache=%d", cfg.Path, cfg.InMemory, size)
	return &Manager{Db: db, cache: cache}, nil
}

// Get 实现 vm.Store；键不存在返回 (nil, nil)
// 读锁覆盖缓存检查、badger 读取与缓存回填，Apply 持写锁期间不会回填旧值
func (manager *Manager) Get(key string) ([]byte, error) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	if manager.Db == nil {
		return nil, ErrClosed
	}
	if v, ok := manager.cache.Get(key); ok {
		return copyBytes(v.([]byte)), nil
	}

	var value []byte
	err := manager.Db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if keys.IsAccountKey(key) {
		manager.cache.Add(key, copyBytes(value))
	}
	return value, nil
}

// Apply 实现 vm.Store：全部写入在一个事务中提交，提交与缓存更新在写锁内完成
func (manager *Manager) Apply(ops []vm.WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	manager.mu.Lock()
	defer manager.mu.Unlock()
	if manager.Db == nil {
		return ErrClosed
	}
	err := manager.Db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			var err error
			if op.Del {
				err = txn.Delete([]byte(op.Key))
			} else {
				err = txn.Set([]byte(op.Key), op.Value)
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", op.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		// 事务未提交，缓存保持原样
		return err
	}

	for _, op := range ops {
		if op.Del || !keys.IsAccountKey(op.Key) {
			manager.cache.Remove(op.Key)
			continue
		}
		manager.cache.Add(op.Key, copyBytes(op.Value))
	}
	return nil
}

// Scan scans all keys with the given prefix and returns a map of key-value pairs
func (manager *Manager) Scan(prefix string) (map[string][]byte, error) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	if manager.Db == nil {
		return nil, ErrClosed
	}
	result := make(map[string][]byte)
	err := manager.Db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[string(k)] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close 关闭数据库；重复调用无副作用
func (manager *Manager) Close() error {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.cache.Purge()
	if manager.Db == nil {
		return nil
	}
	err := manager.Db.Close()
	manager.Db = nil
	return err
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
