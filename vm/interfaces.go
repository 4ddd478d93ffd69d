package vm

import "diamondhand/pda"

// ========== 核心接口定义 ==========

// StateView 状态视图接口
type StateView interface {
	//读/写/删某个 key 的状态；写入只写进这个视图，不直接落到底层存储。
	Get(key string) ([]byte, bool, error)
	Set(key string, val []byte)
	Del(key string)
	//做一个快照点、必要时回滚到该点，实现失败回滚。
	Snapshot() int
	Revert(snap int) error
	//把执行期间累积的写入集合导出来，给后续"真正落库"用。
	Diff() []WriteOp
}

// TxHandler 交易处理器接口
type TxHandler interface {
	//标识这个 Handler 处理哪种交易类型（比如 "vault_create"）。
	Kind() string
	//执行该交易的程序 ID；程序只能修改自己名下的账户。
	ProgramID() pda.Address
	//在 InvokeContext 的 StateView 上执行；返回 error 时整笔交易的写集被丢弃。
	DryRun(ctx *InvokeContext, tx *Tx) error
}

// Store 持久化存储接口（已提交状态）
type Store interface {
	// key 不存在时返回 (nil, nil)
	Get(key string) ([]byte, error)
	// 原子地应用整个写集：要么全部生效，要么全部不生效
	Apply(ops []WriteOp) error
}

// Clock 时钟预言机：每次调用都读取当前时间，不做缓存
type Clock interface {
	UnixTimestamp() (int64, error)
}

// （读穿函数）
// 当 StateView.Get 本地 overlay 没命中时，定义"如何从底层存储读真实值"的函数签名
type ReadThroughFn func(key string) ([]byte, error)
