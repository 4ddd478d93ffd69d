package vm

import "errors"

// ========== 错误定义 ==========

var (
	ErrNilTx             = errors.New("nil transaction")
	ErrInvalidSnapshot   = errors.New("invalid snapshot index")
	ErrUnknownKind       = errors.New("unknown transaction kind")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrMissingSignature  = errors.New("missing required signature")
	ErrDuplicateTx       = errors.New("transaction already processed")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountInUse      = errors.New("account already in use")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrIllegalOwner      = errors.New("account not owned by executing program")
	ErrCorruptRecord     = errors.New("corrupt record")
	ErrInvokeDepth       = errors.New("cross-program invocation too deep")
)

// ========== 基础类型定义 ==========

// "要怎么改状态"的清单
type WriteOp struct {
	Key      string // 完整的 key（包括命名空间前缀）
	Value    []byte // 序列化后的值
	Del      bool   // true表示删除操作
	Category string // 数据分类：account, receipt 等，便于追踪和调试
}

// GetKey 获取 key
func (w *WriteOp) GetKey() string {
	return w.Key
}

// GetValue 获取 value
func (w *WriteOp) GetValue() []byte {
	return w.Value
}

// IsDel 是否删除操作
func (w *WriteOp) IsDel() bool {
	return w.Del
}

const (
	StatusSucceed = "SUCCEED"
	StatusFailed  = "FAILED"
)

// 记录执行结果
type Receipt struct {
	TxID       string   `json:"tx_id"`
	Kind       string   `json:"kind"`
	Status     string   `json:"status"` // "SUCCEED" or "FAILED"
	Error      string   `json:"error,omitempty"`
	Timestamp  int64    `json:"timestamp"`
	Logs       []string `json:"logs,omitempty"` // 程序日志
	WriteCount int      `json:"write_count"`
}

// Succeeded 是否执行成功
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == StatusSucceed
}
