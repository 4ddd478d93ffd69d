package vm

import (
	"encoding/json"
	"fmt"
	"sync"

	"diamondhand/keys"
	"diamondhand/logs"
	"diamondhand/pda"
)

// Executor 交易执行器
// 每笔交易都是一个不可分割的执行单元：在独立的 overlay 上执行，
// 成功时写集 + 回执一次性原子提交，失败时只提交 FAILED 回执。
// 执行单元之间由 mu 串行化。
type Executor struct {
	mu       sync.Mutex
	store    Store
	registry *HandlerRegistry
	clock    Clock
	rent     Rent
}

// NewExecutor 创建执行器
func NewExecutor(store Store, registry *HandlerRegistry, clock Clock, rent Rent) *Executor {
	return &Executor{
		store:    store,
		registry: registry,
		clock:    clock,
		rent:     rent,
	}
}

// Clock 执行器使用的时钟
func (e *Executor) Clock() Clock {
	return e.clock
}

// Execute 执行一笔交易
// 返回的 error 即交易失败原因；回执总是非 nil（除非交易本身为 nil）。
func (e *Executor) Execute(tx *Tx) (*Receipt, error) {
	if tx == nil {
		return nil, ErrNilTx
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	rc := &Receipt{TxID: tx.ID(), Kind: tx.Kind, Status: StatusFailed}

	// 签名无效的交易不落库
	if err := tx.Verify(); err != nil {
		rc.Error = err.Error()
		logs.Warn("[Executor] reject tx kind=%s: %v", tx.Kind, err)
		return rc, err
	}

	prev, err := e.store.Get(keys.KeyReceipt(rc.TxID))
	if err != nil {
		rc.Error = err.Error()
		return rc, fmt.Errorf("read receipt: %w", err)
	}
	if prev != nil {
		rc.Error = ErrDuplicateTx.Error()
		return rc, fmt.Errorf("%w: %s", ErrDuplicateTx, rc.TxID)
	}

	now, err := e.clock.UnixTimestamp()
	if err != nil {
		rc.Error = err.Error()
		return rc, fmt.Errorf("read clock: %w", err)
	}
	rc.Timestamp = now

	h, ok := e.registry.Get(tx.Kind)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownKind, tx.Kind)
		return rc, e.commitFailed(rc, err)
	}

	sv := NewStateView(e.store.Get)
	ctx := NewInvokeContext(sv, e.clock, e.rent, h.ProgramID(), rc.TxID, tx.Signers)

	logs.Debug("[Executor] exec tx=%s kind=%s program=%s", rc.TxID, tx.Kind, h.ProgramID())
	if err := h.DryRun(ctx, tx); err != nil {
		rc.Logs = ctx.Logs()
		return rc, e.commitFailed(rc, err)
	}

	rc.Status = StatusSucceed
	rc.Logs = ctx.Logs()
	ops := sv.Diff()
	rc.WriteCount = len(ops)
	rcOp, err := receiptOp(rc)
	if err != nil {
		rc.Status = StatusFailed
		rc.Error = err.Error()
		return rc, err
	}
	if err := e.store.Apply(append(ops, rcOp)); err != nil {
		rc.Status = StatusFailed
		rc.Error = err.Error()
		logs.Error("[Executor] commit tx=%s failed: %v", rc.TxID, err)
		return rc, fmt.Errorf("commit: %w", err)
	}
	logs.Debug("[Executor] committed tx=%s writes=%d", rc.TxID, rc.WriteCount)
	return rc, nil
}

// commitFailed 持久化失败回执，返回原始执行错误
func (e *Executor) commitFailed(rc *Receipt, cause error) error {
	rc.Status = StatusFailed
	rc.Error = cause.Error()
	logs.Warn("[Executor] tx=%s kind=%s failed: %v", rc.TxID, rc.Kind, cause)

	op, err := receiptOp(rc)
	if err != nil {
		return cause
	}
	if err := e.store.Apply([]WriteOp{op}); err != nil {
		logs.Error("[Executor] persist failed receipt tx=%s: %v", rc.TxID, err)
	}
	return cause
}

func receiptOp(rc *Receipt) (WriteOp, error) {
	data, err := json.Marshal(rc)
	if err != nil {
		return WriteOp{}, fmt.Errorf("marshal receipt: %w", err)
	}
	key := keys.KeyReceipt(rc.TxID)
	return WriteOp{Key: key, Value: data, Category: keys.CategoryName(key)}, nil
}

// Receipt 查询已落库的回执
func (e *Executor) Receipt(txID string) (*Receipt, bool, error) {
	data, err := e.store.Get(keys.KeyReceipt(txID))
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	var rc Receipt
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, false, fmt.Errorf("%w: receipt %s: %v", ErrCorruptRecord, txID, err)
	}
	return &rc, true, nil
}

// View 只读视图，用于查询；写入不会被提交
func (e *Executor) View() StateView {
	return NewStateView(e.store.Get)
}

// Airdrop 水龙头：直接给地址加 lamports（用于引导账户）
func (e *Executor) Airdrop(addr pda.Address, lamports uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sv := NewStateView(e.store.Get)
	if err := credit(sv, addr, lamports); err != nil {
		return err
	}
	if err := e.store.Apply(sv.Diff()); err != nil {
		return fmt.Errorf("commit airdrop: %w", err)
	}
	logs.Info("[Executor] airdrop %d lamports to %s", lamports, addr)
	return nil
}
