package vm

import (
	"fmt"

	"diamondhand/pda"
)

// MaxInvokeDepth 跨程序调用的最大嵌套深度
const MaxInvokeDepth = 4

// InvokeContext 一次程序执行的上下文
// 同一笔交易内所有（嵌套）调用共享同一个 StateView 和日志缓冲。
type InvokeContext struct {
	SV        StateView
	Clock     Clock
	Rent      Rent
	ProgramID pda.Address // 当前正在执行的程序
	TxID      string

	signers map[pda.Address]struct{}
	logs    *[]string
	depth   int
}

// NewInvokeContext 以交易签名者集合创建顶层上下文
func NewInvokeContext(sv StateView, clock Clock, rent Rent, programID pda.Address, txID string, signers []pda.Address) *InvokeContext {
	set := make(map[pda.Address]struct{}, len(signers))
	for _, s := range signers {
		set[s] = struct{}{}
	}
	logs := make([]string, 0, 8)
	return &InvokeContext{
		SV:        sv,
		Clock:     clock,
		Rent:      rent,
		ProgramID: programID,
		TxID:      txID,
		signers:   set,
		logs:      &logs,
	}
}

// IsSigner 地址是否为本次调用的签名者（交易签名或程序派生签名）
func (c *InvokeContext) IsSigner(addr pda.Address) bool {
	_, ok := c.signers[addr]
	return ok
}

// RequireSigner 不是签名者时返回 ErrMissingSignature
func (c *InvokeContext) RequireSigner(addr pda.Address) error {
	if !c.IsSigner(addr) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, addr)
	}
	return nil
}

// Invoke 跨程序调用：签名者集合原样传递
func (c *InvokeContext) Invoke(programID pda.Address) (*InvokeContext, error) {
	return c.InvokeSigned(programID)
}

// InvokeSigned 跨程序调用，并用调用方程序 ID 重算每组 signerSeeds 得到的 PDA 作为额外签名者。
// PDA 没有私钥，这是它证明自身权限的唯一方式；结果不缓存，每次调用都重新计算。
func (c *InvokeContext) InvokeSigned(programID pda.Address, signerSeeds ...[][]byte) (*InvokeContext, error) {
	if c.depth+1 > MaxInvokeDepth {
		return nil, ErrInvokeDepth
	}
	set := make(map[pda.Address]struct{}, len(c.signers)+len(signerSeeds))
	for s := range c.signers {
		set[s] = struct{}{}
	}
	for _, seeds := range signerSeeds {
		addr, err := pda.CreateProgramAddress(seeds, c.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("derive signer: %w", err)
		}
		set[addr] = struct{}{}
	}
	return &InvokeContext{
		SV:        c.SV,
		Clock:     c.Clock,
		Rent:      c.Rent,
		ProgramID: programID,
		TxID:      c.TxID,
		signers:   set,
		logs:      c.logs,
		depth:     c.depth + 1,
	}, nil
}

// Call 以 InvokeSigned 进入 programID 执行 fn；fn 失败时回滚它在 StateView 上的全部写入
func (c *InvokeContext) Call(programID pda.Address, fn func(callee *InvokeContext) error, signerSeeds ...[][]byte) error {
	callee, err := c.InvokeSigned(programID, signerSeeds...)
	if err != nil {
		return err
	}
	snap := c.SV.Snapshot()
	if err := fn(callee); err != nil {
		if rerr := c.SV.Revert(snap); rerr != nil {
			return fmt.Errorf("%w (revert: %v)", err, rerr)
		}
		return err
	}
	return nil
}

// Logf 写程序日志（进入回执）
func (c *InvokeContext) Logf(format string, args ...interface{}) {
	*c.logs = append(*c.logs, fmt.Sprintf("Program %s: ", c.ProgramID)+fmt.Sprintf(format, args...))
}

// Logs 当前累积的程序日志
func (c *InvokeContext) Logs() []string {
	out := make([]string, len(*c.logs))
	copy(out, *c.logs)
	return out
}

// RequireOwnedBy 账户必须属于当前程序
func (c *InvokeContext) RequireOwnedBy(addr pda.Address, acc *Account) error {
	if acc.Owner != c.ProgramID {
		return fmt.Errorf("%w: %s is owned by %s", ErrIllegalOwner, addr, acc.Owner)
	}
	return nil
}
