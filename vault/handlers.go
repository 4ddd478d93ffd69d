package vault

import (
	"fmt"

	"diamondhand/pda"
	"diamondhand/vm"

	"google.golang.org/protobuf/encoding/protowire"
)

// 金库程序交易类型
const (
	KindCreate   = "vault_create"
	KindDeposit  = "vault_deposit"
	KindWithdraw = "vault_withdraw"
)

// Instruction 金库指令参数
type Instruction struct {
	Owner            pda.Address
	Asset            AssetClass
	UnlockTimestamp  int64
	AlwaysUnlockable bool
	Amount           uint64
}

const (
	fieldOwner     protowire.Number = 1
	fieldAssetKind protowire.Number = 2
	fieldMint      protowire.Number = 3
	fieldUnlockTS  protowire.Number = 4
	fieldAlways    protowire.Number = 5
	fieldAmount    protowire.Number = 6
)

// Encode 编码为交易负载
func (in *Instruction) Encode() []byte {
	var b []byte
	b = vm.AppendAddress(b, fieldOwner, in.Owner)
	b = vm.AppendUvarint(b, fieldAssetKind, uint64(in.Asset.Kind))
	if !in.Asset.IsNative() {
		b = vm.AppendAddress(b, fieldMint, in.Asset.Mint)
	}
	b = vm.AppendUvarint(b, fieldUnlockTS, protowire.EncodeZigZag(in.UnlockTimestamp))
	b = vm.AppendUvarint(b, fieldAlways, protowire.EncodeBool(in.AlwaysUnlockable))
	b = vm.AppendUvarint(b, fieldAmount, in.Amount)
	return b
}

// DecodeInstruction 解码
func DecodeInstruction(b []byte) (*Instruction, error) {
	in := &Instruction{}
	err := vm.WalkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		var (
			n   int
			u   uint64
			err error
		)
		switch num {
		case fieldOwner:
			in.Owner, n, err = vm.ConsumeAddress(typ, v)
		case fieldAssetKind:
			u, n, err = vm.ConsumeUvarint(typ, v)
			if err == nil && u > 255 {
				err = fmt.Errorf("%w: asset kind %d", vm.ErrCorruptRecord, u)
			}
			in.Asset.Kind = AssetKind(u)
		case fieldMint:
			in.Asset.Mint, n, err = vm.ConsumeAddress(typ, v)
		case fieldUnlockTS:
			u, n, err = vm.ConsumeUvarint(typ, v)
			in.UnlockTimestamp = protowire.DecodeZigZag(u)
		case fieldAlways:
			u, n, err = vm.ConsumeUvarint(typ, v)
			in.AlwaysUnlockable = protowire.DecodeBool(u)
		case fieldAmount:
			in.Amount, n, err = vm.ConsumeUvarint(typ, v)
		}
		return n, err
	})
	if err != nil {
		return nil, err
	}
	if err := in.Asset.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

// handler 金库指令共用骨架
type handler struct {
	kind string
	mgr  *Manager
	run  func(mgr *Manager, ctx *vm.InvokeContext, in *Instruction) error
}

func (h *handler) Kind() string           { return h.kind }
func (h *handler) ProgramID() pda.Address { return h.mgr.programID }

func (h *handler) DryRun(ctx *vm.InvokeContext, tx *vm.Tx) error {
	in, err := DecodeInstruction(tx.Data)
	if err != nil {
		return fmt.Errorf("invalid %s payload: %w", h.kind, err)
	}
	return h.run(h.mgr, ctx, in)
}

// RegisterHandlers 注册金库程序的交易处理器
func RegisterHandlers(r *vm.HandlerRegistry, mgr *Manager) error {
	hs := []*handler{
		{kind: KindCreate, mgr: mgr, run: func(mgr *Manager, ctx *vm.InvokeContext, in *Instruction) error {
			_, err := mgr.CreateVault(ctx, in.Owner, in.Asset, NewUnlockPolicy(in.UnlockTimestamp, in.AlwaysUnlockable))
			return err
		}},
		{kind: KindDeposit, mgr: mgr, run: func(mgr *Manager, ctx *vm.InvokeContext, in *Instruction) error {
			return mgr.Deposit(ctx, in.Owner, in.Asset, in.Amount)
		}},
		{kind: KindWithdraw, mgr: mgr, run: func(mgr *Manager, ctx *vm.InvokeContext, in *Instruction) error {
			_, err := mgr.WithdrawAndClose(ctx, in.Owner, in.Asset)
			return err
		}},
	}
	for _, h := range hs {
		if err := r.Register(h); err != nil {
			return err
		}
	}
	return nil
}
