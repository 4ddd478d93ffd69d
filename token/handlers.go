package token

import (
	"fmt"

	"diamondhand/pda"
	"diamondhand/vm"

	"google.golang.org/protobuf/encoding/protowire"
)

// 代币程序交易类型
const (
	KindInitializeMint          = "token_initialize_mint"
	KindCreateAssociatedAccount = "token_create_associated_account"
	KindMintTo                  = "token_mint_to"
	KindTransfer                = "token_transfer"
)

// Instruction 代币指令参数；各指令只使用其中一部分字段
type Instruction struct {
	Mint        pda.Address
	Wallet      pda.Address
	Source      pda.Address
	Destination pda.Address
	Authority   pda.Address
	Amount      uint64
	Decimals    uint8
}

const (
	fieldMint        protowire.Number = 1
	fieldWallet      protowire.Number = 2
	fieldSource      protowire.Number = 3
	fieldDestination protowire.Number = 4
	fieldAuthority   protowire.Number = 5
	fieldAmount      protowire.Number = 6
	fieldDecimals    protowire.Number = 7
)

// Encode 编码为交易负载
func (in *Instruction) Encode() []byte {
	var b []byte
	b = vm.AppendAddress(b, fieldMint, in.Mint)
	b = vm.AppendAddress(b, fieldWallet, in.Wallet)
	b = vm.AppendAddress(b, fieldSource, in.Source)
	b = vm.AppendAddress(b, fieldDestination, in.Destination)
	b = vm.AppendAddress(b, fieldAuthority, in.Authority)
	b = vm.AppendUvarint(b, fieldAmount, in.Amount)
	b = vm.AppendUvarint(b, fieldDecimals, uint64(in.Decimals))
	return b
}

// DecodeInstruction 解码
func DecodeInstruction(b []byte) (*Instruction, error) {
	in := &Instruction{}
	err := vm.WalkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		var (
			n   int
			err error
		)
		switch num {
		case fieldMint:
			in.Mint, n, err = vm.ConsumeAddress(typ, v)
		case fieldWallet:
			in.Wallet, n, err = vm.ConsumeAddress(typ, v)
		case fieldSource:
			in.Source, n, err = vm.ConsumeAddress(typ, v)
		case fieldDestination:
			in.Destination, n, err = vm.ConsumeAddress(typ, v)
		case fieldAuthority:
			in.Authority, n, err = vm.ConsumeAddress(typ, v)
		case fieldAmount:
			in.Amount, n, err = vm.ConsumeUvarint(typ, v)
		case fieldDecimals:
			var d uint64
			d, n, err = vm.ConsumeUvarint(typ, v)
			if err == nil && d > 255 {
				err = fmt.Errorf("%w: decimals %d", vm.ErrCorruptRecord, d)
			}
			in.Decimals = uint8(d)
		}
		return n, err
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

// handler 所有代币指令共用的骨架
type handler struct {
	kind string
	svc  *Service
	run  func(svc *Service, ctx *vm.InvokeContext, signer pda.Address, in *Instruction) error
}

func (h *handler) Kind() string           { return h.kind }
func (h *handler) ProgramID() pda.Address { return h.svc.programID }

func (h *handler) DryRun(ctx *vm.InvokeContext, tx *vm.Tx) error {
	in, err := DecodeInstruction(tx.Data)
	if err != nil {
		return fmt.Errorf("invalid %s payload: %w", h.kind, err)
	}
	return h.run(h.svc, ctx, tx.Signers[0], in)
}

// RegisterHandlers 注册代币程序的所有交易处理器
func RegisterHandlers(r *vm.HandlerRegistry, svc *Service) error {
	hs := []*handler{
		{kind: KindInitializeMint, svc: svc, run: func(svc *Service, ctx *vm.InvokeContext, signer pda.Address, in *Instruction) error {
			return svc.InitializeMint(ctx, signer, in.Mint, in.Decimals, in.Authority)
		}},
		{kind: KindCreateAssociatedAccount, svc: svc, run: func(svc *Service, ctx *vm.InvokeContext, signer pda.Address, in *Instruction) error {
			_, err := svc.CreateAssociatedAccount(ctx, signer, in.Wallet, in.Mint)
			return err
		}},
		{kind: KindMintTo, svc: svc, run: func(svc *Service, ctx *vm.InvokeContext, signer pda.Address, in *Instruction) error {
			if in.Amount == 0 {
				return ErrInvalidAmount
			}
			return svc.MintTo(ctx, in.Mint, in.Destination, signer, in.Amount)
		}},
		{kind: KindTransfer, svc: svc, run: func(svc *Service, ctx *vm.InvokeContext, signer pda.Address, in *Instruction) error {
			if in.Amount == 0 {
				return ErrInvalidAmount
			}
			return svc.Transfer(ctx, in.Source, in.Destination, signer, in.Amount)
		}},
	}
	for _, h := range hs {
		if err := r.Register(h); err != nil {
			return err
		}
	}
	return nil
}
