package vm

import (
	"fmt"

	"diamondhand/pda"

	"google.golang.org/protobuf/encoding/protowire"
)

// KindSystemTransfer 系统转账交易类型
const KindSystemTransfer = "system_transfer"

// SystemTransferArgs 系统转账参数；from 为交易第一个签名者
type SystemTransferArgs struct {
	To       pda.Address
	Lamports uint64
}

// Encode 编码为指令负载
func (a *SystemTransferArgs) Encode() []byte {
	var b []byte
	b = AppendAddress(b, 1, a.To)
	b = AppendUvarint(b, 2, a.Lamports)
	return b
}

// DecodeSystemTransferArgs 解码
func DecodeSystemTransferArgs(b []byte) (*SystemTransferArgs, error) {
	args := &SystemTransferArgs{}
	err := WalkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			x, n, err := ConsumeAddress(typ, v)
			args.To = x
			return n, err
		case 2:
			x, n, err := ConsumeUvarint(typ, v)
			args.Lamports = x
			return n, err
		}
		return 0, nil
	})
	return args, err
}

// SystemTransferHandler 系统转账交易处理器
type SystemTransferHandler struct{}

func (h *SystemTransferHandler) Kind() string {
	return KindSystemTransfer
}

func (h *SystemTransferHandler) ProgramID() pda.Address {
	return SystemProgramID
}

func (h *SystemTransferHandler) DryRun(ctx *InvokeContext, tx *Tx) error {
	args, err := DecodeSystemTransferArgs(tx.Data)
	if err != nil {
		return fmt.Errorf("invalid transfer payload: %w", err)
	}
	if args.Lamports == 0 {
		return fmt.Errorf("invalid transfer amount: 0")
	}
	from := tx.Signers[0]
	if err := Transfer(ctx, from, args.To, args.Lamports); err != nil {
		return err
	}
	ctx.Logf("transfer %d lamports %s -> %s", args.Lamports, from, args.To)
	return nil
}
