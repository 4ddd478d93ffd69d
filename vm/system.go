package vm

import (
	"fmt"

	"diamondhand/pda"
)

// SystemProgramID 系统程序（全零地址），拥有所有普通钱包账户
var SystemProgramID = pda.Address{}

// credit 给账户加钱；账户不存在时创建一个系统账户
func credit(sv StateView, addr pda.Address, lamports uint64) error {
	acc, exists, err := LoadAccount(sv, addr)
	if err != nil {
		return err
	}
	if !exists {
		acc = &Account{Owner: SystemProgramID}
	}
	bal, err := SafeAdd(acc.Lamports, lamports)
	if err != nil {
		return fmt.Errorf("credit %s: %w", addr, err)
	}
	acc.Lamports = bal
	StoreAccount(sv, addr, acc)
	return nil
}

// Transfer 系统转账：from 必须是签名者且归系统程序所有
func Transfer(ctx *InvokeContext, from, to pda.Address, lamports uint64) error {
	if err := ctx.RequireSigner(from); err != nil {
		return err
	}
	src, err := MustLoadAccount(ctx.SV, from)
	if err != nil {
		return err
	}
	if src.Owner != SystemProgramID {
		return fmt.Errorf("%w: transfer source %s is owned by %s", ErrIllegalOwner, from, src.Owner)
	}
	if src.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d lamports, need %d", ErrInsufficientFunds, from, src.Lamports, lamports)
	}
	if from == to {
		return nil
	}
	src.Lamports -= lamports
	StoreAccount(ctx.SV, from, src)
	return credit(ctx.SV, to, lamports)
}

// CreateAccount 由 payer 出资在 newAddr 分配 space 字节、归 owner 程序所有的账户。
// payer 与 newAddr 都必须签名（PDA 通过 InvokeSigned 签名）；地址上已有任何账户则失败。
func CreateAccount(ctx *InvokeContext, payer, newAddr pda.Address, lamports uint64, space int, owner pda.Address) error {
	if err := ctx.RequireSigner(payer); err != nil {
		return err
	}
	if err := ctx.RequireSigner(newAddr); err != nil {
		return err
	}
	exists, err := AccountExists(ctx.SV, newAddr)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAccountInUse, newAddr)
	}
	src, err := MustLoadAccount(ctx.SV, payer)
	if err != nil {
		return fmt.Errorf("%w: payer %s", ErrInsufficientFunds, payer)
	}
	if src.Owner != SystemProgramID {
		return fmt.Errorf("%w: payer %s is owned by %s", ErrIllegalOwner, payer, src.Owner)
	}
	if src.Lamports < lamports {
		return fmt.Errorf("%w: payer %s has %d lamports, need %d", ErrInsufficientFunds, payer, src.Lamports, lamports)
	}
	src.Lamports -= lamports
	StoreAccount(ctx.SV, payer, src)
	StoreAccount(ctx.SV, newAddr, &Account{
		Lamports: lamports,
		Owner:    owner,
		Data:     make([]byte, space),
	})
	return nil
}

// InitializeAccount 在 addr 上建立 space 字节、归 owner 所有的免租账户。
// 地址不存在时等同 CreateAccount；已存在但只是没有数据的系统账户（例如被人预先转入 lamports）时，
// 由 payer 补足押金后分配空间并转给 owner。addr 必须签名。
func InitializeAccount(ctx *InvokeContext, payer, addr pda.Address, space int, owner pda.Address) error {
	acc, exists, err := LoadAccount(ctx.SV, addr)
	if err != nil {
		return err
	}
	if !exists {
		return CreateAccount(ctx, payer, addr, ctx.Rent.MinimumBalance(space), space, owner)
	}
	if acc.Owner != SystemProgramID || len(acc.Data) != 0 {
		return fmt.Errorf("%w: %s is owned by %s with %d bytes", ErrAccountInUse, addr, acc.Owner, len(acc.Data))
	}
	if err := ctx.RequireSigner(addr); err != nil {
		return err
	}
	if !ctx.Rent.IsExempt(acc.Lamports, space) {
		if err := Transfer(ctx, payer, addr, ctx.Rent.MinimumBalance(space)-acc.Lamports); err != nil {
			return err
		}
		if acc, err = MustLoadAccount(ctx.SV, addr); err != nil {
			return err
		}
	}
	acc.Owner = owner
	acc.Data = make([]byte, space)
	StoreAccount(ctx.SV, addr, acc)
	return nil
}

// CloseProgramAccount 当前程序关闭自己名下的账户：全部 lamports 转给 recipient，存储回收。
// 返回转出的 lamports。
func CloseProgramAccount(ctx *InvokeContext, addr, recipient pda.Address) (uint64, error) {
	acc, err := MustLoadAccount(ctx.SV, addr)
	if err != nil {
		return 0, err
	}
	if err := ctx.RequireOwnedBy(addr, acc); err != nil {
		return 0, err
	}
	if addr == recipient {
		return 0, fmt.Errorf("cannot close %s into itself", addr)
	}
	DeleteAccount(ctx.SV, addr)
	if err := credit(ctx.SV, recipient, acc.Lamports); err != nil {
		return 0, err
	}
	return acc.Lamports, nil
}

// WriteAccountData 当前程序改写自己名下账户的数据区（长度不变）
func WriteAccountData(ctx *InvokeContext, addr pda.Address, data []byte) error {
	acc, err := MustLoadAccount(ctx.SV, addr)
	if err != nil {
		return err
	}
	if err := ctx.RequireOwnedBy(addr, acc); err != nil {
		return err
	}
	if len(data) != len(acc.Data) {
		return fmt.Errorf("account %s data is %d bytes, got %d", addr, len(acc.Data), len(data))
	}
	acc.Data = append(acc.Data[:0], data...)
	StoreAccount(ctx.SV, addr, acc)
	return nil
}

// DebitProgramAccount 当前程序从自己名下的账户直接划出 lamports 给 to。
// 程序账户没有私钥，所有权本身就是授权；不会动用账户数据。
func DebitProgramAccount(ctx *InvokeContext, from, to pda.Address, lamports uint64) error {
	src, err := MustLoadAccount(ctx.SV, from)
	if err != nil {
		return err
	}
	if err := ctx.RequireOwnedBy(from, src); err != nil {
		return err
	}
	if src.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d lamports, need %d", ErrInsufficientFunds, from, src.Lamports, lamports)
	}
	if from == to || lamports == 0 {
		return nil
	}
	src.Lamports -= lamports
	StoreAccount(ctx.SV, from, src)
	return credit(ctx.SV, to, lamports)
}
