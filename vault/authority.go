package vault

import (
	"fmt"

	"diamondhand/logs"
	"diamondhand/pda"
	"diamondhand/token"
	"diamondhand/vm"
)

// AuthorityProof 金库作为转出方时的权限证明：(owner, asset, bump)。
// 不落库，每次转账都重新派生并与金库地址比对。
type AuthorityProof struct {
	Owner pda.Address
	Asset AssetClass
	Bump  uint8
}

// Transferor 转账授权模块
type Transferor struct {
	programID pda.Address
	tokens    *token.Service
}

// NewTransferor 创建转账授权模块
func NewTransferor(programID pda.Address, tokens *token.Service) *Transferor {
	return &Transferor{programID: programID, tokens: tokens}
}

// Authorize 重新派生地址并校验 proof 指向 vault；成功返回签名 seeds
func (t *Transferor) Authorize(proof AuthorityProof, vault pda.Address) ([][]byte, error) {
	addr, bump, err := DeriveAddress(proof.Owner, proof.Asset, t.programID)
	if err != nil {
		return nil, err
	}
	if addr != vault || bump != proof.Bump {
		return nil, fmt.Errorf("%w: proof derives %s/%d, vault is %s/%d", ErrInvalidAuthority, addr, bump, vault, proof.Bump)
	}
	return SignerSeeds(proof.Owner, proof.Asset, bump), nil
}

// Transfer 在 from 与 to 之间移动 amount 个 asset。
// proof 为 nil 时 from 必须是交易签名者；非 nil 时 from 是金库，由派生签名授权。
// native 直接调整 lamports；fungible 通过代币程序在双方关联账户之间转账。
func (t *Transferor) Transfer(ctx *vm.InvokeContext, asset AssetClass, from, to pda.Address, amount uint64, proof *AuthorityProof) error {
	var seeds [][]byte
	if proof != nil {
		if proof.Asset != asset {
			return fmt.Errorf("%w: proof asset %s, transfer asset %s", ErrInvalidAuthority, proof.Asset, asset)
		}
		s, err := t.Authorize(*proof, from)
		if err != nil {
			return err
		}
		seeds = s
	}

	if asset.IsNative() {
		if proof != nil {
			// 金库账户归本程序所有，直接划账
			return vm.DebitProgramAccount(ctx, from, to, amount)
		}
		sysCtx, err := ctx.Invoke(vm.SystemProgramID)
		if err != nil {
			return err
		}
		return vm.Transfer(sysCtx, from, to, amount)
	}

	src, _, err := t.tokens.AssociatedAddress(from, asset.Mint)
	if err != nil {
		return externalErr("derive source token account", err)
	}
	dst, _, err := t.tokens.AssociatedAddress(to, asset.Mint)
	if err != nil {
		return externalErr("derive destination token account", err)
	}
	var signerSeeds [][][]byte
	if seeds != nil {
		signerSeeds = append(signerSeeds, seeds)
	}
	if err := t.tokens.Transfer(ctx, src, dst, from, amount, signerSeeds...); err != nil {
		return externalErr("token transfer", err)
	}
	logs.Trace("[Vault] token transfer %d %s: %s -> %s", amount, asset.Mint, from, to)
	return nil
}

// CloseHolding 关闭金库在 asset 下的附属持仓账户，押金退给 recipient。
// native 没有附属账户，返回 0。
func (t *Transferor) CloseHolding(ctx *vm.InvokeContext, asset AssetClass, vault, recipient pda.Address, proof AuthorityProof) (uint64, error) {
	seeds, err := t.Authorize(proof, vault)
	if err != nil {
		return 0, err
	}
	if asset.IsNative() {
		return 0, nil
	}
	ata, _, err := t.tokens.AssociatedAddress(vault, asset.Mint)
	if err != nil {
		return 0, externalErr("derive vault token account", err)
	}
	refunded, err := t.tokens.CloseAccount(ctx, ata, recipient, vault, seeds)
	if err != nil {
		return 0, externalErr("close vault token account", err)
	}
	return refunded, nil
}
