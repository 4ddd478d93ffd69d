// token/service.go
// 通用代币程序：金库通过跨程序调用使用它来移动同质化代币余额

package token

import (
	"errors"
	"fmt"

	"diamondhand/logs"
	"diamondhand/pda"
	"diamondhand/vm"
)

var (
	ErrInvalidMint         = errors.New("invalid mint")
	ErrInvalidTokenAccount = errors.New("invalid token account")
	ErrMintMismatch        = errors.New("token account mint mismatch")
	ErrOwnerMismatch       = errors.New("token account owner mismatch")
	ErrNonZeroBalance      = errors.New("non-native account can only be closed if its balance is zero")
	ErrInvalidAmount       = errors.New("invalid token amount")
	// ErrInsufficientFunds 与账本共用同一个错误值
	ErrInsufficientFunds = vm.ErrInsufficientFunds
)

// Service 代币程序
type Service struct {
	programID           pda.Address
	associatedProgramID pda.Address
}

// NewService 创建代币程序；associatedProgramID 用于派生关联代币账户地址
func NewService(programID, associatedProgramID pda.Address) *Service {
	return &Service{programID: programID, associatedProgramID: associatedProgramID}
}

// ProgramID 代币程序 ID
func (s *Service) ProgramID() pda.Address {
	return s.programID
}

// AssociatedProgramID 关联代币账户程序 ID
func (s *Service) AssociatedProgramID() pda.Address {
	return s.associatedProgramID
}

func (s *Service) associatedSeeds(wallet, mint pda.Address) [][]byte {
	return [][]byte{wallet[:], s.programID[:], mint[:]}
}

// AssociatedAddress 钱包（或 PDA）在某个 mint 下的关联代币账户地址
func (s *Service) AssociatedAddress(wallet, mint pda.Address) (pda.Address, uint8, error) {
	return pda.FindProgramAddress(s.associatedSeeds(wallet, mint), s.associatedProgramID)
}

// ========== 读取 ==========

// LoadMint 读取 mint，必须归代币程序所有且已初始化
func (s *Service) LoadMint(sv vm.StateView, addr pda.Address) (*Mint, error) {
	acc, exists, err := vm.LoadAccount(sv, addr)
	if err != nil {
		return nil, err
	}
	if !exists || acc.Owner != s.programID {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMint, addr)
	}
	m, err := UnmarshalMint(acc.Data)
	if err != nil {
		return nil, err
	}
	if !m.Initialized {
		return nil, fmt.Errorf("%w: %s is not initialized", ErrInvalidMint, addr)
	}
	return m, nil
}

// LoadAccount 读取代币账户，必须归代币程序所有且已初始化
func (s *Service) LoadAccount(sv vm.StateView, addr pda.Address) (*Account, error) {
	acc, exists, err := vm.LoadAccount(sv, addr)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s not found", ErrInvalidTokenAccount, addr)
	}
	if acc.Owner != s.programID {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrInvalidTokenAccount, addr, acc.Owner)
	}
	ta, err := UnmarshalAccount(acc.Data)
	if err != nil {
		return nil, err
	}
	if !ta.Initialized {
		return nil, fmt.Errorf("%w: %s is not initialized", ErrInvalidTokenAccount, addr)
	}
	return ta, nil
}

// Balance 代币账户余额
func (s *Service) Balance(sv vm.StateView, addr pda.Address) (uint64, error) {
	ta, err := s.LoadAccount(sv, addr)
	if err != nil {
		return 0, err
	}
	return ta.Amount, nil
}

// ========== 指令 ==========
// 每条指令都经 ctx.Call 进入代币程序，失败时不留下任何写入。

// InitializeMint 创建并初始化 mint；payer 与 mint 地址都必须签名
func (s *Service) InitializeMint(ctx *vm.InvokeContext, payer, mint pda.Address, decimals uint8, authority pda.Address) error {
	return ctx.Call(s.programID, func(tctx *vm.InvokeContext) error {
		if err := vm.InitializeAccount(tctx, payer, mint, MintSize, s.programID); err != nil {
			return err
		}
		m := &Mint{Decimals: decimals, Initialized: true, MintAuthority: authority}
		if err := vm.WriteAccountData(tctx, mint, m.Marshal()); err != nil {
			return err
		}
		tctx.Logf("initialize mint %s decimals=%d", mint, decimals)
		return nil
	})
}

// CreateAssociatedAccount 为 wallet 创建 mint 的关联代币账户，由 payer 支付押金。
// wallet 可以是没有私钥的 PDA；关联账户地址本身由关联代币程序通过派生 seeds 签名创建。
// 关联地址上已被预先转入 lamports 的空系统账户会被接管。
func (s *Service) CreateAssociatedAccount(ctx *vm.InvokeContext, payer, wallet, mint pda.Address) (pda.Address, error) {
	if _, err := s.LoadMint(ctx.SV, mint); err != nil {
		return pda.Address{}, err
	}
	seeds := s.associatedSeeds(wallet, mint)
	ata, bump, err := pda.FindProgramAddress(seeds, s.associatedProgramID)
	if err != nil {
		return pda.Address{}, err
	}

	err = ctx.Call(s.associatedProgramID, func(actx *vm.InvokeContext) error {
		err := actx.Call(vm.SystemProgramID, func(sysCtx *vm.InvokeContext) error {
			return vm.InitializeAccount(sysCtx, payer, ata, AccountSize, s.programID)
		}, pda.WithBump(seeds, bump))
		if err != nil {
			return err
		}
		return actx.Call(s.programID, func(tctx *vm.InvokeContext) error {
			ta := &Account{Mint: mint, Owner: wallet, Initialized: true}
			if err := vm.WriteAccountData(tctx, ata, ta.Marshal()); err != nil {
				return err
			}
			tctx.Logf("create associated account %s for %s", ata, wallet)
			return nil
		})
	})
	if err != nil {
		return pda.Address{}, err
	}
	return ata, nil
}

// EnsureAssociatedAccount 关联账户已存在则直接返回，否则创建
func (s *Service) EnsureAssociatedAccount(ctx *vm.InvokeContext, payer, wallet, mint pda.Address) (pda.Address, error) {
	ata, _, err := s.AssociatedAddress(wallet, mint)
	if err != nil {
		return pda.Address{}, err
	}
	acc, exists, err := vm.LoadAccount(ctx.SV, ata)
	if err != nil {
		return pda.Address{}, err
	}
	if exists && acc.Owner == s.programID {
		ta, err := s.LoadAccount(ctx.SV, ata)
		if err != nil {
			return pda.Address{}, err
		}
		if ta.Owner != wallet || ta.Mint != mint {
			return pda.Address{}, fmt.Errorf("%w: associated account %s", ErrInvalidTokenAccount, ata)
		}
		return ata, nil
	}
	return s.CreateAssociatedAccount(ctx, payer, wallet, mint)
}

// MintTo 增发；authority 必须是 mint 的增发权限且已签名
func (s *Service) MintTo(ctx *vm.InvokeContext, mint, destination, authority pda.Address, amount uint64) error {
	return ctx.Call(s.programID, func(tctx *vm.InvokeContext) error {
		if err := tctx.RequireSigner(authority); err != nil {
			return err
		}
		m, err := s.LoadMint(tctx.SV, mint)
		if err != nil {
			return err
		}
		if m.MintAuthority != authority {
			return fmt.Errorf("%w: mint authority is %s", ErrOwnerMismatch, m.MintAuthority)
		}
		dst, err := s.LoadAccount(tctx.SV, destination)
		if err != nil {
			return err
		}
		if dst.Mint != mint {
			return fmt.Errorf("%w: %s holds %s", ErrMintMismatch, destination, dst.Mint)
		}
		if m.Supply, err = vm.SafeAdd(m.Supply, amount); err != nil {
			return err
		}
		if dst.Amount, err = vm.SafeAdd(dst.Amount, amount); err != nil {
			return err
		}
		if err := vm.WriteAccountData(tctx, mint, m.Marshal()); err != nil {
			return err
		}
		if err := vm.WriteAccountData(tctx, destination, dst.Marshal()); err != nil {
			return err
		}
		tctx.Logf("mint %s to %s", FormatAmount(amount, m.Decimals), destination)
		return nil
	})
}

// Transfer 在两个同 mint 代币账户之间转移 amount。
// authority 必须是源账户的 owner 且为签名者；signerSeeds 非空时由调用方程序
// 通过派生 seeds 为 PDA authority 签名（PDA 没有私钥）。
func (s *Service) Transfer(ctx *vm.InvokeContext, source, destination, authority pda.Address, amount uint64, signerSeeds ...[][]byte) error {
	return ctx.Call(s.programID, func(tctx *vm.InvokeContext) error {
		if err := tctx.RequireSigner(authority); err != nil {
			return err
		}
		src, err := s.LoadAccount(tctx.SV, source)
		if err != nil {
			return err
		}
		dst, err := s.LoadAccount(tctx.SV, destination)
		if err != nil {
			return err
		}
		if src.Owner != authority {
			return fmt.Errorf("%w: %s is owned by %s, not %s", ErrOwnerMismatch, source, src.Owner, authority)
		}
		if src.Mint != dst.Mint {
			return fmt.Errorf("%w: %s vs %s", ErrMintMismatch, src.Mint, dst.Mint)
		}
		if src.Amount < amount {
			return fmt.Errorf("%w: %s holds %d, need %d", ErrInsufficientFunds, source, src.Amount, amount)
		}
		if source == destination {
			return nil
		}
		src.Amount -= amount
		if dst.Amount, err = vm.SafeAdd(dst.Amount, amount); err != nil {
			return err
		}
		if err := vm.WriteAccountData(tctx, source, src.Marshal()); err != nil {
			return err
		}
		if err := vm.WriteAccountData(tctx, destination, dst.Marshal()); err != nil {
			return err
		}
		tctx.Logf("transfer %d from %s to %s", amount, source, destination)
		logs.Trace("[Token] transfer %d %s -> %s", amount, source, destination)
		return nil
	}, signerSeeds...)
}

// CloseAccount 关闭余额为零的代币账户，押金退给 destination；返回退回的 lamports
func (s *Service) CloseAccount(ctx *vm.InvokeContext, account, destination, authority pda.Address, signerSeeds ...[][]byte) (uint64, error) {
	var refunded uint64
	err := ctx.Call(s.programID, func(tctx *vm.InvokeContext) error {
		if err := tctx.RequireSigner(authority); err != nil {
			return err
		}
		ta, err := s.LoadAccount(tctx.SV, account)
		if err != nil {
			return err
		}
		if ta.Owner != authority {
			return fmt.Errorf("%w: %s is owned by %s, not %s", ErrOwnerMismatch, account, ta.Owner, authority)
		}
		if ta.Amount != 0 {
			return fmt.Errorf("%w: %s holds %d", ErrNonZeroBalance, account, ta.Amount)
		}
		if refunded, err = vm.CloseProgramAccount(tctx, account, destination); err != nil {
			return err
		}
		tctx.Logf("close account %s, %d lamports to %s", account, refunded, destination)
		return nil
	}, signerSeeds...)
	if err != nil {
		return 0, err
	}
	return refunded, nil
}
