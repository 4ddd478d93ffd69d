package vault

import (
	"fmt"

	"diamondhand/logs"
	"diamondhand/pda"
	"diamondhand/token"
	"diamondhand/vm"
)

// Manager 金库生命周期：创建、存入、解锁后提取并关闭
// 所有方法都必须在本程序的 InvokeContext 中执行；任一步失败，调用方丢弃整个 StateView。
type Manager struct {
	programID pda.Address
	tokens    *token.Service
	transfers *Transferor
}

// NewManager 创建生命周期管理器
func NewManager(programID pda.Address, tokens *token.Service) *Manager {
	return &Manager{
		programID: programID,
		tokens:    tokens,
		transfers: NewTransferor(programID, tokens),
	}
}

// ProgramID 金库程序 ID
func (m *Manager) ProgramID() pda.Address {
	return m.programID
}

// Address 派生 (owner, asset) 的金库地址
func (m *Manager) Address(owner pda.Address, asset AssetClass) (pda.Address, uint8, error) {
	return DeriveAddress(owner, asset, m.programID)
}

func (m *Manager) checkContext(ctx *vm.InvokeContext) error {
	if ctx.ProgramID != m.programID {
		return fmt.Errorf("%w: vault instruction executing as %s", vm.ErrIllegalOwner, ctx.ProgramID)
	}
	return nil
}

// ========== 创建 ==========

// CreateVault 为 owner 创建 asset 的金库，owner 支付记录押金（fungible 另付关联账户押金）
func (m *Manager) CreateVault(ctx *vm.InvokeContext, owner pda.Address, asset AssetClass, policy UnlockPolicy) (*Record, error) {
	if err := m.checkContext(ctx); err != nil {
		return nil, err
	}
	if !ctx.IsSigner(owner) {
		return nil, fmt.Errorf("%w: %s", ErrMissingSigner, owner)
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	if !asset.IsNative() {
		if _, err := m.tokens.LoadMint(ctx.SV, asset.Mint); err != nil {
			return nil, externalErr("load mint", err)
		}
	}

	addr, bump, err := m.Address(owner, asset)
	if err != nil {
		return nil, err
	}
	acc, exists, err := vm.LoadAccount(ctx.SV, addr)
	if err != nil {
		return nil, err
	}
	if exists && acc.Owner == m.programID {
		return nil, fmt.Errorf("%w: %s", ErrAddressCollision, addr)
	}

	// 地址上若只是被人预先转入 lamports 的空系统账户，InitializeAccount 会补足押金后接管
	reserve := ctx.Rent.MinimumBalance(RecordSize)
	rec := NewRecord(owner, policy, asset, bump, reserve)
	err = ctx.Call(vm.SystemProgramID, func(sysCtx *vm.InvokeContext) error {
		return vm.InitializeAccount(sysCtx, owner, addr, RecordSize, m.programID)
	}, SignerSeeds(owner, asset, bump))
	if err != nil {
		return nil, err
	}
	if err := vm.WriteAccountData(ctx, addr, rec.Marshal()); err != nil {
		return nil, err
	}

	if !asset.IsNative() {
		if _, err := m.tokens.EnsureAssociatedAccount(ctx, owner, addr, asset.Mint); err != nil {
			return nil, externalErr("create vault token account", err)
		}
	}

	ctx.Logf("create vault %s owner=%s asset=%s unlock_ts=%d always=%t",
		addr, owner, asset, policy.UnlockTimestamp(), policy.AlwaysUnlockable())
	logs.Info("[Vault] created %s owner=%s asset=%s", addr, owner, asset)
	return rec, nil
}

// ========== 存入 ==========

// Deposit owner 向自己的金库存入 amount
func (m *Manager) Deposit(ctx *vm.InvokeContext, owner pda.Address, asset AssetClass, amount uint64) error {
	if err := m.checkContext(ctx); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	addr, rec, err := m.loadOwned(ctx, owner, asset)
	if err != nil {
		return err
	}
	if err := m.transfers.Transfer(ctx, asset, owner, addr, amount, nil); err != nil {
		return fmt.Errorf("deposit into %s: %w", addr, err)
	}
	ctx.Logf("deposit %s into vault %s", m.formatAmount(ctx.SV, rec.Asset(), amount), addr)
	logs.Info("[Vault] deposit %d into %s", amount, addr)
	return nil
}

// ========== 提取并关闭 ==========

// Withdrawal 提取结果
type Withdrawal struct {
	Vault pda.Address
	// Amount 转回 owner 的托管资产数量
	Amount uint64
	// RentRefund 关闭账户退回的押金（lamports）
	RentRefund uint64
}

// WithdrawAndClose 解锁后把全部托管资产转回 owner 并回收金库存储
func (m *Manager) WithdrawAndClose(ctx *vm.InvokeContext, owner pda.Address, asset AssetClass) (*Withdrawal, error) {
	if err := m.checkContext(ctx); err != nil {
		return nil, err
	}
	addr, rec, err := m.loadOwned(ctx, owner, asset)
	if err != nil {
		return nil, err
	}
	unlocked, err := IsUnlocked(rec, ctx.Clock)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, fmt.Errorf("%w: vault %s unlocks at %d", ErrStillLocked, addr, rec.UnlockTimestamp())
	}

	held, err := m.HeldBalance(ctx.SV, addr, rec)
	if err != nil {
		return nil, err
	}
	proof := &AuthorityProof{Owner: rec.Owner(), Asset: rec.Asset(), Bump: rec.Bump()}

	if !asset.IsNative() {
		if _, err := m.tokens.EnsureAssociatedAccount(ctx, owner, owner, asset.Mint); err != nil {
			return nil, externalErr("ensure owner token account", err)
		}
	}
	if held > 0 {
		if err := m.transfers.Transfer(ctx, asset, addr, owner, held, proof); err != nil {
			return nil, fmt.Errorf("withdraw from %s: %w", addr, err)
		}
	}
	holdingRefund, err := m.transfers.CloseHolding(ctx, asset, addr, owner, *proof)
	if err != nil {
		return nil, err
	}
	recordRefund, err := vm.CloseProgramAccount(ctx, addr, owner)
	if err != nil {
		return nil, err
	}

	w := &Withdrawal{Vault: addr, Amount: held, RentRefund: holdingRefund + recordRefund}
	ctx.Logf("withdraw %s from vault %s, refund %d lamports", m.formatAmount(ctx.SV, asset, held), addr, w.RentRefund)
	logs.Info("[Vault] closed %s, returned %d to %s", addr, held, owner)
	return w, nil
}

// loadOwned owner 必须签名且是记录中的 owner
func (m *Manager) loadOwned(ctx *vm.InvokeContext, owner pda.Address, asset AssetClass) (pda.Address, *Record, error) {
	if !ctx.IsSigner(owner) {
		return pda.Address{}, nil, fmt.Errorf("%w: %s did not sign", ErrOwnerMismatch, owner)
	}
	addr, _, err := m.Address(owner, asset)
	if err != nil {
		return pda.Address{}, nil, err
	}
	rec, err := m.LoadRecord(ctx.SV, addr)
	if err != nil {
		return pda.Address{}, nil, err
	}
	if rec.Owner() != owner {
		return pda.Address{}, nil, fmt.Errorf("%w: vault %s belongs to %s", ErrOwnerMismatch, addr, rec.Owner())
	}
	if rec.Asset() != asset {
		return pda.Address{}, nil, fmt.Errorf("%w: vault %s holds %s", ErrInvalidRecord, addr, rec.Asset())
	}
	return addr, rec, nil
}

// ========== 查询 ==========

// LoadRecord 读取并解码金库记录
func (m *Manager) LoadRecord(sv vm.StateView, addr pda.Address) (*Record, error) {
	acc, exists, err := vm.LoadAccount(sv, addr)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, addr)
	}
	if acc.Owner != m.programID {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrInvalidRecord, addr, acc.Owner)
	}
	return UnmarshalRecord(acc.Data)
}

// HeldBalance 金库托管的资产数量
// native: 账户 lamports 减去创建时记录的押金；fungible: 金库关联代币账户余额
func (m *Manager) HeldBalance(sv vm.StateView, addr pda.Address, rec *Record) (uint64, error) {
	if rec.Asset().IsNative() {
		acc, err := vm.MustLoadAccount(sv, addr)
		if err != nil {
			return 0, err
		}
		if acc.Lamports < rec.RentReserve() {
			return 0, nil
		}
		return acc.Lamports - rec.RentReserve(), nil
	}
	ata, _, err := m.tokens.AssociatedAddress(addr, rec.Asset().Mint)
	if err != nil {
		return 0, externalErr("derive vault token account", err)
	}
	bal, err := m.tokens.Balance(sv, ata)
	if err != nil {
		return 0, externalErr("read vault token balance", err)
	}
	return bal, nil
}

// View 金库只读快照
type View struct {
	Address  pda.Address
	Record   *Record
	Balance  uint64
	Unlocked bool
}

// Get 查询 (owner, asset) 的金库
func (m *Manager) Get(sv vm.StateView, clock vm.Clock, owner pda.Address, asset AssetClass) (*View, error) {
	addr, _, err := m.Address(owner, asset)
	if err != nil {
		return nil, err
	}
	rec, err := m.LoadRecord(sv, addr)
	if err != nil {
		return nil, err
	}
	bal, err := m.HeldBalance(sv, addr, rec)
	if err != nil {
		return nil, err
	}
	unlocked, err := IsUnlocked(rec, clock)
	if err != nil {
		return nil, err
	}
	return &View{Address: addr, Record: rec, Balance: bal, Unlocked: unlocked}, nil
}

func (m *Manager) formatAmount(sv vm.StateView, asset AssetClass, amount uint64) string {
	if asset.IsNative() {
		return token.FormatAmount(amount, NativeDecimals) + " SOL"
	}
	mint, err := m.tokens.LoadMint(sv, asset.Mint)
	if err != nil {
		return fmt.Sprintf("%d", amount)
	}
	return token.FormatAmount(amount, mint.Decimals)
}
