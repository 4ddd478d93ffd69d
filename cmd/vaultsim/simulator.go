package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"diamondhand/config"
	"diamondhand/keys"
	"diamondhand/logs"
	"diamondhand/pda"
	"diamondhand/token"
	"diamondhand/vault"
	"diamondhand/vm"
)

// 模拟起始时间 2024-01-01T00:00:00Z
const simEpoch = int64(1_704_067_200)

// Scanner 按前缀遍历已提交状态；MemStore 与 db.Manager 都实现了它
type Scanner interface {
	Scan(prefix string) (map[string][]byte, error)
}

// Simulator 把执行器、代币程序和金库程序组装在一起，按顺序提交交易
type Simulator struct {
	store  vm.Store
	exec   *vm.Executor
	clock  *vm.ManualClock
	tokens *token.Service
	vaults *vault.Manager
	nonce  uint64
}

// NewSimulator 按配置注册所有程序
func NewSimulator(cfg *config.Config, store vm.Store) (*Simulator, error) {
	ids, err := cfg.ParsePrograms()
	if err != nil {
		return nil, err
	}
	rent := vm.Rent{
		LamportsPerByteYear: cfg.Rent.LamportsPerByteYear,
		ExemptionThreshold:  cfg.Rent.ExemptionThreshold,
	}
	clock := vm.NewManualClock(simEpoch)
	tokens := token.NewService(ids.Token, ids.AssociatedToken)
	vaults := vault.NewManager(ids.Vault, tokens)

	reg := vm.NewHandlerRegistry()
	if err := vm.RegisterDefaultHandlers(reg); err != nil {
		return nil, err
	}
	if err := token.RegisterHandlers(reg, tokens); err != nil {
		return nil, err
	}
	if err := vault.RegisterHandlers(reg, vaults); err != nil {
		return nil, err
	}
	logs.Debug("[Sim] registered handlers: %v", reg.List())

	return &Simulator{
		store:  store,
		exec:   vm.NewExecutor(store, reg, clock, rent),
		clock:  clock,
		tokens: tokens,
		vaults: vaults,
	}, nil
}

// Run native | fungible | all
func (s *Simulator) Run(scenario string) error {
	switch scenario {
	case "native":
		return s.RunNative()
	case "fungible":
		return s.RunFungible()
	case "all":
		if err := s.RunNative(); err != nil {
			return err
		}
		return s.RunFungible()
	}
	return fmt.Errorf("unknown scenario %q", scenario)
}

func (s *Simulator) send(kind string, data []byte, keys ...ed25519.PrivateKey) (*vm.Receipt, error) {
	s.nonce++
	rc, err := s.exec.Execute(vm.SignTx(kind, s.nonce, data, keys...))
	if rc != nil {
		logs.Info("[Sim] tx %s kind=%s status=%s", rc.TxID, rc.Kind, rc.Status)
		if logs.Level() <= logs.LevelVerbose {
			for _, l := range rc.Logs {
				logs.Verbose("[Sim]   %s", l)
			}
		}
	}
	return rc, err
}

func newKey() (ed25519.PrivateKey, pda.Address, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, pda.Address{}, err
	}
	return priv, vm.PublicAddress(priv), nil
}

// newWallet 生成密钥并空投 lamports
func (s *Simulator) newWallet(lamports uint64) (ed25519.PrivateKey, pda.Address, error) {
	priv, addr, err := newKey()
	if err != nil {
		return nil, pda.Address{}, err
	}
	if err := s.exec.Airdrop(addr, lamports); err != nil {
		return nil, pda.Address{}, err
	}
	return priv, addr, nil
}

// amount 把可读数量换算为最小单位
func amount(s string, decimals uint8) (uint64, error) {
	v, ok := token.ParseAmount(s, decimals)
	if !ok {
		return 0, fmt.Errorf("invalid amount %q for %d decimals", s, decimals)
	}
	return v, nil
}

// ========== 场景一：原生资产时间锁 ==========

// RunNative 创建一小时后解锁的原生金库，存入 1 SOL，
// 到期前提取必须失败，到期后提取成功并关闭金库。
func (s *Simulator) RunNative() error {
	priv, owner, err := s.newWallet(5_000_000_000)
	if err != nil {
		return err
	}
	now, _ := s.clock.UnixTimestamp()
	in := &vault.Instruction{Owner: owner, Asset: vault.Native(), UnlockTimestamp: now + 3600}

	if _, err := s.send(vault.KindCreate, in.Encode(), priv); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if in.Amount, err = amount("1", vault.NativeDecimals); err != nil {
		return err
	}
	if _, err := s.send(vault.KindDeposit, in.Encode(), priv); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}

	_, err = s.send(vault.KindWithdraw, in.Encode(), priv)
	if !errors.Is(err, vault.ErrStillLocked) {
		return fmt.Errorf("early withdraw: expected %v, got %v", vault.ErrStillLocked, err)
	}

	s.clock.Advance(time.Hour)
	if _, err := s.send(vault.KindWithdraw, in.Encode(), priv); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	return s.expectLamports(owner, 5_000_000_000)
}

// ========== 场景二：始终可解锁的代币金库 ==========

// RunFungible 发行代币，创建 always_unlockable 金库，存入后立即取出
func (s *Simulator) RunFungible() error {
	priv, owner, err := s.newWallet(5_000_000_000)
	if err != nil {
		return err
	}
	mintKey, mint, err := newKey()
	if err != nil {
		return err
	}

	tin := &token.Instruction{Mint: mint, Decimals: 6, Authority: owner}
	if _, err := s.send(token.KindInitializeMint, tin.Encode(), priv, mintKey); err != nil {
		return fmt.Errorf("initialize mint: %w", err)
	}
	tin = &token.Instruction{Mint: mint, Wallet: owner}
	if _, err := s.send(token.KindCreateAssociatedAccount, tin.Encode(), priv); err != nil {
		return fmt.Errorf("create token account: %w", err)
	}
	ownerATA, _, err := s.tokens.AssociatedAddress(owner, mint)
	if err != nil {
		return err
	}
	tin = &token.Instruction{Mint: mint, Destination: ownerATA, Amount: 5_000_000}
	if _, err := s.send(token.KindMintTo, tin.Encode(), priv); err != nil {
		return fmt.Errorf("mint: %w", err)
	}

	asset := vault.FungibleToken(mint)
	in := &vault.Instruction{Owner: owner, Asset: asset, UnlockTimestamp: simEpoch + 10*365*24*3600, AlwaysUnlockable: true}
	if _, err := s.send(vault.KindCreate, in.Encode(), priv); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if in.Amount, err = amount("2.5", 6); err != nil {
		return err
	}
	if _, err := s.send(vault.KindDeposit, in.Encode(), priv); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}

	view, err := s.vaults.Get(s.exec.View(), s.exec.Clock(), owner, asset)
	if err != nil {
		return err
	}
	logs.Info("[Sim] vault %s holds %s, unlocked=%t", view.Address, token.FormatAmount(view.Balance, 6), view.Unlocked)

	if _, err := s.send(vault.KindWithdraw, in.Encode(), priv); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	bal, err := s.tokens.Balance(s.exec.View(), ownerATA)
	if err != nil {
		return err
	}
	if bal != 5_000_000 {
		return fmt.Errorf("owner token balance %d, want %d", bal, 5_000_000)
	}
	return nil
}

func (s *Simulator) expectLamports(addr pda.Address, want uint64) error {
	acc, ok, err := vm.LoadAccount(s.exec.View(), addr)
	if err != nil {
		return err
	}
	if !ok || acc.Lamports != want {
		return fmt.Errorf("%s holds %v lamports, want %d", addr, acc, want)
	}
	return nil
}

// ========== 状态汇总 ==========

// Summary 已提交状态中的账户统计
type Summary struct {
	Accounts   int
	OpenVaults int
	// VaultLamports 所有金库记录账户的 lamports 之和（含押金）
	VaultLamports uint64
}

// Summarize 遍历全部账户，统计归金库程序所有的记录
func (s *Simulator) Summarize() (*Summary, error) {
	sc, ok := s.store.(Scanner)
	if !ok {
		return nil, fmt.Errorf("store %T cannot scan", s.store)
	}
	entries, err := sc.Scan(keys.KeyAccountPrefix())
	if err != nil {
		return nil, err
	}
	sum := &Summary{}
	for k, v := range entries {
		raw, ok := keys.AccountFromKey(k)
		if !ok {
			continue
		}
		if _, err := pda.ParseAddress(raw); err != nil {
			return nil, fmt.Errorf("account key %q: %w", k, err)
		}
		acc, err := vm.UnmarshalAccount(v)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", raw, err)
		}
		sum.Accounts++
		if acc.Owner == s.vaults.ProgramID() {
			sum.OpenVaults++
			sum.VaultLamports += acc.Lamports
		}
	}
	return sum, nil
}
