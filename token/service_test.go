package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"diamondhand/pda"
	"diamondhand/vm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenProgram = pda.MustParseAddress("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	ataProgram   = pda.MustParseAddress("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

func newAddr(t *testing.T) pda.Address {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return vm.PublicAddress(priv)
}

type fixture struct {
	svc   *Service
	sv    vm.StateView
	payer pda.Address
	mint  pda.Address
}

// ctx 以给定签名者构造顶层上下文
func (f *fixture) ctx(signers ...pda.Address) *vm.InvokeContext {
	return vm.NewInvokeContext(f.sv, vm.NewManualClock(0), vm.DefaultRent(), tokenProgram, "tx", signers)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		svc:   NewService(tokenProgram, ataProgram),
		sv:    vm.NewStateView(nil),
		payer: newAddr(t),
		mint:  newAddr(t),
	}
	vm.StoreAccount(f.sv, f.payer, &vm.Account{Lamports: 1_000_000_000, Owner: vm.SystemProgramID})
	require.NoError(t, f.svc.InitializeMint(f.ctx(f.payer, f.mint), f.payer, f.mint, 6, f.payer))
	return f
}

func TestMintAndTransfer(t *testing.T) {
	f := newFixture(t)
	bob := newAddr(t)

	payerATA, err := f.svc.CreateAssociatedAccount(f.ctx(f.payer), f.payer, f.payer, f.mint)
	require.NoError(t, err)
	bobATA, err := f.svc.EnsureAssociatedAccount(f.ctx(f.payer), f.payer, bob, f.mint)
	require.NoError(t, err)

	// 关联地址可重算
	again, _, err := f.svc.AssociatedAddress(bob, f.mint)
	require.NoError(t, err)
	assert.Equal(t, bobATA, again)
	assert.False(t, pda.IsOnCurve(bobATA[:]))

	require.NoError(t, f.svc.MintTo(f.ctx(f.payer), f.mint, payerATA, f.payer, 1_000))
	m, err := f.svc.LoadMint(f.sv, f.mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), m.Supply)

	require.NoError(t, f.svc.Transfer(f.ctx(f.payer), payerATA, bobATA, f.payer, 400))
	bal, err := f.svc.Balance(f.sv, payerATA)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), bal)
	bal, err = f.svc.Balance(f.sv, bobATA)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), bal)

	t.Run("insufficient funds", func(t *testing.T) {
		err := f.svc.Transfer(f.ctx(f.payer), payerATA, bobATA, f.payer, 601)
		assert.ErrorIs(t, err, vm.ErrInsufficientFunds)
	})

	t.Run("authority must sign", func(t *testing.T) {
		err := f.svc.Transfer(f.ctx(), payerATA, bobATA, f.payer, 1)
		assert.ErrorIs(t, err, vm.ErrMissingSignature)
	})

	t.Run("authority must own source", func(t *testing.T) {
		err := f.svc.Transfer(f.ctx(bob), payerATA, bobATA, bob, 1)
		assert.ErrorIs(t, err, ErrOwnerMismatch)
	})

	t.Run("close requires zero balance", func(t *testing.T) {
		_, err := f.svc.CloseAccount(f.ctx(bob), bobATA, bob, bob)
		assert.ErrorIs(t, err, ErrNonZeroBalance)
	})
}

func TestPDAAuthorityViaSignerSeeds(t *testing.T) {
	f := newFixture(t)
	caller := pda.MustParseAddress("5Zm2UQMSM63NLJGkQYP6xqqGm2EPzYyVNtyPpJnJb5iD")
	seeds := [][]byte{[]byte("escrow")}
	escrow, bump, err := pda.FindProgramAddress(seeds, caller)
	require.NoError(t, err)

	escrowATA, err := f.svc.CreateAssociatedAccount(f.ctx(f.payer), f.payer, escrow, f.mint)
	require.NoError(t, err)
	payerATA, err := f.svc.CreateAssociatedAccount(f.ctx(f.payer), f.payer, f.payer, f.mint)
	require.NoError(t, err)
	require.NoError(t, f.svc.MintTo(f.ctx(f.payer), f.mint, escrowATA, f.payer, 50))

	callerCtx := vm.NewInvokeContext(f.sv, vm.NewManualClock(0), vm.DefaultRent(), caller, "tx", nil)

	// 没有 seeds 时 PDA 不是签名者
	err = f.svc.Transfer(callerCtx, escrowATA, payerATA, escrow, 50)
	assert.ErrorIs(t, err, vm.ErrMissingSignature)

	// 错误的 bump 派生出别的地址
	wrong := pda.WithBump(seeds, bump-1)
	err = f.svc.Transfer(callerCtx, escrowATA, payerATA, escrow, 50, wrong)
	assert.Error(t, err)

	require.NoError(t, f.svc.Transfer(callerCtx, escrowATA, payerATA, escrow, 50, pda.WithBump(seeds, bump)))
	refunded, err := f.svc.CloseAccount(callerCtx, escrowATA, f.payer, escrow, pda.WithBump(seeds, bump))
	require.NoError(t, err)
	assert.Equal(t, vm.DefaultRent().MinimumBalance(AccountSize), refunded)

	exists, err := vm.AccountExists(f.sv, escrowATA)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateAssociatedAccountAdoptsPrefundedAddress(t *testing.T) {
	f := newFixture(t)
	bob := newAddr(t)
	ata, _, err := f.svc.AssociatedAddress(bob, f.mint)
	require.NoError(t, err)

	// 有人先往关联地址转了 1 lamport
	vm.StoreAccount(f.sv, ata, &vm.Account{Lamports: 1, Owner: vm.SystemProgramID})

	got, err := f.svc.EnsureAssociatedAccount(f.ctx(f.payer), f.payer, bob, f.mint)
	require.NoError(t, err)
	assert.Equal(t, ata, got)

	acc, err := vm.MustLoadAccount(f.sv, ata)
	require.NoError(t, err)
	assert.Equal(t, tokenProgram, acc.Owner)
	assert.Equal(t, vm.DefaultRent().MinimumBalance(AccountSize), acc.Lamports)
	ta, err := f.svc.LoadAccount(f.sv, ata)
	require.NoError(t, err)
	assert.Equal(t, bob, ta.Owner)

	// 已初始化的关联账户不能再次创建
	_, err = f.svc.CreateAssociatedAccount(f.ctx(f.payer), f.payer, bob, f.mint)
	assert.ErrorIs(t, err, vm.ErrAccountInUse)
}

func TestFailedInstructionLeavesNoWrites(t *testing.T) {
	f := newFixture(t)
	payerATA, err := f.svc.CreateAssociatedAccount(f.ctx(f.payer), f.payer, f.payer, f.mint)
	require.NoError(t, err)

	before := f.sv.Diff()
	// 目标账户不存在：指令失败，mint 与源账户都不变
	err = f.svc.MintTo(f.ctx(f.payer), f.mint, newAddr(t), f.payer, 10)
	assert.ErrorIs(t, err, ErrInvalidTokenAccount)
	assert.Equal(t, before, f.sv.Diff())

	bal, err := f.svc.Balance(f.sv, payerATA)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.500000", FormatAmount(1_500_000, 6))
	assert.Equal(t, "500", FormatAmount(500, 0))

	v, ok := ParseAmount("1.5", 6)
	require.True(t, ok)
	assert.Equal(t, uint64(1_500_000), v)

	_, ok = ParseAmount("0.0000001", 6)
	assert.False(t, ok)
	_, ok = ParseAmount("-1", 6)
	assert.False(t, ok)
}

func TestInstructionEncoding(t *testing.T) {
	in := &Instruction{Mint: newAddr(t), Destination: newAddr(t), Amount: 42, Decimals: 9}
	got, err := DecodeInstruction(in.Encode())
	require.NoError(t, err)
	assert.Equal(t, in, got)
}
