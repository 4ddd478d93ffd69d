// token/state.go
// 代币程序账户布局：固定宽度、小端序，账户数据长度在创建时确定

package token

import (
	"encoding/binary"
	"fmt"

	"diamondhand/pda"
)

const (
	// MintSize supply(8) | decimals(1) | initialized(1) | mint_authority(32)
	MintSize = 42
	// AccountSize mint(32) | owner(32) | amount(8) | initialized(1)
	AccountSize = 73
)

// Mint 代币定义
type Mint struct {
	Supply        uint64
	Decimals      uint8
	Initialized   bool
	MintAuthority pda.Address
}

// Marshal 编码
func (m *Mint) Marshal() []byte {
	b := make([]byte, MintSize)
	binary.LittleEndian.PutUint64(b[0:8], m.Supply)
	b[8] = m.Decimals
	if m.Initialized {
		b[9] = 1
	}
	copy(b[10:42], m.MintAuthority[:])
	return b
}

// UnmarshalMint 解码
func UnmarshalMint(b []byte) (*Mint, error) {
	if len(b) != MintSize {
		return nil, fmt.Errorf("%w: mint data is %d bytes", ErrInvalidMint, len(b))
	}
	m := &Mint{
		Supply:      binary.LittleEndian.Uint64(b[0:8]),
		Decimals:    b[8],
		Initialized: b[9] == 1,
	}
	copy(m.MintAuthority[:], b[10:42])
	return m, nil
}

// Account 代币账户（持有某一种代币的余额）
type Account struct {
	Mint        pda.Address
	Owner       pda.Address // 有权转出的地址（钱包或 PDA）
	Amount      uint64
	Initialized bool
}

// Marshal 编码
func (a *Account) Marshal() []byte {
	b := make([]byte, AccountSize)
	copy(b[0:32], a.Mint[:])
	copy(b[32:64], a.Owner[:])
	binary.LittleEndian.PutUint64(b[64:72], a.Amount)
	if a.Initialized {
		b[72] = 1
	}
	return b
}

// UnmarshalAccount 解码
func UnmarshalAccount(b []byte) (*Account, error) {
	if len(b) != AccountSize {
		return nil, fmt.Errorf("%w: token account data is %d bytes", ErrInvalidTokenAccount, len(b))
	}
	a := &Account{
		Amount:      binary.LittleEndian.Uint64(b[64:72]),
		Initialized: b[72] == 1,
	}
	copy(a.Mint[:], b[0:32])
	copy(a.Owner[:], b[32:64])
	return a, nil
}
