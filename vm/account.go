package vm

import (
	"fmt"

	"diamondhand/keys"
	"diamondhand/pda"

	"google.golang.org/protobuf/encoding/protowire"
)

// Account 账本账户：余额 + 所属程序 + 数据区
// 只有 Owner 程序可以修改 Data 或扣减 Lamports；任何人都可以给账户加钱。
type Account struct {
	Lamports uint64
	Owner    pda.Address
	Data     []byte
}

const (
	fieldAccountLamports protowire.Number = 1
	fieldAccountOwner    protowire.Number = 2
	fieldAccountData     protowire.Number = 3
)

// Marshal 编码
func (a *Account) Marshal() []byte {
	b := make([]byte, 0, 48+len(a.Data))
	b = AppendUvarint(b, fieldAccountLamports, a.Lamports)
	b = AppendAddress(b, fieldAccountOwner, a.Owner)
	if len(a.Data) > 0 {
		b = AppendBytes(b, fieldAccountData, a.Data)
	}
	return b
}

// UnmarshalAccount 解码
func UnmarshalAccount(b []byte) (*Account, error) {
	acc := &Account{}
	err := WalkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case fieldAccountLamports:
			x, n, err := ConsumeUvarint(typ, v)
			acc.Lamports = x
			return n, err
		case fieldAccountOwner:
			x, n, err := ConsumeAddress(typ, v)
			acc.Owner = x
			return n, err
		case fieldAccountData:
			x, n, err := ConsumeBytes(typ, v)
			acc.Data = x
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// LoadAccount 读取账户；不存在时 exists=false 且 err=nil
func LoadAccount(sv StateView, addr pda.Address) (*Account, bool, error) {
	data, exists, err := sv.Get(keys.KeyAccount(addr.String()))
	if err != nil {
		return nil, false, fmt.Errorf("read account %s: %w", addr, err)
	}
	if !exists || len(data) == 0 {
		return nil, false, nil
	}
	acc, err := UnmarshalAccount(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode account %s: %w", addr, err)
	}
	return acc, true, nil
}

// MustLoadAccount 读取账户，不存在返回 ErrAccountNotFound
func MustLoadAccount(sv StateView, addr pda.Address) (*Account, error) {
	acc, exists, err := LoadAccount(sv, addr)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acc, nil
}

// StoreAccount 写回账户
func StoreAccount(sv StateView, addr pda.Address, acc *Account) {
	sv.Set(keys.KeyAccount(addr.String()), acc.Marshal())
}

// DeleteAccount 删除账户（存储被回收）
func DeleteAccount(sv StateView, addr pda.Address) {
	sv.Del(keys.KeyAccount(addr.String()))
}

// AccountExists 账户是否存在
func AccountExists(sv StateView, addr pda.Address) (bool, error) {
	_, exists, err := LoadAccount(sv, addr)
	return exists, err
}
