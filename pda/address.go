// pda/address.go
// 32 字节账户地址，对外统一使用 base58 文本形式

package pda

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// AddressSize 地址长度（与 Ed25519 公钥一致）
const AddressSize = 32

var (
	// ErrInvalidAddress 地址格式错误
	ErrInvalidAddress = errors.New("invalid address")
)

// Address 账户地址，可能是 Ed25519 公钥，也可能是程序派生地址（不在曲线上）
type Address [AddressSize]byte

// ParseAddress 从 base58 字符串解析地址
func ParseAddress(s string) (Address, error) {
	var a Address
	if s == "" {
		return a, fmt.Errorf("%w: empty string", ErrInvalidAddress)
	}
	raw := base58.Decode(s)
	if len(raw) != AddressSize {
		return a, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, s, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// MustParseAddress 仅用于常量/测试
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes 从原始字节构造地址
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidAddress, AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// String base58 编码
func (a Address) String() string {
	return base58.Encode(a[:])
}

// Bytes 返回副本
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

func (a Address) IsZero() bool {
	return a == Address{}
}
