package token

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatAmount 把最小单位数量按 decimals 转成可读字符串，例如 (1500000, 6) -> "1.500000"
func FormatAmount(amount uint64, decimals uint8) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
	return d.StringFixed(int32(decimals))
}

// ParseAmount 把可读字符串转成最小单位数量；精度超过 decimals 或越界时返回 false
func ParseAmount(s string, decimals uint8) (uint64, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, false
	}
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, false
	}
	return bi.Uint64(), true
}
