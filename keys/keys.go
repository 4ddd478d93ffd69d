// keys/keys.go
// 统一的 Key 定义包，供 VM、Executor 和 DB 模块共同使用
package keys

import (
	"strings"
)

// ===================== 版本控制 =====================
// 设置全局 Key 版本前缀（例如 "v1" → 产出 "v1_<key>"）。
const KeyVersion = "v1"

// withVer 把版本号拼到最前面（保持下划线风格：v1_<...>）
func withVer(s string) string {
	if KeyVersion == "" {
		return s
	}
	return KeyVersion + "_" + s
}

// ===================== 账户相关 =====================

// KeyAccount 账户数据（lamports、owner 程序、data）
// 例：v1_account_<base58 address>
func KeyAccount(addr string) string {
	return withVer("account_" + addr)
}

// KeyAccountPrefix 账户前缀，用于全量扫描
// 例：v1_account_
func KeyAccountPrefix() string {
	return withVer("account_")
}

// AccountFromKey 从账户 key 中取回 base58 地址
func AccountFromKey(key string) (string, bool) {
	p := KeyAccountPrefix()
	if !strings.HasPrefix(key, p) {
		return "", false
	}
	return key[len(p):], true
}

// ===================== 交易回执相关 =====================

// KeyReceipt 交易执行回执（成功或失败都会落库，兼作重放保护）
// 例：v1_receipt_<txID>
func KeyReceipt(txID string) string {
	return withVer("receipt_" + txID)
}

// KeyReceiptPrefix 回执前缀
// 例：v1_receipt_
func KeyReceiptPrefix() string {
	return withVer("receipt_")
}
