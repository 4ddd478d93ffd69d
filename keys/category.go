// keys/category.go
// Key 分类：区分可变账户状态与不可变的回执流水
package keys

import "strings"

// KeyCategory 定义 Key 的存储归属
type KeyCategory int

const (
	CategoryKV    KeyCategory = iota // 不可变流水（回执）
	CategoryState                    // 可变状态（账户）
)

// 可变状态数据前缀
var statePrefixes = []string{
	withVer("account_"),
}

// CategorizeKey 判断 key 属于哪一类
func CategorizeKey(key string) KeyCategory {
	for _, prefix := range statePrefixes {
		if strings.HasPrefix(key, prefix) {
			return CategoryState
		}
	}
	return CategoryKV
}

// CategoryName 用于 WriteOp.Category，便于追踪和调试
func CategoryName(key string) string {
	switch {
	case IsAccountKey(key):
		return "account"
	case IsReceiptKey(key):
		return "receipt"
	default:
		return "meta"
	}
}

// IsStatefulKey 判断 key 是否属于可变状态（便捷方法）
func IsStatefulKey(key string) bool {
	return CategorizeKey(key) == CategoryState
}

// IsAccountKey 判断是否为账户数据
func IsAccountKey(key string) bool {
	return strings.HasPrefix(key, KeyAccountPrefix())
}

// IsReceiptKey 判断是否为交易回执
func IsReceiptKey(key string) bool {
	return strings.HasPrefix(key, KeyReceiptPrefix())
}
