// keys/keys_test.go
package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAccountKeys 测试账户相关 key 函数
func TestAccountKeys(t *testing.T) {
	t.Run("KeyAccount", func(t *testing.T) {
		key := KeyAccount("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
		assert.Equal(t, "v1_account_9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", key)
	})

	t.Run("AccountFromKey", func(t *testing.T) {
		addr, ok := AccountFromKey(KeyAccount("abc"))
		assert.True(t, ok)
		assert.Equal(t, "abc", addr)

		_, ok = AccountFromKey(KeyReceipt("abc"))
		assert.False(t, ok)
	})
}

// TestCategorizeKey 账户属于可变状态，回执属于流水
func TestCategorizeKey(t *testing.T) {
	assert.True(t, IsStatefulKey(KeyAccount("abc")))
	assert.False(t, IsStatefulKey(KeyReceipt("tx1")))

	assert.Equal(t, "account", CategoryName(KeyAccount("abc")))
	assert.Equal(t, "receipt", CategoryName(KeyReceipt("tx1")))
	assert.Equal(t, "meta", CategoryName("other"))
}
