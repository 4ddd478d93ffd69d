package vault

import (
	"errors"
	"fmt"

	"diamondhand/vm"
)

var (
	// ErrAddressCollision 派生地址上已有账户
	ErrAddressCollision = errors.New("vault already exists at derived address")
	// ErrOwnerMismatch 调用方不是记录中的 owner
	ErrOwnerMismatch = errors.New("caller is not the vault owner")
	// ErrInsufficientFunds 与账本、代币程序共用同一个错误值
	ErrInsufficientFunds = vm.ErrInsufficientFunds
	// ErrStillLocked 解锁条件未满足
	ErrStillLocked = errors.New("store is LOCKED")
	// ErrExternalService 时钟或代币程序失败
	ErrExternalService = errors.New("external service failure")

	ErrVaultNotFound    = errors.New("vault not found")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrMissingSigner    = errors.New("owner must sign vault creation")
	ErrInvalidAuthority = errors.New("authority proof does not match vault address")
	ErrInvalidRecord    = errors.New("invalid vault record")
	ErrInvalidAsset     = errors.New("invalid asset class")
)

// externalErr 把协作方错误包装为 ErrExternalService；余额不足保持原样
func externalErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInsufficientFunds) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrExternalService, op, err)
}
