package vault

import (
	"fmt"

	"diamondhand/pda"
)

// AssetKind 资产类别
type AssetKind uint8

const (
	AssetNative   AssetKind = 0 // 链原生资产（lamports）
	AssetFungible AssetKind = 1 // 同质化代币（由 Mint 指定）
)

func (k AssetKind) String() string {
	switch k {
	case AssetNative:
		return "native"
	case AssetFungible:
		return "fungible"
	}
	return fmt.Sprintf("AssetKind(%d)", uint8(k))
}

// AssetClass 金库托管的资产；Native 时 Mint 为零地址
type AssetClass struct {
	Kind AssetKind
	Mint pda.Address
}

// Native 原生资产
func Native() AssetClass {
	return AssetClass{Kind: AssetNative}
}

// FungibleToken 指定 mint 的代币
func FungibleToken(mint pda.Address) AssetClass {
	return AssetClass{Kind: AssetFungible, Mint: mint}
}

// Validate 校验类别与 mint 的组合
func (a AssetClass) Validate() error {
	switch a.Kind {
	case AssetNative:
		if !a.Mint.IsZero() {
			return fmt.Errorf("%w: native asset carries mint %s", ErrInvalidAsset, a.Mint)
		}
	case AssetFungible:
		if a.Mint.IsZero() {
			return fmt.Errorf("%w: fungible asset without mint", ErrInvalidAsset)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidAsset, a.Kind)
	}
	return nil
}

func (a AssetClass) IsNative() bool {
	return a.Kind == AssetNative
}

func (a AssetClass) String() string {
	if a.IsNative() {
		return "native"
	}
	return "token:" + a.Mint.String()
}

// NativeDecimals 原生资产的小数位（1 SOL = 1e9 lamports）
const NativeDecimals = 9
