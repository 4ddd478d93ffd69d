package vault

import (
	"fmt"

	"diamondhand/pda"
)

// vaultSeedPrefix 派生 seeds 的固定前缀
var vaultSeedPrefix = []byte("vault")

// Seeds 金库地址的派生 seeds（不含 bump）
// native: ["vault", owner]；fungible: ["vault", owner, mint]
func Seeds(owner pda.Address, asset AssetClass) [][]byte {
	seeds := [][]byte{vaultSeedPrefix, owner.Bytes()}
	if asset.Kind == AssetFungible {
		seeds = append(seeds, asset.Mint.Bytes())
	}
	return seeds
}

// SignerSeeds 含 bump 的 seeds，用于以金库身份签名
func SignerSeeds(owner pda.Address, asset AssetClass, bump uint8) [][]byte {
	return pda.WithBump(Seeds(owner, asset), bump)
}

// DeriveAddress (owner, asset, program) -> (address, bump)
// 确定性纯函数；找不到可用 bump 视为致命的配置错误。
func DeriveAddress(owner pda.Address, asset AssetClass, programID pda.Address) (pda.Address, uint8, error) {
	if err := asset.Validate(); err != nil {
		return pda.Address{}, 0, err
	}
	addr, bump, err := pda.FindProgramAddress(Seeds(owner, asset), programID)
	if err != nil {
		return pda.Address{}, 0, fmt.Errorf("derive vault address for %s/%s: %w", owner, asset, err)
	}
	return addr, bump, nil
}
