// pda/derive.go
// 程序派生地址（PDA）：由 seeds + 程序 ID 哈希得到、刻意落在 Ed25519 曲线之外的地址。
// 这样的地址没有对应私钥，只有派生它的程序能通过重算 seeds 为其"签名"。

package pda

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"go.dedis.ch/kyber/v3/group/edwards25519"
)

const (
	// MaxSeeds 单次派生允许的最大 seed 数量（含 bump）
	MaxSeeds = 16
	// MaxSeedLen 单个 seed 最大长度
	MaxSeedLen = 32
	// MaxBump 探测起点，向下递减
	MaxBump = 255
)

// 派生哈希的域分隔后缀
const pdaMarker = "ProgramDerivedAddress"

var (
	// ErrMaxSeedsExceeded seed 数量超限
	ErrMaxSeedsExceeded = errors.New("max seeds exceeded")
	// ErrSeedTooLong seed 过长
	ErrSeedTooLong = errors.New("seed too long")
	// ErrOnCurve 派生结果落在曲线上，不能作为 PDA
	ErrOnCurve = errors.New("derived address is on the ed25519 curve")
	// ErrNoViableBump 所有 bump 都落在曲线上（配置错误，实际几乎不可能）
	ErrNoViableBump = errors.New("unable to find a viable bump")
)

var curveSuite = edwards25519.NewBlakeSHA256Ed25519()

// IsOnCurve 判断 32 字节是否能解码为合法的 Ed25519 压缩点
func IsOnCurve(b []byte) bool {
	if len(b) != AddressSize {
		return false
	}
	p := curveSuite.Point()
	return p.UnmarshalBinary(b) == nil
}

// CreateProgramAddress 对给定 seeds（已包含 bump）计算 PDA
// sha256(seed_0 || ... || seed_n || programID || "ProgramDerivedAddress")
func CreateProgramAddress(seeds [][]byte, programID Address) (Address, error) {
	var out Address
	if len(seeds) > MaxSeeds {
		return out, fmt.Errorf("%w: %d > %d", ErrMaxSeedsExceeded, len(seeds), MaxSeeds)
	}
	h := sha256.New()
	for i, s := range seeds {
		if len(s) > MaxSeedLen {
			return out, fmt.Errorf("%w: seed %d has %d bytes", ErrSeedTooLong, i, len(s))
		}
		h.Write(s)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))
	copy(out[:], h.Sum(nil))

	if IsOnCurve(out[:]) {
		return Address{}, ErrOnCurve
	}
	return out, nil
}

// FindProgramAddress 从 255 向下探测 bump，返回第一个落在曲线外的地址
// 纯函数：相同输入永远得到相同 (address, bump)
func FindProgramAddress(seeds [][]byte, programID Address) (Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		// 还要给 bump 留一个位置
		return Address{}, 0, fmt.Errorf("%w: %d seeds leave no room for bump", ErrMaxSeedsExceeded, len(seeds))
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := MaxBump; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrNoViableBump
}

// WithBump 复制 seeds 并追加 bump，用于 InvokeSigned 时重建签名 seeds
func WithBump(seeds [][]byte, bump uint8) [][]byte {
	out := make([][]byte, len(seeds)+1)
	copy(out, seeds)
	out[len(seeds)] = []byte{bump}
	return out
}
