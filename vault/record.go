package vault

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"diamondhand/pda"
)

// 记录布局（小端定长）
//
//	[0,8)   discriminator
//	[8,16)  unlock_timestamp i64
//	[16]    always_unlockable
//	[17,49) owner
//	[49]    asset kind
//	[50,82) mint（native 时全零）
//	[82]    bump
//	[83,91) rent_reserve u64（创建时锁定的押金，不计入托管余额）
const (
	DiscriminatorSize = 8
	// MinRecordSize 判别符 + 时间戳 + 标志 + owner
	MinRecordSize = DiscriminatorSize + 8 + 1 + pda.AddressSize
	// RecordSize 完整记录长度
	RecordSize = MinRecordSize + 1 + pda.AddressSize + 1 + 8

	offTimestamp = DiscriminatorSize
	offAlways    = offTimestamp + 8
	offOwner     = offAlways + 1
	offKind      = offOwner + pda.AddressSize
	offMint      = offKind + 1
	offBump      = offMint + pda.AddressSize
	offReserve   = offBump + 1
)

// recordDiscriminator 账户类型标识：sha256("account:VaultRecord") 前 8 字节
var recordDiscriminator = func() [DiscriminatorSize]byte {
	var d [DiscriminatorSize]byte
	sum := sha256.Sum256([]byte("account:VaultRecord"))
	copy(d[:], sum[:DiscriminatorSize])
	return d
}()

// Record 金库记录；创建后不可变，只暴露读取方法
type Record struct {
	owner   pda.Address
	policy  UnlockPolicy
	asset   AssetClass
	bump    uint8
	reserve uint64 // 金库账户中属于押金的 lamports
}

// NewRecord 构造记录
func NewRecord(owner pda.Address, policy UnlockPolicy, asset AssetClass, bump uint8, reserve uint64) *Record {
	return &Record{owner: owner, policy: policy, asset: asset, bump: bump, reserve: reserve}
}

func (r *Record) Owner() pda.Address     { return r.owner }
func (r *Record) Policy() UnlockPolicy   { return r.policy }
func (r *Record) Asset() AssetClass      { return r.asset }
func (r *Record) Bump() uint8            { return r.bump }
func (r *Record) UnlockTimestamp() int64 { return r.policy.UnlockTimestamp() }
func (r *Record) AlwaysUnlockable() bool { return r.policy.AlwaysUnlockable() }
func (r *Record) RentReserve() uint64    { return r.reserve }

// Marshal 编码为 RecordSize 字节
func (r *Record) Marshal() []byte {
	b := make([]byte, RecordSize)
	copy(b[:DiscriminatorSize], recordDiscriminator[:])
	binary.LittleEndian.PutUint64(b[offTimestamp:], uint64(r.policy.UnlockTimestamp()))
	if r.policy.AlwaysUnlockable() {
		b[offAlways] = 1
	}
	copy(b[offOwner:offKind], r.owner[:])
	b[offKind] = byte(r.asset.Kind)
	copy(b[offMint:offBump], r.asset.Mint[:])
	b[offBump] = r.bump
	binary.LittleEndian.PutUint64(b[offReserve:], r.reserve)
	return b
}

// UnmarshalRecord 解码并校验判别符、标志位与资产类别
func UnmarshalRecord(b []byte) (*Record, error) {
	if len(b) != RecordSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidRecord, RecordSize, len(b))
	}
	if !bytes.Equal(b[:DiscriminatorSize], recordDiscriminator[:]) {
		return nil, fmt.Errorf("%w: discriminator mismatch", ErrInvalidRecord)
	}
	var always bool
	switch b[offAlways] {
	case 0:
	case 1:
		always = true
	default:
		return nil, fmt.Errorf("%w: always_unlockable flag %d", ErrInvalidRecord, b[offAlways])
	}
	r := &Record{
		policy:  NewUnlockPolicy(int64(binary.LittleEndian.Uint64(b[offTimestamp:])), always),
		asset:   AssetClass{Kind: AssetKind(b[offKind])},
		bump:    b[offBump],
		reserve: binary.LittleEndian.Uint64(b[offReserve:]),
	}
	copy(r.owner[:], b[offOwner:offKind])
	copy(r.asset.Mint[:], b[offMint:offBump])
	if err := r.asset.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return r, nil
}
