package vm

// AccountStorageOverhead 每个账户的固定元数据开销（字节）
const AccountStorageOverhead = 128

// Rent 存储押金参数：账户余额不低于 MinimumBalance 即免租
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64 // 年
}

// DefaultRent 默认参数
func DefaultRent() Rent {
	return Rent{LamportsPerByteYear: 3480, ExemptionThreshold: 2.0}
}

// MinimumBalance 存放 dataLen 字节数据所需的押金
func (r Rent) MinimumBalance(dataLen int) uint64 {
	bytes := uint64(AccountStorageOverhead + dataLen)
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

// IsExempt 余额是否足以免租
func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}
