package vm

import (
	"fmt"

	"diamondhand/pda"

	"google.golang.org/protobuf/encoding/protowire"
)

// 账户、代币记录和指令负载统一使用 protobuf wire 格式手工编码，
// 未识别的字段会被跳过，便于后续追加字段。

// FieldFunc 字段回调；返回消费的字节数，返回 0 表示不认识该字段（由 WalkFields 跳过）
type FieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// WalkFields 逐个字段解析
func WalkFields(b []byte, fn FieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrCorruptRecord, protowire.ParseError(n))
		}
		b = b[n:]
		used, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if used == 0 {
			used = protowire.ConsumeFieldValue(num, typ, b)
			if used < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrCorruptRecord, num, protowire.ParseError(used))
			}
		}
		b = b[used:]
	}
	return nil
}

// ConsumeUvarint 读取 varint 字段
func ConsumeUvarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("%w: expected varint, got wire type %d", ErrCorruptRecord, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrCorruptRecord, protowire.ParseError(n))
	}
	return v, n, nil
}

// ConsumeBytes 读取 bytes 字段（返回副本）
func ConsumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("%w: expected bytes, got wire type %d", ErrCorruptRecord, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorruptRecord, protowire.ParseError(n))
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, n, nil
}

// ConsumeAddress 读取 32 字节地址字段
func ConsumeAddress(typ protowire.Type, b []byte) (pda.Address, int, error) {
	raw, n, err := ConsumeBytes(typ, b)
	if err != nil {
		return pda.Address{}, 0, err
	}
	a, err := pda.AddressFromBytes(raw)
	if err != nil {
		return pda.Address{}, 0, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return a, n, nil
}

// AppendUvarint 追加 varint 字段
func AppendUvarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// AppendBytes 追加 bytes 字段
func AppendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// AppendAddress 追加地址字段
func AppendAddress(b []byte, num protowire.Number, a pda.Address) []byte {
	return AppendBytes(b, num, a[:])
}
