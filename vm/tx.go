package vm

import (
	"crypto/ed25519"
	"fmt"

	"diamondhand/pda"

	"github.com/btcsuite/btcd/btcutil/base58"
	"google.golang.org/protobuf/encoding/protowire"
)

// Tx 一笔待执行交易：一条指令 + 签名者
// 签名覆盖 kind/nonce/data/签名者列表；TxID 为第一个签名的 base58。
type Tx struct {
	Kind       string
	Nonce      uint64 // 客户端自选，防止相同指令产生相同 TxID
	Data       []byte
	Signers    []pda.Address
	Signatures [][]byte
}

const (
	fieldTxKind   protowire.Number = 1
	fieldTxNonce  protowire.Number = 2
	fieldTxData   protowire.Number = 3
	fieldTxSigner protowire.Number = 4
)

// Message 被签名的消息体
func (tx *Tx) Message() []byte {
	b := make([]byte, 0, 64+len(tx.Data)+len(tx.Signers)*34)
	b = AppendBytes(b, fieldTxKind, []byte(tx.Kind))
	b = AppendUvarint(b, fieldTxNonce, tx.Nonce)
	b = AppendBytes(b, fieldTxData, tx.Data)
	for _, s := range tx.Signers {
		b = AppendAddress(b, fieldTxSigner, s)
	}
	return b
}

// SignTx 构造并签名；keys 的顺序决定 Signers 顺序，第一个为手续费/主签名者
func SignTx(kind string, nonce uint64, data []byte, keys ...ed25519.PrivateKey) *Tx {
	tx := &Tx{Kind: kind, Nonce: nonce, Data: data}
	for _, k := range keys {
		var a pda.Address
		copy(a[:], k.Public().(ed25519.PublicKey))
		tx.Signers = append(tx.Signers, a)
	}
	msg := tx.Message()
	for _, k := range keys {
		tx.Signatures = append(tx.Signatures, ed25519.Sign(k, msg))
	}
	return tx
}

// ID 交易 ID；未签名返回空串
func (tx *Tx) ID() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return base58.Encode(tx.Signatures[0])
}

// Verify 校验所有签名
func (tx *Tx) Verify() error {
	if tx == nil {
		return ErrNilTx
	}
	if len(tx.Signers) == 0 {
		return fmt.Errorf("%w: no signers", ErrMissingSignature)
	}
	if len(tx.Signatures) != len(tx.Signers) {
		return fmt.Errorf("%w: %d signers but %d signatures", ErrInvalidSignature, len(tx.Signers), len(tx.Signatures))
	}
	msg := tx.Message()
	for i, s := range tx.Signers {
		if len(tx.Signatures[i]) != ed25519.SignatureSize {
			return fmt.Errorf("%w: signature %d has bad length", ErrInvalidSignature, i)
		}
		if !ed25519.Verify(ed25519.PublicKey(s[:]), msg, tx.Signatures[i]) {
			return fmt.Errorf("%w: signer %s", ErrInvalidSignature, s)
		}
	}
	return nil
}

// PublicAddress 由私钥得到钱包地址
func PublicAddress(k ed25519.PrivateKey) pda.Address {
	var a pda.Address
	copy(a[:], k.Public().(ed25519.PublicKey))
	return a
}
