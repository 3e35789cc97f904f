// Package sign builds, RLP-encodes and ECDSA-signs Ethereum transaction
// envelopes. Output bytes are byte-identical to reference clients for the
// same envelope, key and chain id.
package sign

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/saingsab/jaamlong/internal/errs"
)

// Envelope type ids, one per wire format.
const (
	LegacyTxType     = byte(0x00)
	AccessListTxType = byte(0x01)
	DynamicFeeTxType = byte(0x02)
)

// Envelope is the canonical unsigned transaction. GasPrice doubles as the
// max fee for dynamic-fee envelopes; GasTipCap is only read for type 2.
type Envelope struct {
	Type       byte
	ChainID    uint64
	Nonce      uint64
	Gas        uint64
	GasPrice   *big.Int
	GasTipCap  *big.Int
	To         *common.Address
	Value      *big.Int
	Data       []byte
	AccessList types.AccessList
}

func (e *Envelope) value() *big.Int {
	if e.Value == nil {
		return new(big.Int)
	}
	return e.Value
}

func (e *Envelope) gasPrice() *big.Int {
	if e.GasPrice == nil {
		return new(big.Int)
	}
	return e.GasPrice
}

// gasTipCap falls back to the gas price, matching the envelope-population
// rule for requests that omit the priority fee.
func (e *Envelope) gasTipCap() *big.Int {
	if e.GasTipCap == nil {
		return e.gasPrice()
	}
	return e.GasTipCap
}

func (e *Envelope) accessList() types.AccessList {
	if e.AccessList == nil {
		return types.AccessList{}
	}
	return e.AccessList
}

// to encodes the recipient as RLP expects: a 20-byte string, or the empty
// string for contract creation.
func (e *Envelope) to() interface{} {
	if e.To == nil {
		return []byte{}
	}
	return *e.To
}

// signature carries v, r, s ready for the post-sign encoding.
type signature struct {
	V, R, S *big.Int
}

// encode produces the RLP encoding of the envelope, pre-sign when sig is nil
// and post-sign otherwise, with the type-byte prefix for typed envelopes.
//
// Shapes:
//
//	legacy pre-sign:  [nonce, gasPrice, gas, to, value, data, chainID, 0, 0]
//	legacy post-sign: [nonce, gasPrice, gas, to, value, data, v, r, s]
//	0x01:             [chainID, nonce, gasPrice, gas, to, value, data, accessList (, v, r, s)]
//	0x02:             [chainID, nonce, tip, maxFee, gas, to, value, data, accessList (, v, r, s)]
func (e *Envelope) encode(sig *signature) ([]byte, error) {
	var fields []interface{}
	switch e.Type {
	case LegacyTxType:
		fields = []interface{}{e.Nonce, e.gasPrice(), e.Gas, e.to(), e.value(), e.Data}
		if sig != nil {
			fields = append(fields, sig.V, sig.R, sig.S)
		} else {
			fields = append(fields, e.ChainID, uint(0), uint(0))
		}
	case AccessListTxType:
		fields = []interface{}{e.ChainID, e.Nonce, e.gasPrice(), e.Gas, e.to(), e.value(), e.Data, e.accessList()}
		if sig != nil {
			fields = append(fields, sig.V, sig.R, sig.S)
		}
	case DynamicFeeTxType:
		fields = []interface{}{e.ChainID, e.Nonce, e.gasTipCap(), e.gasPrice(), e.Gas, e.to(), e.value(), e.Data, e.accessList()}
		if sig != nil {
			fields = append(fields, sig.V, sig.R, sig.S)
		}
	default:
		return nil, errs.Validationf(errs.CodeUnsupportedAsset, "unsupported transaction type %d", e.Type)
	}

	payload, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return nil, errs.Internalf(errs.CodeBug, err, "rlp encoding failed")
	}
	if e.Type == LegacyTxType {
		return payload, nil
	}
	return append([]byte{e.Type}, payload...), nil
}
