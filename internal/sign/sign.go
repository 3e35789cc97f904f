package sign

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/saingsab/jaamlong/internal/errs"
)

// SignedTx is the result of signing an envelope.
type SignedTx struct {
	// Raw is the fully signed wire encoding ready for eth_sendRawTransaction.
	Raw []byte
	// Hash is keccak256 over Raw, the transaction hash the chain will report.
	Hash common.Hash
	// MessageHash is the sighash the signature covers.
	MessageHash common.Hash
	V, R, S     *big.Int
}

// ParseKey decodes a hex private key, with or without 0x prefix.
func ParseKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, errs.Internalf(errs.CodeBug, err, "invalid private key")
	}
	return key, nil
}

// Address derives the checksummed account address of a key.
func Address(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// Sign encodes the envelope, signs its keccak hash and returns the signed
// wire bytes. Deterministic: identical inputs produce identical output.
//
// v rules: legacy envelopes apply EIP-155 (v = recovery id + 35 + 2*chainID);
// typed envelopes carry the recovery id directly.
func Sign(e *Envelope, key *ecdsa.PrivateKey) (*SignedTx, error) {
	preimage, err := e.encode(nil)
	if err != nil {
		return nil, err
	}
	msgHash := crypto.Keccak256Hash(preimage)

	sig, err := crypto.Sign(msgHash.Bytes(), key)
	if err != nil {
		return nil, errs.Internalf(errs.CodeBug, err, "signing failed")
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	v := new(big.Int).SetUint64(uint64(sig[64]))
	if e.Type == LegacyTxType {
		v.Add(v, new(big.Int).SetUint64(35+2*e.ChainID))
	}

	raw, err := e.encode(&signature{V: v, R: r, S: s})
	if err != nil {
		return nil, err
	}

	return &SignedTx{
		Raw:         raw,
		Hash:        crypto.Keccak256Hash(raw),
		MessageHash: msgHash,
		V:           v,
		R:           r,
		S:           s,
	}, nil
}
