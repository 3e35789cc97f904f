// Package signer is the standalone transaction-signing service and the
// coordinator-side client for it. The service holds the only copy of the
// bridge signing key; requests are stateless and idempotent.
package signer

import (
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/sign"
)

// TxFields is the envelope portion of a signing request. Numeric values are
// decimal strings to survive JSON number precision.
type TxFields struct {
	ChainID              string `json:"chain_id"`
	To                   string `json:"to"`
	Nonce                string `json:"nonce"`
	Value                string `json:"value"`
	Gas                  string `json:"gas"`
	GasPrice             string `json:"gas_price"`
	TransactionType      string `json:"transaction_type,omitempty"`
	MaxPriorityFeePerGas string `json:"max_priority_fee_per_gas,omitempty"`
}

// SignRequest is the body of both signing endpoints. TokenAddress and ABI are
// present only for ERC20 requests.
type SignRequest struct {
	NetworkRPC    string          `json:"network_rpc"`
	BridgeAddress string          `json:"bridge_address"`
	Tx            TxFields        `json:"tx"`
	TokenAddress  *string         `json:"token_address,omitempty"`
	ABI           json.RawMessage `json:"abi,omitempty"`
}

// LoginRequest carries the operator credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func parseBig(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, errs.Validationf(errs.CodeInvalidAmount, "%s must be a non-negative decimal string, got %q", field, s)
	}
	return v, nil
}

func parseUint(field, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errs.Validationf(errs.CodeInvalidAmount, "%s must be a decimal string, got %q", field, s)
	}
	return v, nil
}

// envelope builds the canonical envelope from the wire fields. For native
// transfers the recipient receives value; for ERC20 the recipient moves into
// the calldata and value is zero.
func (r *SignRequest) envelope(erc20 bool) (*sign.Envelope, error) {
	if !common.IsHexAddress(r.Tx.To) {
		return nil, errs.Validationf(errs.CodeAddressParse, "to address %q is invalid", r.Tx.To)
	}
	chainID, err := parseUint("chain_id", r.Tx.ChainID)
	if err != nil {
		return nil, err
	}
	nonce, err := parseUint("nonce", r.Tx.Nonce)
	if err != nil {
		return nil, err
	}
	value, err := parseBig("value", r.Tx.Value)
	if err != nil {
		return nil, err
	}
	gasBig, err := parseBig("gas", r.Tx.Gas)
	if err != nil {
		return nil, err
	}
	if !gasBig.IsUint64() {
		return nil, errs.Validationf(errs.CodeInvalidAmount, "gas %s out of range", gasBig)
	}
	gasPrice, err := parseBig("gas_price", r.Tx.GasPrice)
	if err != nil {
		return nil, err
	}

	txType := sign.LegacyTxType
	if r.Tx.TransactionType != "" {
		t, err := parseUint("transaction_type", r.Tx.TransactionType)
		if err != nil {
			return nil, err
		}
		if t > 2 {
			return nil, errs.Validationf(errs.CodeUnsupportedAsset, "transaction type %d not supported", t)
		}
		txType = byte(t)
	}

	var tip *big.Int
	if r.Tx.MaxPriorityFeePerGas != "" {
		if tip, err = parseBig("max_priority_fee_per_gas", r.Tx.MaxPriorityFeePerGas); err != nil {
			return nil, err
		}
	}

	env := &sign.Envelope{
		Type:     txType,
		ChainID:  chainID,
		Nonce:    nonce,
		Gas:      gasBig.Uint64(),
		GasPrice: gasPrice,
	}

	if erc20 {
		if r.TokenAddress == nil || !common.IsHexAddress(*r.TokenAddress) {
			return nil, errs.Validationf(errs.CodeAddressParse, "token address missing or invalid")
		}
		recipient := common.HexToAddress(r.Tx.To)
		data, err := sign.TransferCalldata(r.ABI, recipient, value)
		if err != nil {
			return nil, err
		}
		contract := common.HexToAddress(*r.TokenAddress)
		env.To = &contract
		env.Value = new(big.Int)
		env.Data = data
	} else {
		recipient := common.HexToAddress(r.Tx.To)
		env.To = &recipient
		env.Value = value
	}

	if txType == sign.DynamicFeeTxType {
		// Omitted priority fee collapses to the quoted gas price.
		if tip == nil {
			tip = gasPrice
		}
		env.GasTipCap = tip
	}
	return env, nil
}
