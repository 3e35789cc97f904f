package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/models"
)

// parseABI parses the token's stored ABI descriptor.
func parseABI(token *models.Token) (abi.ABI, error) {
	if len(token.ABI) == 0 {
		return abi.ABI{}, errs.Validationf(errs.CodeUnsupportedAsset, "token %s has no ABI", token.ID)
	}
	parsed, err := abi.JSON(strings.NewReader(string(token.ABI)))
	if err != nil {
		return abi.ABI{}, errs.Upstreamf(errs.CodeDecodeError, err, "parsing ABI for token %s", token.ID)
	}
	return parsed, nil
}

// erc20View packs a view call against the token contract, executes eth_call
// and returns the decoded outputs.
func (g *Gateway) erc20View(ctx context.Context, networkID uuid.UUID, token *models.Token, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := parseABI(token)
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, errs.Upstreamf(errs.CodeDecodeError, err, "packing %s call", method)
	}
	contract := common.HexToAddress(token.TokenAddress)
	var out hexutil.Bytes
	null, err := g.call(ctx, networkID, "eth_call", []interface{}{
		map[string]interface{}{
			"to":   contract.Hex(),
			"data": hexutil.Encode(data),
		},
		"latest",
	}, &out)
	if err != nil {
		return nil, err
	}
	if null || len(out) == 0 {
		return nil, errs.Upstreamf(errs.CodeDecodeError, nil, "empty %s result", method)
	}
	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, errs.Upstreamf(errs.CodeDecodeError, err, "unpacking %s result", method)
	}
	return values, nil
}

// ERC20Decimals reads the token contract's decimals().
func (g *Gateway) ERC20Decimals(ctx context.Context, networkID uuid.UUID, token *models.Token) (uint8, error) {
	values, err := g.erc20View(ctx, networkID, token, "decimals")
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, errs.Upstreamf(errs.CodeDecodeError, nil, "decimals returned nothing")
	}
	switch v := values[0].(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 32 {
			return 0, errs.Upstreamf(errs.CodeDecodeError, nil, "decimals %s out of range", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, errs.Upstreamf(errs.CodeDecodeError, nil, "unexpected decimals type %T", values[0])
	}
}

// ERC20Balance reads balanceOf(addr) for the token contract.
func (g *Gateway) ERC20Balance(ctx context.Context, networkID uuid.UUID, token *models.Token, addr common.Address) (*big.Int, error) {
	values, err := g.erc20View(ctx, networkID, token, "balanceOf", addr)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errs.Upstreamf(errs.CodeDecodeError, nil, "balanceOf returned nothing")
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, errs.Upstreamf(errs.CodeDecodeError, nil, "unexpected balanceOf type %T", values[0])
	}
	return balance, nil
}

// Balance returns the address balance in the token's own denomination,
// dispatching on asset class.
func (g *Gateway) Balance(ctx context.Context, networkID uuid.UUID, token *models.Token, addr common.Address) (*big.Int, error) {
	if token.IsNative() {
		return g.NativeBalance(ctx, networkID, addr)
	}
	return g.ERC20Balance(ctx, networkID, token, addr)
}
