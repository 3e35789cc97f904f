// Package amount converts human-denominated amounts to on-chain base units
// and computes bridge fees. Conversion truncates toward zero and caps results
// at 2^128.
package amount

import (
	"context"
	"math"
	"math/big"

	"github.com/google/uuid"

	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/models"
)

// maxBaseUnits is the exclusive upper bound of a converted amount.
var maxBaseUnits = new(big.Int).Lsh(big.NewInt(1), 128)

// DecimalsReader resolves ERC20 decimals from the chain; the gateway
// implements it.
type DecimalsReader interface {
	ERC20Decimals(ctx context.Context, networkID uuid.UUID, token *models.Token) (uint8, error)
}

// Converter resolves token decimals and performs conversions.
type Converter struct {
	chain DecimalsReader
}

// NewConverter creates a converter backed by the given decimals source.
func NewConverter(chain DecimalsReader) *Converter {
	return &Converter{chain: chain}
}

// Decimals returns the token's decimal count: the network's native decimals
// for native assets, the contract's decimals() for ERC20.
func (c *Converter) Decimals(ctx context.Context, network *models.Network, token *models.Token) (uint8, error) {
	if token.IsNative() {
		if network.DecimalValue < 0 || network.DecimalValue > 32 {
			return 0, errs.Internalf(errs.CodeBug, nil, "network %s has decimals %d", network.ID, network.DecimalValue)
		}
		return uint8(network.DecimalValue), nil
	}
	return c.chain.ERC20Decimals(ctx, network.ID, token)
}

// ToBaseUnits converts a float amount into base units, truncating toward
// zero. Rejects NaN, Inf and negative inputs; AmountOverflow past 2^128.
func ToBaseUnits(amount float64, decimals uint8) (*big.Int, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, errs.Validationf(errs.CodeInvalidAmount, "amount is not finite")
	}
	if amount < 0 {
		return nil, errs.Validationf(errs.CodeInvalidAmount, "amount is negative")
	}
	factor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	scaled := new(big.Float).SetPrec(256).SetFloat64(amount)
	scaled.Mul(scaled, factor)
	units, _ := scaled.Int(nil)
	if units.Cmp(maxBaseUnits) >= 0 {
		return nil, errs.Internalf(errs.CodeAmountOverflow, nil, "amount exceeds 2^128 base units")
	}
	return units, nil
}

// BridgeFee computes rate * amount in base units of the from-token.
func BridgeFee(rate, amount float64, decimals uint8) (*big.Int, error) {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, errs.Internalf(errs.CodeBug, nil, "bridge fee rate %v is invalid", rate)
	}
	return ToBaseUnits(rate*amount, decimals)
}
