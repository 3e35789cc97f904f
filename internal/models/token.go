package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/saingsab/jaamlong/internal/errs"
)

// AssetClass distinguishes the two supported token families.
type AssetClass int

const (
	AssetNative AssetClass = iota
	AssetERC20
)

func (a AssetClass) String() string {
	switch a {
	case AssetNative:
		return "NATIVE"
	case AssetERC20:
		return "ERC20"
	default:
		return "UNKNOWN"
	}
}

// Storage keeps the historical "0"/"1" column encoding; the mapper is the only
// place that encoding is allowed to appear.
func (a AssetClass) Storage() string {
	if a == AssetERC20 {
		return "1"
	}
	return "0"
}

// ParseAssetClass lifts the persisted "0"/"1" value to the enum.
func ParseAssetClass(s string) (AssetClass, error) {
	switch s {
	case "0":
		return AssetNative, nil
	case "1":
		return AssetERC20, nil
	default:
		return 0, errs.Validationf(errs.CodeUnsupportedAsset, "unknown asset type %q", s)
	}
}

// Token is an asset registered on a single network. TokenAddress and ABI are
// empty for native assets and required for ERC20.
type Token struct {
	ID           uuid.UUID       `json:"id"`
	NetworkID    uuid.UUID       `json:"network_id"`
	TokenAddress string          `json:"token_address"`
	TokenSymbol  string          `json:"token_symbol"`
	AssetClass   AssetClass      `json:"asset_type"`
	ABI          json.RawMessage `json:"abi,omitempty"`
	CreatedBy    uuid.UUID       `json:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsNative reports whether the token is the network's native asset.
func (t *Token) IsNative() bool {
	return t.AssetClass == AssetNative
}
