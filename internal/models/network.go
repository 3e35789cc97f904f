package models

import (
	"time"

	"github.com/google/uuid"
)

// Network is a chain the bridge can move value between. BridgeAccountAddress is
// the externally-owned account on this chain whose key the signer service holds.
type Network struct {
	ID                   uuid.UUID `json:"id"`
	NetworkName          string    `json:"network_name"`
	NetworkRPC           string    `json:"network_rpc"`
	ChainID              int64     `json:"chain_id"`
	DecimalValue         int64     `json:"decimal_value"`
	BridgeAccountAddress string    `json:"bridge_address"`
	BaseBridgeFeeRate    float64   `json:"base_bridge_fee_rate"`
	CreatedBy            uuid.UUID `json:"created_by,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
