package models

import (
	"time"

	"github.com/google/uuid"
)

// Bridge binds a destination network to the bridge account that releases funds
// on it. BridgeAddress must equal the destination network's bridge account.
type Bridge struct {
	ID                   uuid.UUID `json:"id"`
	DestinationNetworkID uuid.UUID `json:"destination_network_id"`
	BridgeAddress        string    `json:"bridge_address"`
	BridgeFeeRate        float64   `json:"bridge_fee"`
	CreatedBy            uuid.UUID `json:"created_by,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
