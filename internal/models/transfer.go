package models

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// StatusName is the persisted transfer state. Transitions form the DAG
// PENDING -> {SUCCESS, FAIL}; terminal states never change again.
type StatusName string

const (
	StatusPending StatusName = "PENDING"
	StatusSuccess StatusName = "SUCCESS"
	StatusFail    StatusName = "FAIL"
)

// Terminal reports whether the status allows no further transition.
func (s StatusName) Terminal() bool {
	return s == StatusSuccess || s == StatusFail
}

// TransferStatus is the audit row referenced by each transfer.
type TransferStatus struct {
	ID         uuid.UUID  `json:"id"`
	StatusName StatusName `json:"status_name"`
	CreatedBy  uuid.UUID  `json:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Transfer is the authoritative off-chain record of one bridge transfer.
// TransferAmount and BridgeFee are base units of the from-token; the user's
// origin deposit must equal TransferAmount + BridgeFee and the destination
// release equals TransferAmount.
type Transfer struct {
	ID                   uuid.UUID  `json:"id"`
	SenderAddress        string     `json:"sender_address"`
	ReceiverAddress      string     `json:"receiver_address"`
	FromTokenID          uuid.UUID  `json:"from_token_address"`
	ToTokenID            uuid.UUID  `json:"to_token_address"`
	OriginNetworkID      uuid.UUID  `json:"origin_network"`
	DestinationNetworkID uuid.UUID  `json:"destin_network"`
	TransferAmount       *big.Int   `json:"transfer_amount"`
	BridgeFee            *big.Int   `json:"bridge_fee"`
	StatusID             uuid.UUID  `json:"tx_status"`
	OriginTxHash         *string    `json:"origin_tx_hash"`
	DestinationTxHash    *string    `json:"destin_tx_hash"`
	CreatedBy            uuid.UUID  `json:"created_by,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TotalDeposit is the amount the sender must move to the origin bridge address.
func (t *Transfer) TotalDeposit() *big.Int {
	return new(big.Int).Add(t.TransferAmount, t.BridgeFee)
}
