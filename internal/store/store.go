// Package store is the durable ledger of networks, tokens, bridges and
// transfers. The ledger owns every row; the coordinator borrows snapshots and
// relies on the conditional updates here as the single-writer lock per transfer.
package store

import (
	"context"
	"math/big"

	"github.com/google/uuid"

	"github.com/saingsab/jaamlong/internal/models"
)

// QuoteInsert is the row pair created when a transfer is quoted.
type QuoteInsert struct {
	SenderAddress        string
	ReceiverAddress      string
	FromTokenID          uuid.UUID
	ToTokenID            uuid.UUID
	OriginNetworkID      uuid.UUID
	DestinationNetworkID uuid.UUID
	TransferAmount       *big.Int
	BridgeFee            *big.Int
	CreatedBy            uuid.UUID
}

// Ledger is the persistence boundary. Implementations must be safe for
// concurrent use and must make SetOriginHash and Finalize atomic
// compare-and-set operations.
type Ledger interface {
	// Networks
	CreateNetwork(ctx context.Context, n *models.Network) error
	GetNetwork(ctx context.Context, id uuid.UUID) (*models.Network, error)
	GetAllNetworks(ctx context.Context) ([]models.Network, error)

	// Tokens
	CreateToken(ctx context.Context, t *models.Token) error
	GetToken(ctx context.Context, id uuid.UUID) (*models.Token, error)
	GetAllTokens(ctx context.Context) ([]models.Token, error)

	// Bridges
	CreateBridge(ctx context.Context, b *models.Bridge) error
	GetBridge(ctx context.Context, id uuid.UUID) (*models.Bridge, error)
	GetBridgeByDestination(ctx context.Context, networkID uuid.UUID) (*models.Bridge, error)
	GetAllBridges(ctx context.Context) ([]models.Bridge, error)

	// Statuses
	GetStatus(ctx context.Context, id uuid.UUID) (*models.TransferStatus, error)

	// Transfers
	// QuoteTransfer inserts a PENDING status row and the transfer row in one
	// transaction and returns the stored transfer.
	QuoteTransfer(ctx context.Context, q QuoteInsert) (*models.Transfer, error)
	GetTransfer(ctx context.Context, id uuid.UUID) (*models.Transfer, error)
	GetAllTransfers(ctx context.Context) ([]models.Transfer, error)

	// SetOriginHash records the verified origin deposit hash iff it is still
	// null and the transfer is PENDING; otherwise IllegalTransition. This is
	// the lock that keeps concurrent verifications single-writer.
	SetOriginHash(ctx context.Context, id uuid.UUID, hash string) error

	// Finalize transitions PENDING to a terminal status and records the
	// destination hash if provided and still null. AlreadyFinalized if the
	// transfer is already terminal.
	Finalize(ctx context.Context, id uuid.UUID, destinationHash *string, status models.StatusName) error

	Close()
}
