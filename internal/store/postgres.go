package store

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/models"
)

// Schema is the relational layout the coordinator owns.
const Schema = `
CREATE TABLE IF NOT EXISTS tbl_networks (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    network_name TEXT NOT NULL,
    network_rpc TEXT NOT NULL,
    chain_id BIGINT NOT NULL,
    decimal_value BIGINT NOT NULL,
    bridge_address TEXT NOT NULL,
    base_bridge_fee_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_by UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tbl_token_address (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    network_id UUID NOT NULL REFERENCES tbl_networks(id),
    token_address TEXT NOT NULL DEFAULT '',
    token_symbol TEXT NOT NULL,
    asset_type TEXT NOT NULL,
    abi JSONB,
    created_by UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tbl_bridge (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    destin_network UUID NOT NULL REFERENCES tbl_networks(id),
    bridge_address TEXT NOT NULL,
    bridge_fee DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_by UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tbl_status (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    status_name TEXT NOT NULL,
    created_by UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tbl_transactions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    sender_address TEXT NOT NULL,
    receiver_address TEXT NOT NULL,
    from_token_address UUID NOT NULL REFERENCES tbl_token_address(id),
    to_token_address UUID NOT NULL REFERENCES tbl_token_address(id),
    origin_network UUID NOT NULL REFERENCES tbl_networks(id),
    destin_network UUID NOT NULL REFERENCES tbl_networks(id),
    transfer_amount NUMERIC NOT NULL,
    bridge_fee NUMERIC NOT NULL,
    tx_status UUID NOT NULL REFERENCES tbl_status(id),
    origin_tx_hash TEXT,
    destin_tx_hash TEXT,
    created_by UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Postgres implements Ledger on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and applies the schema.
func NewPostgres(ctx context.Context, url string, maxConns int32) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "parsing database url")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "connecting to database")
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, errs.Internalf(errs.CodeLedgerError, err, "applying schema")
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) CreateNetwork(ctx context.Context, n *models.Network) error {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO tbl_networks (network_name, network_rpc, chain_id, decimal_value, bridge_address, base_bridge_fee_rate, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		n.NetworkName, n.NetworkRPC, n.ChainID, n.DecimalValue, n.BridgeAccountAddress, n.BaseBridgeFeeRate, nilUUID(n.CreatedBy))
	if err := row.Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return errs.Internalf(errs.CodeLedgerError, err, "inserting network")
	}
	return nil
}

func (p *Postgres) GetNetwork(ctx context.Context, id uuid.UUID) (*models.Network, error) {
	var n models.Network
	var createdBy *uuid.UUID
	err := p.pool.QueryRow(ctx, `
		SELECT id, network_name, network_rpc, chain_id, decimal_value, bridge_address, base_bridge_fee_rate, created_by, created_at, updated_at
		FROM tbl_networks WHERE id = $1`, id).
		Scan(&n.ID, &n.NetworkName, &n.NetworkRPC, &n.ChainID, &n.DecimalValue, &n.BridgeAccountAddress, &n.BaseBridgeFeeRate, &createdBy, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Validationf(errs.CodeUnknownNetwork, "network %s not found", id)
	}
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "querying network")
	}
	if createdBy != nil {
		n.CreatedBy = *createdBy
	}
	return &n, nil
}

func (p *Postgres) GetAllNetworks(ctx context.Context) ([]models.Network, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, network_name, network_rpc, chain_id, decimal_value, bridge_address, base_bridge_fee_rate, created_at, updated_at
		FROM tbl_networks ORDER BY created_at`)
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "querying networks")
	}
	defer rows.Close()
	var out []models.Network
	for rows.Next() {
		var n models.Network
		if err := rows.Scan(&n.ID, &n.NetworkName, &n.NetworkRPC, &n.ChainID, &n.DecimalValue, &n.BridgeAccountAddress, &n.BaseBridgeFeeRate, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, errs.Internalf(errs.CodeLedgerError, err, "scanning network")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateToken(ctx context.Context, t *models.Token) error {
	var abi interface{}
	if len(t.ABI) > 0 {
		abi = []byte(t.ABI)
	}
	row := p.pool.QueryRow(ctx, `
		INSERT INTO tbl_token_address (network_id, token_address, token_symbol, asset_type, abi, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		t.NetworkID, t.TokenAddress, t.TokenSymbol, t.AssetClass.Storage(), abi, nilUUID(t.CreatedBy))
	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return errs.Internalf(errs.CodeLedgerError, err, "inserting token")
	}
	return nil
}

func (p *Postgres) GetToken(ctx context.Context, id uuid.UUID) (*models.Token, error) {
	var t models.Token
	var assetType string
	var abi []byte
	err := p.pool.QueryRow(ctx, `
		SELECT id, network_id, token_address, token_symbol, asset_type, abi, created_at, updated_at
		FROM tbl_token_address WHERE id = $1`, id).
		Scan(&t.ID, &t.NetworkID, &t.TokenAddress, &t.TokenSymbol, &assetType, &abi, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Validationf(errs.CodeUnknownToken, "token %s not found", id)
	}
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "querying token")
	}
	t.AssetClass, err = models.ParseAssetClass(assetType)
	if err != nil {
		return nil, err
	}
	if len(abi) > 0 {
		t.ABI = json.RawMessage(abi)
	}
	return &t, nil
}

func (p *Postgres) GetAllTokens(ctx context.Context) ([]models.Token, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, network_id, token_address, token_symbol, asset_type, created_at, updated_at
		FROM tbl_token_address ORDER BY created_at`)
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "querying tokens")
	}
	defer rows.Close()
	var out []models.Token
	for rows.Next() {
		var t models.Token
		var assetType string
		if err := rows.Scan(&t.ID, &t.NetworkID, &t.TokenAddress, &t.TokenSymbol, &assetType, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, errs.Internalf(errs.CodeLedgerError, err, "scanning token")
		}
		if t.AssetClass, err = models.ParseAssetClass(assetType); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateBridge(ctx context.Context, b *models.Bridge) error {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO tbl_bridge (destin_network, bridge_address, bridge_fee, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		b.DestinationNetworkID, b.BridgeAddress, b.BridgeFeeRate, nilUUID(b.CreatedBy))
	if err := row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return errs.Internalf(errs.CodeLedgerError, err, "inserting bridge")
	}
	return nil
}

func (p *Postgres) GetBridge(ctx context.Context, id uuid.UUID) (*models.Bridge, error) {
	var b models.Bridge
	err := p.pool.QueryRow(ctx, `
		SELECT id, destin_network, bridge_address, bridge_fee, created_at, updated_at
		FROM tbl_bridge WHERE id = $1`, id).
		Scan(&b.ID, &b.DestinationNetworkID, &b.BridgeAddress, &b.BridgeFeeRate, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Validationf(errs.CodeUnknownNetwork, "bridge %s not found", id)
	}
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "querying bridge")
	}
	return &b, nil
}

func (p *Postgres) GetBridgeByDestination(ctx context.Context, networkID uuid.UUID) (*models.Bridge, error) {
	var b models.Bridge
	err := p.pool.QueryRow(ctx, `
		SELECT id, destin_network, bridge_address, bridge_fee, created_at, updated_at
		FROM tbl_bridge WHERE destin_network = $1 ORDER BY created_at DESC LIMIT 1`, networkID).
		Scan(&b.ID, &b.DestinationNetworkID, &b.BridgeAddress, &b.BridgeFeeRate, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Validationf(errs.CodeUnknownNetwork, "no bridge for destination network %s", networkID)
	}
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "querying bridge by destination")
	}
	return &b, nil
}

func (p *Postgres) GetAllBridges(ctx context.Context) ([]models.Bridge, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, destin_network, bridge_address, bridge_fee, created_at, updated_at
		FROM tbl_bridge ORDER BY created_at`)
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "querying bridges")
	}
	defer rows.Close()
	var out []models.Bridge
	for rows.Next() {
		var b models.Bridge
		if err := rows.Scan(&b.ID, &b.DestinationNetworkID, &b.BridgeAddress, &b.BridgeFeeRate, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, errs.Internalf(errs.CodeLedgerError, err, "scanning bridge")
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *Postgres) GetStatus(ctx context.Context, id uuid.UUID) (*models.TransferStatus, error) {
	var s models.TransferStatus
	var name string
	err := p.pool.QueryRow(ctx, `
		SELECT id, status_name, created_at, updated_at FROM tbl_status WHERE id = $1`, id).
		Scan(&s.ID, &name, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Internalf(errs.CodeLedgerError, nil, "status %s not found", id)
	}
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "querying status")
	}
	s.StatusName = models.StatusName(name)
	return &s, nil
}

func (p *Postgres) QuoteTransfer(ctx context.Context, q QuoteInsert) (*models.Transfer, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "beginning quote transaction")
	}
	defer tx.Rollback(ctx)

	var statusID uuid.UUID
	if err := tx.QueryRow(ctx, `
		INSERT INTO tbl_status (status_name, created_by) VALUES ($1, $2) RETURNING id`,
		string(models.StatusPending), nilUUID(q.CreatedBy)).Scan(&statusID); err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "inserting status")
	}

	tr := &models.Transfer{
		SenderAddress:        q.SenderAddress,
		ReceiverAddress:      q.ReceiverAddress,
		FromTokenID:          q.FromTokenID,
		ToTokenID:            q.ToTokenID,
		OriginNetworkID:      q.OriginNetworkID,
		DestinationNetworkID: q.DestinationNetworkID,
		TransferAmount:       new(big.Int).Set(q.TransferAmount),
		BridgeFee:            new(big.Int).Set(q.BridgeFee),
		StatusID:             statusID,
		CreatedBy:            q.CreatedBy,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO tbl_transactions (sender_address, receiver_address, from_token_address, to_token_address,
			origin_network, destin_network, transfer_amount, bridge_fee, tx_status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $10)
		RETURNING id, created_at, updated_at`,
		q.SenderAddress, q.ReceiverAddress, q.FromTokenID, q.ToTokenID,
		q.OriginNetworkID, q.DestinationNetworkID, q.TransferAmount.String(), q.BridgeFee.String(),
		statusID, nilUUID(q.CreatedBy)).Scan(&tr.ID, &tr.CreatedAt, &tr.UpdatedAt); err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "inserting transfer")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "committing quote")
	}
	return tr, nil
}

func (p *Postgres) GetTransfer(ctx context.Context, id uuid.UUID) (*models.Transfer, error) {
	var tr models.Transfer
	var amount, fee string
	err := p.pool.QueryRow(ctx, `
		SELECT id, sender_address, receiver_address, from_token_address, to_token_address,
			origin_network, destin_network, transfer_amount::text, bridge_fee::text, tx_status,
			origin_tx_hash, destin_tx_hash, created_at, updated_at
		FROM tbl_transactions WHERE id = $1`, id).
		Scan(&tr.ID, &tr.SenderAddress, &tr.ReceiverAddress, &tr.FromTokenID, &tr.ToTokenID,
			&tr.OriginNetworkID, &tr.DestinationNetworkID, &amount, &fee, &tr.StatusID,
			&tr.OriginTxHash, &tr.DestinationTxHash, &tr.CreatedAt, &tr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Validationf(errs.CodeUnknownTransfer, "transfer %s not found", id)
	}
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "querying transfer")
	}
	if tr.TransferAmount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	if tr.BridgeFee, err = parseAmount(fee); err != nil {
		return nil, err
	}
	return &tr, nil
}

func (p *Postgres) GetAllTransfers(ctx context.Context) ([]models.Transfer, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, sender_address, receiver_address, from_token_address, to_token_address,
			origin_network, destin_network, transfer_amount::text, bridge_fee::text, tx_status,
			origin_tx_hash, destin_tx_hash, created_at, updated_at
		FROM tbl_transactions ORDER BY created_at`)
	if err != nil {
		return nil, errs.Internalf(errs.CodeLedgerError, err, "querying transfers")
	}
	defer rows.Close()
	var out []models.Transfer
	for rows.Next() {
		var tr models.Transfer
		var amount, fee string
		if err := rows.Scan(&tr.ID, &tr.SenderAddress, &tr.ReceiverAddress, &tr.FromTokenID, &tr.ToTokenID,
			&tr.OriginNetworkID, &tr.DestinationNetworkID, &amount, &fee, &tr.StatusID,
			&tr.OriginTxHash, &tr.DestinationTxHash, &tr.CreatedAt, &tr.UpdatedAt); err != nil {
			return nil, errs.Internalf(errs.CodeLedgerError, err, "scanning transfer")
		}
		if tr.TransferAmount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		if tr.BridgeFee, err = parseAmount(fee); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (p *Postgres) SetOriginHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE tbl_transactions t SET origin_tx_hash = $2, updated_at = NOW()
		FROM tbl_status s
		WHERE t.id = $1 AND s.id = t.tx_status AND t.origin_tx_hash IS NULL AND s.status_name = $3`,
		id, hash, string(models.StatusPending))
	if err != nil {
		return errs.Internalf(errs.CodeLedgerError, err, "updating origin hash")
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	// Lost the race or the transfer is past PENDING; distinguish missing rows.
	if _, err := p.GetTransfer(ctx, id); err != nil {
		return err
	}
	return errs.Preconditionf(errs.CodeIllegalTransition, "transfer %s cannot record origin hash", id)
}

func (p *Postgres) Finalize(ctx context.Context, id uuid.UUID, destinationHash *string, status models.StatusName) error {
	if !status.Terminal() {
		return errs.Internalf(errs.CodeBug, nil, "finalize to non-terminal status %s", status)
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return errs.Internalf(errs.CodeLedgerError, err, "beginning finalize transaction")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE tbl_status s SET status_name = $2, updated_at = NOW()
		FROM tbl_transactions t
		WHERE t.id = $1 AND s.id = t.tx_status AND s.status_name = $3`,
		id, string(status), string(models.StatusPending))
	if err != nil {
		return errs.Internalf(errs.CodeLedgerError, err, "updating status")
	}
	if tag.RowsAffected() == 0 {
		if _, err := p.GetTransfer(ctx, id); err != nil {
			return err
		}
		return errs.Preconditionf(errs.CodeAlreadyFinalized, "transfer %s already finalized", id)
	}
	if destinationHash != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE tbl_transactions SET destin_tx_hash = COALESCE(destin_tx_hash, $2), updated_at = NOW()
			WHERE id = $1`, id, *destinationHash); err != nil {
			return errs.Internalf(errs.CodeLedgerError, err, "updating destination hash")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.Internalf(errs.CodeLedgerError, err, "committing finalize")
	}
	return nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errs.Internalf(errs.CodeLedgerError, nil, "malformed amount %q", s)
	}
	return v, nil
}

func nilUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
