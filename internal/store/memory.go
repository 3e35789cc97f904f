package store

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/models"
)

// Memory implements Ledger with mutex-guarded maps. Used by tests and
// bootstrap runs without a database. Returned rows are copies: transfers are
// deep-copied, while a token copy shares its ABI bytes with the stored row.
type Memory struct {
	mu        sync.Mutex
	networks  map[uuid.UUID]*models.Network
	tokens    map[uuid.UUID]*models.Token
	bridges   map[uuid.UUID]*models.Bridge
	statuses  map[uuid.UUID]*models.TransferStatus
	transfers map[uuid.UUID]*models.Transfer
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		networks:  make(map[uuid.UUID]*models.Network),
		tokens:    make(map[uuid.UUID]*models.Token),
		bridges:   make(map[uuid.UUID]*models.Bridge),
		statuses:  make(map[uuid.UUID]*models.TransferStatus),
		transfers: make(map[uuid.UUID]*models.Transfer),
	}
}

func (m *Memory) CreateNetwork(_ context.Context, n *models.Network) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	now := time.Now().UTC()
	n.CreatedAt, n.UpdatedAt = now, now
	cp := *n
	m.networks[n.ID] = &cp
	return nil
}

func (m *Memory) GetNetwork(_ context.Context, id uuid.UUID) (*models.Network, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.networks[id]
	if !ok {
		return nil, errs.Validationf(errs.CodeUnknownNetwork, "network %s not found", id)
	}
	cp := *n
	return &cp, nil
}

func (m *Memory) GetAllNetworks(_ context.Context) ([]models.Network, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Network, 0, len(m.networks))
	for _, n := range m.networks {
		out = append(out, *n)
	}
	return out, nil
}

func (m *Memory) CreateToken(_ context.Context, t *models.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	m.tokens[t.ID] = &cp
	return nil
}

func (m *Memory) GetToken(_ context.Context, id uuid.UUID) (*models.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, errs.Validationf(errs.CodeUnknownToken, "token %s not found", id)
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) GetAllTokens(_ context.Context) ([]models.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Token, 0, len(m.tokens))
	for _, t := range m.tokens {
		out = append(out, *t)
	}
	return out, nil
}

func (m *Memory) CreateBridge(_ context.Context, b *models.Bridge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	cp := *b
	m.bridges[b.ID] = &cp
	return nil
}

func (m *Memory) GetBridge(_ context.Context, id uuid.UUID) (*models.Bridge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bridges[id]
	if !ok {
		return nil, errs.Validationf(errs.CodeUnknownNetwork, "bridge %s not found", id)
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) GetBridgeByDestination(_ context.Context, networkID uuid.UUID) (*models.Bridge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bridges {
		if b.DestinationNetworkID == networkID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, errs.Validationf(errs.CodeUnknownNetwork, "no bridge for destination network %s", networkID)
}

func (m *Memory) GetAllBridges(_ context.Context) ([]models.Bridge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Bridge, 0, len(m.bridges))
	for _, b := range m.bridges {
		out = append(out, *b)
	}
	return out, nil
}

func (m *Memory) GetStatus(_ context.Context, id uuid.UUID) (*models.TransferStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[id]
	if !ok {
		return nil, errs.Internalf(errs.CodeLedgerError, nil, "status %s not found", id)
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) QuoteTransfer(_ context.Context, q QuoteInsert) (*models.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	status := &models.TransferStatus{
		ID:         uuid.New(),
		StatusName: models.StatusPending,
		CreatedBy:  q.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	tr := &models.Transfer{
		ID:                   uuid.New(),
		SenderAddress:        q.SenderAddress,
		ReceiverAddress:      q.ReceiverAddress,
		FromTokenID:          q.FromTokenID,
		ToTokenID:            q.ToTokenID,
		OriginNetworkID:      q.OriginNetworkID,
		DestinationNetworkID: q.DestinationNetworkID,
		TransferAmount:       new(big.Int).Set(q.TransferAmount),
		BridgeFee:            new(big.Int).Set(q.BridgeFee),
		StatusID:             status.ID,
		CreatedBy:            q.CreatedBy,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	m.statuses[status.ID] = status
	m.transfers[tr.ID] = tr
	return copyTransfer(tr), nil
}

func (m *Memory) GetTransfer(_ context.Context, id uuid.UUID) (*models.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.transfers[id]
	if !ok {
		return nil, errs.Validationf(errs.CodeUnknownTransfer, "transfer %s not found", id)
	}
	return copyTransfer(tr), nil
}

func (m *Memory) GetAllTransfers(_ context.Context) ([]models.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Transfer, 0, len(m.transfers))
	for _, tr := range m.transfers {
		out = append(out, *copyTransfer(tr))
	}
	return out, nil
}

func (m *Memory) SetOriginHash(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.transfers[id]
	if !ok {
		return errs.Validationf(errs.CodeUnknownTransfer, "transfer %s not found", id)
	}
	status := m.statuses[tr.StatusID]
	if tr.OriginTxHash != nil || status == nil || status.StatusName != models.StatusPending {
		return errs.Preconditionf(errs.CodeIllegalTransition,
			"transfer %s cannot record origin hash", id)
	}
	h := hash
	tr.OriginTxHash = &h
	tr.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) Finalize(_ context.Context, id uuid.UUID, destinationHash *string, status models.StatusName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !status.Terminal() {
		return errs.Internalf(errs.CodeBug, nil, "finalize to non-terminal status %s", status)
	}
	tr, ok := m.transfers[id]
	if !ok {
		return errs.Validationf(errs.CodeUnknownTransfer, "transfer %s not found", id)
	}
	st := m.statuses[tr.StatusID]
	if st == nil {
		return errs.Internalf(errs.CodeLedgerError, nil, "status row missing for transfer %s", id)
	}
	if st.StatusName.Terminal() {
		return errs.Preconditionf(errs.CodeAlreadyFinalized, "transfer %s already %s", id, st.StatusName)
	}
	now := time.Now().UTC()
	if destinationHash != nil && tr.DestinationTxHash == nil {
		h := *destinationHash
		tr.DestinationTxHash = &h
	}
	st.StatusName = status
	st.UpdatedAt = now
	tr.UpdatedAt = now
	return nil
}

func (m *Memory) Close() {}

func copyTransfer(tr *models.Transfer) *models.Transfer {
	cp := *tr
	cp.TransferAmount = new(big.Int).Set(tr.TransferAmount)
	cp.BridgeFee = new(big.Int).Set(tr.BridgeFee)
	if tr.OriginTxHash != nil {
		h := *tr.OriginTxHash
		cp.OriginTxHash = &h
	}
	if tr.DestinationTxHash != nil {
		h := *tr.DestinationTxHash
		cp.DestinationTxHash = &h
	}
	return &cp
}
