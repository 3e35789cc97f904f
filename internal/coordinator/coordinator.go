// Package coordinator drives the bridge transfer state machine: quoting,
// origin-deposit verification, destination release and finalization.
package coordinator

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saingsab/jaamlong/internal/amount"
	"github.com/saingsab/jaamlong/internal/chain"
	"github.com/saingsab/jaamlong/internal/config"
	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/metrics"
	"github.com/saingsab/jaamlong/internal/models"
	"github.com/saingsab/jaamlong/internal/signer"
	"github.com/saingsab/jaamlong/internal/store"
)

// ReleaseSigner abstracts the signer service client.
type ReleaseSigner interface {
	SignNative(ctx context.Context, req *signer.SignRequest) ([]byte, error)
	SignERC20(ctx context.Context, req *signer.SignRequest) ([]byte, error)
}

// Coordinator is the authoritative off-chain driver of every transfer.
type Coordinator struct {
	ledger  store.Ledger
	gateway *chain.Gateway
	signer  ReleaseSigner
	conv    *amount.Converter
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Metrics

	// finalizers tracks detached finalization tasks so shutdown can drain
	// them after a broadcast was accepted by the destination chain.
	finalizers sync.WaitGroup
}

// New wires the coordinator.
func New(ledger store.Ledger, gateway *chain.Gateway, rs ReleaseSigner, cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		ledger:  ledger,
		gateway: gateway,
		signer:  rs,
		conv:    amount.NewConverter(gateway),
		cfg:     cfg,
		logger:  logger.With().Str("component", "coordinator").Logger(),
		metrics: m,
	}
}

// Drain blocks until every detached finalizer has completed.
func (c *Coordinator) Drain() {
	c.finalizers.Wait()
}

// QuoteRequest is the validated input of the quote operation.
type QuoteRequest struct {
	SenderAddress        string
	ReceiverAddress      string
	FromTokenID          uuid.UUID
	ToTokenID            uuid.UUID
	OriginNetworkID      uuid.UUID
	DestinationNetworkID uuid.UUID
	TransferAmount       float64
	CreatedBy            uuid.UUID
}

// QuoteResponse binds the persisted transfer to the figures the user needs to
// fund the deposit. TransferAmount is amount plus fee in base units.
type QuoteResponse struct {
	ID                   uuid.UUID `json:"id"`
	SenderAddress        string    `json:"sender_address"`
	ReceiverAddress      string    `json:"receiver_address"`
	DepositAddress       string    `json:"deposit_address"`
	TransferAmount       string    `json:"transfer_amount"`
	GasLimit             string    `json:"gas_limit"`
	MaxPriorityFeePerGas int64     `json:"max_priority_fee_per_gas"`
	MaxFeePerGas         uint64    `json:"max_fee_per_gas"`
}

// Quote validates a transfer intent, persists it as PENDING and returns the
// deposit figures. Validation order follows the documented pipeline; the
// first failure wins.
func (c *Coordinator) Quote(ctx context.Context, req *QuoteRequest) (resp *QuoteResponse, err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveTransferOp("quote", start, err) }()

	if req.TransferAmount <= 0 {
		return nil, errs.Validationf(errs.CodeInvalidAmount, "transfer amount must be greater than zero")
	}
	if req.OriginNetworkID == uuid.Nil || req.DestinationNetworkID == uuid.Nil {
		return nil, errs.Validationf(errs.CodeUnknownNetwork, "origin and destination networks must be provided")
	}
	if req.OriginNetworkID == req.DestinationNetworkID {
		return nil, errs.Validationf(errs.CodeSameNetwork, "same networks are not allowed")
	}
	if !common.IsHexAddress(req.SenderAddress) {
		return nil, errs.Validationf(errs.CodeAddressParse, "sender address %q is invalid", req.SenderAddress)
	}
	if !common.IsHexAddress(req.ReceiverAddress) {
		return nil, errs.Validationf(errs.CodeAddressParse, "receiver address %q is invalid", req.ReceiverAddress)
	}

	origin, err := c.ledger.GetNetwork(ctx, req.OriginNetworkID)
	if err != nil {
		return nil, err
	}
	destination, err := c.ledger.GetNetwork(ctx, req.DestinationNetworkID)
	if err != nil {
		return nil, err
	}

	fromToken, err := c.ledger.GetToken(ctx, req.FromTokenID)
	if err != nil {
		return nil, err
	}
	toToken, err := c.ledger.GetToken(ctx, req.ToTokenID)
	if err != nil {
		return nil, err
	}
	if fromToken.NetworkID != origin.ID {
		return nil, errs.Validationf(errs.CodeTokenNetworkMismatch, "from-token %s does not live on the origin network", fromToken.ID)
	}
	if toToken.NetworkID != destination.ID {
		return nil, errs.Validationf(errs.CodeTokenNetworkMismatch, "to-token %s does not live on the destination network", toToken.ID)
	}
	for _, t := range []*models.Token{fromToken, toToken} {
		if t.AssetClass == models.AssetERC20 && (t.TokenAddress == "" || len(t.ABI) == 0) {
			return nil, errs.Validationf(errs.CodeUnsupportedAsset, "token %s lacks contract address or ABI", t.ID)
		}
	}

	fromDecimals, err := c.conv.Decimals(ctx, origin, fromToken)
	if err != nil {
		return nil, err
	}
	toDecimals, err := c.conv.Decimals(ctx, destination, toToken)
	if err != nil {
		return nil, err
	}
	// The pipeline converts only in the from-token's denomination; a pair
	// with differing decimals would release the wrong magnitude.
	if fromDecimals != toDecimals {
		return nil, errs.Validationf(errs.CodeUnsupportedAsset,
			"from-token decimals %d != to-token decimals %d", fromDecimals, toDecimals)
	}

	units, err := amount.ToBaseUnits(req.TransferAmount, fromDecimals)
	if err != nil {
		return nil, err
	}
	if units.Sign() == 0 {
		return nil, errs.Validationf(errs.CodeInvalidAmount, "transfer amount rounds to zero base units")
	}

	bridge, err := c.destinationBridge(ctx, destination)
	if err != nil {
		return nil, err
	}
	feeRate := bridge.BridgeFeeRate
	if feeRate == 0 {
		feeRate = destination.BaseBridgeFeeRate
	}
	fee, err := amount.BridgeFee(feeRate, req.TransferAmount, fromDecimals)
	if err != nil {
		return nil, err
	}

	total := new(big.Int).Add(units, fee)
	sender := common.HexToAddress(req.SenderAddress)
	balance, err := c.gateway.Balance(ctx, origin.ID, fromToken, sender)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(total) < 0 {
		return nil, errs.Preconditionf(errs.CodeInsufficientBalance,
			"sender holds %s, deposit requires %s", balance, total)
	}

	// Indicative figures for the deposit only; nothing here is authoritative.
	gasPrice, err := c.gateway.GasPrice(ctx, origin.ID)
	if err != nil {
		return nil, err
	}
	depositAddr := common.HexToAddress(origin.BridgeAccountAddress)
	callValue := total
	if fromToken.AssetClass == models.AssetERC20 {
		callValue = nil
	}
	gasLimit, err := c.gateway.EstimateGas(ctx, origin.ID, chain.CallMsg{
		From:     &sender,
		To:       &depositAddr,
		GasPrice: gasPrice,
		Value:    callValue,
	})
	if err != nil {
		return nil, err
	}
	head, err := c.gateway.LatestBlock(ctx, origin.ID)
	if err != nil {
		return nil, err
	}

	created, err := c.ledger.QuoteTransfer(ctx, store.QuoteInsert{
		SenderAddress:        req.SenderAddress,
		ReceiverAddress:      req.ReceiverAddress,
		FromTokenID:          fromToken.ID,
		ToTokenID:            toToken.ID,
		OriginNetworkID:      origin.ID,
		DestinationNetworkID: destination.ID,
		TransferAmount:       units,
		BridgeFee:            fee,
		CreatedBy:            req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Stringer("transfer", created.ID).
		Str("sender", req.SenderAddress).
		Str("amount", units.String()).
		Str("fee", fee.String()).
		Msg("transfer quoted")

	return &QuoteResponse{
		ID:                   created.ID,
		SenderAddress:        req.SenderAddress,
		ReceiverAddress:      bridge.BridgeAddress,
		DepositAddress:       origin.BridgeAccountAddress,
		TransferAmount:       total.String(),
		GasLimit:             gasLimit.String(),
		MaxPriorityFeePerGas: 0,
		MaxFeePerGas:         head.BaseFee().Uint64(),
	}, nil
}

// destinationBridge resolves the bridge row for a destination network,
// falling back to the configured bootstrap bridge id.
func (c *Coordinator) destinationBridge(ctx context.Context, destination *models.Network) (*models.Bridge, error) {
	bridge, err := c.ledger.GetBridgeByDestination(ctx, destination.ID)
	if err == nil {
		return bridge, nil
	}
	if c.cfg.Bridge.DefaultBridgeID != "" {
		if id, parseErr := uuid.Parse(c.cfg.Bridge.DefaultBridgeID); parseErr == nil {
			if bridge, defErr := c.ledger.GetBridge(ctx, id); defErr == nil {
				return bridge, nil
			}
		}
	}
	if destination.BridgeAccountAddress != "" {
		// Networks registered before a bridge row exists still quote against
		// their own bridge account.
		return &models.Bridge{
			DestinationNetworkID: destination.ID,
			BridgeAddress:        destination.BridgeAccountAddress,
			BridgeFeeRate:        destination.BaseBridgeFeeRate,
		}, nil
	}
	return nil, err
}
