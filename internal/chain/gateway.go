// Package chain is the stateless JSON-RPC facade over every registered
// network. All calls resolve the endpoint from the ledger per network id and
// share one HTTP transport per endpoint. The gateway never retries; retry
// policy belongs to the coordinator.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saingsab/jaamlong/internal/config"
	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/metrics"
	"github.com/saingsab/jaamlong/internal/models"
	"github.com/saingsab/jaamlong/internal/rpc"
	"github.com/saingsab/jaamlong/internal/store"
)

// Dialer builds an rpc.Client for an endpoint. Swapped in tests.
type Dialer func(endpoint string, timeout time.Duration) rpc.Client

// Gateway exposes the chain read/broadcast operations keyed by network id.
type Gateway struct {
	ledger  store.Ledger
	cfg     *config.ChainConfig
	dial    Dialer
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	clients map[string]rpc.Client
}

// NewGateway creates a gateway resolving endpoints through the given ledger.
func NewGateway(ledger store.Ledger, cfg *config.ChainConfig, logger zerolog.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		ledger: ledger,
		cfg:    cfg,
		dial: func(endpoint string, timeout time.Duration) rpc.Client {
			return rpc.NewHTTPClient(endpoint, timeout)
		},
		logger:  logger.With().Str("component", "chain-gateway").Logger(),
		metrics: m,
		clients: make(map[string]rpc.Client),
	}
}

// WithDialer overrides the transport factory; used by tests.
func (g *Gateway) WithDialer(d Dialer) *Gateway {
	g.dial = d
	return g
}

// Close releases every cached transport.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.clients {
		c.Close()
	}
	g.clients = make(map[string]rpc.Client)
}

// MinConfirmations returns the configured confirmation depth for a network.
func (g *Gateway) MinConfirmations(networkID uuid.UUID) uint64 {
	return g.cfg.MinConfirmationsFor(networkID.String())
}

func (g *Gateway) client(ctx context.Context, networkID uuid.UUID) (rpc.Client, *models.Network, error) {
	network, err := g.ledger.GetNetwork(ctx, networkID)
	if err != nil {
		return nil, nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.clients[network.NetworkRPC]
	if !ok {
		c = g.dial(network.NetworkRPC, g.cfg.RPCTimeoutFor(networkID.String()))
		g.clients[network.NetworkRPC] = c
	}
	return c, network, nil
}

// call performs one JSON-RPC call and decodes the result into out. A nil
// result ("null") is reported through the returned flag so callers can map it
// to NotFound where a missing entity is an expected outcome.
func (g *Gateway) call(ctx context.Context, networkID uuid.UUID, method string, params interface{}, out interface{}) (bool, error) {
	client, _, err := g.client(ctx, networkID)
	if err != nil {
		return false, err
	}
	start := time.Now()
	raw, err := client.Call(ctx, method, params)
	g.metrics.ObserveRPC(method, start, err)
	if err != nil {
		g.logger.Debug().Err(err).Str("method", method).Stringer("network", networkID).Msg("rpc call failed")
		return false, errs.Upstreamf(errs.CodeChainUnavailable, err, "%s failed", method)
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return true, nil
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return false, errs.Upstreamf(errs.CodeDecodeError, err, "malformed %s result", method)
		}
	}
	return false, nil
}

func (g *Gateway) callBig(ctx context.Context, networkID uuid.UUID, method string, params interface{}) (*big.Int, error) {
	var out hexutil.Big
	null, err := g.call(ctx, networkID, method, params, &out)
	if err != nil {
		return nil, err
	}
	if null {
		return nil, errs.Upstreamf(errs.CodeDecodeError, nil, "null %s result", method)
	}
	return (*big.Int)(&out), nil
}

// GasPrice returns the node's suggested gas price.
func (g *Gateway) GasPrice(ctx context.Context, networkID uuid.UUID) (*big.Int, error) {
	return g.callBig(ctx, networkID, "eth_gasPrice", nil)
}

// EstimateGas estimates gas for the given call.
func (g *Gateway) EstimateGas(ctx context.Context, networkID uuid.UUID, call CallMsg) (*big.Int, error) {
	return g.callBig(ctx, networkID, "eth_estimateGas", []interface{}{call.toRPC()})
}

// Nonce returns the pending-inclusive nonce for an address.
func (g *Gateway) Nonce(ctx context.Context, networkID uuid.UUID, addr common.Address) (uint64, error) {
	v, err := g.callBig(ctx, networkID, "eth_getTransactionCount", []interface{}{addr.Hex(), "pending"})
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// ChainID returns the chain id the node reports.
func (g *Gateway) ChainID(ctx context.Context, networkID uuid.UUID) (*big.Int, error) {
	return g.callBig(ctx, networkID, "eth_chainId", nil)
}

// BlockNumber returns the current block height.
func (g *Gateway) BlockNumber(ctx context.Context, networkID uuid.UUID) (uint64, error) {
	v, err := g.callBig(ctx, networkID, "eth_blockNumber", nil)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// LatestBlock returns the head block header fields the coordinator reads.
func (g *Gateway) LatestBlock(ctx context.Context, networkID uuid.UUID) (*Block, error) {
	var block Block
	null, err := g.call(ctx, networkID, "eth_getBlockByNumber", []interface{}{"latest", false}, &block)
	if err != nil {
		return nil, err
	}
	if null {
		return nil, errs.Upstreamf(errs.CodeNotFound, nil, "latest block not found")
	}
	return &block, nil
}

// blockByHash fetches a block header by hash.
func (g *Gateway) blockByHash(ctx context.Context, networkID uuid.UUID, hash common.Hash) (*Block, error) {
	var block Block
	null, err := g.call(ctx, networkID, "eth_getBlockByHash", []interface{}{hash.Hex(), false}, &block)
	if err != nil {
		return nil, err
	}
	if null {
		return nil, errs.Upstreamf(errs.CodeNotFound, nil, "block %s not found", hash)
	}
	return &block, nil
}

// Confirmations computes current height minus the height of the given block.
func (g *Gateway) Confirmations(ctx context.Context, networkID uuid.UUID, blockHash common.Hash) (uint64, error) {
	current, err := g.BlockNumber(ctx, networkID)
	if err != nil {
		return 0, err
	}
	block, err := g.blockByHash(ctx, networkID, blockHash)
	if err != nil {
		return 0, err
	}
	if block.Number == nil {
		return 0, errs.Upstreamf(errs.CodeDecodeError, nil, "block %s has no number", blockHash)
	}
	included := (*big.Int)(block.Number).Uint64()
	if current < included {
		return 0, nil
	}
	return current - included, nil
}

// TransactionByHash fetches a transaction, NotFound when the node has none.
func (g *Gateway) TransactionByHash(ctx context.Context, networkID uuid.UUID, hash common.Hash) (*Transaction, error) {
	var tx Transaction
	null, err := g.call(ctx, networkID, "eth_getTransactionByHash", []interface{}{hash.Hex()}, &tx)
	if err != nil {
		return nil, err
	}
	if null {
		return nil, errs.Upstreamf(errs.CodeNotFound, nil, "transaction %s not found", hash)
	}
	return &tx, nil
}

// Receipt fetches a transaction receipt, NotFound while the tx is pending.
func (g *Gateway) Receipt(ctx context.Context, networkID uuid.UUID, hash common.Hash) (*Receipt, error) {
	var receipt Receipt
	null, err := g.call(ctx, networkID, "eth_getTransactionReceipt", []interface{}{hash.Hex()}, &receipt)
	if err != nil {
		return nil, err
	}
	if null {
		return nil, errs.Upstreamf(errs.CodeNotFound, nil, "receipt %s not found", hash)
	}
	return &receipt, nil
}

// NativeBalance returns the native-asset balance of an address.
func (g *Gateway) NativeBalance(ctx context.Context, networkID uuid.UUID, addr common.Address) (*big.Int, error) {
	return g.callBig(ctx, networkID, "eth_getBalance", []interface{}{addr.Hex(), "latest"})
}

// SendRaw broadcasts a signed transaction and returns its hash.
func (g *Gateway) SendRaw(ctx context.Context, networkID uuid.UUID, raw []byte) (common.Hash, error) {
	var out common.Hash
	null, err := g.call(ctx, networkID, "eth_sendRawTransaction", []interface{}{hexutil.Encode(raw)}, &out)
	if err != nil {
		return common.Hash{}, err
	}
	if null {
		return common.Hash{}, errs.Upstreamf(errs.CodeDecodeError, nil, "null eth_sendRawTransaction result")
	}
	return out, nil
}
