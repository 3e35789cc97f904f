package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saingsab/jaamlong/internal/config"
	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/metrics"
	"github.com/saingsab/jaamlong/internal/models"
	"github.com/saingsab/jaamlong/internal/rpc"
	"github.com/saingsab/jaamlong/internal/store"
)

const erc20ABI = `[
  {"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
  {"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

func newTestGateway(t *testing.T) (*Gateway, *rpc.MockClient, *models.Network, store.Ledger) {
	t.Helper()
	ledger := store.NewMemory()
	network := &models.Network{
		NetworkName:          "testnet",
		NetworkRPC:           "http://node.test",
		ChainID:              1,
		DecimalValue:         18,
		BridgeAccountAddress: "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1",
	}
	require.NoError(t, ledger.CreateNetwork(context.Background(), network))

	mock := rpc.NewMockClient()
	cfg := &config.ChainConfig{RPCTimeout: time.Second, MinConfirmations: 2}
	gw := NewGateway(ledger, cfg, zerolog.Nop(), metrics.Nop()).
		WithDialer(func(string, time.Duration) rpc.Client { return mock })
	return gw, mock, network, ledger
}

func TestGasPrice(t *testing.T) {
	gw, mock, network, _ := newTestGateway(t)
	mock.SetResponse("eth_gasPrice", "0x6fc23ac00")

	price, err := gw.GasPrice(context.Background(), network.ID)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(30_000_000_000), price)
}

func TestGasPriceUnknownNetwork(t *testing.T) {
	gw, _, _, _ := newTestGateway(t)
	_, err := gw.GasPrice(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, errs.CodeUnknownNetwork, errs.CodeOf(err))
}

func TestTransportErrorIsChainUnavailable(t *testing.T) {
	gw, mock, network, _ := newTestGateway(t)
	mock.SetError("eth_gasPrice", errors.New("connection refused"))

	_, err := gw.GasPrice(context.Background(), network.ID)
	require.Error(t, err)
	assert.Equal(t, errs.CodeChainUnavailable, errs.CodeOf(err))
}

func TestMalformedResultIsDecodeError(t *testing.T) {
	gw, mock, network, _ := newTestGateway(t)
	mock.SetResponse("eth_gasPrice", "not-hex")

	_, err := gw.GasPrice(context.Background(), network.ID)
	require.Error(t, err)
	assert.Equal(t, errs.CodeDecodeError, errs.CodeOf(err))
}

func TestNonce(t *testing.T) {
	gw, mock, network, _ := newTestGateway(t)
	mock.SetHandler("eth_getTransactionCount", func(params interface{}) (interface{}, error) {
		list := params.([]interface{})
		if list[1] != "pending" {
			return nil, fmt.Errorf("expected pending nonce, got %v", list[1])
		}
		return "0x7", nil
	})

	nonce, err := gw.Nonce(context.Background(), network.ID, common.HexToAddress("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)
}

func TestLatestBlockBaseFeeDefaultsToZero(t *testing.T) {
	gw, mock, network, _ := newTestGateway(t)
	mock.SetResponse("eth_getBlockByNumber", map[string]interface{}{
		"number": "0x10",
		"hash":   common.HexToHash("0x01").Hex(),
	})

	block, err := gw.LatestBlock(context.Background(), network.ID)
	require.NoError(t, err)
	assert.Equal(t, "0", block.BaseFee().String())
}

func TestConfirmations(t *testing.T) {
	gw, mock, network, _ := newTestGateway(t)
	mock.SetResponse("eth_blockNumber", "0x14")
	mock.SetResponse("eth_getBlockByHash", map[string]interface{}{
		"number": "0x10",
		"hash":   common.HexToHash("0xb1").Hex(),
	})

	confs, err := gw.Confirmations(context.Background(), network.ID, common.HexToHash("0xb1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), confs)
}

func TestTransactionNotFound(t *testing.T) {
	gw, mock, network, _ := newTestGateway(t)
	mock.SetResponse("eth_getTransactionByHash", nil)

	_, err := gw.TransactionByHash(context.Background(), network.ID, common.HexToHash("0xaa"))
	require.Error(t, err)
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
}

func TestReceiptDecodes(t *testing.T) {
	gw, mock, network, _ := newTestGateway(t)
	mock.SetResponse("eth_getTransactionReceipt", map[string]interface{}{
		"transactionHash": common.HexToHash("0xaa").Hex(),
		"status":          "0x1",
		"blockHash":       common.HexToHash("0xb1").Hex(),
		"blockNumber":     "0x10",
		"logs":            []interface{}{},
	})

	receipt, err := gw.Receipt(context.Background(), network.ID, common.HexToHash("0xaa"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), uint64(receipt.Status))
	assert.Equal(t, common.HexToHash("0xb1"), receipt.BlockHash)
}

func TestSendRaw(t *testing.T) {
	gw, mock, network, _ := newTestGateway(t)
	wantHash := common.HexToHash("0xcc")
	mock.SetHandler("eth_sendRawTransaction", func(params interface{}) (interface{}, error) {
		list := params.([]interface{})
		raw := list[0].(string)
		if raw != "0x0102" {
			return nil, fmt.Errorf("unexpected raw payload %s", raw)
		}
		return wantHash.Hex(), nil
	})

	hash, err := gw.SendRaw(context.Background(), network.ID, []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, wantHash, hash)
}

func erc20Token(t *testing.T, ledger store.Ledger, networkID uuid.UUID) *models.Token {
	t.Helper()
	token := &models.Token{
		NetworkID:    networkID,
		TokenAddress: "0x2222222222222222222222222222222222222222",
		TokenSymbol:  "USDC",
		AssetClass:   models.AssetERC20,
		ABI:          json.RawMessage(erc20ABI),
	}
	require.NoError(t, ledger.CreateToken(context.Background(), token))
	return token
}

func TestERC20Decimals(t *testing.T) {
	gw, mock, network, ledger := newTestGateway(t)
	token := erc20Token(t, ledger, network.ID)

	mock.SetHandler("eth_call", func(params interface{}) (interface{}, error) {
		// decimals() selector 0x313ce567
		list := params.([]interface{})
		call := list[0].(map[string]interface{})
		if call["data"] != "0x313ce567" {
			return nil, fmt.Errorf("unexpected calldata %v", call["data"])
		}
		return "0x0000000000000000000000000000000000000000000000000000000000000006", nil
	})

	decimals, err := gw.ERC20Decimals(context.Background(), network.ID, token)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)
}

func TestERC20Balance(t *testing.T) {
	gw, mock, network, ledger := newTestGateway(t)
	token := erc20Token(t, ledger, network.ID)

	mock.SetResponse("eth_call", "0x0000000000000000000000000000000000000000000000000000000005f5e100")
	balance, err := gw.ERC20Balance(context.Background(), network.ID, token,
		common.HexToAddress("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100_000_000), balance)
}

func TestBalanceDispatchesOnAssetClass(t *testing.T) {
	gw, mock, network, ledger := newTestGateway(t)
	native := &models.Token{NetworkID: network.ID, TokenSymbol: "ETH", AssetClass: models.AssetNative}
	require.NoError(t, ledger.CreateToken(context.Background(), native))

	mock.SetResponse("eth_getBalance", "0xde0b6b3a7640000")
	balance, err := gw.Balance(context.Background(), network.ID, native,
		common.HexToAddress("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"))
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", balance.String())
	assert.Equal(t, 1, mock.CallCount("eth_getBalance"))
	assert.Equal(t, 0, mock.CallCount("eth_call"))
}
