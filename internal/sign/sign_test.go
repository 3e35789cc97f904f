package sign

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeyHex    = "4c0883a69102937d6231471b5dbb1522d741beb41cdbd3d8a78f8e9e74d62aa1"
	testRecipient = "0x000000000000000000000000000000000000dEaD"
)

// erc20ABI is the minimal descriptor the bridge stores for ERC20 tokens.
const erc20ABI = `[
  {"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
  {"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

func testEnvelope(txType byte) *Envelope {
	to := common.HexToAddress(testRecipient)
	return &Envelope{
		Type:      txType,
		ChainID:   2,
		Nonce:     7,
		Gas:       21000,
		GasPrice:  big.NewInt(30_000_000_000),
		GasTipCap: big.NewInt(1_000_000_000),
		To:        &to,
		Value:     big.NewInt(1_000_000_000_000_000_000),
	}
}

// TestSignMatchesReferenceClient pins the strongest requirement: signed bytes
// are identical to go-ethereum's encoding of the same transaction.
func TestSignMatchesReferenceClient(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	to := common.HexToAddress(testRecipient)
	chainID := big.NewInt(2)

	tests := []struct {
		name     string
		envelope *Envelope
		refTx    *types.Transaction
		signer   types.Signer
	}{
		{
			name:     "legacy EIP-155",
			envelope: testEnvelope(LegacyTxType),
			refTx: types.NewTx(&types.LegacyTx{
				Nonce:    7,
				GasPrice: big.NewInt(30_000_000_000),
				Gas:      21000,
				To:       &to,
				Value:    big.NewInt(1_000_000_000_000_000_000),
			}),
			signer: types.NewEIP155Signer(chainID),
		},
		{
			name: "EIP-2930 access list",
			envelope: func() *Envelope {
				e := testEnvelope(AccessListTxType)
				e.AccessList = types.AccessList{{
					Address:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
					StorageKeys: []common.Hash{common.HexToHash("0x01")},
				}}
				return e
			}(),
			refTx: types.NewTx(&types.AccessListTx{
				ChainID:  chainID,
				Nonce:    7,
				GasPrice: big.NewInt(30_000_000_000),
				Gas:      21000,
				To:       &to,
				Value:    big.NewInt(1_000_000_000_000_000_000),
				AccessList: types.AccessList{{
					Address:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
					StorageKeys: []common.Hash{common.HexToHash("0x01")},
				}},
			}),
			signer: types.NewEIP2930Signer(chainID),
		},
		{
			name:     "EIP-1559 dynamic fee",
			envelope: testEnvelope(DynamicFeeTxType),
			refTx: types.NewTx(&types.DynamicFeeTx{
				ChainID:   chainID,
				Nonce:     7,
				GasTipCap: big.NewInt(1_000_000_000),
				GasFeeCap: big.NewInt(30_000_000_000),
				Gas:       21000,
				To:        &to,
				Value:     big.NewInt(1_000_000_000_000_000_000),
			}),
			signer: types.NewLondonSigner(chainID),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, err := Sign(tt.envelope, key)
			require.NoError(t, err)

			refSigned, err := types.SignTx(tt.refTx, tt.signer, key)
			require.NoError(t, err)
			want, err := refSigned.MarshalBinary()
			require.NoError(t, err)

			assert.Equal(t, hex.EncodeToString(want), hex.EncodeToString(signed.Raw))
			assert.Equal(t, refSigned.Hash(), signed.Hash)
		})
	}
}

// TestSignDeterministic verifies identical inputs produce identical bytes.
func TestSignDeterministic(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)

	for _, txType := range []byte{LegacyTxType, AccessListTxType, DynamicFeeTxType} {
		first, err := Sign(testEnvelope(txType), key)
		require.NoError(t, err)
		second, err := Sign(testEnvelope(txType), key)
		require.NoError(t, err)
		assert.Equal(t, first.Raw, second.Raw, "type %d", txType)
		assert.Equal(t, first.Hash, second.Hash, "type %d", txType)
	}
}

// TestLegacyVRule verifies v = recovery id + 35 + 2*chainID.
func TestLegacyVRule(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)

	env := testEnvelope(LegacyTxType)
	env.ChainID = 1
	signed, err := Sign(env, key)
	require.NoError(t, err)
	v := signed.V.Uint64()
	assert.True(t, v == 37 || v == 38, "v = %d", v)

	for _, txType := range []byte{AccessListTxType, DynamicFeeTxType} {
		signed, err := Sign(testEnvelope(txType), key)
		require.NoError(t, err)
		v := signed.V.Uint64()
		assert.True(t, v == 0 || v == 1, "type %d v = %d", txType, v)
	}
}

// TestSignContractCreation covers the nil-recipient encoding.
func TestSignContractCreation(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)

	env := testEnvelope(LegacyTxType)
	env.To = nil
	env.Data = []byte{0x60, 0x00}
	signed, err := Sign(env, key)
	require.NoError(t, err)

	refTx := types.NewTx(&types.LegacyTx{
		Nonce:    7,
		GasPrice: big.NewInt(30_000_000_000),
		Gas:      21000,
		Value:    big.NewInt(1_000_000_000_000_000_000),
		Data:     []byte{0x60, 0x00},
	})
	refSigned, err := types.SignTx(refTx, types.NewEIP155Signer(big.NewInt(2)), key)
	require.NoError(t, err)
	want, err := refSigned.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, want, signed.Raw)
}

// TestUnsupportedType rejects unknown envelope type ids.
func TestUnsupportedType(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)

	env := testEnvelope(3)
	_, err = Sign(env, key)
	require.Error(t, err)
}

// TestTransferCalldata pins the transfer(address,uint256) encoding.
func TestTransferCalldata(t *testing.T) {
	recipient := common.HexToAddress(testRecipient)
	amount := big.NewInt(100_000_000)

	data, err := TransferCalldata([]byte(erc20ABI), recipient, amount)
	require.NoError(t, err)
	require.Len(t, data, 4+32+32)

	// Selector for transfer(address,uint256).
	assert.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]))
	assert.Equal(t, recipient.Bytes(), data[4+12:4+32])
	assert.Equal(t, amount, new(big.Int).SetBytes(data[4+32:]))
}

func TestTransferCalldataMissingABI(t *testing.T) {
	_, err := TransferCalldata(nil, common.HexToAddress(testRecipient), big.NewInt(1))
	require.Error(t, err)
}
