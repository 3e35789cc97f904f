package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CallMsg enumerates the optional fields of an eth_call / eth_estimateGas
// request object.
type CallMsg struct {
	From     *common.Address
	To       *common.Address
	Gas      uint64
	GasPrice *big.Int
	Value    *big.Int
	Data     []byte
}

func (m CallMsg) toRPC() map[string]interface{} {
	obj := map[string]interface{}{}
	if m.From != nil {
		obj["from"] = m.From.Hex()
	}
	if m.To != nil {
		obj["to"] = m.To.Hex()
	}
	if m.Gas != 0 {
		obj["gas"] = hexutil.EncodeUint64(m.Gas)
	}
	if m.GasPrice != nil {
		obj["gasPrice"] = hexutil.EncodeBig(m.GasPrice)
	}
	if m.Value != nil {
		obj["value"] = hexutil.EncodeBig(m.Value)
	}
	if len(m.Data) > 0 {
		obj["data"] = hexutil.Encode(m.Data)
	}
	return obj
}

// Block is the subset of an eth block the coordinator reads.
type Block struct {
	Number        *hexutil.Big `json:"number"`
	Hash          common.Hash  `json:"hash"`
	BaseFeePerGas *hexutil.Big `json:"baseFeePerGas"`
}

// BaseFee returns the block base fee, zero for pre-London chains.
func (b *Block) BaseFee() *big.Int {
	if b == nil || b.BaseFeePerGas == nil {
		return new(big.Int)
	}
	return (*big.Int)(b.BaseFeePerGas)
}

// Transaction is the subset of an eth transaction the verifier reads.
type Transaction struct {
	Hash        common.Hash     `json:"hash"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	Value       *hexutil.Big    `json:"value"`
	BlockHash   *common.Hash    `json:"blockHash"`
	BlockNumber *hexutil.Big    `json:"blockNumber"`
}

// Log is one receipt log entry.
type Log struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

// Receipt is the subset of an eth receipt the verifier and poller read.
type Receipt struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	Status          hexutil.Uint64 `json:"status"`
	BlockHash       common.Hash    `json:"blockHash"`
	BlockNumber     *hexutil.Big   `json:"blockNumber"`
	GasUsed         hexutil.Uint64 `json:"gasUsed"`
	Logs            []Log          `json:"logs"`
}
