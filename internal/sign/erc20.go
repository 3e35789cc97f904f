package sign

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/saingsab/jaamlong/internal/errs"
)

// TransferCalldata encodes transfer(recipient, amount) against the token's
// ABI descriptor. The descriptor must declare transfer(address,uint256).
func TransferCalldata(abiJSON json.RawMessage, recipient common.Address, amount *big.Int) ([]byte, error) {
	if len(abiJSON) == 0 {
		return nil, errs.Validationf(errs.CodeUnsupportedAsset, "token ABI missing")
	}
	parsed, err := abi.JSON(strings.NewReader(string(abiJSON)))
	if err != nil {
		return nil, errs.Upstreamf(errs.CodeDecodeError, err, "parsing token ABI")
	}
	data, err := parsed.Pack("transfer", recipient, amount)
	if err != nil {
		return nil, errs.Upstreamf(errs.CodeDecodeError, err, "encoding transfer call")
	}
	return data, nil
}
