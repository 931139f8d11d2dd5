package multisig

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrUndecodable = errors.New("call data does not match any known method")

// DecodedCall is a submission payload rendered for review.
type DecodedCall struct {
	Method    string   `json:"method"`
	Signature string   `json:"signature"`
	Args      []string `json:"args"`
}

func (d DecodedCall) String() string {
	return fmt.Sprintf("%s(%s)", d.Method, strings.Join(d.Args, ", "))
}

// DecodeCall decodes data against contractABI.
func DecodeCall(contractABI abi.ABI, data []byte) (*DecodedCall, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrUndecodable, len(data))
	}
	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		return nil, errors.Join(ErrUndecodable, err)
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s arguments: %w", method.Name, err)
	}

	args := make([]string, len(values))
	for i, v := range values {
		name := method.Inputs[i].Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		args[i] = name + "=" + formatValue(v)
	}
	return &DecodedCall{Method: method.Name, Signature: method.Sig, Args: args}, nil
}

// DecodeAny tries each ABI in turn and returns the first match.
func DecodeAny(data []byte, abis ...abi.ABI) (*DecodedCall, error) {
	for _, a := range abis {
		if decoded, err := DecodeCall(a, data); err == nil {
			return decoded, nil
		}
	}
	selector := ""
	if len(data) >= 4 {
		selector = hexutil.Encode(data[:4])
	}
	return nil, fmt.Errorf("%w: selector %s", ErrUndecodable, selector)
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case *big.Int:
		return val.String()
	case common.Address:
		return val.Hex()
	case []byte:
		return hexutil.Encode(val)
	case [32]byte:
		return hexutil.Encode(val[:])
	case []common.Address:
		parts := make([]string, len(val))
		for i, a := range val {
			parts[i] = a.Hex()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case []*big.Int:
		parts := make([]string, len(val))
		for i, n := range val {
			parts[i] = n.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
