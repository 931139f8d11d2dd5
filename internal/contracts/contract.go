package contracts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/DistributedCollective/sovryn-ops/internal/chain"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

var (
	ErrABILoad        = errors.New("ABI could not be loaded")
	ErrUnknownMethod  = errors.New("method not found in ABI")
	ErrUnexpectedType = errors.New("unexpected return type")
)

// Parsed copies of the embedded ABIs.
var (
	Ownable           = mustParse("Ownable", OwnableABI)
	ERC20             = mustParse("ERC20", ERC20ABI)
	MultiSigWallet    = mustParse("MultiSigWallet", MultiSigWalletABI)
	LoanToken         = mustParse("LoanToken", LoanTokenABI)
	Protocol          = mustParse("Protocol", ProtocolABI)
	PriceFeeds        = mustParse("PriceFeeds", PriceFeedsABI)
	Converter         = mustParse("Converter", ConverterABI)
	SovrynSwapNetwork = mustParse("SovrynSwapNetwork", SovrynSwapNetworkABI)
	VestingRegistry   = mustParse("VestingRegistry", VestingRegistryABI)
	Vesting           = mustParse("Vesting", VestingABI)
	Staking           = mustParse("Staking", StakingABI)
)

func mustParse(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("contracts: invalid embedded %s ABI: %v", name, err))
	}
	return parsed
}

// LoadABI reads an ABI from disk. Both a bare ABI array and a build artifact
// with an "abi" field (Truffle, Brownie, Hardhat) are accepted.
func LoadABI(path string) (abi.ABI, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, errors.Join(ErrABILoad, err)
	}
	return ParseABI(raw)
}

// ParseABI parses ABI JSON in either of the formats LoadABI accepts.
func ParseABI(raw []byte) (abi.ABI, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return abi.ABI{}, errors.Join(ErrABILoad, errors.New("empty ABI"))
	}
	if trimmed[0] == '{' {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(trimmed, &artifact); err != nil {
			return abi.ABI{}, errors.Join(ErrABILoad, err)
		}
		if len(artifact.ABI) == 0 {
			return abi.ABI{}, errors.Join(ErrABILoad, errors.New(`artifact has no "abi" field`))
		}
		trimmed = artifact.ABI
	}
	parsed, err := abi.JSON(bytes.NewReader(trimmed))
	if err != nil {
		return abi.ABI{}, errors.Join(ErrABILoad, err)
	}
	return parsed, nil
}

// Contract is a deployed contract bound to its ABI.
type Contract struct {
	Name    string
	Address common.Address
	ABI     abi.ABI
}

// New binds an ABI to an address.
func New(name string, address common.Address, contractABI abi.ABI) *Contract {
	return &Contract{Name: name, Address: address, ABI: contractABI}
}

// Pack encodes a call to method.
func (c *Contract) Pack(method string, args ...interface{}) ([]byte, error) {
	if _, ok := c.ABI.Methods[method]; !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, c.Name, method)
	}
	data, err := c.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s.%s: %w", c.Name, method, err)
	}
	return data, nil
}

// Unpack decodes the return data of method.
func (c *Contract) Unpack(method string, out []byte) ([]interface{}, error) {
	values, err := c.ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s.%s: %w", c.Name, method, err)
	}
	return values, nil
}

// Call performs an eth_call and returns the decoded outputs.
func (c *Contract) Call(ctx context.Context, caller chain.Caller, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := caller.Call(ctx, c.Address, data)
	if err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", c.Name, method, err)
	}
	return c.Unpack(method, out)
}

// Transact sends a transaction calling method and waits for it to be mined.
func (c *Contract) Transact(ctx context.Context, sender chain.Sender, method string, args ...interface{}) (*types.TxResult, error) {
	data, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	_, result, err := sender.SendAndWait(ctx, c.Address, nil, data)
	if err != nil {
		return result, fmt.Errorf("%s.%s: %w", c.Name, method, err)
	}
	return result, nil
}

// CallBig calls a method whose first output is an integer.
func (c *Contract) CallBig(ctx context.Context, caller chain.Caller, method string, args ...interface{}) (*big.Int, error) {
	values, err := c.Call(ctx, caller, method, args...)
	if err != nil {
		return nil, err
	}
	return AsBig(values, 0)
}

// CallAddress calls a method whose first output is an address.
func (c *Contract) CallAddress(ctx context.Context, caller chain.Caller, method string, args ...interface{}) (common.Address, error) {
	values, err := c.Call(ctx, caller, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	return AsAddress(values, 0)
}

// CallBool calls a method whose first output is a bool.
func (c *Contract) CallBool(ctx context.Context, caller chain.Caller, method string, args ...interface{}) (bool, error) {
	values, err := c.Call(ctx, caller, method, args...)
	if err != nil {
		return false, err
	}
	if len(values) == 0 {
		return false, fmt.Errorf("%w: %s.%s returned nothing", ErrUnexpectedType, c.Name, method)
	}
	b, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("%w: %T is not bool", ErrUnexpectedType, values[0])
	}
	return b, nil
}

// AsBig converts output i to *big.Int. Small uint outputs (uint8, uint16, uint32) are widened.
func AsBig(values []interface{}, i int) (*big.Int, error) {
	if i >= len(values) {
		return nil, fmt.Errorf("%w: output %d missing", ErrUnexpectedType, i)
	}
	switch v := values[i].(type) {
	case *big.Int:
		return v, nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("%w: %T is not an integer", ErrUnexpectedType, values[i])
	}
}

// AsAddress converts output i to an address.
func AsAddress(values []interface{}, i int) (common.Address, error) {
	if i >= len(values) {
		return common.Address{}, fmt.Errorf("%w: output %d missing", ErrUnexpectedType, i)
	}
	addr, ok := values[i].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %T is not an address", ErrUnexpectedType, values[i])
	}
	return addr, nil
}

// Registry resolves address-book names into contract handles.
type Registry struct {
	book types.ContractBook
}

// NewRegistry wraps an address book.
func NewRegistry(book types.ContractBook) *Registry {
	return &Registry{book: book}
}

// Book returns the underlying address book.
func (r *Registry) Book() types.ContractBook {
	return r.book
}

// Handle returns the contract registered under name, bound to contractABI.
func (r *Registry) Handle(name string, contractABI abi.ABI) (*Contract, error) {
	addr, err := r.book.Address(name)
	if err != nil {
		return nil, err
	}
	return New(name, addr, contractABI), nil
}

// Resolve accepts either an address-book name or a hex address.
func (r *Registry) Resolve(nameOrAddress string) (common.Address, error) {
	if common.IsHexAddress(nameOrAddress) {
		return common.HexToAddress(nameOrAddress), nil
	}
	return r.book.Address(nameOrAddress)
}

// At binds an ABI to an explicit address or address-book name.
func (r *Registry) At(nameOrAddress string, contractABI abi.ABI) (*Contract, error) {
	addr, err := r.Resolve(nameOrAddress)
	if err != nil {
		return nil, err
	}
	return New(nameOrAddress, addr, contractABI), nil
}
