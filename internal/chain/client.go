package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/DistributedCollective/sovryn-ops/internal/config"
	"github.com/DistributedCollective/sovryn-ops/internal/logger"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrKeyLoadFailed       = errors.New("signing key could not be loaded")
	ErrRPCConnectionFailed = errors.New("RPC connection failed")
	ErrChainIDMismatch     = errors.New("node chain id does not match configuration")
	ErrBackendInvalid      = errors.New("RPC backend is invalid")
)

// Backend is the subset of *ethclient.Client the toolkit uses.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Caller performs read-only contract calls.
type Caller interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Sender signs transactions for one account. *SigningClient implements it.
type Sender interface {
	Caller
	From() common.Address
	Send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.TxResult, error)
	SendAndWait(ctx context.Context, to common.Address, value *big.Int, data []byte) (*gethtypes.Receipt, *types.TxResult, error)
}

// Dial connects to the JSON-RPC endpoint.
func Dial(ctx context.Context, endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, errors.Join(ErrRPCConnectionFailed, errors.New("rpc endpoint required"))
	}
	client, err := ethclient.DialContext(ctx, trimmed)
	if err != nil {
		return nil, errors.Join(ErrRPCConnectionFailed, err)
	}
	return client, nil
}

// LoadKey decrypts a geth keystore file.
func LoadKey(path, password string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrKeyLoadFailed, fmt.Errorf("read keystore %s: %w", path, err))
	}
	key, err := keystore.DecryptKey(raw, password)
	if err != nil {
		return nil, errors.Join(ErrKeyLoadFailed, fmt.Errorf("decrypt keystore %s: %w", path, err))
	}
	return key.PrivateKey, nil
}

// KeyFromHex parses a hex private key with or without 0x prefix.
func KeyFromHex(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errors.Join(ErrKeyLoadFailed, err)
	}
	return key, nil
}

// KeyFromConfig loads the signing key from KEYSTORE_PATH or PRIVATE_KEY.
func KeyFromConfig() (*ecdsa.PrivateKey, error) {
	switch {
	case config.KeystorePath != "":
		return LoadKey(config.KeystorePath, config.KeystorePassword)
	case config.PrivateKey != "":
		return KeyFromHex(config.PrivateKey)
	default:
		return nil, errors.Join(ErrKeyLoadFailed, errors.New("set KEYSTORE_PATH or PRIVATE_KEY"))
	}
}

// Options tune how transactions are built and awaited.
type Options struct {
	ChainID         uint64
	DefaultGasLimit uint64
	GasAdjustment   float64
	GasPrice        *big.Int // nil asks the node
	GasBuffer       uint64
	ReceiptTimeout  time.Duration
	PollInterval    time.Duration
}

// DefaultOptions builds Options from the loaded configuration.
func DefaultOptions() Options {
	return Options{
		ChainID:         config.ChainID,
		DefaultGasLimit: config.DefaultGasLimit,
		GasAdjustment:   config.GasAdjustment,
		GasPrice:        config.GasPriceWei,
		GasBuffer:       10_000,
		ReceiptTimeout:  config.ReceiptTimeout,
		PollInterval:    2 * time.Second,
	}
}

func validateOptions(opts Options) error {
	if opts.ChainID == 0 {
		return errors.New("chain ID cannot be zero")
	}
	if opts.DefaultGasLimit == 0 {
		return errors.New("default gas limit cannot be zero")
	}
	if math.IsNaN(opts.GasAdjustment) || math.IsInf(opts.GasAdjustment, 0) {
		return errors.New("gas adjustment is not finite")
	}
	if opts.GasAdjustment < 1 || opts.GasAdjustment > 10 {
		return errors.New("gas adjustment must be between 1 and 10")
	}
	if opts.GasPrice != nil && opts.GasPrice.Sign() < 0 {
		return errors.New("gas price cannot be negative")
	}
	if opts.ReceiptTimeout <= 0 {
		return errors.New("receipt timeout must be positive")
	}
	if opts.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	return nil
}

// Reader performs read-only calls without a signing key.
type Reader struct {
	backend Backend
	from    common.Address
}

// NewReader wraps backend for eth_call.
func NewReader(backend Backend) *Reader {
	return &Reader{backend: backend}
}

// Backend exposes the underlying RPC client.
func (r *Reader) Backend() Backend {
	return r.backend
}

// Call executes eth_call against the latest block.
func (r *Reader) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{From: r.from, To: &to, Data: data}
	out, err := r.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call to %s: %w", to.Hex(), err)
	}
	return out, nil
}

// SigningClient signs and broadcasts legacy (EIP-155) transactions, the format RSK accepts.
type SigningClient struct {
	*Reader

	key     *ecdsa.PrivateKey
	chainID *big.Int
	opts    Options
	log     zerolog.Logger

	nonces *nonceTracker
}

// NewSigningClient validates the node chain id against opts and prepares a signer.
func NewSigningClient(ctx context.Context, backend Backend, key *ecdsa.PrivateKey, opts Options) (*SigningClient, error) {
	if backend == nil {
		return nil, errors.Join(ErrBackendInvalid, errors.New("backend cannot be nil"))
	}
	if key == nil {
		return nil, errors.Join(ErrKeyLoadFailed, errors.New("signing key cannot be nil"))
	}
	if err := validateOptions(opts); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	nodeChainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, errors.Join(ErrRPCConnectionFailed, fmt.Errorf("failed to read chain id: %w", err))
	}
	if nodeChainID.Uint64() != opts.ChainID {
		return nil, fmt.Errorf("%w: node=%s configured=%d", ErrChainIDMismatch, nodeChainID, opts.ChainID)
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	client := &SigningClient{
		Reader:  &Reader{backend: backend, from: from},
		key:     key,
		chainID: new(big.Int).SetUint64(opts.ChainID),
		opts:    opts,
		log:     logger.GetForComponent("signing_client"),
		nonces:  newNonceTracker(backend, from),
	}

	client.log.Info().
		Str("address", from.Hex()).
		Uint64("chainID", opts.ChainID).
		Msg("Signing client initialized")

	return client, nil
}

// From returns the signer address.
func (s *SigningClient) From() common.Address {
	return s.from
}

// ChainID returns the chain id transactions are signed for.
func (s *SigningClient) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Balance returns the native (RBTC) balance of addr.
func (s *SigningClient) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return s.backend.BalanceAt(ctx, addr, nil)
}
