package config

import (
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// Network selects the address book, e.g. "testnet" or "mainnet".
	Network string

	// ChainID is the EIP-155 chain id of the target network (31 for RSK testnet, 30 for mainnet).
	ChainID uint64

	// KeystorePath is a geth-style encrypted key file used for signing.
	KeystorePath string
	// KeystorePassword unlocks KeystorePath.
	KeystorePassword string
	// PrivateKey is a hex private key, used when no keystore is configured.
	PrivateKey string

	// DefaultGasLimit is the fallback gas limit if estimation fails.
	DefaultGasLimit uint64
	// GasAdjustment is the multiplier applied to estimated gas.
	GasAdjustment float64
	// GasPriceWei is a fixed gas price. Nil means ask the node.
	GasPriceWei *big.Int

	// ReceiptTimeout bounds how long we wait for a transaction to be mined.
	ReceiptTimeout time.Duration
	// RPCRateLimit is the number of transactions per second batch scripts may send.
	RPCRateLimit float64

	// ContractsFile is the address book for Network.
	ContractsFile string
	// MultisigName is the address book entry of the governing MultiSigWallet.
	MultisigName string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// NETWORK, RPC_URL and CHAIN_ID are required; everything else has a default.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	Network, err = getEnv("NETWORK")
	if err != nil {
		return err
	}

	ChainID, err = getEnvAsUint64("CHAIN_ID")
	if err != nil {
		return err
	}

	KeystorePath = getEnvOrDefault("KEYSTORE_PATH", "")
	KeystorePassword = getEnvOrDefault("KEYSTORE_PASSWORD", "")
	PrivateKey = getEnvOrDefault("PRIVATE_KEY", "")

	DefaultGasLimit, err = getEnvAsUint64OrDefault("GAS_DEFAULT_LIMIT", 6_000_000)
	if err != nil {
		return err
	}

	GasAdjustment, err = getEnvAsFloat64OrDefault("GAS_ADJUSTMENT", 1.3)
	if err != nil {
		return err
	}

	GasPriceWei = nil
	if raw := getEnvOrDefault("GAS_PRICE_WEI", ""); raw != "" {
		price, ok := new(big.Int).SetString(raw, 10)
		if !ok || price.Sign() < 0 {
			return errors.New("environment variable GAS_PRICE_WEI must be a non-negative integer, got: " + raw)
		}
		if price.Sign() > 0 {
			GasPriceWei = price
		}
	}

	ReceiptTimeout, err = getEnvAsDurationOrDefault("RECEIPT_TIMEOUT", 5*time.Minute)
	if err != nil {
		return err
	}

	RPCRateLimit, err = getEnvAsFloat64OrDefault("RPC_RATE_LIMIT", 2)
	if err != nil {
		return err
	}

	ContractsFile = getEnvOrDefault("CONTRACTS_FILE", filepath.Join("networks", Network+"_contracts.json"))
	MultisigName = getEnvOrDefault("MULTISIG_NAME", "multisig")

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	// Expand the tilde (~) in the keystore path to the user's home directory.
	if strings.HasPrefix(KeystorePath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		KeystorePath = filepath.Join(home, KeystorePath[2:])
	}

	log.Debug().
		Str("Network", Network).
		Uint64("ChainID", ChainID).
		Str("ContractsFile", ContractsFile).
		Bool("keystore", KeystorePath != "").
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves an optional string environment variable.
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

func getEnvAsUint64OrDefault(key string, defaultValue uint64) (uint64, error) {
	if _, err := getEnv(key); err != nil {
		return defaultValue, nil
	}
	return getEnvAsUint64(key)
}

// getEnvAsFloat64 retrieves an environment variable as a float64. Returns error if not set or invalid.
func getEnvAsFloat64(key string) (float64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid float64, got: " + valueStr)
	}
	return value, nil
}

func getEnvAsFloat64OrDefault(key string, defaultValue float64) (float64, error) {
	if _, err := getEnv(key); err != nil {
		return defaultValue, nil
	}
	return getEnvAsFloat64(key)
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration, got: " + valueStr)
	}
	return value, nil
}
