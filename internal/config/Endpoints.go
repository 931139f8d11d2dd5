package config

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// RPCURL is the JSON-RPC endpoint of the RSK node.
	RPCURL string
	// ExplorerURL is the block explorer base used when printing transaction links.
	ExplorerURL string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	RPCURL, err = getEnv("RPC_URL")
	if err != nil {
		return err
	}

	ExplorerURL = strings.TrimRight(getEnvOrDefault("EXPLORER_URL", defaultExplorer(Network)), "/")

	log.Debug().
		Str("RPCURL", RPCURL).
		Str("ExplorerURL", ExplorerURL).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}

func defaultExplorer(network string) string {
	switch network {
	case "mainnet":
		return "https://explorer.rsk.co"
	case "testnet":
		return "https://explorer.testnet.rsk.co"
	default:
		return ""
	}
}

// TxLink returns an explorer link for hash, or the bare hash when no explorer is known.
func TxLink(hash string) string {
	if ExplorerURL == "" {
		return hash
	}
	return ExplorerURL + "/tx/" + hash
}
