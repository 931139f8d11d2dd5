/*

Loads the per-network address book (testnet_contracts.json, mainnet_contracts.json).
JSON is the canonical format; YAML and TOML copies are accepted for hand-maintained overrides.

*/

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var (
	ErrContractsFile   = errors.New("address book could not be read")
	ErrInvalidAddress  = errors.New("address book entry is not a valid address")
	ErrUnsupportedBook = errors.New("unsupported address book format")
)

// LoadContracts reads the address book at path. The format is chosen by extension.
func LoadContracts(network, path string) (types.ContractBook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.ContractBook{}, errors.Join(ErrContractsFile, err)
	}

	entries := make(map[string]string)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &entries)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &entries)
	case ".toml":
		_, err = toml.Decode(string(raw), &entries)
	default:
		return types.ContractBook{}, fmt.Errorf("%w: %s", ErrUnsupportedBook, path)
	}
	if err != nil {
		return types.ContractBook{}, errors.Join(ErrContractsFile, fmt.Errorf("decode %s: %w", path, err))
	}

	book, err := NewContractBook(network, entries)
	if err != nil {
		return types.ContractBook{}, err
	}

	log.Debug().
		Str("network", network).
		Str("path", path).
		Int("contracts", len(book.Addresses)).
		Msg("Address book loaded.")

	return book, nil
}

// NewContractBook validates raw name -> hex entries.
func NewContractBook(network string, entries map[string]string) (types.ContractBook, error) {
	book := types.ContractBook{
		Network:   network,
		Addresses: make(map[string]common.Address, len(entries)),
	}
	for name, value := range entries {
		value = strings.TrimSpace(value)
		if !common.IsHexAddress(value) {
			return types.ContractBook{}, fmt.Errorf("%w: %s = %q", ErrInvalidAddress, name, value)
		}
		book.Addresses[name] = common.HexToAddress(value)
	}
	return book, nil
}
