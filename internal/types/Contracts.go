/*

Address book types. Each network keeps a JSON (or YAML/TOML) file that maps a
contract name such as "sovrynProtocol", "multisig" or "iDOC" to its deployed address.

*/

package types

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

var ErrUnknownContract = errors.New("contract not found in address book")

// ContractBook maps contract names to deployed addresses for one network.
type ContractBook struct {
	Network   string
	Addresses map[string]common.Address
}

// Address returns the deployed address registered under name.
func (b ContractBook) Address(name string) (common.Address, error) {
	addr, ok := b.Addresses[name]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s (network %s)", ErrUnknownContract, name, b.Network)
	}
	return addr, nil
}

// Has reports whether name is registered.
func (b ContractBook) Has(name string) bool {
	_, ok := b.Addresses[name]
	return ok
}

// Names returns the registered contract names in sorted order.
func (b ContractBook) Names() []string {
	names := make([]string, 0, len(b.Addresses))
	for name := range b.Addresses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
