package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DistributedCollective/sovryn-ops/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	protocolAddr = "0x25380305f223B32FDB844152abD2E82BC5Ad99c3"
	multisigAddr = "0x189ecD23E9e34CFC07bFC3b7f5711A23F43F8a57"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadContractsFormats(t *testing.T) {
	cases := map[string]string{
		"testnet_contracts.json": `{"sovrynProtocol": "` + protocolAddr + `", "multisig": "` + multisigAddr + `"}`,
		"testnet_contracts.yaml": "sovrynProtocol: \"" + protocolAddr + "\"\nmultisig: \"" + multisigAddr + "\"\n",
		"testnet_contracts.toml": "sovrynProtocol = \"" + protocolAddr + "\"\nmultisig = \"" + multisigAddr + "\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			book, err := LoadContracts("testnet", writeFile(t, name, body))
			require.NoError(t, err)

			addr, err := book.Address("sovrynProtocol")
			require.NoError(t, err)
			assert.Equal(t, common.HexToAddress(protocolAddr), addr)
			assert.Equal(t, []string{"multisig", "sovrynProtocol"}, book.Names())
		})
	}
}

func TestLoadContractsRejectsBadEntries(t *testing.T) {
	_, err := LoadContracts("testnet", writeFile(t, "bad.json", `{"SOV": "0x1234"}`))
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = LoadContracts("testnet", writeFile(t, "book.ini", `SOV=1`))
	require.ErrorIs(t, err, ErrUnsupportedBook)

	_, err = LoadContracts("testnet", filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, ErrContractsFile)
}

func TestUnknownContract(t *testing.T) {
	book, err := NewContractBook("mainnet", map[string]string{"SOV": protocolAddr})
	require.NoError(t, err)
	_, err = book.Address("iXUSD")
	require.ErrorIs(t, err, types.ErrUnknownContract)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("NETWORK", "testnet")
	t.Setenv("CHAIN_ID", "31")
	t.Setenv("RPC_URL", "https://public-node.testnet.rsk.co")
	t.Setenv("GAS_PRICE_WEI", "")
	t.Setenv("GAS_ADJUSTMENT", "")
	t.Setenv("RECEIPT_TIMEOUT", "")
	t.Setenv("CONTRACTS_FILE", "")
	t.Setenv("EXPLORER_URL", "")

	require.NoError(t, LoadConfig())
	assert.Equal(t, uint64(31), ChainID)
	assert.Equal(t, 1.3, GasAdjustment)
	assert.Nil(t, GasPriceWei)
	assert.Equal(t, 5*time.Minute, ReceiptTimeout)
	assert.Equal(t, filepath.Join("networks", "testnet_contracts.json"), ContractsFile)
	assert.Equal(t, "https://explorer.testnet.rsk.co/tx/0xabc", TxLink("0xabc"))
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("NETWORK", "testnet")
	t.Setenv("RPC_URL", "http://localhost:4444")

	t.Setenv("CHAIN_ID", "thirty-one")
	require.Error(t, LoadConfig())

	t.Setenv("CHAIN_ID", "31")
	t.Setenv("GAS_PRICE_WEI", "-5")
	require.Error(t, LoadConfig())

	t.Setenv("GAS_PRICE_WEI", "65164000")
	require.NoError(t, LoadConfig())
	assert.Equal(t, int64(65164000), GasPriceWei.Int64())
}
