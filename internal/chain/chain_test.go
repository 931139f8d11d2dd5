package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DistributedCollective/sovryn-ops/internal/chain/chaintest"
)

func testOptions() Options {
	return Options{
		ChainID:         31,
		DefaultGasLimit: 6_000_000,
		GasAdjustment:   1.5,
		GasBuffer:       10_000,
		ReceiptTimeout:  time.Second,
		PollInterval:    5 * time.Millisecond,
	}
}

func newTestClient(t *testing.T) (*SigningClient, *chaintest.Backend) {
	t.Helper()
	backend := chaintest.NewBackend(31)
	key, _ := chaintest.NewKey()
	client, err := NewSigningClient(context.Background(), backend, key, testOptions())
	require.NoError(t, err)
	return client, backend
}

func TestNewSigningClientChainIDMismatch(t *testing.T) {
	backend := chaintest.NewBackend(30)
	key, _ := chaintest.NewKey()

	_, err := NewSigningClient(context.Background(), backend, key, testOptions())
	assert.ErrorIs(t, err, ErrChainIDMismatch)
}

func TestNewSigningClientValidatesOptions(t *testing.T) {
	backend := chaintest.NewBackend(31)
	key, _ := chaintest.NewKey()

	opts := testOptions()
	opts.GasAdjustment = 0.5
	_, err := NewSigningClient(context.Background(), backend, key, opts)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSigningClient(context.Background(), nil, key, testOptions())
	assert.ErrorIs(t, err, ErrBackendInvalid)

	_, err = NewSigningClient(context.Background(), backend, nil, testOptions())
	assert.ErrorIs(t, err, ErrKeyLoadFailed)
}

func TestSendUsesConsecutiveNonces(t *testing.T) {
	client, backend := newTestClient(t)
	backend.SetNonce(client.From(), 7)
	to := chaintest.Address("target")

	first, err := client.Send(context.Background(), to, nil, []byte{0x01, 0x02, 0x03, 0x04})
	require.NoError(t, err)
	second, err := client.Send(context.Background(), to, big.NewInt(5), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), first.Nonce)
	assert.Equal(t, uint64(8), second.Nonce)

	sent := backend.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, client.From(), sent[0].From)
	assert.Equal(t, uint64(50_000*1.5+10_000), sent[0].Tx.Gas())
	assert.Equal(t, "5", sent[1].Tx.Value().String())
	assert.Equal(t, big.NewInt(31), sent[0].Tx.ChainId())
}

func TestSendFallsBackToDefaultGasLimit(t *testing.T) {
	client, backend := newTestClient(t)
	backend.EstimateErr = errors.New("rpc unavailable")

	res, err := client.Send(context.Background(), chaintest.Address("target"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(6_000_000), res.GasLimit)
}

func TestSendRefusesRevertingCall(t *testing.T) {
	client, backend := newTestClient(t)
	backend.EstimateErr = errors.New("execution reverted: unauthorized")

	_, err := client.Send(context.Background(), chaintest.Address("target"), nil, nil)
	assert.ErrorIs(t, err, ErrTxReverted)
	assert.Empty(t, backend.Sent())
}

func TestSendFixedGasPrice(t *testing.T) {
	backend := chaintest.NewBackend(31)
	key, _ := chaintest.NewKey()
	opts := testOptions()
	opts.GasPrice = big.NewInt(65_164_000)
	client, err := NewSigningClient(context.Background(), backend, key, opts)
	require.NoError(t, err)

	res, err := client.Send(context.Background(), chaintest.Address("target"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "65164000", res.GasPrice.String())
}

func TestSendResetsNonceAfterBroadcastFailure(t *testing.T) {
	client, backend := newTestClient(t)
	backend.SendErr = errors.New("connection refused")

	_, err := client.Send(context.Background(), chaintest.Address("target"), nil, nil)
	assert.ErrorIs(t, err, ErrTxBroadcastFailed)

	backend.SendErr = nil
	res, err := client.Send(context.Background(), chaintest.Address("target"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.Nonce)
}

func TestSendAndWaitPollsUntilMined(t *testing.T) {
	client, backend := newTestClient(t)
	backend.ReceiptDelay = 2

	receipt, res, err := client.SendAndWait(context.Background(), chaintest.Address("target"), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.True(t, res.Success)
	assert.Equal(t, uint64(101), res.BlockNumber)
	assert.NotZero(t, res.GasUsed)
}

func TestWaitReceiptTimeout(t *testing.T) {
	backend := chaintest.NewBackend(31)
	key, _ := chaintest.NewKey()
	opts := testOptions()
	opts.ReceiptTimeout = 20 * time.Millisecond
	client, err := NewSigningClient(context.Background(), backend, key, opts)
	require.NoError(t, err)

	_, err = client.WaitReceipt(context.Background(), common.HexToHash("0x01"))
	assert.ErrorIs(t, err, ErrReceiptTimeout)
}

func TestLookupTx(t *testing.T) {
	client, backend := newTestClient(t)
	ctx := context.Background()

	state, err := client.LookupTx(ctx, common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.Equal(t, TxNotFound, state)

	backend.ReceiptDelay = 1
	res, err := client.Send(ctx, chaintest.Address("target"), nil, nil)
	require.NoError(t, err)
	hash := common.HexToHash(res.TxHash)

	state, err = client.LookupTx(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, TxNotFound, state, "not mined on the first lookup")

	state, err = client.LookupTx(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, TxSucceeded, state)
}

func TestKeyFromHex(t *testing.T) {
	key, addr := chaintest.NewKey()
	hexKey := common.Bytes2Hex(crypto.FromECDSA(key))

	parsed, err := KeyFromHex("0x" + hexKey)
	require.NoError(t, err)
	assert.Equal(t, addr, crypto.PubkeyToAddress(parsed.PublicKey))

	_, err = KeyFromHex("not-a-key")
	assert.ErrorIs(t, err, ErrKeyLoadFailed)
}

func TestDialRequiresEndpoint(t *testing.T) {
	_, err := Dial(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrRPCConnectionFailed)
}
