package blockchain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/infrastructure/config"
	"crypto-flow-tracer/internal/infrastructure/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	chainID  *big.Int
	txs      map[common.Hash]*types.Transaction
	pending  map[common.Hash]bool
	receipts map[common.Hash]*types.Receipt
	headers  map[uint64]*types.Header
	txErr    error
	closed   bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(1),
		txs:      make(map[common.Hash]*types.Transaction),
		pending:  make(map[common.Hash]bool),
		receipts: make(map[common.Hash]*types.Receipt),
		headers:  make(map[uint64]*types.Header),
	}
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeBackend) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	if f.txErr != nil {
		return nil, false, f.txErr
	}
	tx, ok := f.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, f.pending[hash], nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	h, ok := f.headers[number.Uint64()]
	if !ok {
		return nil, ethereum.NotFound
	}
	return h, nil
}

func (f *fakeBackend) Close() {
	f.closed = true
}

// signedTransfer builds a signed legacy transfer and returns it with its sender
func signedTransfer(t *testing.T, chainID *big.Int, to *common.Address, wei *big.Int) (*types.Transaction, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    1,
		GasPrice: big.NewInt(1_000_000_000),
		Gas:      21000,
		To:       to,
		Value:    wei,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	require.NoError(t, err)
	return signed, crypto.PubkeyToAddress(key.PublicKey)
}

func newTestEthereumClient(t *testing.T, backend *fakeBackend) *EthereumClient {
	t.Helper()
	ec, err := newEthereumClient(context.Background(), backend, &config.EthereumConfig{Timeout: time.Second}, "Ethereum", logger.NewNop())
	require.NoError(t, err)
	return ec
}

func TestFetchTransactionByHash(t *testing.T) {
	backend := newFakeBackend()
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	oneAndHalfEth, _ := new(big.Int).SetString("1500000000000000000", 10)
	tx, sender := signedTransfer(t, backend.chainID, &recipient, oneAndHalfEth)

	backend.txs[tx.Hash()] = tx
	backend.receipts[tx.Hash()] = &types.Receipt{BlockNumber: big.NewInt(42)}
	backend.headers[42] = &types.Header{Number: big.NewInt(42), Time: 1700000000}

	ec := newTestEthereumClient(t, backend)
	detail, err := ec.FetchTransactionByHash(context.Background(), tx.Hash().Hex())
	require.NoError(t, err)

	assert.Equal(t, tx.Hash().Hex(), detail.Hash)
	assert.Equal(t, strings.ToLower(sender.Hex()), detail.From)
	assert.Equal(t, strings.ToLower(recipient.Hex()), detail.To)
	assert.Equal(t, "1.5", detail.Value)
	assert.Equal(t, "ethereum", detail.Network)
	assert.Equal(t, int64(1700000000), detail.Timestamp)
	require.NotNil(t, detail.BlockNumber)
	assert.Equal(t, int64(42), *detail.BlockNumber)
}

func TestFetchTransactionByHashPending(t *testing.T) {
	backend := newFakeBackend()
	tx, _ := signedTransfer(t, backend.chainID, nil, big.NewInt(0))
	backend.txs[tx.Hash()] = tx
	backend.pending[tx.Hash()] = true

	ec := newTestEthereumClient(t, backend)
	detail, err := ec.FetchTransactionByHash(context.Background(), tx.Hash().Hex())
	require.NoError(t, err)

	assert.Empty(t, detail.To)
	assert.Nil(t, detail.BlockNumber)
	assert.Zero(t, detail.Timestamp)
}

func TestFetchTransactionByHashNotFound(t *testing.T) {
	ec := newTestEthereumClient(t, newFakeBackend())
	hash := "0x" + strings.Repeat("ab", 32)

	_, err := ec.FetchTransactionByHash(context.Background(), hash)
	var notFound *entity.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, hash, notFound.Hash)
}

func TestFetchTransactionByHashRPCError(t *testing.T) {
	backend := newFakeBackend()
	backend.txErr = errors.New("connection reset")
	ec := newTestEthereumClient(t, backend)

	_, err := ec.FetchTransactionByHash(context.Background(), "0x"+strings.Repeat("ab", 32))
	var fetchErr *entity.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestClose(t *testing.T) {
	backend := newFakeBackend()
	ec := newTestEthereumClient(t, backend)
	ec.Close()
	assert.True(t, backend.closed)
}

func TestNewEthereumClientRequiresURL(t *testing.T) {
	_, err := NewEthereumClient(context.Background(), &config.EthereumConfig{}, "ethereum", logger.NewNop())
	assert.Error(t, err)
}
