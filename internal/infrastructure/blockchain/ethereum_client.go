package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/infrastructure/config"
	"crypto-flow-tracer/internal/infrastructure/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// rpcBackend is the subset of ethclient.Client used for transaction lookups
type rpcBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	Close()
}

// EthereumClient resolves transactions by hash over an EVM JSON-RPC node
type EthereumClient struct {
	backend rpcBackend
	network string
	chainID *big.Int
	config  *config.EthereumConfig
	logger  *logger.Logger
}

// NewEthereumClient dials the configured RPC endpoint
func NewEthereumClient(ctx context.Context, cfg *config.EthereumConfig, network string, log *logger.Logger) (*EthereumClient, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("ethereum rpc url is not configured")
	}

	dialCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	client, err := ethclient.DialContext(dialCtx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum rpc: %w", err)
	}

	ec, err := newEthereumClient(dialCtx, client, cfg, network, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	return ec, nil
}

func newEthereumClient(ctx context.Context, backend rpcBackend, cfg *config.EthereumConfig, network string, log *logger.Logger) (*EthereumClient, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	componentLogger := log.WithComponent("ethereum-client")
	componentLogger.Info("Connected to ethereum rpc",
		zap.String("network", network),
		zap.String("chain_id", chainID.String()))

	return &EthereumClient{
		backend: backend,
		network: strings.ToLower(network),
		chainID: chainID,
		config:  cfg,
		logger:  componentLogger,
	}, nil
}

// FetchTransactionByHash looks up a transaction, its sender and its block timestamp
func (ec *EthereumClient) FetchTransactionByHash(ctx context.Context, hash string) (*entity.TransactionDetail, error) {
	if ec.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ec.config.Timeout)
		defer cancel()
	}

	txHash := common.HexToHash(hash)
	tx, pending, err := ec.backend.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, &entity.NotFoundError{Hash: hash}
		}
		return nil, &entity.FetchError{Key: hash, Err: err}
	}

	from, err := types.Sender(types.LatestSignerForChainID(ec.chainID), tx)
	if err != nil {
		return nil, &entity.FetchError{Key: hash, Err: fmt.Errorf("failed to derive sender: %w", err)}
	}

	detail := &entity.TransactionDetail{
		Transaction: entity.Transaction{
			Hash:  tx.Hash().Hex(),
			From:  strings.ToLower(from.Hex()),
			Value: FormatUnits(tx.Value().String(), 18),
		},
		Network: ec.network,
	}
	// Contract creations have no recipient
	if to := tx.To(); to != nil {
		detail.To = strings.ToLower(to.Hex())
	}

	if pending {
		return detail, nil
	}

	receipt, err := ec.backend.TransactionReceipt(ctx, txHash)
	if err != nil {
		ec.logger.Warn("Failed to get receipt",
			zap.String("hash", hash),
			zap.Error(err))
		return detail, nil
	}
	if receipt.BlockNumber == nil {
		return detail, nil
	}
	block := receipt.BlockNumber.Int64()
	detail.BlockNumber = &block

	header, err := ec.backend.HeaderByNumber(ctx, receipt.BlockNumber)
	if err != nil {
		ec.logger.Warn("Failed to get block header",
			zap.String("hash", hash),
			zap.Int64("block", block),
			zap.Error(err))
		return detail, nil
	}
	detail.Timestamp = int64(header.Time)

	return detail, nil
}

// Close closes the RPC connection
func (ec *EthereumClient) Close() {
	ec.backend.Close()
}
