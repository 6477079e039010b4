package fixture

import (
	"context"
	"fmt"
	"os"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/infrastructure/logger"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a ledger fixture. JSON files parse as well.
type File struct {
	Network      string                `yaml:"network"`
	Transactions []*entity.Transaction `yaml:"transactions"`
}

// Source serves transactions from an in-memory ledger loaded from a file
type Source struct {
	network   string
	all       []*entity.Transaction
	byAddress map[entity.Address][]*entity.Transaction
	byHash    map[string]*entity.Transaction
}

// Load reads a fixture file from disk
func Load(path string, log *logger.Logger) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}

	src, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}

	log.WithComponent("fixture-ledger").Info("Loaded ledger fixture",
		zap.String("path", path),
		zap.String("network", src.network),
		zap.Int("transactions", len(src.all)),
		zap.Int("addresses", len(src.byAddress)))
	return src, nil
}

// Parse builds a source from fixture bytes
func Parse(data []byte) (*Source, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return New(f.Network, f.Transactions), nil
}

// New indexes transactions by endpoint, preserving their order
func New(network string, txs []*entity.Transaction) *Source {
	s := &Source{
		network:   network,
		byAddress: make(map[entity.Address][]*entity.Transaction),
		byHash:    make(map[string]*entity.Transaction),
	}
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		s.all = append(s.all, tx)
		s.byHash[entity.NormalizeAddress(tx.Hash)] = tx

		from := entity.NormalizeAddress(tx.From)
		to := entity.NormalizeAddress(tx.To)
		s.byAddress[from] = append(s.byAddress[from], tx)
		if to != from {
			s.byAddress[to] = append(s.byAddress[to], tx)
		}
	}
	return s
}

// FetchTransactions returns up to limit transactions touching address; limit <= 0 means all
func (s *Source) FetchTransactions(ctx context.Context, address string, limit int) ([]*entity.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, &entity.FetchError{Key: address, Err: err}
	}

	txs := s.byAddress[entity.NormalizeAddress(address)]
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	out := make([]*entity.Transaction, len(txs))
	copy(out, txs)
	return out, nil
}

// FetchTransactionByHash looks up a transaction by its hash
func (s *Source) FetchTransactionByHash(ctx context.Context, hash string) (*entity.TransactionDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, &entity.FetchError{Key: hash, Err: err}
	}

	tx, ok := s.byHash[entity.NormalizeAddress(hash)]
	if !ok {
		return nil, &entity.NotFoundError{Hash: hash}
	}
	return &entity.TransactionDetail{Transaction: *tx, Network: s.network}, nil
}

// Transactions returns every record in file order
func (s *Source) Transactions() []*entity.Transaction {
	return s.all
}

// Network returns the network label declared by the fixture
func (s *Source) Network() string {
	return s.network
}
