package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

const defaultImportBatchSize = 500

// Neo4JLedgerSource serves transactions from the Wallet/SENT_TO graph
type Neo4JLedgerSource struct {
	client  *Neo4JClient
	network string
	logger  *logger.Logger
}

// NewNeo4JLedgerSource creates a ledger source over an imported graph
func NewNeo4JLedgerSource(client *Neo4JClient, network string, logger *logger.Logger) *Neo4JLedgerSource {
	return &Neo4JLedgerSource{
		client:  client,
		network: strings.ToLower(network),
		logger:  logger.WithComponent("neo4j-ledger-source"),
	}
}

// FetchTransactions returns the most recent transfers touching address in either direction
func (r *Neo4JLedgerSource) FetchTransactions(ctx context.Context, address string, limit int) ([]*entity.Transaction, error) {
	session, err := r.client.session(ctx, neo4j.AccessModeRead)
	if err != nil {
		return nil, &entity.FetchError{Key: address, Err: err}
	}
	defer session.Close(ctx)

	query := `
		MATCH (w:Wallet {address: $address})-[r:SENT_TO]-(:Wallet)
		RETURN DISTINCT startNode(r).address AS from, endNode(r).address AS to,
			r.tx_hash AS hash, r.value AS value, r.timestamp AS timestamp, r.block_number AS block_number
		ORDER BY timestamp DESC
	`
	params := map[string]any{"address": entity.NormalizeAddress(address)}
	if limit > 0 {
		query += " LIMIT $limit"
		params["limit"] = limit
	}

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, &entity.FetchError{Key: address, Err: fmt.Errorf("failed to query transfers: %w", err)}
	}

	records := result.([]*neo4j.Record)
	txs := make([]*entity.Transaction, 0, len(records))
	for _, record := range records {
		txs = append(txs, recordToTransaction(record))
	}

	r.logger.Debug("Fetched transfers",
		zap.String("address", address),
		zap.Int("count", len(txs)))
	return txs, nil
}

// FetchTransactionByHash looks up an imported transaction
func (r *Neo4JLedgerSource) FetchTransactionByHash(ctx context.Context, hash string) (*entity.TransactionDetail, error) {
	session, err := r.client.session(ctx, neo4j.AccessModeRead)
	if err != nil {
		return nil, &entity.FetchError{Key: hash, Err: err}
	}
	defer session.Close(ctx)

	query := `
		MATCH (from:Wallet)-[r:SENT_TO {tx_hash: $hash}]->(to:Wallet)
		OPTIONAL MATCH (t:Transaction {hash: $hash})
		RETURN from.address AS from, to.address AS to, r.tx_hash AS hash, r.value AS value,
			r.timestamp AS timestamp, r.block_number AS block_number, t.network AS network
		LIMIT 1
	`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"hash": strings.ToLower(hash)})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, &entity.FetchError{Key: hash, Err: fmt.Errorf("failed to query transaction: %w", err)}
	}

	records := result.([]*neo4j.Record)
	if len(records) == 0 {
		return nil, &entity.NotFoundError{Hash: hash}
	}

	detail := &entity.TransactionDetail{
		Transaction: *recordToTransaction(records[0]),
		Network:     stringValue(records[0], "network"),
	}
	if detail.Network == "" {
		detail.Network = r.network
	}
	return detail, nil
}

// Neo4JLedgerImporter writes transactions into the Wallet/SENT_TO graph
type Neo4JLedgerImporter struct {
	client    *Neo4JClient
	batchSize int
	logger    *logger.Logger
}

// NewNeo4JLedgerImporter creates an importer writing batchSize records per transaction
func NewNeo4JLedgerImporter(client *Neo4JClient, batchSize int, logger *logger.Logger) *Neo4JLedgerImporter {
	if batchSize <= 0 {
		batchSize = defaultImportBatchSize
	}
	return &Neo4JLedgerImporter{
		client:    client,
		batchSize: batchSize,
		logger:    logger.WithComponent("neo4j-ledger-importer"),
	}
}

// ImportTransactions merges wallets, transaction nodes and SENT_TO relationships in batches
func (r *Neo4JLedgerImporter) ImportTransactions(ctx context.Context, network string, transactions []*entity.Transaction) error {
	session, err := r.client.session(ctx, neo4j.AccessModeWrite)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	query := `
		UNWIND $transfers AS t
		MERGE (from:Wallet {address: t.from})
		ON CREATE SET from.network = $network, from.first_seen = t.timestamp
		SET from.last_seen = CASE WHEN coalesce(from.last_seen, 0) < t.timestamp THEN t.timestamp ELSE from.last_seen END
		MERGE (to:Wallet {address: t.to})
		ON CREATE SET to.network = $network, to.first_seen = t.timestamp
		SET to.last_seen = CASE WHEN coalesce(to.last_seen, 0) < t.timestamp THEN t.timestamp ELSE to.last_seen END
		MERGE (tx:Transaction {hash: t.hash})
		ON CREATE SET tx.network = $network, tx.timestamp = t.timestamp, tx.block_number = t.block_number, tx.value = t.value
		MERGE (from)-[r:SENT_TO {tx_hash: t.hash}]->(to)
		SET r.value = t.value,
			r.timestamp = t.timestamp,
			r.block_number = t.block_number
	`

	start := time.Now()
	batches := batchTransfers(transactions, r.batchSize)
	for i, batch := range batches {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, query, map[string]any{
				"transfers": batch,
				"network":   strings.ToLower(network),
			})
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			return fmt.Errorf("failed to import batch %d/%d: %w", i+1, len(batches), err)
		}

		r.logger.Debug("Imported batch",
			zap.Int("batch", i+1),
			zap.Int("size", len(batch)))
	}

	r.logger.Info("Imported transactions",
		zap.String("network", network),
		zap.Int("transactions", len(transactions)),
		zap.Int("batches", len(batches)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// batchTransfers converts transactions to query parameters split into batches of size
func batchTransfers(transactions []*entity.Transaction, size int) [][]map[string]any {
	var batches [][]map[string]any
	var current []map[string]any

	for _, tx := range transactions {
		if tx == nil || tx.Hash == "" {
			continue
		}
		current = append(current, transferParams(tx))
		if len(current) == size {
			batches = append(batches, current)
			current = nil
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func transferParams(tx *entity.Transaction) map[string]any {
	var block any
	if tx.BlockNumber != nil {
		block = *tx.BlockNumber
	}
	return map[string]any{
		"hash":         strings.ToLower(tx.Hash),
		"from":         entity.NormalizeAddress(tx.From),
		"to":           entity.NormalizeAddress(tx.To),
		"value":        tx.Value,
		"timestamp":    tx.Timestamp,
		"block_number": block,
	}
}

func recordToTransaction(record *neo4j.Record) *entity.Transaction {
	tx := &entity.Transaction{
		Hash:      stringValue(record, "hash"),
		From:      stringValue(record, "from"),
		To:        stringValue(record, "to"),
		Value:     stringValue(record, "value"),
		Timestamp: intValue(record, "timestamp"),
	}
	if v, ok := record.Get("block_number"); ok && v != nil {
		if block, ok := v.(int64); ok {
			tx.BlockNumber = &block
		}
	}
	return tx
}

func stringValue(record *neo4j.Record, key string) string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case int64:
		return fmt.Sprintf("%d", s)
	case float64:
		return fmt.Sprintf("%g", s)
	default:
		return fmt.Sprint(s)
	}
}

func intValue(record *neo4j.Record, key string) int64 {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case time.Time:
		return n.Unix()
	default:
		return 0
	}
}
