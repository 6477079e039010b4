package service

import (
	"context"
	"fmt"
	"strings"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/domain/repository"
	"crypto-flow-tracer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// ImportResult reports what an import wrote and skipped
type ImportResult struct {
	Network  string `json:"network"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// ImportService loads static transaction sets into a ledger store
type ImportService struct {
	writer repository.LedgerWriter
	logger *logger.Logger
}

// NewImportService creates a new import service
func NewImportService(writer repository.LedgerWriter, logger *logger.Logger) *ImportService {
	return &ImportService{
		writer: writer,
		logger: logger.WithComponent("import-service"),
	}
}

// Import writes every complete record; records missing a hash or an endpoint are skipped
func (s *ImportService) Import(ctx context.Context, network string, transactions []*entity.Transaction) (*ImportResult, error) {
	result := &ImportResult{Network: strings.ToLower(network)}
	if result.Network == "" {
		return nil, &entity.InvalidInputError{Field: "network", Reason: "must not be empty"}
	}

	valid := make([]*entity.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx == nil || strings.TrimSpace(tx.Hash) == "" || strings.TrimSpace(tx.From) == "" || strings.TrimSpace(tx.To) == "" {
			result.Skipped++
			continue
		}
		valid = append(valid, tx)
	}

	if result.Skipped > 0 {
		s.logger.Warn("Skipping incomplete transactions",
			zap.Int("skipped", result.Skipped))
	}

	if err := s.writer.ImportTransactions(ctx, result.Network, valid); err != nil {
		return nil, fmt.Errorf("failed to import transactions: %w", err)
	}
	result.Imported = len(valid)

	s.logger.Info("Import completed",
		zap.String("network", result.Network),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}
