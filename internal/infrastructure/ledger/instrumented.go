package ledger

import (
	"context"
	"errors"
	"time"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/domain/repository"
	"crypto-flow-tracer/internal/infrastructure/metrics"
)

// Instrumented records prometheus metrics around every ledger call
type Instrumented struct {
	next    repository.Ledger
	source  string
	metrics *metrics.Collectors
}

// NewInstrumented wraps next, labelling its metrics with source
func NewInstrumented(next repository.Ledger, source string, m *metrics.Collectors) *Instrumented {
	return &Instrumented{next: next, source: source, metrics: m}
}

// FetchTransactions delegates and records the outcome
func (l *Instrumented) FetchTransactions(ctx context.Context, address string, limit int) ([]*entity.Transaction, error) {
	start := time.Now()
	txs, err := l.next.FetchTransactions(ctx, address, limit)
	l.metrics.ObserveFetch(l.source, "fetch_transactions", outcome(err), time.Since(start))
	return txs, err
}

// FetchTransactionByHash delegates and records the outcome
func (l *Instrumented) FetchTransactionByHash(ctx context.Context, hash string) (*entity.TransactionDetail, error) {
	start := time.Now()
	detail, err := l.next.FetchTransactionByHash(ctx, hash)
	l.metrics.ObserveFetch(l.source, "fetch_transaction_by_hash", outcome(err), time.Since(start))
	return detail, err
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	var notFound *entity.NotFoundError
	if errors.As(err, &notFound) {
		return metrics.OutcomeNotFound
	}
	return metrics.OutcomeError
}

// composite serves address history and hash lookups from different backends
type composite struct {
	repository.LedgerSource
	repository.TransactionDetailSource
}
