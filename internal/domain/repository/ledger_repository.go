package repository

import (
	"context"

	"crypto-flow-tracer/internal/domain/entity"
)

// LedgerSource supplies transaction records for an address
type LedgerSource interface {
	// FetchTransactions returns at most limit transactions touching address, in source order.
	// Failures are reported as *entity.FetchError.
	FetchTransactions(ctx context.Context, address string, limit int) ([]*entity.Transaction, error)
}

// TransactionDetailSource looks up a single transaction by hash
type TransactionDetailSource interface {
	// FetchTransactionByHash returns *entity.NotFoundError when the hash is unknown
	FetchTransactionByHash(ctx context.Context, hash string) (*entity.TransactionDetail, error)
}

// Ledger combines both lookups, as most backends serve both
type Ledger interface {
	LedgerSource
	TransactionDetailSource
}

// LedgerWriter loads transactions into a ledger store
type LedgerWriter interface {
	// ImportTransactions creates wallets and transfers for the given records
	ImportTransactions(ctx context.Context, network string, transactions []*entity.Transaction) error
}
