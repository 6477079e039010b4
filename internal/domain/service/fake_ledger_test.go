package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"crypto-flow-tracer/internal/domain/entity"
)

// fakeLedger is a map-backed ledger source keyed by lower-cased address
type fakeLedger struct {
	mu      sync.Mutex
	txs     map[string][]*entity.Transaction
	failing map[string]bool
	calls   []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		txs:     make(map[string][]*entity.Transaction),
		failing: make(map[string]bool),
	}
}

// send registers a transfer under both endpoints, in call order
func (f *fakeLedger) send(hash, from, to, value string) *entity.Transaction {
	tx := &entity.Transaction{Hash: hash, From: from, To: to, Value: value, Timestamp: 1700000000}
	f.add(from, tx)
	if !strings.EqualFold(from, to) {
		f.add(to, tx)
	}
	return tx
}

// add registers tx under address only
func (f *fakeLedger) add(address string, tx *entity.Transaction) {
	key := strings.ToLower(address)
	f.txs[key] = append(f.txs[key], tx)
}

func (f *fakeLedger) fail(address string) {
	f.failing[strings.ToLower(address)] = true
}

func (f *fakeLedger) FetchTransactions(ctx context.Context, address string, limit int) ([]*entity.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.ToLower(address)
	f.calls = append(f.calls, key)
	if f.failing[key] {
		return nil, &entity.FetchError{Key: key, Err: errors.New("upstream unavailable")}
	}
	txs := f.txs[key]
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (f *fakeLedger) fetchCount(address string) int {
	n := 0
	for _, c := range f.calls {
		if c == strings.ToLower(address) {
			n++
		}
	}
	return n
}
