package service

import (
	"context"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/domain/repository"
	"crypto-flow-tracer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// PathOptions bounds a path search
type PathOptions struct {
	MaxDepth  int
	MaxPaths  int
	FanoutCap int
	PageSize  int
}

// PathFinder enumerates simple outgoing paths between two addresses
type PathFinder struct {
	source repository.LedgerSource
	logger *logger.Logger
}

// NewPathFinder creates a new path finder
func NewPathFinder(source repository.LedgerSource, logger *logger.Logger) *PathFinder {
	return &PathFinder{
		source: source,
		logger: logger.WithComponent("path-finder"),
	}
}

// FindPaths searches depth-first from from to to. Paths are simple, discovered in source
// order and capped at MaxPaths across the whole search.
func (f *PathFinder) FindPaths(ctx context.Context, from, to string, opts PathOptions) (*entity.PathSet, error) {
	set := entity.NewPathSet(from, to)
	search := &pathSearch{
		finder:  f,
		opts:    opts,
		target:  set.To,
		result:  set,
		onPath:  make(map[entity.Address]bool),
		current: []entity.Address{set.From},
	}

	err := search.walk(ctx, set.From, 0)

	f.logger.Info("Path search finished",
		zap.String("from", set.From),
		zap.String("to", set.To),
		zap.Int("max_depth", opts.MaxDepth),
		zap.Int("paths", set.PathCount))

	return set, err
}

type pathSearch struct {
	finder  *PathFinder
	opts    PathOptions
	target  entity.Address
	result  *entity.PathSet
	onPath  map[entity.Address]bool
	current []entity.Address
}

func (s *pathSearch) full() bool {
	return s.result.PathCount >= s.opts.MaxPaths
}

func (s *pathSearch) walk(ctx context.Context, address entity.Address, depth int) error {
	if address == s.target {
		if !s.full() {
			s.result.Add(s.current)
		}
		return nil
	}
	if depth >= s.opts.MaxDepth || s.full() {
		return nil
	}

	s.onPath[address] = true
	defer delete(s.onPath, address)

	if err := ctx.Err(); err != nil {
		return err
	}
	txs, err := s.finder.source.FetchTransactions(ctx, address, s.opts.PageSize)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.finder.logger.Warn("Failed to fetch transactions, dead end",
			zap.String("address", address),
			zap.Int("depth", depth),
			zap.Error(err))
		return nil
	}

	for _, tx := range takeFanout(outgoing(txs, address), s.opts.FanoutCap) {
		if s.full() {
			break
		}
		next := entity.NormalizeAddress(tx.To)
		if next == "" || s.onPath[next] {
			continue
		}

		s.current = append(s.current, next)
		err := s.walk(ctx, next, depth+1)
		s.current = s.current[:len(s.current)-1]
		if err != nil {
			return err
		}
	}
	return nil
}

// outgoing keeps the records sent by address, preserving order
func outgoing(txs []*entity.Transaction, address string) []*entity.Transaction {
	out := make([]*entity.Transaction, 0, len(txs))
	for _, tx := range txs {
		if entity.Classify(tx, address).IsOutgoing() {
			out = append(out, tx)
		}
	}
	return out
}
