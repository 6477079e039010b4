package service

import (
	"context"
	"time"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/domain/repository"
	"crypto-flow-tracer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// BuildOptions bounds a graph traversal
type BuildOptions struct {
	Network   string
	MaxDepth  int
	Direction entity.Direction
	FanoutCap int
	// PageSize is the limit passed to the ledger source per address
	PageSize int
}

// GraphBuilder expands a seed address into a transaction graph
type GraphBuilder struct {
	source repository.LedgerSource
	logger *logger.Logger
	now    func() time.Time
}

// NewGraphBuilder creates a new graph builder
func NewGraphBuilder(source repository.LedgerSource, logger *logger.Logger) *GraphBuilder {
	return &GraphBuilder{
		source: source,
		logger: logger.WithComponent("graph-builder"),
		now:    time.Now,
	}
}

// Build performs a depth-first expansion from seed. Fetch failures degrade to empty
// neighbourhoods; only context cancellation is returned, together with the partial graph.
func (b *GraphBuilder) Build(ctx context.Context, seed string, opts BuildOptions) (*entity.Graph, error) {
	g := entity.NewGraph(seed, entity.GraphMetadata{
		Network:   opts.Network,
		Depth:     opts.MaxDepth,
		Direction: opts.Direction,
		CreatedAt: b.now().UTC(),
	})

	run := &graphBuild{
		builder: b,
		opts:    opts,
		graph:   g,
	}
	err := run.visit(ctx, g.Seed, 0)

	summary := g.Summarize()
	b.logger.Info("Graph built",
		zap.String("seed", g.Seed),
		zap.Int("max_depth", opts.MaxDepth),
		zap.String("direction", string(opts.Direction)),
		zap.Int("nodes", summary.NodeCount),
		zap.Int("edges", summary.EdgeCount),
		zap.Int("fetches", run.fetches))

	return g, err
}

// graphBuild owns the graph for the duration of one Build call
type graphBuild struct {
	builder *GraphBuilder
	opts    BuildOptions
	graph   *entity.Graph
	fetches int
}

func (r *graphBuild) visit(ctx context.Context, address entity.Address, depth int) error {
	if depth >= r.opts.MaxDepth {
		return nil
	}
	if !r.graph.AddNode(address, depth) {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	r.fetches++
	txs, err := r.builder.source.FetchTransactions(ctx, address, r.opts.PageSize)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.builder.logger.Warn("Failed to fetch transactions, treating as empty",
			zap.String("address", address),
			zap.Int("depth", depth),
			zap.Error(err))
		return nil
	}

	for _, tx := range takeFanout(txs, r.opts.FanoutCap) {
		class := entity.Classify(tx, address)

		if class.IsOutgoing() && r.opts.Direction.FollowsOutgoing() {
			if err := r.follow(ctx, tx, tx.To, depth); err != nil {
				return err
			}
		}
		if class.IsIncoming() && r.opts.Direction.FollowsIncoming() {
			if err := r.follow(ctx, tx, tx.From, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

// follow records the edge and descends into the far endpoint while depth allows.
// An empty endpoint (contract creation) is never expanded.
func (r *graphBuild) follow(ctx context.Context, tx *entity.Transaction, next string, depth int) error {
	r.graph.AddEdge(tx)
	address := entity.NormalizeAddress(next)
	if address == "" || depth+1 >= r.opts.MaxDepth {
		return nil
	}
	return r.visit(ctx, address, depth+1)
}

// takeFanout keeps the first n records in source order
func takeFanout(txs []*entity.Transaction, n int) []*entity.Transaction {
	if n < 0 {
		n = 0
	}
	if len(txs) > n {
		return txs[:n]
	}
	return txs
}
