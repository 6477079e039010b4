package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/domain/repository"
	domainservice "crypto-flow-tracer/internal/domain/service"
	"crypto-flow-tracer/internal/infrastructure/blockchain"
	"crypto-flow-tracer/internal/infrastructure/config"
	"crypto-flow-tracer/internal/infrastructure/logger"
	"crypto-flow-tracer/internal/infrastructure/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Operation names used in logs and metrics
const (
	OperationTrace   = "trace"
	OperationTraceTx = "trace_tx"
	OperationPath    = "find_path"
	OperationFlow    = "flow"
)

// LedgerResolver returns the ledger serving a network
type LedgerResolver interface {
	Ledger(ctx context.Context, network string) (repository.Ledger, error)
}

// TraceRequest asks for the transaction graph around an address.
// Zero values fall back to configured defaults.
type TraceRequest struct {
	Address   string `json:"address"`
	Network   string `json:"network,omitempty"`
	Depth     int    `json:"depth,omitempty"`
	Direction string `json:"direction,omitempty"`
	FanoutCap int    `json:"fanoutCap,omitempty"`
}

// PathRequest asks for outgoing paths between two addresses
type PathRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Network   string `json:"network,omitempty"`
	MaxDepth  int    `json:"maxDepth,omitempty"`
	MaxPaths  int    `json:"maxPaths,omitempty"`
	FanoutCap int    `json:"fanoutCap,omitempty"`
}

// TracingService validates requests and runs the graph, path and flow engines
type TracingService struct {
	ledgers        LedgerResolver
	validator      *blockchain.Validator
	trace          config.TraceConfig
	defaultNetwork string
	metrics        *metrics.Collectors
	root           *logger.Logger
	logger         *logger.Logger
}

// NewTracingService creates a tracing service; m may be nil
func NewTracingService(ledgers LedgerResolver, cfg *config.Config, m *metrics.Collectors, logger *logger.Logger) *TracingService {
	return &TracingService{
		ledgers:        ledgers,
		validator:      blockchain.NewValidator(cfg.Trace.StrictAddresses),
		trace:          cfg.Trace,
		defaultNetwork: strings.ToLower(cfg.App.Network),
		metrics:        m,
		root:           logger,
		logger:         logger.WithComponent("tracing-service"),
	}
}

// TraceAddress builds the bounded transaction graph around req.Address
func (s *TracingService) TraceAddress(ctx context.Context, req TraceRequest) (graph *entity.Graph, err error) {
	start := time.Now()
	defer func() { s.observe(OperationTrace, start, err) }()

	network := s.network(req.Network)
	if err := s.validator.ValidateAddress("address", network, req.Address); err != nil {
		return nil, err
	}
	token := req.Direction
	if token == "" {
		token = s.trace.Direction
	}
	direction, err := entity.ParseDirection(token)
	if err != nil {
		return nil, err
	}
	depth, err := s.depth(req.Depth, s.trace.DefaultDepth)
	if err != nil {
		return nil, err
	}

	ledger, err := s.ledgers.Ledger(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger for %s: %w", network, err)
	}

	s.logger.Info("Tracing address",
		zap.String("address", req.Address),
		zap.String("network", network),
		zap.Int("depth", depth),
		zap.String("direction", string(direction)))

	builder := domainservice.NewGraphBuilder(ledger, s.root)
	graph, err = builder.Build(ctx, req.Address, domainservice.BuildOptions{
		Network:   network,
		MaxDepth:  depth,
		Direction: direction,
		FanoutCap: s.fanout(req.FanoutCap),
		PageSize:  s.trace.PageSize,
	})
	if s.metrics != nil {
		s.metrics.GraphNodes.Observe(float64(len(graph.Nodes)))
	}
	return graph, err
}

// TraceTransaction looks up hash and summarizes the flows of both endpoints concurrently
func (s *TracingService) TraceTransaction(ctx context.Context, hash, network string) (trace *entity.TransactionTrace, err error) {
	start := time.Now()
	defer func() { s.observe(OperationTraceTx, start, err) }()

	network = s.network(network)
	if err := s.validator.ValidateHash(network, hash); err != nil {
		return nil, err
	}

	ledger, err := s.ledgers.Ledger(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger for %s: %w", network, err)
	}

	detail, err := ledger.FetchTransactionByHash(ctx, strings.TrimSpace(hash))
	if err != nil {
		var notFound *entity.NotFoundError
		if errors.As(err, &notFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to look up transaction %s: %w", hash, err)
	}

	s.logger.Info("Tracing transaction",
		zap.String("hash", detail.Hash),
		zap.String("from", detail.From),
		zap.String("to", detail.To))

	aggregator := domainservice.NewFlowAggregator(ledger, s.root)
	trace = &entity.TransactionTrace{Transaction: detail}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		trace.FromFlow = s.summarize(gctx, aggregator, detail.From)
		return nil
	})
	g.Go(func() error {
		trace.ToFlow = s.summarize(gctx, aggregator, detail.To)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return trace, ctx.Err()
}

// FindPaths enumerates outgoing paths between req.From and req.To
func (s *TracingService) FindPaths(ctx context.Context, req PathRequest) (paths *entity.PathSet, err error) {
	start := time.Now()
	defer func() { s.observe(OperationPath, start, err) }()

	network := s.network(req.Network)
	if err := s.validator.ValidateAddress("from", network, req.From); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateAddress("to", network, req.To); err != nil {
		return nil, err
	}
	depth, err := s.depth(req.MaxDepth, s.trace.PathMaxDepth)
	if err != nil {
		return nil, err
	}
	maxPaths, err := s.maxPaths(req.MaxPaths)
	if err != nil {
		return nil, err
	}

	ledger, err := s.ledgers.Ledger(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger for %s: %w", network, err)
	}

	s.logger.Info("Finding paths",
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.String("network", network),
		zap.Int("max_depth", depth),
		zap.Int("max_paths", maxPaths))

	finder := domainservice.NewPathFinder(ledger, s.root)
	return finder.FindPaths(ctx, req.From, req.To, domainservice.PathOptions{
		MaxDepth:  depth,
		MaxPaths:  maxPaths,
		FanoutCap: s.fanout(req.FanoutCap),
		PageSize:  s.trace.PageSize,
	})
}

// FlowSummary summarizes one page of history for address; lookback <= 0 uses the page size
func (s *TracingService) FlowSummary(ctx context.Context, address, network string, lookback int) (summary *entity.FlowSummary, err error) {
	start := time.Now()
	defer func() { s.observe(OperationFlow, start, err) }()

	network = s.network(network)
	if err := s.validator.ValidateAddress("address", network, address); err != nil {
		return nil, err
	}

	ledger, err := s.ledgers.Ledger(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger for %s: %w", network, err)
	}

	if lookback <= 0 {
		lookback = s.trace.PageSize
	}
	return domainservice.NewFlowAggregator(ledger, s.root).Summarize(ctx, address, lookback), nil
}

func (s *TracingService) summarize(ctx context.Context, aggregator *domainservice.FlowAggregator, address string) *entity.FlowSummary {
	// Contract creations have no recipient to summarize
	if strings.TrimSpace(address) == "" {
		return entity.NewFlowSummary(address)
	}
	return aggregator.Summarize(ctx, address, s.trace.PageSize)
}

func (s *TracingService) network(network string) string {
	network = strings.ToLower(strings.TrimSpace(network))
	if network == "" {
		return s.defaultNetwork
	}
	return network
}

// depth applies the default for zero and clamps to the configured hard limit
func (s *TracingService) depth(requested, fallback int) (int, error) {
	if requested < 0 {
		return 0, &entity.InvalidInputError{Field: "depth", Reason: "must be at least 1"}
	}
	if requested == 0 {
		requested = fallback
	}
	if requested < 1 {
		requested = 1
	}
	if s.trace.MaxDepthLimit > 0 && requested > s.trace.MaxDepthLimit {
		s.logger.Warn("Requested depth exceeds limit, clamping",
			zap.Int("requested", requested),
			zap.Int("limit", s.trace.MaxDepthLimit))
		requested = s.trace.MaxDepthLimit
	}
	return requested, nil
}

func (s *TracingService) maxPaths(requested int) (int, error) {
	if requested < 0 {
		return 0, &entity.InvalidInputError{Field: "maxPaths", Reason: "must be at least 1"}
	}
	if requested == 0 {
		requested = s.trace.MaxPaths
	}
	if requested < 1 {
		requested = 1
	}
	if s.trace.MaxPathsLimit > 0 && requested > s.trace.MaxPathsLimit {
		requested = s.trace.MaxPathsLimit
	}
	return requested, nil
}

func (s *TracingService) fanout(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.trace.FanoutCap
}

func (s *TracingService) observe(operation string, start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error("Operation failed",
			zap.String("operation", operation),
			zap.Duration("duration", elapsed),
			zap.Error(err))
	} else {
		s.logger.Debug("Operation completed",
			zap.String("operation", operation),
			zap.Duration("duration", elapsed))
	}

	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		var notFound *entity.NotFoundError
		if errors.As(err, &notFound) {
			outcome = metrics.OutcomeNotFound
		}
	}
	s.metrics.ObserveOperation(operation, outcome, elapsed)
}
