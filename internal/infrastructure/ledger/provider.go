package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"crypto-flow-tracer/internal/domain/repository"
	"crypto-flow-tracer/internal/infrastructure/blockchain"
	"crypto-flow-tracer/internal/infrastructure/config"
	"crypto-flow-tracer/internal/infrastructure/database"
	"crypto-flow-tracer/internal/infrastructure/explorer"
	"crypto-flow-tracer/internal/infrastructure/fixture"
	"crypto-flow-tracer/internal/infrastructure/logger"
	"crypto-flow-tracer/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

// Backend names accepted by ledger.backend
const (
	BackendExplorer = "explorer"
	BackendNeo4J    = "neo4j"
	BackendFixture  = "fixture"
)

// Provider builds and caches one ledger per network
type Provider struct {
	cfg     *config.Config
	metrics *metrics.Collectors
	root    *logger.Logger
	logger  *logger.Logger

	mu      sync.Mutex
	ledgers map[string]repository.Ledger
	neo4j   *database.Neo4JClient
	fixture *fixture.Source
	closers []func(ctx context.Context) error
}

// NewProvider creates a provider; m may be nil to disable instrumentation
func NewProvider(cfg *config.Config, m *metrics.Collectors, log *logger.Logger) *Provider {
	return &Provider{
		cfg:     cfg,
		metrics: m,
		root:    log,
		logger:  log.WithComponent("ledger-provider"),
		ledgers: make(map[string]repository.Ledger),
	}
}

// Ledger returns the ledger serving network, the default network when empty
func (p *Provider) Ledger(ctx context.Context, network string) (repository.Ledger, error) {
	network = strings.ToLower(strings.TrimSpace(network))
	if network == "" {
		network = strings.ToLower(p.cfg.App.Network)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.ledgers[network]; ok {
		return l, nil
	}

	backend := strings.ToLower(p.cfg.Ledger.Backend)
	base, err := p.open(ctx, backend, network)
	if err != nil {
		return nil, err
	}

	var l repository.Ledger = base
	if p.cfg.Ethereum.Enabled && network == strings.ToLower(p.cfg.App.Network) {
		rpc, err := blockchain.NewEthereumClient(ctx, &p.cfg.Ethereum, network, p.root)
		if err != nil {
			return nil, fmt.Errorf("failed to create rpc detail source: %w", err)
		}
		p.closers = append(p.closers, func(context.Context) error {
			rpc.Close()
			return nil
		})
		l = &composite{LedgerSource: base, TransactionDetailSource: rpc}
	}

	if p.metrics != nil {
		l = NewInstrumented(l, backend, p.metrics)
	}

	p.logger.Info("Opened ledger",
		zap.String("network", network),
		zap.String("backend", backend),
		zap.Bool("rpc_details", p.cfg.Ethereum.Enabled))

	p.ledgers[network] = l
	return l, nil
}

// Neo4JClient returns the connected client, connecting on first use
func (p *Provider) Neo4JClient(ctx context.Context) (*database.Neo4JClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.neo4jClient(ctx)
}

// Close releases every connection opened by the provider
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	p.ledgers = make(map[string]repository.Ledger)
	p.neo4j = nil
	p.fixture = nil
	return errors.Join(errs...)
}

func (p *Provider) open(ctx context.Context, backend, network string) (repository.Ledger, error) {
	switch backend {
	case BackendExplorer:
		return explorer.NewClient(network, &p.cfg.Explorer, p.root)

	case BackendNeo4J:
		client, err := p.neo4jClient(ctx)
		if err != nil {
			return nil, err
		}
		return database.NewNeo4JLedgerSource(client, network, p.root), nil

	case BackendFixture:
		if p.fixture == nil {
			if p.cfg.Ledger.FixturePath == "" {
				return nil, errors.New("ledger.fixture_path is required for the fixture backend")
			}
			src, err := fixture.Load(p.cfg.Ledger.FixturePath, p.root)
			if err != nil {
				return nil, err
			}
			p.fixture = src
		}
		return p.fixture, nil

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", backend)
	}
}

func (p *Provider) neo4jClient(ctx context.Context) (*database.Neo4JClient, error) {
	if p.neo4j != nil {
		return p.neo4j, nil
	}

	client := database.NewNeo4JClient(&p.cfg.Neo4J, p.root)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	p.neo4j = client
	p.closers = append(p.closers, client.Close)
	return client, nil
}
