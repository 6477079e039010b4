package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/domain/repository"
	"crypto-flow-tracer/internal/infrastructure/config"
	"crypto-flow-tracer/internal/infrastructure/fixture"
	"crypto-flow-tracer/internal/infrastructure/logger"
	"crypto-flow-tracer/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticResolver struct {
	ledger   repository.Ledger
	err      error
	networks []string
}

func (r *staticResolver) Ledger(ctx context.Context, network string) (repository.Ledger, error) {
	r.networks = append(r.networks, network)
	return r.ledger, r.err
}

type failingDetails struct {
	repository.Ledger
	err error
}

func (f *failingDetails) FetchTransactionByHash(ctx context.Context, hash string) (*entity.TransactionDetail, error) {
	return nil, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Network: "ethereum"},
		Trace: config.TraceConfig{
			DefaultDepth:  2,
			MaxDepthLimit: 3,
			Direction:     "both",
			FanoutCap:     10,
			PageSize:      50,
			PathMaxDepth:  3,
			MaxPaths:      10,
			MaxPathsLimit: 20,
		},
	}
}

// chainLedger is A -> B -> C -> D -> E plus A -> C
func chainLedger() *fixture.Source {
	return fixture.New("ethereum", []*entity.Transaction{
		{Hash: "0x1", From: "A", To: "B", Value: "1", Timestamp: 1},
		{Hash: "0x2", From: "B", To: "C", Value: "2", Timestamp: 2},
		{Hash: "0x3", From: "C", To: "D", Value: "3", Timestamp: 3},
		{Hash: "0x4", From: "D", To: "E", Value: "4", Timestamp: 4},
		{Hash: "0x5", From: "A", To: "C", Value: "5", Timestamp: 5},
	})
}

func newTestService(t *testing.T, ledger repository.Ledger, m *metrics.Collectors) (*TracingService, *staticResolver) {
	t.Helper()
	resolver := &staticResolver{ledger: ledger}
	return NewTracingService(resolver, testConfig(), m, logger.New(zaptest.NewLogger(t))), resolver
}

func TestTraceAddress(t *testing.T) {
	svc, resolver := newTestService(t, chainLedger(), nil)

	g, err := svc.TraceAddress(context.Background(), TraceRequest{Address: "A", Direction: "out"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ethereum"}, resolver.networks)
	assert.Equal(t, 2, g.Metadata.Depth)
	assert.Equal(t, entity.DirectionOut, g.Metadata.Direction)
	assert.Equal(t, "ethereum", g.Metadata.Network)
	for _, n := range g.Nodes {
		assert.Less(t, n.Depth, 2)
	}
	assert.True(t, g.HasNode("b"))
	assert.True(t, g.HasNode("c"))
	assert.False(t, g.HasNode("d"))
}

func TestTraceAddressClampsDepth(t *testing.T) {
	svc, _ := newTestService(t, chainLedger(), nil)

	g, err := svc.TraceAddress(context.Background(), TraceRequest{Address: "A", Depth: 50, Direction: "out"})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Metadata.Depth)
	assert.False(t, g.HasNode("e"))
}

func TestTraceAddressInvalidInput(t *testing.T) {
	svc, resolver := newTestService(t, chainLedger(), nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   TraceRequest
		field string
	}{
		{"empty address", TraceRequest{Address: " "}, "address"},
		{"bad direction", TraceRequest{Address: "A", Direction: "sideways"}, "direction"},
		{"negative depth", TraceRequest{Address: "A", Depth: -1}, "depth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.TraceAddress(ctx, tt.req)
			var invalid *entity.InvalidInputError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
	assert.Empty(t, resolver.networks, "validation must fail before any ledger is opened")
}

func TestTraceAddressStrictValidation(t *testing.T) {
	cfg := testConfig()
	cfg.Trace.StrictAddresses = true
	svc := NewTracingService(&staticResolver{ledger: chainLedger()}, cfg, nil, logger.NewNop())

	_, err := svc.TraceAddress(context.Background(), TraceRequest{Address: "0x123"})
	var invalid *entity.InvalidInputError
	assert.True(t, errors.As(err, &invalid))

	_, err = svc.TraceAddress(context.Background(), TraceRequest{Address: "0x" + strings.Repeat("a", 40)})
	assert.NoError(t, err)
}

func TestTraceAddressLedgerUnavailable(t *testing.T) {
	resolver := &staticResolver{err: errors.New("no explorer configured")}
	svc := NewTracingService(resolver, testConfig(), nil, logger.NewNop())

	_, err := svc.TraceAddress(context.Background(), TraceRequest{Address: "A", Network: "Solana"})
	assert.ErrorContains(t, err, "no explorer configured")
	assert.Equal(t, []string{"solana"}, resolver.networks)
}

func TestTraceTransaction(t *testing.T) {
	m := metrics.NewCollectors()
	svc, _ := newTestService(t, chainLedger(), m)

	trace, err := svc.TraceTransaction(context.Background(), "0x2", "")
	require.NoError(t, err)

	assert.Equal(t, "B", trace.Transaction.From)
	assert.Equal(t, "C", trace.Transaction.To)

	// B: in 1 from A, out 2 to C
	assert.Equal(t, "b", trace.FromFlow.Address)
	assert.Equal(t, 1.0, trace.FromFlow.TotalIn)
	assert.Equal(t, 2.0, trace.FromFlow.TotalOut)
	assert.Equal(t, -1.0, trace.FromFlow.NetFlow)

	// C: in 2 from B and 5 from A, out 3 to D
	assert.Equal(t, "c", trace.ToFlow.Address)
	assert.Equal(t, 7.0, trace.ToFlow.TotalIn)
	assert.Equal(t, 3.0, trace.ToFlow.TotalOut)
	assert.Equal(t, 3, trace.ToFlow.TransactionCount)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues(OperationTraceTx, metrics.OutcomeSuccess)))
}

func TestTraceTransactionNotFound(t *testing.T) {
	m := metrics.NewCollectors()
	svc, _ := newTestService(t, chainLedger(), m)

	_, err := svc.TraceTransaction(context.Background(), "0xmissing", "")
	var notFound *entity.NotFoundError
	require.True(t, errors.As(err, &notFound))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues(OperationTraceTx, metrics.OutcomeNotFound)))
}

func TestTraceTransactionLookupError(t *testing.T) {
	ledger := &failingDetails{Ledger: chainLedger(), err: &entity.FetchError{Key: "0x2", Err: errors.New("timeout")}}
	svc, _ := newTestService(t, ledger, nil)

	_, err := svc.TraceTransaction(context.Background(), "0x2", "")
	var fetchErr *entity.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.ErrorContains(t, err, "failed to look up transaction")
}

func TestTraceTransactionEmptyHash(t *testing.T) {
	svc, resolver := newTestService(t, chainLedger(), nil)

	_, err := svc.TraceTransaction(context.Background(), "", "")
	var invalid *entity.InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "hash", invalid.Field)
	assert.Empty(t, resolver.networks)
}

func TestTraceTransactionContractCreation(t *testing.T) {
	ledger := fixture.New("ethereum", []*entity.Transaction{
		{Hash: "0xc", From: "A", To: "", Value: "0"},
	})
	svc, _ := newTestService(t, ledger, nil)

	trace, err := svc.TraceTransaction(context.Background(), "0xc", "")
	require.NoError(t, err)
	assert.Equal(t, 0, trace.ToFlow.TransactionCount)
	assert.Empty(t, trace.ToFlow.Incoming)
}

func TestFindPaths(t *testing.T) {
	svc, _ := newTestService(t, chainLedger(), nil)

	set, err := svc.FindPaths(context.Background(), PathRequest{From: "A", To: "C"})
	require.NoError(t, err)
	require.Equal(t, 2, set.PathCount)
	assert.Equal(t, []entity.Address{"a", "b", "c"}, set.Paths[0])
	assert.Equal(t, []entity.Address{"a", "c"}, set.Paths[1])
}

func TestFindPathsCaps(t *testing.T) {
	svc, _ := newTestService(t, chainLedger(), nil)
	ctx := context.Background()

	set, err := svc.FindPaths(ctx, PathRequest{From: "A", To: "C", MaxPaths: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, set.PathCount)

	// depth clamps to 3, too short to reach E
	set, err = svc.FindPaths(ctx, PathRequest{From: "A", To: "E", MaxDepth: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, set.PathCount)
	assert.Equal(t, []entity.Address{"a", "c", "d", "e"}, set.Paths[0])

	_, err = svc.FindPaths(ctx, PathRequest{From: "A", To: "C", MaxPaths: -1})
	var invalid *entity.InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "maxPaths", invalid.Field)

	_, err = svc.FindPaths(ctx, PathRequest{From: "A", To: ""})
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "to", invalid.Field)
}

func TestFlowSummary(t *testing.T) {
	svc, _ := newTestService(t, chainLedger(), nil)

	summary, err := svc.FlowSummary(context.Background(), "A", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 6.0, summary.TotalOut)
	assert.Equal(t, -6.0, summary.NetFlow)
	assert.Len(t, summary.Outgoing, 2)

	summary, err = svc.FlowSummary(context.Background(), "A", "", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TransactionCount)
}
