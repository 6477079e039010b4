package service

import (
	"context"
	"testing"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFlowAggregator_Summarize(t *testing.T) {
	ledger := newFakeLedger()
	ledger.send("0x1", "X", "A", "10")
	ledger.send("0x2", "A", "Y", "3.5")
	ledger.send("0x3", "Z", "a", "not-a-number")
	ledger.send("0x4", "A", "A", "1")

	agg := NewFlowAggregator(ledger, logger.New(zaptest.NewLogger(t)))
	summary := agg.Summarize(context.Background(), "0xNotThere", 50)
	assert.Zero(t, summary.TransactionCount)

	summary = agg.Summarize(context.Background(), "A", 50)

	assert.Equal(t, "a", summary.Address)
	assert.Equal(t, 4, summary.TransactionCount)
	require.Len(t, summary.Incoming, 3)
	require.Len(t, summary.Outgoing, 2)
	assert.InDelta(t, 11.0, summary.TotalIn, 1e-9)
	assert.InDelta(t, 4.5, summary.TotalOut, 1e-9)
	assert.InDelta(t, 6.5, summary.NetFlow, 1e-9)
}

func TestFlowAggregator_FetchFailureReturnsZeroSummary(t *testing.T) {
	ledger := newFakeLedger()
	ledger.send("0x1", "X", "A", "10")
	ledger.fail("A")

	summary := NewFlowAggregator(ledger, logger.NewNop()).Summarize(context.Background(), "A", 50)

	assert.Equal(t, &entity.FlowSummary{
		Address:  "a",
		Incoming: []*entity.Transaction{},
		Outgoing: []*entity.Transaction{},
	}, summary)
}

func TestFlowAggregator_PassesLimitThrough(t *testing.T) {
	ledger := newFakeLedger()
	ledger.send("0x1", "A", "B", "1")
	ledger.send("0x2", "A", "C", "1")
	ledger.send("0x3", "A", "D", "1")

	summary := NewFlowAggregator(ledger, logger.NewNop()).Summarize(context.Background(), "A", 2)
	assert.Equal(t, 2, summary.TransactionCount)
	assert.InDelta(t, 2.0, summary.TotalOut, 1e-9)
}
