package service

import (
	"context"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/domain/repository"
	"crypto-flow-tracer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// FlowAggregator summarizes inbound and outbound value for one address
type FlowAggregator struct {
	source repository.LedgerSource
	logger *logger.Logger
}

// NewFlowAggregator creates a new flow aggregator
func NewFlowAggregator(source repository.LedgerSource, logger *logger.Logger) *FlowAggregator {
	return &FlowAggregator{
		source: source,
		logger: logger.WithComponent("flow-aggregator"),
	}
}

// Summarize fetches a single page for address and partitions it by direction.
// A fetch failure yields a zeroed summary.
func (a *FlowAggregator) Summarize(ctx context.Context, address string, limit int) *entity.FlowSummary {
	summary := entity.NewFlowSummary(address)

	txs, err := a.source.FetchTransactions(ctx, summary.Address, limit)
	if err != nil {
		a.logger.Warn("Failed to fetch transactions for flow summary",
			zap.String("address", summary.Address),
			zap.Error(err))
		return summary
	}

	Aggregate(summary, txs)
	return summary
}

// Aggregate folds txs into summary
func Aggregate(summary *entity.FlowSummary, txs []*entity.Transaction) {
	for _, tx := range txs {
		class := entity.Classify(tx, summary.Address)
		value := tx.NumericValue()
		if class.IsIncoming() {
			summary.Incoming = append(summary.Incoming, tx)
			summary.TotalIn += value
		}
		if class.IsOutgoing() {
			summary.Outgoing = append(summary.Outgoing, tx)
			summary.TotalOut += value
		}
	}
	summary.TransactionCount = len(txs)
	summary.NetFlow = summary.TotalIn - summary.TotalOut
}
