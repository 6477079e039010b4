package entity

// FlowSummary aggregates directional totals for a single address
type FlowSummary struct {
	Address          Address        `json:"address"`
	Incoming         []*Transaction `json:"incoming"`
	Outgoing         []*Transaction `json:"outgoing"`
	TotalIn          float64        `json:"totalIn"`
	TotalOut         float64        `json:"totalOut"`
	NetFlow          float64        `json:"netFlow"`
	TransactionCount int            `json:"transactionCount"`
}

// NewFlowSummary returns a zeroed summary for address
func NewFlowSummary(address string) *FlowSummary {
	return &FlowSummary{
		Address:  NormalizeAddress(address),
		Incoming: []*Transaction{},
		Outgoing: []*Transaction{},
	}
}

// TransactionTrace pairs a transaction with the flow summaries of its endpoints
type TransactionTrace struct {
	Transaction *TransactionDetail `json:"transaction"`
	FromFlow    *FlowSummary       `json:"fromFlow"`
	ToFlow      *FlowSummary       `json:"toFlow"`
}
