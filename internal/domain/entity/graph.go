package entity

import "time"

// NodeKind distinguishes the seed from discovered addresses
type NodeKind string

const (
	NodeKindOrigin       NodeKind = "origin"
	NodeKindIntermediary NodeKind = "intermediary"
)

// Node represents an address discovered during a traversal
type Node struct {
	Address Address  `json:"address"`
	Depth   int      `json:"depth"`
	Kind    NodeKind `json:"kind"`
}

// Edge represents one qualifying transaction between two addresses
type Edge struct {
	From      Address `json:"from"`
	To        Address `json:"to"`
	Value     string  `json:"value"`
	Hash      string  `json:"hash"`
	Timestamp int64   `json:"timestamp"`
}

// GraphMetadata describes how a graph was produced
type GraphMetadata struct {
	Network   string    `json:"network"`
	Depth     int       `json:"depth"`
	Direction Direction `json:"direction"`
	CreatedAt time.Time `json:"createdAt"`
}

// GraphSummary holds aggregate counters over a graph
type GraphSummary struct {
	NodeCount  int     `json:"nodeCount"`
	EdgeCount  int     `json:"edgeCount"`
	TotalValue float64 `json:"totalValue"`
}

// Graph is the result of a traversal: unique nodes in insertion order and edges in discovery order
type Graph struct {
	Seed     Address       `json:"seed"`
	Metadata GraphMetadata `json:"metadata"`
	Nodes    []*Node       `json:"nodes"`
	Edges    []*Edge       `json:"edges"`
	Summary  GraphSummary  `json:"summary"`

	index map[Address]*Node
}

// NewGraph creates an empty graph rooted at seed
func NewGraph(seed string, metadata GraphMetadata) *Graph {
	return &Graph{
		Seed:     NormalizeAddress(seed),
		Metadata: metadata,
		Nodes:    []*Node{},
		Edges:    []*Edge{},
		index:    make(map[Address]*Node),
	}
}

// Node returns the node for address, if present
func (g *Graph) Node(address string) (*Node, bool) {
	g.ensureIndex()
	n, ok := g.index[NormalizeAddress(address)]
	return n, ok
}

// HasNode reports whether address has been visited
func (g *Graph) HasNode(address string) bool {
	_, ok := g.Node(address)
	return ok
}

// AddNode inserts a node at depth unless one already exists. It returns false on re-visit.
func (g *Graph) AddNode(address string, depth int) bool {
	g.ensureIndex()
	key := NormalizeAddress(address)
	if _, exists := g.index[key]; exists {
		return false
	}

	kind := NodeKindIntermediary
	if depth == 0 {
		kind = NodeKindOrigin
	}
	node := &Node{Address: key, Depth: depth, Kind: kind}
	g.index[key] = node
	g.Nodes = append(g.Nodes, node)
	return true
}

// AddEdge appends an edge for tx
func (g *Graph) AddEdge(tx *Transaction) {
	g.Edges = append(g.Edges, &Edge{
		From:      NormalizeAddress(tx.From),
		To:        NormalizeAddress(tx.To),
		Value:     tx.Value,
		Hash:      tx.Hash,
		Timestamp: tx.Timestamp,
	})
}

// Summarize recomputes the summary from the node and edge lists
func (g *Graph) Summarize() GraphSummary {
	total := 0.0
	for _, e := range g.Edges {
		total += ParseValue(e.Value)
	}
	g.Summary = GraphSummary{
		NodeCount:  len(g.Nodes),
		EdgeCount:  len(g.Edges),
		TotalValue: total,
	}
	return g.Summary
}

// ensureIndex rebuilds the lookup index for graphs decoded from JSON
func (g *Graph) ensureIndex() {
	if g.index != nil {
		return
	}
	g.index = make(map[Address]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		g.index[NormalizeAddress(n.Address)] = n
	}
}
