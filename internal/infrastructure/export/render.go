package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"crypto-flow-tracer/internal/domain/entity"
)

const (
	dotHeader = "digraph TransactionFlow {\n  rankdir=LR;\n  node [shape=box, style=rounded];\n"

	originColor       = "#ff6b6b"
	intermediaryColor = "#4ecdc4"

	labelPrefixLen = 10
)

// RenderGraph encodes a built graph in the requested format
func RenderGraph(g *entity.Graph, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return marshalJSON(g)
	case FormatDot:
		return []byte(graphDot(g)), nil
	case FormatCSV:
		return []byte(graphCSV(g)), nil
	default:
		return nil, &entity.UnsupportedFormatError{Format: string(format)}
	}
}

// RenderPathSet encodes a path search result in the requested format
func RenderPathSet(p *entity.PathSet, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return marshalJSON(p)
	case FormatDot:
		return []byte(pathDot(p)), nil
	case FormatCSV:
		return []byte(pathCSV(p)), nil
	default:
		return nil, &entity.UnsupportedFormatError{Format: string(format)}
	}
}

// RenderJSON encodes any result with two-space indentation
func RenderJSON(v any) ([]byte, error) {
	return marshalJSON(v)
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json: %w", err)
	}
	return append(data, '\n'), nil
}

func graphDot(g *entity.Graph) string {
	var sb strings.Builder
	sb.WriteString(dotHeader)

	for _, n := range g.Nodes {
		color := intermediaryColor
		if n.Kind == entity.NodeKindOrigin {
			color = originColor
		}
		fmt.Fprintf(&sb, "  %q [label=%q, style=\"rounded,filled\", fillcolor=%q];\n",
			n.Address, truncateLabel(n.Address), color)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&sb, "  %q -> %q [label=%q];\n", e.From, e.To, e.Value)
	}

	sb.WriteString("}\n")
	return sb.String()
}

func pathDot(p *entity.PathSet) string {
	var sb strings.Builder
	sb.WriteString(dotHeader)

	seen := make(map[string]bool)
	for _, path := range p.Paths {
		for _, addr := range path {
			if seen[addr] {
				continue
			}
			seen[addr] = true
			color := intermediaryColor
			if addr == p.From {
				color = originColor
			}
			fmt.Fprintf(&sb, "  %q [label=%q, style=\"rounded,filled\", fillcolor=%q];\n",
				addr, truncateLabel(addr), color)
		}
	}
	for i, path := range p.Paths {
		for j := 1; j < len(path); j++ {
			fmt.Fprintf(&sb, "  %q -> %q [label=\"path %d\"];\n", path[j-1], path[j], i+1)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// graphCSV writes one row per edge. Fields are not quoted.
func graphCSV(g *entity.Graph) string {
	var sb strings.Builder
	sb.WriteString("From,To,Value,Hash,Timestamp\n")
	for _, e := range g.Edges {
		fmt.Fprintf(&sb, "%s,%s,%s,%s,%d\n", e.From, e.To, e.Value, e.Hash, e.Timestamp)
	}
	return sb.String()
}

func pathCSV(p *entity.PathSet) string {
	var sb strings.Builder
	sb.WriteString("Path,Hops,Addresses\n")
	for i, path := range p.Paths {
		fmt.Fprintf(&sb, "%d,%d,%s\n", i+1, len(path)-1, strings.Join(path, " -> "))
	}
	return sb.String()
}

func truncateLabel(address string) string {
	runes := []rune(address)
	if len(runes) <= labelPrefixLen {
		return address + "..."
	}
	return string(runes[:labelPrefixLen]) + "..."
}
