package main

import (
	"fmt"
	"io"

	app_service "crypto-flow-tracer/internal/application/service"
	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/infrastructure/export"

	"github.com/spf13/cobra"
)

func newTraceCmd(c *cli) *cobra.Command {
	var (
		req    app_service.TraceRequest
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "trace <address>",
		Short: "Build the transaction graph around an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			req.Address = args[0]

			return c.withTracer(cmd.Context(), func(svc *app_service.TracingService) error {
				g, err := svc.TraceAddress(cmd.Context(), req)
				if err != nil {
					return err
				}
				data, err := export.RenderGraph(g, f)
				if err != nil {
					return err
				}

				out := summaryWriter(cmd, output)
				fmt.Fprintf(out, "%s %s on %s (depth %d, direction %s)\n",
					success("Traced"), highlight(g.Seed), g.Metadata.Network, g.Metadata.Depth, g.Metadata.Direction)
				fmt.Fprintf(out, "  nodes: %d  edges: %d  total value: %s\n",
					g.Summary.NodeCount, g.Summary.EdgeCount, formatAmount(g.Summary.TotalValue))
				return writeOutput(cmd, output, data)
			})
		},
	}

	cmd.Flags().IntVarP(&req.Depth, "depth", "d", 0, "maximum traversal depth (default trace.default_depth)")
	cmd.Flags().StringVarP(&req.Network, "network", "n", "", "network name (default app.network)")
	cmd.Flags().StringVar(&req.Direction, "direction", "", "edge direction to follow: in, out or both (default trace.direction)")
	cmd.Flags().IntVar(&req.FanoutCap, "fanout", 0, "transactions followed per address (default trace.fanout_cap)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the export to this file instead of stdout")
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatJSON), "export format: json, dot or csv")
	return cmd
}

func newTraceTxCmd(c *cli) *cobra.Command {
	var network, output string

	cmd := &cobra.Command{
		Use:   "trace-tx <hash>",
		Short: "Look up a transaction and summarize the flows of both endpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTracer(cmd.Context(), func(svc *app_service.TracingService) error {
				trace, err := svc.TraceTransaction(cmd.Context(), args[0], network)
				if err != nil {
					return err
				}
				data, err := export.RenderJSON(trace)
				if err != nil {
					return err
				}

				out := summaryWriter(cmd, output)
				tx := trace.Transaction
				fmt.Fprintf(out, "%s %s on %s\n", success("Transaction"), highlight(tx.Hash), tx.Network)
				fmt.Fprintf(out, "  %s -> %s  value: %s\n", tx.From, tx.To, tx.Value)
				printFlow(out, "from", trace.FromFlow)
				printFlow(out, "to", trace.ToFlow)
				return writeOutput(cmd, output, data)
			})
		},
	}

	cmd.Flags().StringVarP(&network, "network", "n", "", "network name (default app.network)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the JSON result to this file instead of stdout")
	return cmd
}

func newFindPathCmd(c *cli) *cobra.Command {
	var (
		req    app_service.PathRequest
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "find-path <from> <to>",
		Short: "Enumerate outgoing transfer paths between two addresses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			req.From, req.To = args[0], args[1]

			return c.withTracer(cmd.Context(), func(svc *app_service.TracingService) error {
				set, err := svc.FindPaths(cmd.Context(), req)
				if err != nil {
					return err
				}
				data, err := export.RenderPathSet(set, f)
				if err != nil {
					return err
				}

				out := summaryWriter(cmd, output)
				if set.PathCount == 0 {
					fmt.Fprintf(out, "%s between %s and %s\n", warning("No paths found"), highlight(set.From), highlight(set.To))
				} else {
					fmt.Fprintf(out, "%s %d path(s) from %s to %s\n", success("Found"), set.PathCount, highlight(set.From), highlight(set.To))
				}
				for i, p := range set.Paths {
					fmt.Fprintf(out, "  %d. %d hop(s)\n", i+1, len(p)-1)
				}
				return writeOutput(cmd, output, data)
			})
		},
	}

	cmd.Flags().StringVarP(&req.Network, "network", "n", "", "network name (default app.network)")
	cmd.Flags().IntVar(&req.MaxDepth, "max-depth", 0, "maximum path length in hops (default trace.path_max_depth)")
	cmd.Flags().IntVar(&req.MaxPaths, "max-paths", 0, "maximum number of paths returned (default trace.max_paths)")
	cmd.Flags().IntVar(&req.FanoutCap, "fanout", 0, "transactions followed per address (default trace.fanout_cap)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the export to this file instead of stdout")
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatJSON), "export format: json, dot or csv")
	return cmd
}

func newFlowCmd(c *cli) *cobra.Command {
	var (
		network string
		output  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "flow <address>",
		Short: "Summarize incoming and outgoing value for an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTracer(cmd.Context(), func(svc *app_service.TracingService) error {
				summary, err := svc.FlowSummary(cmd.Context(), args[0], network, limit)
				if err != nil {
					return err
				}
				data, err := export.RenderJSON(summary)
				if err != nil {
					return err
				}

				printFlow(summaryWriter(cmd, output), "address", summary)
				return writeOutput(cmd, output, data)
			})
		},
	}

	cmd.Flags().StringVarP(&network, "network", "n", "", "network name (default app.network)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "number of recent transactions to consider (default trace.page_size)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the JSON result to this file instead of stdout")
	return cmd
}

func printFlow(out io.Writer, label string, s *entity.FlowSummary) {
	net := formatAmount(s.NetFlow)
	if s.NetFlow < 0 {
		net = negative(net)
	} else {
		net = success(net)
	}
	fmt.Fprintf(out, "  %s %s: in %s (%d)  out %s (%d)  net %s\n",
		label, highlight(s.Address),
		formatAmount(s.TotalIn), len(s.Incoming),
		formatAmount(s.TotalOut), len(s.Outgoing),
		net)
}
