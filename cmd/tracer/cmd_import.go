package main

import (
	"fmt"

	app_service "crypto-flow-tracer/internal/application/service"
	"crypto-flow-tracer/internal/infrastructure/database"
	"crypto-flow-tracer/internal/infrastructure/fixture"
	"crypto-flow-tracer/internal/infrastructure/ledger"

	"github.com/spf13/cobra"
)

func newImportCmd(c *cli) *cobra.Command {
	var network string

	cmd := &cobra.Command{
		Use:   "import <fixture-file>",
		Short: "Load a YAML or JSON transaction fixture into Neo4J",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			src, err := fixture.Load(args[0], c.log)
			if err != nil {
				return err
			}
			if network == "" {
				network = src.Network()
			}
			if network == "" {
				network = c.cfg.App.Network
			}

			var provider *ledger.Provider
			stop, err := c.start(ctx, &provider)
			if err != nil {
				return err
			}
			defer stop()

			client, err := provider.Neo4JClient(ctx)
			if err != nil {
				return err
			}
			if err := client.EnsureSchema(ctx); err != nil {
				return err
			}

			importer := database.NewNeo4JLedgerImporter(client, c.cfg.Neo4J.ImportBatchSize, c.log)
			result, err := app_service.NewImportService(importer, c.log).Import(ctx, network, src.Transactions())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %d transaction(s) into %s on %s",
				success("Imported"), result.Imported, c.cfg.Neo4J.URI, result.Network)
			if result.Skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", warning(fmt.Sprintf("%d skipped", result.Skipped)))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVarP(&network, "network", "n", "", "network label (default: the fixture's, then app.network)")
	return cmd
}
