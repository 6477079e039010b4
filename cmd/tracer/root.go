package main

import (
	"context"
	"fmt"
	"time"

	app_service "crypto-flow-tracer/internal/application/service"
	"crypto-flow-tracer/internal/infrastructure/config"
	"crypto-flow-tracer/internal/infrastructure/ledger"
	"crypto-flow-tracer/internal/infrastructure/logger"
	"crypto-flow-tracer/internal/infrastructure/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// cli carries state shared by every command once flags are parsed
type cli struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "tracer",
		Short: "Trace the flow of funds between blockchain addresses",
		Long: `tracer explores transaction graphs around an address, enumerates
transfer paths between two addresses and summarizes fund flows.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a config file (default: ./config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override app.log_level")

	root.AddCommand(
		newTraceCmd(c),
		newTraceTxCmd(c),
		newFindPathCmd(c),
		newFlowCmd(c),
		newServeCmd(c),
		newImportCmd(c),
	)
	return root
}

func (c *cli) init() error {
	cfg, err := config.LoadFrom(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.logLevel != "" {
		cfg.App.LogLevel = c.logLevel
	}

	log, err := logger.NewLogger(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	c.cfg = cfg
	c.log = log
	return nil
}

// providers is the dependency graph shared by serve and the one-shot commands
func (c *cli) providers() fx.Option {
	return fx.Options(
		fx.Supply(c.cfg),
		fx.Supply(c.log),
		fx.Supply(&c.cfg.NATS),
		fx.Provide(func() *zap.Logger { return c.log.Logger }),

		fx.Provide(
			metrics.NewCollectors,
			newLedgerProvider,
			func(p *ledger.Provider) app_service.LedgerResolver { return p },
			app_service.NewTracingService,
		),

		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)
}

// newLedgerProvider closes every opened backend when the application stops
func newLedgerProvider(lifecycle fx.Lifecycle, cfg *config.Config, m *metrics.Collectors, log *logger.Logger) *ledger.Provider {
	p := ledger.NewProvider(cfg, m, log)
	lifecycle.Append(fx.Hook{
		OnStop: p.Close,
	})
	return p
}

// withTracer builds a short-lived application around fn
func (c *cli) withTracer(ctx context.Context, fn func(svc *app_service.TracingService) error) error {
	var svc *app_service.TracingService
	stop, err := c.start(ctx, &svc)
	if err != nil {
		return err
	}
	defer stop()

	return fn(svc)
}

// start runs the shared provider graph, populating targets, until the returned stop is called
func (c *cli) start(ctx context.Context, targets ...interface{}) (func(), error) {
	app := fx.New(c.providers(), fx.Populate(targets...))
	if err := app.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			c.log.Warn("Failed to stop cleanly", zap.Error(err))
		}
	}, nil
}
