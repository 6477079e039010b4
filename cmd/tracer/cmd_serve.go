package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	app_service "crypto-flow-tracer/internal/application/service"
	"crypto-flow-tracer/internal/infrastructure/config"
	"crypto-flow-tracer/internal/infrastructure/logger"
	"crypto-flow-tracer/internal/infrastructure/messaging"
	"crypto-flow-tracer/internal/infrastructure/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Operations served over NATS as <subject_prefix>.<operation>
const (
	opTrace = "trace"
	opPath  = "path"
	opFlow  = "flow"
	opTx    = "tx"
)

type flowRequest struct {
	Address string `json:"address"`
	Network string `json:"network,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type txRequest struct {
	Hash    string `json:"hash"`
	Network string `json:"network,omitempty"`
}

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve trace requests over NATS with health and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				c.providers(),
				fx.Provide(messaging.NewNATSTraceServer),

				// Lifecycle hooks
				fx.Invoke(startTraceServer),
				fx.Invoke(startHealthServer),
			)

			if err := app.Start(cmd.Context()); err != nil {
				c.log.Error("Failed to start application", zap.Error(err))
				return err
			}

			<-cmd.Context().Done()
			c.log.Info("Shutting down application...")

			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := app.Stop(stopCtx); err != nil {
				c.log.Error("Failed to stop application gracefully", zap.Error(err))
				return err
			}

			c.log.Info("Application stopped successfully")
			return nil
		},
	}
}

// registerHandlers binds every tracing operation to the server
func registerHandlers(server *messaging.NATSTraceServer, svc *app_service.TracingService) {
	server.Handle(opTrace, messaging.JSONHandler(func(ctx context.Context, req app_service.TraceRequest) (any, error) {
		return svc.TraceAddress(ctx, req)
	}))
	server.Handle(opPath, messaging.JSONHandler(func(ctx context.Context, req app_service.PathRequest) (any, error) {
		return svc.FindPaths(ctx, req)
	}))
	server.Handle(opFlow, messaging.JSONHandler(func(ctx context.Context, req flowRequest) (any, error) {
		return svc.FlowSummary(ctx, req.Address, req.Network, req.Limit)
	}))
	server.Handle(opTx, messaging.JSONHandler(func(ctx context.Context, req txRequest) (any, error) {
		return svc.TraceTransaction(ctx, req.Hash, req.Network)
	}))
}

// startTraceServer starts the NATS request/reply server
func startTraceServer(
	lifecycle fx.Lifecycle,
	server *messaging.NATSTraceServer,
	svc *app_service.TracingService,
	log *zap.Logger,
	cfg *config.Config,
) {
	registerHandlers(server, svc)

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting trace server...",
				zap.String("url", cfg.NATS.URL),
				zap.String("subject_prefix", cfg.NATS.SubjectPrefix),
				zap.String("queue_group", cfg.NATS.QueueGroup),
				zap.Bool("enabled", cfg.NATS.Enabled))

			if err := server.Start(ctx); err != nil {
				return fmt.Errorf("failed to start trace server: %w", err)
			}

			log.Info("Trace server started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping trace server...")
			return server.Stop()
		},
	})
}

// startHealthServer starts the health check and metrics server
func startHealthServer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	server *messaging.NATSTraceServer,
	collectors *metrics.Collectors,
	logger *logger.Logger,
) {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           healthMux(cfg, server, collectors),
		ReadHeaderTimeout: cfg.Health.Timeout,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting health server...", zap.Int("port", cfg.App.HTTPPort))

			go func() {
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Health server error", zap.Error(err))
				}
			}()

			logger.Info("Health server started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping health server...")
			return httpServer.Shutdown(ctx)
		},
	})
}

// natsStatus reports whether the trace server is connected
type natsStatus interface {
	IsConnected() bool
}

func healthMux(cfg *config.Config, nats natsStatus, collectors *metrics.Collectors) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{"status": "ok"}
		code := http.StatusOK
		if cfg.NATS.Enabled {
			connected := nats.IsConnected()
			status["nats"] = connected
			if !connected {
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", collectors.Handler())
	}
	return mux
}
