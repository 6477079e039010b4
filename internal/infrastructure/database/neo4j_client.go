package database

import (
	"context"
	"errors"
	"fmt"

	"crypto-flow-tracer/internal/infrastructure/config"
	"crypto-flow-tracer/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4JClient owns the driver shared by the ledger source and importer
type Neo4JClient struct {
	driver neo4j.DriverWithContext
	config *config.Neo4JConfig
	logger *logger.Logger
}

// NewNeo4JClient creates a new Neo4J client
func NewNeo4JClient(cfg *config.Neo4JConfig, logger *logger.Logger) *Neo4JClient {
	return &Neo4JClient{
		config: cfg,
		logger: logger.WithComponent("neo4j-client"),
	}
}

// Connect opens the driver and verifies the server is reachable
func (n *Neo4JClient) Connect(ctx context.Context) error {
	n.logger.Info("Connecting to Neo4J database", zap.String("uri", n.config.URI))

	driver, err := neo4j.NewDriverWithContext(
		n.config.URI,
		neo4j.BasicAuth(n.config.Username, n.config.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = n.config.MaxConnectionPoolSize
			c.ConnectionAcquisitionTimeout = n.config.ConnectionAcquisitionTimeout
			c.SocketConnectTimeout = n.config.ConnectTimeout
		},
	)
	if err != nil {
		n.logger.Error("Failed to create Neo4J driver", zap.Error(err))
		return fmt.Errorf("failed to create Neo4J driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		n.logger.Error("Failed to verify Neo4J connectivity", zap.Error(err))
		_ = driver.Close(ctx)
		return fmt.Errorf("failed to verify Neo4J connectivity: %w", err)
	}

	n.driver = driver
	n.logger.Info("Successfully connected to Neo4J database")
	return nil
}

// EnsureSchema creates the constraints and indexes the ledger queries rely on
func (n *Neo4JClient) EnsureSchema(ctx context.Context) error {
	session, err := n.session(ctx, neo4j.AccessModeWrite)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT wallet_address IF NOT EXISTS FOR (w:Wallet) REQUIRE w.address IS UNIQUE",
		"CREATE CONSTRAINT transaction_hash IF NOT EXISTS FOR (t:Transaction) REQUIRE t.hash IS UNIQUE",
		"CREATE INDEX sent_to_timestamp IF NOT EXISTS FOR ()-[r:SENT_TO]-() ON (r.timestamp)",
		"CREATE INDEX sent_to_tx_hash IF NOT EXISTS FOR ()-[r:SENT_TO]-() ON (r.tx_hash)",
	}

	for _, stmt := range statements {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, stmt, nil)
			if err != nil {
				return nil, err
			}
			return result.Consume(ctx)
		})
		if err != nil {
			n.logger.Warn("Failed to apply schema statement", zap.String("statement", stmt), zap.Error(err))
		}
	}

	n.logger.Info("Schema setup completed")
	return nil
}

// Close closes the Neo4J connection
func (n *Neo4JClient) Close(ctx context.Context) error {
	if n.driver != nil {
		n.logger.Info("Closing Neo4J connection")
		return n.driver.Close(ctx)
	}
	return nil
}

// IsConnected checks if connected to Neo4J
func (n *Neo4JClient) IsConnected(ctx context.Context) bool {
	if n.driver == nil {
		return false
	}
	return n.driver.VerifyConnectivity(ctx) == nil
}

func (n *Neo4JClient) session(ctx context.Context, mode neo4j.AccessMode) (neo4j.SessionWithContext, error) {
	if n.driver == nil {
		return nil, errors.New("neo4j client is not connected")
	}
	return n.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: n.config.Database,
	}), nil
}
