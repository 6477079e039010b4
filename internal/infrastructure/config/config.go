package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Trace    TraceConfig    `mapstructure:"trace"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Explorer ExplorerConfig `mapstructure:"explorer"`
	Ethereum EthereumConfig `mapstructure:"ethereum"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Neo4J    Neo4JConfig    `mapstructure:"neo4j"`
	Health   HealthConfig   `mapstructure:"health"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig represents application-specific configuration
type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	HTTPPort int    `mapstructure:"http_port"`
	Network  string `mapstructure:"network"`
}

// TraceConfig holds traversal defaults and hard limits
type TraceConfig struct {
	DefaultDepth    int    `mapstructure:"default_depth"`
	MaxDepthLimit   int    `mapstructure:"max_depth_limit"`
	Direction       string `mapstructure:"direction"`
	FanoutCap       int    `mapstructure:"fanout_cap"`
	PageSize        int    `mapstructure:"page_size"`
	PathMaxDepth    int    `mapstructure:"path_max_depth"`
	MaxPaths        int    `mapstructure:"max_paths"`
	MaxPathsLimit   int    `mapstructure:"max_paths_limit"`
	StrictAddresses bool   `mapstructure:"strict_addresses"`
}

// LedgerConfig selects the transaction data backend
type LedgerConfig struct {
	// Backend is one of "explorer", "neo4j" or "fixture"
	Backend     string `mapstructure:"backend"`
	FixturePath string `mapstructure:"fixture_path"`
}

// ExplorerConfig represents Etherscan-compatible explorer API configuration
type ExplorerConfig struct {
	Networks          map[string]ExplorerNetwork `mapstructure:"networks"`
	Timeout           time.Duration              `mapstructure:"timeout"`
	RequestsPerSecond float64                    `mapstructure:"requests_per_second"`
	MaxRetries        int                        `mapstructure:"max_retries"`
	RetryDelay        time.Duration              `mapstructure:"retry_delay"`
}

// ExplorerNetwork is the endpoint of one network's explorer
type ExplorerNetwork struct {
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Decimals int    `mapstructure:"decimals"`
}

// EthereumConfig represents JSON-RPC node configuration used for hash lookups
type EthereumConfig struct {
	RPCURL  string        `mapstructure:"rpc_url"`
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NATSConfig represents NATS configuration for the trace request server
type NATSConfig struct {
	URL               string        `mapstructure:"url"`
	SubjectPrefix     string        `mapstructure:"subject_prefix"`
	QueueGroup        string        `mapstructure:"queue_group"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	Enabled           bool          `mapstructure:"enabled"`
}

// Neo4JConfig represents Neo4J configuration
type Neo4JConfig struct {
	URI                          string        `mapstructure:"uri"`
	Username                     string        `mapstructure:"username"`
	Password                     string        `mapstructure:"password"`
	Database                     string        `mapstructure:"database"`
	ConnectTimeout               time.Duration `mapstructure:"connect_timeout"`
	MaxConnectionPoolSize        int           `mapstructure:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout time.Duration `mapstructure:"connection_acquisition_timeout"`
	ImportBatchSize              int           `mapstructure:"import_batch_size"`
}

// HealthConfig represents health check configuration
type HealthConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from the default search paths and environment variables
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from path, or from the default search paths when path is empty
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/crypto-flow-tracer")
	}

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("TRACER")

	// Map environment variables to nested config keys
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.http_port", 8080)
	v.SetDefault("app.network", "ethereum")

	// Trace defaults
	v.SetDefault("trace.default_depth", 2)
	v.SetDefault("trace.max_depth_limit", 6)
	v.SetDefault("trace.direction", "both")
	v.SetDefault("trace.fanout_cap", 10)
	v.SetDefault("trace.page_size", 50)
	v.SetDefault("trace.path_max_depth", 4)
	v.SetDefault("trace.max_paths", 10)
	v.SetDefault("trace.max_paths_limit", 100)
	v.SetDefault("trace.strict_addresses", true)

	// Ledger defaults
	v.SetDefault("ledger.backend", "explorer")
	v.SetDefault("ledger.fixture_path", "")

	// Explorer defaults
	v.SetDefault("explorer.networks", map[string]interface{}{
		"ethereum": map[string]interface{}{"base_url": "https://api.etherscan.io/api", "decimals": 18},
		"bsc":      map[string]interface{}{"base_url": "https://api.bscscan.com/api", "decimals": 18},
		"polygon":  map[string]interface{}{"base_url": "https://api.polygonscan.com/api", "decimals": 18},
	})
	v.SetDefault("explorer.timeout", "15s")
	v.SetDefault("explorer.requests_per_second", 5)
	v.SetDefault("explorer.max_retries", 2)
	v.SetDefault("explorer.retry_delay", "500ms")

	// Ethereum defaults
	v.SetDefault("ethereum.rpc_url", "")
	v.SetDefault("ethereum.enabled", false)
	v.SetDefault("ethereum.timeout", "10s")

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "flowtrace")
	v.SetDefault("nats.queue_group", "flow-tracer")
	v.SetDefault("nats.connect_timeout", "10s")
	v.SetDefault("nats.reconnect_attempts", 5)
	v.SetDefault("nats.reconnect_delay", "2s")
	v.SetDefault("nats.request_timeout", "60s")
	v.SetDefault("nats.enabled", true)

	// Neo4J defaults
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "password")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("neo4j.connect_timeout", "10s")
	v.SetDefault("neo4j.max_connection_pool_size", 50)
	v.SetDefault("neo4j.connection_acquisition_timeout", "60s")
	v.SetDefault("neo4j.import_batch_size", 500)

	// Health defaults
	v.SetDefault("health.interval", "30s")
	v.SetDefault("health.timeout", "5s")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)

	// Bind env for well-known connection URLs
	v.BindEnv("nats.url", "NATS_URL")
	v.BindEnv("neo4j.uri", "NEO4J_URI")
	v.BindEnv("ethereum.rpc_url", "ETH_RPC_URL")
	v.BindEnv("explorer.networks.ethereum.api_key", "ETHERSCAN_API_KEY")
}
