package config

import (
	"fmt"
	"slices"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/openswap-labs/swapsync/internal/common"
	"github.com/openswap-labs/swapsync/internal/logger"
)

// Config represents the complete configuration for swapsync.
type Config struct {
	// Sync contains global synchronization settings shared by all chains
	Sync SyncConfig `yaml:"sync" json:"sync" toml:"sync"`

	// Chains contains the configuration for every chain to index
	Chains []ChainConfig `yaml:"chains" json:"chains" toml:"chains"`

	// DB contains database configuration
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// SyncConfig represents global synchronization settings.
type SyncConfig struct {
	// ReorgToleranceBlocks is how far the cursor is rewound when a reorg is detected
	ReorgToleranceBlocks uint64 `yaml:"reorg_tolerance_blocks" json:"reorg_tolerance_blocks" toml:"reorg_tolerance_blocks"`

	// MaxBlocksPerQuery is the widest block range per eth_getLogs call
	MaxBlocksPerQuery uint64 `yaml:"max_blocks_per_query" json:"max_blocks_per_query" toml:"max_blocks_per_query"`

	// DefaultPollInterval is the sleep between poll cycles for chains
	// without a chain-specific interval
	DefaultPollInterval common.Duration `yaml:"default_poll_interval" json:"default_poll_interval" toml:"default_poll_interval"`

	// ConcurrentChains runs each chain's poll cycle as an independent task.
	// When false, chains are processed sequentially within one cycle.
	ConcurrentChains bool `yaml:"concurrent_chains" json:"concurrent_chains" toml:"concurrent_chains"`

	// Retry contains RPC retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`
}

// ApplyDefaults sets default values for optional sync configuration fields.
func (s *SyncConfig) ApplyDefaults() {
	if s.ReorgToleranceBlocks == 0 {
		s.ReorgToleranceBlocks = 64
	}
	if s.MaxBlocksPerQuery == 0 {
		s.MaxBlocksPerQuery = 2000
	}
	if s.DefaultPollInterval.Duration == 0 {
		s.DefaultPollInterval = common.NewDuration(15 * time.Second) //nolint:mnd
	}

	if s.Retry != nil {
		s.Retry.ApplyDefaults()
	}
}

// ChainConfig represents one chain to index.
type ChainConfig struct {
	// ChainID is the numeric chain identifier (e.g. 1 for mainnet)
	ChainID uint64 `yaml:"chain_id" json:"chain_id" toml:"chain_id"`

	// Name is a human-readable chain name used in logs
	Name string `yaml:"name" json:"name" toml:"name"`

	// RPCURL is the chain's RPC endpoint. ${ENV_VAR} references are expanded.
	RPCURL string `yaml:"rpc_url" json:"rpc_url" toml:"rpc_url"`

	// StartBlock is the block number to start indexing from on first run
	StartBlock uint64 `yaml:"start_block" json:"start_block" toml:"start_block"`

	// Confirmations is how many blocks behind head is considered safe to index
	Confirmations uint64 `yaml:"confirmations" json:"confirmations" toml:"confirmations"`

	// PollInterval overrides the global default poll interval for this chain
	PollInterval *common.Duration `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty" toml:"poll_interval,omitempty"`

	// Contracts holds the swap contract addresses deployed on this chain
	Contracts ContractsConfig `yaml:"contracts" json:"contracts" toml:"contracts"`
}

// ApplyDefaults sets default values for optional chain configuration fields.
func (c *ChainConfig) ApplyDefaults() {
	if c.Confirmations == 0 {
		c.Confirmations = 12
	}
}

// ContractsConfig holds the swap contract addresses for one chain.
// Any subset may be configured; empty addresses are skipped.
type ContractsConfig struct {
	// Orderbook is the escrow-flow orderbook contract address
	Orderbook string `yaml:"orderbook,omitempty" json:"orderbook,omitempty" toml:"orderbook,omitempty"`

	// Escrow is the HTLC escrow contract address
	Escrow string `yaml:"escrow,omitempty" json:"escrow,omitempty" toml:"escrow,omitempty"`

	// BuyVault is the buy-side vault contract address
	BuyVault string `yaml:"buy_vault,omitempty" json:"buy_vault,omitempty" toml:"buy_vault,omitempty"`

	// SellVault is the sell-side vault contract address
	SellVault string `yaml:"sell_vault,omitempty" json:"sell_vault,omitempty" toml:"sell_vault,omitempty"`
}

// Addresses returns the configured contract addresses.
func (c *ContractsConfig) Addresses() []ethcommon.Address {
	addrs := make([]ethcommon.Address, 0, 4) //nolint:mnd
	for _, raw := range []string{c.Orderbook, c.Escrow, c.BuyVault, c.SellVault} {
		if raw != "" {
			addrs = append(addrs, ethcommon.HexToAddress(raw))
		}
	}
	return addrs
}

// IsEmpty returns true when no contract address is configured.
func (c *ContractsConfig) IsEmpty() bool {
	return c.Orderbook == "" && c.Escrow == "" && c.BuyVault == "" && c.SellVault == ""
}

// RetryConfig represents RPC retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(1 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	// WAL mode is recommended for better concurrency
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`

	// EnableForeignKeys enables foreign key constraint enforcement
	EnableForeignKeys bool `yaml:"enable_foreign_keys" json:"enable_foreign_keys" toml:"enable_foreign_keys"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
	// EnableForeignKeys defaults to false (zero value)
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components:
	//   - scheduler: Poll loop orchestration
	//   - syncer: Per-chain sync and reorg handling
	//   - log-fetcher: Blockchain log fetching
	//   - event-decoder: Log decoding and dispatch
	//   - handlers: Domain event handlers
	//   - event-store: Event and entity persistence
	//   - chain-client: RPC clients
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	// Development defaults to false (zero value)
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	// Validate default level
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		// Check if component is valid
		if _, validComponent := common.AllComponents[common.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		// Check if level is valid
		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return level
	}
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	// Format: "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
	// Enabled defaults to false (zero value)
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.Sync.ApplyDefaults()

	for i := range c.Chains {
		c.Chains[i].ApplyDefaults()
	}

	c.DB.ApplyDefaults()

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	c.Logging.ApplyDefaults()

	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{}
	}
	c.Metrics.ApplyDefaults()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}

	validJournalModes := []string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}
	if c.DB.JournalMode != "" && !slices.Contains(validJournalModes, c.DB.JournalMode) {
		return fmt.Errorf("db.journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}

	validSynchronous := []string{"FULL", "NORMAL", "OFF"}
	if c.DB.Synchronous != "" && !slices.Contains(validSynchronous, c.DB.Synchronous) {
		return fmt.Errorf("db.synchronous must be one of: FULL, NORMAL, OFF")
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	if len(c.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}

	chainIDs := make(map[uint64]bool)
	for i, chain := range c.Chains {
		if chain.ChainID == 0 {
			return fmt.Errorf("chain[%d]: chain_id is required", i)
		}

		if chainIDs[chain.ChainID] {
			return fmt.Errorf("chain[%d]: duplicate chain_id %d", i, chain.ChainID)
		}
		chainIDs[chain.ChainID] = true

		if chain.RPCURL == "" {
			return fmt.Errorf("chain[%d] (%d): rpc_url is required", i, chain.ChainID)
		}

		if chain.Contracts.IsEmpty() {
			return fmt.Errorf("chain[%d] (%d): at least one contract address must be configured", i, chain.ChainID)
		}

		for _, addr := range []string{
			chain.Contracts.Orderbook, chain.Contracts.Escrow,
			chain.Contracts.BuyVault, chain.Contracts.SellVault,
		} {
			if addr != "" && !ethcommon.IsHexAddress(addr) {
				return fmt.Errorf("chain[%d] (%d): invalid contract address %q", i, chain.ChainID, addr)
			}
		}
	}

	return nil
}

// PollInterval returns the effective poll interval for a chain.
func (c *Config) PollInterval(chain *ChainConfig) time.Duration {
	if chain != nil && chain.PollInterval != nil && chain.PollInterval.Duration > 0 {
		return chain.PollInterval.Duration
	}
	return c.Sync.DefaultPollInterval.Duration
}
