// Package config defines the top-level configuration for the jungle keeper
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by JUNGLE_* environment variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Chain     ChainConfig     `toml:"chain"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Oracle    OracleConfig    `toml:"oracle"`
	Harvest   HarvestConfig   `toml:"harvest"`
	Rebalance RebalanceConfig `toml:"rebalance"`
	Monitor   MonitorConfig   `toml:"monitor"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds the keeper wallet credentials.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig holds RPC endpoints and chain parameters.
type ChainConfig struct {
	RPCURL        string `toml:"rpc_url"`
	ChainID       int64  `toml:"chain_id"`
	Confirmations uint64 `toml:"confirmations"`
	// ReceiptTimeout bounds the wait for a transaction receipt.
	ReceiptTimeout duration `toml:"receipt_timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters for the ledger store.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the cold-storage
// archiver.
type S3Config struct {
	Endpoint string `toml:"endpoint"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	// KeyPrefix is prepended to every archive object key so several
	// deployments can share one bucket.
	KeyPrefix      string `toml:"key_prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	// RetentionDays is how old a fully consumed lot must be before it is
	// exported to cold storage.
	RetentionDays int      `toml:"retention_days"`
	ArchiveEvery  duration `toml:"archive_every"`
}

// OracleConfig holds price feed endpoints and fallback constants.
type OracleConfig struct {
	PriceURL  string `toml:"price_url"`
	StreamURL string `toml:"stream_url"`
	// NativeAsset is the price-feed identifier for the chain's gas token.
	NativeAsset string `toml:"native_asset"`
	// FallbackPrices is used only when both the feed and the cache fail.
	FallbackPrices map[string]float64 `toml:"fallback_prices"`
	// FallbackGasGwei seeds the default gas quote when the node cannot be
	// sampled.
	FallbackGasGwei int64    `toml:"fallback_gas_gwei"`
	MaxPriceAge     duration `toml:"max_price_age"`
	CacheTTL        duration `toml:"cache_ttl"`
}

// RewardSourceConfig describes one reward stream the harvest keeper services.
type RewardSourceConfig struct {
	ID             string `toml:"id"`
	Contract       string `toml:"contract"`
	Adapter        string `toml:"adapter"`
	RewardAsset    string `toml:"reward_asset"`
	RewardDecimals int    `toml:"reward_decimals"`
}

// HarvestConfig holds harvest keeper parameters.
type HarvestConfig struct {
	Enabled bool `toml:"enabled"`
	// MaxGasGwei is the cycle-level gas gate: above it the whole cycle is
	// skipped before any transaction is attempted.
	MaxGasGwei float64 `toml:"max_gas_gwei"`
	// MinHarvestUSD is the absolute reward-value floor. Profitable but
	// trivial harvests are skipped to avoid thrash.
	MinHarvestUSD float64 `toml:"min_harvest_usd"`
	ROIThreshold  float64 `toml:"roi_threshold"`
	// EstimatedGasUnits is the expected gas usage of one compound call, used
	// by the profitability gate before estimation.
	EstimatedGasUnits uint64               `toml:"estimated_gas_units"`
	Interval          duration             `toml:"interval"`
	CycleTimeout      duration             `toml:"cycle_timeout"`
	Sources           []RewardSourceConfig `toml:"sources"`
}

// RebalanceConfig holds rebalance keeper parameters.
type RebalanceConfig struct {
	Enabled         bool     `toml:"enabled"`
	LeverageManager string   `toml:"leverage_manager"`
	Owners          []string `toml:"owners"`
	MaxGasGwei      float64  `toml:"max_gas_gwei"`
	// GasLimit is the fixed conservative limit used for rebalance
	// transactions.
	GasLimit     uint64   `toml:"gas_limit"`
	Interval     duration `toml:"interval"`
	CycleTimeout duration `toml:"cycle_timeout"`
}

// MonitorConfig holds system health monitor parameters.
type MonitorConfig struct {
	Enabled bool `toml:"enabled"`
	// MinKeeperBalanceEth is the native-token operating floor for the keeper
	// wallet.
	MinKeeperBalanceEth float64 `toml:"min_keeper_balance_eth"`
	// PausableContracts lists contracts whose pause flag is checked.
	PausableContracts []string `toml:"pausable_contracts"`
	Interval          duration `toml:"interval"`
}

// LedgerConfig holds position ledger parameters.
type LedgerConfig struct {
	// Vault is the share vault contract whose Deposit/Withdraw events feed
	// the ledger.
	Vault string `toml:"vault"`
	// EventPollInterval is how often the watcher scans for new vault events.
	EventPollInterval duration `toml:"event_poll_interval"`
	// StartBlock is where the event watcher begins when no checkpoint exists.
	StartBlock uint64 `toml:"start_block"`
	// MaxBlockRange caps one FilterLogs window.
	MaxBlockRange uint64 `toml:"max_block_range"`
	// LockTTL bounds how long a per-(owner,vault) withdrawal lock may be held.
	LockTTL duration `toml:"lock_ttl"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:         "https://mainnet.base.org",
			ChainID:        8453,
			Confirmations:  1,
			ReceiptTimeout: duration{2 * time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "jungle",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "jungle-keeper",
			UseSSL:         false,
			ForcePathStyle: true,
			RetentionDays:  90,
			ArchiveEvery:   duration{24 * time.Hour},
		},
		Oracle: OracleConfig{
			PriceURL:    "https://api.coingecko.com/api/v3",
			NativeAsset: "ethereum",
			FallbackPrices: map[string]float64{
				"ethereum": 2000.0,
			},
			FallbackGasGwei: 2,
			MaxPriceAge:     duration{10 * time.Minute},
			CacheTTL:        duration{30 * time.Minute},
		},
		Harvest: HarvestConfig{
			Enabled:           true,
			MaxGasGwei:        50,
			MinHarvestUSD:     1.0,
			ROIThreshold:      1.5,
			EstimatedGasUnits: 300_000,
			Interval:          duration{10 * time.Minute},
			CycleTimeout:      duration{5 * time.Minute},
		},
		Rebalance: RebalanceConfig{
			Enabled:      true,
			MaxGasGwei:   100,
			GasLimit:     800_000,
			Interval:     duration{2 * time.Minute},
			CycleTimeout: duration{90 * time.Second},
		},
		Monitor: MonitorConfig{
			Enabled:             true,
			MinKeeperBalanceEth: 0.05,
			Interval:            duration{1 * time.Minute},
		},
		Ledger: LedgerConfig{
			EventPollInterval: duration{30 * time.Second},
			MaxBlockRange:     5_000,
			LockTTL:           duration{30 * time.Second},
		},
		Notify: NotifyConfig{
			Events: []string{"monitor_unhealthy", "ledger_inconsistency", "tx_failed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"harvest":   true,
	"rebalance": true,
	"monitor":   true,
	"ledger":    true,
	"full":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: harvest, rebalance, monitor, ledger, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet — transaction-submitting modes need a key.
	needsWallet := c.Mode == "harvest" || c.Mode == "rebalance" || c.Mode == "full"
	if needsWallet {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Chain
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis is optional: without an addr the keeper falls back to in-process
	// cache and locks, which is only safe for single-instance deployments.
	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Oracle
	if c.Oracle.PriceURL == "" {
		errs = append(errs, "oracle: price_url must not be empty")
	}
	if c.Oracle.NativeAsset == "" {
		errs = append(errs, "oracle: native_asset must not be empty")
	}
	if c.Oracle.FallbackGasGwei <= 0 {
		errs = append(errs, "oracle: fallback_gas_gwei must be > 0")
	}

	// Harvest
	if c.Harvest.Enabled {
		if c.Harvest.MaxGasGwei <= 0 {
			errs = append(errs, "harvest: max_gas_gwei must be > 0 when enabled")
		}
		if c.Harvest.ROIThreshold <= 0 {
			errs = append(errs, "harvest: roi_threshold must be > 0 when enabled")
		}
		if c.Harvest.EstimatedGasUnits == 0 {
			errs = append(errs, "harvest: estimated_gas_units must be > 0 when enabled")
		}
		for i, s := range c.Harvest.Sources {
			if s.ID == "" {
				errs = append(errs, fmt.Sprintf("harvest: sources[%d]: id must not be empty", i))
			}
			if s.Adapter == "" {
				errs = append(errs, fmt.Sprintf("harvest: sources[%d]: adapter must not be empty", i))
			}
			if s.RewardAsset == "" {
				errs = append(errs, fmt.Sprintf("harvest: sources[%d]: reward_asset must not be empty", i))
			}
		}
	}

	// Rebalance
	if c.Rebalance.Enabled {
		if c.Rebalance.LeverageManager == "" && (c.Mode == "rebalance" || c.Mode == "full") {
			errs = append(errs, "rebalance: leverage_manager must be set when enabled")
		}
		if c.Rebalance.MaxGasGwei <= 0 {
			errs = append(errs, "rebalance: max_gas_gwei must be > 0 when enabled")
		}
		if c.Rebalance.GasLimit == 0 {
			errs = append(errs, "rebalance: gas_limit must be > 0 when enabled")
		}
	}

	// Monitor
	if c.Monitor.Enabled && c.Monitor.MinKeeperBalanceEth < 0 {
		errs = append(errs, "monitor: min_keeper_balance_eth must be >= 0")
	}

	// Ledger
	if c.Mode == "ledger" || c.Mode == "full" {
		if c.Ledger.Vault == "" {
			errs = append(errs, "ledger: vault must be set for mode "+c.Mode)
		}
		if c.Ledger.MaxBlockRange == 0 {
			errs = append(errs, "ledger: max_block_range must be > 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
