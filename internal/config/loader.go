package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies JUNGLE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known JUNGLE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// --- Wallet ---
	setStr(&cfg.Wallet.PrivateKey, "JUNGLE_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "JUNGLE_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "JUNGLE_WALLET_KEY_PASSWORD")

	// --- Chain ---
	setStr(&cfg.Chain.RPCURL, "JUNGLE_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "JUNGLE_CHAIN_ID")
	setUint64(&cfg.Chain.Confirmations, "JUNGLE_CHAIN_CONFIRMATIONS")
	setDuration(&cfg.Chain.ReceiptTimeout, "JUNGLE_CHAIN_RECEIPT_TIMEOUT")

	// --- Postgres ---
	setStr(&cfg.Postgres.DSN, "JUNGLE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "JUNGLE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "JUNGLE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "JUNGLE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "JUNGLE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "JUNGLE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "JUNGLE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "JUNGLE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "JUNGLE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "JUNGLE_POSTGRES_RUN_MIGRATIONS")

	// --- Redis ---
	setStr(&cfg.Redis.Addr, "JUNGLE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "JUNGLE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "JUNGLE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "JUNGLE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "JUNGLE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "JUNGLE_REDIS_TLS_ENABLED")

	// --- S3 ---
	setStr(&cfg.S3.Endpoint, "JUNGLE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "JUNGLE_S3_REGION")
	setStr(&cfg.S3.Bucket, "JUNGLE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "JUNGLE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "JUNGLE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "JUNGLE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "JUNGLE_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "JUNGLE_S3_RETENTION_DAYS")
	setDuration(&cfg.S3.ArchiveEvery, "JUNGLE_S3_ARCHIVE_EVERY")

	// --- Oracle ---
	setStr(&cfg.Oracle.PriceURL, "JUNGLE_ORACLE_PRICE_URL")
	setStr(&cfg.Oracle.StreamURL, "JUNGLE_ORACLE_STREAM_URL")
	setStr(&cfg.Oracle.NativeAsset, "JUNGLE_ORACLE_NATIVE_ASSET")
	setInt64(&cfg.Oracle.FallbackGasGwei, "JUNGLE_ORACLE_FALLBACK_GAS_GWEI")
	setDuration(&cfg.Oracle.MaxPriceAge, "JUNGLE_ORACLE_MAX_PRICE_AGE")
	setDuration(&cfg.Oracle.CacheTTL, "JUNGLE_ORACLE_CACHE_TTL")

	// --- Harvest ---
	setBool(&cfg.Harvest.Enabled, "JUNGLE_HARVEST_ENABLED")
	setFloat64(&cfg.Harvest.MaxGasGwei, "JUNGLE_HARVEST_MAX_GAS_GWEI")
	setFloat64(&cfg.Harvest.MinHarvestUSD, "JUNGLE_HARVEST_MIN_HARVEST_USD")
	setFloat64(&cfg.Harvest.ROIThreshold, "JUNGLE_HARVEST_ROI_THRESHOLD")
	setUint64(&cfg.Harvest.EstimatedGasUnits, "JUNGLE_HARVEST_ESTIMATED_GAS_UNITS")
	setDuration(&cfg.Harvest.Interval, "JUNGLE_HARVEST_INTERVAL")
	setDuration(&cfg.Harvest.CycleTimeout, "JUNGLE_HARVEST_CYCLE_TIMEOUT")

	// --- Rebalance ---
	setBool(&cfg.Rebalance.Enabled, "JUNGLE_REBALANCE_ENABLED")
	setStr(&cfg.Rebalance.LeverageManager, "JUNGLE_REBALANCE_LEVERAGE_MANAGER")
	setStringSlice(&cfg.Rebalance.Owners, "JUNGLE_REBALANCE_OWNERS")
	setFloat64(&cfg.Rebalance.MaxGasGwei, "JUNGLE_REBALANCE_MAX_GAS_GWEI")
	setUint64(&cfg.Rebalance.GasLimit, "JUNGLE_REBALANCE_GAS_LIMIT")
	setDuration(&cfg.Rebalance.Interval, "JUNGLE_REBALANCE_INTERVAL")
	setDuration(&cfg.Rebalance.CycleTimeout, "JUNGLE_REBALANCE_CYCLE_TIMEOUT")

	// --- Monitor ---
	setBool(&cfg.Monitor.Enabled, "JUNGLE_MONITOR_ENABLED")
	setFloat64(&cfg.Monitor.MinKeeperBalanceEth, "JUNGLE_MONITOR_MIN_KEEPER_BALANCE_ETH")
	setStringSlice(&cfg.Monitor.PausableContracts, "JUNGLE_MONITOR_PAUSABLE_CONTRACTS")
	setDuration(&cfg.Monitor.Interval, "JUNGLE_MONITOR_INTERVAL")

	// --- Ledger ---
	setStr(&cfg.Ledger.Vault, "JUNGLE_LEDGER_VAULT")
	setDuration(&cfg.Ledger.EventPollInterval, "JUNGLE_LEDGER_EVENT_POLL_INTERVAL")
	setUint64(&cfg.Ledger.StartBlock, "JUNGLE_LEDGER_START_BLOCK")
	setUint64(&cfg.Ledger.MaxBlockRange, "JUNGLE_LEDGER_MAX_BLOCK_RANGE")
	setDuration(&cfg.Ledger.LockTTL, "JUNGLE_LEDGER_LOCK_TTL")

	// --- Notify ---
	setStr(&cfg.Notify.TelegramToken, "JUNGLE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "JUNGLE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "JUNGLE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "JUNGLE_NOTIFY_EVENTS")

	// --- Top-level ---
	setStr(&cfg.Mode, "JUNGLE_MODE")
	setStr(&cfg.LogLevel, "JUNGLE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
