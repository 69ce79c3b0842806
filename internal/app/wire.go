package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/celvios/Base-Jungle-sub000/internal/blob/s3"
	"github.com/celvios/Base-Jungle-sub000/internal/cache/redis"
	"github.com/celvios/Base-Jungle-sub000/internal/chain"
	"github.com/celvios/Base-Jungle-sub000/internal/config"
	"github.com/celvios/Base-Jungle-sub000/internal/crypto"
	"github.com/celvios/Base-Jungle-sub000/internal/domain"
	"github.com/celvios/Base-Jungle-sub000/internal/notify"
	"github.com/celvios/Base-Jungle-sub000/internal/oracle"
	"github.com/celvios/Base-Jungle-sub000/internal/store/memory"
	"github.com/celvios/Base-Jungle-sub000/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Chain
	Chain *chain.Client

	// Stores
	LotStore        domain.LotStore
	WithdrawalStore domain.WithdrawalStore
	CheckpointStore domain.CheckpointStore

	// Caches
	PriceCache  domain.PriceCache
	LockManager domain.LockManager

	// Oracles
	PriceFeed *oracle.PriceFeed
	GasOracle *oracle.GasOracle

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that require the durable ledger store.
// Harvest and rebalance keep no positions of their own; the in-memory stores
// carry them.
func needsPostgres(mode string) bool {
	switch mode {
	case "ledger", "full":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that run the cold-storage archiver.
func needsS3(mode string) bool {
	switch mode {
	case "ledger", "full":
		return true
	default:
		return false
	}
}

// needsSigner returns true for modes that submit transactions.
func needsSigner(mode string) bool {
	switch mode {
	case "harvest", "rebalance", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Keeper signing key ---
	var privateKey string
	if needsSigner(cfg.Mode) {
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: keeper key: %w", err)
		}
		privateKey = key
	}

	// --- Chain client ---
	chainClient, err := chain.New(ctx, chain.ClientConfig{
		RPCURL:         cfg.Chain.RPCURL,
		ChainID:        cfg.Chain.ChainID,
		Confirmations:  cfg.Chain.Confirmations,
		ReceiptTimeout: cfg.Chain.ReceiptTimeout.Duration,
		PrivateKeyHex:  privateKey,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain: %w", err)
	}
	closers = append(closers, chainClient.Close)
	deps.Chain = chainClient

	// --- Redis (optional: in-process fallbacks keep single-instance modes
	// working without it) ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Oracle.CacheTTL.Duration)
		deps.LockManager = redis.NewLockManager(redisClient)
	} else {
		logger.WarnContext(ctx, "redis not configured, using in-process cache and locks")
		deps.PriceCache = memory.NewPriceCache()
		deps.LockManager = memory.NewLockManager()
	}

	// --- Stores ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.LotStore = postgres.NewLotStore(pool)
		deps.WithdrawalStore = postgres.NewWithdrawalStore(pool)
		deps.CheckpointStore = postgres.NewCheckpointStore(pool)
	} else {
		deps.LotStore = memory.NewLotStore()
		deps.WithdrawalStore = memory.NewWithdrawalStore()
		deps.CheckpointStore = memory.NewCheckpointStore()
	}

	// --- Oracles ---
	deps.PriceFeed = oracle.NewPriceFeed(oracle.PriceFeedConfig{
		BaseURL:   cfg.Oracle.PriceURL,
		Fallbacks: cfg.Oracle.FallbackPrices,
		MaxAge:    cfg.Oracle.MaxPriceAge.Duration,
	}, deps.PriceCache, logger)
	deps.GasOracle = oracle.NewGasOracle(chainClient, cfg.Oracle.FallbackGasGwei, logger)

	// --- S3 blob storage ---
	if needsS3(cfg.Mode) && cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			Prefix:         cfg.S3.KeyPrefix,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		retention := time.Duration(cfg.S3.RetentionDays) * 24 * time.Hour
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.LotStore, retention, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
