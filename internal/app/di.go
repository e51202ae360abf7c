// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/sakhi-health/chatvault/internal/config"
	conversationRepository "github.com/sakhi-health/chatvault/internal/conversation/repository"
	conversationUsecase "github.com/sakhi-health/chatvault/internal/conversation/usecase"
	cryptoDomain "github.com/sakhi-health/chatvault/internal/crypto/domain"
	cryptoService "github.com/sakhi-health/chatvault/internal/crypto/service"
	"github.com/sakhi-health/chatvault/internal/database"
	maskingRepository "github.com/sakhi-health/chatvault/internal/masking/repository"
	maskingUsecase "github.com/sakhi-health/chatvault/internal/masking/usecase"
	"github.com/sakhi-health/chatvault/internal/metrics"
)

// Container holds all application dependencies and provides methods to access
// them. It follows the lazy initialization pattern - components are created on
// first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger
	db     *sql.DB

	// Managers
	txManager database.TxManager

	// Crypto
	masterSecret     cryptoDomain.MasterSecret
	passphraseCipher cryptoService.PassphraseCipher

	// Repositories
	turnRepo  conversationUsecase.TurnRepository
	dictRepo  maskingUsecase.DictionaryRepository
	vaultRepo maskingUsecase.VaultRepository

	// Use Cases
	conversationUseCase conversationUsecase.ConversationUseCase
	tokenVault          maskingUsecase.TokenVault
	piiVault            maskingUsecase.PIIVault
	maskingEngine       maskingUsecase.MaskingEngine

	// Collaborators
	profiles *maskingUsecase.InMemoryProfileDirectory

	// Observability
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	metricsServer   *metrics.Server

	// Initialization flags and mutex for thread-safety
	mu                    sync.Mutex
	loggerInit            sync.Once
	dbInit                sync.Once
	txManagerInit         sync.Once
	masterSecretInit      sync.Once
	passphraseCipherInit  sync.Once
	turnRepoInit          sync.Once
	dictRepoInit          sync.Once
	vaultRepoInit         sync.Once
	conversationInit      sync.Once
	tokenVaultInit        sync.Once
	piiVaultInit          sync.Once
	maskingEngineInit     sync.Once
	profilesInit          sync.Once
	metricsProviderInit   sync.Once
	businessMetricsInit   sync.Once
	metricsServerInit     sync.Once
	initErrors            map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := database.Connect(database.Config{
			Driver:             c.config.DBDriver,
			ConnectionString:   c.config.DBConnectionString,
			MaxOpenConnections: c.config.DBMaxOpenConnections,
			MaxIdleConnections: c.config.DBMaxIdleConnections,
			ConnMaxLifetime:    c.config.DBConnMaxLifetime,
		})
		if err != nil {
			c.initErrors["db"] = fmt.Errorf("failed to connect to database: %w", err)
			return
		}
		c.db = db
	})
	if err, exists := c.initErrors["db"]; exists {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if err, exists := c.initErrors["txManager"]; exists {
		return nil, err
	}
	return c.txManager, nil
}

// MasterSecret returns the process master secret, resolving it on first access
// through the KMS keeper, the raw configured value, or a warned transient key.
func (c *Container) MasterSecret(ctx context.Context) (cryptoDomain.MasterSecret, error) {
	c.masterSecretInit.Do(func() {
		loader := cryptoService.NewMasterSecretLoader(cryptoService.NewKMSService(), c.Logger())
		secret, err := loader.Load(ctx, cryptoService.MasterSecretOptions{
			Raw:           c.config.MasterSecret,
			KMSKeyURI:     c.config.KMSKeyURI,
			WrappedSecret: c.config.KMSWrappedSecret,
		})
		if err != nil {
			c.initErrors["masterSecret"] = fmt.Errorf("failed to load master secret: %w", err)
			return
		}
		c.masterSecret = secret
	})
	if err, exists := c.initErrors["masterSecret"]; exists {
		return cryptoDomain.MasterSecret{}, err
	}
	return c.masterSecret, nil
}

// PassphraseCipher returns the shared vault cipher. Without a configured
// passphrase a transient random one is generated, mirroring the master secret's
// degraded mode: vault rows written under it are unrecoverable after restart.
func (c *Container) PassphraseCipher() (cryptoService.PassphraseCipher, error) {
	c.passphraseCipherInit.Do(func() {
		passphrase := c.config.PIIPassphrase
		if passphrase == "" {
			c.Logger().Warn(
				"PII vault passphrase not configured, using a transient random one; " +
					"vault data will be unrecoverable after restart",
			)
			buf := make([]byte, 32)
			if _, err := rand.Read(buf); err != nil {
				c.initErrors["passphraseCipher"] = fmt.Errorf("failed to generate transient passphrase: %w", err)
				return
			}
			passphrase = hex.EncodeToString(buf)
		}

		cipher, err := cryptoService.NewPBKDF2PassphraseCipher(passphrase)
		if err != nil {
			c.initErrors["passphraseCipher"] = fmt.Errorf("failed to create passphrase cipher: %w", err)
			return
		}
		c.passphraseCipher = cipher
	})
	if err, exists := c.initErrors["passphraseCipher"]; exists {
		return nil, err
	}
	return c.passphraseCipher, nil
}

// TurnRepository returns the encrypted turn repository instance.
func (c *Container) TurnRepository() (conversationUsecase.TurnRepository, error) {
	c.turnRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["turnRepo"] = fmt.Errorf("failed to get database for turn repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.turnRepo = conversationRepository.NewMySQLTurnRepository(db)
		case "postgres":
			c.turnRepo = conversationRepository.NewPostgreSQLTurnRepository(db)
		default:
			c.initErrors["turnRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["turnRepo"]; exists {
		return nil, err
	}
	return c.turnRepo, nil
}

// DictionaryRepository returns the medical dictionary repository instance.
func (c *Container) DictionaryRepository() (maskingUsecase.DictionaryRepository, error) {
	c.dictRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["dictRepo"] = fmt.Errorf("failed to get database for dictionary repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.dictRepo = maskingRepository.NewMySQLDictionaryRepository(db)
		case "postgres":
			c.dictRepo = maskingRepository.NewPostgreSQLDictionaryRepository(db)
		default:
			c.initErrors["dictRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["dictRepo"]; exists {
		return nil, err
	}
	return c.dictRepo, nil
}

// VaultRepository returns the PII vault repository instance.
func (c *Container) VaultRepository() (maskingUsecase.VaultRepository, error) {
	c.vaultRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["vaultRepo"] = fmt.Errorf("failed to get database for vault repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.vaultRepo = maskingRepository.NewMySQLVaultRepository(db)
		case "postgres":
			c.vaultRepo = maskingRepository.NewPostgreSQLVaultRepository(db)
		default:
			c.initErrors["vaultRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["vaultRepo"]; exists {
		return nil, err
	}
	return c.vaultRepo, nil
}

// ConversationUseCase returns the encrypted conversation use case, wrapped in
// metrics instrumentation when metrics are enabled.
func (c *Container) ConversationUseCase(ctx context.Context) (conversationUsecase.ConversationUseCase, error) {
	c.conversationInit.Do(func() {
		turnRepo, err := c.TurnRepository()
		if err != nil {
			c.initErrors["conversation"] = fmt.Errorf("failed to get turn repository for conversation use case: %w", err)
			return
		}

		secret, err := c.MasterSecret(ctx)
		if err != nil {
			c.initErrors["conversation"] = fmt.Errorf("failed to get master secret for conversation use case: %w", err)
			return
		}

		useCase := conversationUsecase.NewConversationUseCase(
			turnRepo,
			cryptoService.NewHKDFKeyDeriver(secret),
			cryptoService.NewAESGCMMessageCipher(),
			c.config.HistoryFetchWindow,
			c.Logger(),
		)

		bm, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["conversation"] = fmt.Errorf("failed to get metrics for conversation use case: %w", err)
			return
		}
		c.conversationUseCase = conversationUsecase.NewConversationUseCaseWithMetrics(useCase, bm)
	})
	if err, exists := c.initErrors["conversation"]; exists {
		return nil, err
	}
	return c.conversationUseCase, nil
}

// TokenVault returns the global medical token vault.
func (c *Container) TokenVault() (maskingUsecase.TokenVault, error) {
	c.tokenVaultInit.Do(func() {
		dictRepo, err := c.DictionaryRepository()
		if err != nil {
			c.initErrors["tokenVault"] = fmt.Errorf("failed to get dictionary repository for token vault: %w", err)
			return
		}

		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["tokenVault"] = fmt.Errorf("failed to get tx manager for token vault: %w", err)
			return
		}

		cipher, err := c.PassphraseCipher()
		if err != nil {
			c.initErrors["tokenVault"] = fmt.Errorf("failed to get passphrase cipher for token vault: %w", err)
			return
		}

		c.tokenVault = maskingUsecase.NewTokenVault(
			dictRepo,
			txManager,
			maskingUsecase.NewSHA256HashService(),
			cipher,
			c.Logger(),
		)
	})
	if err, exists := c.initErrors["tokenVault"]; exists {
		return nil, err
	}
	return c.tokenVault, nil
}

// PIIVault returns the per-user PII vault.
func (c *Container) PIIVault() (maskingUsecase.PIIVault, error) {
	c.piiVaultInit.Do(func() {
		vaultRepo, err := c.VaultRepository()
		if err != nil {
			c.initErrors["piiVault"] = fmt.Errorf("failed to get vault repository for pii vault: %w", err)
			return
		}

		cipher, err := c.PassphraseCipher()
		if err != nil {
			c.initErrors["piiVault"] = fmt.Errorf("failed to get passphrase cipher for pii vault: %w", err)
			return
		}

		c.piiVault = maskingUsecase.NewPIIVault(
			vaultRepo,
			maskingUsecase.NewSHA256HashService(),
			cipher,
			c.config.PIICacheTTL,
			c.Logger(),
		)
	})
	if err, exists := c.initErrors["piiVault"]; exists {
		return nil, err
	}
	return c.piiVault, nil
}

// ProfileDirectory returns the in-process profile directory the masking engine
// consults for display names.
func (c *Container) ProfileDirectory() *maskingUsecase.InMemoryProfileDirectory {
	c.profilesInit.Do(func() {
		c.profiles = maskingUsecase.NewInMemoryProfileDirectory()
	})
	return c.profiles
}

// MaskingEngine returns the hybrid masking engine, wrapped in metrics
// instrumentation when metrics are enabled. The medical token vault's caches
// are preloaded on first access so unmasking works from the first request.
func (c *Container) MaskingEngine(ctx context.Context) (maskingUsecase.MaskingEngine, error) {
	c.maskingEngineInit.Do(func() {
		tokenVault, err := c.TokenVault()
		if err != nil {
			c.initErrors["maskingEngine"] = fmt.Errorf("failed to get token vault for masking engine: %w", err)
			return
		}

		piiVault, err := c.PIIVault()
		if err != nil {
			c.initErrors["maskingEngine"] = fmt.Errorf("failed to get pii vault for masking engine: %w", err)
			return
		}

		loaded, err := tokenVault.Preload(ctx)
		if err != nil {
			c.initErrors["maskingEngine"] = fmt.Errorf("failed to preload medical dictionary: %w", err)
			return
		}
		c.Logger().Info("medical dictionary preloaded", slog.Int("entries", loaded))

		engine := maskingUsecase.NewMaskingEngine(
			tokenVault,
			piiVault,
			c.ProfileDirectory(),
			c.Logger(),
		)

		bm, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["maskingEngine"] = fmt.Errorf("failed to get metrics for masking engine: %w", err)
			return
		}
		c.maskingEngine = maskingUsecase.NewMaskingEngineWithMetrics(engine, bm)
	})
	if err, exists := c.initErrors["maskingEngine"]; exists {
		return nil, err
	}
	return c.maskingEngine, nil
}

// MetricsProvider returns the metrics provider instance, nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}

		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if err, exists := c.initErrors["metricsProvider"]; exists {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder, a no-op when metrics
// are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to get metrics provider: %w", err)
			return
		}

		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}

		bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to create business metrics: %w", err)
			return
		}
		c.businessMetrics = bm
	})
	if err, exists := c.initErrors["businessMetrics"]; exists {
		return nil, err
	}
	return c.businessMetrics, nil
}

// MetricsServer returns the metrics HTTP server, nil when metrics are disabled.
func (c *Container) MetricsServer() (*metrics.Server, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = fmt.Errorf("failed to get metrics provider: %w", err)
			return
		}
		if provider == nil {
			return
		}

		c.metricsServer = metrics.NewServer(
			c.config.MetricsHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if err, exists := c.initErrors["metricsServer"]; exists {
		return nil, err
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}
