// Package main is the entry point for the Chat Bridge service.
// @title Chat Bridge API
// @version 1.0
// @description Bridges a browser chat widget to a stateful agent service: transcripts, consent polling and the shared explanation panel.

// @contact.name API Support
// @contact.url https://github.com/unifiedui/chat-bridge

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8086
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token forwarded to the agent service
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/unifiedui/chat-bridge/docs"
	"github.com/unifiedui/chat-bridge/internal/api/handlers"
	"github.com/unifiedui/chat-bridge/internal/api/middleware"
	"github.com/unifiedui/chat-bridge/internal/api/routes"
	"github.com/unifiedui/chat-bridge/internal/config"
	"github.com/unifiedui/chat-bridge/internal/core/cache"
	"github.com/unifiedui/chat-bridge/internal/core/docdb"
	"github.com/unifiedui/chat-bridge/internal/core/vault"
	rediscache "github.com/unifiedui/chat-bridge/internal/infrastructure/cache/redis"
	"github.com/unifiedui/chat-bridge/internal/infrastructure/docdb/mongodb"
	dotenvvault "github.com/unifiedui/chat-bridge/internal/infrastructure/vault/dotenv"
	"github.com/unifiedui/chat-bridge/internal/pkg/encryption"
	"github.com/unifiedui/chat-bridge/internal/pkg/logging"
	"github.com/unifiedui/chat-bridge/internal/services/agent"
	"github.com/unifiedui/chat-bridge/internal/services/archive"
	"github.com/unifiedui/chat-bridge/internal/services/authorization"
	"github.com/unifiedui/chat-bridge/internal/services/conversation"
	"github.com/unifiedui/chat-bridge/internal/services/scenario"
	"github.com/unifiedui/chat-bridge/internal/services/session"
	"github.com/unifiedui/chat-bridge/internal/services/statestore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	ctx := context.Background()

	vaultClient, err := createVault(cfg.Vault)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vault")
	}
	defer vaultClient.Close()

	cacheClient, err := createCacheClient(cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache client")
	}
	defer cacheClient.Close()

	var (
		docDBClient docdb.Client
		archiver    *archive.Archiver
	)
	if cfg.Archive.Enabled {
		mongoClient, err := createDocDBClient(ctx, cfg.DocDB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize document db client")
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = mongoClient.Close(closeCtx)
		}()

		if err := mongoClient.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to ensure indexes")
		}

		archiver, err = archive.NewArchiver(&archive.Config{
			Collection: mongoClient.Messages(),
			BufferSize: cfg.Archive.BufferSize,
			Workers:    cfg.Archive.Workers,
			Logger:     &logger,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize archiver")
		}
		docDBClient = mongoClient
	}

	encryptor, err := createEncryptor(ctx, cfg.Vault, vaultClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryptor")
	}

	credentials, err := session.NewCredentials(&session.Config{
		CacheClient: cacheClient,
		Encryptor:   encryptor,
		TTL:         cfg.Cache.TTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize credentials cache")
	}

	agentClient, err := agent.NewClient(&agent.ClientConfig{
		BaseURL: cfg.ChatService.BaseURL,
		Timeout: cfg.ChatService.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize agent client")
	}

	tracker, err := createTracker(cfg, agentClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize authorization poller")
	}

	resolver, err := createResolver(cfg.Scenarios)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load scenario catalog")
	}

	managerCfg := &conversation.Config{
		Exchanger:       agentClient,
		Tracker:         tracker,
		Resolver:        resolver,
		Credentials:     credentials,
		Mirror:          statestore.NewMirror(cacheClient, cfg.Cache.SnapshotTTL, &logger),
		ExchangeTimeout: cfg.ChatService.ExchangeTimeout,
		ExpectedState:   cfg.Authorization.ExpectedState,
		Logger:          &logger,
	}
	// A nil *Archiver must not become a non-nil interface.
	if archiver != nil {
		managerCfg.Archiver = archiver
	}
	manager, err := conversation.NewManager(managerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize conversation manager")
	}

	gin.SetMode(cfg.Server.GinMode)

	var history handlers.HistoryStore
	if archiver != nil {
		history = archiver
	}
	router := setupRouter(cfg, cacheClient, docDBClient, manager, history)

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Stops authorization waits and waits for running continuations, whose
	// terminal messages still reach the archive queue.
	manager.Close()

	if archiver != nil {
		if err := archiver.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("archive queue not drained")
		}
	}

	log.Info().Msg("server exited")
}

// createVault creates a vault based on the configuration.
func createVault(cfg config.VaultConfig) (vault.Vault, error) {
	switch vault.Type(cfg.Type) {
	case vault.TypeDotEnv:
		return dotenvvault.NewVault(), nil
	default:
		return nil, fmt.Errorf("unsupported vault type: %s", cfg.Type)
	}
}

// createCacheClient creates a cache client based on the configuration.
func createCacheClient(cfg config.CacheConfig) (cache.Client, error) {
	switch cache.Type(cfg.Type) {
	case cache.TypeRedis:
		return rediscache.NewClient(rediscache.Config{
			Host:       cfg.Host,
			Port:       cfg.Port,
			Password:   cfg.Password,
			DB:         cfg.DB,
			DefaultTTL: cfg.TTL,
		})
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// createDocDBClient creates a document database client based on the configuration.
func createDocDBClient(ctx context.Context, cfg config.DocDBConfig) (*mongodb.Client, error) {
	switch docdb.Type(cfg.Type) {
	case docdb.TypeMongoDB:
		return mongodb.NewClient(ctx, &mongodb.ClientConfig{
			URI:          cfg.URI,
			DatabaseName: cfg.Database,
		})
	default:
		return nil, fmt.Errorf("unsupported docdb type: %s", cfg.Type)
	}
}

// createEncryptor creates the credential encryptor. The key may be inline
// or a vault reference.
func createEncryptor(ctx context.Context, cfg config.VaultConfig, v vault.Vault) (encryption.Encryptor, error) {
	key := cfg.EncryptionKey
	if vault.IsReference(key) {
		resolved, err := v.GetSecret(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve encryption key: %w", err)
		}
		key = resolved
	}

	if key == "" {
		log.Warn().Msg("SECRETS_ENCRYPTION_KEY not set, cached credentials are not encrypted")
		return encryption.NoOpEncryptor{}, nil
	}

	return encryption.NewAESEncryptor(key)
}

// createTracker builds the authorization poller and its tracker.
func createTracker(cfg *config.Config, fetcher authorization.StatusFetcher) (*authorization.Tracker, error) {
	var trigger authorization.Trigger = authorization.BrowserTrigger{}
	if cfg.Authorization.TriggerMode == "http" {
		trigger = authorization.NewHTTPTrigger(cfg.ChatService.Timeout)
	}

	poller, err := authorization.NewPoller(&authorization.Config{
		Fetcher:     fetcher,
		Trigger:     trigger,
		Interval:    cfg.Authorization.PollInterval,
		MaxAttempts: cfg.Authorization.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return authorization.NewTracker(poller), nil
}

// createResolver loads the scenario catalog, falling back to the built-in one.
func createResolver(cfg config.ScenarioConfig) (*scenario.Resolver, error) {
	if cfg.CatalogPath == "" {
		return scenario.NewResolver(scenario.DefaultCatalog()), nil
	}
	catalog, err := scenario.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.CatalogPath).Int("scenarios", len(catalog)).Msg("scenario catalog loaded")
	return scenario.NewResolver(catalog), nil
}

// setupRouter creates and configures the Gin router.
func setupRouter(cfg *config.Config, cacheClient cache.Client, docDBClient docdb.Client, manager *conversation.Manager, history handlers.HistoryStore) *gin.Engine {
	router := gin.New()

	corsCfg := middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins)
	loggingMw := middleware.NewLoggingMiddleware()
	errorMw := middleware.NewErrorMiddleware()
	authMw := middleware.NewAuthMiddleware(true)

	routesCfg := &routes.Config{
		HealthHandler:        handlers.NewHealthHandler(cacheClient, docDBClient),
		SessionsHandler:      handlers.NewSessionsHandler(manager),
		MessagesHandler:      handlers.NewMessagesHandler(manager, history),
		AuthorizationHandler: handlers.NewAuthorizationHandler(manager),
		ExplanationHandler:   handlers.NewExplanationHandler(manager),
		EventsHandler: handlers.NewEventsHandler(manager, handlers.EventsConfig{
			KeepAlive:   cfg.Server.EventKeepAlive,
			CheckOrigin: corsCfg.AllowsOrigin,
		}),
		AuthMiddleware: authMw,
	}

	routes.SetupWithMiddleware(router, routesCfg, corsCfg, loggingMw, errorMw)

	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}
