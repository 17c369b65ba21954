package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"terastream/domain/repository"
	"terastream/infrastructure/cache"
	teraboxclient "terastream/infrastructure/clients/terabox"
	"terastream/infrastructure/configuration"
	"terastream/infrastructure/logger"
	"terastream/infrastructure/metrics"
	"terastream/infrastructure/persistence"
	"terastream/infrastructure/pubsub"
	"terastream/infrastructure/servicebus"
	httpHandler "terastream/interfaces/http"
	"terastream/server"
	"terastream/usecase"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	db, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Durable store not available - continuing with live resolution only")
		db = nil
	}

	var shareStore repository.IShareStore
	if db != nil {
		if useMSSQL() {
			if err := persistence.EnsureShareSchemaMSSQL(db); err != nil {
				logger.GetLogger().WithField("error", err).Error("failed ensuring share schema (mssql)")
			}
			shareStore = persistence.NewShareStoreRepositoryMSSQL(db)
		} else {
			if err := persistence.EnsureShareSchema(db); err != nil {
				logger.GetLogger().WithField("error", err).Error("failed ensuring share schema")
			}
			shareStore = persistence.NewShareStoreRepository(db)
		}
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	var fastCache repository.IFastCache
	var tokenStore repository.ITokenStore
	var metricsSink repository.IMetrics = metrics.NoopMetrics{}
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - continuing without fast cache and token cache")
	} else {
		fastCache = cache.NewShareCache(redisClient)
		tokenStore = cache.NewTokenCache(redisClient)
		metricsSink = metrics.NewRedisMetrics(redisClient)
		logger.GetLogger().Info("Redis client initialized successfully.")
	}

	var history repository.IResolveHistory
	if configuration.C.Mongo.URI != "" {
		mongoClient, err := persistence.NewMongoDb(configuration.C.Mongo.URI)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without resolution history")
		} else {
			history = persistence.NewResolveHistoryRepository(mongoClient, configuration.C.Mongo.Database)
		}
	}

	events := initEventPublisher(ctx)

	upstream := teraboxclient.NewClient(teraboxclient.Config{
		Host:       configuration.C.Terabox.Host,
		Cookie:     configuration.C.Terabox.Cookie,
		UserAgent:  configuration.C.Terabox.UserAgent,
		MaxRetries: configuration.C.Terabox.MaxRetries,
		RetryBase:  time.Duration(configuration.C.Terabox.RetryBaseMs) * time.Millisecond,
		Timeout:    time.Duration(configuration.C.Terabox.TimeoutSeconds) * time.Second,
	})

	resolveUsecase := usecase.NewResolveUsecase(upstream, usecase.ResolveConfig{
		Store:     shareStore,
		FastCache: fastCache,
		Tokens:    tokenStore,
		Metrics:   metricsSink,
		History:   history,
		Events:    events,
		OriginURL: configuration.C.Terabox.Host,
		TokenTTL:  time.Duration(configuration.C.Terabox.TokenTTLSeconds) * time.Second,
		CacheTTL:  time.Duration(configuration.C.Terabox.CacheTTLDays) * 24 * time.Hour,
	})
	streamUsecase := usecase.NewStreamUsecase(upstream, usecase.StreamConfig{
		FastCache:   fastCache,
		Resolver:    resolveUsecase,
		Metrics:     metricsSink,
		Host:        configuration.C.Terabox.Host,
		DefaultType: configuration.C.Stream.DefaultType,
	})

	resolveHandler := httpHandler.NewResolveHandler(resolveUsecase, metricsSink)
	streamHandler := httpHandler.NewStreamHandler(streamUsecase, metricsSink, configuration.C.Stream.AllowedDomains)
	adminHandler := httpHandler.NewAdminHandler(resolveUsecase, metricsSink)

	router := server.InitiateRouter(resolveHandler, streamHandler, adminHandler, app.SecretKey)

	port := app.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

func useMSSQL() bool {
	env := os.Getenv("ENV")
	return os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod"
}

func InitiateDatabase() (*sql.DB, error) {
	if useMSSQL() {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, err
		}
		return db, nil
	}
	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		return nil, err
	}
	return db, nil
}

// initEventPublisher prefers Google Pub/Sub when a project is configured,
// falling back to Azure Service Bus, else no publisher at all.
func initEventPublisher(ctx context.Context) repository.IEventPublisher {
	if projectID := configuration.C.Pubsub.ProjectID; projectID != "" {
		client, err := pubsub.NewPubSub(ctx, projectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available - continuing without event publishing")
		} else {
			return pubsub.NewResolveEventPublisher(client, configuration.C.Pubsub.Topic)
		}
	}
	if namespace := configuration.C.ServiceBus.Namespace; namespace != "" {
		client, err := servicebus.NewServiceBus(namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without event publishing")
		} else {
			return servicebus.NewResolveEventPublisher(client, configuration.C.ServiceBus.Queue)
		}
	}
	return nil
}
