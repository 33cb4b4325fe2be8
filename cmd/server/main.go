package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/nurseaide/internal/config"
	"github.com/prudhvinik1/nurseaide/internal/database"
	"github.com/prudhvinik1/nurseaide/internal/handlers"
	"github.com/prudhvinik1/nurseaide/internal/ingest"
	"github.com/prudhvinik1/nurseaide/internal/logger"
	"github.com/prudhvinik1/nurseaide/internal/repositories"
	"github.com/prudhvinik1/nurseaide/internal/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "nurseaide")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
	lg.Info("server stopped gracefully")
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, lg)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer postgresPool.Close()

	if err := database.EnsureSchema(ctx, postgresPool); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL, lg)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()

	// Repositories
	requestRepo := repositories.NewRedisRequestRepository(redisClient,
		repositories.WithPingInterval(cfg.SubscriptionPingInterval),
		repositories.WithRepositoryLogger(lg),
	)
	caregiverRepo := repositories.NewPostgresCaregiverRepository(postgresPool)
	sessionRepo := repositories.NewRedisSessionRepository(redisClient)
	auditRepo := repositories.NewPostgresDeletionAuditRepository(postgresPool)

	// Services
	authService := services.NewAuthService(caregiverRepo, sessionRepo, cfg.JWTSecret, cfg.JWTExpiry)
	store := services.NewRequestStore(requestRepo,
		services.WithRequestsPath(cfg.RequestsPath),
		services.WithDeleteTimeout(cfg.DeleteTimeout),
		services.WithDeletionAudit(auditRepo),
		services.WithStoreLogger(lg),
	)
	if err := store.Subscribe(); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", cfg.RequestsPath, err)
	}
	defer store.Dispose()

	router := handlers.NewRouter(handlers.Deps{
		Store:       store,
		Writer:      requestRepo,
		Auth:        authService,
		History:     auditRepo,
		Logger:      lg,
		DeviceToken: cfg.DeviceToken,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Stream handlers end when the signal context is cancelled
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	var consumer *ingest.RequestConsumer
	if cfg.MQTTEnabled() {
		mqttClient, err := ingest.NewMQTTClient(ingest.MQTTOptions{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		}, lg)
		if err != nil {
			return err
		}
		defer mqttClient.Disconnect()
		consumer = ingest.NewRequestConsumer(mqttClient, requestRepo, store.Path(), cfg.MQTTTopic, lg)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lg.Info("starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if consumer != nil {
		g.Go(func() error {
			return consumer.Start(gctx)
		})
	}

	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
