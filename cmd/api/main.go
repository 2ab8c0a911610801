package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/token-service/internal/accesstoken"
	httptransport "github.com/spec-kit/token-service/internal/api/http"
	"github.com/spec-kit/token-service/internal/api/http/handlers"
	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/config"
	"github.com/spec-kit/token-service/internal/issuer"
	"github.com/spec-kit/token-service/internal/observability"
	"github.com/spec-kit/token-service/internal/persistence"
	"github.com/spec-kit/token-service/internal/repository"
	"github.com/spec-kit/token-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Agora.AppID == "" || cfg.Agora.AppCertificate == "" {
		logger.Warn("AGORA_APP_ID or AGORA_APP_CERTIFICATE not set; requests must supply appID and appCertificate")
	}

	metrics := observability.NewMetrics("token_service")

	var repo repository.CredentialRepository
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		repo = repository.NewMemoryCredentialRepository(cfg.Store.MemoryCleanupInterval())
		logger.Info("using in-memory credential store")
	default:
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		repo = repository.NewRedisCredentialRepository(redis.Client)
	}

	tokenService := service.NewTokenService(
		repo,
		issuer.New(accesstoken.NewBuilder()),
		service.TokenServiceOptions{
			Defaults:     cfg.Agora,
			StrictRoles:  cfg.Token.StrictRoles,
			WriteTimeout: cfg.Store.WriteTimeout(),
			Logger:       logger,
			Metrics:      metrics,
		},
	)

	var authMiddleware *auth.AuthMiddleware
	if cfg.Auth.JWTSecret != "" {
		authMiddleware = auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret, 0))
		logger.Info("bearer authentication enabled for token routes")
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{cfg.Store.Backend: repo}),
		Tokens:         handlers.NewTokenHandler(tokenService),
		Metrics:        metrics,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.WriteTimeout())
	defer cancel()
	if err := tokenService.Wait(ctx); err != nil {
		logger.Warn("pending credential writes abandoned", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
