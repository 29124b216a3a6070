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
	"github.com/prometheus/client_golang/prometheus"

	"tally/internal/config"
	"tally/internal/database"
	"tally/internal/document"
	"tally/internal/handlers"
	"tally/internal/logger"
	"tally/internal/middleware"
	"tally/internal/router"
	"tally/internal/services"
	"tally/internal/session"
	"tally/internal/validator"

	_ "tally/internal/docs" // Import swagger docs
)

// @title           Tally API
// @version         1.0
// @description     Tally is a multi-tenant expense tracker with point-in-time PDF reports.

// @host      localhost:4500
// @BasePath  /api/v1

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name token

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	revocations, err := newRevocationStore(appConfig.RedisURL)
	if err != nil {
		return err
	}
	tokens := middleware.NewTokenManager(appConfig.JWTSecret, appConfig.JWTExpirationDur, revocations)
	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)

	// Services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	expenseService := services.NewExpenseService(db)
	reportService := services.NewReportService(db, document.NewPDFRenderer())
	auditService := services.NewAuditService(db)

	// Handlers
	routes := &router.Router{
		Auth:          handlers.NewAuthHandler(userService, auditService, tokens, appConfig.IsProduction()),
		Expenses:      handlers.NewExpenseHandler(expenseService, auditService, appConfig.MaxPageSize),
		Reports:       handlers.NewReportHandler(reportService, auditService, metrics, appConfig.MaxPageSize),
		Tokens:        tokens,
		Metrics:       metrics,
		MetricsAPIKey: appConfig.MetricsAPIKey,
		CORSOrigin:    appConfig.CORSOrigin,
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           routes.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Tally server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-sigCh:
		log.Infow("Shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	log.Info("Server stopped gracefully")
	return nil
}

// newRevocationStore connects to Redis when a URL is configured. Without
// one, logout only clears the cookie and tokens stay valid until expiry.
func newRevocationStore(redisURL string) (session.RevocationStore, error) {
	if redisURL == "" {
		logger.Get().Warn("REDIS_URL not set, token revocation disabled")
		return session.NopRevocationStore{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := session.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return session.NewRedisRevocationStore(client), nil
}
