// @title           SideQuest API
// @version         1.0
// @description     Gamified real-world quests: quest catalogue, proof submissions, XP and badges, AI quest generation and moderation.

// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sidequest/internal/appinfo"
	"sidequest/internal/config"
	"sidequest/internal/database"
	"sidequest/internal/middleware"
	"sidequest/internal/response"
	"sidequest/internal/router"
	"sidequest/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting SideQuest",
		zap.String("version", appinfo.GetVersion()),
		zap.String("environment", cfg.Server.Environment),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Application stopped with error", zap.Error(err))
	}
	logger.Info("Application shutdown completed")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Initialize database
	startupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbManager, err := database.Open(startupCtx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	healthStatus := dbManager.Health(startupCtx)
	if healthStatus.Status == database.StatusUnhealthy {
		dbManager.Close()
		return fmt.Errorf("database is not healthy: %s", healthStatus.Error)
	}
	logger.Info("Database health check passed", zap.String("status", healthStatus.Status))

	// Initialize services
	serviceCollection, err := services.NewServiceCollection(dbManager, cfg, logger)
	if err != nil {
		dbManager.Close()
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()
	if err := serviceCollection.Start(appCtx); err != nil {
		return fmt.Errorf("failed to start services: %w", err)
	}

	// Response builder for API controllers
	responseConfig := response.DefaultConfig()
	if !cfg.IsProduction() {
		responseConfig = response.DevelopmentConfig()
	}
	responseBuilder := response.NewBuilder(responseConfig, logger)

	authMiddleware := middleware.NewAuthMiddleware(serviceCollection.AuthService, responseBuilder, logger)
	handler := router.SetupRouter(serviceCollection, authMiddleware, responseBuilder, logger)

	// HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Graceful shutdown setup
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("address", server.Addr),
			zap.Bool("swagger_enabled", cfg.Server.SwaggerEnabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case sig := <-quit:
		logger.Info("Shutting down application...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		runErr = fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("Server shutdown completed")
	}

	stopApp()
	if err := serviceCollection.Shutdown(shutdownCtx); err != nil {
		logger.Error("Service shutdown reported errors", zap.Error(err))
	}

	metrics := dbManager.Metrics()
	logger.Info("Final database metrics",
		zap.Int64("total_queries", metrics.QueryCount),
		zap.Int64("total_errors", metrics.ErrorCount),
		zap.Int64("slow_queries", metrics.SlowQueryCount),
	)

	return runErr
}

// initLogger builds a zap logger from the logging section of the config
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}
