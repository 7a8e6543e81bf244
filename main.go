package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/takato23/lookescolar-sub001/internal/api"
	"github.com/takato23/lookescolar-sub001/internal/config"
	"github.com/takato23/lookescolar-sub001/internal/database"
	"github.com/takato23/lookescolar-sub001/internal/handlers"
	"github.com/takato23/lookescolar-sub001/internal/logging"
	"github.com/takato23/lookescolar-sub001/internal/middleware"
	"github.com/takato23/lookescolar-sub001/internal/repository"
	"github.com/takato23/lookescolar-sub001/internal/services"
	"go.uber.org/zap"
)

// NOTE: At least one .sql file must exist in migrations/ for embedding to work.
// Make sure to build from the project root so the path is correct.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

func runMigrations(cfg *config.Config) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	db, err := sql.Open("postgres", cfg.Database.ToDBConfig().URL())
	if err != nil {
		return err
	}
	defer db.Close()
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", d, "postgres", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}
	fmt.Println("Migrations applied successfully.")
	return nil
}

func main() {
	// CLI flags
	configPath := pflag.StringP("config", "c", "config.yaml", "Path to config file")
	migrateFlag := pflag.BoolP("migrate", "m", false, "Run database migrations and exit")
	version := pflag.BoolP("version", "v", false, "Print version and exit")
	port := pflag.IntP("port", "p", 8080, "HTTP server listen port")
	logLevel := pflag.StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
	masterToken := pflag.String("master-token", "", "Override master token from config")
	jwtSecret := pflag.String("jwt-secret", "", "Override JWT secret from config")

	pflag.Parse()

	if *version {
		fmt.Println("lookescolard version 1.0.0")
		os.Exit(0)
	}

	if *migrateFlag {
		cfg, err := config.LoadWithPath(*configPath)
		if err != nil {
			panic("Failed to load configuration: " + err.Error())
		}
		if err := runMigrations(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Override config with CLI flags if set
	if pflag.Lookup("port").Changed {
		cfg.Server.Port = *port
	}
	if pflag.Lookup("log-level").Changed {
		cfg.Logging.Level = *logLevel
	}
	if pflag.Lookup("master-token").Changed && *masterToken != "" {
		cfg.Auth.MasterToken = *masterToken
	}
	if pflag.Lookup("jwt-secret").Changed && *jwtSecret != "" {
		cfg.Auth.JWTSecret = *jwtSecret
	}

	// Initialize logger
	logger, err := logging.InitLogger(logging.LoggingConfig(cfg.Logging))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	durations, err := cfg.ParseRetentionDurations()
	if err != nil {
		logger.Fatal("Failed to parse retention durations", zap.Error(err))
	}

	// Initialize database connection
	db, err := database.Connect(cfg.Database.ToDBConfig())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Initialize repositories
	tokenRepo := repository.NewTokenRepository(db, logger)
	subjectRepo := repository.NewSubjectRepository(db, logger)
	photoRepo := repository.NewPhotoRepository(db, logger)
	auditRepo := repository.NewAuditRepository(db, logger)

	// Initialize services
	tokenCrypto := services.NewTokenCrypto()
	tokenService := services.NewTokenService(tokenCrypto, tokenRepo, logger)
	qrService := services.NewQRService(subjectRepo, logger)
	taggingService := services.NewTaggingService(subjectRepo, photoRepo, services.BatchLimits{
		QR:    cfg.Batch.QRLimit,
		Admin: cfg.Batch.AdminLimit,
	}, logger)
	auditService := services.NewAuditService(auditRepo, logger)
	signerService := services.NewSignerService(cfg.Signer.Secret, cfg.Signer.URLTTL)
	retentionService := services.NewRetentionService(tokenRepo, auditRepo,
		durations.Tokens, durations.Audit, durations.CleanupInterval, logger)

	// Initialize handlers
	decodeHandler := handlers.NewDecodeHandler(qrService, auditService)
	taggingHandler := handlers.NewTaggingHandler(taggingService, auditService)
	tokenHandler := handlers.NewTokenHandler(tokenService, auditService, signerService,
		cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(redisClient, map[middleware.LimitClass]middleware.ClassConfig{
		middleware.ClassDecode:   {MaxRequests: cfg.RateLimit.DecodeLimit, Window: cfg.RateLimit.Window},
		middleware.ClassTag:      {MaxRequests: cfg.RateLimit.TagLimit, Window: cfg.RateLimit.Window},
		middleware.ClassValidate: {MaxRequests: cfg.RateLimit.ValidateLimit, Window: cfg.RateLimit.Window},
	})

	// Initialize router
	router := gin.Default()

	// Register request ID middleware
	router.Use(middleware.RequestIDMiddleware(logger))

	// Setup routes with middleware
	api.SetupRoutes(router, decodeHandler, taggingHandler, tokenHandler, rateLimiter,
		cfg.Auth.JWTSecret, cfg.Auth.MasterToken)

	// Start HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start retention cleanup in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go retentionService.Run(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Fatal("Server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}
}
