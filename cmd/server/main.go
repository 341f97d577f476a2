package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/certolo/certolo-backend/config"
	"github.com/certolo/certolo-backend/internal/app/controller"
	"github.com/certolo/certolo-backend/internal/app/repository"
	"github.com/certolo/certolo-backend/internal/app/service"
	"github.com/certolo/certolo-backend/internal/db"
	"github.com/certolo/certolo-backend/internal/middleware"
	"github.com/certolo/certolo-backend/internal/router"
	"github.com/certolo/certolo-backend/internal/scheduler"
	"github.com/certolo/certolo-backend/internal/storage"
	"github.com/certolo/certolo-backend/pkg/logger"
	"github.com/certolo/certolo-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting CERTOLO Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Initialize Redis (sessions, anti-forgery tokens, token blacklist)
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Fatal("Failed to initialize Redis", err)
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}()

	// Initialize storage
	localFiles, err := storage.NewLocalStorage(&cfg.Upload)
	if err != nil {
		logger.Fatal("Failed to initialize upload storage", err)
	}
	s3Storage := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	standardRepo := repository.NewStandardRepository(db.GetDB())
	applicationRepo := repository.NewApplicationRepository(db.GetDB())
	certificateRepo := repository.NewCertificateRepository(db.GetDB())
	activityRepo := repository.NewActivityLogRepository(db.GetDB())
	attemptRepo := repository.NewLoginAttemptRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		attemptRepo,
		redis.NewTokenBlacklist(),
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
		cfg.Auth.LoginAttemptLimit,
		cfg.Auth.LockoutDuration,
		cfg.Auth.BcryptCost,
	)
	sessionService := service.NewSessionService(redis.NewSessionStore(), cfg.JWT.RefreshTokenExpiry)
	standardService := service.NewStandardService(standardRepo, activityRepo)
	applicationService := service.NewApplicationService(
		applicationRepo,
		standardRepo,
		userRepo,
		localFiles,
		db.GetDB(),
	)
	certificateService := service.NewCertificateService(certificateRepo, activityRepo)
	customerService := service.NewCustomerService(db.GetDB())

	// Initialize controllers
	authController := controller.NewAuthController(authService, sessionService)
	standardController := controller.NewStandardController(standardService, localFiles)
	applicationController := controller.NewApplicationController(applicationService, localFiles)
	certificateController := controller.NewCertificateController(certificateService)
	customerController := controller.NewCustomerController(customerService)
	uploadController := controller.NewUploadController(s3Storage)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	csrfMiddleware := middleware.CSRFMiddleware(sessionService)

	// Start the daily certificate expiry sweep
	certificateScheduler := scheduler.NewCertificateScheduler(certificateService)
	if err := certificateScheduler.Start(); err != nil {
		logger.Fatal("Failed to start certificate scheduler", err)
	}
	defer certificateScheduler.Stop()

	// Purge login failure rows once they fall out of the lockout window
	attemptScheduler := scheduler.NewLoginAttemptScheduler(attemptRepo, cfg.Auth.LockoutDuration)
	if err := attemptScheduler.Start(); err != nil {
		logger.Fatal("Failed to start login attempt scheduler", err)
	}
	defer attemptScheduler.Stop()

	// Setup router
	r := router.NewRouter(
		authController,
		standardController,
		applicationController,
		certificateController,
		customerController,
		uploadController,
		authMiddleware,
		csrfMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
