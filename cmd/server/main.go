package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/qcom/authapi/internal/bootstrap"
	"github.com/qcom/authapi/internal/config"
	"github.com/qcom/authapi/internal/handlers"
	"github.com/qcom/authapi/internal/middleware"
	"github.com/qcom/authapi/internal/repository"
	"github.com/qcom/authapi/internal/service"
	"github.com/qcom/authapi/internal/validation"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := bootstrap.NewLogger(&cfg.Server)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	users, closeStore, err := bootstrap.OpenUserStore(initCtx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open user store")
	}
	defer closeStore()

	redisClient, err := bootstrap.OpenRedis(initCtx, &cfg.Redis, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize Redis")
	}
	defer redisClient.Close()

	// Initialize repositories
	tokenRepo := repository.NewTokenRepository(redisClient, logger)

	// Initialize services
	tokenService, err := service.NewTokenService(tokenRepo, &cfg.JWT, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize token service")
	}

	authService := service.NewAuthService(
		users,
		tokenService,
		service.NewPasswordService(bcrypt.DefaultCost),
		service.NewOTPService(service.CryptoSource(), &cfg.OTP, time.Now),
		service.NewNotifier(&cfg.SMTP, logger),
		validation.New(),
		&cfg.OTP,
		logger,
	)

	authHandlers := handlers.NewAuthHandlers(authService, logger, cfg.Server.Debug)
	authMiddleware := middleware.NewAuthMiddleware(authService, logger)
	router := handlers.NewRouter(authHandlers, authMiddleware, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":  cfg.Server.Port,
			"store": cfg.Store.Driver,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
