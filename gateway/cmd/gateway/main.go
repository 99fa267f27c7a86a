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
	redis "github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"identity-server/gateway/internal/config"
	gatewaymw "identity-server/gateway/internal/middleware"
	"identity-server/gateway/internal/proxy"
	"identity-server/shared/authutils"
	"identity-server/shared/database"
	sharedLogger "identity-server/shared/logger"
	sharedMiddleware "identity-server/shared/middleware"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(os.Getenv("GATEWAY_CONFIG_PATH"))
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.Log.Level,
		Encoding: "json",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	zap.L().Info("Logger initialized", zap.String("logLevel", cfg.Log.Level))

	// --- External Connections ---
	redisClient, err := setupRedis(cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	zap.L().Info("Connected to Redis")

	// --- Dependency Injection ---
	validator, err := authutils.NewTokenValidator(cfg.JWTSecret, logger)
	if err != nil {
		zap.L().Fatal("Failed to create token validator", zap.Error(err))
	}

	blacklistRepo := database.NewRedisBlacklistRepository(redisClient, logger)
	rateLimitStore := database.NewRedisRateLimitStore(redisClient, logger)

	authFilter := gatewaymw.NewAuthFilter(validator, blacklistRepo, cfg.PublicPathList(), logger)
	rateLimiter := gatewaymw.NewRateLimiter(rateLimitStore, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger)

	proxyRouter, err := proxy.NewRouter(cfg.Routes, logger)
	if err != nil {
		zap.L().Fatal("Failed to build proxy routing table", zap.Error(err))
	}

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(sharedMiddleware.ZapLoggingMiddleware(logger))
	router.Use(gin.Recovery())
	router.Use(gatewaymw.RequestID())

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	// Everything else flows through rate limiting, edge auth, then proxy.
	chain := []gin.HandlerFunc{}
	if cfg.RateLimit.Enabled {
		chain = append(chain, rateLimiter.Handler())
	}
	chain = append(chain, authFilter.Handler(), proxyRouter.Handler())
	router.NoRoute(chain...)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting gateway", zap.String("port", cfg.Server.Port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down gateway...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Gateway exiting")
}

// setupRedis initializes the Redis client with retry logic.
func setupRedis(cfg *config.Config) (*redis.Client, error) {
	redisOpts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	zap.L().Info("Redis connection options configured", zap.String("address", redisOpts.Addr), zap.Int("db", redisOpts.DB))

	var client *redis.Client
	var lastErr error
	maxRetries := 50
	retryDelay := 3 * time.Second

	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		client = redis.NewClient(redisOpts)

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := client.Ping(pingCtx).Result()
		pingCancel()

		if err == nil {
			zap.L().Info("Successfully connected and pinged Redis", zap.Int("attempt", attempt))
			return client, nil
		}

		client.Close()
		lastErr = fmt.Errorf("unable to ping redis (attempt %d/%d): %w", attempt, maxRetries, err)
		zap.L().Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	zap.L().Error("Failed to connect to Redis after all retries", zap.Int("attempts", maxRetries), zap.Error(lastErr))
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}
