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

	"hbinterface/backend/internal/config"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/repository"
	"hbinterface/backend/internal/server"
	"hbinterface/backend/internal/service"
	"hbinterface/backend/pkg/database"
	"hbinterface/backend/pkg/gateway"
	"hbinterface/backend/pkg/jwt"
	"hbinterface/backend/pkg/logger"
	"hbinterface/backend/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.GetLogger()

	log.Info("Starting Hummingbot Interface backend...")
	log.Infof("Environment: %s", cfg.Server.Env)

	// Initialize Redis
	log.Info("Connecting to Redis...")
	redisClient, err := redis.New(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	log.Info("✓ Redis connected")

	// Initialize database
	db, err := database.New(database.Config{DSN: cfg.Database.DSN, LogLevel: cfg.Database.LogLevel}, log)
	if err != nil {
		log.Fatal("Failed to open database", err)
	}
	defer database.Close(db)
	if err := database.Migrate(db, model.AllModels()...); err != nil {
		log.Fatal("Failed to migrate database", err)
	}
	log.Info("✓ Database ready")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Engine gateway
	gatewayCfg := gateway.Config{
		APIURL:            cfg.Gateway.APIURL,
		WSURL:             cfg.Gateway.WSURL,
		APIKey:            cfg.Gateway.APIKey,
		Timeout:           cfg.Gateway.Timeout,
		ReconnectDelay:    cfg.Gateway.ReconnectDelay,
		AckTimeout:        cfg.Gateway.Timeout,
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
	}
	var keyValidator service.KeyValidator
	if cfg.Gateway.Enabled {
		keyValidator = gateway.NewClient(gatewayCfg, log)
	}

	// Services
	notifications := service.NewNotificationService(redisClient, log)
	jwtManager := jwt.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TokenExpire)
	userRepo := repository.NewUserRepository(db, redisClient)
	authService := service.NewAuthService(userRepo, jwtManager, log)
	userService := service.NewUserService(userRepo, log)
	botService := service.NewBotService(repository.NewBotRepository(db), notifications, log)
	orderService := service.NewOrderService(repository.NewOrderRepository(redisClient), notifications, log)
	marketService := service.NewMarketService(redisClient, cfg.Market, log)
	apiKeyService := service.NewAPIKeyService(repository.NewAPIKeyRepository(db), keyValidator, cfg.Encryption.Key, log)

	if cfg.Gateway.Enabled {
		bridge := service.NewEngineBridge(gateway.NewSocket(gatewayCfg, log), botService, log)
		if err := bridge.Start(ctx); err != nil {
			log.Fatal("Failed to start engine bridge", err)
		}
		defer bridge.Close()
		botService.SetEngine(bridge)
		log.Infof("✓ Engine bridge connecting to %s", cfg.Gateway.WSURL)
	}

	// WebSocket hub
	hub := service.NewWSHub(redisClient, authService, botService, orderService, marketService, service.WSHubConfig{
		HeartbeatInterval: cfg.WebSocket.HeartbeatInterval,
		PushInterval:      cfg.Market.PushInterval,
	}, log)
	go hub.Run(ctx)
	if err := hub.StartPubSubListener(ctx); err != nil {
		log.Fatal("Failed to start pub/sub listener", err)
	}

	// Set Gin mode
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := server.NewRouter(server.Deps{
		Config:  cfg,
		Log:     log,
		DB:      db,
		Redis:   redisClient,
		Auth:    authService,
		Bots:    botService,
		Orders:  orderService,
		Market:  marketService,
		APIKeys: apiKeyService,
		Users:   userService,
		Hub:     hub,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Server starting on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", err)
		}
	}()

	log.Info("✓ Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	cancel()

	// Graceful shutdown with 5 second timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err)
	}

	log.Info("Server exited")
}
