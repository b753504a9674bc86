package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"hbinterface/backend/internal/config"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/repository"
	"hbinterface/backend/internal/service"
	"hbinterface/backend/pkg/database"
	"hbinterface/backend/pkg/jwt"
	"hbinterface/backend/pkg/logger"
	"hbinterface/backend/pkg/redis"

	"github.com/joho/godotenv"
)

func demoBots() []*model.BotRequest {
	return []*model.BotRequest{
		{
			Name:             "Demo Market Maker",
			Strategy:         string(model.StrategyMarketMaking),
			Exchange:         "binance",
			BaseAsset:        "BTC",
			QuoteAsset:       "USDT",
			BidSpread:        "0.2",
			AskSpread:        "0.2",
			OrderSize:        "0.001",
			OrderInterval:    "30",
			MinProfitability: "0.1",
		},
		{
			Name:        "Demo Grid",
			Strategy:    string(model.StrategyGridTrading),
			Exchange:    "binance",
			BaseAsset:   "ETH",
			QuoteAsset:  "USDT",
			UpperPrice:  "4000",
			LowerPrice:  "3000",
			GridLevels:  "10",
			GridSpacing: "2",
			OrderSize:   "0.05",
		},
	}
}

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	seed := config.LoadSeed()

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.GetLogger()

	// Initialize Redis
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

	db, err := database.New(database.Config{DSN: cfg.Database.DSN, LogLevel: cfg.Database.LogLevel}, log)
	if err != nil {
		log.Fatal("Failed to open database", err)
	}
	defer database.Close(db)
	if err := database.Migrate(db, model.AllModels()...); err != nil {
		log.Fatal("Failed to migrate database", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	authService := service.NewAuthService(
		repository.NewUserRepository(db, redisClient),
		jwt.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TokenExpire),
		log,
	)
	admin, err := authService.EnsureAdmin(ctx, seed.AdminEmail, seed.AdminPassword)
	if err != nil {
		log.Fatal("Failed to create admin user", err)
	}
	log.Infof("✓ Admin user ready: %s", admin.Email)

	botService := service.NewBotService(repository.NewBotRepository(db), service.NewNotificationService(redisClient, log), log)
	existing, err := botService.List(ctx, admin.ID)
	if err != nil {
		log.Fatal("Failed to list bots", err)
	}
	names := make(map[string]bool, len(existing))
	for _, b := range existing {
		names[b.Name] = true
	}

	for _, req := range demoBots() {
		if names[req.Name] {
			log.Infof("Bot %q already exists, skipping", req.Name)
			continue
		}
		bot, err := botService.Create(ctx, admin.ID, req)
		if err != nil {
			log.Fatal(fmt.Sprintf("Failed to create bot %q", req.Name), err)
		}
		log.Infof("✓ Created bot %s (%s)", bot.Name, bot.ID)
	}

	fmt.Println("\n=================================")
	fmt.Println("Seed completed")
	fmt.Println("=================================")
	fmt.Printf("Admin:    %s\n", admin.Email)
	fmt.Printf("Password: %s\n", seed.AdminPassword)
	fmt.Println("=================================")
}
