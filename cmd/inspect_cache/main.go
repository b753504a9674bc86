package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"hbinterface/backend/internal/config"
	"hbinterface/backend/pkg/redis"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	groups := []struct {
		name    string
		pattern string
	}{
		{"Tickers", redis.TickerKey("*")},
		{"Order books", redis.OrderBookKey("*")},
		{"Trades", redis.TradesKey("*")},
		{"Order hashes", redis.OrdersKey("*")},
		{"Revoked tokens", redis.TokenBlacklistKey("*")},
	}

	for _, g := range groups {
		keys, err := redisClient.ScanAll(ctx, g.pattern)
		if err != nil {
			log.Fatalf("Failed to scan %s: %v", g.pattern, err)
		}

		fmt.Printf("%s: %d keys (%s)\n", g.name, len(keys), g.pattern)
		for i := 0; i < len(keys) && i < 5; i++ {
			ttl, _ := redisClient.TTL(ctx, keys[i])
			fmt.Printf("  - %s ttl=%s\n", keys[i], ttl)
		}
	}
}
