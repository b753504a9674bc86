package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	Gateway    GatewayConfig
	Market     MarketConfig
	WebSocket  WebSocketConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host string
	Port string
	Env  string
}

// DatabaseConfig holds the relational store configuration
type DatabaseConfig struct {
	DSN      string
	LogLevel string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret      string
	TokenExpire time.Duration
}

// EncryptionConfig holds encryption configuration for exchange secrets
type EncryptionConfig struct {
	Key string
}

// GatewayConfig holds trading engine gateway configuration.
// Enabled controls whether the API server bridges bot start/stop to the engine.
type GatewayConfig struct {
	Enabled           bool
	APIURL            string
	WSURL             string
	APIKey            string
	Timeout           time.Duration
	ReconnectDelay    time.Duration
	RequestsPerSecond int
}

// MarketConfig holds market data cache configuration
type MarketConfig struct {
	TickerTTL    time.Duration
	OrderBookTTL time.Duration
	TradesTTL    time.Duration
	PushInterval time.Duration
}

// WebSocketConfig holds WebSocket server configuration
type WebSocketConfig struct {
	HeartbeatInterval time.Duration
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute     int
	AuthRequestsPerMinute int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "3001"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DATABASE_DSN", "hbinterface.db"),
			LogLevel: getEnv("DATABASE_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			TokenExpire: time.Duration(getEnvAsInt("JWT_EXPIRE_HOURS", 24)) * time.Hour,
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Gateway: loadGateway(),
		Market: MarketConfig{
			TickerTTL:    getEnvAsDuration("MARKET_TICKER_TTL", 5*time.Second),
			OrderBookTTL: getEnvAsDuration("MARKET_ORDERBOOK_TTL", 2*time.Second),
			TradesTTL:    getEnvAsDuration("MARKET_TRADES_TTL", 5*time.Second),
			PushInterval: getEnvAsDuration("MARKET_PUSH_INTERVAL", 5*time.Second),
		},
		WebSocket: WebSocketConfig{
			HeartbeatInterval: getEnvAsDuration("WS_HEARTBEAT_INTERVAL", 30*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}, ","),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute:     getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 120),
			AuthRequestsPerMinute: getEnvAsInt("RATE_LIMIT_AUTH_REQUESTS_PER_MINUTE", 10),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required fields
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.Encryption.Key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}

	if len(cfg.Encryption.Key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes")
	}

	return cfg, nil
}

// LoadGateway reads only the gateway settings, for the console binary
func LoadGateway() GatewayConfig {
	return loadGateway()
}

// SeedConfig holds the admin account created by cmd/seed
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

// LoadSeed reads the seed settings
func LoadSeed() SeedConfig {
	return SeedConfig{
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@hbinterface.local"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "change-me-now"),
	}
}

func loadGateway() GatewayConfig {
	return GatewayConfig{
		Enabled:           getEnvAsBool("GATEWAY_ENABLED", false),
		APIURL:            getEnv("GATEWAY_API_URL", "http://localhost:3000"),
		WSURL:             getEnv("GATEWAY_WS_URL", "ws://localhost:3000"),
		APIKey:            getEnv("GATEWAY_API_KEY", ""),
		Timeout:           getEnvAsDuration("GATEWAY_TIMEOUT", 15*time.Second),
		ReconnectDelay:    getEnvAsDuration("GATEWAY_RECONNECT_DELAY", 5*time.Second),
		RequestsPerSecond: getEnvAsInt("GATEWAY_REQUESTS_PER_SECOND", 10),
	}
}

// Address returns the full server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Address returns the full Redis address
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if running in development mode
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("5s") or plain milliseconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string, separator string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, separator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
