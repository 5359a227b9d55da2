package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultChannelID prefills the channel form of a new session
const DefaultChannelID = "631ef8e42182a182d5e42e8fde2bb2a3f9bdb40d2124fbc64784e423b36d08c0"

type Config struct {
	// Server
	Port     string
	LogLevel string

	// Shopify
	ShopifyAPIKey     string
	ShopifyAPISecret  string
	ShopifyAPIVersion string

	// Logistics partner
	PartnerBaseURL   string
	PartnerTimeout   time.Duration
	DefaultChannelID string

	// Sessions
	SessionIdleTTL time.Duration

	// Optional stores
	RedisURL      string
	MongoURI      string
	MongoDatabase string

	AllowedOrigins []string
	ShopifyTimeout time.Duration
}

// Load reads .env when present and then the environment
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	partnerTimeout, err := getEnvAsDuration("PARTNER_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	shopifyTimeout, err := getEnvAsDuration("SHOPIFY_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	idleTTL, err := getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ShopifyAPIKey:     getEnv("SHOPIFY_API_KEY", ""),
		ShopifyAPISecret:  getEnv("SHOPIFY_API_SECRET", ""),
		ShopifyAPIVersion: getEnv("SHOPIFY_API_VERSION", "2024-10"),
		PartnerBaseURL:    getEnv("PARTNER_BASE_URL", "https://connect.gaintlogistic.com"),
		PartnerTimeout:    partnerTimeout,
		DefaultChannelID:  getEnv("DEFAULT_CHANNEL_ID", DefaultChannelID),
		SessionIdleTTL:    idleTTL,
		RedisURL:          getEnv("REDIS_URL", ""),
		MongoURI:          getEnv("MONGODB_URI", ""),
		MongoDatabase:     getEnv("MONGODB_DATABASE", "gaint_connector"),
		AllowedOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ShopifyTimeout:    shopifyTimeout,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
