package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultFeedPageSize = 15
	minFeedPageSize     = 5
	maxFeedPageSize     = 50
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string
	NatsURL     string

	JWTSecret   string
	JWTLifetime time.Duration

	CloudinaryUploadFolder string

	FeedPageSize int

	RateLimitGlobal time.Duration
	RateLimitPost   time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		NatsURL:     os.Getenv("NATS_URL"),

		JWTSecret: getEnv("JWT_SECRET", "12345"),

		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "socialfeed"),
	}

	var err error
	cfg.FeedPageSize, err = strconv.Atoi(getEnv("FEED_PAGE_SIZE", strconv.Itoa(defaultFeedPageSize)))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_PAGE_SIZE: %w", err)
	}
	cfg.FeedPageSize = clamp(cfg.FeedPageSize, minFeedPageSize, maxFeedPageSize)

	cfg.JWTLifetime, err = time.ParseDuration(getEnv("JWT_LIFETIME", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_LIFETIME: %w", err)
	}
	cfg.RateLimitGlobal, err = time.ParseDuration(getEnv("RATE_LIMIT_GLOBAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_GLOBAL: %w", err)
	}
	cfg.RateLimitPost, err = time.ParseDuration(getEnv("RATE_LIMIT_POST", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_POST: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
