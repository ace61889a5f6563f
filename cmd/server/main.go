package main

import (
	"context"
	"os"
	"time"

	"anoa.com/socialfeed/internal/bootstrap"
	"anoa.com/socialfeed/internal/config"
	"anoa.com/socialfeed/internal/server"
	"anoa.com/socialfeed/pkg/database"
	"anoa.com/socialfeed/pkg/events"
	"anoa.com/socialfeed/pkg/logger"
	"anoa.com/socialfeed/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.AppEnv)
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	if err := bootstrap.Migrate(db); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	if cfg.IsDevelopment() {
		if err := bootstrap.SeedDevelopmentUsers(db); err != nil {
			log.Error("failed to seed users", "error", err)
			os.Exit(1)
		}
	}

	// Redis backs rate limiting and notification pub/sub. Without it both
	// degrade: writes are not throttled and nothing is pushed.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis not reachable, continuing", "error", err)
		}
		cancel()
		defer redisClient.Close()
	} else {
		log.Warn("REDIS_URL not set, rate limiting disabled")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.NatsURL != "" {
		p, err := events.NewNatsPublisher(events.Config{
			URL:           cfg.NatsURL,
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		})
		if err != nil {
			log.Warn("nats unavailable, engagement events disabled", "error", err)
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	mediaStorage, err := storage.NewCloudinaryStorage(cfg.CloudinaryUploadFolder)
	if err != nil {
		log.Warn("media storage unavailable, uploads disabled", "error", err)
	}

	srv := server.NewServer(cfg, server.Dependencies{
		DB:           db,
		Redis:        redisClient,
		MediaStorage: mediaStorage,
		Publisher:    publisher,
	})

	log.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
