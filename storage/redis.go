package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/carepay/onboarding/config"
	"github.com/carepay/onboarding/utils/logger"
)

// RedisClient holds the connection used for session state.
var RedisClient *redis.Client

// InitializeRedis establishes the Redis connection from configuration.
func InitializeRedis() error {
	conf := config.SessionConfig()

	opts, err := redis.ParseURL(conf.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	RedisClient = client
	logger.Infof("Connected to redis at %s", opts.Addr)
	return nil
}

// CloseRedis closes the Redis connection.
func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Errorf("failed to close redis connection: %v", err)
		}
	}
}
