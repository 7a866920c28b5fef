package queue

import (
	"context"
	"fmt"
	"time"

	"trackmeet/internal/platform/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ConnectRedis returns nil when REDIS_ADDR is unset; callers fall back to
// running without the events cache and the results queue.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set, events cache and results queue disabled")
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("Successfully connected to Redis")
	return rdb, nil
}
