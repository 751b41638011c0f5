package redisdb

import (
	"github.com/redis/go-redis/v9"

	"eventchat/internal/config"
)

// NewClient builds the shared redis client used for session tokens and the
// online-user count.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
