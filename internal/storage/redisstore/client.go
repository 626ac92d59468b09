// Package redisstore backs the profile and transcript collaborators
// with redis. The relay core never touches these; only the HTTP surface
// and clients do.
package redisstore

import (
	"context"
	"fmt"

	"github.com/avelose/scraplink/internal/config"
	"github.com/redis/go-redis/v9"
)

func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}
