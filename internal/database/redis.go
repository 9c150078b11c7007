package database

import (
	"context"
	"fmt"
	"go-gin-cinema-reservation/config"

	"github.com/redis/go-redis/v9"
)

func InitRedis(config *config.RedisConfig) (*redis.Client, error) {
	return InitRedisWithAddr(fmt.Sprintf("%s:%s", config.Host, config.Port), config.Password, config.DB)
}

func InitRedisWithAddr(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	err := rdb.Ping(ctx).Err()
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}
