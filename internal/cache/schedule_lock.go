package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "go-gin-cinema-reservation/pkg/app_errors"
	"go-gin-cinema-reservation/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type ScheduleLock interface {
	// 取得：取得指定日期的排程鎖，成功時回傳釋放函式
	Acquire(ctx context.Context, date string) (release func(), err error)
}

type RedisScheduleLockConfig struct {
	TTL           time.Duration // 鎖的存活時間，持有者異常退出時自動失效
	WaitTimeout   time.Duration // 等待鎖的上限
	RetryInterval time.Duration
}

func defaultScheduleLockConfig() RedisScheduleLockConfig {
	return RedisScheduleLockConfig{
		TTL:           10 * time.Second,
		WaitTimeout:   3 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

type RedisScheduleLockImpl struct {
	client *redis.Client
	cfg    RedisScheduleLockConfig
}

// 只有持有相同 token 的呼叫者可以刪除鎖
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// NewRedisScheduleLock config 可為 nil 或只填部分欄位，其餘使用預設
func NewRedisScheduleLock(client *redis.Client, config *RedisScheduleLockConfig) ScheduleLock {
	cfg := defaultScheduleLockConfig()
	if config != nil {
		if config.TTL > 0 {
			cfg.TTL = config.TTL
		}
		if config.WaitTimeout > 0 {
			cfg.WaitTimeout = config.WaitTimeout
		}
		if config.RetryInterval > 0 {
			cfg.RetryInterval = config.RetryInterval
		}
	}
	return &RedisScheduleLockImpl{
		client: client,
		cfg:    cfg,
	}
}

// 排程鎖 key
func (l *RedisScheduleLockImpl) getLockKey(date string) string {
	return fmt.Sprintf("cinema:schedule:lock:%s", date)
}

func (l *RedisScheduleLockImpl) Acquire(ctx context.Context, date string) (func(), error) {
	key := l.getLockKey(date)
	token := uuid.New().String()

	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(l.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.cfg.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire schedule lock: %w", err)
		}
		if ok {
			return l.releaser(key, token), nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, apperrors.ErrScheduleBusy
		case <-ticker.C:
		}
	}
}

func (l *RedisScheduleLockImpl) releaser(key, token string) func() {
	return func() {
		// 使用 context.Background()，確保請求取消後仍會釋放
		err := releaseScript.Run(context.Background(), l.client, []string{key}, token).Err()
		if err != nil {
			logger.WithComponent("scheduler").Warn("release schedule lock failed", zap.String("key", key), zap.Error(err))
		}
	}
}
