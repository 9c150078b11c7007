// Package testutil 以 testcontainers 啟動 PostgreSQL 與 Redis，供整合測試共用
package testutil

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"time"

	"go-gin-cinema-reservation/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	dbName         = "cinema_test"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
)

// MigrationsURL 指向專案根目錄的 migrations/
func MigrationsURL() string {
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "..", "..")
	return "file://" + filepath.ToSlash(filepath.Join(root, "migrations"))
}

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	container, err := postgres.Run(ctx, dbImageName,
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start DB container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable", "timezone=UTC")
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, "", fmt.Errorf("failed to get connection string: %w", err)
	}

	if err := database.RunMigrations(dsn, MigrationsURL()); err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, "", err
	}
	return container, dsn, nil
}

func startRedis(ctx context.Context) (*tcredis.RedisContainer, string, error) {
	container, err := tcredis.Run(ctx, cacheImageName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start cache container: %w", err)
	}
	addr, err := container.Endpoint(ctx, "")
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, "", fmt.Errorf("failed to get cache endpoint: %w", err)
	}
	return container, addr, nil
}

// Setup 啟動 PostgreSQL（已套用 migrations）與 Redis
func Setup(ctx context.Context) (*pgxpool.Pool, *redis.Client, func(), error) {
	pgContainer, dsn, err := startPostgres(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	pool, err := database.InitDatabaseWithDSN(dsn)
	if err != nil {
		_ = testcontainers.TerminateContainer(pgContainer)
		return nil, nil, nil, fmt.Errorf("failed to initialize test database: %w", err)
	}
	log.Println("Test database connected successfully")

	rdb, redisCleanup, err := SetupRedisOnly(ctx)
	if err != nil {
		pool.Close()
		_ = testcontainers.TerminateContainer(pgContainer)
		return nil, nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		redisCleanup()
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
	return pool, rdb, cleanup, nil
}

// SetupRedisOnly 僅啟動 Redis，用於只依賴 Redis 的測試（如 queue、排程鎖）
func SetupRedisOnly(ctx context.Context) (*redis.Client, func(), error) {
	container, addr, err := startRedis(ctx)
	if err != nil {
		return nil, nil, err
	}
	rdb, err := database.InitRedisWithAddr(addr, "", 0)
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	log.Println("Test redis connected successfully")

	cleanup := func() {
		_ = rdb.Close()
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
	return rdb, cleanup, nil
}

// ResetDatabase 清空所有資料表並重設序號
func ResetDatabase(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		TRUNCATE reservation_events, reservations, showtimes, movies RESTART IDENTITY CASCADE
	`)
	return err
}
