package cache_test

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-gin-cinema-reservation/internal/cache"
	"go-gin-cinema-reservation/internal/testutil"
	apperrors "go-gin-cinema-reservation/pkg/app_errors"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRdb *redis.Client

func TestMain(m *testing.M) {
	rdb, cleanup, err := testutil.SetupRedisOnly(context.Background())
	if err != nil {
		log.Printf("skipping cache tests: %v", err)
		os.Exit(0)
	}
	testRdb = rdb
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func clearRedis(t *testing.T) {
	t.Helper()
	require.NoError(t, testRdb.FlushDB(context.Background()).Err())
}

func TestScheduleLock_AcquireRelease(t *testing.T) {
	clearRedis(t)
	ctx := context.Background()
	lock := cache.NewRedisScheduleLock(testRdb, nil)

	release, err := lock.Acquire(ctx, "2030-01-10")
	require.NoError(t, err)

	exists, err := testRdb.Exists(ctx, "cinema:schedule:lock:2030-01-10").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	release()
	exists, err = testRdb.Exists(ctx, "cinema:schedule:lock:2030-01-10").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)

	// 釋放後可以再次取得
	release, err = lock.Acquire(ctx, "2030-01-10")
	require.NoError(t, err)
	release()
}

func TestScheduleLock_BusyWhileHeld(t *testing.T) {
	clearRedis(t)
	ctx := context.Background()
	lock := cache.NewRedisScheduleLock(testRdb, &cache.RedisScheduleLockConfig{
		TTL:         5 * time.Second,
		WaitTimeout: 200 * time.Millisecond,
	})

	release, err := lock.Acquire(ctx, "2030-01-10")
	require.NoError(t, err)
	defer release()

	_, err = lock.Acquire(ctx, "2030-01-10")
	assert.ErrorIs(t, err, apperrors.ErrScheduleBusy)

	// 不同日期互不影響
	other, err := lock.Acquire(ctx, "2030-01-11")
	require.NoError(t, err)
	other()
}

func TestScheduleLock_WaitsForRelease(t *testing.T) {
	clearRedis(t)
	ctx := context.Background()
	lock := cache.NewRedisScheduleLock(testRdb, &cache.RedisScheduleLockConfig{
		TTL:         5 * time.Second,
		WaitTimeout: 2 * time.Second,
	})

	release, err := lock.Acquire(ctx, "2030-01-10")
	require.NoError(t, err)
	time.AfterFunc(200*time.Millisecond, release)

	start := time.Now()
	second, err := lock.Acquire(ctx, "2030-01-10")
	require.NoError(t, err)
	second()
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

// 鎖過期後被他人取得，原持有者的 release 不可刪除新鎖
func TestScheduleLock_ReleaseAfterExpiryKeepsNewHolder(t *testing.T) {
	clearRedis(t)
	ctx := context.Background()
	lock := cache.NewRedisScheduleLock(testRdb, &cache.RedisScheduleLockConfig{
		TTL:         200 * time.Millisecond,
		WaitTimeout: 2 * time.Second,
	})

	stale, err := lock.Acquire(ctx, "2030-01-10")
	require.NoError(t, err)

	fresh, err := lock.Acquire(ctx, "2030-01-10")
	require.NoError(t, err)
	defer fresh()

	stale()
	exists, err := testRdb.Exists(ctx, "cinema:schedule:lock:2030-01-10").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestScheduleLock_MutualExclusion(t *testing.T) {
	clearRedis(t)
	lock := cache.NewRedisScheduleLock(testRdb, &cache.RedisScheduleLockConfig{
		TTL:         5 * time.Second,
		WaitTimeout: 5 * time.Second,
	})

	var (
		wg      sync.WaitGroup
		holders int32
		maxSeen int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := lock.Acquire(context.Background(), "2030-01-10")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&holders, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&holders, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
}

func TestScheduleLock_ContextCancelled(t *testing.T) {
	clearRedis(t)
	lock := cache.NewRedisScheduleLock(testRdb, &cache.RedisScheduleLockConfig{
		TTL:         5 * time.Second,
		WaitTimeout: 2 * time.Second,
	})
	release, err := lock.Acquire(context.Background(), "2030-01-10")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = lock.Acquire(ctx, "2030-01-10")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
