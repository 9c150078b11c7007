package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-gin-cinema-reservation/config"
	"go-gin-cinema-reservation/internal/cache"
	"go-gin-cinema-reservation/internal/database"
	"go-gin-cinema-reservation/internal/handler"
	"go-gin-cinema-reservation/internal/middleware"
	"go-gin-cinema-reservation/internal/queue"
	"go-gin-cinema-reservation/internal/repository"
	"go-gin-cinema-reservation/internal/service"
	"go-gin-cinema-reservation/internal/worker"
	"go-gin-cinema-reservation/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	log := logger.WithComponent("server")

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer rdb.Close()

	eventQueue, err := newEventQueue(cfg.Queue, rdb)
	if err != nil {
		log.Fatal("Failed to initialize event queue", zap.String("driver", cfg.Queue.Driver), zap.Error(err))
	}
	if closer, ok := eventQueue.(io.Closer); ok {
		defer closer.Close()
	}

	// repositories
	movieRepo := repository.NewMovieRepository(pool)
	showtimeRepo := repository.NewShowtimeRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)
	eventRepo := repository.NewReservationEventRepository(pool)

	scheduleLock := cache.NewRedisScheduleLock(rdb, &cache.RedisScheduleLockConfig{
		TTL:         cfg.Schedule.LockTTL,
		WaitTimeout: cfg.Schedule.LockWait,
	})

	// services
	movieService := service.NewMovieService(movieRepo, showtimeRepo)
	showtimeService := service.NewShowtimeService(pool, showtimeRepo, movieRepo, scheduleLock, cfg.Seating)
	reservationService := service.NewReservationService(pool, reservationRepo, showtimeRepo, eventRepo, eventQueue, cfg.Reservation.RetryBudget)

	// background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	eventWorker := worker.NewEventWorker(eventRepo, eventQueue)
	if err := eventWorker.Start(workerCtx); err != nil {
		log.Fatal("Failed to start event worker", zap.Error(err))
	}

	sweeper := worker.NewHoldSweeper(reservationService, cfg.Reservation.HoldTTL, cfg.Reservation.SweepInterval)
	if err := sweeper.Start(workerCtx); err != nil {
		log.Fatal("Failed to start hold sweeper", zap.Error(err))
	}

	// router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	auth := middleware.Auth(cfg.Auth.JWTSecret)
	handler.NewMovieHandler(movieService).RegisterRoutes(router, auth)
	handler.NewShowtimeHandler(showtimeService).RegisterRoutes(router, auth)
	handler.NewReservationHandler(reservationService).RegisterRoutes(router, auth)
	handler.NewAdminReservationHandler(reservationService).RegisterRoutes(router, auth)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit
		log.Info("shutting down server", zap.String("signal", s.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(ctx)
	}()

	log.Info("server listening", zap.String("addr", srv.Addr), zap.String("queue_driver", cfg.Queue.Driver))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}

	if err := <-shutdownErr; err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	// HTTP 停止後再停背景工作，確保最後的事件仍能寫入
	if err := sweeper.Stop(); err != nil {
		log.Warn("stop hold sweeper", zap.Error(err))
	}
	stopWorkers()
	select {
	case <-eventWorker.Done():
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn("event worker did not stop in time")
	}
	log.Info("server stopped")
}

// newEventQueue 依設定選擇事件隊列實作
func newEventQueue(cfg config.QueueConfig, rdb *redis.Client) (queue.ReservationEventQueue, error) {
	switch cfg.Driver {
	case config.QueueDriverMemory, "":
		return queue.NewMemoryEventQueue(cfg.BufferSize), nil
	case config.QueueDriverRedis:
		hostname, _ := os.Hostname()
		return queue.NewRedisStreamEventQueue(rdb, hostname, nil)
	case config.QueueDriverRabbitMQ:
		return queue.NewRabbitMQEventQueue(cfg.RabbitMQURL, cfg.RabbitMQQueue)
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}
