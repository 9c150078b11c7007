package worker

import (
	"context"
	"time"

	"go-gin-cinema-reservation/pkg/logger"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StaleReservationExpirer 由 ReservationService 實作
type StaleReservationExpirer interface {
	ExpireStaleReservations(ctx context.Context, olderThan time.Time) (int, error)
}

// HoldSweeper 定期釋放超過 holdTTL 仍未付款的訂位
type HoldSweeper struct {
	expirer   StaleReservationExpirer
	holdTTL   time.Duration
	interval  time.Duration
	scheduler gocron.Scheduler
	now       func() time.Time
}

func NewHoldSweeper(expirer StaleReservationExpirer, holdTTL, interval time.Duration) *HoldSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &HoldSweeper{
		expirer:  expirer,
		holdTTL:  holdTTL,
		interval: interval,
		now:      time.Now,
	}
}

// Start holdTTL <= 0 時不啟用；ctx 為每次掃描使用的父 context
func (s *HoldSweeper) Start(ctx context.Context) error {
	log := logger.WithComponent("worker")
	if s.holdTTL <= 0 {
		log.Info("hold sweeper disabled")
		return nil
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.Sweep(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return err
	}

	s.scheduler = scheduler
	scheduler.Start()
	log.Info("hold sweeper started", zap.Duration("hold_ttl", s.holdTTL), zap.Duration("interval", s.interval))
	return nil
}

// Sweep 執行一次掃描
func (s *HoldSweeper) Sweep(ctx context.Context) int {
	log := logger.WithComponent("worker")
	cutoff := s.now().UTC().Add(-s.holdTTL)
	released, err := s.expirer.ExpireStaleReservations(ctx, cutoff)
	if err != nil {
		log.Error("hold sweep failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return released
	}
	if released > 0 {
		log.Info("released stale reservations", zap.Int("released", released), zap.Time("cutoff", cutoff))
	}
	return released
}

func (s *HoldSweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}
