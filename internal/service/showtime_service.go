package service

import (
	"context"
	"fmt"
	"time"

	"go-gin-cinema-reservation/config"
	"go-gin-cinema-reservation/internal/cache"
	"go-gin-cinema-reservation/internal/inventory"
	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/internal/repository"
	"go-gin-cinema-reservation/internal/schedule"
	apperrors "go-gin-cinema-reservation/pkg/app_errors"
	"go-gin-cinema-reservation/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ShowtimeService interface {
	// CreateShowtime 檢查同日衝突後建立場次並產生座位
	CreateShowtime(ctx context.Context, req model.CreateShowtimeRequest) (*model.Showtime, error)
	// UpdateShowtime 直接修改日期或開始時間，結束時間依片長重算，不重新檢查衝突
	UpdateShowtime(ctx context.Context, id int, params model.UpdateShowtimeParams) (*model.Showtime, error)
	// DeleteShowtime 不處理既有訂位
	DeleteShowtime(ctx context.Context, id int) error
	GetShowtime(ctx context.Context, id int) (*model.Showtime, error)
	ListShowtimes(ctx context.Context, filter model.ShowtimeFilter) ([]*model.Showtime, error)
	GetSeatMap(ctx context.Context, id int) (inventory.SeatMap, error)
}

type ShowtimeServiceImpl struct {
	pool         *pgxpool.Pool
	repo         repository.ShowtimeRepository
	movieRepo    repository.MovieRepository
	scheduleLock cache.ScheduleLock
	seating      config.SeatingConfig
	now          func() time.Time
}

func NewShowtimeService(
	pool *pgxpool.Pool,
	showtimeRepository repository.ShowtimeRepository,
	movieRepository repository.MovieRepository,
	scheduleLock cache.ScheduleLock,
	seating config.SeatingConfig,
) ShowtimeService {
	return &ShowtimeServiceImpl{
		pool:         pool,
		repo:         showtimeRepository,
		movieRepo:    movieRepository,
		scheduleLock: scheduleLock,
		seating:      seating,
		now:          time.Now,
	}
}

func (s *ShowtimeServiceImpl) layoutFor(req model.CreateShowtimeRequest) model.SeatLayout {
	layout := model.SeatLayout{Rows: req.Rows, SeatsPerRow: req.SeatsPerRow}
	if layout.Rows == 0 {
		layout.Rows = s.seating.DefaultRows
	}
	if layout.SeatsPerRow == 0 {
		layout.SeatsPerRow = s.seating.DefaultSeatsPerRow
	}
	return layout
}

// validateDate 格式正確且不早於今天（UTC）
func (s *ShowtimeServiceImpl) validateDate(date string) error {
	d, err := schedule.ParseDate(date)
	if err != nil {
		return err
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if d.Before(today) {
		return fmt.Errorf("%w: date %s is in the past", apperrors.ErrInvalidInput, date)
	}
	return nil
}

func (s *ShowtimeServiceImpl) CreateShowtime(ctx context.Context, req model.CreateShowtimeRequest) (*model.Showtime, error) {
	log := logger.WithComponent("service").With(zap.String("operation", "CreateShowtime"))

	// 1. 驗證輸入
	if req.MovieID <= 0 {
		return nil, fmt.Errorf("%w: movie id is required", apperrors.ErrInvalidInput)
	}
	if err := s.validateDate(req.Date); err != nil {
		return nil, err
	}
	layout := s.layoutFor(req)
	showtime := &model.Showtime{}
	if err := inventory.InitSeats(showtime, layout); err != nil {
		return nil, err
	}

	// 2. 片長決定結束時間
	movie, err := s.movieRepo.FindByID(ctx, req.MovieID)
	if err != nil {
		return nil, err
	}
	window, err := schedule.NewWindow(req.StartTime, movie.Duration)
	if err != nil {
		return nil, err
	}

	showtime.MovieID = movie.ID
	showtime.MovieTitle = movie.Title
	showtime.Date = req.Date
	showtime.StartTime = window.Start.String()
	showtime.EndTime = window.End.String()

	// 3. 同一日期的「檢查衝突 + 寫入」必須序列化
	release, err := s.scheduleLock.Acquire(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	defer release()

	var created *model.Showtime
	err = repository.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		sameDate, err := s.repo.ListByDate(ctx, tx, req.Date)
		if err != nil {
			return err
		}
		conflict, err := schedule.FindConflict(window, sameDate)
		if err != nil {
			return err
		}
		if conflict != nil {
			return schedule.ConflictErrorFor(conflict)
		}
		created, err = s.repo.Create(ctx, tx, showtime)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("showtime created",
		zap.Int("showtime_id", created.ID),
		zap.String("date", created.Date),
		zap.String("start_time", created.StartTime),
		zap.String("end_time", created.EndTime),
		zap.Int("total_seats", created.TotalSeats),
	)
	return created, nil
}

func (s *ShowtimeServiceImpl) UpdateShowtime(ctx context.Context, id int, params model.UpdateShowtimeParams) (*model.Showtime, error) {
	if params.Date == nil && params.StartTime == nil {
		return nil, fmt.Errorf("%w: date or start_time is required", apperrors.ErrInvalidInput)
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	date := current.Date
	if params.Date != nil {
		if err := s.validateDate(*params.Date); err != nil {
			return nil, err
		}
		date = *params.Date
	}
	startTime := current.StartTime
	if params.StartTime != nil {
		startTime = *params.StartTime
	}

	movie, err := s.movieRepo.FindByID(ctx, current.MovieID)
	if err != nil {
		return nil, err
	}
	window, err := schedule.NewWindow(startTime, movie.Duration)
	if err != nil {
		return nil, err
	}

	return s.repo.UpdateSchedule(ctx, id, date, window.Start.String(), window.End.String())
}

func (s *ShowtimeServiceImpl) DeleteShowtime(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *ShowtimeServiceImpl) GetShowtime(ctx context.Context, id int) (*model.Showtime, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ShowtimeServiceImpl) ListShowtimes(ctx context.Context, filter model.ShowtimeFilter) ([]*model.Showtime, error) {
	return s.repo.List(ctx, filter)
}

func (s *ShowtimeServiceImpl) GetSeatMap(ctx context.Context, id int) (inventory.SeatMap, error) {
	st, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return inventory.BuildSeatMap(st), nil
}
