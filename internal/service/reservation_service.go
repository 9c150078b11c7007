package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-gin-cinema-reservation/internal/inventory"
	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/internal/queue"
	"go-gin-cinema-reservation/internal/repository"
	apperrors "go-gin-cinema-reservation/pkg/app_errors"
	"go-gin-cinema-reservation/pkg/logger"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	DefaultRetryBudget = 5 * time.Second
	publishTimeout     = 2 * time.Second
	staleBatchSize     = 100

	retryInitialInterval = 2 * time.Millisecond
	retryMaxInterval     = 50 * time.Millisecond
)

type ReservationService interface {
	// 建立訂位：座位 available → reserved
	CreateReservation(ctx context.Context, userID int, req model.CreateReservationRequest) (*model.Reservation, error)
	// 使用者取消，只允許尚未付款的訂位
	CancelReservation(ctx context.Context, id int, userID int) error
	// 付款：座位 reserved → booked
	PayReservation(ctx context.Context, id int, userID int) (*model.Reservation, error)
	// 管理端取消，已付款的訂位會扣回營收
	AdminCancelReservation(ctx context.Context, id int) error
	ListUserReservations(ctx context.Context, userID int) ([]*model.Reservation, error)
	ListReservations(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, error)
	GetReservation(ctx context.Context, id int) (*model.Reservation, error)
	ListReservationEvents(ctx context.Context, reservationID int) ([]*model.ReservationEvent, error)
	// 釋放 olderThan 之前建立且未付款的訂位，回傳釋放數量
	ExpireStaleReservations(ctx context.Context, olderThan time.Time) (int, error)
}

type ReservationServiceImpl struct {
	pool            *pgxpool.Pool
	repository      repository.ReservationRepository
	showtimeRepo    repository.ShowtimeRepository
	eventRepository repository.ReservationEventRepository
	eventQueue      queue.ReservationEventQueue
	retryBudget     time.Duration
	now             func() time.Time
}

func NewReservationService(
	pool *pgxpool.Pool,
	reservationRepository repository.ReservationRepository,
	showtimeRepository repository.ShowtimeRepository,
	eventRepository repository.ReservationEventRepository,
	eventQueue queue.ReservationEventQueue,
	retryBudget time.Duration,
) ReservationService {
	if retryBudget <= 0 {
		retryBudget = DefaultRetryBudget
	}
	return &ReservationServiceImpl{
		pool:            pool,
		repository:      reservationRepository,
		showtimeRepo:    showtimeRepository,
		eventRepository: eventRepository,
		eventQueue:      eventQueue,
		retryBudget:     retryBudget,
		now:             time.Now,
	}
}

// mutateShowtime 讀取場次 → apply 轉換 → 驗證計數器 → 同一交易內 CAS 寫回並執行 persist。
// 版本衝突時丟棄本次結果，隨機退避後重新讀取，直到 retryBudget 或 ctx 結束；其餘錯誤直接回傳。
func (s *ReservationServiceImpl) mutateShowtime(
	ctx context.Context,
	showtimeID int,
	apply func(st *model.Showtime) error,
	persist func(tx pgx.Tx, st *model.Showtime) error,
) error {
	log := logger.WithComponent("service").With(zap.Int("showtime_id", showtimeID))

	attempts := 0
	attempt := func() (struct{}, error) {
		attempts++
		st, err := s.showtimeRepo.FindByID(ctx, showtimeID)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if err := apply(st); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if err := inventory.Verify(st); err != nil {
			log.Error("refusing to persist inconsistent showtime", zap.Error(err))
			return struct{}{}, backoff.Permanent(err)
		}

		err = repository.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			if err := s.showtimeRepo.CompareAndSwap(ctx, tx, st); err != nil {
				return err
			}
			return persist(tx, st)
		})
		if err != nil && !errors.Is(err, apperrors.ErrShowtimeVersionConflict) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(newRetryBackOff()),
		backoff.WithMaxElapsedTime(s.retryBudget),
		backoff.WithNotify(func(_ error, next time.Duration) {
			log.Debug("version conflict, retrying", zap.Int("attempt", attempts), zap.Duration("backoff", next))
		}),
	)
	if errors.Is(err, apperrors.ErrShowtimeVersionConflict) {
		log.Warn("giving up after repeated version conflicts",
			zap.Int("attempts", attempts),
			zap.Duration("budget", s.retryBudget),
		)
		return apperrors.ErrConcurrentUpdate
	}
	return err
}

// newRetryBackOff 每次呼叫建立新的退避狀態，間隔帶 ±50% 抖動
func newRetryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.Multiplier = 1.5
	b.RandomizationFactor = 0.5
	return b
}

func (s *ReservationServiceImpl) CreateReservation(ctx context.Context, userID int, req model.CreateReservationRequest) (*model.Reservation, error) {
	if userID <= 0 || req.ShowtimeID <= 0 {
		return nil, fmt.Errorf("%w: user and showtime are required", apperrors.ErrInvalidInput)
	}
	if !inventory.IsValidSeatNumber(req.SeatNumber) {
		return nil, fmt.Errorf("%w: malformed seat number %q", apperrors.ErrInvalidInput, req.SeatNumber)
	}

	var created *model.Reservation
	err := s.mutateShowtime(ctx, req.ShowtimeID,
		func(st *model.Showtime) error {
			_, err := inventory.Reserve(st, req.SeatNumber, userID, s.now().UTC())
			return err
		},
		func(tx pgx.Tx, st *model.Showtime) error {
			seat := st.Seats[st.SeatIndex(req.SeatNumber)]
			var err error
			created, err = s.repository.Create(ctx, tx, &model.Reservation{
				UserID:     userID,
				ShowtimeID: st.ID,
				SeatNumber: seat.SeatNumber,
				Price:      seat.Price,
				Status:     model.ReservationStatusReserved,
			})
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.ReservationEventReserved, created)
	return created, nil
}

func (s *ReservationServiceImpl) CancelReservation(ctx context.Context, id int, userID int) error {
	reservation, err := s.repository.FindByIDForUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if reservation.Status != model.ReservationStatusReserved {
		return fmt.Errorf("%w: %s reservation cannot be cancelled", apperrors.ErrInvalidReservationState, reservation.Status)
	}

	if err := s.releaseReservation(ctx, reservation); err != nil {
		return err
	}
	s.publish(ctx, model.ReservationEventCancelled, reservation)
	return nil
}

func (s *ReservationServiceImpl) PayReservation(ctx context.Context, id int, userID int) (*model.Reservation, error) {
	reservation, err := s.repository.FindByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !reservation.Status.CanTransitionTo(model.ReservationStatusBooked) {
		return nil, fmt.Errorf("%w: %s reservation cannot be paid", apperrors.ErrInvalidReservationState, reservation.Status)
	}

	var booked *model.Reservation
	err = s.mutateShowtime(ctx, reservation.ShowtimeID,
		func(st *model.Showtime) error {
			idx := st.SeatIndex(reservation.SeatNumber)
			if idx >= 0 {
				holder := st.Seats[idx].ReservedBy
				if holder == nil || *holder != reservation.UserID {
					return fmt.Errorf("%w: seat %s is not held by this reservation", apperrors.ErrInvalidReservationState, reservation.SeatNumber)
				}
			}
			_, err := inventory.Book(st, reservation.SeatNumber)
			return err
		},
		func(tx pgx.Tx, _ *model.Showtime) error {
			var err error
			booked, err = s.repository.MarkBooked(ctx, tx, reservation.ID, s.now().UTC())
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.ReservationEventBooked, booked)
	return booked, nil
}

func (s *ReservationServiceImpl) AdminCancelReservation(ctx context.Context, id int) error {
	reservation, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.adminCancel(ctx, reservation)
}

// adminCancel 依讀到的狀態選擇 Release 或 Revoke。
// 若狀態在讀取後被改變（例如使用者剛好付款），重新讀取一次並依新狀態處理。
func (s *ReservationServiceImpl) adminCancel(ctx context.Context, reservation *model.Reservation) error {
	err := s.releaseReservation(ctx, reservation)
	if isStaleStatus(err) {
		fresh, findErr := s.repository.FindByID(ctx, reservation.ID)
		if findErr != nil {
			return findErr
		}
		if fresh.Status == reservation.Status {
			return err
		}
		logger.WithComponent("service").Info("reservation changed during admin cancel, retrying with fresh status",
			zap.Int("reservation_id", reservation.ID),
			zap.String("read_status", string(reservation.Status)),
			zap.String("fresh_status", string(fresh.Status)),
		)
		reservation = fresh
		err = s.releaseReservation(ctx, reservation)
	}
	if err != nil {
		return err
	}

	eventType := model.ReservationEventCancelled
	if reservation.Status == model.ReservationStatusBooked {
		eventType = model.ReservationEventRevoked
	}
	s.publish(ctx, eventType, reservation)
	return nil
}

// isStaleStatus 座位或訂位的狀態與讀到的不一致
func isStaleStatus(err error) bool {
	return errors.Is(err, apperrors.ErrSeatNotReserved) ||
		errors.Is(err, apperrors.ErrSeatNotBooked) ||
		errors.Is(err, apperrors.ErrInvalidReservationState)
}

// releaseReservation 依訂位目前狀態釋放座位並刪除訂位；刪除以讀到的狀態為條件。
// 場次已不存在時只刪除訂位。
func (s *ReservationServiceImpl) releaseReservation(ctx context.Context, reservation *model.Reservation) error {
	var transition func(st *model.Showtime, seatNumber string) (model.Seat, error)
	switch reservation.Status {
	case model.ReservationStatusReserved:
		transition = inventory.Release
	case model.ReservationStatusBooked:
		transition = inventory.Revoke
	default:
		return fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidReservationState, reservation.Status)
	}

	deleteReservation := func(tx pgx.Tx, _ *model.Showtime) error {
		return s.repository.DeleteWithStatus(ctx, tx, reservation.ID, reservation.Status)
	}

	err := s.mutateShowtime(ctx, reservation.ShowtimeID,
		func(st *model.Showtime) error {
			_, err := transition(st, reservation.SeatNumber)
			return err
		},
		deleteReservation,
	)
	if errors.Is(err, apperrors.ErrShowtimeNotFound) {
		logger.WithComponent("service").Info("showtime gone, deleting reservation only",
			zap.Int("reservation_id", reservation.ID),
			zap.Int("showtime_id", reservation.ShowtimeID),
		)
		return repository.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			return deleteReservation(tx, nil)
		})
	}
	return err
}

func (s *ReservationServiceImpl) ListUserReservations(ctx context.Context, userID int) ([]*model.Reservation, error) {
	return s.repository.ListByUser(ctx, userID)
}

func (s *ReservationServiceImpl) ListReservations(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, filter.Status)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: end date before start date", apperrors.ErrInvalidInput)
	}
	return s.repository.List(ctx, filter)
}

func (s *ReservationServiceImpl) GetReservation(ctx context.Context, id int) (*model.Reservation, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *ReservationServiceImpl) ListReservationEvents(ctx context.Context, reservationID int) ([]*model.ReservationEvent, error) {
	return s.eventRepository.ListByReservation(ctx, reservationID)
}

func (s *ReservationServiceImpl) ExpireStaleReservations(ctx context.Context, olderThan time.Time) (int, error) {
	log := logger.WithComponent("service").With(zap.String("operation", "ExpireStaleReservations"))

	stale, err := s.repository.ListStale(ctx, olderThan, staleBatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, reservation := range stale {
		if err := ctx.Err(); err != nil {
			return released, err
		}
		err := s.releaseReservation(ctx, reservation)
		switch {
		case err == nil:
			released++
			s.publish(ctx, model.ReservationEventExpired, reservation)
		case errors.Is(err, apperrors.ErrInvalidReservationState), errors.Is(err, apperrors.ErrSeatNotReserved):
			// 讀取後已被付款或取消
			log.Debug("reservation changed before expiry", zap.Int("reservation_id", reservation.ID), zap.Error(err))
		default:
			log.Warn("failed to expire reservation", zap.Int("reservation_id", reservation.ID), zap.Error(err))
		}
	}
	return released, nil
}

// publish 在提交後發送事件；失敗只記錄，不影響已提交的結果
func (s *ReservationServiceImpl) publish(ctx context.Context, eventType model.ReservationEventType, reservation *model.Reservation) {
	if s.eventQueue == nil {
		return
	}
	event := &model.ReservationEvent{
		ID:            uuid.New(),
		Type:          eventType,
		ReservationID: reservation.ID,
		ShowtimeID:    reservation.ShowtimeID,
		SeatNumber:    reservation.SeatNumber,
		UserID:        reservation.UserID,
		Price:         reservation.Price,
		OccurredAt:    s.now().UTC(),
	}

	// 請求結束不應中斷已提交操作的事件
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.eventQueue.Publish(pubCtx, event); err != nil {
		logger.WithComponent("service").Warn("failed to publish reservation event",
			zap.String("event_type", string(eventType)),
			zap.Int("reservation_id", reservation.ID),
			zap.Error(err),
		)
	}
}
