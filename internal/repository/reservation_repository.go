package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-gin-cinema-reservation/internal/model"
	apperrors "go-gin-cinema-reservation/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationRepository interface {
	FindByID(ctx context.Context, id int) (*model.Reservation, error)
	// FindByIDForUser 不屬於該使用者時同樣回傳 ErrReservationNotFound
	FindByIDForUser(ctx context.Context, id int, userID int) (*model.Reservation, error)
	ListByUser(ctx context.Context, userID int) ([]*model.Reservation, error)
	List(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, error)
	ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Reservation, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, reservation *model.Reservation) (*model.Reservation, error)
	MarkBooked(ctx context.Context, tx pgx.Tx, id int, paidAt time.Time) (*model.Reservation, error)
	DeleteWithStatus(ctx context.Context, tx pgx.Tx, id int, status model.ReservationStatus) error
}

type ReservationRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &ReservationRepositoryImpl{
		pool: pool,
	}
}

const reservationColumns = `
	id, user_id, showtime_id, seat_number, price, status, payment_date, created_at, updated_at
`

func reservationScanTargets(r *model.Reservation) []any {
	return []any{
		&r.ID,
		&r.UserID,
		&r.ShowtimeID,
		&r.SeatNumber,
		&r.Price,
		&r.Status,
		&r.PaymentDate,
		&r.CreatedAt,
		&r.UpdatedAt,
	}
}

func (r *ReservationRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, reservation *model.Reservation) (*model.Reservation, error) {
	query := `
		INSERT INTO reservations (user_id, showtime_id, seat_number, price, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + reservationColumns

	err := tx.QueryRow(ctx, query,
		reservation.UserID,
		reservation.ShowtimeID,
		reservation.SeatNumber,
		reservation.Price,
		reservation.Status,
	).Scan(reservationScanTargets(reservation)...)
	if err != nil {
		// uq_reservations_showtime_seat：同一座位只能有一筆有效訂位
		if isUniqueViolation(err) {
			return nil, apperrors.ErrSeatUnavailable
		}
		return nil, err
	}
	return reservation, nil
}

func (r *ReservationRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

func (r *ReservationRepositoryImpl) FindByIDForUser(ctx context.Context, id int, userID int) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 AND user_id = $2`
	return r.queryOne(ctx, query, id, userID)
}

func (r *ReservationRepositoryImpl) queryOne(ctx context.Context, query string, args ...any) (*model.Reservation, error) {
	var reservation model.Reservation
	err := r.pool.QueryRow(ctx, query, args...).Scan(reservationScanTargets(&reservation)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *ReservationRepositoryImpl) ListByUser(ctx context.Context, userID int) ([]*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	return r.queryList(ctx, query, userID)
}

func (r *ReservationRepositoryImpl) List(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}
	if filter.MovieID > 0 {
		conditions = append(conditions, fmt.Sprintf("showtime_id IN (SELECT id FROM showtimes WHERE movie_id = $%d)", argPos))
		args = append(args, filter.MovieID)
		argPos++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *filter.From)
		argPos++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *filter.To)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM reservations
		%s
		ORDER BY created_at DESC, id DESC
	`, reservationColumns, where)

	return r.queryList(ctx, query, args...)
}

// ListStale 找出建立時間早於 createdBefore 且尚未付款的訂位
func (r *ReservationRepositoryImpl) ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`
	return r.queryList(ctx, query, model.ReservationStatusReserved, createdBefore, limit)
}

func (r *ReservationRepositoryImpl) queryList(ctx context.Context, query string, args ...any) ([]*model.Reservation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]*model.Reservation, 0)
	for rows.Next() {
		var reservation model.Reservation
		if err := rows.Scan(reservationScanTargets(&reservation)...); err != nil {
			return nil, err
		}
		reservations = append(reservations, &reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reservations, nil
}

// MarkBooked 條件式寫入：只有仍為 reserved 的訂位會被更新
func (r *ReservationRepositoryImpl) MarkBooked(ctx context.Context, tx pgx.Tx, id int, paidAt time.Time) (*model.Reservation, error) {
	query := `
		UPDATE reservations
		SET status = $1, payment_date = $2, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + reservationColumns

	var reservation model.Reservation
	err := tx.QueryRow(ctx, query,
		model.ReservationStatusBooked, paidAt, id, model.ReservationStatusReserved,
	).Scan(reservationScanTargets(&reservation)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvalidReservationState
		}
		return nil, err
	}
	return &reservation, nil
}

// DeleteWithStatus 條件式刪除，狀態已改變時回傳 ErrInvalidReservationState
func (r *ReservationRepositoryImpl) DeleteWithStatus(ctx context.Context, tx pgx.Tx, id int, status model.ReservationStatus) error {
	tag, err := tx.Exec(ctx, `DELETE FROM reservations WHERE id = $1 AND status = $2`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidReservationState
	}
	return nil
}
