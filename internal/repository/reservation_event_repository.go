package repository

import (
	"context"

	"go-gin-cinema-reservation/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationEventRepository interface {
	// Save 以事件 ID 去重，重複投遞不會產生第二筆
	Save(ctx context.Context, event *model.ReservationEvent) error
	ListByReservation(ctx context.Context, reservationID int) ([]*model.ReservationEvent, error)
}

type ReservationEventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewReservationEventRepository(pool *pgxpool.Pool) ReservationEventRepository {
	return &ReservationEventRepositoryImpl{
		pool: pool,
	}
}

func (r *ReservationEventRepositoryImpl) Save(ctx context.Context, event *model.ReservationEvent) error {
	query := `
		INSERT INTO reservation_events (
			id, event_type, reservation_id, showtime_id, seat_number, user_id, price, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Type,
		event.ReservationID,
		event.ShowtimeID,
		event.SeatNumber,
		event.UserID,
		event.Price,
		event.OccurredAt,
	)
	return err
}

func (r *ReservationEventRepositoryImpl) ListByReservation(ctx context.Context, reservationID int) ([]*model.ReservationEvent, error) {
	query := `
		SELECT id, event_type, reservation_id, showtime_id, seat_number, user_id, price, occurred_at
		FROM reservation_events
		WHERE reservation_id = $1
		ORDER BY occurred_at, recorded_at
	`
	rows, err := r.pool.Query(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.ReservationEvent, 0)
	for rows.Next() {
		var event model.ReservationEvent
		err := rows.Scan(
			&event.ID,
			&event.Type,
			&event.ReservationID,
			&event.ShowtimeID,
			&event.SeatNumber,
			&event.UserID,
			&event.Price,
			&event.OccurredAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
