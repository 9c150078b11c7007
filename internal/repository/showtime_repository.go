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

type ShowtimeRepository interface {
	FindByID(ctx context.Context, id int) (*model.Showtime, error)
	List(ctx context.Context, filter model.ShowtimeFilter) ([]*model.Showtime, error)
	CountByMovie(ctx context.Context, movieID int) (int, error)
	UpdateSchedule(ctx context.Context, id int, date, startTime, endTime string) (*model.Showtime, error)
	Delete(ctx context.Context, id int) error

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, showtime *model.Showtime) (*model.Showtime, error)
	ListByDate(ctx context.Context, tx pgx.Tx, date string) ([]*model.Showtime, error)
	// CompareAndSwap 僅在版本仍為 showtime.Version 時寫入座位與計數器
	CompareAndSwap(ctx context.Context, tx pgx.Tx, showtime *model.Showtime) error
}

type ShowtimeRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewShowtimeRepository(pool *pgxpool.Pool) ShowtimeRepository {
	return &ShowtimeRepositoryImpl{
		pool: pool,
	}
}

const showtimeColumns = `
	id, movie_id, movie_title, show_date::text, start_time, end_time,
	layout_rows, seats_per_row,
	total_seats, available_seats, reserved_seats, booked_seats, revenue,
	version, created_at, updated_at
`

func showtimeScanTargets(st *model.Showtime) []any {
	return []any{
		&st.ID,
		&st.MovieID,
		&st.MovieTitle,
		&st.Date,
		&st.StartTime,
		&st.EndTime,
		&st.Layout.Rows,
		&st.Layout.SeatsPerRow,
		&st.TotalSeats,
		&st.AvailableSeats,
		&st.ReservedSeats,
		&st.BookedSeats,
		&st.Revenue,
		&st.Version,
		&st.CreatedAt,
		&st.UpdatedAt,
	}
}

func (r *ShowtimeRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, showtime *model.Showtime) (*model.Showtime, error) {
	query := `
		INSERT INTO showtimes (
			movie_id, movie_title, show_date, start_time, end_time,
			layout_rows, seats_per_row, seats,
			total_seats, available_seats, reserved_seats, booked_seats, revenue)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + showtimeColumns

	err := tx.QueryRow(ctx, query,
		showtime.MovieID, showtime.MovieTitle, showtime.Date, showtime.StartTime, showtime.EndTime,
		showtime.Layout.Rows, showtime.Layout.SeatsPerRow, showtime.Seats,
		showtime.TotalSeats, showtime.AvailableSeats, showtime.ReservedSeats, showtime.BookedSeats, showtime.Revenue,
	).Scan(showtimeScanTargets(showtime)...)
	if err != nil {
		return nil, err
	}
	return showtime, nil
}

func (r *ShowtimeRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Showtime, error) {
	query := `SELECT ` + showtimeColumns + `, seats FROM showtimes WHERE id = $1`

	var st model.Showtime
	targets := append(showtimeScanTargets(&st), &st.Seats)
	err := r.pool.QueryRow(ctx, query, id).Scan(targets...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrShowtimeNotFound
		}
		return nil, err
	}
	return &st, nil
}

// List 不載入座位
func (r *ShowtimeRepositoryImpl) List(ctx context.Context, filter model.ShowtimeFilter) ([]*model.Showtime, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("show_date = $%d", argPos))
		args = append(args, filter.Date)
		argPos++
	}
	if filter.MovieID > 0 {
		conditions = append(conditions, fmt.Sprintf("movie_id = $%d", argPos))
		args = append(args, filter.MovieID)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM showtimes
		%s
		ORDER BY show_date, start_time
	`, showtimeColumns, where)

	return r.queryList(ctx, r.pool, query, args...)
}

func (r *ShowtimeRepositoryImpl) ListByDate(ctx context.Context, tx pgx.Tx, date string) ([]*model.Showtime, error) {
	query := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE show_date = $1 ORDER BY start_time`
	return r.queryList(ctx, tx, query, date)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *ShowtimeRepositoryImpl) queryList(ctx context.Context, q querier, query string, args ...any) ([]*model.Showtime, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	showtimes := make([]*model.Showtime, 0)
	for rows.Next() {
		var st model.Showtime
		if err := rows.Scan(showtimeScanTargets(&st)...); err != nil {
			return nil, err
		}
		showtimes = append(showtimes, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return showtimes, nil
}

func (r *ShowtimeRepositoryImpl) CountByMovie(ctx context.Context, movieID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM showtimes WHERE movie_id = $1`, movieID).Scan(&n)
	return n, err
}

func (r *ShowtimeRepositoryImpl) CompareAndSwap(ctx context.Context, tx pgx.Tx, showtime *model.Showtime) error {
	query := `
		UPDATE showtimes
		SET seats = $1,
			available_seats = $2,
			reserved_seats = $3,
			booked_seats = $4,
			revenue = $5,
			version = version + 1,
			updated_at = $6
		WHERE id = $7 AND version = $8
	`
	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, query,
		showtime.Seats,
		showtime.AvailableSeats,
		showtime.ReservedSeats,
		showtime.BookedSeats,
		showtime.Revenue,
		now,
		showtime.ID,
		showtime.Version,
	)
	if err != nil {
		return err
	}

	// 0 rows：版本已被其他交易推進，或場次已刪除，由呼叫端重新讀取判斷
	if tag.RowsAffected() == 0 {
		return apperrors.ErrShowtimeVersionConflict
	}

	showtime.Version++
	showtime.UpdatedAt = now
	return nil
}

// UpdateSchedule 直接覆寫日期與時間，不碰座位與版本
func (r *ShowtimeRepositoryImpl) UpdateSchedule(ctx context.Context, id int, date, startTime, endTime string) (*model.Showtime, error) {
	query := `
		UPDATE showtimes
		SET show_date = $1, start_time = $2, end_time = $3, updated_at = $4
		WHERE id = $5
		RETURNING ` + showtimeColumns

	var st model.Showtime
	err := r.pool.QueryRow(ctx, query, date, startTime, endTime, time.Now().UTC(), id).Scan(showtimeScanTargets(&st)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrShowtimeNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (r *ShowtimeRepositoryImpl) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM showtimes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrShowtimeNotFound
	}
	return nil
}
