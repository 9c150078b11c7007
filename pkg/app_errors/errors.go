package apperrors

import (
	"errors"
	"fmt"
)

var (
	// NotFound
	ErrMovieNotFound       = errors.New("movie not found")
	ErrShowtimeNotFound    = errors.New("showtime not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrSeatNotFound        = errors.New("seat not found")

	// ValidationError
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidSeatLayout       = errors.New("invalid seat layout")
	ErrInvalidClock            = errors.New("invalid time of day, expected HH:MM")
	ErrInvalidDate             = errors.New("invalid date, expected YYYY-MM-DD")
	ErrShowtimeCrossesMidnight = errors.New("showtime must end on the same day")

	// 座位狀態機
	ErrSeatUnavailable         = errors.New("seat is not available")
	ErrSeatNotReserved         = errors.New("seat is not reserved")
	ErrSeatNotBooked           = errors.New("seat is not booked")
	ErrInvalidReservationState = errors.New("invalid reservation state")

	// 排程
	ErrSchedulingConflict = errors.New("overlapping showtime")
	ErrScheduleBusy       = errors.New("schedule for this date is being modified")

	// 併發
	ErrShowtimeVersionConflict = errors.New("showtime was modified concurrently")
	ErrConcurrentUpdate        = errors.New("too many concurrent updates, retry")
	ErrCounterMismatch         = errors.New("showtime counters do not match seats")

	ErrMovieHasShowtimes = errors.New("movie has scheduled showtimes")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ConflictError 回報與新場次重疊的既有場次
type ConflictError struct {
	ShowtimeID int
	MovieTitle string
	Date       string
	StartTime  string
	EndTime    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %q on %s %s-%s", ErrSchedulingConflict, e.MovieTitle, e.Date, e.StartTime, e.EndTime)
}

func (e *ConflictError) Unwrap() error {
	return ErrSchedulingConflict
}
