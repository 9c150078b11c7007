// Package inventory 實作單一場次的座位狀態機。
// 所有轉換都經過 transition，座位與計數器在同一次呼叫內一起更新。
package inventory

import (
	"fmt"
	"time"

	"go-gin-cinema-reservation/internal/model"
	apperrors "go-gin-cinema-reservation/pkg/app_errors"

	"github.com/shopspring/decimal"
)

type counterDelta struct {
	available int
	reserved  int
	booked    int
	revenue   decimal.Decimal
}

type move struct {
	from     model.SeatStatus
	to       model.SeatStatus
	notFrom  error
	delta    func(price decimal.Decimal) counterDelta
	holderBy *int
	holdAt   *time.Time
}

func transition(st *model.Showtime, seatNumber string, m move) (model.Seat, error) {
	idx := st.SeatIndex(seatNumber)
	if idx < 0 {
		return model.Seat{}, fmt.Errorf("%w: %s", apperrors.ErrSeatNotFound, seatNumber)
	}
	seat := &st.Seats[idx]
	if seat.Status != m.from {
		return model.Seat{}, fmt.Errorf("%w: %s is %s", m.notFrom, seatNumber, seat.Status)
	}

	d := m.delta(seat.Price)
	seat.Status = m.to
	if m.to == model.SeatStatusAvailable {
		seat.ReservedBy = nil
		seat.ReservationTime = nil
	}
	if m.holderBy != nil {
		by := *m.holderBy
		at := *m.holdAt
		seat.ReservedBy = &by
		seat.ReservationTime = &at
	}

	st.AvailableSeats += d.available
	st.ReservedSeats += d.reserved
	st.BookedSeats += d.booked
	if !d.revenue.IsZero() {
		st.Revenue = st.Revenue.Add(d.revenue)
	}

	return *seat, nil
}

// Reserve available → reserved
func Reserve(st *model.Showtime, seatNumber string, userID int, now time.Time) (model.Seat, error) {
	return transition(st, seatNumber, move{
		from:    model.SeatStatusAvailable,
		to:      model.SeatStatusReserved,
		notFrom: apperrors.ErrSeatUnavailable,
		delta: func(decimal.Decimal) counterDelta {
			return counterDelta{available: -1, reserved: 1}
		},
		holderBy: &userID,
		holdAt:   &now,
	})
}

// Book reserved → booked，營收加上座位價格
func Book(st *model.Showtime, seatNumber string) (model.Seat, error) {
	return transition(st, seatNumber, move{
		from:    model.SeatStatusReserved,
		to:      model.SeatStatusBooked,
		notFrom: apperrors.ErrSeatNotReserved,
		delta: func(price decimal.Decimal) counterDelta {
			return counterDelta{reserved: -1, booked: 1, revenue: price}
		},
	})
}

// Release reserved → available
func Release(st *model.Showtime, seatNumber string) (model.Seat, error) {
	return transition(st, seatNumber, move{
		from:    model.SeatStatusReserved,
		to:      model.SeatStatusAvailable,
		notFrom: apperrors.ErrSeatNotReserved,
		delta: func(decimal.Decimal) counterDelta {
			return counterDelta{reserved: -1, available: 1}
		},
	})
}

// Revoke booked → available，僅供管理端取消已付款訂位，營收同步扣回
func Revoke(st *model.Showtime, seatNumber string) (model.Seat, error) {
	return transition(st, seatNumber, move{
		from:    model.SeatStatusBooked,
		to:      model.SeatStatusAvailable,
		notFrom: apperrors.ErrSeatNotBooked,
		delta: func(price decimal.Decimal) counterDelta {
			return counterDelta{booked: -1, available: 1, revenue: price.Neg()}
		},
	})
}

// Verify 檢查計數器與座位集合一致
func Verify(st *model.Showtime) error {
	var available, reserved, booked int
	revenue := decimal.Zero
	for _, seat := range st.Seats {
		switch seat.Status {
		case model.SeatStatusAvailable:
			available++
		case model.SeatStatusReserved:
			reserved++
		case model.SeatStatusBooked:
			booked++
			revenue = revenue.Add(seat.Price)
		default:
			return fmt.Errorf("%w: seat %s has status %q", apperrors.ErrCounterMismatch, seat.SeatNumber, seat.Status)
		}
	}

	switch {
	case st.TotalSeats != len(st.Seats):
		return fmt.Errorf("%w: total %d, seats %d", apperrors.ErrCounterMismatch, st.TotalSeats, len(st.Seats))
	case st.AvailableSeats != available || st.ReservedSeats != reserved || st.BookedSeats != booked:
		return fmt.Errorf("%w: counters %d/%d/%d, seats %d/%d/%d", apperrors.ErrCounterMismatch,
			st.AvailableSeats, st.ReservedSeats, st.BookedSeats, available, reserved, booked)
	case !st.Revenue.Equal(revenue):
		return fmt.Errorf("%w: revenue %s, booked sum %s", apperrors.ErrCounterMismatch, st.Revenue, revenue)
	}
	return nil
}
