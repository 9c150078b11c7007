package inventory

import (
	"go-gin-cinema-reservation/internal/model"

	"github.com/shopspring/decimal"
)

// SeatView 座位圖中的單一座位
type SeatView struct {
	Status     model.SeatStatus `json:"status"`
	Price      decimal.Decimal  `json:"price"`
	SeatNumber string           `json:"seat_number"`
}

// SeatMap row → number → 座位，每次呼叫重新計算
type SeatMap map[string]map[int]SeatView

func BuildSeatMap(st *model.Showtime) SeatMap {
	m := make(SeatMap)
	for _, seat := range st.Seats {
		row, ok := m[seat.Row]
		if !ok {
			row = make(map[int]SeatView)
			m[seat.Row] = row
		}
		row[seat.Number] = SeatView{
			Status:     seat.Status,
			Price:      seat.Price,
			SeatNumber: seat.SeatNumber,
		}
	}
	return m
}

func filterSeats(st *model.Showtime, status model.SeatStatus) []model.Seat {
	out := make([]model.Seat, 0)
	for _, seat := range st.Seats {
		if seat.Status == status {
			out = append(out, seat)
		}
	}
	return out
}

func AvailableSeats(st *model.Showtime) []model.Seat {
	return filterSeats(st, model.SeatStatusAvailable)
}

func ReservedSeats(st *model.Showtime) []model.Seat {
	return filterSeats(st, model.SeatStatusReserved)
}

func BookedSeats(st *model.Showtime) []model.Seat {
	return filterSeats(st, model.SeatStatusBooked)
}
