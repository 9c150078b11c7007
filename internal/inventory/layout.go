package inventory

import (
	"fmt"
	"regexp"

	"go-gin-cinema-reservation/internal/model"
	apperrors "go-gin-cinema-reservation/pkg/app_errors"

	"github.com/shopspring/decimal"
)

const (
	rowLetters     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	MaxRows        = len(rowLetters)
	MaxSeatsPerRow = 50
)

// 依排別定價，前排最貴
var priceTiers = map[byte]int64{
	'A': 200, 'B': 200,
	'C': 160, 'D': 160,
	'E': 140, 'F': 140,
	'G': 100, 'H': 100, 'I': 100, 'J': 100,
	'K': 80, 'L': 80,
	'M': 50, 'N': 50, 'O': 50,
}

const defaultTierPrice = 10

var seatNumberPattern = regexp.MustCompile(`^[A-Z][1-9][0-9]?$`)

// IsValidSeatNumber 只檢查格式（排別字母 + 1..99），不檢查場次內是否存在
func IsValidSeatNumber(s string) bool {
	return seatNumberPattern.MatchString(s)
}

// PriceForRow 不在價目表內的排別使用預設價格
func PriceForRow(row byte) decimal.Decimal {
	if p, ok := priceTiers[row]; ok {
		return decimal.NewFromInt(p)
	}
	return decimal.NewFromInt(defaultTierPrice)
}

// GenerateSeats 依 rows × seatsPerRow 產生 A1..An, B1.. 的座位
func GenerateSeats(layout model.SeatLayout) ([]model.Seat, error) {
	if layout.Rows < 1 || layout.Rows > MaxRows {
		return nil, fmt.Errorf("%w: rows must be 1..%d, got %d", apperrors.ErrInvalidSeatLayout, MaxRows, layout.Rows)
	}
	if layout.SeatsPerRow < 1 || layout.SeatsPerRow > MaxSeatsPerRow {
		return nil, fmt.Errorf("%w: seats per row must be 1..%d, got %d", apperrors.ErrInvalidSeatLayout, MaxSeatsPerRow, layout.SeatsPerRow)
	}

	seats := make([]model.Seat, 0, layout.Rows*layout.SeatsPerRow)
	for r := 0; r < layout.Rows; r++ {
		row := rowLetters[r]
		price := PriceForRow(row)
		for n := 1; n <= layout.SeatsPerRow; n++ {
			seats = append(seats, model.Seat{
				SeatNumber: fmt.Sprintf("%c%d", row, n),
				Row:        string(row),
				Number:     n,
				Status:     model.SeatStatusAvailable,
				Price:      price,
			})
		}
	}
	return seats, nil
}

// InitSeats 產生座位並重設計數器，供新場次使用
func InitSeats(st *model.Showtime, layout model.SeatLayout) error {
	seats, err := GenerateSeats(layout)
	if err != nil {
		return err
	}
	st.Layout = layout
	st.Seats = seats
	st.TotalSeats = len(seats)
	st.AvailableSeats = len(seats)
	st.ReservedSeats = 0
	st.BookedSeats = 0
	st.Revenue = decimal.Zero
	return nil
}
