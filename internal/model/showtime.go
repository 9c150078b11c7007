package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeatStatus 座位狀態
type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusReserved  SeatStatus = "reserved"
	SeatStatusBooked    SeatStatus = "booked"
)

// IsValid 驗證狀態是否有效
func (s SeatStatus) IsValid() bool {
	switch s {
	case SeatStatusAvailable, SeatStatusReserved, SeatStatusBooked:
		return true
	}
	return false
}

// Seat 座位，僅屬於單一場次
type Seat struct {
	SeatNumber      string          `json:"seat_number"`
	Row             string          `json:"row"`
	Number          int             `json:"number"`
	Status          SeatStatus      `json:"status"`
	Price           decimal.Decimal `json:"price"`
	ReservedBy      *int            `json:"reserved_by,omitempty"`
	ReservationTime *time.Time      `json:"reservation_time,omitempty"`
}

type SeatLayout struct {
	Rows        int `json:"rows" db:"layout_rows"`
	SeatsPerRow int `json:"seats_per_row" db:"seats_per_row"`
}

// Showtime 場次模型，座位內嵌並帶有反正規化的計數器
type Showtime struct {
	ID         int        `json:"id" db:"id"`
	MovieID    int        `json:"movie_id" db:"movie_id"`
	MovieTitle string     `json:"movie_title" db:"movie_title"`
	Date       string     `json:"date" db:"show_date"`
	StartTime  string     `json:"start_time" db:"start_time"`
	EndTime    string     `json:"end_time" db:"end_time"`
	Layout     SeatLayout `json:"seat_layout"`
	Seats      []Seat     `json:"seats,omitempty" db:"seats"`

	TotalSeats     int             `json:"total_seats" db:"total_seats"`
	AvailableSeats int             `json:"available_seats" db:"available_seats"`
	ReservedSeats  int             `json:"reserved_seats" db:"reserved_seats"`
	BookedSeats    int             `json:"booked_seats" db:"booked_seats"`
	Revenue        decimal.Decimal `json:"revenue" db:"revenue"`

	// Version 每次寫入遞增，作為 compare-and-swap 的條件
	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SeatIndex 回傳座位在 Seats 中的位置，不存在時回傳 -1
func (s *Showtime) SeatIndex(seatNumber string) int {
	for i := range s.Seats {
		if s.Seats[i].SeatNumber == seatNumber {
			return i
		}
	}
	return -1
}

// Clone 深複製，重試時每次都從乾淨的副本套用轉換
func (s *Showtime) Clone() *Showtime {
	c := *s
	c.Seats = make([]Seat, len(s.Seats))
	for i, seat := range s.Seats {
		if seat.ReservedBy != nil {
			by := *seat.ReservedBy
			seat.ReservedBy = &by
		}
		if seat.ReservationTime != nil {
			at := *seat.ReservationTime
			seat.ReservationTime = &at
		}
		c.Seats[i] = seat
	}
	return &c
}

// CreateShowtimeRequest 建立場次請求，Rows/SeatsPerRow 為 0 時使用預設配置
type CreateShowtimeRequest struct {
	MovieID     int    `json:"movie_id" binding:"required,min=1"`
	Date        string `json:"date" binding:"required,isodate"`
	StartTime   string `json:"start_time" binding:"required,clock"`
	Rows        int    `json:"rows" binding:"omitempty,min=1,max=26"`
	SeatsPerRow int    `json:"seats_per_row" binding:"omitempty,min=1,max=50"`
}

// UpdateShowtimeParams 直接修改場次時間，不重新檢查衝突
type UpdateShowtimeParams struct {
	Date      *string `json:"date" binding:"omitempty,isodate"`
	StartTime *string `json:"start_time" binding:"omitempty,clock"`
}

// ShowtimeFilter 場次列表查詢條件
type ShowtimeFilter struct {
	Date    string `form:"date" binding:"omitempty,isodate"`
	MovieID int    `form:"movie_id" binding:"omitempty,min=1"`
}
