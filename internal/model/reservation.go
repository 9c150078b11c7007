package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus 訂位狀態類型
type ReservationStatus string

const (
	ReservationStatusReserved ReservationStatus = "reserved"
	ReservationStatusBooked   ReservationStatus = "booked"
)

// IsValid 驗證狀態是否有效
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusReserved, ReservationStatusBooked:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態，取消為刪除而非狀態
func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	transitions := map[ReservationStatus][]ReservationStatus{
		ReservationStatusReserved: {ReservationStatusBooked},
		ReservationStatusBooked:   {}, // 不能轉換到任何狀態
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// Reservation 訂位模型，Price 於建立時鎖定
type Reservation struct {
	ID          int               `json:"id" db:"id"`
	UserID      int               `json:"user_id" db:"user_id"`
	ShowtimeID  int               `json:"showtime_id" db:"showtime_id"`
	SeatNumber  string            `json:"seat_number" db:"seat_number"`
	Price       decimal.Decimal   `json:"price" db:"price"`
	Status      ReservationStatus `json:"status" db:"status"`
	PaymentDate *time.Time        `json:"payment_date,omitempty" db:"payment_date"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// CreateReservationRequest 建立訂位請求
type CreateReservationRequest struct {
	ShowtimeID int    `json:"showtime_id" binding:"required,min=1"`
	SeatNumber string `json:"seat_number" binding:"required,seatnumber"`
}

// ReservationFilter 管理端訂位查詢條件，From/To 依建立時間篩選
type ReservationFilter struct {
	Status  ReservationStatus
	MovieID int
	From    *time.Time
	To      *time.Time
}
