package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationEventType 訂位生命週期事件
type ReservationEventType string

const (
	ReservationEventReserved  ReservationEventType = "reserved"
	ReservationEventBooked    ReservationEventType = "booked"
	ReservationEventCancelled ReservationEventType = "cancelled"
	ReservationEventRevoked   ReservationEventType = "revoked"
	ReservationEventExpired   ReservationEventType = "expired"
)

// ReservationEvent 訂位提交後發送到隊列，由 worker 寫入稽核表
type ReservationEvent struct {
	ID            uuid.UUID            `json:"id" db:"id"`
	Type          ReservationEventType `json:"type" db:"event_type"`
	ReservationID int                  `json:"reservation_id" db:"reservation_id"`
	ShowtimeID    int                  `json:"showtime_id" db:"showtime_id"`
	SeatNumber    string               `json:"seat_number" db:"seat_number"`
	UserID        int                  `json:"user_id" db:"user_id"`
	Price         decimal.Decimal      `json:"price" db:"price"`
	OccurredAt    time.Time            `json:"occurred_at" db:"occurred_at"`
}
