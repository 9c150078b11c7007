package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReservationStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, ReservationStatusReserved.CanTransitionTo(ReservationStatusBooked))
	assert.False(t, ReservationStatusReserved.CanTransitionTo(ReservationStatusReserved))
	assert.False(t, ReservationStatusBooked.CanTransitionTo(ReservationStatusReserved))
	assert.False(t, ReservationStatusBooked.CanTransitionTo(ReservationStatusBooked))
	assert.False(t, ReservationStatus("cancelled").CanTransitionTo(ReservationStatusBooked))
}

func TestShowtime_CloneIsDeep(t *testing.T) {
	user := 7
	st := &Showtime{
		ID: 1,
		Seats: []Seat{
			{SeatNumber: "A1", Status: SeatStatusReserved, ReservedBy: &user},
			{SeatNumber: "A2", Status: SeatStatusAvailable},
		},
	}

	c := st.Clone()
	c.Seats[0].Status = SeatStatusBooked
	*c.Seats[0].ReservedBy = 8

	assert.Equal(t, SeatStatusReserved, st.Seats[0].Status)
	assert.Equal(t, 7, *st.Seats[0].ReservedBy)
	assert.Equal(t, 1, c.SeatIndex("A2"))
	assert.Equal(t, -1, c.SeatIndex("Z9"))
}

func TestGenre_IsValid(t *testing.T) {
	assert.True(t, GenreSciFi.IsValid())
	assert.False(t, Genre("Musical").IsValid())
}
