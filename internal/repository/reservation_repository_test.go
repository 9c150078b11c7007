package repository_test

import (
	"context"
	"testing"
	"time"

	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/internal/repository"
	apperrors "go-gin-cinema-reservation/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertReservation(t *testing.T, r *model.Reservation) (*model.Reservation, error) {
	t.Helper()
	ctx := context.Background()
	var created *model.Reservation
	err := repository.RunInTx(ctx, testDB, func(tx pgx.Tx) error {
		var err error
		created, err = repository.NewReservationRepository(testDB).Create(ctx, tx, r)
		return err
	})
	return created, err
}

func TestReservationRepository_Lifecycle(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := repository.NewReservationRepository(testDB)
	movie := createMovie(t, "Zodiac", 152)
	st := insertShowtime(t, movie, "2030-01-10", "18:00", "20:32", model.SeatLayout{Rows: 2, SeatsPerRow: 2})

	created, err := insertReservation(t, &model.Reservation{
		UserID: 7, ShowtimeID: st.ID, SeatNumber: "A1",
		Price: decimal.NewFromInt(200), Status: model.ReservationStatusReserved,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Nil(t, created.PaymentDate)

	t.Run("UniqueSeat", func(t *testing.T) {
		_, err := insertReservation(t, &model.Reservation{
			UserID: 8, ShowtimeID: st.ID, SeatNumber: "A1",
			Price: decimal.NewFromInt(200), Status: model.ReservationStatusReserved,
		})
		assert.ErrorIs(t, err, apperrors.ErrSeatUnavailable)
	})

	t.Run("OwnerScoped", func(t *testing.T) {
		_, err := repo.FindByIDForUser(ctx, created.ID, 8)
		assert.ErrorIs(t, err, apperrors.ErrReservationNotFound)

		got, err := repo.FindByIDForUser(ctx, created.ID, 7)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(200).Equal(got.Price))
	})

	t.Run("MarkBookedOnce", func(t *testing.T) {
		paidAt := time.Now().UTC().Truncate(time.Microsecond)
		var booked *model.Reservation
		err := repository.RunInTx(ctx, testDB, func(tx pgx.Tx) error {
			var err error
			booked, err = repo.MarkBooked(ctx, tx, created.ID, paidAt)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, model.ReservationStatusBooked, booked.Status)
		require.NotNil(t, booked.PaymentDate)
		assert.True(t, paidAt.Equal(*booked.PaymentDate))

		err = repository.RunInTx(ctx, testDB, func(tx pgx.Tx) error {
			_, err := repo.MarkBooked(ctx, tx, created.ID, paidAt)
			return err
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidReservationState)
	})

	t.Run("DeleteWithStatus", func(t *testing.T) {
		err := repository.RunInTx(ctx, testDB, func(tx pgx.Tx) error {
			return repo.DeleteWithStatus(ctx, tx, created.ID, model.ReservationStatusReserved)
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidReservationState)

		err = repository.RunInTx(ctx, testDB, func(tx pgx.Tx) error {
			return repo.DeleteWithStatus(ctx, tx, created.ID, model.ReservationStatusBooked)
		})
		require.NoError(t, err)

		_, err = repo.FindByID(ctx, created.ID)
		assert.ErrorIs(t, err, apperrors.ErrReservationNotFound)
	})
}

func TestReservationRepository_ListFilters(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := repository.NewReservationRepository(testDB)
	zodiac := createMovie(t, "Zodiac", 152)
	alien := createMovie(t, "Alien", 117)
	st1 := insertShowtime(t, zodiac, "2030-01-10", "18:00", "20:32", model.SeatLayout{Rows: 1, SeatsPerRow: 3})
	st2 := insertShowtime(t, alien, "2030-01-10", "10:00", "11:57", model.SeatLayout{Rows: 1, SeatsPerRow: 3})

	for _, r := range []*model.Reservation{
		{UserID: 1, ShowtimeID: st1.ID, SeatNumber: "A1", Status: model.ReservationStatusReserved},
		{UserID: 1, ShowtimeID: st1.ID, SeatNumber: "A2", Status: model.ReservationStatusBooked},
		{UserID: 2, ShowtimeID: st2.ID, SeatNumber: "A1", Status: model.ReservationStatusReserved},
	} {
		r.Price = decimal.NewFromInt(200)
		_, err := insertReservation(t, r)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, model.ReservationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	booked, err := repo.List(ctx, model.ReservationFilter{Status: model.ReservationStatusBooked})
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, "A2", booked[0].SeatNumber)

	byMovie, err := repo.List(ctx, model.ReservationFilter{MovieID: alien.ID})
	require.NoError(t, err)
	require.Len(t, byMovie, 1)
	assert.Equal(t, 2, byMovie[0].UserID)

	past := time.Now().UTC().Add(-time.Hour)
	none, err := repo.List(ctx, model.ReservationFilter{To: &past})
	require.NoError(t, err)
	assert.Empty(t, none)

	mine, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	stale, err := repo.ListStale(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, stale, 2)
	for _, r := range stale {
		assert.Equal(t, model.ReservationStatusReserved, r.Status)
	}
}

func TestReservationEventRepository_SaveIsIdempotent(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := repository.NewReservationEventRepository(testDB)

	event := &model.ReservationEvent{
		ID:            uuid.New(),
		Type:          model.ReservationEventReserved,
		ReservationID: 11,
		ShowtimeID:    3,
		SeatNumber:    "B2",
		UserID:        7,
		Price:         decimal.NewFromInt(200),
		OccurredAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Save(ctx, event))
	require.NoError(t, repo.Save(ctx, event))

	booked := *event
	booked.ID = uuid.New()
	booked.Type = model.ReservationEventBooked
	booked.OccurredAt = event.OccurredAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, &booked))

	events, err := repo.ListByReservation(ctx, 11)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, event.ID, events[0].ID)
	assert.Equal(t, model.ReservationEventBooked, events[1].Type)
	assert.True(t, event.Price.Equal(events[0].Price))
}
