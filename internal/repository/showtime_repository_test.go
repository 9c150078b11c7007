package repository_test

import (
	"context"
	"testing"
	"time"

	"go-gin-cinema-reservation/internal/inventory"
	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/internal/repository"
	apperrors "go-gin-cinema-reservation/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowtimeRepository_CreateAndFind(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := repository.NewShowtimeRepository(testDB)
	movie := createMovie(t, "Zodiac", 152)

	created := insertShowtime(t, movie, "2030-01-10", "18:00", "20:32", model.SeatLayout{Rows: 3, SeatsPerRow: 3})
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, "2030-01-10", created.Date)

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Seats, 9)
	assert.Equal(t, 9, got.AvailableSeats)
	assert.Equal(t, "A1", got.Seats[0].SeatNumber)
	assert.True(t, decimal.NewFromInt(200).Equal(got.Seats[0].Price))
	assert.Equal(t, model.SeatLayout{Rows: 3, SeatsPerRow: 3}, got.Layout)
	assert.NoError(t, inventory.Verify(got))

	_, err = repo.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, apperrors.ErrShowtimeNotFound)
}

func TestShowtimeRepository_CompareAndSwap(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := repository.NewShowtimeRepository(testDB)
	movie := createMovie(t, "Zodiac", 152)
	created := insertShowtime(t, movie, "2030-01-10", "18:00", "20:32", model.SeatLayout{Rows: 2, SeatsPerRow: 2})

	first, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	stale, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)

	_, err = inventory.Reserve(first, "A1", 7, time.Now().UTC())
	require.NoError(t, err)
	err = repository.RunInTx(ctx, testDB, func(tx pgx.Tx) error {
		return repo.CompareAndSwap(ctx, tx, first)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Version)

	// 以舊版本寫入必須失敗，不可覆蓋
	_, err = inventory.Reserve(stale, "A2", 8, time.Now().UTC())
	require.NoError(t, err)
	err = repository.RunInTx(ctx, testDB, func(tx pgx.Tx) error {
		return repo.CompareAndSwap(ctx, tx, stale)
	})
	assert.ErrorIs(t, err, apperrors.ErrShowtimeVersionConflict)

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, 1, got.ReservedSeats)
	assert.Equal(t, model.SeatStatusReserved, got.Seats[got.SeatIndex("A1")].Status)
	assert.Equal(t, model.SeatStatusAvailable, got.Seats[got.SeatIndex("A2")].Status)
	require.NotNil(t, got.Seats[got.SeatIndex("A1")].ReservedBy)
	assert.Equal(t, 7, *got.Seats[got.SeatIndex("A1")].ReservedBy)
}

func TestShowtimeRepository_ListAndUpdate(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := repository.NewShowtimeRepository(testDB)
	zodiac := createMovie(t, "Zodiac", 152)
	alien := createMovie(t, "Alien", 117)

	evening := insertShowtime(t, zodiac, "2030-01-10", "18:00", "20:32", model.SeatLayout{Rows: 1, SeatsPerRow: 2})
	insertShowtime(t, alien, "2030-01-10", "10:00", "11:57", model.SeatLayout{Rows: 1, SeatsPerRow: 2})
	insertShowtime(t, alien, "2030-01-11", "10:00", "11:57", model.SeatLayout{Rows: 1, SeatsPerRow: 2})

	byDate, err := repo.List(ctx, model.ShowtimeFilter{Date: "2030-01-10"})
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	assert.Equal(t, "10:00", byDate[0].StartTime)
	assert.Empty(t, byDate[0].Seats)

	byMovie, err := repo.List(ctx, model.ShowtimeFilter{MovieID: alien.ID})
	require.NoError(t, err)
	assert.Len(t, byMovie, 2)

	n, err := repo.CountByMovie(ctx, zodiac.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	updated, err := repo.UpdateSchedule(ctx, evening.ID, "2030-01-12", "21:00", "23:32")
	require.NoError(t, err)
	assert.Equal(t, "2030-01-12", updated.Date)
	assert.Equal(t, "23:32", updated.EndTime)
	assert.Equal(t, evening.Version, updated.Version)

	_, err = repo.UpdateSchedule(ctx, 9999, "2030-01-12", "21:00", "23:32")
	assert.ErrorIs(t, err, apperrors.ErrShowtimeNotFound)

	require.NoError(t, repo.Delete(ctx, evening.ID))
	assert.ErrorIs(t, repo.Delete(ctx, evening.ID), apperrors.ErrShowtimeNotFound)
}
