package mocks

import (
	"context"
	"go-gin-cinema-reservation/internal/inventory"
	"go-gin-cinema-reservation/internal/model"

	"github.com/stretchr/testify/mock"
)

type ShowtimeServiceMock struct {
	mock.Mock
}

func NewShowtimeServiceMock() *ShowtimeServiceMock {
	return &ShowtimeServiceMock{}
}

func (m *ShowtimeServiceMock) CreateShowtime(ctx context.Context, req model.CreateShowtimeRequest) (*model.Showtime, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Showtime), args.Error(1)
}

func (m *ShowtimeServiceMock) UpdateShowtime(ctx context.Context, id int, params model.UpdateShowtimeParams) (*model.Showtime, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Showtime), args.Error(1)
}

func (m *ShowtimeServiceMock) DeleteShowtime(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ShowtimeServiceMock) GetShowtime(ctx context.Context, id int) (*model.Showtime, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Showtime), args.Error(1)
}

func (m *ShowtimeServiceMock) ListShowtimes(ctx context.Context, filter model.ShowtimeFilter) ([]*model.Showtime, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Showtime), args.Error(1)
}

func (m *ShowtimeServiceMock) GetSeatMap(ctx context.Context, id int) (inventory.SeatMap, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(inventory.SeatMap), args.Error(1)
}
