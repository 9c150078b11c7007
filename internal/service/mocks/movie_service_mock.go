package mocks

import (
	"context"
	"go-gin-cinema-reservation/internal/model"

	"github.com/stretchr/testify/mock"
)

type MovieServiceMock struct {
	mock.Mock
}

func NewMovieServiceMock() *MovieServiceMock {
	return &MovieServiceMock{}
}

func (m *MovieServiceMock) Create(ctx context.Context, req model.CreateMovieRequest) (*model.Movie, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Movie), args.Error(1)
}

func (m *MovieServiceMock) Get(ctx context.Context, id int) (*model.Movie, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Movie), args.Error(1)
}

func (m *MovieServiceMock) List(ctx context.Context) ([]*model.Movie, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Movie), args.Error(1)
}

func (m *MovieServiceMock) Delete(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
