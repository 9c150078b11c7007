package service

import (
	"context"
	"fmt"
	"strings"

	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/internal/repository"
	apperrors "go-gin-cinema-reservation/pkg/app_errors"
)

type MovieService interface {
	Create(ctx context.Context, req model.CreateMovieRequest) (*model.Movie, error)
	Get(ctx context.Context, id int) (*model.Movie, error)
	List(ctx context.Context) ([]*model.Movie, error)
	// Delete 仍有場次時回傳 ErrMovieHasShowtimes
	Delete(ctx context.Context, id int) error
}

type MovieServiceImpl struct {
	repo         repository.MovieRepository
	showtimeRepo repository.ShowtimeRepository
}

func NewMovieService(repo repository.MovieRepository, showtimeRepo repository.ShowtimeRepository) MovieService {
	return &MovieServiceImpl{repo: repo, showtimeRepo: showtimeRepo}
}

func (s *MovieServiceImpl) Create(ctx context.Context, req model.CreateMovieRequest) (*model.Movie, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}
	if !req.Genre.IsValid() {
		return nil, fmt.Errorf("%w: unknown genre %q", apperrors.ErrInvalidInput, req.Genre)
	}
	if req.Duration < model.MinMovieDuration || req.Duration > model.MaxMovieDuration {
		return nil, fmt.Errorf("%w: duration must be %d..%d minutes", apperrors.ErrInvalidInput, model.MinMovieDuration, model.MaxMovieDuration)
	}

	return s.repo.Create(ctx, &model.Movie{
		Title:    title,
		Genre:    req.Genre,
		Duration: req.Duration,
	})
}

func (s *MovieServiceImpl) Get(ctx context.Context, id int) (*model.Movie, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *MovieServiceImpl) List(ctx context.Context) ([]*model.Movie, error) {
	return s.repo.List(ctx)
}

func (s *MovieServiceImpl) Delete(ctx context.Context, id int) error {
	n, err := s.showtimeRepo.CountByMovie(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperrors.ErrMovieHasShowtimes
	}
	// CountByMovie 與 DELETE 之間新增的場次由外鍵擋下
	return s.repo.Delete(ctx, id)
}
