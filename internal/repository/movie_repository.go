package repository

import (
	"context"
	"errors"

	"go-gin-cinema-reservation/internal/model"
	apperrors "go-gin-cinema-reservation/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MovieRepository interface {
	Create(ctx context.Context, movie *model.Movie) (*model.Movie, error)
	List(ctx context.Context) ([]*model.Movie, error)
	FindByID(ctx context.Context, id int) (*model.Movie, error)
	Delete(ctx context.Context, id int) error
}

type MovieRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewMovieRepository(pool *pgxpool.Pool) MovieRepository {
	return &MovieRepositoryImpl{
		pool: pool,
	}
}

func (r *MovieRepositoryImpl) Create(ctx context.Context, movie *model.Movie) (*model.Movie, error) {
	query := `
		INSERT INTO movies (title, genre, duration)
		VALUES ($1, $2, $3)
		RETURNING id, title, genre, duration, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		movie.Title, movie.Genre, movie.Duration,
	).Scan(
		&movie.ID,
		&movie.Title,
		&movie.Genre,
		&movie.Duration,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return movie, nil
}

func (r *MovieRepositoryImpl) List(ctx context.Context) ([]*model.Movie, error) {
	query := `
		SELECT id, title, genre, duration, created_at, updated_at
		FROM movies
		ORDER BY title
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := make([]*model.Movie, 0)
	for rows.Next() {
		var movie model.Movie
		err := rows.Scan(
			&movie.ID,
			&movie.Title,
			&movie.Genre,
			&movie.Duration,
			&movie.CreatedAt,
			&movie.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		movies = append(movies, &movie)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return movies, nil
}

func (r *MovieRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Movie, error) {
	query := `
		SELECT id, title, genre, duration, created_at, updated_at
		FROM movies
		WHERE id = $1
	`
	var movie model.Movie
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&movie.ID,
		&movie.Title,
		&movie.Genre,
		&movie.Duration,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMovieNotFound
		}
		return nil, err
	}
	return &movie, nil
}

func (r *MovieRepositoryImpl) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		// showtimes.movie_id ON DELETE RESTRICT
		if isForeignKeyViolation(err) {
			return apperrors.ErrMovieHasShowtimes
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMovieNotFound
	}
	return nil
}
