package model

import "time"

// Genre 電影類型
type Genre string

const (
	GenreAction   Genre = "Action"
	GenreComedy   Genre = "Comedy"
	GenreDrama    Genre = "Drama"
	GenreHorror   Genre = "Horror"
	GenreSciFi    Genre = "Sci-Fi"
	GenreThriller Genre = "Thriller"
)

// IsValid 驗證類型是否有效
func (g Genre) IsValid() bool {
	switch g {
	case GenreAction, GenreComedy, GenreDrama, GenreHorror, GenreSciFi, GenreThriller:
		return true
	}
	return false
}

const (
	MinMovieDuration = 1
	MaxMovieDuration = 300
)

// Movie 電影模型，場次依 Duration 推算結束時間
type Movie struct {
	ID        int       `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Genre     Genre     `json:"genre" db:"genre"`
	Duration  int       `json:"duration" db:"duration"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateMovieRequest 新增電影請求
type CreateMovieRequest struct {
	Title    string `json:"title" binding:"required,max=255"`
	Genre    Genre  `json:"genre" binding:"required,genre"`
	Duration int    `json:"duration" binding:"required,min=1,max=300"`
}
