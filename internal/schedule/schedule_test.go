package schedule

import (
	"errors"
	"testing"

	"go-gin-cinema-reservation/internal/model"
	apperrors "go-gin-cinema-reservation/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"00:00", 0, false},
		{"18:00", 18 * 60, false},
		{"9:05", 9*60 + 5, false},
		{"23:59", 23*60 + 59, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"1200", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClock_String(t *testing.T) {
	assert.Equal(t, "09:05", Clock(9*60+5).String())
	assert.Equal(t, "20:32", Clock(20*60+32).String())
}

func TestEndAfter(t *testing.T) {
	end, err := EndAfter(18*60, 152)
	require.NoError(t, err)
	assert.Equal(t, "20:32", end.String())

	_, err = EndAfter(23*60, 61)
	assert.ErrorIs(t, err, apperrors.ErrShowtimeCrossesMidnight)

	_, err = EndAfter(22*60, 119)
	assert.NoError(t, err)

	// 剛好 24:00 結束
	end, err = EndAfter(23*60, 60)
	require.NoError(t, err)
	assert.Equal(t, "24:00", end.String())
}

func TestNewWindow_EndsAtMidnight(t *testing.T) {
	w, err := NewWindow("22:01", 119)
	require.NoError(t, err)
	assert.Equal(t, EndOfDay, w.End)
	assert.Equal(t, "24:00", w.End.String())

	_, err = NewWindow("22:02", 119)
	assert.ErrorIs(t, err, apperrors.ErrShowtimeCrossesMidnight)

	// 存回的 "24:00" 可被讀回並參與衝突判定
	late := &model.Showtime{ID: 2, Date: "2030-03-20", StartTime: "22:01", EndTime: "24:00"}
	got, err := WindowOf(late)
	require.NoError(t, err)
	assert.Equal(t, w, got)

	candidate, err := NewWindow("23:00", 30)
	require.NoError(t, err)
	conflict, err := FindConflict(candidate, []*model.Showtime{late})
	require.NoError(t, err)
	assert.Equal(t, late, conflict)
}

func TestParseEndClock(t *testing.T) {
	end, err := ParseEndClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, EndOfDay, end)

	end, err = ParseEndClock("20:32")
	require.NoError(t, err)
	assert.Equal(t, Clock(20*60+32), end)

	_, err = ParseEndClock("24:01")
	assert.ErrorIs(t, err, apperrors.ErrInvalidClock)

	_, err = EndAfter(10*60, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func existingShowtime() *model.Showtime {
	return &model.Showtime{
		ID:         1,
		MovieTitle: "The Dark Knight",
		Date:       "2030-03-20",
		StartTime:  "18:00",
		EndTime:    "20:32",
	}
}

func TestFindConflict(t *testing.T) {
	existing := []*model.Showtime{existingShowtime()}

	tests := []struct {
		name     string
		start    string
		duration int
		conflict bool
	}{
		{"overlaps the middle", "19:00", 120, true},
		{"touching end boundary", "20:32", 88, false},
		{"touching start boundary", "16:00", 120, false},
		{"contains existing", "17:00", 240, true},
		{"inside existing", "18:30", 60, true},
		{"same window", "18:00", 152, true},
		{"well before", "10:00", 90, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWindow(tt.start, tt.duration)
			require.NoError(t, err)

			got, err := FindConflict(w, existing)
			require.NoError(t, err)
			if tt.conflict {
				require.NotNil(t, got)
				assert.Equal(t, 1, got.ID)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestFindConflict_NoShowtimesOnDate(t *testing.T) {
	w, err := NewWindow("18:00", 152)
	require.NoError(t, err)

	got, err := FindConflict(w, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindConflict_CorruptExisting(t *testing.T) {
	bad := existingShowtime()
	bad.EndTime = "late"

	w, _ := NewWindow("10:00", 60)
	_, err := FindConflict(w, []*model.Showtime{bad})
	assert.ErrorIs(t, err, apperrors.ErrInvalidClock)
}

func TestConflictErrorFor(t *testing.T) {
	err := ConflictErrorFor(existingShowtime())

	assert.ErrorIs(t, err, apperrors.ErrSchedulingConflict)
	var ce *apperrors.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "20:32", ce.EndTime)
	assert.Contains(t, err.Error(), "The Dark Knight")
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2030-03-20")
	require.NoError(t, err)
	assert.Equal(t, 20, d.Day())

	_, err = ParseDate("20-03-2030")
	assert.ErrorIs(t, err, apperrors.ErrInvalidDate)

	assert.True(t, IsValidDate("2030-02-28"))
	assert.False(t, IsValidDate("2030-02-30"))
	assert.True(t, IsValidClock("7:15"))
}
