package schedule

import (
	"fmt"

	"go-gin-cinema-reservation/internal/model"
	apperrors "go-gin-cinema-reservation/pkg/app_errors"
)

// Window 半開區間 [Start, End)
type Window struct {
	Start Clock
	End   Clock
}

// EndAfter 以片長推算結束時間；剛好在 24:00 結束可以，超過則視為跨日
func EndAfter(start Clock, durationMinutes int) (Clock, error) {
	if durationMinutes <= 0 {
		return 0, fmt.Errorf("%w: duration must be positive", apperrors.ErrInvalidInput)
	}
	end := int(start) + durationMinutes
	if end > MinutesPerDay {
		return 0, fmt.Errorf("%w: %s + %d min", apperrors.ErrShowtimeCrossesMidnight, start, durationMinutes)
	}
	return Clock(end), nil
}

// NewWindow 由開始時間字串與片長建立區間
func NewWindow(startTime string, durationMinutes int) (Window, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return Window{}, err
	}
	end, err := EndAfter(start, durationMinutes)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: end}, nil
}

// WindowOf 讀取既有場次的時間區間
func WindowOf(st *model.Showtime) (Window, error) {
	start, err := ParseClock(st.StartTime)
	if err != nil {
		return Window{}, err
	}
	end, err := ParseEndClock(st.EndTime)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: end}, nil
}

// Overlaps 邊界相接（前一場結束等於下一場開始）不算重疊
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && w.End > other.Start
}

// FindConflict 回傳同日第一個與 candidate 重疊的場次，沒有時回傳 nil。
// 衝突判定不分影廳，同一日所有場次都參與比較。
func FindConflict(candidate Window, sameDate []*model.Showtime) (*model.Showtime, error) {
	for _, existing := range sameDate {
		w, err := WindowOf(existing)
		if err != nil {
			return nil, fmt.Errorf("showtime %d: %w", existing.ID, err)
		}
		if candidate.Overlaps(w) {
			return existing, nil
		}
	}
	return nil, nil
}

// ConflictErrorFor 將衝突場次包裝成可被 errors.Is(ErrSchedulingConflict) 辨識的錯誤
func ConflictErrorFor(st *model.Showtime) error {
	return &apperrors.ConflictError{
		ShowtimeID: st.ID,
		MovieTitle: st.MovieTitle,
		Date:       st.Date,
		StartTime:  st.StartTime,
		EndTime:    st.EndTime,
	}
}
