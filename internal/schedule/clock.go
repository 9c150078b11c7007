package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "go-gin-cinema-reservation/pkg/app_errors"
)

const (
	DateLayout    = "2006-01-02"
	MinutesPerDay = 24 * 60
)

var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// Clock 當日分鐘數，場次時間只到分鐘精度
type Clock int

// ParseClock 解析 HH:MM（允許單位數小時，例如 9:05）
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if !clockPattern.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidClock, s)
	}
	hh, mm, _ := strings.Cut(s, ":")
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	return Clock(h*60 + m), nil
}

// EndOfDay 結束時間允許的上限，輸出為 "24:00"
const EndOfDay = Clock(MinutesPerDay)

// ParseEndClock 與 ParseClock 相同，但另外接受 "24:00"
func ParseEndClock(s string) (Clock, error) {
	if strings.TrimSpace(s) == EndOfDay.String() {
		return EndOfDay, nil
	}
	return ParseClock(s)
}

// String 輸出補零的 HH:MM
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidDate, s)
	}
	return d, nil
}

// IsValidClock 供 binding 驗證使用
func IsValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

// IsValidDate 供 binding 驗證使用
func IsValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
