package handler

import (
	"errors"
	"net/http"

	apperrors "go-gin-cinema-reservation/pkg/app_errors"
	"go-gin-cinema-reservation/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorMapping struct {
	targets []error
	status  int
	code    string
}

// 依序比對，第一個符合的決定狀態碼
var errorMappings = []errorMapping{
	{[]error{apperrors.ErrSeatNotFound}, http.StatusNotFound, CodeSeatNotFound},
	{[]error{apperrors.ErrMovieNotFound, apperrors.ErrShowtimeNotFound, apperrors.ErrReservationNotFound}, http.StatusNotFound, CodeNotFound},
	{[]error{
		apperrors.ErrInvalidInput,
		apperrors.ErrInvalidSeatLayout,
		apperrors.ErrShowtimeCrossesMidnight,
		apperrors.ErrInvalidClock,
		apperrors.ErrInvalidDate,
	}, http.StatusBadRequest, CodeValidation},
	{[]error{apperrors.ErrSeatUnavailable}, http.StatusConflict, CodeSeatUnavailable},
	{[]error{apperrors.ErrInvalidReservationState, apperrors.ErrSeatNotReserved, apperrors.ErrSeatNotBooked}, http.StatusConflict, CodeInvalidState},
	{[]error{apperrors.ErrSchedulingConflict}, http.StatusConflict, CodeSchedulingConflict},
	{[]error{apperrors.ErrConcurrentUpdate, apperrors.ErrScheduleBusy}, http.StatusConflict, CodeConcurrentUpdate},
	{[]error{apperrors.ErrMovieHasShowtimes}, http.StatusConflict, CodeMovieInUse},
	{[]error{apperrors.ErrUnauthorized}, http.StatusUnauthorized, CodeUnauthorized},
	{[]error{apperrors.ErrForbidden}, http.StatusForbidden, CodeForbidden},
}

func classify(err error) (int, string) {
	for _, m := range errorMappings {
		for _, target := range m.targets {
			if errors.Is(err, target) {
				return m.status, m.code
			}
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// handleError 業務錯誤記 Warn，其餘記 Error 且不回傳內部訊息
func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))

	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Error("Unexpected error")
		c.AbortWithStatusJSON(status, ErrorResponse{Error: "Internal server error", Code: code})
		return
	}

	log.Warn("Request failed", zap.String("code", code))
	resp := ErrorResponse{Error: err.Error(), Code: code}
	var conflict *apperrors.ConflictError
	if errors.As(err, &conflict) {
		resp.Details = gin.H{
			"showtime_id": conflict.ShowtimeID,
			"movie_title": conflict.MovieTitle,
			"date":        conflict.Date,
			"start_time":  conflict.StartTime,
			"end_time":    conflict.EndTime,
		}
	}
	c.AbortWithStatusJSON(status, resp)
}
