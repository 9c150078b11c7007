package handler

import (
	"go-gin-cinema-reservation/internal/middleware"
	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/internal/schedule"
	"go-gin-cinema-reservation/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type AdminReservationHandler struct {
	service service.ReservationService
}

func NewAdminReservationHandler(service service.ReservationService) *AdminReservationHandler {
	mustRegisterValidators()
	return &AdminReservationHandler{service: service}
}

func (h *AdminReservationHandler) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	admin := r.Group("/api/v1/admin", auth, middleware.RequireAdmin())
	{
		admin.GET("reservations", h.List)
		admin.GET("reservations/:id", h.Get)
		admin.GET("reservations/:id/events", h.ListEvents)
		admin.DELETE("reservations/:id", h.Cancel)
	}
}

// ReservationListQuery start_date/end_date 皆含當日
type ReservationListQuery struct {
	Status    string `form:"status" binding:"omitempty,oneof=reserved booked"`
	MovieID   int    `form:"movie_id" binding:"omitempty,min=1"`
	StartDate string `form:"start_date" binding:"omitempty,isodate"`
	EndDate   string `form:"end_date" binding:"omitempty,isodate"`
}

func (q ReservationListQuery) toFilter() (model.ReservationFilter, error) {
	filter := model.ReservationFilter{
		Status:  model.ReservationStatus(q.Status),
		MovieID: q.MovieID,
	}
	if q.StartDate != "" {
		from, err := schedule.ParseDate(q.StartDate)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if q.EndDate != "" {
		end, err := schedule.ParseDate(q.EndDate)
		if err != nil {
			return filter, err
		}
		to := end.AddDate(0, 0, 1).Add(-time.Microsecond)
		filter.To = &to
	}
	return filter, nil
}

func (h *AdminReservationHandler) List(c *gin.Context) {
	var query ReservationListQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}
	filter, err := query.toFilter()
	if err != nil {
		handleError(c, err, "ListReservations")
		return
	}
	reservations, err := h.service.ListReservations(c, filter)
	if err != nil {
		handleError(c, err, "ListReservations")
		return
	}
	c.JSON(http.StatusOK, reservations)
}

func (h *AdminReservationHandler) Get(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	reservation, err := h.service.GetReservation(c, id)
	if err != nil {
		handleError(c, err, "GetReservation")
		return
	}
	c.JSON(http.StatusOK, reservation)
}

func (h *AdminReservationHandler) ListEvents(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	events, err := h.service.ListReservationEvents(c, id)
	if err != nil {
		handleError(c, err, "ListReservationEvents")
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *AdminReservationHandler) Cancel(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.AdminCancelReservation(c, id); err != nil {
		handleError(c, err, "AdminCancelReservation")
		return
	}
	c.Status(http.StatusNoContent)
}
