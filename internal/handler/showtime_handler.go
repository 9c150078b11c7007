package handler

import (
	"go-gin-cinema-reservation/internal/middleware"
	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ShowtimeHandler struct {
	service service.ShowtimeService
}

func NewShowtimeHandler(service service.ShowtimeService) *ShowtimeHandler {
	mustRegisterValidators()
	return &ShowtimeHandler{service: service}
}

func (h *ShowtimeHandler) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	router := r.Group("/api/v1")
	{
		router.GET("showtimes", h.List)
		router.GET("showtimes/:id", h.Get)
		router.GET("showtimes/:id/seats", h.GetSeatMap)
	}
	admin := r.Group("/api/v1/admin", auth, middleware.RequireAdmin())
	{
		admin.POST("showtimes", h.Create)
		admin.PUT("showtimes/:id", h.Update)
		admin.DELETE("showtimes/:id", h.Delete)
	}
}

func (h *ShowtimeHandler) List(c *gin.Context) {
	var filter model.ShowtimeFilter
	if err := BindQuery(c, &filter); err != nil {
		return
	}
	showtimes, err := h.service.ListShowtimes(c, filter)
	if err != nil {
		handleError(c, err, "ListShowtimes")
		return
	}
	c.JSON(http.StatusOK, showtimes)
}

func (h *ShowtimeHandler) Get(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	showtime, err := h.service.GetShowtime(c, id)
	if err != nil {
		handleError(c, err, "GetShowtime")
		return
	}
	// 公開端點不回傳座位明細（含 reserved_by），座位狀態改由 /seats 取得
	public := *showtime
	public.Seats = nil
	c.JSON(http.StatusOK, public)
}

func (h *ShowtimeHandler) GetSeatMap(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	seatMap, err := h.service.GetSeatMap(c, id)
	if err != nil {
		handleError(c, err, "GetSeatMap")
		return
	}
	c.JSON(http.StatusOK, seatMap)
}

func (h *ShowtimeHandler) Create(c *gin.Context) {
	var req model.CreateShowtimeRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	showtime, err := h.service.CreateShowtime(c, req)
	if err != nil {
		handleError(c, err, "CreateShowtime")
		return
	}
	c.JSON(http.StatusCreated, showtime)
}

func (h *ShowtimeHandler) Update(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var params model.UpdateShowtimeParams
	if err := BindJson(c, &params); err != nil {
		return
	}
	if params.Date == nil && params.StartTime == nil {
		abortWithError(c, http.StatusBadRequest, CodeValidation, "At least one of date or start_time is required")
		return
	}
	showtime, err := h.service.UpdateShowtime(c, id, params)
	if err != nil {
		handleError(c, err, "UpdateShowtime")
		return
	}
	c.JSON(http.StatusOK, showtime)
}

func (h *ShowtimeHandler) Delete(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteShowtime(c, id); err != nil {
		handleError(c, err, "DeleteShowtime")
		return
	}
	c.Status(http.StatusNoContent)
}
