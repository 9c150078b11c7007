package handler

import (
	"go-gin-cinema-reservation/internal/middleware"
	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReservationHandler 使用者自己的訂位，全部需要登入
type ReservationHandler struct {
	service service.ReservationService
}

func NewReservationHandler(service service.ReservationService) *ReservationHandler {
	mustRegisterValidators()
	return &ReservationHandler{service: service}
}

func (h *ReservationHandler) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	router := r.Group("/api/v1", auth)
	{
		router.GET("reservations", h.List)
		router.POST("reservations", h.Create)
		router.PUT("reservations/:id/pay", h.Pay)
		router.DELETE("reservations/:id", h.Cancel)
	}
}

func currentUser(c *gin.Context) (int, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
		return 0, false
	}
	return userID, true
}

func (h *ReservationHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	reservations, err := h.service.ListUserReservations(c, userID)
	if err != nil {
		handleError(c, err, "ListUserReservations")
		return
	}
	c.JSON(http.StatusOK, reservations)
}

func (h *ReservationHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req model.CreateReservationRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	reservation, err := h.service.CreateReservation(c, userID, req)
	if err != nil {
		handleError(c, err, "CreateReservation")
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

func (h *ReservationHandler) Pay(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	reservation, err := h.service.PayReservation(c, id, userID)
	if err != nil {
		handleError(c, err, "PayReservation")
		return
	}
	c.JSON(http.StatusOK, reservation)
}

func (h *ReservationHandler) Cancel(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.CancelReservation(c, id, userID); err != nil {
		handleError(c, err, "CancelReservation")
		return
	}
	c.Status(http.StatusNoContent)
}
