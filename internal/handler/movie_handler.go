package handler

import (
	"go-gin-cinema-reservation/internal/middleware"
	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type MovieHandler struct {
	service service.MovieService
}

func NewMovieHandler(service service.MovieService) *MovieHandler {
	mustRegisterValidators()
	return &MovieHandler{service: service}
}

func (h *MovieHandler) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	router := r.Group("/api/v1")
	{
		router.GET("movies", h.List)
		router.GET("movies/:id", h.Get)
	}
	admin := r.Group("/api/v1/admin", auth, middleware.RequireAdmin())
	{
		admin.POST("movies", h.Create)
		admin.DELETE("movies/:id", h.Delete)
	}
}

func (h *MovieHandler) List(c *gin.Context) {
	movies, err := h.service.List(c)
	if err != nil {
		handleError(c, err, "ListMovies")
		return
	}
	c.JSON(http.StatusOK, movies)
}

func (h *MovieHandler) Get(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	movie, err := h.service.Get(c, id)
	if err != nil {
		handleError(c, err, "GetMovie")
		return
	}
	c.JSON(http.StatusOK, movie)
}

func (h *MovieHandler) Create(c *gin.Context) {
	var req model.CreateMovieRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	movie, err := h.service.Create(c, req)
	if err != nil {
		handleError(c, err, "CreateMovie")
		return
	}
	c.JSON(http.StatusCreated, movie)
}

func (h *MovieHandler) Delete(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c, id); err != nil {
		handleError(c, err, "DeleteMovie")
		return
	}
	c.Status(http.StatusNoContent)
}
