package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeSeatNotFound       = "SEAT_NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeSeatUnavailable    = "SEAT_UNAVAILABLE"
	CodeInvalidState       = "INVALID_STATE"
	CodeSchedulingConflict = "SCHEDULING_CONFLICT"
	CodeConcurrentUpdate   = "CONCURRENT_UPDATE"
	CodeMovieInUse         = "MOVIE_IN_USE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL"
)

// ErrorResponse 所有錯誤回應的格式
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details any               `json:"details,omitempty"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}

func respondBindError(c *gin.Context, err error) {
	resp := ErrorResponse{Error: "Invalid request format", Code: CodeValidation}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			resp.Fields[fe.Field()] = ValidationMessage(fe)
		}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondBindError(c, err)
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		respondBindError(c, err)
		return err
	}
	return nil
}

// ParamID 解析路徑中的正整數 id，失敗時已寫入 400
func ParamID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		abortWithError(c, http.StatusBadRequest, CodeValidation, "Invalid "+name)
		return 0, false
	}
	return id, true
}
