package handler

import (
	"fmt"
	"sync"

	"go-gin-cinema-reservation/internal/inventory"
	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/internal/schedule"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators 在 gin 的 validator 上註冊自訂 tag，可重複呼叫
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		err = registerTags(v)
	})
	return err
}

func registerTags(v *validator.Validate) error {
	tags := map[string]validator.Func{
		"clock":      validateClock,
		"isodate":    validateISODate,
		"seatnumber": validateSeatNumber,
		"genre":      validateGenre,
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

func validateClock(fl validator.FieldLevel) bool {
	return schedule.IsValidClock(fl.Field().String())
}

func validateISODate(fl validator.FieldLevel) bool {
	return schedule.IsValidDate(fl.Field().String())
}

func validateSeatNumber(fl validator.FieldLevel) bool {
	return inventory.IsValidSeatNumber(fl.Field().String())
}

func validateGenre(fl validator.FieldLevel) bool {
	return model.Genre(fl.Field().String()).IsValid()
}

// ValidationMessage 將 validator 錯誤轉成可讀訊息
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "clock":
		return "must be a time of day in HH:MM format"
	case "isodate":
		return "must be a date in YYYY-MM-DD format"
	case "seatnumber":
		return "must be a row letter followed by a seat number, e.g. A1"
	case "genre":
		return "must be one of Action, Comedy, Drama, Horror, Sci-Fi, Thriller"
	default:
		return "is invalid"
	}
}

func mustRegisterValidators() {
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}
