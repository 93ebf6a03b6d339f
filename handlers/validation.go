package handlers

import (
	"fmt"
	"sync"

	"sessionbook/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// registerValidators adds the booking-specific binding tags to gin's validator.
// Request structs depend on these tags, so a failed registration is fatal.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic(fmt.Sprintf("handlers: unexpected binding engine %T", binding.Validator.Engine()))
		}
		if err := registerBookingStatus(v); err != nil {
			panic(fmt.Sprintf("handlers: register bookingstatus: %v", err))
		}
	})
}

func registerBookingStatus(v *validator.Validate) error {
	return v.RegisterValidation("bookingstatus", func(fl validator.FieldLevel) bool {
		s := models.BookingStatus(fl.Field().String())
		for _, known := range models.AllStatuses {
			if s == known {
				return true
			}
		}
		return false
	})
}
