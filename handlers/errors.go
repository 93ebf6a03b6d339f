package handlers

import (
	"errors"
	"net/http"

	"sessionbook/middleware"
	"sessionbook/models"
	"sessionbook/services/booking"
	"sessionbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var kindStatus = map[booking.Kind]int{
	booking.KindNotFound:          http.StatusNotFound,
	booking.KindInvalidInput:      http.StatusBadRequest,
	booking.KindPermissionDenied:  http.StatusForbidden,
	booking.KindInvalidTransition: http.StatusConflict,
	booking.KindSlotUnavailable:   http.StatusConflict,
	booking.KindPaymentFailed:     http.StatusPaymentRequired,
	booking.KindInternal:          http.StatusInternalServerError,
}

// respondError maps a booking error onto its HTTP status and body.
func respondError(c *gin.Context, err error) {
	kind := booking.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := "Internal Server Error"
	var details map[string]string
	var be *booking.Error
	if errors.As(err, &be) && kind != booking.KindInternal {
		message = be.Message
		details = be.Details
	}
	if status >= http.StatusInternalServerError {
		getLogger(c).Error("booking operation failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	utils.JSONError(c, status, string(kind), message, details)
}

func badRequest(c *gin.Context, err error) {
	utils.JSONError(c, http.StatusBadRequest, string(booking.KindInvalidInput), "invalid input",
		map[string]string{"reason": err.Error()})
}

// mustActor returns the caller; routes are always mounted behind the auth middleware.
func mustActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "Missing caller identity", nil)
	}
	return actor, ok
}
