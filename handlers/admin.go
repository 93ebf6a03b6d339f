package handlers

import (
	"net/http"
	"time"

	"sessionbook/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler encapsulates elevated admin-level operations.
type AdminHandler struct {
	Service booking.LifecycleService
	Now     func() time.Time
}

func NewAdminHandler(svc booking.LifecycleService) *AdminHandler {
	return &AdminHandler{Service: svc, Now: time.Now}
}

// ExpireStaleHandler handles POST /api/admin/bookings/expire and runs one sweep.
func (ah *AdminHandler) ExpireStaleHandler(c *gin.Context) {
	n, err := ah.Service.ExpireStaleBookings(c.Request.Context(), ah.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	zap.L().Info("manual expiry sweep", zap.Int("expired", n))
	c.JSON(http.StatusOK, gin.H{"expired": n})
}
