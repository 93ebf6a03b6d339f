package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"sessionbook/models"
	"sessionbook/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking lifecycle over HTTP.
type BookingHandler struct {
	Service booking.LifecycleService
}

func NewBookingHandler(svc booking.LifecycleService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

type createBookingRequest struct {
	ProviderID      string             `json:"provider_id" binding:"required"`
	Mode            models.BookingMode `json:"mode" binding:"required,oneof=instant request"`
	ScheduledStart  time.Time          `json:"scheduled_start" binding:"required"`
	DurationMinutes int                `json:"duration_minutes" binding:"required,gt=0"`
	Latitude        *float64           `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude       *float64           `json:"longitude" binding:"omitempty,min=-180,max=180"`
	CouponCode      string             `json:"coupon_code" binding:"omitempty,max=64"`
}

type availabilityQuery struct {
	ProviderID      string    `form:"provider_id" binding:"required"`
	Start           time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	DurationMinutes int       `form:"duration_minutes" binding:"required,gt=0"`
}

type listQuery struct {
	Status     []string `form:"status" binding:"omitempty,dive,bookingstatus"`
	ConsumerID string   `form:"consumer_id"`
	ProviderID string   `form:"provider_id"`
	Page       int      `form:"page" binding:"omitempty,min=1"`
	Limit      int      `form:"limit" binding:"omitempty,min=1,max=100"`
}

type statusRequest struct {
	Status models.BookingStatus `json:"status" binding:"required,bookingstatus"`
	Reason string               `json:"reason" binding:"max=500"`
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type startRequest struct {
	OTP       string   `json:"otp" binding:"omitempty,numeric,len=6"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
}

type attendanceRequest struct {
	Party models.Role `json:"party" binding:"omitempty,oneof=consumer provider"`
}

// bindOptionalJSON accepts an empty body for endpoints whose fields are all optional.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// CreateBookingHandler handles POST /api/bookings.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	in := booking.CreateRequest{
		ProviderID:      req.ProviderID,
		Mode:            req.Mode,
		ScheduledStart:  req.ScheduledStart,
		DurationMinutes: req.DurationMinutes,
		CouponCode:      req.CouponCode,
	}
	if req.Latitude != nil && req.Longitude != nil {
		in.Location = models.NewGeoPoint(*req.Latitude, *req.Longitude)
	}

	res, err := h.Service.CreateBooking(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("booking created", zap.String("bookingID", res.Booking.ID), zap.String("status", string(res.Booking.Status)))
	c.JSON(http.StatusCreated, res)
}

// CheckAvailabilityHandler handles GET /api/bookings/availability.
func (h *BookingHandler) CheckAvailabilityHandler(c *gin.Context) {
	var q availabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	avail, err := h.Service.CheckAvailability(c.Request.Context(), q.ProviderID, q.Start, time.Duration(q.DurationMinutes)*time.Minute)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

// GetBookingHandler handles GET /api/bookings/:id.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	b, err := h.Service.GetBooking(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListBookingsHandler handles GET /api/bookings.
func (h *BookingHandler) ListBookingsHandler(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	statuses := make([]models.BookingStatus, 0, len(q.Status))
	for _, s := range q.Status {
		statuses = append(statuses, models.BookingStatus(s))
	}
	page, err := h.Service.ListBookings(c.Request.Context(), actor, booking.ListQuery{
		Statuses:   statuses,
		ConsumerID: q.ConsumerID,
		ProviderID: q.ProviderID,
		Page:       q.Page,
		Limit:      q.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// UpdateStatusHandler handles PATCH /api/bookings/:id/status.
func (h *BookingHandler) UpdateStatusHandler(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.Service.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req.Status, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBookingHandler handles POST /api/bookings/:id/cancel.
func (h *BookingHandler) CancelBookingHandler(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req cancelRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.Service.CancelBooking(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// RegenerateOTPHandler handles POST /api/bookings/:id/otp.
func (h *BookingHandler) RegenerateOTPHandler(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	grant, err := h.Service.RegenerateOTP(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

// StartBookingHandler handles POST /api/bookings/:id/start.
func (h *BookingHandler) StartBookingHandler(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req startRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.Service.StartBooking(c.Request.Context(), actor, c.Param("id"), booking.StartRequest{
		OTP:       req.OTP,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ConfirmAttendanceHandler handles POST /api/bookings/:id/attendance.
// Consumers and providers confirm for themselves; admins must name the party.
func (h *BookingHandler) ConfirmAttendanceHandler(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req attendanceRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	party := req.Party
	if party == "" {
		party = actor.Role
	}
	res, err := h.Service.ConfirmAttendance(c.Request.Context(), actor, c.Param("id"), party)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ProviderSummaryHandler handles GET /api/providers/:id/bookings/summary.
func (h *BookingHandler) ProviderSummaryHandler(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	summary, err := h.Service.ProviderSummary(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
