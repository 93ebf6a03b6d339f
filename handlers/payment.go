package handlers

import (
	"io"
	"net/http"

	"sessionbook/services/booking"
	"sessionbook/services/payment"
	"sessionbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

// WebhookParser authenticates a gateway callback. ok is false for event types we ignore.
type WebhookParser interface {
	ParseWebhook(payload []byte, sigHeader string) (payment.Confirmation, bool, error)
}

// PaymentHandler serves client-side payment verification and gateway callbacks.
type PaymentHandler struct {
	Service  booking.LifecycleService
	Webhooks WebhookParser
}

func NewPaymentHandler(svc booking.LifecycleService, webhooks WebhookParser) *PaymentHandler {
	return &PaymentHandler{Service: svc, Webhooks: webhooks}
}

type verifyPaymentRequest struct {
	OrderRef   string `json:"order_ref"`
	PaymentRef string `json:"payment_ref"`
	Signature  string `json:"signature" binding:"omitempty,hexadecimal"`
}

// VerifyPaymentHandler handles POST /api/bookings/:id/verify-payment.
func (h *PaymentHandler) VerifyPaymentHandler(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req verifyPaymentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	conf, err := h.Service.VerifyPayment(c.Request.Context(), actor, c.Param("id"), booking.VerifyRequest{
		OrderRef:   req.OrderRef,
		PaymentRef: req.PaymentRef,
		Signature:  req.Signature,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conf)
}

// WebhookHandler handles POST /api/payments/webhook.
func (h *PaymentHandler) WebhookHandler(c *gin.Context) {
	logger := getLogger(c)
	if h.Webhooks == nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "webhooks_disabled", "Payment webhooks are not configured", nil)
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, err)
		return
	}
	conf, ok, err := h.Webhooks.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logger.Warn("rejected payment webhook", zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, "invalid_signature", "Webhook signature verification failed", nil)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	res, err := h.Service.ConfirmFromGateway(c.Request.Context(), conf.OrderRef, conf.PaymentRef)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info("payment handled for gateway event",
		zap.String("bookingID", res.Booking.ID),
		zap.String("status", string(res.Booking.Status)),
		zap.Bool("replay", res.AlreadyConfirmed),
		zap.Bool("refunded", res.Refunded),
	)
	c.JSON(http.StatusOK, gin.H{
		"received":          true,
		"booking_id":        res.Booking.ID,
		"status":            res.Booking.Status,
		"already_confirmed": res.AlreadyConfirmed,
		"refunded":          res.Refunded,
	})
}
