package routes

import (
	"time"

	"sessionbook/handlers"
	"sessionbook/middleware"
	"sessionbook/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers the booking lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.ActorAuthMiddleware(hb.JWTSecret))
		api.GET("/availability", hb.Booking.CheckAvailabilityHandler)
		api.GET("", hb.Booking.ListBookingsHandler)
		api.GET("/:id", hb.Booking.GetBookingHandler)
		api.PATCH("/:id/status", hb.Booking.UpdateStatusHandler)
		api.POST("/:id/cancel", hb.Booking.CancelBookingHandler)
		api.POST("/:id/start", hb.Booking.StartBookingHandler)
		api.POST("/:id/attendance", hb.Booking.ConfirmAttendanceHandler)

		consumer := api.Group("")
		consumer.Use(middleware.RequireRole(models.RoleConsumer))
		consumer.POST("", hb.Booking.CreateBookingHandler)
		consumer.POST("/:id/verify-payment", hb.Payment.VerifyPaymentHandler)
		consumer.POST("/:id/otp", hb.Booking.RegenerateOTPHandler)
	}
}

// RegisterProviderRoutes registers provider reporting endpoints.
func RegisterProviderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/providers")
	{
		api.Use(middleware.ActorAuthMiddleware(hb.JWTSecret))
		api.Use(middleware.RequireRole(models.RoleProvider, models.RoleAdmin))
		api.GET("/:id/bookings/summary", hb.Booking.ProviderSummaryHandler)
	}
}

// RegisterPaymentRoutes registers gateway callbacks. They authenticate by signature, not JWT.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/payments")
	{
		api.POST("/webhook", hb.Payment.WebhookHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.ActorAuthMiddleware(hb.JWTSecret))
		adminGroup.Use(middleware.RequireRole(models.RoleAdmin))
		adminGroup.POST("/bookings/expire", hb.Admin.ExpireStaleHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health.HealthCheckHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(hb.MaxRequestsPerMin, hb.TrustedProxyHeaders...))

	RegisterHealthRoute(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterProviderRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}
