package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sessionbook/config"
	"sessionbook/cron"
	"sessionbook/database"
	bookingRepo "sessionbook/database/repository/booking"
	couponRepo "sessionbook/database/repository/coupon"
	memoryRepo "sessionbook/database/repository/memory"
	"sessionbook/handlers"
	"sessionbook/routes"
	"sessionbook/services/booking"
	"sessionbook/services/coupon"
	"sessionbook/services/events"
	"sessionbook/services/notification"
	"sessionbook/services/payment"
	"sessionbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type stores struct {
	bookings bookingRepo.BookingRepository
	claims   bookingRepo.SlotClaimRepository
	coupons  couponRepo.CouponRepository
	mongo    *mongo.Client
}

func openStores(logger *zap.Logger) stores {
	if config.AppConfig.StoreDriver == "memory" {
		logger.Warn("main: using in-memory store; data is lost on restart")
		return stores{
			bookings: memoryRepo.NewBookingRepo(),
			claims:   memoryRepo.NewSlotClaimRepo(),
			coupons:  memoryRepo.NewCouponRepo(),
		}
	}

	database.InitDB()
	db := database.DB()
	bookings, err := bookingRepo.NewMongoBookingRepo(db)
	if err != nil {
		logger.Fatal("main: failed to prepare bookings collection", zap.Error(err))
	}
	claims, err := bookingRepo.NewMongoSlotClaimRepo(db)
	if err != nil {
		logger.Fatal("main: failed to prepare slot claims collection", zap.Error(err))
	}
	coupons, err := couponRepo.NewMongoCouponRepo(db)
	if err != nil {
		logger.Fatal("main: failed to prepare coupons collection", zap.Error(err))
	}
	return stores{bookings: bookings, claims: claims, coupons: coupons, mongo: database.MongoClient}
}

// openGateway picks Stripe when a key is configured and the local sandbox otherwise.
func openGateway(logger *zap.Logger) (payment.Gateway, handlers.WebhookParser) {
	cfg := config.AppConfig
	if cfg.StripeKey == "" {
		if config.IsProduction() {
			logger.Fatal("main: STRIPE_KEY is required in production")
		}
		logger.Warn("main: no STRIPE_KEY, using sandbox payment gateway")
		return payment.NewSandboxGateway(cfg.PaymentSigningSecret), nil
	}
	stripe.Key = cfg.StripeKey
	gw := payment.NewStripeGateway(cfg.PaymentSigningSecret, cfg.StripeWebhookSecret, logger)
	if cfg.StripeWebhookSecret == "" {
		return gw, nil
	}
	return gw, gw
}

func queueRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()
	cfg := config.AppConfig

	st := openStores(logger)
	gateway, webhooks := openGateway(logger)

	var (
		publisher events.Publisher
		closers   []func() error
		worker    *cron.EventWorker
		notify    *redis.Client
	)
	switch cfg.EventSink {
	case "asynq":
		p := events.NewAsynqPublisher(queueRedisOpt())
		publisher = p
		closers = append(closers, p.Close)

		notify = utils.GetNotifyClient()
		notifier, err := notification.NewRedisNotifier(notify)
		if err != nil {
			logger.Fatal("main: notification setup failed", zap.Error(err))
		}
		worker = cron.NewEventWorker(queueRedisOpt(), notifier, logger)
	case "kafka":
		p := events.NewKafkaPublisher(config.KafkaBrokerList(), cfg.KafkaTopic)
		publisher = p
		closers = append(closers, p.Close)
	default:
		publisher = events.NewLogPublisher(logger)
	}

	opts := booking.Options{
		PendingPaymentTTL:      cfg.PendingPaymentTTL,
		OTPTTL:                 cfg.OTPTTL,
		ConflictWindow:         cfg.ConflictWindow,
		SlotBucket:             cfg.SlotBucket,
		SweepBatch:             cfg.SweepBatch,
		GeofenceRadiusMeters:   cfg.GeofenceRadiusMeters,
		Currency:               cfg.Currency,
		AllowPlaceholderOrders: !config.IsProduction(),
	}
	bookingService, err := booking.NewService(booking.Dependencies{
		Bookings:  st.bookings,
		Claims:    st.claims,
		Coupons:   coupon.NewService(st.coupons, logger),
		Gateway:   gateway,
		Pricer:    booking.FlatRatePricer{HourlyRate: cfg.HourlyRate, FeeRate: cfg.PlatformFeeRate},
		Publisher: publisher,
		Logger:    logger,
	}, opts)
	if err != nil {
		logger.Fatal("main: booking service setup failed", zap.Error(err))
	}

	sweeper, err := cron.NewSweeper(bookingService, cfg.SweepSchedule, logger)
	if err != nil {
		logger.Fatal("main: invalid SWEEP_SCHEDULE", zap.String("schedule", cfg.SweepSchedule), zap.Error(err))
	}
	sweeper.Start()
	if worker != nil {
		worker.Start()
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	utils.StartHealthMonitor(bgCtx, notify, st.mongo)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	handlerBundle := handlers.NewHandlerBundle(bookingService, webhooks, cfg.JWTSecret, cfg.MaxRequestsPerMin)
	handlerBundle.TrustedProxyHeaders = config.TrustedProxyHeaderList()
	routes.RegisterRoutes(router, handlerBundle)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}

	sweeper.Stop()
	if worker != nil {
		worker.Shutdown()
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("main: close failed", zap.Error(err))
		}
	}
	if err := database.Close(ctx); err != nil {
		logger.Warn("main: mongo disconnect failed", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
