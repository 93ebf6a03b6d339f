package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Comma separated headers a fronting proxy sets with the client IP.
	TrustedProxyHeaders string `mapstructure:"TRUSTED_PROXY_HEADERS"`

	// Storage.
	StoreDriver  string `mapstructure:"STORE_DRIVER"` // "mongo" or "memory"
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisNotifyDB int    `mapstructure:"REDIS_NOTIFY_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Event delivery.
	EventSink    string `mapstructure:"EVENT_SINK"` // "asynq", "kafka" or "log"
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	// Payment gateway.
	StripeKey            string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret  string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	PaymentSigningSecret string `mapstructure:"PAYMENT_SIGNING_SECRET"`
	Currency             string `mapstructure:"CURRENCY"`

	// Pricing collaborator.
	HourlyRate      float64 `mapstructure:"HOURLY_RATE"`
	PlatformFeeRate float64 `mapstructure:"PLATFORM_FEE_RATE"`

	// Lifecycle tuning.
	PendingPaymentTTL    time.Duration `mapstructure:"PENDING_PAYMENT_TTL"`
	OTPTTL               time.Duration `mapstructure:"OTP_TTL"`
	ConflictWindow       time.Duration `mapstructure:"CONFLICT_WINDOW"`
	SlotBucket           time.Duration `mapstructure:"SLOT_BUCKET"`
	SweepSchedule        string        `mapstructure:"SWEEP_SCHEDULE"`
	SweepBatch           int           `mapstructure:"SWEEP_BATCH"`
	GeofenceRadiusMeters float64       `mapstructure:"GEOFENCE_RADIUS_METERS"`
}

var AppConfig Config

func LoadConfig() {
	// A local .env is optional; real environments inject variables directly.
	_ = godotenv.Load()

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("TRUSTED_PROXY_HEADERS", "X-Forwarded-For,X-Real-IP")

	viper.SetDefault("STORE_DRIVER", "mongo")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "sessionbook")

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_NOTIFY_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)

	viper.SetDefault("EVENT_SINK", "asynq")
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("KAFKA_TOPIC", "booking-events")

	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("PAYMENT_SIGNING_SECRET", "")
	viper.SetDefault("CURRENCY", "inr")

	viper.SetDefault("HOURLY_RATE", 1000.0)
	viper.SetDefault("PLATFORM_FEE_RATE", 0.05)

	viper.SetDefault("PENDING_PAYMENT_TTL", "30m")
	viper.SetDefault("OTP_TTL", "30m")
	viper.SetDefault("CONFLICT_WINDOW", "12h")
	viper.SetDefault("SLOT_BUCKET", "15m")
	viper.SetDefault("SWEEP_SCHEDULE", "@every 1m")
	viper.SetDefault("SWEEP_BATCH", 200)
	viper.SetDefault("GEOFENCE_RADIUS_METERS", 200.0)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// KafkaBrokerList splits the comma separated broker list.
func KafkaBrokerList() []string {
	return splitList(AppConfig.KafkaBrokers)
}

// TrustedProxyHeaderList splits TRUSTED_PROXY_HEADERS; empty trusts none.
func TrustedProxyHeaderList() []string {
	return splitList(AppConfig.TrustedProxyHeaders)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
