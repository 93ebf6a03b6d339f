// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"sessionbook/config"

	"github.com/go-redis/redis/v8"
)

// NotifyClient is the Redis client used for notification fan-out.
var NotifyClient *redis.Client

// InitNotifyCache initializes the Redis client used by the notification publisher.
func InitNotifyCache() {
	NotifyClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisNotifyDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NotifyClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Notify): %v", err)
	}
}

// GetNotifyClient returns the notification Redis client.
func GetNotifyClient() *redis.Client {
	if NotifyClient == nil {
		InitNotifyCache()
	}
	return NotifyClient
}
