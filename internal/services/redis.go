package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// NotificationChannel is the pub/sub channel notification events fan out on.
const NotificationChannel = "notifications:events"

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// PublishNotification publishes a notification event to Redis pub/sub
func PublishNotification(ctx context.Context, userID uint, notificationID uint, notificationType, message string) error {
	if RedisClient == nil {
		return nil
	}

	event := map[string]interface{}{
		"userId":         userID,
		"notificationId": notificationID,
		"type":           notificationType,
		"message":        message,
		"timestamp":      time.Now().Unix(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, NotificationChannel, data).Err()
}

// SetUnreadCount caches a user's unread notification count
func SetUnreadCount(ctx context.Context, userID uint, count int64) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf("notifications:unread:%d", userID)
	return RedisClient.Set(ctx, key, count, time.Hour).Err()
}

// InvalidateUnreadCount drops the cached count after a mutation
func InvalidateUnreadCount(ctx context.Context, userID uint) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf("notifications:unread:%d", userID)
	return RedisClient.Del(ctx, key).Err()
}
