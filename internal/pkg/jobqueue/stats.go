package jobqueue

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/velomart/velomart/internal/pkg/cache"
)

// WebhookStatsKey is the Redis hash holding per-status job counts.
const WebhookStatsKey = "webhook_queue_stats"

type redisStats struct {
	client *redis.Client
}

// NewRedisStats creates a stats recorder backed by the shared Redis client.
func NewRedisStats() StatsRecorder {
	return &redisStats{client: cache.GetClient()}
}

func (s *redisStats) Incr(status JobStatus, delta int64) {
	if err := s.client.HIncrBy(context.Background(), WebhookStatsKey, string(status), delta).Err(); err != nil {
		log.Errorf("[WebhookQueue] Failed to update queue stats: %v", err)
	}
}

// GetQueueStats reads the mirrored per-status counts from Redis.
func GetQueueStats(ctx context.Context) (map[JobStatus]int64, error) {
	stats, err := cache.GetClient().HGetAll(ctx, WebhookStatsKey).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[JobStatus]int64)
	for status, count := range stats {
		if v, err := strconv.ParseInt(count, 10, 64); err == nil {
			result[JobStatus(status)] = v
		}
	}
	return result, nil
}
