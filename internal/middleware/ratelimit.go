package middleware

import (
	"fmt"
	"time"

	"github.com/campaign-vault/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitMiddleware counts requests per path and client IP in fixed
// windows. With no Redis client, or when Redis errors, requests pass.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || limit <= 0 {
			return c.Next()
		}
		key := fmt.Sprintf("rl:%s:%s", c.Path(), c.IP())

		ctx := c.UserContext()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit check failed", zap.Error(err))
			return c.Next() // fail open
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Error: "rate limit exceeded"})
		}

		return c.Next()
	}
}
