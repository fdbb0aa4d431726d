package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// CheckoutRateLimit returns a fixed-window per-IP limiter for the two
// state-changing custody endpoints.  A printed QR code in a hallway
// invites repeated scanning; the limiter keeps a stuck phone from
// hammering the ledger.  With a nil Redis client the middleware is a
// pass-through.
func CheckoutRateLimit(rdb *redis.Client, perMinute int) echo.MiddlewareFunc {
	if rdb == nil || perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			window := time.Now().UTC().Unix() / 60
			key := fmt.Sprintf("rl:custody:%s:%d", c.RealIP(), window)
			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				// Redis down: let the request through, the engine is
				// the authority anyway.
				return next(c)
			}
			if n == 1 {
				_ = rdb.Expire(ctx, key, 2*time.Minute).Err()
			}
			if n > int64(perMinute) {
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
			}
			return next(c)
		}
	}
}
