package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/handler"
	"github.com/iliyamo/travel-booking/internal/metrics"
	"github.com/iliyamo/travel-booking/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterPayments mounts the payment endpoints under /api behind the
// Redis token bucket.  The verify route is also reachable with the
// reference in the query string, which is how the gateway redirects the
// customer back to the callback URL.
func RegisterPayments(e *echo.Echo, p *handler.PaymentHandler, rl config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/api", middleware.NewTokenBucket(rl, rdb))
	g.POST("/initiate-payment/", p.Initiate)
	g.GET("/verify-payment/", p.Verify)
	g.GET("/verify-payment/:tx_ref", p.Verify)
}

// RegisterOps mounts ADMIN-only endpoints.
func RegisterOps(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/api/bookings", middleware.JWTAuth(jwtSecret), middleware.RequireRole("ADMIN"))
	g.POST("/:id/confirmation", b.SendConfirmation)
}
