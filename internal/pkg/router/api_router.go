package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/velomart/velomart/app/controllers"
	"github.com/velomart/velomart/internal/pkg/cache"
	"github.com/velomart/velomart/internal/pkg/env"
	"github.com/velomart/velomart/internal/pkg/middleware"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Storage:    newLimiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	paymentController := controllers.NewPaymentControllerFromGlobals()
	subscriptionController := controllers.NewSubscriptionControllerFromGlobals()
	adminWebhookController := controllers.NewAdminWebhookControllerFromGlobals()
	metricsController := controllers.NewMetricsControllerFromGlobals()

	// Provider callback. Authenticated by signature, not by API key.
	v1.Post("/payments/webhook/paystack", paymentController.HandlePaystackWebhook)

	// Checkout operations for authenticated users.
	payments := v1.Group("/payments", middleware.APIKeyAuthMiddleware())
	payments.Post("/initialize", paymentController.HandleInitializePayment)
	payments.Get("/verify/:reference", paymentController.HandleVerifyPayment)

	subscriptions := v1.Group("/subscriptions", middleware.APIKeyAuthMiddleware())
	subscriptions.Post("/initialize", subscriptionController.HandleInitializeSubscription)

	v1.Get("/metrics", metricsController.HandleMetrics)

	// Admin surface.
	admin := v1.Group("/admin", middleware.APIKeyAuthMiddleware(), middleware.RequireAdmin())
	admin.Get("/webhooks/deadletters", adminWebhookController.HandleListDeadLetters)
	admin.Post("/webhooks/deadletters/:id/reprocess", adminWebhookController.HandleReprocessDeadLetter)
	admin.Delete("/webhooks/deadletters/:id", adminWebhookController.HandleDeleteDeadLetter)
	admin.Get("/webhooks/queue", adminWebhookController.HandleQueueStats)
	admin.Get("/revenue", metricsController.HandleListRevenue)
}

// newLimiterStorage backs the rate limiter with the shared Redis instance so
// limits hold across replicas. Database 1 keeps limiter keys out of the cache.
func newLimiterStorage() *redis.Storage {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}
