package http

import (
	"time"

	"github.com/campaign-vault/backend/internal/config"
	"github.com/campaign-vault/backend/internal/http/handlers"
	"github.com/campaign-vault/backend/internal/metrics"
	"github.com/campaign-vault/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	campaignHandler *handlers.CampaignHandler,
	contactHandler *handlers.ContactHandler,
	metaHandler *handlers.MetaHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api/v1")

	// Auth (public, rate-limited per IP)
	api.Post("/auth",
		middleware.RateLimitMiddleware(rdb, cfg.AuthRateLimit, time.Minute, log),
		authHandler.Login,
	)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret, log))

	protected.Get("/session", authHandler.Session)
	protected.Get("/mapping/fields", metaHandler.GetFields)

	// Campaigns
	protected.Post("/campaigns/preview", campaignHandler.PreviewCampaign)
	protected.Post("/campaigns", campaignHandler.CreateCampaign)
	protected.Get("/campaigns", campaignHandler.ListCampaigns)
	protected.Get("/campaigns/:id", campaignHandler.GetCampaign)
	protected.Delete("/campaigns/:id", campaignHandler.DeleteCampaign)

	// Contacts
	protected.Get("/campaigns/:id/contacts", contactHandler.ListContacts)
	protected.Get("/campaigns/:id/contacts/search", contactHandler.SearchContacts)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
