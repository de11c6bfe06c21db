package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/icedoutskay/grainlify/internal/config"
	"github.com/icedoutskay/grainlify/internal/http/handlers"
	"github.com/icedoutskay/grainlify/internal/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	escrowHandler *handlers.EscrowHandler,
	scheduleHandler *handlers.ScheduleHandler,
	programHandler *handlers.ProgramHandler,
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

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/proof-payload", authHandler.ProofPayload)
	api.Post("/auth/wallet", authHandler.WalletAuth)

	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Escrow config
	protected.Post("/escrow/init", escrowHandler.Init)
	protected.Get("/escrow/config", escrowHandler.GetConfig)
	protected.Get("/escrow/balance", escrowHandler.GetBalance)

	// Bounty escrows
	protected.Post("/bounties", escrowHandler.Lock)
	protected.Post("/bounties/batch-lock", escrowHandler.BatchLock)
	protected.Post("/bounties/batch-release", escrowHandler.BatchRelease)
	protected.Get("/bounties/:id", escrowHandler.GetEscrow)
	protected.Get("/bounties/:id/full", escrowHandler.GetWithMetadata)
	protected.Post("/bounties/:id/release", escrowHandler.Release)
	protected.Post("/bounties/:id/refund", escrowHandler.Refund)
	protected.Get("/bounties/:id/metadata", escrowHandler.GetMetadata)
	protected.Put("/bounties/:id/metadata", escrowHandler.SetMetadata)
	protected.Get("/bounties/:id/events", escrowHandler.GetEvents)

	// Release schedules. Static segments are registered before :sid so
	// "pending" never parses as a schedule id.
	protected.Post("/bounties/:id/schedules", scheduleHandler.Create)
	protected.Get("/bounties/:id/schedules", scheduleHandler.ListAll)
	protected.Get("/bounties/:id/schedules/pending", scheduleHandler.GetPending)
	protected.Get("/bounties/:id/schedules/due", scheduleHandler.GetDue)
	protected.Get("/bounties/:id/schedules/history", scheduleHandler.GetHistory)
	protected.Get("/bounties/:id/schedules/:sid", scheduleHandler.Get)
	protected.Post("/bounties/:id/schedules/:sid/release", scheduleHandler.ReleaseManual)
	protected.Post("/bounties/:id/schedules/:sid/release-auto", scheduleHandler.ReleaseAutomatic)

	// Payout pool
	protected.Post("/program/init", programHandler.Init)
	protected.Post("/program/lock-funds", programHandler.LockFunds)
	protected.Post("/program/batch-payout", programHandler.BatchPayout)
	protected.Post("/program/payout", programHandler.SinglePayout)
	protected.Get("/program", programHandler.GetInfo)
	protected.Get("/program/full", programHandler.GetWithMetadata)
	protected.Get("/program/balance", programHandler.GetRemainingBalance)
	protected.Get("/program/metadata", programHandler.GetMetadata)
	protected.Put("/program/metadata", programHandler.SetMetadata)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
