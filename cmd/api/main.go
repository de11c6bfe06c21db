package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/icedoutskay/grainlify/internal/config"
	"github.com/icedoutskay/grainlify/internal/db"
	"github.com/icedoutskay/grainlify/internal/events"
	apphttp "github.com/icedoutskay/grainlify/internal/http"
	"github.com/icedoutskay/grainlify/internal/http/handlers"
	"github.com/icedoutskay/grainlify/internal/repositories"
	"github.com/icedoutskay/grainlify/internal/services"
	"github.com/icedoutskay/grainlify/internal/ton"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// TON custody wallet
	api, err := ton.Connect(ctx, ton.ConnectConfig{
		Network:        cfg.TONNetwork,
		LiteServerHost: cfg.LiteServerHost,
		LiteServerPort: cfg.LiteServerPort,
		LiteServerKey:  cfg.LiteServerKey,
	}, log)
	if err != nil {
		log.Fatal("failed to connect to ton", zap.Error(err))
	}
	tokenClient, err := ton.NewClient(api, cfg.CustodyWalletSeed, log)
	if err != nil {
		log.Fatal("failed to open custody wallet", zap.Error(err))
	}

	// Repositories
	configRepo := repositories.NewConfigRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	scheduleRepo := repositories.NewScheduleRepo(pool)
	programRepo := repositories.NewProgramRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	clock := services.SystemClock{}
	escrowService := services.NewEscrowService(configRepo, escrowRepo, auditRepo, tokenClient, publisher, clock, cfg, log)
	scheduleService := services.NewScheduleService(configRepo, escrowRepo, scheduleRepo, auditRepo, tokenClient, publisher, clock, cfg, log)
	programService := services.NewProgramService(programRepo, auditRepo, tokenClient, publisher, clock, cfg, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(cfg, rdb, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, log)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService, log)
	programHandler := handlers.NewProgramHandler(programService, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, escrowHandler, scheduleHandler, programHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
