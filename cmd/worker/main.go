package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/icedoutskay/grainlify/internal/config"
	"github.com/icedoutskay/grainlify/internal/db"
	"github.com/icedoutskay/grainlify/internal/events"
	"github.com/icedoutskay/grainlify/internal/repositories"
	"github.com/icedoutskay/grainlify/internal/services"
	"github.com/icedoutskay/grainlify/internal/ton"
	"go.uber.org/zap"
)

// The worker sweeps due release schedules on a fixed interval. Releases are
// attributed to cfg.SchedulerPrincipal in the audit trail.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

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

	configRepo := repositories.NewConfigRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	scheduleRepo := repositories.NewScheduleRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	publisher := events.NewRedisPublisher(rdb, log)
	scheduleService := services.NewScheduleService(configRepo, escrowRepo, scheduleRepo, auditRepo, tokenClient, publisher, services.SystemClock{}, cfg, log)

	log.Info("worker started", zap.Duration("interval", cfg.SchedulerInterval))

	ticker := time.NewTicker(cfg.SchedulerInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			released, err := scheduleService.ReleaseDue(ctx, cfg.SchedulerPrincipal)
			if err != nil {
				log.Error("sweep failed", zap.Error(err))
				continue
			}
			if released > 0 {
				log.Info("released due schedules", zap.Int("count", released))
			}
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
