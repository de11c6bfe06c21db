package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/icedoutskay/grainlify/internal/config"
	"github.com/icedoutskay/grainlify/internal/db"
	"github.com/icedoutskay/grainlify/internal/events"
	"github.com/icedoutskay/grainlify/internal/repositories"
	"github.com/icedoutskay/grainlify/internal/services"
	grainton "github.com/icedoutskay/grainlify/internal/ton"
	"github.com/redis/go-redis/v9"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"go.uber.org/zap"
)

const (
	redisCursorLT   = "deposit-watcher:cursor:lt"
	redisCursorHash = "deposit-watcher:cursor:hash"
	redisProcessed  = "deposit-watcher:tx:"
	processedTTL    = 7 * 24 * time.Hour
	txBatchSize     = 100

	programMemoPrefix = "program:"
	bountyMemoPrefix  = "bounty:"
)

// The deposit watcher closes the loop on incoming transfers. Lock operations
// in the API only record intent; the actual tokens arrive at the custody
// wallet out-of-band with a memo naming the target. The watcher polls the
// custody account, credits program deposits, and publishes a deposit event
// for every recognized transfer.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.CustodyWalletAddress == "" {
		log.Fatal("CUSTODY_WALLET_ADDRESS is required")
	}

	custody, err := address.ParseAddr(cfg.CustodyWalletAddress)
	if err != nil {
		log.Fatal("invalid CUSTODY_WALLET_ADDRESS", zap.String("addr", cfg.CustodyWalletAddress), zap.Error(err))
	}

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

	programRepo := repositories.NewProgramRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)

	tonAPI, err := grainton.Connect(ctx, grainton.ConnectConfig{
		Network:        cfg.TONNetwork,
		LiteServerHost: cfg.LiteServerHost,
		LiteServerPort: cfg.LiteServerPort,
		LiteServerKey:  cfg.LiteServerKey,
	}, log)
	if err != nil {
		log.Fatal("failed to connect to TON network", zap.Error(err))
	}

	// The watcher never signs transfers, so no wallet client is needed.
	// ProgramService is used only for LockFunds, which records deposits.
	programService := services.NewProgramService(programRepo, auditRepo, nil, publisher, services.SystemClock{}, cfg, log)

	log.Info("deposit watcher started",
		zap.String("custody", custody.String()),
		zap.String("network", cfg.TONNetwork),
	)

	initCursor(ctx, tonAPI, custody, rdb, log)

	ticker := time.NewTicker(cfg.WatcherPollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := pollAndProcess(ctx, tonAPI, custody, programService, escrowRepo, publisher, rdb, log); err != nil {
				log.Error("poll cycle failed", zap.Error(err))
			}
		case <-sigCh:
			log.Info("shutting down deposit watcher")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// initCursor sets the initial cursor position on first run. It stores the
// current account LastTxLT so that only transactions arriving after startup
// are processed.
func initCursor(ctx context.Context, api ton.APIClientWrapped, addr *address.Address, rdb *redis.Client, log *zap.Logger) {
	existing, _ := rdb.Get(ctx, redisCursorLT).Result()
	if existing != "" {
		log.Info("resuming from saved cursor", zap.String("lt", existing))
		return
	}

	block, err := api.CurrentMasterchainInfo(ctx)
	if err != nil {
		log.Warn("failed to get master block for cursor init", zap.Error(err))
		rdb.Set(ctx, redisCursorLT, "0", 0)
		return
	}

	account, err := api.GetAccount(ctx, block, addr)
	if err != nil {
		log.Warn("failed to get account for cursor init", zap.Error(err))
		rdb.Set(ctx, redisCursorLT, "0", 0)
		return
	}

	if account == nil || !account.IsActive || account.LastTxLT == 0 {
		log.Info("custody wallet not active yet, starting from LT=0")
		rdb.Set(ctx, redisCursorLT, "0", 0)
		return
	}

	saveCursor(ctx, rdb, account.LastTxLT, account.LastTxHash)
	log.Info("cursor initialized at current account state (skipping historical transactions)",
		zap.Uint64("lt", account.LastTxLT),
		zap.String("hash", hex.EncodeToString(account.LastTxHash)),
	)
}

func loadCursorLT(ctx context.Context, rdb *redis.Client) uint64 {
	val, err := rdb.Get(ctx, redisCursorLT).Result()
	if err != nil || val == "" {
		return 0
	}
	lt, _ := strconv.ParseUint(val, 10, 64)
	return lt
}

func saveCursor(ctx context.Context, rdb *redis.Client, lt uint64, hash []byte) {
	rdb.Set(ctx, redisCursorLT, strconv.FormatUint(lt, 10), 0)
	rdb.Set(ctx, redisCursorHash, hex.EncodeToString(hash), 0)
}

// pollAndProcess runs a single poll cycle: read the account's latest state,
// fetch all transactions newer than the cursor, process incoming transfers,
// then advance the cursor.
func pollAndProcess(
	ctx context.Context,
	api ton.APIClientWrapped,
	addr *address.Address,
	programService *services.ProgramService,
	escrowRepo *repositories.EscrowRepo,
	publisher events.Publisher,
	rdb *redis.Client,
	log *zap.Logger,
) error {
	cursorLT := loadCursorLT(ctx, rdb)

	block, err := api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return fmt.Errorf("get master block: %w", err)
	}

	account, err := api.GetAccount(ctx, block, addr)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	if account == nil || !account.IsActive || account.LastTxLT == 0 {
		return nil
	}

	if account.LastTxLT <= cursorLT {
		return nil
	}

	newTxs, err := fetchNewTransactions(ctx, api, addr, account, cursorLT)
	if err != nil {
		return fmt.Errorf("fetch transactions: %w", err)
	}

	if len(newTxs) > 0 {
		log.Info("found new transactions", zap.Int("count", len(newTxs)))
		for _, tx := range newTxs {
			processIncomingTx(ctx, tx, programService, escrowRepo, publisher, rdb, log)
		}
	}

	saveCursor(ctx, rdb, account.LastTxLT, account.LastTxHash)
	return nil
}

// fetchNewTransactions retrieves all transactions with LT > cursorLT.
// ListTransactions paginates backwards; results are returned in
// chronological order.
func fetchNewTransactions(
	ctx context.Context,
	api ton.APIClientWrapped,
	addr *address.Address,
	account *tlb.Account,
	cursorLT uint64,
) ([]*tlb.Transaction, error) {
	var allTxs []*tlb.Transaction

	lt := account.LastTxLT
	hash := account.LastTxHash

	for {
		txs, err := api.ListTransactions(ctx, addr, uint32(txBatchSize), lt, hash)
		if err != nil {
			return nil, fmt.Errorf("list transactions (lt=%d): %w", lt, err)
		}
		if len(txs) == 0 {
			break
		}

		reachedCursor := false
		for _, tx := range txs {
			if tx.LT <= cursorLT {
				reachedCursor = true
				continue
			}
			allTxs = append(allTxs, tx)
		}

		if reachedCursor || len(txs) < txBatchSize {
			break
		}

		oldest := txs[0]
		if oldest.PrevTxLT == 0 {
			break
		}
		lt = oldest.PrevTxLT
		hash = oldest.PrevTxHash
	}

	sort.Slice(allTxs, func(i, j int) bool {
		return allTxs[i].LT < allTxs[j].LT
	})

	return allTxs, nil
}

// processIncomingTx handles a single incoming transfer. The memo names the
// target: "program:<id>" credits the payout pool, "bounty:<id>" confirms an
// escrow deposit. Unrecognized memos are recorded and skipped.
func processIncomingTx(
	ctx context.Context,
	tx *tlb.Transaction,
	programService *services.ProgramService,
	escrowRepo *repositories.EscrowRepo,
	publisher events.Publisher,
	rdb *redis.Client,
	log *zap.Logger,
) {
	if tx.IO.In == nil {
		return
	}

	inMsg, ok := tx.IO.In.Msg.(*tlb.InternalMessage)
	if !ok || inMsg == nil {
		return
	}

	if inMsg.Bounced {
		return
	}

	if inMsg.Amount.Nano().Sign() <= 0 {
		return
	}

	memo := grainton.ExtractComment(inMsg)
	if memo == "" {
		log.Debug("transfer without memo, skipping",
			zap.Uint64("lt", tx.LT),
			zap.String("from", inMsg.SrcAddr.String()),
			zap.String("amount", inMsg.Amount.String()),
		)
		return
	}

	// Idempotency: skip if already processed
	txKey := fmt.Sprintf("%s%d", redisProcessed, tx.LT)
	if rdb.Exists(ctx, txKey).Val() > 0 {
		return
	}

	fromAddr := inMsg.SrcAddr.String()
	amountNano := inMsg.Amount.Nano().Int64()

	log.Info("incoming deposit detected",
		zap.Uint64("lt", tx.LT),
		zap.String("from", fromAddr),
		zap.String("amount", inMsg.Amount.String()),
		zap.String("memo", memo),
	)

	switch {
	case strings.HasPrefix(memo, programMemoPrefix):
		programID := strings.TrimPrefix(memo, programMemoPrefix)

		info, err := programService.GetInfo(ctx)
		if err != nil {
			log.Warn("program deposit before init, leaving unprocessed", zap.String("memo", memo), zap.Error(err))
			return
		}
		if info.ProgramID != programID {
			log.Warn("deposit memo names unknown program",
				zap.String("memo_program", programID),
				zap.String("program", info.ProgramID),
			)
			rdb.Set(ctx, txKey, "unknown_program", processedTTL)
			return
		}

		if err := programService.LockFunds(ctx, fromAddr, amountNano); err != nil {
			log.Error("failed to credit program deposit",
				zap.Uint64("lt", tx.LT),
				zap.Int64("amount", amountNano),
				zap.Error(err),
			)
			return
		}
		rdb.Set(ctx, txKey, "program:"+programID, processedTTL)

	case strings.HasPrefix(memo, bountyMemoPrefix):
		bountyID, err := strconv.ParseUint(strings.TrimPrefix(memo, bountyMemoPrefix), 10, 64)
		if err != nil {
			log.Warn("malformed bounty memo", zap.String("memo", memo))
			rdb.Set(ctx, txKey, "malformed_memo", processedTTL)
			return
		}

		escrow, err := escrowRepo.Get(ctx, bountyID)
		if err != nil {
			log.Debug("no escrow for deposit memo", zap.Uint64("bounty_id", bountyID))
			rdb.Set(ctx, txKey, "no_escrow", processedTTL)
			return
		}

		if amountNano < escrow.Amount {
			log.Warn("deposit below escrow amount",
				zap.Uint64("bounty_id", bountyID),
				zap.Int64("received", amountNano),
				zap.Int64("expected", escrow.Amount),
			)
			// Not marked processed: the depositor may send the remainder
			return
		}

		_ = publisher.Publish(ctx, events.StreamEscrow, events.Event{
			Type: events.EventDepositDetected,
			Payload: map[string]any{
				"bounty_id": bountyID,
				"tx_lt":     tx.LT,
				"amount":    amountNano,
				"from":      fromAddr,
			},
		})
		rdb.Set(ctx, txKey, fmt.Sprintf("bounty:%d", bountyID), processedTTL)

	default:
		log.Debug("unrecognized memo", zap.String("memo", memo))
		rdb.Set(ctx, txKey, "unrecognized_memo", processedTTL)
	}
}
