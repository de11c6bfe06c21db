package services

import (
	"context"
	"fmt"
	"time"

	"github.com/icedoutskay/grainlify/internal/config"
	"github.com/icedoutskay/grainlify/internal/events"
	"github.com/icedoutskay/grainlify/internal/models"
	"go.uber.org/zap"
)

type ProgramService struct {
	programStore ProgramStore
	auditStore   AuditStore
	token        TokenClient
	publisher    events.Publisher
	clock        Clock
	cfg          *config.Config
	log          *zap.Logger
}

func NewProgramService(
	programStore ProgramStore,
	auditStore AuditStore,
	token TokenClient,
	publisher events.Publisher,
	clock Clock,
	cfg *config.Config,
	log *zap.Logger,
) *ProgramService {
	return &ProgramService{
		programStore: programStore,
		auditStore:   auditStore,
		token:        token,
		publisher:    publisher,
		clock:        clock,
		cfg:          cfg,
		log:          log,
	}
}

// Init creates the singleton payout pool with zero balances. First caller
// wins; program_id and authorized_key are immutable afterwards.
func (s *ProgramService) Init(ctx context.Context, programID, authorizedKey, tokenAddress string) error {
	program := &models.ProgramData{
		ProgramID:           programID,
		TotalFunds:          0,
		RemainingBalance:    0,
		AuthorizedPayoutKey: authorizedKey,
		PayoutHistory:       []models.PayoutRecord{},
		TokenAddress:        tokenAddress,
		CreatedAt:           time.Now(),
	}
	if err := s.programStore.Init(ctx, program); err != nil {
		return err
	}

	s.audit(ctx, authorizedKey, "admin", "program_initialized",
		map[string]any{"program_id": programID, "token_address": tokenAddress})
	s.publish(ctx, events.EventProgramInitialized, map[string]any{
		"program_id":    programID,
		"token_address": tokenAddress,
	})
	return nil
}

// LockFunds records that funds arrived in the pool. It only accounts; the
// token transfer itself happens out-of-band and is observed by the deposit
// watcher, which is the usual caller of this method.
func (s *ProgramService) LockFunds(ctx context.Context, caller string, amount int64) error {
	if amount <= 0 {
		return models.ErrInvalidAmount
	}
	program, err := s.programStore.Get(ctx)
	if err != nil {
		return err
	}
	if _, err := models.AddChecked(program.TotalFunds, amount); err != nil {
		return err
	}

	if err := s.programStore.AddFunds(ctx, amount); err != nil {
		return err
	}

	s.audit(ctx, caller, "system", "program_funds_locked", map[string]any{"amount": amount})
	s.publish(ctx, events.EventProgramFundsLocked, map[string]any{
		"program_id": program.ProgramID,
		"amount":     amount,
	})
	return nil
}

// BatchPayout pays each recipient its matching amount, all-or-nothing.
// Authorized key only. The total is computed with overflow-checked addition
// and must fit in the remaining balance.
func (s *ProgramService) BatchPayout(ctx context.Context, caller string, recipients []string, amounts []int64) error {
	program, err := s.programStore.Get(ctx)
	if err != nil {
		return err
	}
	if caller != program.AuthorizedPayoutKey {
		return models.ErrUnauthorized
	}
	if len(recipients) == 0 || len(recipients) != len(amounts) {
		return models.ErrBatchMismatch
	}

	var total int64
	for _, amount := range amounts {
		if amount <= 0 {
			return models.ErrInvalidAmount
		}
		total, err = models.AddChecked(total, amount)
		if err != nil {
			return err
		}
	}
	if total > program.RemainingBalance {
		return models.ErrInsufficientBalance
	}

	now := s.clock.Now()
	records := make([]models.PayoutRecord, len(recipients))
	for i, recipient := range recipients {
		if err := s.token.Transfer(ctx, s.cfg.CustodyWalletAddress, recipient, amounts[i]); err != nil {
			return fmt.Errorf("transfer to %s: %w", recipient, err)
		}
		records[i] = models.PayoutRecord{Recipient: recipient, Amount: amounts[i], Timestamp: now}
	}

	if err := s.programStore.ApplyPayouts(ctx, total, records); err != nil {
		return err
	}

	s.audit(ctx, caller, "admin", "batch_payout",
		map[string]any{"recipients": recipients, "total": total})
	s.publish(ctx, events.EventBatchPayout, map[string]any{
		"program_id": program.ProgramID,
		"recipients": recipients,
		"total":      total,
	})
	return nil
}

// SinglePayout pays one recipient under the same rules as BatchPayout.
func (s *ProgramService) SinglePayout(ctx context.Context, caller string, recipient string, amount int64) error {
	program, err := s.programStore.Get(ctx)
	if err != nil {
		return err
	}
	if caller != program.AuthorizedPayoutKey {
		return models.ErrUnauthorized
	}
	if amount <= 0 {
		return models.ErrInvalidAmount
	}
	if amount > program.RemainingBalance {
		return models.ErrInsufficientBalance
	}

	if err := s.token.Transfer(ctx, s.cfg.CustodyWalletAddress, recipient, amount); err != nil {
		return fmt.Errorf("transfer to %s: %w", recipient, err)
	}
	record := models.PayoutRecord{Recipient: recipient, Amount: amount, Timestamp: s.clock.Now()}
	if err := s.programStore.ApplyPayouts(ctx, amount, []models.PayoutRecord{record}); err != nil {
		return err
	}

	s.audit(ctx, caller, "admin", "payout",
		map[string]any{"recipient": recipient, "amount": amount})
	s.publish(ctx, events.EventPayout, map[string]any{
		"program_id": program.ProgramID,
		"recipient":  recipient,
		"amount":     amount,
	})
	return nil
}

// SetMetadata attaches or replaces program metadata. Authorized key only.
func (s *ProgramService) SetMetadata(ctx context.Context, caller string, md *models.ProgramMetadata) error {
	program, err := s.programStore.Get(ctx)
	if err != nil {
		return err
	}
	if caller != program.AuthorizedPayoutKey {
		return models.ErrUnauthorized
	}
	if err := md.Validate(); err != nil {
		return err
	}
	if err := s.programStore.SetMetadata(ctx, md); err != nil {
		return err
	}

	s.audit(ctx, caller, "admin", "program_metadata_set", nil)
	return nil
}

func (s *ProgramService) GetInfo(ctx context.Context) (*models.ProgramData, error) {
	return s.programStore.Get(ctx)
}

func (s *ProgramService) GetRemainingBalance(ctx context.Context) (int64, error) {
	program, err := s.programStore.Get(ctx)
	if err != nil {
		return 0, err
	}
	return program.RemainingBalance, nil
}

func (s *ProgramService) GetMetadata(ctx context.Context) (*models.ProgramMetadata, error) {
	if _, err := s.programStore.Get(ctx); err != nil {
		return nil, err
	}
	return s.programStore.GetMetadata(ctx)
}

// GetWithMetadata returns the pool together with its metadata, if any.
func (s *ProgramService) GetWithMetadata(ctx context.Context) (*models.ProgramWithMetadata, error) {
	program, err := s.programStore.Get(ctx)
	if err != nil {
		return nil, err
	}
	md, err := s.programStore.GetMetadata(ctx)
	if err != nil {
		md = nil
	}
	return &models.ProgramWithMetadata{Program: *program, Metadata: md}, nil
}

// --- helpers ---

func (s *ProgramService) audit(ctx context.Context, actor, actorType, action string, meta map[string]any) {
	_ = s.auditStore.Log(ctx, models.AuditLog{
		ActorPrincipal: actor,
		ActorType:      actorType,
		Action:         action,
		EntityType:     "program",
		Meta:           meta,
	})
}

func (s *ProgramService) publish(ctx context.Context, eventType string, payload map[string]any) {
	if err := s.publisher.Publish(ctx, events.StreamProgram, events.Event{Type: eventType, Payload: payload}); err != nil {
		s.log.Warn("publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}
