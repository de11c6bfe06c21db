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

type EscrowService struct {
	configStore ConfigStore
	escrowStore EscrowStore
	auditStore  AuditStore
	token       TokenClient
	publisher   events.Publisher
	clock       Clock
	cfg         *config.Config
	log         *zap.Logger
}

func NewEscrowService(
	configStore ConfigStore,
	escrowStore EscrowStore,
	auditStore AuditStore,
	token TokenClient,
	publisher events.Publisher,
	clock Clock,
	cfg *config.Config,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		configStore: configStore,
		escrowStore: escrowStore,
		auditStore:  auditStore,
		token:       token,
		publisher:   publisher,
		clock:       clock,
		cfg:         cfg,
		log:         log,
	}
}

// Init writes the singleton admin/token configuration. First caller wins;
// every later call fails with ErrAlreadyInitialized.
func (s *EscrowService) Init(ctx context.Context, adminAddress, tokenAddress string) error {
	if adminAddress == "" || tokenAddress == "" {
		return models.ErrUnauthorized
	}

	cfg := &models.EscrowConfig{
		AdminAddress:  adminAddress,
		TokenAddress:  tokenAddress,
		InitializedAt: time.Now(),
	}
	if err := s.configStore.Set(ctx, cfg); err != nil {
		return err
	}

	_ = s.auditStore.Log(ctx, models.AuditLog{
		ActorPrincipal: adminAddress,
		ActorType:      "admin",
		Action:         "escrow_initialized",
		EntityType:     "config",
		Meta:           map[string]any{"token_address": tokenAddress},
	})
	return nil
}

// Lock creates a Locked escrow for a new bounty id. The caller is the
// depositor; the incoming depositor-to-custody transfer is observed by the
// deposit watcher, so Lock only records and announces the custody intent.
func (s *EscrowService) Lock(ctx context.Context, caller string, bountyID uint64, amount int64, deadline int64) (*models.Escrow, error) {
	if _, err := s.configStore.Get(ctx); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, models.ErrInvalidAmount
	}
	if deadline <= s.clock.Now() {
		return nil, models.ErrInvalidDeadline
	}

	exists, err := s.escrowStore.Has(ctx, bountyID)
	if err != nil {
		return nil, fmt.Errorf("check bounty: %w", err)
	}
	if exists {
		return nil, models.ErrBountyExists
	}

	escrow := &models.Escrow{
		BountyID:  bountyID,
		Depositor: caller,
		Amount:    amount,
		Status:    models.EscrowStatusLocked,
		Deadline:  deadline,
	}
	if err := s.escrowStore.Create(ctx, escrow); err != nil {
		return nil, err
	}

	s.audit(ctx, caller, "user", "funds_locked", "escrow", bountyID,
		map[string]any{"amount": amount, "deadline": deadline})
	s.publish(ctx, events.EventEscrowLocked, map[string]any{
		"bounty_id": bountyID,
		"depositor": caller,
		"amount":    amount,
		"deadline":  deadline,
	})
	return escrow, nil
}

// Release pays out the full escrow amount to the contributor. Admin only;
// this is the sole privileged state-changing path on an escrow.
func (s *EscrowService) Release(ctx context.Context, caller string, bountyID uint64, contributor string) error {
	cfg, err := s.configStore.Get(ctx)
	if err != nil {
		return err
	}
	if caller != cfg.AdminAddress {
		return models.ErrUnauthorized
	}

	escrow, err := s.escrowStore.Get(ctx, bountyID)
	if err != nil {
		return err
	}
	if escrow.Status != models.EscrowStatusLocked {
		return models.ErrFundsNotLocked
	}

	if err := s.token.Transfer(ctx, s.cfg.CustodyWalletAddress, contributor, escrow.Amount); err != nil {
		return fmt.Errorf("transfer to contributor: %w", err)
	}
	if err := s.escrowStore.UpdateStatus(ctx, bountyID, models.EscrowStatusLocked, models.EscrowStatusReleased); err != nil {
		return err
	}

	s.audit(ctx, caller, "admin", "funds_released", "escrow", bountyID,
		map[string]any{"contributor": contributor, "amount": escrow.Amount})
	s.publish(ctx, events.EventEscrowReleased, map[string]any{
		"bounty_id":   bountyID,
		"contributor": contributor,
		"amount":      escrow.Amount,
	})
	return nil
}

// Refund returns the escrow amount to the depositor once the deadline has
// passed. Deliberately permissionless so depositors can always recover funds
// after expiry, even if the admin key is lost.
func (s *EscrowService) Refund(ctx context.Context, caller string, bountyID uint64) error {
	escrow, err := s.escrowStore.Get(ctx, bountyID)
	if err != nil {
		return err
	}
	if escrow.Status != models.EscrowStatusLocked {
		return models.ErrFundsNotLocked
	}
	if s.clock.Now() < escrow.Deadline {
		return models.ErrDeadlineNotPassed
	}

	if err := s.token.Transfer(ctx, s.cfg.CustodyWalletAddress, escrow.Depositor, escrow.Amount); err != nil {
		return fmt.Errorf("transfer to depositor: %w", err)
	}
	if err := s.escrowStore.UpdateStatus(ctx, bountyID, models.EscrowStatusLocked, models.EscrowStatusRefunded); err != nil {
		return err
	}

	s.audit(ctx, caller, "user", "funds_refunded", "escrow", bountyID,
		map[string]any{"depositor": escrow.Depositor, "amount": escrow.Amount})
	s.publish(ctx, events.EventEscrowRefunded, map[string]any{
		"bounty_id": bountyID,
		"depositor": escrow.Depositor,
		"amount":    escrow.Amount,
	})
	return nil
}

// SetMetadata attaches or replaces descriptive metadata. Depositor only.
func (s *EscrowService) SetMetadata(ctx context.Context, caller string, bountyID uint64, md *models.EscrowMetadata) error {
	escrow, err := s.escrowStore.Get(ctx, bountyID)
	if err != nil {
		return err
	}
	if caller != escrow.Depositor {
		return models.ErrUnauthorized
	}
	if err := md.Validate(); err != nil {
		return err
	}
	if err := s.escrowStore.SetMetadata(ctx, bountyID, md); err != nil {
		return err
	}

	s.audit(ctx, caller, "user", "escrow_metadata_set", "escrow", bountyID, nil)
	return nil
}

func (s *EscrowService) GetConfig(ctx context.Context) (*models.EscrowConfig, error) {
	return s.configStore.Get(ctx)
}

func (s *EscrowService) GetEscrow(ctx context.Context, bountyID uint64) (*models.Escrow, error) {
	return s.escrowStore.Get(ctx, bountyID)
}

func (s *EscrowService) GetMetadata(ctx context.Context, bountyID uint64) (*models.EscrowMetadata, error) {
	if _, err := s.escrowStore.Get(ctx, bountyID); err != nil {
		return nil, err
	}
	return s.escrowStore.GetMetadata(ctx, bountyID)
}

// GetWithMetadata returns the escrow together with its metadata, if any.
func (s *EscrowService) GetWithMetadata(ctx context.Context, bountyID uint64) (*models.EscrowWithMetadata, error) {
	escrow, err := s.escrowStore.Get(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	md, err := s.escrowStore.GetMetadata(ctx, bountyID)
	if err != nil {
		md = nil
	}
	return &models.EscrowWithMetadata{Escrow: *escrow, Metadata: md}, nil
}

// GetBalance reads the custody account's token balance from the chain.
func (s *EscrowService) GetBalance(ctx context.Context) (int64, error) {
	return s.token.BalanceOf(ctx, s.cfg.CustodyWalletAddress)
}

func (s *EscrowService) GetEvents(ctx context.Context, bountyID uint64) ([]models.AuditLog, error) {
	return s.auditStore.ListByEntity(ctx, "escrow", fmt.Sprintf("%d", bountyID), 100, 0)
}

// --- helpers ---

func (s *EscrowService) audit(ctx context.Context, actor, actorType, action, entityType string, bountyID uint64, meta map[string]any) {
	_ = s.auditStore.Log(ctx, models.AuditLog{
		ActorPrincipal: actor,
		ActorType:      actorType,
		Action:         action,
		EntityType:     entityType,
		EntityID:       fmt.Sprintf("%d", bountyID),
		Meta:           meta,
	})
}

func (s *EscrowService) publish(ctx context.Context, eventType string, payload map[string]any) {
	if err := s.publisher.Publish(ctx, events.StreamEscrow, events.Event{Type: eventType, Payload: payload}); err != nil {
		s.log.Warn("publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}
