package services

import (
	"context"
	"fmt"

	"github.com/icedoutskay/grainlify/internal/config"
	"github.com/icedoutskay/grainlify/internal/events"
	"github.com/icedoutskay/grainlify/internal/models"
	"go.uber.org/zap"
)

type ScheduleService struct {
	configStore   ConfigStore
	escrowStore   EscrowStore
	scheduleStore ScheduleStore
	auditStore    AuditStore
	token         TokenClient
	publisher     events.Publisher
	clock         Clock
	cfg           *config.Config
	log           *zap.Logger
}

func NewScheduleService(
	configStore ConfigStore,
	escrowStore EscrowStore,
	scheduleStore ScheduleStore,
	auditStore AuditStore,
	token TokenClient,
	publisher events.Publisher,
	clock Clock,
	cfg *config.Config,
	log *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		configStore:   configStore,
		escrowStore:   escrowStore,
		scheduleStore: scheduleStore,
		auditStore:    auditStore,
		token:         token,
		publisher:     publisher,
		clock:         clock,
		cfg:           cfg,
		log:           log,
	}
}

// Create adds a timed partial disbursement to a locked escrow. The caller
// must be the escrow's depositor or the admin. The sum of all schedule
// amounts for a bounty may never exceed the escrow's locked amount.
func (s *ScheduleService) Create(ctx context.Context, caller string, bountyID uint64, amount int64, releaseAt int64, recipient string) (*models.ReleaseSchedule, error) {
	cfg, err := s.configStore.Get(ctx)
	if err != nil {
		return nil, err
	}

	escrow, err := s.escrowStore.Get(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if caller != escrow.Depositor && caller != cfg.AdminAddress {
		return nil, models.ErrUnauthorized
	}
	if escrow.Status != models.EscrowStatusLocked {
		return nil, models.ErrFundsNotLocked
	}
	if amount <= 0 {
		return nil, models.ErrInvalidAmount
	}

	scheduled, err := s.scheduleStore.SumAmounts(ctx, bountyID)
	if err != nil {
		return nil, fmt.Errorf("sum schedules: %w", err)
	}
	total, err := models.AddChecked(scheduled, amount)
	if err != nil {
		return nil, err
	}
	if total > escrow.Amount {
		return nil, models.ErrInsufficientBalance
	}

	schedule := &models.ReleaseSchedule{
		BountyID:  bountyID,
		Amount:    amount,
		ReleaseAt: releaseAt,
		Recipient: recipient,
	}
	if err := s.scheduleStore.Create(ctx, schedule); err != nil {
		return nil, err
	}

	s.audit(ctx, caller, "user", "schedule_created", bountyID, schedule.ScheduleID,
		map[string]any{"amount": amount, "release_at": releaseAt, "recipient": recipient})
	s.publish(ctx, events.EventScheduleCreated, map[string]any{
		"bounty_id":   bountyID,
		"schedule_id": schedule.ScheduleID,
		"amount":      amount,
		"release_at":  releaseAt,
		"recipient":   recipient,
	})
	return schedule, nil
}

// ReleaseManual triggers a schedule regardless of its release timestamp.
// Admin only; early release is a deliberate controller override.
func (s *ScheduleService) ReleaseManual(ctx context.Context, caller string, bountyID, scheduleID uint64) error {
	cfg, err := s.configStore.Get(ctx)
	if err != nil {
		return err
	}
	if caller != cfg.AdminAddress {
		return models.ErrUnauthorized
	}
	return s.release(ctx, caller, bountyID, scheduleID, models.ReleaseTypeManual, false)
}

// ReleaseAutomatic triggers a due schedule. Callable by anyone; fails
// ErrTooEarly while now < release_at.
func (s *ScheduleService) ReleaseAutomatic(ctx context.Context, caller string, bountyID, scheduleID uint64) error {
	return s.release(ctx, caller, bountyID, scheduleID, models.ReleaseTypeAutomatic, true)
}

func (s *ScheduleService) release(ctx context.Context, caller string, bountyID, scheduleID uint64, releaseType string, enforceDue bool) error {
	schedule, err := s.scheduleStore.Get(ctx, bountyID, scheduleID)
	if err != nil {
		return err
	}
	if schedule.Released {
		return models.ErrAlreadyReleased
	}

	now := s.clock.Now()
	if enforceDue && now < schedule.ReleaseAt {
		return models.ErrTooEarly
	}

	if err := s.token.Transfer(ctx, s.cfg.CustodyWalletAddress, schedule.Recipient, schedule.Amount); err != nil {
		return fmt.Errorf("transfer to recipient: %w", err)
	}
	if err := s.scheduleStore.Release(ctx, bountyID, scheduleID, now, caller, releaseType); err != nil {
		return err
	}

	actorType := "user"
	if releaseType == models.ReleaseTypeManual {
		actorType = "admin"
	}
	s.audit(ctx, caller, actorType, "schedule_released", bountyID, scheduleID,
		map[string]any{"amount": schedule.Amount, "recipient": schedule.Recipient, "release_type": releaseType})
	s.publish(ctx, events.EventScheduleReleased, map[string]any{
		"bounty_id":    bountyID,
		"schedule_id":  scheduleID,
		"amount":       schedule.Amount,
		"recipient":    schedule.Recipient,
		"release_type": releaseType,
	})
	return nil
}

// ReleaseDue sweeps every due schedule across all bounties and triggers each
// automatically. Called by the worker; a failing schedule is logged and
// skipped so one bad row cannot stall the sweep. Returns the count released.
func (s *ScheduleService) ReleaseDue(ctx context.Context, caller string) (int, error) {
	due, err := s.scheduleStore.ListDue(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}

	released := 0
	for _, schedule := range due {
		if err := s.ReleaseAutomatic(ctx, caller, schedule.BountyID, schedule.ScheduleID); err != nil {
			s.log.Warn("automatic release failed",
				zap.Uint64("bounty_id", schedule.BountyID),
				zap.Uint64("schedule_id", schedule.ScheduleID),
				zap.Error(err),
			)
			continue
		}
		released++
	}
	return released, nil
}

func (s *ScheduleService) Get(ctx context.Context, bountyID, scheduleID uint64) (*models.ReleaseSchedule, error) {
	return s.scheduleStore.Get(ctx, bountyID, scheduleID)
}

// ListAll returns every schedule of a bounty in creation order.
func (s *ScheduleService) ListAll(ctx context.Context, bountyID uint64) ([]models.ReleaseSchedule, error) {
	if _, err := s.escrowStore.Get(ctx, bountyID); err != nil {
		return nil, err
	}
	return s.scheduleStore.ListByBounty(ctx, bountyID)
}

// GetPending returns all unreleased schedules regardless of timestamp.
func (s *ScheduleService) GetPending(ctx context.Context, bountyID uint64) ([]models.ReleaseSchedule, error) {
	all, err := s.ListAll(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	pending := make([]models.ReleaseSchedule, 0, len(all))
	for _, schedule := range all {
		if !schedule.Released {
			pending = append(pending, schedule)
		}
	}
	return pending, nil
}

// GetDue returns unreleased schedules whose release_at has been reached,
// in creation order.
func (s *ScheduleService) GetDue(ctx context.Context, bountyID uint64) ([]models.ReleaseSchedule, error) {
	all, err := s.ListAll(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	due := make([]models.ReleaseSchedule, 0, len(all))
	for _, schedule := range all {
		if schedule.Due(now) {
			due = append(due, schedule)
		}
	}
	return due, nil
}

// GetHistory returns the bounty's completed releases in the order they
// occurred.
func (s *ScheduleService) GetHistory(ctx context.Context, bountyID uint64) ([]models.ReleaseRecord, error) {
	if _, err := s.escrowStore.Get(ctx, bountyID); err != nil {
		return nil, err
	}
	return s.scheduleStore.ListHistory(ctx, bountyID)
}

// --- helpers ---

func (s *ScheduleService) audit(ctx context.Context, actor, actorType, action string, bountyID, scheduleID uint64, meta map[string]any) {
	_ = s.auditStore.Log(ctx, models.AuditLog{
		ActorPrincipal: actor,
		ActorType:      actorType,
		Action:         action,
		EntityType:     "schedule",
		EntityID:       fmt.Sprintf("%d/%d", bountyID, scheduleID),
		Meta:           meta,
	})
}

func (s *ScheduleService) publish(ctx context.Context, eventType string, payload map[string]any) {
	if err := s.publisher.Publish(ctx, events.StreamEscrow, events.Event{Type: eventType, Payload: payload}); err != nil {
		s.log.Warn("publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}
