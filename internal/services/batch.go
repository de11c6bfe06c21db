package services

import (
	"context"
	"fmt"

	"github.com/icedoutskay/grainlify/internal/events"
	"github.com/icedoutskay/grainlify/internal/models"
)

// BatchLockItem is one lock request inside a batch.
type BatchLockItem struct {
	BountyID uint64 `json:"bounty_id"`
	Amount   int64  `json:"amount"`
	Deadline int64  `json:"deadline"`
}

// BatchReleaseItem is one release request inside a batch.
type BatchReleaseItem struct {
	BountyID    uint64 `json:"bounty_id"`
	Contributor string `json:"contributor"`
}

// BatchLock locks every item or none. The whole batch is validated first:
// a duplicate bounty id inside the batch fails with ErrDuplicateBatchID,
// a pre-existing record with ErrBountyExists, and per-item rules match Lock.
// The caller becomes the depositor of every escrow. Returns the count locked.
func (s *EscrowService) BatchLock(ctx context.Context, caller string, items []BatchLockItem) (int, error) {
	if _, err := s.configStore.Get(ctx); err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, models.ErrBatchMismatch
	}

	now := s.clock.Now()
	seen := make(map[uint64]struct{}, len(items))
	escrows := make([]*models.Escrow, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.BountyID]; dup {
			return 0, models.ErrDuplicateBatchID
		}
		seen[item.BountyID] = struct{}{}

		if item.Amount <= 0 {
			return 0, models.ErrInvalidAmount
		}
		if item.Deadline <= now {
			return 0, models.ErrInvalidDeadline
		}
		exists, err := s.escrowStore.Has(ctx, item.BountyID)
		if err != nil {
			return 0, fmt.Errorf("check bounty %d: %w", item.BountyID, err)
		}
		if exists {
			return 0, models.ErrBountyExists
		}

		escrows = append(escrows, &models.Escrow{
			BountyID:  item.BountyID,
			Depositor: caller,
			Amount:    item.Amount,
			Status:    models.EscrowStatusLocked,
			Deadline:  item.Deadline,
		})
	}

	if err := s.escrowStore.CreateBatch(ctx, escrows); err != nil {
		return 0, err
	}

	ids := make([]uint64, len(escrows))
	for i, e := range escrows {
		ids[i] = e.BountyID
	}
	_ = s.auditStore.Log(ctx, models.AuditLog{
		ActorPrincipal: caller,
		ActorType:      "user",
		Action:         "batch_funds_locked",
		EntityType:     "escrow_batch",
		Meta:           map[string]any{"bounty_ids": ids},
	})
	s.publish(ctx, events.EventBatchLocked, map[string]any{
		"depositor":  caller,
		"bounty_ids": ids,
		"count":      len(ids),
	})
	return len(escrows), nil
}

// BatchRelease releases every item or none. Admin only. Validation covers the
// whole batch before any transfer; the status flip is a single transaction.
func (s *EscrowService) BatchRelease(ctx context.Context, caller string, items []BatchReleaseItem) (int, error) {
	cfg, err := s.configStore.Get(ctx)
	if err != nil {
		return 0, err
	}
	if caller != cfg.AdminAddress {
		return 0, models.ErrUnauthorized
	}
	if len(items) == 0 {
		return 0, models.ErrBatchMismatch
	}

	seen := make(map[uint64]struct{}, len(items))
	escrows := make([]*models.Escrow, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.BountyID]; dup {
			return 0, models.ErrDuplicateBatchID
		}
		seen[item.BountyID] = struct{}{}

		escrow, err := s.escrowStore.Get(ctx, item.BountyID)
		if err != nil {
			return 0, err
		}
		if escrow.Status != models.EscrowStatusLocked {
			return 0, models.ErrFundsNotLocked
		}
		escrows = append(escrows, escrow)
	}

	for i, item := range items {
		if err := s.token.Transfer(ctx, s.cfg.CustodyWalletAddress, item.Contributor, escrows[i].Amount); err != nil {
			return 0, fmt.Errorf("transfer for bounty %d: %w", item.BountyID, err)
		}
	}

	ids := make([]uint64, len(items))
	for i, item := range items {
		ids[i] = item.BountyID
	}
	if err := s.escrowStore.UpdateStatusBatch(ctx, ids, models.EscrowStatusLocked, models.EscrowStatusReleased); err != nil {
		return 0, err
	}

	_ = s.auditStore.Log(ctx, models.AuditLog{
		ActorPrincipal: caller,
		ActorType:      "admin",
		Action:         "batch_funds_released",
		EntityType:     "escrow_batch",
		Meta:           map[string]any{"bounty_ids": ids},
	})
	s.publish(ctx, events.EventBatchReleased, map[string]any{
		"bounty_ids": ids,
		"count":      len(ids),
	})
	return len(items), nil
}
