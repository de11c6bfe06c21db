package services

import (
	"context"
	"errors"
	"testing"

	"github.com/icedoutskay/grainlify/internal/models"
)

func TestInitOnlyOnce(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	if err := e.escrow.Init(ctx, testAdmin, testToken); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if err := e.escrow.Init(ctx, "EQOtherAdmin", testToken); !errors.Is(err, models.ErrAlreadyInitialized) {
		t.Fatalf("second init = %v, want ErrAlreadyInitialized", err)
	}

	cfg, err := e.escrow.GetConfig(ctx)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.AdminAddress != testAdmin {
		t.Errorf("admin = %q, want %q", cfg.AdminAddress, testAdmin)
	}
}

func TestLockValidation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	// Before init, everything fails NotInitialized.
	if _, err := e.escrow.Lock(ctx, testDepositor, 1, 1000, e.clock.now+100); !errors.Is(err, models.ErrNotInitialized) {
		t.Fatalf("lock before init = %v, want ErrNotInitialized", err)
	}

	e.mustInit(t)

	tests := []struct {
		name     string
		bountyID uint64
		amount   int64
		deadline int64
		wantErr  error
	}{
		{"zero amount", 1, 0, e.clock.now + 100, models.ErrInvalidAmount},
		{"negative amount", 1, -5, e.clock.now + 100, models.ErrInvalidAmount},
		{"deadline in past", 1, 1000, e.clock.now - 1, models.ErrInvalidDeadline},
		{"deadline exactly now", 1, 1000, e.clock.now, models.ErrInvalidDeadline},
		{"ok", 1, 1000, e.clock.now + 100, nil},
		{"duplicate bounty", 1, 1000, e.clock.now + 100, models.ErrBountyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.escrow.Lock(ctx, testDepositor, tt.bountyID, tt.amount, tt.deadline)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("lock: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("lock = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReleaseAdminOnly(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)

	if _, err := e.escrow.Lock(ctx, testDepositor, 42, 1000, e.clock.now+100); err != nil {
		t.Fatalf("lock: %v", err)
	}

	if err := e.escrow.Release(ctx, testDepositor, 42, "EQContributor"); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("release by depositor = %v, want ErrUnauthorized", err)
	}

	if err := e.escrow.Release(ctx, testAdmin, 42, "EQContributor"); err != nil {
		t.Fatalf("release by admin: %v", err)
	}

	escrow, err := e.escrow.GetEscrow(ctx, 42)
	if err != nil {
		t.Fatalf("get escrow: %v", err)
	}
	if escrow.Status != models.EscrowStatusReleased {
		t.Errorf("status = %q, want released", escrow.Status)
	}

	// Contributor got the full amount from custody.
	balance, _ := e.token.BalanceOf(ctx, "EQContributor")
	if balance != 1000 {
		t.Errorf("contributor balance = %d, want 1000", balance)
	}

	// Terminal: releasing again fails.
	if err := e.escrow.Release(ctx, testAdmin, 42, "EQContributor"); !errors.Is(err, models.ErrFundsNotLocked) {
		t.Fatalf("second release = %v, want ErrFundsNotLocked", err)
	}
}

func TestReleaseMissingBounty(t *testing.T) {
	e := newEnv()
	e.mustInit(t)

	err := e.escrow.Release(context.Background(), testAdmin, 999, "EQContributor")
	if !errors.Is(err, models.ErrBountyNotFound) {
		t.Fatalf("release = %v, want ErrBountyNotFound", err)
	}
}

func TestRefundDeadlineBoundary(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)

	deadline := e.clock.now + 500
	if _, err := e.escrow.Lock(ctx, testDepositor, 42, 1000, deadline); err != nil {
		t.Fatalf("lock: %v", err)
	}

	// One second before the deadline: refused.
	e.clock.now = deadline - 1
	if err := e.escrow.Refund(ctx, "EQAnyone", 42); !errors.Is(err, models.ErrDeadlineNotPassed) {
		t.Fatalf("refund at T-1 = %v, want ErrDeadlineNotPassed", err)
	}

	// Exactly at the deadline: allowed, and permissionless.
	e.clock.now = deadline
	if err := e.escrow.Refund(ctx, "EQAnyone", 42); err != nil {
		t.Fatalf("refund at T: %v", err)
	}

	escrow, _ := e.escrow.GetEscrow(ctx, 42)
	if escrow.Status != models.EscrowStatusRefunded {
		t.Errorf("status = %q, want refunded", escrow.Status)
	}

	// Depositor balance increased by the locked amount.
	balance, _ := e.token.BalanceOf(ctx, testDepositor)
	if balance != 1000 {
		t.Errorf("depositor balance = %d, want 1000", balance)
	}

	// Refunding again fails: terminal state.
	e.clock.now = deadline + 100
	if err := e.escrow.Refund(ctx, "EQAnyone", 42); !errors.Is(err, models.ErrFundsNotLocked) {
		t.Fatalf("second refund = %v, want ErrFundsNotLocked", err)
	}
}

func TestRefundMissingBounty(t *testing.T) {
	e := newEnv()
	e.mustInit(t)

	if err := e.escrow.Refund(context.Background(), "EQAnyone", 7); !errors.Is(err, models.ErrBountyNotFound) {
		t.Fatalf("refund = %v, want ErrBountyNotFound", err)
	}
}

func TestSetMetadataDepositorOnly(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)

	if _, err := e.escrow.Lock(ctx, testDepositor, 1, 1000, e.clock.now+100); err != nil {
		t.Fatalf("lock: %v", err)
	}

	md := &models.EscrowMetadata{Tags: []string{"security"}}
	if err := e.escrow.SetMetadata(ctx, "EQStranger", 1, md); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("set by stranger = %v, want ErrUnauthorized", err)
	}
	if err := e.escrow.SetMetadata(ctx, testDepositor, 1, md); err != nil {
		t.Fatalf("set by depositor: %v", err)
	}

	got, err := e.escrow.GetMetadata(ctx, 1)
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "security" {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestSetMetadataRejectsOversized(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)

	if _, err := e.escrow.Lock(ctx, testDepositor, 1, 1000, e.clock.now+100); err != nil {
		t.Fatalf("lock: %v", err)
	}

	tags := make([]string, 21)
	for i := range tags {
		tags[i] = "t"
	}
	err := e.escrow.SetMetadata(ctx, testDepositor, 1, &models.EscrowMetadata{Tags: tags})
	if !errors.Is(err, models.ErrMetadataTooLarge) {
		t.Fatalf("set metadata = %v, want ErrMetadataTooLarge", err)
	}

	// Nothing stored on rejection.
	if _, err := e.escrow.GetMetadata(ctx, 1); !errors.Is(err, models.ErrBountyNotFound) {
		t.Fatalf("get metadata after rejection = %v, want ErrBountyNotFound", err)
	}
}

func TestGetWithMetadata(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)

	if _, err := e.escrow.Lock(ctx, testDepositor, 1, 1000, e.clock.now+100); err != nil {
		t.Fatalf("lock: %v", err)
	}

	// Without metadata: escrow only.
	view, err := e.escrow.GetWithMetadata(ctx, 1)
	if err != nil {
		t.Fatalf("get with metadata: %v", err)
	}
	if view.Metadata != nil {
		t.Error("expected nil metadata")
	}

	repo := "owner/repo"
	if err := e.escrow.SetMetadata(ctx, testDepositor, 1, &models.EscrowMetadata{RepoID: &repo}); err != nil {
		t.Fatalf("set metadata: %v", err)
	}
	view, err = e.escrow.GetWithMetadata(ctx, 1)
	if err != nil {
		t.Fatalf("get with metadata: %v", err)
	}
	if view.Metadata == nil || view.Metadata.RepoID == nil || *view.Metadata.RepoID != repo {
		t.Errorf("metadata = %+v", view.Metadata)
	}
}

func TestLockPublishesEvent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)

	if _, err := e.escrow.Lock(ctx, testDepositor, 1, 1000, e.clock.now+100); err != nil {
		t.Fatalf("lock: %v", err)
	}

	types := e.publisher.types()
	if len(types) != 1 || types[0] != "escrow_locked" {
		t.Errorf("published events = %v, want [escrow_locked]", types)
	}
}
