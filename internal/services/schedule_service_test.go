package services

import (
	"context"
	"errors"
	"testing"

	"github.com/icedoutskay/grainlify/internal/models"
)

func lockBounty(t *testing.T, e *env, bountyID uint64, amount int64) {
	t.Helper()
	if _, err := e.escrow.Lock(context.Background(), testDepositor, bountyID, amount, e.clock.now+1_000_000); err != nil {
		t.Fatalf("lock bounty %d: %v", bountyID, err)
	}
}

func TestScheduleCreateAssignsMonotonicIDs(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)
	lockBounty(t, e, 1, 1000)
	lockBounty(t, e, 2, 1000)

	for want := uint64(1); want <= 3; want++ {
		s, err := e.schedule.Create(ctx, testDepositor, 1, 100, e.clock.now+100, "EQRecipient")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if s.ScheduleID != want {
			t.Errorf("schedule id = %d, want %d", s.ScheduleID, want)
		}
	}

	// Counter is per bounty.
	s, err := e.schedule.Create(ctx, testDepositor, 2, 100, e.clock.now+100, "EQRecipient")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.ScheduleID != 1 {
		t.Errorf("bounty 2 first schedule id = %d, want 1", s.ScheduleID)
	}
}

func TestScheduleCreateAuthorization(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)
	lockBounty(t, e, 1, 1000)

	if _, err := e.schedule.Create(ctx, "EQStranger", 1, 100, e.clock.now+100, "EQRecipient"); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("create by stranger = %v, want ErrUnauthorized", err)
	}
	// Depositor and admin are both allowed.
	if _, err := e.schedule.Create(ctx, testDepositor, 1, 100, e.clock.now+100, "EQRecipient"); err != nil {
		t.Fatalf("create by depositor: %v", err)
	}
	if _, err := e.schedule.Create(ctx, testAdmin, 1, 100, e.clock.now+100, "EQRecipient"); err != nil {
		t.Fatalf("create by admin: %v", err)
	}
}

func TestScheduleCreateCappedByEscrowAmount(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)
	lockBounty(t, e, 1, 1000)

	if _, err := e.schedule.Create(ctx, testDepositor, 1, 600, e.clock.now+100, "EQA"); err != nil {
		t.Fatalf("create 600: %v", err)
	}
	if _, err := e.schedule.Create(ctx, testDepositor, 1, 401, e.clock.now+100, "EQB"); !errors.Is(err, models.ErrInsufficientBalance) {
		t.Fatalf("create 401 over cap = %v, want ErrInsufficientBalance", err)
	}
	if _, err := e.schedule.Create(ctx, testDepositor, 1, 400, e.clock.now+100, "EQB"); err != nil {
		t.Fatalf("create 400 at cap: %v", err)
	}
}

func TestScheduleCreateRequiresLockedEscrow(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)

	if _, err := e.schedule.Create(ctx, testDepositor, 9, 100, e.clock.now+100, "EQA"); !errors.Is(err, models.ErrBountyNotFound) {
		t.Fatalf("create for missing bounty = %v, want ErrBountyNotFound", err)
	}

	lockBounty(t, e, 1, 1000)
	if err := e.escrow.Release(ctx, testAdmin, 1, "EQContributor"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := e.schedule.Create(ctx, testDepositor, 1, 100, e.clock.now+100, "EQA"); !errors.Is(err, models.ErrFundsNotLocked) {
		t.Fatalf("create on released escrow = %v, want ErrFundsNotLocked", err)
	}
}

func TestAutomaticReleaseScenario(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)
	lockBounty(t, e, 1, 1000)

	// Two schedules: 600 @ t=now+1000, 400 @ t=now+2000.
	t1 := e.clock.now + 1000
	t2 := e.clock.now + 2000
	if _, err := e.schedule.Create(ctx, testDepositor, 1, 600, t1, "EQA"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.schedule.Create(ctx, testDepositor, 1, 400, t2, "EQB"); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Just after the first timestamp, only schedule 1 is due.
	e.clock.now = t1 + 1
	due, err := e.schedule.GetDue(ctx, 1)
	if err != nil {
		t.Fatalf("get due: %v", err)
	}
	if len(due) != 1 || due[0].ScheduleID != 1 {
		t.Fatalf("due = %+v, want exactly schedule 1", due)
	}

	if err := e.schedule.ReleaseAutomatic(ctx, "EQAnyone", 1, 1); err != nil {
		t.Fatalf("release automatic #1: %v", err)
	}
	if err := e.schedule.ReleaseAutomatic(ctx, "EQAnyone", 1, 2); !errors.Is(err, models.ErrTooEarly) {
		t.Fatalf("release automatic #2 = %v, want ErrTooEarly", err)
	}

	// Released schedule is immutable.
	if err := e.schedule.ReleaseAutomatic(ctx, "EQAnyone", 1, 1); !errors.Is(err, models.ErrAlreadyReleased) {
		t.Fatalf("second release = %v, want ErrAlreadyReleased", err)
	}

	balance, _ := e.token.BalanceOf(ctx, "EQA")
	if balance != 600 {
		t.Errorf("recipient balance = %d, want 600", balance)
	}

	history, err := e.schedule.GetHistory(ctx, 1)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(history) != 1 || history[0].ScheduleID != 1 || history[0].ReleaseType != models.ReleaseTypeAutomatic {
		t.Errorf("history = %+v", history)
	}
}

func TestManualReleaseBeforeTimestamp(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)
	lockBounty(t, e, 1, 1000)

	if _, err := e.schedule.Create(ctx, testDepositor, 1, 500, e.clock.now+10_000, "EQA"); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Manual release is admin only.
	if err := e.schedule.ReleaseManual(ctx, testDepositor, 1, 1); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("manual release by depositor = %v, want ErrUnauthorized", err)
	}

	// Admin may release well before release_at.
	if err := e.schedule.ReleaseManual(ctx, testAdmin, 1, 1); err != nil {
		t.Fatalf("manual release: %v", err)
	}

	s, err := e.schedule.Get(ctx, 1, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !s.Released || s.ReleaseType != models.ReleaseTypeManual {
		t.Errorf("schedule = %+v, want released manual", s)
	}
	if s.ReleasedBy == nil || *s.ReleasedBy != testAdmin {
		t.Errorf("released_by = %v, want admin", s.ReleasedBy)
	}
}

func TestReleaseMissingSchedule(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)
	lockBounty(t, e, 1, 1000)

	if err := e.schedule.ReleaseManual(ctx, testAdmin, 1, 5); !errors.Is(err, models.ErrScheduleNotFound) {
		t.Fatalf("manual release = %v, want ErrScheduleNotFound", err)
	}
	if err := e.schedule.ReleaseAutomatic(ctx, "EQAnyone", 1, 5); !errors.Is(err, models.ErrScheduleNotFound) {
		t.Fatalf("automatic release = %v, want ErrScheduleNotFound", err)
	}
}

func TestGetPendingAndDue(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)
	lockBounty(t, e, 1, 1000)

	t1 := e.clock.now + 100
	t2 := e.clock.now + 200
	if _, err := e.schedule.Create(ctx, testDepositor, 1, 300, t1, "EQA"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.schedule.Create(ctx, testDepositor, 1, 300, t2, "EQB"); err != nil {
		t.Fatalf("create: %v", err)
	}

	pending, err := e.schedule.GetPending(ctx, 1)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	e.clock.now = t2
	if err := e.schedule.ReleaseAutomatic(ctx, "EQAnyone", 1, 1); err != nil {
		t.Fatalf("release: %v", err)
	}

	pending, _ = e.schedule.GetPending(ctx, 1)
	if len(pending) != 1 || pending[0].ScheduleID != 2 {
		t.Errorf("pending after release = %+v", pending)
	}
	due, _ := e.schedule.GetDue(ctx, 1)
	if len(due) != 1 || due[0].ScheduleID != 2 {
		t.Errorf("due after release = %+v", due)
	}
}

func TestReleaseDueSweep(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.mustInit(t)
	lockBounty(t, e, 1, 1000)
	lockBounty(t, e, 2, 1000)

	if _, err := e.schedule.Create(ctx, testDepositor, 1, 100, e.clock.now+10, "EQA"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.schedule.Create(ctx, testDepositor, 2, 200, e.clock.now+20, "EQB"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.schedule.Create(ctx, testDepositor, 2, 300, e.clock.now+10_000, "EQC"); err != nil {
		t.Fatalf("create: %v", err)
	}

	e.clock.now += 30
	released, err := e.schedule.ReleaseDue(ctx, "scheduler")
	if err != nil {
		t.Fatalf("release due: %v", err)
	}
	if released != 2 {
		t.Errorf("released = %d, want 2", released)
	}

	s, _ := e.schedule.Get(ctx, 1, 1)
	if s.ReleasedBy == nil || *s.ReleasedBy != "scheduler" {
		t.Errorf("released_by = %v, want scheduler", s.ReleasedBy)
	}

	// Second sweep finds nothing.
	released, err = e.schedule.ReleaseDue(ctx, "scheduler")
	if err != nil {
		t.Fatalf("release due: %v", err)
	}
	if released != 0 {
		t.Errorf("released = %d, want 0", released)
	}
}
