package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/icedoutskay/grainlify/internal/models"
)

const testPayoutKey = "EQPayoutKey"

func initProgram(t *testing.T, e *env) {
	t.Helper()
	if err := e.program.Init(context.Background(), "hackathon-2026", testPayoutKey, testToken); err != nil {
		t.Fatalf("init program: %v", err)
	}
}

func TestProgramInitOnlyOnce(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	initProgram(t, e)

	if err := e.program.Init(ctx, "other", "EQOtherKey", testToken); !errors.Is(err, models.ErrAlreadyInitialized) {
		t.Fatalf("second init = %v, want ErrAlreadyInitialized", err)
	}

	info, err := e.program.GetInfo(ctx)
	if err != nil {
		t.Fatalf("get info: %v", err)
	}
	if info.ProgramID != "hackathon-2026" || info.TotalFunds != 0 || info.RemainingBalance != 0 {
		t.Errorf("info = %+v", info)
	}
}

func TestLockFunds(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	if err := e.program.LockFunds(ctx, "watcher", 100); !errors.Is(err, models.ErrNotInitialized) {
		t.Fatalf("lock before init = %v, want ErrNotInitialized", err)
	}

	initProgram(t, e)

	if err := e.program.LockFunds(ctx, "watcher", 0); !errors.Is(err, models.ErrInvalidAmount) {
		t.Fatalf("lock zero = %v, want ErrInvalidAmount", err)
	}
	if err := e.program.LockFunds(ctx, "watcher", 5000); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := e.program.LockFunds(ctx, "watcher", 2000); err != nil {
		t.Fatalf("lock: %v", err)
	}

	info, _ := e.program.GetInfo(ctx)
	if info.TotalFunds != 7000 || info.RemainingBalance != 7000 {
		t.Errorf("funds = %d/%d, want 7000/7000", info.TotalFunds, info.RemainingBalance)
	}
}

func TestBatchPayout(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	initProgram(t, e)
	if err := e.program.LockFunds(ctx, "watcher", 7000); err != nil {
		t.Fatalf("lock: %v", err)
	}

	t.Run("authorized key only", func(t *testing.T) {
		err := e.program.BatchPayout(ctx, "EQStranger", []string{"EQA"}, []int64{100})
		if !errors.Is(err, models.ErrUnauthorized) {
			t.Fatalf("payout = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		err := e.program.BatchPayout(ctx, testPayoutKey, []string{"EQA", "EQB"}, []int64{100})
		if !errors.Is(err, models.ErrBatchMismatch) {
			t.Fatalf("payout = %v, want ErrBatchMismatch", err)
		}
	})

	t.Run("empty lists", func(t *testing.T) {
		err := e.program.BatchPayout(ctx, testPayoutKey, nil, nil)
		if !errors.Is(err, models.ErrBatchMismatch) {
			t.Fatalf("payout = %v, want ErrBatchMismatch", err)
		}
	})

	t.Run("non-positive amount", func(t *testing.T) {
		err := e.program.BatchPayout(ctx, testPayoutKey, []string{"EQA", "EQB"}, []int64{100, 0})
		if !errors.Is(err, models.ErrInvalidAmount) {
			t.Fatalf("payout = %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("insufficient balance leaves pool untouched", func(t *testing.T) {
		err := e.program.BatchPayout(ctx, testPayoutKey, []string{"EQA", "EQB"}, []int64{5000, 3000})
		if !errors.Is(err, models.ErrInsufficientBalance) {
			t.Fatalf("payout = %v, want ErrInsufficientBalance", err)
		}
		balance, _ := e.program.GetRemainingBalance(ctx)
		if balance != 7000 {
			t.Errorf("remaining = %d, want 7000", balance)
		}
	})

	t.Run("overflowing total", func(t *testing.T) {
		err := e.program.BatchPayout(ctx, testPayoutKey, []string{"EQA", "EQB"}, []int64{math.MaxInt64, 1})
		if !errors.Is(err, models.ErrAmountOverflow) {
			t.Fatalf("payout = %v, want ErrAmountOverflow", err)
		}
	})

	t.Run("success", func(t *testing.T) {
		err := e.program.BatchPayout(ctx, testPayoutKey, []string{"EQA", "EQB"}, []int64{4000, 3000})
		if err != nil {
			t.Fatalf("payout: %v", err)
		}
		info, _ := e.program.GetInfo(ctx)
		if info.RemainingBalance != 0 {
			t.Errorf("remaining = %d, want 0", info.RemainingBalance)
		}
		if len(info.PayoutHistory) != 2 {
			t.Fatalf("history length = %d, want 2", len(info.PayoutHistory))
		}
		if info.PayoutHistory[0].Recipient != "EQA" || info.PayoutHistory[1].Recipient != "EQB" {
			t.Errorf("history order = %+v", info.PayoutHistory)
		}
		balanceA, _ := e.token.BalanceOf(ctx, "EQA")
		if balanceA != 4000 {
			t.Errorf("recipient A balance = %d, want 4000", balanceA)
		}
	})
}

func TestSinglePayout(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	initProgram(t, e)
	if err := e.program.LockFunds(ctx, "watcher", 1000); err != nil {
		t.Fatalf("lock: %v", err)
	}

	if err := e.program.SinglePayout(ctx, "EQStranger", "EQA", 100); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("payout = %v, want ErrUnauthorized", err)
	}
	if err := e.program.SinglePayout(ctx, testPayoutKey, "EQA", 1001); !errors.Is(err, models.ErrInsufficientBalance) {
		t.Fatalf("payout = %v, want ErrInsufficientBalance", err)
	}
	if err := e.program.SinglePayout(ctx, testPayoutKey, "EQA", -1); !errors.Is(err, models.ErrInvalidAmount) {
		t.Fatalf("payout = %v, want ErrInvalidAmount", err)
	}
	if err := e.program.SinglePayout(ctx, testPayoutKey, "EQA", 600); err != nil {
		t.Fatalf("payout: %v", err)
	}

	info, _ := e.program.GetInfo(ctx)
	if info.RemainingBalance != 400 || info.TotalFunds != 1000 {
		t.Errorf("funds = %d/%d, want 400/1000", info.RemainingBalance, info.TotalFunds)
	}
	if len(info.PayoutHistory) != 1 || info.PayoutHistory[0].Amount != 600 {
		t.Errorf("history = %+v", info.PayoutHistory)
	}
}

func TestProgramBalanceIdentity(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	initProgram(t, e)
	if err := e.program.LockFunds(ctx, "watcher", 10_000); err != nil {
		t.Fatalf("lock: %v", err)
	}

	_ = e.program.SinglePayout(ctx, testPayoutKey, "EQA", 1500)
	_ = e.program.BatchPayout(ctx, testPayoutKey, []string{"EQB", "EQC"}, []int64{2000, 500})
	if err := e.program.LockFunds(ctx, "watcher", 3000); err != nil {
		t.Fatalf("lock: %v", err)
	}

	info, _ := e.program.GetInfo(ctx)
	var paid int64
	for _, record := range info.PayoutHistory {
		paid += record.Amount
	}
	if info.RemainingBalance != info.TotalFunds-paid {
		t.Errorf("identity violated: remaining=%d total=%d paid=%d",
			info.RemainingBalance, info.TotalFunds, paid)
	}
	if info.RemainingBalance < 0 || info.RemainingBalance > info.TotalFunds {
		t.Errorf("remaining out of range: %d", info.RemainingBalance)
	}
}

func TestProgramMetadata(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	initProgram(t, e)

	name := "Hackathon 2026"
	md := &models.ProgramMetadata{EventName: &name}

	if err := e.program.SetMetadata(ctx, "EQStranger", md); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("set by stranger = %v, want ErrUnauthorized", err)
	}
	if err := e.program.SetMetadata(ctx, testPayoutKey, md); err != nil {
		t.Fatalf("set metadata: %v", err)
	}

	tags := make([]string, 31)
	for i := range tags {
		tags[i] = "t"
	}
	if err := e.program.SetMetadata(ctx, testPayoutKey, &models.ProgramMetadata{Tags: tags}); !errors.Is(err, models.ErrMetadataTooLarge) {
		t.Fatalf("oversized metadata = %v, want ErrMetadataTooLarge", err)
	}

	view, err := e.program.GetWithMetadata(ctx)
	if err != nil {
		t.Fatalf("get with metadata: %v", err)
	}
	if view.Metadata == nil || view.Metadata.EventName == nil || *view.Metadata.EventName != name {
		t.Errorf("metadata = %+v", view.Metadata)
	}
}
