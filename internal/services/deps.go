package services

import (
	"context"
	"time"

	"github.com/icedoutskay/grainlify/internal/models"
)

// Store interfaces are defined here, next to their consumers. The Postgres
// implementations live in internal/repositories; internal/repositories/memory
// provides an in-memory implementation used by the service tests.

// ConfigStore holds the singleton admin/token configuration.
type ConfigStore interface {
	Get(ctx context.Context) (*models.EscrowConfig, error)
	// Set writes the config once. Returns models.ErrAlreadyInitialized if a
	// config already exists.
	Set(ctx context.Context, cfg *models.EscrowConfig) error
}

// EscrowStore persists per-bounty escrow records and their metadata.
type EscrowStore interface {
	Has(ctx context.Context, bountyID uint64) (bool, error)
	Get(ctx context.Context, bountyID uint64) (*models.Escrow, error)
	Create(ctx context.Context, e *models.Escrow) error
	// CreateBatch inserts all escrows in a single transaction. If any insert
	// fails, none are persisted.
	CreateBatch(ctx context.Context, escrows []*models.Escrow) error
	// UpdateStatus transitions a single escrow. The update is conditional on
	// the current status; models.ErrFundsNotLocked is returned when the row is
	// no longer in `from`.
	UpdateStatus(ctx context.Context, bountyID uint64, from, to string) error
	// UpdateStatusBatch transitions all escrows in a single transaction, or
	// none of them.
	UpdateStatusBatch(ctx context.Context, bountyIDs []uint64, from, to string) error
	GetMetadata(ctx context.Context, bountyID uint64) (*models.EscrowMetadata, error)
	SetMetadata(ctx context.Context, bountyID uint64, md *models.EscrowMetadata) error
}

// ScheduleStore persists release schedules and the per-bounty release history.
type ScheduleStore interface {
	// Create assigns the next schedule_id for the bounty (monotonic from 1)
	// and stores the schedule. The assigned id is written back into s.
	Create(ctx context.Context, s *models.ReleaseSchedule) error
	Get(ctx context.Context, bountyID, scheduleID uint64) (*models.ReleaseSchedule, error)
	ListByBounty(ctx context.Context, bountyID uint64) ([]models.ReleaseSchedule, error)
	// SumAmounts returns the total amount across all schedules of a bounty,
	// released or not.
	SumAmounts(ctx context.Context, bountyID uint64) (int64, error)
	// Release marks the schedule released and appends the history record in
	// one transaction. Returns models.ErrAlreadyReleased if the schedule is
	// already released.
	Release(ctx context.Context, bountyID, scheduleID uint64, releasedAt int64, releasedBy, releaseType string) error
	ListHistory(ctx context.Context, bountyID uint64) ([]models.ReleaseRecord, error)
	// ListDue returns unreleased schedules across all bounties with
	// release_at <= now, ordered by release_at.
	ListDue(ctx context.Context, now int64) ([]models.ReleaseSchedule, error)
}

// ProgramStore persists the singleton payout pool.
type ProgramStore interface {
	Get(ctx context.Context) (*models.ProgramData, error)
	// Init writes the program once. Returns models.ErrAlreadyInitialized if
	// the program already exists.
	Init(ctx context.Context, p *models.ProgramData) error
	// AddFunds increments total_funds and remaining_balance atomically.
	AddFunds(ctx context.Context, amount int64) error
	// ApplyPayouts deducts the total and appends the records in one
	// transaction, re-checking the balance under the transaction. Returns
	// models.ErrInsufficientBalance if the deduction would go negative.
	ApplyPayouts(ctx context.Context, total int64, records []models.PayoutRecord) error
	GetMetadata(ctx context.Context) (*models.ProgramMetadata, error)
	SetMetadata(ctx context.Context, md *models.ProgramMetadata) error
}

// AuditStore is the append-only action log.
type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
	ListByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]models.AuditLog, error)
}

// TokenClient moves tokens between the custody wallet and external accounts.
// Incoming legs (depositor to custody) are observed out-of-band by the
// deposit watcher; Transfer only signs outgoing custody sends.
type TokenClient interface {
	Transfer(ctx context.Context, from, to string, amount int64) error
	BalanceOf(ctx context.Context, account string) (int64, error)
}

// Clock abstracts unix time so temporal rules are testable.
type Clock interface {
	Now() int64
}

// SystemClock is the wall-clock implementation used by the binaries.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }
