// Package memory holds an in-memory implementation of the service store
// interfaces. It backs the service tests and mirrors the transactional
// behavior of the Postgres repositories: every multi-row mutation happens
// under one mutex hold, all-or-nothing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/icedoutskay/grainlify/internal/models"
)

type Store struct {
	mu sync.RWMutex

	config          *models.EscrowConfig
	escrows         map[uint64]*models.Escrow
	escrowMetadata  map[uint64]*models.EscrowMetadata
	schedules       map[uint64][]*models.ReleaseSchedule
	history         map[uint64][]models.ReleaseRecord
	program         *models.ProgramData
	programMetadata *models.ProgramMetadata
	auditLog        []models.AuditLog
}

func NewStore() *Store {
	return &Store{
		escrows:        make(map[uint64]*models.Escrow),
		escrowMetadata: make(map[uint64]*models.EscrowMetadata),
		schedules:      make(map[uint64][]*models.ReleaseSchedule),
		history:        make(map[uint64][]models.ReleaseRecord),
	}
}

// --- ConfigStore ---

func (s *Store) Get(ctx context.Context) (*models.EscrowConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, models.ErrNotInitialized
	}
	cfg := *s.config
	return &cfg, nil
}

func (s *Store) Set(ctx context.Context, cfg *models.EscrowConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config != nil {
		return models.ErrAlreadyInitialized
	}
	c := *cfg
	s.config = &c
	return nil
}

// --- EscrowStore ---

type EscrowRepo struct{ s *Store }

// Escrows returns the escrow-facing view of the store.
func (s *Store) Escrows() *EscrowRepo { return &EscrowRepo{s} }

func (v *EscrowRepo) Has(ctx context.Context, bountyID uint64) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	_, ok := v.s.escrows[bountyID]
	return ok, nil
}

func (v *EscrowRepo) Get(ctx context.Context, bountyID uint64) (*models.Escrow, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	e, ok := v.s.escrows[bountyID]
	if !ok {
		return nil, models.ErrBountyNotFound
	}
	cp := *e
	return &cp, nil
}

func (v *EscrowRepo) Create(ctx context.Context, e *models.Escrow) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.escrows[e.BountyID]; ok {
		return models.ErrBountyExists
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	cp := *e
	v.s.escrows[e.BountyID] = &cp
	return nil
}

func (v *EscrowRepo) CreateBatch(ctx context.Context, escrows []*models.Escrow) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, e := range escrows {
		if _, ok := v.s.escrows[e.BountyID]; ok {
			return models.ErrBountyExists
		}
	}
	for _, e := range escrows {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now()
		}
		cp := *e
		v.s.escrows[e.BountyID] = &cp
	}
	return nil
}

func (v *EscrowRepo) UpdateStatus(ctx context.Context, bountyID uint64, from, to string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.escrows[bountyID]
	if !ok {
		return models.ErrBountyNotFound
	}
	if e.Status != from {
		return models.ErrFundsNotLocked
	}
	e.Status = to
	return nil
}

func (v *EscrowRepo) UpdateStatusBatch(ctx context.Context, bountyIDs []uint64, from, to string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, id := range bountyIDs {
		e, ok := v.s.escrows[id]
		if !ok {
			return models.ErrBountyNotFound
		}
		if e.Status != from {
			return models.ErrFundsNotLocked
		}
	}
	for _, id := range bountyIDs {
		v.s.escrows[id].Status = to
	}
	return nil
}

func (v *EscrowRepo) GetMetadata(ctx context.Context, bountyID uint64) (*models.EscrowMetadata, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	md, ok := v.s.escrowMetadata[bountyID]
	if !ok {
		return nil, models.ErrBountyNotFound
	}
	cp := *md
	return &cp, nil
}

func (v *EscrowRepo) SetMetadata(ctx context.Context, bountyID uint64, md *models.EscrowMetadata) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.escrows[bountyID]; !ok {
		return models.ErrBountyNotFound
	}
	cp := *md
	v.s.escrowMetadata[bountyID] = &cp
	return nil
}

// --- ScheduleStore ---

type ScheduleRepo struct{ s *Store }

// Schedules returns the schedule-facing view of the store.
func (s *Store) Schedules() *ScheduleRepo { return &ScheduleRepo{s} }

func (v *ScheduleRepo) Create(ctx context.Context, sch *models.ReleaseSchedule) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	list := v.s.schedules[sch.BountyID]
	sch.ScheduleID = uint64(len(list)) + 1
	if sch.CreatedAt.IsZero() {
		sch.CreatedAt = time.Now()
	}
	cp := *sch
	v.s.schedules[sch.BountyID] = append(list, &cp)
	return nil
}

func (v *ScheduleRepo) Get(ctx context.Context, bountyID, scheduleID uint64) (*models.ReleaseSchedule, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, sch := range v.s.schedules[bountyID] {
		if sch.ScheduleID == scheduleID {
			cp := *sch
			return &cp, nil
		}
	}
	return nil, models.ErrScheduleNotFound
}

func (v *ScheduleRepo) ListByBounty(ctx context.Context, bountyID uint64) ([]models.ReleaseSchedule, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	list := v.s.schedules[bountyID]
	out := make([]models.ReleaseSchedule, len(list))
	for i, sch := range list {
		out[i] = *sch
	}
	return out, nil
}

func (v *ScheduleRepo) SumAmounts(ctx context.Context, bountyID uint64) (int64, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var sum int64
	for _, sch := range v.s.schedules[bountyID] {
		sum += sch.Amount
	}
	return sum, nil
}

func (v *ScheduleRepo) Release(ctx context.Context, bountyID, scheduleID uint64, releasedAt int64, releasedBy, releaseType string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, sch := range v.s.schedules[bountyID] {
		if sch.ScheduleID != scheduleID {
			continue
		}
		if sch.Released {
			return models.ErrAlreadyReleased
		}
		sch.Released = true
		sch.ReleasedAt = &releasedAt
		sch.ReleasedBy = &releasedBy
		sch.ReleaseType = releaseType
		v.s.history[bountyID] = append(v.s.history[bountyID], models.ReleaseRecord{
			BountyID:    bountyID,
			ScheduleID:  scheduleID,
			Amount:      sch.Amount,
			Recipient:   sch.Recipient,
			ReleaseType: releaseType,
			ReleasedAt:  releasedAt,
		})
		return nil
	}
	return models.ErrScheduleNotFound
}

func (v *ScheduleRepo) ListHistory(ctx context.Context, bountyID uint64) ([]models.ReleaseRecord, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]models.ReleaseRecord, len(v.s.history[bountyID]))
	copy(out, v.s.history[bountyID])
	return out, nil
}

func (v *ScheduleRepo) ListDue(ctx context.Context, now int64) ([]models.ReleaseSchedule, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var due []models.ReleaseSchedule
	for _, list := range v.s.schedules {
		for _, sch := range list {
			if sch.Due(now) {
				due = append(due, *sch)
			}
		}
	}
	// Order by release_at, matching the SQL implementation.
	for i := 1; i < len(due); i++ {
		for j := i; j > 0 && due[j-1].ReleaseAt > due[j].ReleaseAt; j-- {
			due[j-1], due[j] = due[j], due[j-1]
		}
	}
	return due, nil
}

// --- ProgramStore ---

type ProgramRepo struct{ s *Store }

// Programs returns the payout-pool view of the store.
func (s *Store) Programs() *ProgramRepo { return &ProgramRepo{s} }

func (v *ProgramRepo) Get(ctx context.Context) (*models.ProgramData, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if v.s.program == nil {
		return nil, models.ErrNotInitialized
	}
	cp := *v.s.program
	cp.PayoutHistory = make([]models.PayoutRecord, len(v.s.program.PayoutHistory))
	copy(cp.PayoutHistory, v.s.program.PayoutHistory)
	return &cp, nil
}

func (v *ProgramRepo) Init(ctx context.Context, p *models.ProgramData) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.program != nil {
		return models.ErrAlreadyInitialized
	}
	cp := *p
	v.s.program = &cp
	return nil
}

func (v *ProgramRepo) AddFunds(ctx context.Context, amount int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.program == nil {
		return models.ErrNotInitialized
	}
	total, err := models.AddChecked(v.s.program.TotalFunds, amount)
	if err != nil {
		return err
	}
	remaining, err := models.AddChecked(v.s.program.RemainingBalance, amount)
	if err != nil {
		return err
	}
	v.s.program.TotalFunds = total
	v.s.program.RemainingBalance = remaining
	return nil
}

func (v *ProgramRepo) ApplyPayouts(ctx context.Context, total int64, records []models.PayoutRecord) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.program == nil {
		return models.ErrNotInitialized
	}
	if total > v.s.program.RemainingBalance {
		return models.ErrInsufficientBalance
	}
	v.s.program.RemainingBalance -= total
	v.s.program.PayoutHistory = append(v.s.program.PayoutHistory, records...)
	return nil
}

func (v *ProgramRepo) GetMetadata(ctx context.Context) (*models.ProgramMetadata, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if v.s.programMetadata == nil {
		return nil, models.ErrNotInitialized
	}
	cp := *v.s.programMetadata
	return &cp, nil
}

func (v *ProgramRepo) SetMetadata(ctx context.Context, md *models.ProgramMetadata) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	cp := *md
	v.s.programMetadata = &cp
	return nil
}

// --- AuditStore ---

type AuditRepo struct{ s *Store }

// Audit returns the audit-log view of the store.
func (s *Store) Audit() *AuditRepo { return &AuditRepo{s} }

func (v *AuditRepo) Log(ctx context.Context, entry models.AuditLog) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	v.s.auditLog = append(v.s.auditLog, entry)
	return nil
}

func (v *AuditRepo) ListByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]models.AuditLog, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []models.AuditLog
	for _, entry := range v.s.auditLog {
		if entry.EntityType == entityType && entry.EntityID == entityID {
			out = append(out, entry)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
