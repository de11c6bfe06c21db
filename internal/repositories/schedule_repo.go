package repositories

import (
	"context"
	"errors"

	"github.com/icedoutskay/grainlify/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScheduleRepo struct {
	pool *pgxpool.Pool
}

func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

// Create assigns the next per-bounty schedule_id inside the insert, so the
// counter stays monotonic under the single-writer assumption of the service
// layer.
func (r *ScheduleRepo) Create(ctx context.Context, s *models.ReleaseSchedule) error {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO release_schedules (bounty_id, schedule_id, amount, release_at, recipient)
		SELECT $1, COALESCE(MAX(schedule_id), 0) + 1, $2, $3, $4
		FROM release_schedules WHERE bounty_id = $1
		RETURNING schedule_id, created_at
	`, int64(s.BountyID), s.Amount, s.ReleaseAt, s.Recipient).Scan(&id, &s.CreatedAt)
	if err != nil {
		return err
	}
	s.ScheduleID = uint64(id)
	return nil
}

func (r *ScheduleRepo) Get(ctx context.Context, bountyID, scheduleID uint64) (*models.ReleaseSchedule, error) {
	s, err := scanSchedule(r.pool.QueryRow(ctx, `
		SELECT bounty_id, schedule_id, amount, release_at, recipient,
		       released, released_at, released_by, release_type, created_at
		FROM release_schedules WHERE bounty_id = $1 AND schedule_id = $2
	`, int64(bountyID), int64(scheduleID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrScheduleNotFound
	}
	return s, err
}

func (r *ScheduleRepo) ListByBounty(ctx context.Context, bountyID uint64) ([]models.ReleaseSchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT bounty_id, schedule_id, amount, release_at, recipient,
		       released, released_at, released_by, release_type, created_at
		FROM release_schedules WHERE bounty_id = $1
		ORDER BY schedule_id
	`, int64(bountyID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func (r *ScheduleRepo) SumAmounts(ctx context.Context, bountyID uint64) (int64, error) {
	var sum int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM release_schedules WHERE bounty_id = $1
	`, int64(bountyID)).Scan(&sum)
	return sum, err
}

// Release marks the schedule released and appends the history row in one
// transaction. The conditional UPDATE guards against double release.
func (r *ScheduleRepo) Release(ctx context.Context, bountyID, scheduleID uint64, releasedAt int64, releasedBy, releaseType string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var amount int64
	var recipient string
	err = tx.QueryRow(ctx, `
		UPDATE release_schedules
		SET released = TRUE, released_at = $1, released_by = $2, release_type = $3
		WHERE bounty_id = $4 AND schedule_id = $5 AND NOT released
		RETURNING amount, recipient
	`, releasedAt, releasedBy, releaseType, int64(bountyID), int64(scheduleID)).Scan(&amount, &recipient)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrAlreadyReleased
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO release_history (bounty_id, schedule_id, amount, recipient, release_type, released_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, int64(bountyID), int64(scheduleID), amount, recipient, releaseType, releasedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ScheduleRepo) ListHistory(ctx context.Context, bountyID uint64) ([]models.ReleaseRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT bounty_id, schedule_id, amount, recipient, release_type, released_at
		FROM release_history WHERE bounty_id = $1
		ORDER BY id
	`, int64(bountyID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ReleaseRecord
	for rows.Next() {
		var rec models.ReleaseRecord
		var bID, sID int64
		if err := rows.Scan(&bID, &sID, &rec.Amount, &rec.Recipient, &rec.ReleaseType, &rec.ReleasedAt); err != nil {
			return nil, err
		}
		rec.BountyID = uint64(bID)
		rec.ScheduleID = uint64(sID)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *ScheduleRepo) ListDue(ctx context.Context, now int64) ([]models.ReleaseSchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT bounty_id, schedule_id, amount, release_at, recipient,
		       released, released_at, released_by, release_type, created_at
		FROM release_schedules
		WHERE NOT released AND release_at <= $1
		ORDER BY release_at
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func scanSchedule(row pgx.Row) (*models.ReleaseSchedule, error) {
	var s models.ReleaseSchedule
	var bID, sID int64
	var releaseType *string
	err := row.Scan(&bID, &sID, &s.Amount, &s.ReleaseAt, &s.Recipient,
		&s.Released, &s.ReleasedAt, &s.ReleasedBy, &releaseType, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.BountyID = uint64(bID)
	s.ScheduleID = uint64(sID)
	if releaseType != nil {
		s.ReleaseType = *releaseType
	}
	return &s, nil
}

func collectSchedules(rows pgx.Rows) ([]models.ReleaseSchedule, error) {
	var schedules []models.ReleaseSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}
