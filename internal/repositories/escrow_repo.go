package repositories

import (
	"context"
	"errors"

	"github.com/icedoutskay/grainlify/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

func (r *EscrowRepo) Has(ctx context.Context, bountyID uint64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM escrows WHERE bounty_id = $1)
	`, int64(bountyID)).Scan(&exists)
	return exists, err
}

func (r *EscrowRepo) Get(ctx context.Context, bountyID uint64) (*models.Escrow, error) {
	var e models.Escrow
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT bounty_id, depositor, amount, status, deadline, created_at
		FROM escrows WHERE bounty_id = $1
	`, int64(bountyID)).Scan(&id, &e.Depositor, &e.Amount, &e.Status, &e.Deadline, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrBountyNotFound
	}
	if err != nil {
		return nil, err
	}
	e.BountyID = uint64(id)
	return &e, nil
}

func (r *EscrowRepo) Create(ctx context.Context, e *models.Escrow) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO escrows (bounty_id, depositor, amount, status, deadline)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, int64(e.BountyID), e.Depositor, e.Amount, e.Status, e.Deadline).Scan(&e.CreatedAt)
}

// CreateBatch inserts all escrows in one transaction; a failing insert rolls
// back every previous one.
func (r *EscrowRepo) CreateBatch(ctx context.Context, escrows []*models.Escrow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, e := range escrows {
		err := tx.QueryRow(ctx, `
			INSERT INTO escrows (bounty_id, depositor, amount, status, deadline)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`, int64(e.BountyID), e.Depositor, e.Amount, e.Status, e.Deadline).Scan(&e.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// UpdateStatus flips the escrow status conditionally on the current one, so
// the state machine is enforced at the storage layer too.
func (r *EscrowRepo) UpdateStatus(ctx context.Context, bountyID uint64, from, to string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrows SET status = $1 WHERE bounty_id = $2 AND status = $3
	`, to, int64(bountyID), from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrFundsNotLocked
	}
	return nil
}

func (r *EscrowRepo) UpdateStatusBatch(ctx context.Context, bountyIDs []uint64, from, to string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, id := range bountyIDs {
		tag, err := tx.Exec(ctx, `
			UPDATE escrows SET status = $1 WHERE bounty_id = $2 AND status = $3
		`, to, int64(id), from)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return models.ErrFundsNotLocked
		}
	}
	return tx.Commit(ctx)
}

func (r *EscrowRepo) GetMetadata(ctx context.Context, bountyID uint64) (*models.EscrowMetadata, error) {
	var md models.EscrowMetadata
	err := r.pool.QueryRow(ctx, `
		SELECT metadata FROM escrow_metadata WHERE bounty_id = $1
	`, int64(bountyID)).Scan(&md)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrBountyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &md, nil
}

func (r *EscrowRepo) SetMetadata(ctx context.Context, bountyID uint64, md *models.EscrowMetadata) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO escrow_metadata (bounty_id, metadata)
		VALUES ($1, $2)
		ON CONFLICT (bounty_id) DO UPDATE SET metadata = EXCLUDED.metadata, updated_at = now()
	`, int64(bountyID), md)
	return err
}
