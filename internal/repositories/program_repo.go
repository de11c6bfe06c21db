package repositories

import (
	"context"
	"errors"

	"github.com/icedoutskay/grainlify/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgramRepo holds the singleton payout pool plus its history rows.
type ProgramRepo struct {
	pool *pgxpool.Pool
}

func NewProgramRepo(pool *pgxpool.Pool) *ProgramRepo {
	return &ProgramRepo{pool: pool}
}

func (r *ProgramRepo) Get(ctx context.Context) (*models.ProgramData, error) {
	var p models.ProgramData
	err := r.pool.QueryRow(ctx, `
		SELECT program_id, total_funds, remaining_balance, authorized_payout_key, token_address, created_at
		FROM program_data WHERE id = 1
	`).Scan(&p.ProgramID, &p.TotalFunds, &p.RemainingBalance, &p.AuthorizedPayoutKey, &p.TokenAddress, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT recipient, amount, paid_at FROM payout_history ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	p.PayoutHistory = []models.PayoutRecord{}
	for rows.Next() {
		var rec models.PayoutRecord
		if err := rows.Scan(&rec.Recipient, &rec.Amount, &rec.Timestamp); err != nil {
			return nil, err
		}
		p.PayoutHistory = append(p.PayoutHistory, rec)
	}
	return &p, rows.Err()
}

func (r *ProgramRepo) Init(ctx context.Context, p *models.ProgramData) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO program_data (id, program_id, total_funds, remaining_balance, authorized_payout_key, token_address, created_at)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, p.ProgramID, p.TotalFunds, p.RemainingBalance, p.AuthorizedPayoutKey, p.TokenAddress, p.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAlreadyInitialized
	}
	return nil
}

func (r *ProgramRepo) AddFunds(ctx context.Context, amount int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE program_data
		SET total_funds = total_funds + $1, remaining_balance = remaining_balance + $1
		WHERE id = 1
	`, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotInitialized
	}
	return nil
}

// ApplyPayouts deducts the total and appends the history rows in one
// transaction. The balance is re-checked inside the UPDATE so a concurrent
// payout cannot drive it negative.
func (r *ProgramRepo) ApplyPayouts(ctx context.Context, total int64, records []models.PayoutRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE program_data SET remaining_balance = remaining_balance - $1
		WHERE id = 1 AND remaining_balance >= $1
	`, total)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrInsufficientBalance
	}

	for _, rec := range records {
		_, err := tx.Exec(ctx, `
			INSERT INTO payout_history (recipient, amount, paid_at) VALUES ($1, $2, $3)
		`, rec.Recipient, rec.Amount, rec.Timestamp)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ProgramRepo) GetMetadata(ctx context.Context) (*models.ProgramMetadata, error) {
	var md models.ProgramMetadata
	err := r.pool.QueryRow(ctx, `
		SELECT metadata FROM program_metadata WHERE id = 1
	`).Scan(&md)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	return &md, nil
}

func (r *ProgramRepo) SetMetadata(ctx context.Context, md *models.ProgramMetadata) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO program_metadata (id, metadata)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET metadata = EXCLUDED.metadata, updated_at = now()
	`, md)
	return err
}
