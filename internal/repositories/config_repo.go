package repositories

import (
	"context"
	"errors"

	"github.com/icedoutskay/grainlify/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConfigRepo holds the singleton admin/token configuration row.
type ConfigRepo struct {
	pool *pgxpool.Pool
}

func NewConfigRepo(pool *pgxpool.Pool) *ConfigRepo {
	return &ConfigRepo{pool: pool}
}

func (r *ConfigRepo) Get(ctx context.Context) (*models.EscrowConfig, error) {
	var cfg models.EscrowConfig
	err := r.pool.QueryRow(ctx, `
		SELECT admin_address, token_address, initialized_at
		FROM escrow_config WHERE id = 1
	`).Scan(&cfg.AdminAddress, &cfg.TokenAddress, &cfg.InitializedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *ConfigRepo) Set(ctx context.Context, cfg *models.EscrowConfig) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO escrow_config (id, admin_address, token_address, initialized_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, cfg.AdminAddress, cfg.TokenAddress, cfg.InitializedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAlreadyInitialized
	}
	return nil
}
