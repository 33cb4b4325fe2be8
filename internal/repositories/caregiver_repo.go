package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/nurseaide/internal/models"
)

var ErrNotFound = errors.New("not found")

type PostgresCaregiverRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCaregiverRepository(pool *pgxpool.Pool) *PostgresCaregiverRepository {
	return &PostgresCaregiverRepository{pool: pool}
}

func (r *PostgresCaregiverRepository) Create(ctx context.Context, caregiver *models.Caregiver) error {
	query := `INSERT INTO caregivers (email, display_name, password_hash)
	          VALUES ($1, $2, $3)
	          RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, caregiver.Email, caregiver.DisplayName, caregiver.PasswordHash).
		Scan(&caregiver.ID, &caregiver.CreatedAt, &caregiver.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create caregiver: %w", err)
	}
	return nil
}

func (r *PostgresCaregiverRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Caregiver, error) {
	query := `SELECT id, email, display_name, password_hash, created_at, updated_at, deleted_at
	          FROM caregivers
	          WHERE id = $1 AND deleted_at IS NULL`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresCaregiverRepository) GetByEmail(ctx context.Context, email string) (*models.Caregiver, error) {
	query := `SELECT id, email, display_name, password_hash, created_at, updated_at, deleted_at
	          FROM caregivers
	          WHERE email = $1 AND deleted_at IS NULL`

	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *PostgresCaregiverRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE caregivers SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete caregiver: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresCaregiverRepository) scanOne(row pgx.Row) (*models.Caregiver, error) {
	var caregiver models.Caregiver
	err := row.Scan(
		&caregiver.ID,
		&caregiver.Email,
		&caregiver.DisplayName,
		&caregiver.PasswordHash,
		&caregiver.CreatedAt,
		&caregiver.UpdatedAt,
		&caregiver.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get caregiver: %w", err)
	}
	return &caregiver, nil
}
