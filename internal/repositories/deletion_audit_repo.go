package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/nurseaide/internal/models"
)

type PostgresDeletionAuditRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDeletionAuditRepository(pool *pgxpool.Pool) *PostgresDeletionAuditRepository {
	return &PostgresDeletionAuditRepository{pool: pool}
}

func (r *PostgresDeletionAuditRepository) Record(ctx context.Context, entry *models.DeletionAudit) error {
	query := `INSERT INTO request_deletions (path, request_id, caregiver_id, succeeded, existed, error)
	          VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
	          RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		entry.Path,
		entry.RequestID,
		entry.CaregiverID,
		entry.Succeeded,
		entry.Existed,
		entry.Error,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record deletion: %w", err)
	}
	return nil
}

// ListByRequestID returns every recorded attempt for one request, oldest first.
func (r *PostgresDeletionAuditRepository) ListByRequestID(ctx context.Context, path, requestID string) ([]*models.DeletionAudit, error) {
	query := `SELECT id, path, request_id, caregiver_id, succeeded, existed, COALESCE(error, ''), created_at
	          FROM request_deletions
	          WHERE path = $1 AND request_id = $2
	          ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, path, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deletions: %w", err)
	}
	defer rows.Close()

	var entries []*models.DeletionAudit
	for rows.Next() {
		var entry models.DeletionAudit
		err := rows.Scan(
			&entry.ID,
			&entry.Path,
			&entry.RequestID,
			&entry.CaregiverID,
			&entry.Succeeded,
			&entry.Existed,
			&entry.Error,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deletion: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deletions: %w", err)
	}
	return entries, nil
}
