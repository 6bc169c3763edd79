package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/pkg/errors"
)

type auditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *auditRepository {
	return &auditRepository{
		db:     db,
		logger: logger,
	}
}

func (r *auditRepository) Record(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, action, target, outcome, message, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Action,
		entry.Target,
		entry.Outcome,
		entry.Message,
		entry.Role,
		entry.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to record audit entry", zap.String("action", entry.Action), zap.Error(err))
		return err
	}

	return nil
}

// ListRecent returns the newest entries first
func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT id, action, target, outcome, message, role, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to query audit log", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(
			&e.ID,
			&e.Action,
			&e.Target,
			&e.Outcome,
			&e.Message,
			&e.Role,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

func (r *auditRepository) GetByID(ctx context.Context, id string) (*domain.AuditEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &errors.ErrNotFound{Resource: "audit entry", ID: id}
	}

	query := `
		SELECT id, action, target, outcome, message, role, created_at
		FROM audit_log
		WHERE id = $1
	`

	var e domain.AuditEntry
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID,
		&e.Action,
		&e.Target,
		&e.Outcome,
		&e.Message,
		&e.Role,
		&e.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "audit entry", ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to get audit entry", zap.Error(err))
		return nil, err
	}

	return &e, nil
}
