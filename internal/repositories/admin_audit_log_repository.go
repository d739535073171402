package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/joblane/verification-service/internal/models"
)

type AdminAuditLogRepository interface {
	Create(ctx context.Context, entry *models.AdminAuditLog) error
	ListByTarget(ctx context.Context, targetID uuid.UUID) ([]*models.AdminAuditLog, error)
}

type adminAuditLogRepo struct {
	db DB
}

func NewAdminAuditLogRepository(db DB) AdminAuditLogRepository {
	return &adminAuditLogRepo{db: db}
}

func (r *adminAuditLogRepo) Create(ctx context.Context, entry *models.AdminAuditLog) error {
	q := `
		INSERT INTO admin_audit_logs (id, admin_id, action, target_id, target_type, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.db.Exec(ctx, q,
		entry.ID, entry.AdminID, string(entry.Action), entry.TargetID, string(entry.TargetType), entry.Details,
	)
	return err
}

func (r *adminAuditLogRepo) ListByTarget(ctx context.Context, targetID uuid.UUID) ([]*models.AdminAuditLog, error) {
	q := `
		SELECT id, admin_id, action, target_id, target_type, details, created_at
		FROM admin_audit_logs
		WHERE target_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, q, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AdminAuditLog
	for rows.Next() {
		var e models.AdminAuditLog
		var action, targetType string
		if err := rows.Scan(&e.ID, &e.AdminID, &action, &e.TargetID, &targetType, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = models.AuditAction(action)
		e.TargetType = models.AuditTargetType(targetType)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
