package repositories

import (
	"context"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/models"
)

type AuditRepo struct {
	db dbtx
}

func NewAuditRepo(db dbtx) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Log(ctx context.Context, entry models.AuditLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_log (actor_type, actor_id, action, entity_type, entity_id, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ActorType, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, entry.Meta)
	if err != nil {
		return apperrors.NewStorageError("write audit log", err)
	}
	return nil
}

func (r *AuditRepo) GetByEntity(ctx context.Context, entityType string, entityID int64, limit, offset int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, actor_type, actor_id, action, entity_type, entity_id, meta, created_at
		FROM audit_log WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4
	`, entityType, entityID, limit, offset)
	if err != nil {
		return nil, apperrors.NewStorageError("read audit log", err)
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.ActorType, &l.ActorID, &l.Action, &l.EntityType, &l.EntityID, &l.Meta, &l.CreatedAt); err != nil {
			return nil, apperrors.NewStorageError("read audit log", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
