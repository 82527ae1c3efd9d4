package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/greenledger/internal/audit/domain"
	"gorm.io/gorm"
)

const selectColumns = `id, company_id, actor_type, actor_id, action, target_type, target_id,
	metadata, ip_address, user_agent, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.CompanyID,
		entry.ActorType,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Metadata,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Error
}

// List returns newest entries first. An action ending in ".*" matches every
// action under that prefix.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	clauses := []string{"company_id = ?"}
	args := []any{filter.CompanyID}

	if action := strings.TrimSpace(filter.Action); action != "" {
		if prefix, ok := strings.CutSuffix(action, ".*"); ok {
			clauses = append(clauses, "action LIKE ?")
			args = append(args, prefix+".%")
		} else {
			clauses = append(clauses, "action = ?")
			args = append(args, action)
		}
	}
	if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
		clauses = append(clauses, "target_type = ?")
		args = append(args, targetType)
	}
	if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
		clauses = append(clauses, "target_id = ?")
		args = append(args, targetID)
	}
	if actorType := strings.TrimSpace(filter.ActorType); actorType != "" {
		clauses = append(clauses, "actor_type = ?")
		args = append(args, actorType)
	}
	if filter.StartAt != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, filter.EndAt.UTC())
	}
	if filter.Cursor != nil {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}

	query := `SELECT ` + selectColumns + ` FROM audit_logs
		WHERE ` + strings.Join(clauses, " AND ") + `
		ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit+1)
	}

	var logs []*domain.AuditLog
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
