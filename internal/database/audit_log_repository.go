package database

import (
	"fmt"
	"time"

	"github.com/touresta/touresta-backend/internal/models"
)

// AuditLogRepository handles the append-only admin audit trail
type AuditLogRepository struct {
	db DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db DB) *AuditLogRepository {
	return &AuditLogRepository{
		db: db,
	}
}

// CreateEntry appends one audit row
func (r *AuditLogRepository) CreateEntry(entry *models.AdminAuditLog) error {
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO admin_audit_logs (admin_id, action, target_type, target_id, details, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRow(
		query,
		entry.AdminID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Details,
		entry.IPAddress,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}

	return nil
}

// ListByTarget returns audit rows for one target, newest first
func (r *AuditLogRepository) ListByTarget(targetType string, targetID int64) ([]models.AdminAuditLog, error) {
	var entries []models.AdminAuditLog
	query := `
		SELECT * FROM admin_audit_logs
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC
	`

	err := r.db.Select(&entries, query, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log entries: %w", err)
	}

	return entries, nil
}

// DeleteOlderThan trims audit rows past the retention window. Returns the
// number of rows removed.
func (r *AuditLogRepository) DeleteOlderThan(cutoff time.Time) (int, error) {
	query := `DELETE FROM admin_audit_logs WHERE created_at < $1`

	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to trim audit log: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}
