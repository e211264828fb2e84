package models

import "time"

// AdminAuditLog is an append-only record of an admin action
type AdminAuditLog struct {
	ID         int64      `json:"id" db:"id"`
	AdminID    int64      `json:"admin_id" db:"admin_id"`
	Action     string     `json:"action" db:"action"`
	TargetType string     `json:"target_type" db:"target_type"`
	TargetID   int64      `json:"target_id" db:"target_id"`
	Details    NullString `json:"details,omitempty" db:"details"`
	IPAddress  NullString `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
