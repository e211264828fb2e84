package services

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/touresta/touresta-backend/internal/models"
	"github.com/touresta/touresta-backend/internal/utils"
)

// Audit action names recorded for admin review decisions
const (
	ActionApproveHelper  = "ApproveHelper"
	ActionRejectHelper   = "RejectHelper"
	ActionRequestChanges = "RequestChanges"
	ActionAdminLogin     = "AdminLogin"
)

// targetTypeHelper tags helper rows in the audit trail
const targetTypeHelper = "helper"

// AuditService records admin actions in the append-only audit trail
type AuditService struct {
	logs AuditLogStore
	log  *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(logs AuditLogStore, log *logrus.Logger) *AuditService {
	return &AuditService{
		logs: logs,
		log:  log,
	}
}

// RequestMeta carries the client context of an admin action
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// LogHelperReview records one review decision. Failures are logged and
// swallowed: a decision that already committed is never rolled back
// because its audit write failed.
func (s *AuditService) LogHelperReview(adminID int64, action string, helperID int64, reason string, meta RequestMeta) {
	details := map[string]interface{}{
		"device_info": utils.ParseUserAgent(meta.UserAgent),
	}
	if reason != "" {
		details["reason"] = reason
	}

	s.logEntry(adminID, action, targetTypeHelper, helperID, details, meta)
}

// LogAdminLogin records a successful admin sign-in
func (s *AuditService) LogAdminLogin(adminID int64, meta RequestMeta) {
	details := map[string]interface{}{
		"device_info": utils.ParseUserAgent(meta.UserAgent),
	}

	s.logEntry(adminID, ActionAdminLogin, "admin", adminID, details, meta)
}

// GetHelperTrail returns the audit history of one helper, newest first
func (s *AuditService) GetHelperTrail(helperID int64) ([]models.AdminAuditLog, error) {
	return s.logs.ListByTarget(targetTypeHelper, helperID)
}

func (s *AuditService) logEntry(adminID int64, action, targetType string, targetID int64, details map[string]interface{}, meta RequestMeta) {
	entry := &models.AdminAuditLog{
		AdminID:    adminID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
	}

	if payload, err := json.Marshal(details); err == nil {
		entry.Details = models.NewNullString(string(payload))
	}
	if meta.IPAddress != "" {
		entry.IPAddress = models.NewNullString(meta.IPAddress)
	}

	if err := s.logs.CreateEntry(entry); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"action":    action,
			"admin_id":  adminID,
			"target_id": targetID,
		}).Error("Failed to write audit log entry")
	}
}
