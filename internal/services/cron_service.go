package services

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// CleanupService runs the periodic maintenance sweep: drop abandoned
// unverified accounts, clear dangling verification codes, deactivate
// helpers whose drug test lapsed, and trim the audit trail past its
// retention window.
type CleanupService struct {
	cron      *cron.Cron
	users     UserStore
	helpers   HelperStore
	auditLogs AuditLogStore

	interval             time.Duration
	unverifiedUserMaxAge time.Duration
	auditLogRetention    time.Duration

	now func() time.Time
}

// CleanupReport summarizes one sweep
type CleanupReport struct {
	UnverifiedUsersDeleted int `json:"unverified_users_deleted"`
	CodesCleared           int `json:"codes_cleared"`
	HelpersDeactivated     int `json:"helpers_deactivated"`
	AuditRowsTrimmed       int `json:"audit_rows_trimmed"`
}

// NewCleanupService creates a new CleanupService
func NewCleanupService(users UserStore, helpers HelperStore, auditLogs AuditLogStore, interval, unverifiedUserMaxAge, auditLogRetention time.Duration) *CleanupService {
	return &CleanupService{
		cron:                 cron.New(),
		users:                users,
		helpers:              helpers,
		auditLogs:            auditLogs,
		interval:             interval,
		unverifiedUserMaxAge: unverifiedUserMaxAge,
		auditLogRetention:    auditLogRetention,
		now:                  time.Now,
	}
}

// Start schedules the sweep and runs one immediately so a restart never
// extends the gap between sweeps
func (s *CleanupService) Start() error {
	log.Println("Starting cleanup service...")

	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, s.sweepJob)
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup sweep: %w", err)
	}
	log.Printf("✓ Scheduled: Cleanup sweep (every %s)\n", s.interval)

	s.cron.Start()
	go s.sweepJob()

	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish
func (s *CleanupService) Stop() {
	log.Println("Stopping cleanup service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("✓ Cleanup service stopped")
}

// sweepJob is the scheduled wrapper around RunOnce
func (s *CleanupService) sweepJob() {
	log.Println("[CRON] Starting cleanup sweep...")
	startTime := time.Now()

	report, err := s.RunOnce()
	if err != nil {
		log.Printf("[CRON ERROR] Cleanup sweep failed: %v\n", err)
		return
	}

	duration := time.Since(startTime)
	log.Printf("[CRON] ✓ Cleanup sweep done in %v: %d users deleted, %d codes cleared, %d helpers deactivated, %d audit rows trimmed\n",
		duration, report.UnverifiedUsersDeleted, report.CodesCleared, report.HelpersDeactivated, report.AuditRowsTrimmed)
}

// RunOnce executes one full sweep. Each step is independent; a step's
// failure aborts the sweep and reports what already ran.
func (s *CleanupService) RunOnce() (*CleanupReport, error) {
	now := s.now()
	report := &CleanupReport{}

	deleted, err := s.users.DeleteUnverifiedBefore(now.Add(-s.unverifiedUserMaxAge))
	if err != nil {
		return report, fmt.Errorf("unverified user cleanup failed: %w", err)
	}
	report.UnverifiedUsersDeleted = deleted

	cleared, err := s.users.ClearExpiredVerificationCodes(now)
	if err != nil {
		return report, fmt.Errorf("verification code cleanup failed: %w", err)
	}
	report.CodesCleared = cleared

	deactivated, err := s.helpers.DeactivateExpired(now)
	if err != nil {
		return report, fmt.Errorf("expired drug test sweep failed: %w", err)
	}
	report.HelpersDeactivated = deactivated

	trimmed, err := s.auditLogs.DeleteOlderThan(now.Add(-s.auditLogRetention))
	if err != nil {
		return report, fmt.Errorf("audit log trim failed: %w", err)
	}
	report.AuditRowsTrimmed = trimmed

	return report, nil
}

// RunSweepNow triggers a sweep immediately (admin maintenance endpoint)
func (s *CleanupService) RunSweepNow() (*CleanupReport, error) {
	log.Println("[MANUAL] Running cleanup sweep now...")
	return s.RunOnce()
}

// GetJobStatus returns the scheduler state
func (s *CleanupService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
