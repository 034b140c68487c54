package models

import (
	"time"

	"github.com/google/uuid"
)

// Session statuses.
const (
	SessionRunning    = "running"
	SessionCompleted  = "completed"
	SessionFailed     = "failed"
	SessionSuperseded = "superseded"
)

// ReconciliationSession is one complete engine run against a single
// (property, period). Re-running the scope creates a new session and marks
// the prior one superseded; superseded rows are retained for audit.
type ReconciliationSession struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID uuid.UUID `gorm:"index:idx_session_scope" json:"property_id"`
	PeriodID   string    `gorm:"index:idx_session_scope" json:"period_id"`
	Status     string    `gorm:"index" json:"status"`

	TotalLineItems     int `json:"total_line_items"`
	TotalMatches       int `json:"total_matches"`
	TotalDiscrepancies int `json:"total_discrepancies"`
	PassedRules        int `json:"passed_rules"`
	WarningRules       int `json:"warning_rules"`
	FailedRules        int `json:"failed_rules"`
	SkippedRules       int `json:"skipped_rules"`
	AutoClosedCount    int `json:"auto_closed_count"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
