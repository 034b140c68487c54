package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ForensicDiscrepancy is the persisted outcome of one rule evaluation for a
// session. Expected/actual values are immutable once written; resolving a
// discrepancy records a note without retracting the computation.
type ForensicDiscrepancy struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"index" json:"session_id"`

	DiscrepancyType string `json:"discrepancy_type"`
	RuleCode        string `gorm:"index" json:"rule_code"`
	Outcome         string `json:"outcome"`

	ExpectedValue     decimal.Decimal `gorm:"type:numeric(18,2)" json:"expected_value"`
	ActualValue       decimal.Decimal `gorm:"type:numeric(18,2)" json:"actual_value"`
	Difference        decimal.Decimal `gorm:"type:numeric(18,2)" json:"difference"`
	DifferencePercent decimal.Decimal `gorm:"type:numeric(10,4)" json:"difference_percent"`
	Description       string          `json:"description"`

	Severity      Severity      `json:"severity"`
	IsMaterial    bool          `json:"is_material"`
	ExceptionTier ExceptionTier `gorm:"index" json:"exception_tier"`

	Status          string     `gorm:"index" json:"status"`
	ResolutionNotes string     `json:"resolution_notes"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
