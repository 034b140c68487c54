package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MatchType categorizes how a match was produced.
type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchFuzzy      MatchType = "fuzzy"
	MatchCalculated MatchType = "calculated"
	MatchInferred   MatchType = "inferred"
)

// Match workflow statuses. pending is the only non-terminal state.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusModified = "modified"
	StatusResolved = "resolved"
)

// Severity of an exception, riskiest first.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ExceptionTier is the routing bucket assigned by the classifier.
type ExceptionTier string

const (
	TierAutoClose   ExceptionTier = "tier_0_auto_close"
	TierAutoSuggest ExceptionTier = "tier_1_auto_suggest"
	TierRoute       ExceptionTier = "tier_2_route"
	TierEscalate    ExceptionTier = "tier_3_escalate"
)

// ForensicMatch is one proposed correspondence between a line item in one
// document and a line item in another, with the evidence that produced it.
// Created by the matcher, mutated only through workflow transitions.
type ForensicMatch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"index" json:"session_id"`

	SourceDocumentType DocumentType    `json:"source_document_type"`
	SourceAccountCode  string          `json:"source_account_code"`
	SourceAccountName  string          `json:"source_account_name"`
	SourceAmount       decimal.Decimal `gorm:"type:numeric(18,2)" json:"source_amount"`
	TargetDocumentType DocumentType    `json:"target_document_type"`
	TargetAccountCode  string          `json:"target_account_code"`
	TargetAccountName  string          `json:"target_account_name"`
	TargetAmount       decimal.Decimal `gorm:"type:numeric(18,2)" json:"target_amount"`

	MatchType               MatchType       `json:"match_type"`
	MatchAlgorithm          string          `json:"match_algorithm"`
	ConfidenceScore         float64         `json:"confidence_score"`
	AmountDifference        decimal.Decimal `gorm:"type:numeric(18,2)" json:"amount_difference"`
	AmountDifferencePercent decimal.Decimal `gorm:"type:numeric(10,4)" json:"amount_difference_percent"`
	RelationshipFormula     string          `json:"relationship_formula"`
	RelationshipType        string          `json:"relationship_type"`

	Severity      Severity      `json:"severity"`
	IsMaterial    bool          `json:"is_material"`
	ExceptionTier ExceptionTier `gorm:"index" json:"exception_tier"`

	Status       string         `gorm:"index" json:"status"`
	ReviewNotes  string         `json:"review_notes"`
	ReviewedAt   *time.Time     `json:"reviewed_at,omitempty"`
	MatchDetails datatypes.JSON `json:"match_details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
