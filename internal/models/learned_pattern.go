package models

import (
	"time"

	"github.com/google/uuid"
)

// LearnedMatchPattern is a persisted, scored mapping between a source and a
// target account, minted the first time a human approves a match for that
// pair. Patterns are never deleted; a pattern that keeps failing is
// deactivated once it has enough samples to judge.
type LearnedMatchPattern struct {
	ID                 uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	PatternName        string       `gorm:"uniqueIndex" json:"pattern_name"`
	SourceDocumentType DocumentType `gorm:"index:idx_pattern_pair" json:"source_document_type"`
	TargetDocumentType DocumentType `gorm:"index:idx_pattern_pair" json:"target_document_type"`
	SourceAccountCode  string       `gorm:"index:idx_pattern_pair" json:"source_account_code"`
	TargetAccountCode  string       `json:"target_account_code"`
	RelationshipType   string       `json:"relationship_type"`
	SuccessRate        float64      `json:"success_rate"`
	MatchCount         int          `json:"match_count"`
	ApprovedCount      int          `json:"approved_count"`
	RejectedCount      int          `json:"rejected_count"`
	AverageConfidence  float64      `json:"average_confidence"`
	IsActive           bool         `gorm:"index" json:"is_active"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// AccountCodeSynonym maps a recurring non-canonical account name onto a
// canonical account code. Minted by the learning subsystem after repeated
// approvals of name-based fuzzy matches and consulted ahead of the fixed
// matching strategies.
type AccountCodeSynonym struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CanonicalAccountCode string    `gorm:"index" json:"canonical_account_code"`
	CanonicalAccountName string    `json:"canonical_account_name"`
	SynonymName          string    `gorm:"uniqueIndex:idx_synonym_name" json:"synonym_name"`
	CombinedConfidence   float64   `json:"combined_confidence"`
	SuccessRate          float64   `json:"success_rate"`
	ApprovalCount        int       `json:"approval_count"`
	RejectionCount       int       `json:"rejection_count"`
	IsActive             bool      `gorm:"index" json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Feedback outcomes recorded in the append-only event log.
const (
	FeedbackApproved = "approved"
	FeedbackRejected = "rejected"
	FeedbackRemapped = "remapped"
)

// MatchFeedbackEvent is the append-only record of every human decision that
// touched a pattern. Pattern counters are derivable from this log, so the
// running statistics on LearnedMatchPattern can be audited or replayed.
type MatchFeedbackEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PatternName string    `gorm:"index" json:"pattern_name"`
	MatchID     uuid.UUID `gorm:"index" json:"match_id"`
	Outcome     string    `json:"outcome"`
	Confidence  float64   `json:"confidence"`
	CreatedAt   time.Time `json:"created_at"`
}
