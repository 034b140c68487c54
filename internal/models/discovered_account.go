package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscoveredAccountCode is the aggregated catalog of account codes actually
// seen in extracted documents. Rebuilt idempotently by the discoverer; the
// counts are derived data and carry no external mutation path.
type DiscoveredAccountCode struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentType    DocumentType `gorm:"uniqueIndex:idx_discovered_account" json:"document_type"`
	AccountCode     string       `gorm:"uniqueIndex:idx_discovered_account" json:"account_code"`
	AccountName     string       `gorm:"uniqueIndex:idx_discovered_account" json:"account_name"`
	OccurrenceCount int          `json:"occurrence_count"`
	PropertyCount   int          `json:"property_count"`
	PeriodCount     int          `json:"period_count"`
	FirstSeenAt     time.Time    `json:"first_seen_at"`
	LastSeenAt      time.Time    `json:"last_seen_at"`
}
