package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// LineItem is a single extracted row from one financial document. Rows are
// written once by the extraction pipeline and never mutated by the engine.
// Page and BoundingBox are evidence coordinates passed through for the UI;
// the engine never interprets them.
type LineItem struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID   uuid.UUID    `gorm:"index:idx_line_items_scope" json:"property_id"`
	PeriodID     string       `gorm:"index:idx_line_items_scope" json:"period_id"`
	DocumentType DocumentType `gorm:"index" json:"document_type"`
	AccountCode  string       `gorm:"index" json:"account_code"`
	AccountName  string       `json:"account_name"`
	Amount       decimal.Decimal `gorm:"type:numeric(18,2)" json:"amount"`
	UploadID     *uuid.UUID      `json:"upload_id,omitempty"`
	Page         *int            `json:"page,omitempty"`
	BoundingBox  datatypes.JSON  `json:"bounding_box,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
