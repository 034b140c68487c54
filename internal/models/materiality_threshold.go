package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialityThreshold is the dollar threshold above which a difference in a
// given scope demands human attention. Scope is either a document type or a
// rule scope string; the classifier falls back to the "default" scope.
type MaterialityThreshold struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Scope           string          `gorm:"uniqueIndex" json:"scope"`
	DollarThreshold decimal.Decimal `gorm:"type:numeric(18,2)" json:"dollar_threshold"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DefaultMaterialityThresholds seeds the scopes consulted by the classifier.
// Rows are upserted at startup so operators can raise or lower them in place.
func DefaultMaterialityThresholds() []MaterialityThreshold {
	mk := func(scope string, dollars int64) MaterialityThreshold {
		return MaterialityThreshold{
			ID:              uuid.New(),
			Scope:           scope,
			DollarThreshold: decimal.NewFromInt(dollars),
		}
	}
	return []MaterialityThreshold{
		mk("default", 500),
		mk(string(DocBalanceSheet), 1000),
		mk(string(DocIncomeStatement), 500),
		mk(string(DocCashFlow), 500),
		mk(string(DocRentRoll), 250),
		mk(string(DocMortgageStatement), 100),
	}
}
