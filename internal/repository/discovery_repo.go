package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"document-reconciliation-backend/internal/models"
)

type DiscoveryRepository struct {
	db *gorm.DB
}

func NewDiscoveryRepository(db *gorm.DB) *DiscoveryRepository {
	return &DiscoveryRepository{db: db}
}

// Upsert writes discovery rows keyed on (document_type, account_code,
// account_name). Re-running discovery refreshes counts in place, so the
// operation is idempotent.
func (r *DiscoveryRepository) Upsert(rows []models.DiscoveredAccountCode) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "document_type"},
			{Name: "account_code"},
			{Name: "account_name"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"occurrence_count": gorm.Expr("EXCLUDED.occurrence_count"),
			"property_count":   gorm.Expr("EXCLUDED.property_count"),
			"period_count":     gorm.Expr("EXCLUDED.period_count"),
			"last_seen_at":     time.Now(),
		}),
	}).Create(&rows).Error
}

func (r *DiscoveryRepository) ByDocumentType(documentType *models.DocumentType) ([]models.DiscoveredAccountCode, error) {
	var rows []models.DiscoveredAccountCode
	query := r.db.Order("document_type, account_code")
	if documentType != nil {
		query = query.Where("document_type = ?", *documentType)
	}
	err := query.Find(&rows).Error
	return rows, err
}

// SearchByName finds discovered accounts whose name resembles the query,
// used by diagnostics to propose fixes for missing accounts.
func (r *DiscoveryRepository) SearchByName(documentType models.DocumentType, nameFragment string) ([]models.DiscoveredAccountCode, error) {
	var rows []models.DiscoveredAccountCode
	err := r.db.
		Where("document_type = ? AND LOWER(account_name) LIKE ?", documentType, "%"+nameFragment+"%").
		Limit(10).
		Find(&rows).Error
	return rows, err
}
