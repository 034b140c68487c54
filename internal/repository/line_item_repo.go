package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"document-reconciliation-backend/internal/models"
)

type LineItemRepository struct {
	db *gorm.DB
}

func NewLineItemRepository(db *gorm.DB) *LineItemRepository {
	return &LineItemRepository{db: db}
}

// Expose DB if needed
func (r *LineItemRepository) DB() *gorm.DB {
	return r.db
}

// ByScope returns all line items for a (property, period), optionally
// filtered to one document type. This is the immutable snapshot every
// reconciliation run works from.
func (r *LineItemRepository) ByScope(propertyID uuid.UUID, periodID string, documentType *models.DocumentType) ([]models.LineItem, error) {
	var items []models.LineItem
	query := r.db.
		Where("property_id = ? AND period_id = ?", propertyID, periodID).
		Order("document_type, account_code, account_name")
	if documentType != nil {
		query = query.Where("document_type = ?", *documentType)
	}
	err := query.Find(&items).Error
	return items, err
}

func (r *LineItemRepository) CountByScope(propertyID uuid.UUID, periodID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.LineItem{}).
		Where("property_id = ? AND period_id = ?", propertyID, periodID).
		Count(&count).Error
	return count, err
}

// CreateBatch inserts extracted line items, ignoring duplicates on re-upload.
func (r *LineItemRepository) CreateBatch(items []models.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(items, 500).Error
}

// ScopeCounts is the distinct property/period spread of one account across
// the whole corpus, used by the discoverer.
type ScopeCounts struct {
	PropertyCount int
	PeriodCount   int
}

func (r *LineItemRepository) ScopeCounts(documentType models.DocumentType, accountCode, accountName string) (ScopeCounts, error) {
	var counts ScopeCounts
	err := r.db.Model(&models.LineItem{}).
		Where("document_type = ? AND account_code = ? AND account_name = ?", documentType, accountCode, accountName).
		Select("COUNT(DISTINCT property_id) as property_count, COUNT(DISTINCT period_id) as period_count").
		Scan(&counts).Error
	return counts, err
}
