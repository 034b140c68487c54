package repository

import (
	"gorm.io/gorm"

	"document-reconciliation-backend/internal/models"
)

type PatternRepository struct {
	db *gorm.DB
}

func NewPatternRepository(db *gorm.DB) *PatternRepository {
	return &PatternRepository{db: db}
}

func (r *PatternRepository) DB() *gorm.DB {
	return r.db
}

// ActivePatterns returns every active pattern, the matcher snapshot input.
func (r *PatternRepository) ActivePatterns() ([]models.LearnedMatchPattern, error) {
	var patterns []models.LearnedMatchPattern
	err := r.db.Where("is_active = ?", true).Find(&patterns).Error
	return patterns, err
}

func (r *PatternRepository) ActiveSynonyms() ([]models.AccountCodeSynonym, error) {
	var synonyms []models.AccountCodeSynonym
	err := r.db.Where("is_active = ?", true).Find(&synonyms).Error
	return synonyms, err
}

// PatternFilter narrows the learned-pattern listing.
type PatternFilter struct {
	SourceDocumentType *models.DocumentType
	TargetDocumentType *models.DocumentType
	MinSuccessRate     float64
}

func (r *PatternRepository) List(filter PatternFilter) ([]models.LearnedMatchPattern, error) {
	var patterns []models.LearnedMatchPattern
	query := r.db.Where("success_rate >= ?", filter.MinSuccessRate).Order("success_rate DESC, match_count DESC")
	if filter.SourceDocumentType != nil {
		query = query.Where("source_document_type = ?", *filter.SourceDocumentType)
	}
	if filter.TargetDocumentType != nil {
		query = query.Where("target_document_type = ?", *filter.TargetDocumentType)
	}
	err := query.Find(&patterns).Error
	return patterns, err
}

func (r *PatternRepository) FindByName(name string) (*models.LearnedMatchPattern, error) {
	var pattern models.LearnedMatchPattern
	if err := r.db.First(&pattern, "pattern_name = ?", name).Error; err != nil {
		return nil, err
	}
	return &pattern, nil
}

// FeedbackEvents returns the append-only decision log for one pattern, in
// order, for audit and replay.
func (r *PatternRepository) FeedbackEvents(patternName string) ([]models.MatchFeedbackEvent, error) {
	var events []models.MatchFeedbackEvent
	err := r.db.Where("pattern_name = ?", patternName).Order("created_at ASC").Find(&events).Error
	return events, err
}
