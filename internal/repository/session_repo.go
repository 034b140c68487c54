package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"document-reconciliation-backend/internal/models"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) DB() *gorm.DB {
	return r.db
}

func (r *SessionRepository) GetSession(id uuid.UUID) (*models.ReconciliationSession, error) {
	var session models.ReconciliationSession
	if err := r.db.First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) LatestForScope(propertyID uuid.UUID, periodID string) (*models.ReconciliationSession, error) {
	var session models.ReconciliationSession
	err := r.db.
		Where("property_id = ? AND period_id = ? AND status = ?", propertyID, periodID, models.SessionCompleted).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) MatchesBySession(sessionID uuid.UUID) ([]models.ForensicMatch, error) {
	var matches []models.ForensicMatch
	err := r.db.Where("session_id = ?", sessionID).Order("created_at, id").Find(&matches).Error
	return matches, err
}

func (r *SessionRepository) DiscrepanciesBySession(sessionID uuid.UUID) ([]models.ForensicDiscrepancy, error) {
	var discrepancies []models.ForensicDiscrepancy
	err := r.db.Where("session_id = ?", sessionID).Order("rule_code").Find(&discrepancies).Error
	return discrepancies, err
}

func (r *SessionRepository) GetMatch(id uuid.UUID) (*models.ForensicMatch, error) {
	var match models.ForensicMatch
	if err := r.db.First(&match, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *SessionRepository) GetDiscrepancy(id uuid.UUID) (*models.ForensicDiscrepancy, error) {
	var discrepancy models.ForensicDiscrepancy
	if err := r.db.First(&discrepancy, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &discrepancy, nil
}

// RepeatedRuleFailures counts failures of the given rule for the same
// property in other periods. Feeds the escalation tier signal.
func (r *SessionRepository) RepeatedRuleFailures(propertyID uuid.UUID, periodID string, ruleCode string) (int64, error) {
	var count int64
	err := r.db.Model(&models.ForensicDiscrepancy{}).
		Joins("JOIN reconciliation_sessions ON reconciliation_sessions.id = forensic_discrepancies.session_id").
		Where("reconciliation_sessions.property_id = ?", propertyID).
		Where("reconciliation_sessions.period_id <> ?", periodID).
		Where("forensic_discrepancies.rule_code = ? AND forensic_discrepancies.outcome = ?", ruleCode, "fail").
		Count(&count).Error
	return count, err
}
