package learning

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"document-reconciliation-backend/internal/config"
	"document-reconciliation-backend/internal/models"
	"document-reconciliation-backend/internal/services/matching"
)

// ErrConcurrencyConflict is surfaced when a pattern update still conflicts
// after one retry with fresh state.
var ErrConcurrencyConflict = errors.New("concurrent pattern update conflict")

// Config tunes pattern lifecycle behavior.
type Config struct {
	// DeactivationFloor and MinSamples: a pattern is deactivated, never
	// deleted, once its success rate sits below the floor with enough
	// decisions behind it. The sample minimum keeps a couple of early
	// mistakes from killing a pattern.
	DeactivationFloor float64
	MinSamples        int
	// SynonymRepeatThreshold is how many approvals a name-based match needs
	// before its name is minted as a synonym.
	SynonymRepeatThreshold int
}

func DefaultConfig() Config {
	return Config{
		DeactivationFloor:      40,
		MinSamples:             5,
		SynonymRepeatThreshold: 2,
	}
}

// Learner converts workflow decisions into pattern and synonym updates.
// Every decision is appended to the feedback event log first; the pattern
// counters are the running materialization of that log.
type Learner struct {
	db  *gorm.DB
	cfg Config
}

func NewLearner(db *gorm.DB, cfg Config) *Learner {
	return &Learner{db: db, cfg: cfg}
}

// PatternName is the stable unique key for a (source, target) account pair.
func PatternName(sourceDoc models.DocumentType, sourceCode string, targetDoc models.DocumentType, targetCode string) string {
	return fmt.Sprintf("%s:%s->%s:%s", sourceDoc, sourceCode, targetDoc, targetCode)
}

// RecordApproval is the positive signal: the pattern for the match's account
// pair is minted on first approval, otherwise its counters advance. Name-based
// matches also feed synonym minting.
func (l *Learner) RecordApproval(match *models.ForensicMatch) error {
	err := l.withRetry(func(tx *gorm.DB) error {
		if err := l.applyFeedback(tx, match, models.FeedbackApproved); err != nil {
			return err
		}
		if isNameBased(match.MatchAlgorithm) {
			return l.recordSynonymApproval(tx, match)
		}
		if match.MatchAlgorithm == matching.AlgSynonymLookup {
			return l.recordSynonymFeedback(tx, match, models.FeedbackApproved)
		}
		return nil
	})
	if err != nil {
		return err
	}
	config.GetLogger().WithFields(logrus.Fields{
		"match_id": match.ID,
		"pattern":  patternNameFor(match),
	}).Info("recorded match approval")
	return nil
}

// RecordRejection is the negative signal for the pattern that produced the
// match. Rejecting a pair that never had a pattern records only the event; a
// synonym-produced match also counts against the synonym row.
func (l *Learner) RecordRejection(match *models.ForensicMatch) error {
	return l.withRetry(func(tx *gorm.DB) error {
		if err := l.applyFeedback(tx, match, models.FeedbackRejected); err != nil {
			return err
		}
		if match.MatchAlgorithm == matching.AlgSynonymLookup {
			return l.recordSynonymFeedback(tx, match, models.FeedbackRejected)
		}
		return nil
	})
}

// RecordRemap treats the original mapping as rejected and the corrected
// mapping as a fresh approval.
func (l *Learner) RecordRemap(match *models.ForensicMatch, newTargetCode string) error {
	return l.withRetry(func(tx *gorm.DB) error {
		if err := l.applyFeedback(tx, match, models.FeedbackRemapped); err != nil {
			return err
		}
		if match.MatchAlgorithm == matching.AlgSynonymLookup {
			if err := l.recordSynonymFeedback(tx, match, models.FeedbackRejected); err != nil {
				return err
			}
		}
		remapped := *match
		remapped.TargetAccountCode = newTargetCode
		return l.mintOrApprove(tx, &remapped)
	})
}

// withRetry runs fn in a transaction and retries once, but only when the
// failure is a serialization or duplicate-key race. Deterministic errors pass
// through untouched; a race that persists becomes ErrConcurrencyConflict.
func (l *Learner) withRetry(fn func(tx *gorm.DB) error) error {
	err := l.db.Transaction(fn)
	if err == nil || !retryable(err) {
		return err
	}
	if err := l.db.Transaction(fn); err != nil {
		if retryable(err) {
			return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return err
	}
	return nil
}

// retryable recognizes the transient failures a second attempt can fix:
// unique violations from a concurrent mint, serialization failures, deadlocks.
func retryable(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001", "40P01":
			return true
		}
	}
	return false
}

func patternNameFor(match *models.ForensicMatch) string {
	return PatternName(match.SourceDocumentType, match.SourceAccountCode, match.TargetDocumentType, match.TargetAccountCode)
}

func (l *Learner) applyFeedback(tx *gorm.DB, match *models.ForensicMatch, outcome string) error {
	name := patternNameFor(match)

	event := models.MatchFeedbackEvent{
		ID:          uuid.New(),
		PatternName: name,
		MatchID:     match.ID,
		Outcome:     outcome,
		Confidence:  match.ConfidenceScore,
		CreatedAt:   time.Now(),
	}
	if err := tx.Create(&event).Error; err != nil {
		return err
	}

	var pattern models.LearnedMatchPattern
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&pattern, "pattern_name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if outcome != models.FeedbackApproved {
			// Nothing to penalize: the pair never earned a pattern.
			return nil
		}
		return tx.Create(newPattern(match, name)).Error
	}
	if err != nil {
		return err
	}

	updated := NextStats(pattern, outcome, match.ConfidenceScore)
	if updated.MatchCount >= l.cfg.MinSamples && updated.SuccessRate < l.cfg.DeactivationFloor {
		updated.IsActive = false
	}
	return tx.Model(&models.LearnedMatchPattern{}).
		Where("pattern_name = ?", name).
		Updates(map[string]interface{}{
			"match_count":        updated.MatchCount,
			"approved_count":     updated.ApprovedCount,
			"rejected_count":     updated.RejectedCount,
			"success_rate":       updated.SuccessRate,
			"average_confidence": updated.AverageConfidence,
			"is_active":          updated.IsActive,
		}).Error
}

func (l *Learner) mintOrApprove(tx *gorm.DB, match *models.ForensicMatch) error {
	return l.applyFeedback(tx, match, models.FeedbackApproved)
}

func newPattern(match *models.ForensicMatch, name string) *models.LearnedMatchPattern {
	return &models.LearnedMatchPattern{
		ID:                 uuid.New(),
		PatternName:        name,
		SourceDocumentType: match.SourceDocumentType,
		TargetDocumentType: match.TargetDocumentType,
		SourceAccountCode:  match.SourceAccountCode,
		TargetAccountCode:  match.TargetAccountCode,
		RelationshipType:   match.RelationshipType,
		SuccessRate:        100,
		MatchCount:         1,
		ApprovedCount:      1,
		AverageConfidence:  match.ConfidenceScore,
		IsActive:           true,
	}
}

// NextStats advances a pattern's running statistics for one decision. Pure,
// so the accounting is testable without a database. Match count only ever
// increases; the average confidence moves toward the new observation
// weighted by history rather than being overwritten.
func NextStats(pattern models.LearnedMatchPattern, outcome string, confidence float64) models.LearnedMatchPattern {
	pattern.MatchCount++
	switch outcome {
	case models.FeedbackApproved:
		pattern.ApprovedCount++
		weight := float64(pattern.MatchCount)
		pattern.AverageConfidence += (confidence - pattern.AverageConfidence) / weight
	default:
		pattern.RejectedCount++
	}

	decided := pattern.ApprovedCount + pattern.RejectedCount
	if decided > 0 {
		pattern.SuccessRate = float64(pattern.ApprovedCount) / float64(decided) * 100
	}
	if pattern.AverageConfidence > 100 {
		pattern.AverageConfidence = 100
	}
	return pattern
}

func isNameBased(algorithm string) bool {
	switch algorithm {
	case matching.AlgExactName, matching.AlgFuzzyName, matching.AlgCategoryFuzzy, matching.AlgAbbreviation:
		return true
	}
	return false
}

// recordSynonymApproval upserts a synonym row for the approved name mapping
// and activates it once the approval count reaches the repeat threshold.
func (l *Learner) recordSynonymApproval(tx *gorm.DB, match *models.ForensicMatch) error {
	synonymName := matching.NormalizeName(match.SourceAccountName)
	if synonymName == "" || synonymName == matching.NormalizeName(match.TargetAccountName) {
		return nil
	}

	var synonym models.AccountCodeSynonym
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&synonym, "synonym_name = ?", synonymName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&models.AccountCodeSynonym{
			ID:                   uuid.New(),
			CanonicalAccountCode: match.TargetAccountCode,
			CanonicalAccountName: match.TargetAccountName,
			SynonymName:          synonymName,
			CombinedConfidence:   match.ConfidenceScore,
			SuccessRate:          100,
			ApprovalCount:        1,
			IsActive:             l.cfg.SynonymRepeatThreshold <= 1,
		}).Error
	}
	if err != nil {
		return err
	}

	updated := NextSynonymStats(synonym, models.FeedbackApproved, match.ConfidenceScore)
	if updated.ApprovalCount >= l.cfg.SynonymRepeatThreshold {
		updated.IsActive = true
	}
	return l.saveSynonymStats(tx, updated)
}

// recordSynonymFeedback advances the accounting of an existing synonym for a
// decision on a match the synonym itself produced. Synonyms follow the same
// lifecycle as patterns: deactivated, never deleted, once the success rate
// sits below the floor with enough decisions behind it.
func (l *Learner) recordSynonymFeedback(tx *gorm.DB, match *models.ForensicMatch, outcome string) error {
	synonymName := matching.NormalizeName(match.SourceAccountName)
	if synonymName == "" {
		return nil
	}

	var synonym models.AccountCodeSynonym
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&synonym, "synonym_name = ?", synonymName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// The synonym was deleted or renamed since the match was made.
		return nil
	}
	if err != nil {
		return err
	}

	updated := NextSynonymStats(synonym, outcome, match.ConfidenceScore)
	decided := updated.ApprovalCount + updated.RejectionCount
	if decided >= l.cfg.MinSamples && updated.SuccessRate < l.cfg.DeactivationFloor {
		updated.IsActive = false
	}
	return l.saveSynonymStats(tx, updated)
}

func (l *Learner) saveSynonymStats(tx *gorm.DB, synonym models.AccountCodeSynonym) error {
	return tx.Model(&models.AccountCodeSynonym{}).
		Where("synonym_name = ?", synonym.SynonymName).
		Updates(map[string]interface{}{
			"approval_count":      synonym.ApprovalCount,
			"rejection_count":     synonym.RejectionCount,
			"success_rate":        synonym.SuccessRate,
			"combined_confidence": synonym.CombinedConfidence,
			"is_active":           synonym.IsActive,
		}).Error
}

// NextSynonymStats advances a synonym's running statistics for one decision,
// mirroring NextStats for patterns. Pure.
func NextSynonymStats(synonym models.AccountCodeSynonym, outcome string, confidence float64) models.AccountCodeSynonym {
	switch outcome {
	case models.FeedbackApproved:
		synonym.ApprovalCount++
		synonym.CombinedConfidence += (confidence - synonym.CombinedConfidence) / float64(synonym.ApprovalCount)
	default:
		synonym.RejectionCount++
	}

	decided := synonym.ApprovalCount + synonym.RejectionCount
	if decided > 0 {
		synonym.SuccessRate = float64(synonym.ApprovalCount) / float64(decided) * 100
	}
	if synonym.CombinedConfidence > 100 {
		synonym.CombinedConfidence = 100
	}
	return synonym
}

// Suggestion is a candidate pattern proposed from recurring pending matches
// that have no learned pattern yet.
type Suggestion struct {
	SourceDocumentType models.DocumentType `json:"source_document_type"`
	TargetDocumentType models.DocumentType `json:"target_document_type"`
	SourceAccountCode  string              `json:"source_account_code"`
	TargetAccountCode  string              `json:"target_account_code"`
	Support            int                 `json:"support"`
	AverageConfidence  float64             `json:"average_confidence"`
}

// SuggestRules proposes new patterns: account pairs matched repeatedly at
// decent confidence across sessions with no active pattern covering them.
func (l *Learner) SuggestRules(propertyID *uuid.UUID, periodID *string) ([]Suggestion, error) {
	query := l.db.Model(&models.ForensicMatch{}).
		Select(`forensic_matches.source_document_type, forensic_matches.target_document_type,
			forensic_matches.source_account_code, forensic_matches.target_account_code,
			COUNT(*) as support, AVG(forensic_matches.confidence_score) as average_confidence`).
		Joins("JOIN reconciliation_sessions ON reconciliation_sessions.id = forensic_matches.session_id").
		Joins(`LEFT JOIN learned_match_patterns ON
			learned_match_patterns.source_document_type = forensic_matches.source_document_type AND
			learned_match_patterns.target_document_type = forensic_matches.target_document_type AND
			learned_match_patterns.source_account_code = forensic_matches.source_account_code AND
			learned_match_patterns.is_active = true`).
		Where("learned_match_patterns.id IS NULL").
		Where("forensic_matches.confidence_score >= ?", 85).
		Group(`forensic_matches.source_document_type, forensic_matches.target_document_type,
			forensic_matches.source_account_code, forensic_matches.target_account_code`).
		Having("COUNT(*) >= ?", 2).
		Order("support DESC")

	if propertyID != nil {
		query = query.Where("reconciliation_sessions.property_id = ?", *propertyID)
	}
	if periodID != nil {
		query = query.Where("reconciliation_sessions.period_id = ?", *periodID)
	}

	var suggestions []Suggestion
	err := query.Scan(&suggestions).Error
	return suggestions, err
}
