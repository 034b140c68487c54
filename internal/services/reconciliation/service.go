package reconciliation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"document-reconciliation-backend/internal/config"
	"document-reconciliation-backend/internal/models"
	"document-reconciliation-backend/internal/repository"
	"document-reconciliation-backend/internal/services/classify"
	"document-reconciliation-backend/internal/services/discovery"
	"document-reconciliation-backend/internal/services/learning"
	"document-reconciliation-backend/internal/services/matching"
	"document-reconciliation-backend/internal/services/rules"
)

var (
	// ErrRunInProgress means another reconciliation holds the advisory lock
	// for the same (property, period).
	ErrRunInProgress = errors.New("reconciliation already running for this property and period")
	// ErrRowBudgetExceeded bounds a run before it fans out over an
	// unexpectedly huge line-item set.
	ErrRowBudgetExceeded = errors.New("line item count exceeds the reconciliation row budget")
)

// documentPairs are the cross-document directions the matcher walks. Each
// pair names the relationship a correspondence would assert.
var documentPairs = []struct {
	Source       models.DocumentType
	Target       models.DocumentType
	Relationship string
}{
	{models.DocBalanceSheet, models.DocCashFlow, "cash_position"},
	{models.DocIncomeStatement, models.DocCashFlow, "operating_activity"},
	{models.DocIncomeStatement, models.DocRentRoll, "rental_income"},
	{models.DocMortgageStatement, models.DocBalanceSheet, "debt_balance"},
	{models.DocMortgageStatement, models.DocIncomeStatement, "debt_service"},
}

// Service is the reconciliation engine front door: it runs sessions and owns
// the match/discrepancy workflow.
type Service struct {
	db         *gorm.DB
	lineItems  *repository.LineItemRepository
	sessions   *repository.SessionRepository
	patterns   *repository.PatternRepository
	discoverer *discovery.Discoverer
	learner    *learning.Learner
	matcher    *matching.Matcher
	evaluator  *rules.Evaluator
	bands      classify.Bands
	rowBudget  int64
}

func NewService(
	lineItems *repository.LineItemRepository,
	sessions *repository.SessionRepository,
	patterns *repository.PatternRepository,
	discoverer *discovery.Discoverer,
	learner *learning.Learner,
	matcher *matching.Matcher,
	evaluator *rules.Evaluator,
) *Service {
	return &Service{
		db:         sessions.DB(),
		lineItems:  lineItems,
		sessions:   sessions,
		patterns:   patterns,
		discoverer: discoverer,
		learner:    learner,
		matcher:    matcher,
		evaluator:  evaluator,
		bands:      classify.BandsFromEnv(),
		rowBudget:  50000,
	}
}

// SessionResult is the full outcome of one run.
type SessionResult struct {
	Session       models.ReconciliationSession `json:"session"`
	Matches       []models.ForensicMatch       `json:"matches"`
	Discrepancies []models.ForensicDiscrepancy `json:"discrepancies"`
}

// Run executes one reconciliation for a (property, period). The persistence
// phase is one transaction guarded by a postgres advisory lock on the scope,
// so two runs for the same scope cannot race; runs for different scopes
// proceed in parallel. The matcher and rule evaluator work concurrently
// against the same immutable line-item snapshot.
func (s *Service) Run(propertyID uuid.UUID, periodID string) (*SessionResult, error) {
	log := config.GetLogger().WithFields(logrus.Fields{
		"property_id": propertyID,
		"period_id":   periodID,
	})

	count, err := s.lineItems.CountByScope(propertyID, periodID)
	if err != nil {
		return nil, err
	}
	if count > s.rowBudget {
		return nil, fmt.Errorf("%w: %d rows, budget %d", ErrRowBudgetExceeded, count, s.rowBudget)
	}

	// Refresh the account catalog first; discovery is idempotent.
	if _, err := s.discoverer.Discover(propertyID, periodID, nil); err != nil {
		return nil, err
	}

	items, err := s.lineItems.ByScope(propertyID, periodID, nil)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.buildSnapshot()
	if err != nil {
		return nil, err
	}
	thresholds, err := s.loadThresholds()
	if err != nil {
		return nil, err
	}

	// Matcher and rule evaluator read the same snapshot and write nothing,
	// so they run concurrently.
	var (
		wg          sync.WaitGroup
		candidates  []matchCandidate
		ruleResults []rules.Result
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		candidates = s.matchPass(items, snapshot)
	}()
	go func() {
		defer wg.Done()
		ruleResults = s.evaluator.Evaluate(items)
	}()
	wg.Wait()

	result := &SessionResult{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := acquireScopeLock(tx, propertyID, periodID); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&models.ReconciliationSession{}).
			Where("property_id = ? AND period_id = ? AND status = ?", propertyID, periodID, models.SessionCompleted).
			Update("status", models.SessionSuperseded).Error; err != nil {
			return err
		}

		session := models.ReconciliationSession{
			ID:             uuid.New(),
			PropertyID:     propertyID,
			PeriodID:       periodID,
			Status:         models.SessionRunning,
			TotalLineItems: len(items),
			StartedAt:      now,
			CreatedAt:      now,
		}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		matches := s.buildMatches(session.ID, candidates, snapshot, thresholds)
		discrepancies := s.buildDiscrepancies(session.ID, propertyID, periodID, ruleResults, thresholds)

		if len(matches) > 0 {
			if err := tx.CreateInBatches(matches, 200).Error; err != nil {
				return err
			}
		}
		if len(discrepancies) > 0 {
			if err := tx.CreateInBatches(discrepancies, 200).Error; err != nil {
				return err
			}
		}

		session.TotalMatches = len(matches)
		session.TotalDiscrepancies = len(discrepancies)
		for _, d := range discrepancies {
			switch rules.Outcome(d.Outcome) {
			case rules.OutcomePass:
				session.PassedRules++
			case rules.OutcomeWarning:
				session.WarningRules++
			case rules.OutcomeFail:
				session.FailedRules++
			case rules.OutcomeNotApplicable:
				session.SkippedRules++
			}
		}
		for _, m := range matches {
			if m.Status == models.StatusApproved {
				session.AutoClosedCount++
			}
		}
		session.Status = models.SessionCompleted
		completed := time.Now()
		session.CompletedAt = &completed
		if err := tx.Save(&session).Error; err != nil {
			return err
		}

		result.Session = session
		result.Matches = matches
		result.Discrepancies = discrepancies
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Feed auto-closed matches to the learner after commit; a learning
	// failure must not roll back a completed session.
	for i := range result.Matches {
		m := &result.Matches[i]
		if m.Status == models.StatusApproved {
			if err := s.learner.RecordApproval(m); err != nil {
				log.WithError(err).Warn("learning update failed for auto-closed match")
			}
		}
	}

	log.WithFields(logrus.Fields{
		"session_id":    result.Session.ID,
		"matches":       len(result.Matches),
		"discrepancies": len(result.Discrepancies),
		"auto_closed":   result.Session.AutoClosedCount,
	}).Info("reconciliation completed")

	return result, nil
}

// acquireScopeLock takes a transaction-scoped advisory lock on the
// (property, period) pair; it releases automatically at commit or rollback.
func acquireScopeLock(tx *gorm.DB, propertyID uuid.UUID, periodID string) error {
	var acquired bool
	key := propertyID.String() + "|" + periodID
	if err := tx.Raw("SELECT pg_try_advisory_xact_lock(hashtext(?))", key).Scan(&acquired).Error; err != nil {
		return err
	}
	if !acquired {
		return ErrRunInProgress
	}
	return nil
}

func (s *Service) buildSnapshot() (matching.PatternSnapshot, error) {
	patterns, err := s.patterns.ActivePatterns()
	if err != nil {
		return matching.PatternSnapshot{}, err
	}
	synonyms, err := s.patterns.ActiveSynonyms()
	if err != nil {
		return matching.PatternSnapshot{}, err
	}
	return matching.BuildSnapshot(patterns, synonyms), nil
}

func (s *Service) loadThresholds() (classify.ThresholdSet, error) {
	var rows []models.MaterialityThreshold
	if err := s.db.Find(&rows).Error; err != nil {
		return classify.ThresholdSet{}, err
	}
	return classify.NewThresholdSet(rows), nil
}

type matchCandidate struct {
	source       models.LineItem
	candidate    matching.Candidate
	targetDoc    models.DocumentType
	relationship string
}

// matchPass walks the document pairs and collects the best candidate per
// source line item. Pure compute over the snapshot.
func (s *Service) matchPass(items []models.LineItem, snapshot matching.PatternSnapshot) []matchCandidate {
	byDoc := make(map[models.DocumentType][]models.LineItem)
	for _, item := range items {
		byDoc[item.DocumentType] = append(byDoc[item.DocumentType], item)
	}

	var out []matchCandidate
	for _, pair := range documentPairs {
		sources := byDoc[pair.Source]
		targets := byDoc[pair.Target]
		if len(sources) == 0 || len(targets) == 0 {
			continue
		}
		for _, src := range sources {
			if c := s.matcher.Match(src, pair.Target, targets, snapshot); c != nil {
				out = append(out, matchCandidate{
					source:       src,
					candidate:    *c,
					targetDoc:    pair.Target,
					relationship: pair.Relationship,
				})
			}
		}
	}
	return out
}

func (s *Service) buildMatches(sessionID uuid.UUID, candidates []matchCandidate, snapshot matching.PatternSnapshot, thresholds classify.ThresholdSet) []models.ForensicMatch {
	matches := make([]models.ForensicMatch, 0, len(candidates))
	now := time.Now()
	for _, mc := range candidates {
		src := mc.source
		tgt := mc.candidate.Item

		diff := src.Amount.Sub(tgt.Amount).Abs()
		var diffPercent decimal.Decimal
		if !src.Amount.IsZero() {
			diffPercent = diff.DivRound(src.Amount.Abs(), 4).Mul(decimal.NewFromInt(100))
		}

		severity := s.bands.MatchSeverity(mc.candidate.Confidence)
		material := thresholds.IsMaterial(diff, string(src.DocumentType))
		_, hasFix := snapshot.Pattern(src.DocumentType, mc.targetDoc, src.AccountCode)
		disagreement := mc.candidate.Confidence >= 90 && diffPercent.GreaterThan(decimal.NewFromInt(1))

		tier := classify.Tier(classify.Signals{
			Confidence:           mc.candidate.Confidence,
			Severity:             severity,
			Material:             material,
			HasLearnedFix:        hasFix,
			DetectorDisagreement: disagreement,
		})

		details, _ := json.Marshal(map[string]interface{}{
			"algorithm":    matching.FormatAlgorithm(mc.candidate.Algorithm, mc.candidate.Confidence),
			"source_name":  src.AccountName,
			"target_name":  tgt.AccountName,
			"has_pattern":  hasFix,
			"disagreement": disagreement,
		})

		match := models.ForensicMatch{
			ID:                      uuid.New(),
			SessionID:               sessionID,
			SourceDocumentType:      src.DocumentType,
			SourceAccountCode:       src.AccountCode,
			SourceAccountName:       src.AccountName,
			SourceAmount:            src.Amount,
			TargetDocumentType:      tgt.DocumentType,
			TargetAccountCode:       tgt.AccountCode,
			TargetAccountName:       tgt.AccountName,
			TargetAmount:            tgt.Amount,
			MatchType:               mc.candidate.MatchType,
			MatchAlgorithm:          mc.candidate.Algorithm,
			ConfidenceScore:         mc.candidate.Confidence,
			AmountDifference:        diff,
			AmountDifferencePercent: diffPercent,
			RelationshipFormula:     fmt.Sprintf("%s.%s = %s.%s", src.DocumentType, src.AccountCode, tgt.DocumentType, tgt.AccountCode),
			RelationshipType:        mc.relationship,
			Severity:                severity,
			IsMaterial:              material,
			ExceptionTier:           tier,
			Status:                  models.StatusPending,
			MatchDetails:            details,
			CreatedAt:               now,
		}

		if tier == models.TierAutoClose {
			match.Status = models.StatusApproved
			match.ReviewNotes = "auto-closed: high confidence, immaterial difference"
			reviewed := now
			match.ReviewedAt = &reviewed
		}
		matches = append(matches, match)
	}
	return matches
}

func (s *Service) buildDiscrepancies(sessionID uuid.UUID, propertyID uuid.UUID, periodID string, results []rules.Result, thresholds classify.ThresholdSet) []models.ForensicDiscrepancy {
	discrepancies := make([]models.ForensicDiscrepancy, 0, len(results))
	now := time.Now()
	for _, res := range results {
		scope := string(res.Rule.Left.DocumentType)
		material := thresholds.IsMaterial(res.Difference, scope)
		severity := classify.DiscrepancySeverity(res.Rule.Severity, res.Outcome)

		repeated := false
		if res.Outcome == rules.OutcomeFail {
			if n, err := s.sessions.RepeatedRuleFailures(propertyID, periodID, res.Rule.Code); err == nil && n > 0 {
				repeated = true
			}
		}

		var tier models.ExceptionTier
		status := models.StatusPending
		resolution := ""
		switch res.Outcome {
		case rules.OutcomePass, rules.OutcomeNotApplicable:
			tier = models.TierAutoClose
			status = models.StatusResolved
			resolution = "no action required"
		default:
			tier = classify.Tier(classify.Signals{
				Severity:        severity,
				Material:        material,
				RepeatedFailure: repeated,
			})
		}

		d := models.ForensicDiscrepancy{
			ID:                uuid.New(),
			SessionID:         sessionID,
			DiscrepancyType:   string(res.Rule.Kind),
			RuleCode:          res.Rule.Code,
			Outcome:           string(res.Outcome),
			ExpectedValue:     res.Expected,
			ActualValue:       res.Actual,
			Difference:        res.Difference,
			DifferencePercent: res.DifferencePercent,
			Description:       res.Description,
			Severity:          severity,
			IsMaterial:        material,
			ExceptionTier:     tier,
			Status:            status,
			ResolutionNotes:   resolution,
			CreatedAt:         now,
		}
		if status == models.StatusResolved {
			resolved := now
			d.ResolvedAt = &resolved
		}
		discrepancies = append(discrepancies, d)
	}
	return discrepancies
}

// GetSessionDetail loads a session with its matches and discrepancies.
func (s *Service) GetSessionDetail(sessionID uuid.UUID) (*SessionResult, error) {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	matches, err := s.sessions.MatchesBySession(sessionID)
	if err != nil {
		return nil, err
	}
	discrepancies, err := s.sessions.DiscrepanciesBySession(sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Session: *session, Matches: matches, Discrepancies: discrepancies}, nil
}
