package reconciliation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"document-reconciliation-backend/internal/models"
)

var (
	// ErrInvalidStateTransition is returned for any transition attempted on
	// an item no longer in pending state. Terminal states never reopen;
	// revisiting a decision means a new match in a new session.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrReasonRequired guards rejections: a reject with no reason teaches
	// the learner nothing.
	ErrReasonRequired = errors.New("rejection reason is required")
	// ErrConcurrencyConflict is surfaced when a guarded update still finds
	// no pending row after a fresh re-read.
	ErrConcurrencyConflict = errors.New("match was modified by a concurrent actor")
)

// CanTransition is the match state machine: pending is the only state with
// outgoing edges.
func CanTransition(current, next string) bool {
	if current != models.StatusPending {
		return false
	}
	switch next {
	case models.StatusApproved, models.StatusRejected, models.StatusModified:
		return true
	}
	return false
}

// ApproveMatch moves a pending match to approved and feeds the positive
// signal to the learner.
func (s *Service) ApproveMatch(matchID uuid.UUID, notes string) (*models.ForensicMatch, error) {
	match, err := s.transitionMatch(matchID, models.StatusApproved, map[string]interface{}{
		"review_notes": notes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.learner.RecordApproval(match); err != nil {
		return nil, err
	}
	return match, nil
}

// RejectMatch moves a pending match to rejected. The reason is mandatory and
// counts against the pattern that produced the match.
func (s *Service) RejectMatch(matchID uuid.UUID, reason string) (*models.ForensicMatch, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}
	match, err := s.transitionMatch(matchID, models.StatusRejected, map[string]interface{}{
		"review_notes": reason,
	})
	if err != nil {
		return nil, err
	}
	if err := s.learner.RecordRejection(match); err != nil {
		return nil, err
	}
	return match, nil
}

// RemapMatch records the reviewer's corrected target: the match moves to
// modified, the original mapping takes a negative signal, and the corrected
// mapping a fresh approval.
func (s *Service) RemapMatch(matchID uuid.UUID, newTargetCode string) (*models.ForensicMatch, error) {
	if newTargetCode == "" {
		return nil, fmt.Errorf("%w: new target account code is required", ErrInvalidStateTransition)
	}

	// Snapshot the original mapping before the update; the learner needs it.
	original, err := s.sessions.GetMatch(matchID)
	if err != nil {
		return nil, err
	}

	match, err := s.transitionMatch(matchID, models.StatusModified, map[string]interface{}{
		"target_account_code": newTargetCode,
		"review_notes":        fmt.Sprintf("remapped to %s", newTargetCode),
	})
	if err != nil {
		return nil, err
	}
	if err := s.learner.RecordRemap(original, newTargetCode); err != nil {
		return nil, err
	}
	return match, nil
}

// transitionMatch is the optimistic single-item transition: the UPDATE is
// guarded on status=pending, so a concurrent decision makes RowsAffected
// zero instead of silently overwriting. One fresh re-read distinguishes a
// terminal state from a vanished row.
func (s *Service) transitionMatch(matchID uuid.UUID, next string, extra map[string]interface{}) (*models.ForensicMatch, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":      next,
		"reviewed_at": now,
	}
	for k, v := range extra {
		updates[k] = v
	}

	res := s.db.Model(&models.ForensicMatch{}).
		Where("id = ? AND status = ?", matchID, models.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		match, err := s.sessions.GetMatch(matchID)
		if err != nil {
			return nil, err
		}
		if match.Status != models.StatusPending {
			return nil, fmt.Errorf("%w: match is %s", ErrInvalidStateTransition, match.Status)
		}
		return nil, ErrConcurrencyConflict
	}
	return s.sessions.GetMatch(matchID)
}

// ResolveDiscrepancy records a reviewer note against a rule outcome. The
// computed expected/actual values stay as written.
func (s *Service) ResolveDiscrepancy(discrepancyID uuid.UUID, notes string) (*models.ForensicDiscrepancy, error) {
	now := time.Now()
	res := s.db.Model(&models.ForensicDiscrepancy{}).
		Where("id = ? AND status = ?", discrepancyID, models.StatusPending).
		Updates(map[string]interface{}{
			"status":           models.StatusResolved,
			"resolution_notes": notes,
			"resolved_at":      now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		d, err := s.sessions.GetDiscrepancy(discrepancyID)
		if err != nil {
			return nil, err
		}
		if d.Status != models.StatusPending {
			return nil, fmt.Errorf("%w: discrepancy is %s", ErrInvalidStateTransition, d.Status)
		}
		return nil, ErrConcurrencyConflict
	}
	return s.sessions.GetDiscrepancy(discrepancyID)
}

// BulkItemResult reports one item of a bulk operation.
type BulkItemResult struct {
	MatchID uuid.UUID `json:"match_id"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
}

// BulkApproveMatches applies the single-item approval invariants to each id
// independently. A failed item is reported and skipped; it can never be left
// half-transitioned because each approval is its own guarded update.
func (s *Service) BulkApproveMatches(matchIDs []uuid.UUID, notes string) []BulkItemResult {
	results := make([]BulkItemResult, 0, len(matchIDs))
	for _, id := range matchIDs {
		if _, err := s.ApproveMatch(id, notes); err != nil {
			results = append(results, BulkItemResult{MatchID: id, Error: err.Error()})
			continue
		}
		results = append(results, BulkItemResult{MatchID: id, OK: true})
	}
	return results
}
