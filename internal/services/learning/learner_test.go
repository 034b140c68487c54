package learning

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"document-reconciliation-backend/internal/models"
)

func TestPatternName(t *testing.T) {
	got := PatternName(models.DocBalanceSheet, "0122-0000", models.DocCashFlow, "9999")
	want := "balance_sheet:0122-0000->cash_flow:9999"
	if got != want {
		t.Errorf("PatternName = %q, want %q", got, want)
	}
}

func TestNextStatsApproval(t *testing.T) {
	start := models.LearnedMatchPattern{
		MatchCount:        1,
		ApprovedCount:     1,
		SuccessRate:       100,
		AverageConfidence: 90,
		IsActive:          true,
	}

	got := NextStats(start, models.FeedbackApproved, 100)
	if got.MatchCount != 2 || got.ApprovedCount != 2 || got.RejectedCount != 0 {
		t.Errorf("counters = %d/%d/%d, want 2/2/0", got.MatchCount, got.ApprovedCount, got.RejectedCount)
	}
	if got.SuccessRate != 100 {
		t.Errorf("success rate = %.2f, want 100", got.SuccessRate)
	}
	// Running average: 90 moves halfway toward 100.
	if math.Abs(got.AverageConfidence-95) > 1e-9 {
		t.Errorf("average confidence = %.2f, want 95", got.AverageConfidence)
	}
}

func TestNextStatsRejection(t *testing.T) {
	start := models.LearnedMatchPattern{
		MatchCount:        2,
		ApprovedCount:     2,
		SuccessRate:       100,
		AverageConfidence: 95,
		IsActive:          true,
	}

	got := NextStats(start, models.FeedbackRejected, 40)
	if got.MatchCount != 3 || got.ApprovedCount != 2 || got.RejectedCount != 1 {
		t.Errorf("counters = %d/%d/%d, want 3/2/1", got.MatchCount, got.ApprovedCount, got.RejectedCount)
	}
	if math.Abs(got.SuccessRate-200.0/3.0) > 1e-9 {
		t.Errorf("success rate = %.4f, want 66.67", got.SuccessRate)
	}
	// Rejections never move the confidence average.
	if got.AverageConfidence != 95 {
		t.Errorf("average confidence = %.2f, want unchanged 95", got.AverageConfidence)
	}
}

func TestNextStatsProperties(t *testing.T) {
	pattern := models.LearnedMatchPattern{
		MatchCount:        1,
		ApprovedCount:     1,
		SuccessRate:       100,
		AverageConfidence: 88,
		IsActive:          true,
	}

	outcomes := []string{
		models.FeedbackApproved,
		models.FeedbackRejected,
		models.FeedbackRejected,
		models.FeedbackApproved,
		models.FeedbackRejected,
	}
	for i, outcome := range outcomes {
		next := NextStats(pattern, outcome, 92)
		if next.MatchCount <= pattern.MatchCount {
			t.Fatalf("step %d: match count did not increase (%d -> %d)", i, pattern.MatchCount, next.MatchCount)
		}
		if outcome == models.FeedbackRejected && next.SuccessRate > pattern.SuccessRate {
			t.Fatalf("step %d: rejection raised success rate %.2f -> %.2f", i, pattern.SuccessRate, next.SuccessRate)
		}
		if next.SuccessRate < 0 || next.SuccessRate > 100 {
			t.Fatalf("step %d: success rate %.2f out of range", i, next.SuccessRate)
		}
		if next.AverageConfidence > 100 {
			t.Fatalf("step %d: average confidence %.2f above cap", i, next.AverageConfidence)
		}
		pattern = next
	}
}

func TestDeactivationNeedsSamplesAndLowRate(t *testing.T) {
	cfg := DefaultConfig()

	// Two rejections against one approval: rate is 33 but only 3 samples.
	early := models.LearnedMatchPattern{MatchCount: 2, ApprovedCount: 1, RejectedCount: 1, SuccessRate: 50, IsActive: true}
	next := NextStats(early, models.FeedbackRejected, 0)
	if next.MatchCount >= cfg.MinSamples && next.SuccessRate < cfg.DeactivationFloor {
		t.Errorf("pattern with %d samples at %.1f%% should not yet meet deactivation criteria", next.MatchCount, next.SuccessRate)
	}

	// One approval against four rejections crosses the floor with enough samples.
	seasoned := models.LearnedMatchPattern{MatchCount: 4, ApprovedCount: 1, RejectedCount: 3, SuccessRate: 25, IsActive: true}
	next = NextStats(seasoned, models.FeedbackRejected, 0)
	if next.MatchCount < cfg.MinSamples || next.SuccessRate >= cfg.DeactivationFloor {
		t.Errorf("pattern with %d samples at %.1f%% should meet deactivation criteria", next.MatchCount, next.SuccessRate)
	}
}

func TestRetryableErrors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"duplicate key sentinel", gorm.ErrDuplicatedKey, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique violation", fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505"}), true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"not-null violation", &pgconn.PgError{Code: "23502"}, false},
		{"plain error", errors.New("validation failed"), false},
	}
	for _, tc := range cases {
		if got := retryable(tc.err); got != tc.expected {
			t.Errorf("retryable(%s) = %v, want %v", tc.name, got, tc.expected)
		}
	}
}

func TestNextSynonymStatsRejection(t *testing.T) {
	start := models.AccountCodeSynonym{
		ApprovalCount:      2,
		SuccessRate:        100,
		CombinedConfidence: 94,
		IsActive:           true,
	}

	got := NextSynonymStats(start, models.FeedbackRejected, 93)
	if got.ApprovalCount != 2 || got.RejectionCount != 1 {
		t.Errorf("counters = %d/%d, want 2/1", got.ApprovalCount, got.RejectionCount)
	}
	if math.Abs(got.SuccessRate-200.0/3.0) > 1e-9 {
		t.Errorf("success rate = %.4f, want 66.67", got.SuccessRate)
	}
	// Rejections never move the confidence average.
	if got.CombinedConfidence != 94 {
		t.Errorf("combined confidence = %.2f, want unchanged 94", got.CombinedConfidence)
	}
}

func TestNextSynonymStatsApproval(t *testing.T) {
	start := models.AccountCodeSynonym{
		ApprovalCount:      1,
		RejectionCount:     1,
		SuccessRate:        50,
		CombinedConfidence: 90,
		IsActive:           true,
	}

	got := NextSynonymStats(start, models.FeedbackApproved, 100)
	if got.ApprovalCount != 2 || got.RejectionCount != 1 {
		t.Errorf("counters = %d/%d, want 2/1", got.ApprovalCount, got.RejectionCount)
	}
	if math.Abs(got.SuccessRate-200.0/3.0) > 1e-9 {
		t.Errorf("success rate = %.4f, want 66.67", got.SuccessRate)
	}
	if math.Abs(got.CombinedConfidence-95) > 1e-9 {
		t.Errorf("combined confidence = %.2f, want 95", got.CombinedConfidence)
	}
}

func TestSynonymDeactivationCriteria(t *testing.T) {
	cfg := DefaultConfig()

	// A synonym that keeps getting rejected crosses the floor once enough
	// decisions accumulate; a young one does not.
	young := models.AccountCodeSynonym{ApprovalCount: 1, RejectionCount: 1, SuccessRate: 50, IsActive: true}
	next := NextSynonymStats(young, models.FeedbackRejected, 0)
	if decided := next.ApprovalCount + next.RejectionCount; decided >= cfg.MinSamples && next.SuccessRate < cfg.DeactivationFloor {
		t.Errorf("synonym with %d decisions at %.1f%% should not yet meet deactivation criteria", decided, next.SuccessRate)
	}

	seasoned := models.AccountCodeSynonym{ApprovalCount: 1, RejectionCount: 3, SuccessRate: 25, IsActive: true}
	next = NextSynonymStats(seasoned, models.FeedbackRejected, 0)
	if decided := next.ApprovalCount + next.RejectionCount; decided < cfg.MinSamples || next.SuccessRate >= cfg.DeactivationFloor {
		t.Errorf("synonym with %d decisions at %.1f%% should meet deactivation criteria", decided, next.SuccessRate)
	}
}

func TestIsNameBased(t *testing.T) {
	cases := []struct {
		algorithm string
		expected  bool
	}{
		{"exact_name", true},
		{"fuzzy_name", true},
		{"category_fuzzy_name", true},
		{"abbreviation_expansion", true},
		{"exact_code", false},
		{"fuzzy_code", false},
		{"learned_pattern", false},
		{"synonym_lookup", false},
	}
	for _, tc := range cases {
		if got := isNameBased(tc.algorithm); got != tc.expected {
			t.Errorf("isNameBased(%s) = %v, want %v", tc.algorithm, got, tc.expected)
		}
	}
}
