package matching

import (
	"testing"

	"github.com/google/uuid"

	"document-reconciliation-backend/internal/models"
)

func item(doc models.DocumentType, code, name string) models.LineItem {
	return models.LineItem{
		ID:           uuid.New(),
		PropertyID:   uuid.New(),
		PeriodID:     "2024-Q4",
		DocumentType: doc,
		AccountCode:  code,
		AccountName:  name,
	}
}

func TestMatchExactCode(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	source := item(models.DocBalanceSheet, "0122-0000", "Cash - Operating")
	candidates := []models.LineItem{
		item(models.DocCashFlow, "2000", "Mortgage Payable"),
		item(models.DocCashFlow, "0122-0000", "Cash and Equivalents"),
	}

	got := m.Match(source, models.DocCashFlow, candidates, PatternSnapshot{})
	if got == nil {
		t.Fatal("expected a match, got nil")
	}
	if got.Algorithm != AlgExactCode {
		t.Errorf("algorithm = %s, want %s", got.Algorithm, AlgExactCode)
	}
	if got.MatchType != models.MatchExact {
		t.Errorf("match type = %s, want %s", got.MatchType, models.MatchExact)
	}
	if got.Confidence != 100 {
		t.Errorf("confidence = %.1f, want 100", got.Confidence)
	}
	if got.Item.AccountCode != "0122-0000" {
		t.Errorf("matched code = %s, want 0122-0000", got.Item.AccountCode)
	}
}

func TestMatchFuzzyCode(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	source := item(models.DocBalanceSheet, "1100-000-00", "Operating Account")
	candidates := []models.LineItem{
		item(models.DocCashFlow, "1100-000-01", "Cash Position"),
	}

	got := m.Match(source, models.DocCashFlow, candidates, PatternSnapshot{})
	if got == nil {
		t.Fatal("expected a match, got nil")
	}
	if got.Algorithm != AlgFuzzyCode {
		t.Errorf("algorithm = %s, want %s", got.Algorithm, AlgFuzzyCode)
	}
	if got.Confidence < 90 || got.Confidence >= 100 {
		t.Errorf("confidence = %.1f, want [90,100)", got.Confidence)
	}
}

func TestMatchExactNormalizedName(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	source := item(models.DocBalanceSheet, "1000", "Cash - Operating")
	candidates := []models.LineItem{
		item(models.DocCashFlow, "CF-100", "CASH OPERATING"),
	}

	got := m.Match(source, models.DocCashFlow, candidates, PatternSnapshot{})
	if got == nil {
		t.Fatal("expected a match, got nil")
	}
	if got.Algorithm != AlgExactName {
		t.Errorf("algorithm = %s, want %s", got.Algorithm, AlgExactName)
	}
	if got.Confidence != 100 {
		t.Errorf("confidence = %.1f, want 100", got.Confidence)
	}
}

func TestMatchAbbreviationExpansion(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	source := item(models.DocBalanceSheet, "", "A/R Tenants")
	candidates := []models.LineItem{
		item(models.DocRentRoll, "1200", "Accounts Receivable - Tenants"),
	}

	got := m.Match(source, models.DocRentRoll, candidates, PatternSnapshot{})
	if got == nil {
		t.Fatal("expected a match, got nil")
	}
	if got.Algorithm != AlgAbbreviation {
		t.Errorf("algorithm = %s, want %s", got.Algorithm, AlgAbbreviation)
	}
	if got.MatchType != models.MatchFuzzy {
		t.Errorf("match type = %s, want %s", got.MatchType, models.MatchFuzzy)
	}
	if got.Confidence < 85 {
		t.Errorf("confidence = %.1f, want >= 85", got.Confidence)
	}
}

func TestMatchLearnedPatternShortCircuits(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	snap := BuildSnapshot([]models.LearnedMatchPattern{
		{
			SourceDocumentType: models.DocBalanceSheet,
			TargetDocumentType: models.DocCashFlow,
			SourceAccountCode:  "0122-0000",
			TargetAccountCode:  "9999",
			SuccessRate:        92,
			AverageConfidence:  97,
			IsActive:           true,
		},
	}, nil)

	source := item(models.DocBalanceSheet, "0122-0000", "Cash - Operating")
	candidates := []models.LineItem{
		item(models.DocCashFlow, "0122-0000", "Cash and Equivalents"),
		item(models.DocCashFlow, "9999", "Ending Cash Balance"),
	}

	got := m.Match(source, models.DocCashFlow, candidates, snap)
	if got == nil {
		t.Fatal("expected a match, got nil")
	}
	if got.Algorithm != AlgLearnedPattern {
		t.Errorf("algorithm = %s, want %s", got.Algorithm, AlgLearnedPattern)
	}
	if got.MatchType != models.MatchInferred {
		t.Errorf("match type = %s, want %s", got.MatchType, models.MatchInferred)
	}
	if got.Item.AccountCode != "9999" {
		t.Errorf("matched code = %s, want the learned target 9999", got.Item.AccountCode)
	}
	if got.Confidence != 97 {
		t.Errorf("confidence = %.1f, want 97", got.Confidence)
	}
}

func TestMatchPatternBelowFloorFallsThrough(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	snap := BuildSnapshot([]models.LearnedMatchPattern{
		{
			SourceDocumentType: models.DocBalanceSheet,
			TargetDocumentType: models.DocCashFlow,
			SourceAccountCode:  "0122-0000",
			TargetAccountCode:  "9999",
			SuccessRate:        50,
			AverageConfidence:  97,
			IsActive:           true,
		},
	}, nil)

	source := item(models.DocBalanceSheet, "0122-0000", "Cash - Operating")
	candidates := []models.LineItem{
		item(models.DocCashFlow, "0122-0000", "Cash and Equivalents"),
		item(models.DocCashFlow, "9999", "Ending Cash Balance"),
	}

	got := m.Match(source, models.DocCashFlow, candidates, snap)
	if got == nil {
		t.Fatal("expected a match, got nil")
	}
	if got.Algorithm != AlgExactCode {
		t.Errorf("algorithm = %s, want %s (floor should exclude the weak pattern)", got.Algorithm, AlgExactCode)
	}
}

func TestMatchInactivePatternDropped(t *testing.T) {
	snap := BuildSnapshot([]models.LearnedMatchPattern{
		{
			SourceDocumentType: models.DocBalanceSheet,
			TargetDocumentType: models.DocCashFlow,
			SourceAccountCode:  "0122-0000",
			TargetAccountCode:  "9999",
			SuccessRate:        92,
			IsActive:           false,
		},
	}, nil)
	if _, ok := snap.Pattern(models.DocBalanceSheet, models.DocCashFlow, "0122-0000"); ok {
		t.Error("inactive pattern should not survive the snapshot")
	}
}

func TestMatchSynonymLookup(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	snap := BuildSnapshot(nil, []models.AccountCodeSynonym{
		{
			CanonicalAccountCode: "1200",
			CanonicalAccountName: "Accounts Receivable - Tenants",
			SynonymName:          "A/R Tenants",
			CombinedConfidence:   93,
			SuccessRate:          90,
			IsActive:             true,
		},
	})

	source := item(models.DocBalanceSheet, "", "A/R Tenants")
	candidates := []models.LineItem{
		item(models.DocRentRoll, "1200", "Accounts Receivable - Tenants"),
		item(models.DocRentRoll, "4000", "Rental Income"),
	}

	got := m.Match(source, models.DocRentRoll, candidates, snap)
	if got == nil {
		t.Fatal("expected a match, got nil")
	}
	if got.Algorithm != AlgSynonymLookup {
		t.Errorf("algorithm = %s, want %s", got.Algorithm, AlgSynonymLookup)
	}
	if got.Confidence != 93 {
		t.Errorf("confidence = %.1f, want 93", got.Confidence)
	}
}

func TestMatchSynonymBelowFloorFallsThrough(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	snap := BuildSnapshot(nil, []models.AccountCodeSynonym{
		{
			CanonicalAccountCode: "9999",
			CanonicalAccountName: "Suspense",
			SynonymName:          "A/R Tenants",
			CombinedConfidence:   93,
			SuccessRate:          50,
			IsActive:             true,
		},
	})

	source := item(models.DocBalanceSheet, "", "A/R Tenants")
	candidates := []models.LineItem{
		item(models.DocRentRoll, "1200", "Accounts Receivable - Tenants"),
		item(models.DocRentRoll, "9999", "Suspense"),
	}

	got := m.Match(source, models.DocRentRoll, candidates, snap)
	if got == nil {
		t.Fatal("expected a match, got nil")
	}
	if got.Algorithm == AlgSynonymLookup {
		t.Error("a synonym below the success floor must not drive the match")
	}
	if got.Item.AccountCode != "1200" {
		t.Errorf("matched code = %s, want the ladder's 1200", got.Item.AccountCode)
	}
}

func TestMatchNoAcceptableCandidate(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	source := item(models.DocBalanceSheet, "1000", "Cash")
	candidates := []models.LineItem{
		item(models.DocCashFlow, "9999", "Mortgage Payable"),
	}

	if got := m.Match(source, models.DocCashFlow, candidates, PatternSnapshot{}); got != nil {
		t.Errorf("expected nil, got %s via %s at %.1f", got.Item.AccountName, got.Algorithm, got.Confidence)
	}
	if got := m.Match(source, models.DocCashFlow, nil, PatternSnapshot{}); got != nil {
		t.Error("expected nil for empty candidate pool")
	}
}
