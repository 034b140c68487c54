package diagnostics

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"document-reconciliation-backend/internal/models"
	"document-reconciliation-backend/internal/repository"
	"document-reconciliation-backend/internal/services/matching"
	"document-reconciliation-backend/internal/services/rules"
)

// DocumentStatus reports whether a document type has any extracted data.
type DocumentStatus struct {
	HasData       bool `json:"has_data"`
	LineItemCount int  `json:"line_item_count"`
}

// MissingAccount is an account a rule wants that exists nowhere in the
// document's extracted line items.
type MissingAccount struct {
	DocumentType models.DocumentType `json:"document_type"`
	AccountLabel string              `json:"account_label"`
	RequiredBy   string              `json:"required_by"`
}

// NotApplicableRule is a rule skipped because a whole document type is
// absent. Kept separate from missing accounts so an unuploaded document does
// not read as an extraction defect.
type NotApplicableRule struct {
	RuleCode            string              `json:"rule_code"`
	MissingDocumentType models.DocumentType `json:"missing_document_type"`
}

// SuggestedFix proposes an existing account that likely is the missing one
// under a different name.
type SuggestedFix struct {
	DocumentType     models.DocumentType `json:"document_type"`
	MissingLabel     string              `json:"missing_label"`
	SuggestedCode    string              `json:"suggested_code"`
	SuggestedName    string              `json:"suggested_name"`
	Confidence       float64             `json:"confidence"`
	FromSynonymTable bool                `json:"from_synonym_table"`
}

// Report is the full diagnostics payload for a (property, period). Always a
// partial-results shape: whatever could be computed is present.
type Report struct {
	PropertyID      uuid.UUID                              `json:"property_id"`
	PeriodID        string                                 `json:"period_id"`
	Documents       map[models.DocumentType]DocumentStatus `json:"documents"`
	MissingAccounts []MissingAccount                       `json:"missing_accounts"`
	NotApplicable   []NotApplicableRule                    `json:"not_applicable"`
	SuggestedFixes  []SuggestedFix                         `json:"suggested_fixes"`
	ActivePatterns  []models.LearnedMatchPattern           `json:"active_patterns"`
	Recommendations []string                               `json:"recommendations"`
}

type Reporter struct {
	lineItems *repository.LineItemRepository
	discovery *repository.DiscoveryRepository
	patterns  *repository.PatternRepository
	library   []rules.Rule
}

func NewReporter(
	lineItems *repository.LineItemRepository,
	discovery *repository.DiscoveryRepository,
	patterns *repository.PatternRepository,
	library []rules.Rule,
) *Reporter {
	return &Reporter{lineItems: lineItems, discovery: discovery, patterns: patterns, library: library}
}

// Report assembles diagnostics for a scope. Lookup failures degrade the
// report rather than failing it.
func (r *Reporter) Report(propertyID uuid.UUID, periodID string) (*Report, error) {
	items, err := r.lineItems.ByScope(propertyID, periodID, nil)
	if err != nil {
		return nil, err
	}

	discovered, _ := r.discovery.ByDocumentType(nil)
	synonyms, _ := r.patterns.ActiveSynonyms()
	patterns, _ := r.patterns.ActivePatterns()

	report := BuildReport(propertyID, periodID, items, r.library, discovered, synonyms)
	report.ActivePatterns = relevantPatterns(patterns, report.Documents)
	return report, nil
}

// BuildReport is the pure assembly over already-loaded inputs.
func BuildReport(
	propertyID uuid.UUID,
	periodID string,
	items []models.LineItem,
	library []rules.Rule,
	discovered []models.DiscoveredAccountCode,
	synonyms []models.AccountCodeSynonym,
) *Report {
	report := &Report{
		PropertyID:      propertyID,
		PeriodID:        periodID,
		Documents:       make(map[models.DocumentType]DocumentStatus),
		MissingAccounts: []MissingAccount{},
		NotApplicable:   []NotApplicableRule{},
		SuggestedFixes:  []SuggestedFix{},
		Recommendations: []string{},
	}

	counts := make(map[models.DocumentType]int)
	for _, item := range items {
		counts[item.DocumentType]++
	}
	for _, dt := range models.AllDocumentTypes {
		report.Documents[dt] = DocumentStatus{HasData: counts[dt] > 0, LineItemCount: counts[dt]}
	}

	seenMissing := make(map[string]bool)
	seenNA := make(map[string]bool)
	for _, rule := range library {
		// A rule whose document type carries no data at all is not
		// applicable; only rules whose document is present but whose account
		// cannot be resolved point at a real gap.
		missingDoc := models.DocumentType("")
		for _, dt := range rule.RequiredDocumentTypes() {
			if counts[dt] == 0 {
				missingDoc = dt
				break
			}
		}
		if missingDoc != "" {
			if !seenNA[rule.Code] {
				seenNA[rule.Code] = true
				report.NotApplicable = append(report.NotApplicable, NotApplicableRule{
					RuleCode:            rule.Code,
					MissingDocumentType: missingDoc,
				})
			}
			continue
		}

		for _, op := range rule.Operands() {
			if _, ok := rules.ResolveOperand(op, items); ok {
				continue
			}
			key := string(op.DocumentType) + "|" + op.Label
			if seenMissing[key] {
				continue
			}
			seenMissing[key] = true
			report.MissingAccounts = append(report.MissingAccounts, MissingAccount{
				DocumentType: op.DocumentType,
				AccountLabel: op.Label,
				RequiredBy:   rule.Code,
			})
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("%s missing account %q - required by rule %s", op.DocumentType, op.Label, rule.Code))
		}
	}

	for _, missing := range report.MissingAccounts {
		report.SuggestedFixes = append(report.SuggestedFixes,
			suggestFixes(missing, discovered, synonyms)...)
	}

	for _, dt := range models.AllDocumentTypes {
		if counts[dt] == 0 {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("no %s line items extracted for this period", dt))
		}
	}
	sort.Strings(report.Recommendations)
	return report
}

// suggestFixes searches discovered accounts and the synonym table for names
// resembling the missing label.
func suggestFixes(missing MissingAccount, discovered []models.DiscoveredAccountCode, synonyms []models.AccountCodeSynonym) []SuggestedFix {
	const minSimilarity = 70

	var fixes []SuggestedFix
	want := matching.NormalizeName(missing.AccountLabel)

	for _, syn := range synonyms {
		score := matching.TokenSetRatio(want, matching.NormalizeName(syn.CanonicalAccountName))
		if score >= minSimilarity {
			fixes = append(fixes, SuggestedFix{
				DocumentType:     missing.DocumentType,
				MissingLabel:     missing.AccountLabel,
				SuggestedCode:    syn.CanonicalAccountCode,
				SuggestedName:    syn.CanonicalAccountName,
				Confidence:       score,
				FromSynonymTable: true,
			})
		}
	}

	for _, acct := range discovered {
		if acct.DocumentType != missing.DocumentType {
			continue
		}
		score := matching.TokenSetRatio(want, matching.NormalizeName(acct.AccountName))
		if score >= minSimilarity {
			fixes = append(fixes, SuggestedFix{
				DocumentType:  missing.DocumentType,
				MissingLabel:  missing.AccountLabel,
				SuggestedCode: acct.AccountCode,
				SuggestedName: acct.AccountName,
				Confidence:    score,
			})
		}
	}

	sort.SliceStable(fixes, func(i, j int) bool { return fixes[i].Confidence > fixes[j].Confidence })
	if len(fixes) > 3 {
		fixes = fixes[:3]
	}
	return fixes
}

// relevantPatterns keeps patterns whose endpoints both have extracted data.
func relevantPatterns(patterns []models.LearnedMatchPattern, docs map[models.DocumentType]DocumentStatus) []models.LearnedMatchPattern {
	out := make([]models.LearnedMatchPattern, 0, len(patterns))
	for _, p := range patterns {
		if docs[p.SourceDocumentType].HasData && docs[p.TargetDocumentType].HasData {
			out = append(out, p)
		}
	}
	return out
}
