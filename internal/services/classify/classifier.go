package classify

import (
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"document-reconciliation-backend/internal/models"
	"document-reconciliation-backend/internal/services/rules"
)

// Bands are the confidence cut points for match severity. A confidence at or
// above Low is a low-severity match, at or above Medium a medium one, at or
// above High a high one, and anything below High is critical. Like the
// matcher thresholds, the edges are configuration, not code.
type Bands struct {
	Low    float64
	Medium float64
	High   float64
}

func DefaultBands() Bands {
	return Bands{Low: 90, Medium: 80, High: 70}
}

// BandsFromEnv reads band overrides. An override that breaks the descending
// order is ignored wholesale; a partial band table grades nonsense.
func BandsFromEnv() Bands {
	b := DefaultBands()
	if v, ok := envFloat("SEVERITY_BAND_LOW"); ok {
		b.Low = v
	}
	if v, ok := envFloat("SEVERITY_BAND_MEDIUM"); ok {
		b.Medium = v
	}
	if v, ok := envFloat("SEVERITY_BAND_HIGH"); ok {
		b.High = v
	}
	if !(b.Low > b.Medium && b.Medium > b.High) {
		return DefaultBands()
	}
	return b
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// MatchSeverity grades a match by its confidence. Low-confidence matches are
// the riskiest, so the bands invert the intuitive ordering.
func (b Bands) MatchSeverity(confidence float64) models.Severity {
	switch {
	case confidence >= b.Low:
		return models.SeverityLow
	case confidence >= b.Medium:
		return models.SeverityMedium
	case confidence >= b.High:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

// MatchSeverity grades with the default bands.
func MatchSeverity(confidence float64) models.Severity {
	return DefaultBands().MatchSeverity(confidence)
}

// DiscrepancySeverity takes the rule-declared severity, downgraded one notch
// for warnings since the soft tolerance held.
func DiscrepancySeverity(declared models.Severity, outcome rules.Outcome) models.Severity {
	if outcome != rules.OutcomeWarning {
		return declared
	}
	switch declared {
	case models.SeverityCritical:
		return models.SeverityHigh
	case models.SeverityHigh:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// ThresholdSet resolves a materiality threshold per scope with a default
// fallback. Loaded once per run from MaterialityThreshold rows.
type ThresholdSet struct {
	byScope       map[string]decimal.Decimal
	defaultDollar decimal.Decimal
}

func NewThresholdSet(rows []models.MaterialityThreshold) ThresholdSet {
	ts := ThresholdSet{
		byScope:       make(map[string]decimal.Decimal, len(rows)),
		defaultDollar: decimal.NewFromInt(500),
	}
	for _, row := range rows {
		if row.Scope == "default" {
			ts.defaultDollar = row.DollarThreshold
			continue
		}
		ts.byScope[row.Scope] = row.DollarThreshold
	}
	return ts
}

func (ts ThresholdSet) For(scope string) decimal.Decimal {
	if t, ok := ts.byScope[scope]; ok {
		return t
	}
	return ts.defaultDollar
}

// IsMaterial reports whether the absolute dollar impact exceeds the
// threshold for the scope.
func (ts ThresholdSet) IsMaterial(amountImpact decimal.Decimal, scope string) bool {
	return amountImpact.Abs().GreaterThan(ts.For(scope))
}

// Signals are the inputs to tier assignment. Tier assignment is a pure
// function of these fields.
type Signals struct {
	Confidence           float64
	Severity             models.Severity
	Material             bool
	HasLearnedFix        bool
	DetectorDisagreement bool
	RepeatedFailure      bool
}

// Tier buckets an exception for routing:
//
//	tier_0_auto_close   safe to auto-approve
//	tier_1_auto_suggest high confidence or a learned fix exists
//	tier_2_route        default, needs human routing
//	tier_3_escalate     critical and material, or a repeat offender
func Tier(s Signals) models.ExceptionTier {
	if s.RepeatedFailure || (s.Severity == models.SeverityCritical && s.Material) {
		return models.TierEscalate
	}
	if s.Confidence >= 95 && !s.Material && !s.DetectorDisagreement {
		return models.TierAutoClose
	}
	if s.Confidence >= 90 || s.HasLearnedFix {
		return models.TierAutoSuggest
	}
	return models.TierRoute
}
