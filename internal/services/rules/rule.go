package rules

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"document-reconciliation-backend/internal/models"
)

// Kind is the closed set of rule shapes the evaluator can dispatch on.
type Kind string

const (
	EqualityCheck    Kind = "equality_check"
	RatioThreshold   Kind = "ratio_threshold"
	RollforwardCheck Kind = "rollforward_check"
)

// CompareOp is the comparison applied by ratio rules.
type CompareOp string

const (
	OpGTE CompareOp = "gte"
	OpLTE CompareOp = "lte"
)

// AccountSelector picks line items by exact code, by normalized-name
// substring, or by inferred category. A selector with several fields set
// requires all of them.
type AccountSelector struct {
	Code      string
	NameAnyOf []string
	Category  models.Category
}

// Operand is a typed reference into the line-item set: the sum of the items
// of one document type matched by the first selector group that matches
// anything. Later groups are fallbacks for alternate statement layouts
// (e.g. "Total Liabilities & Capital" vs separate liability and equity
// totals).
type Operand struct {
	DocumentType models.DocumentType `validate:"required"`
	Groups       [][]AccountSelector `validate:"required,min=1"`
	Label        string
}

// Rule is one declarative cross-document or intra-document check. The Kind
// tag decides which operand fields are read:
//
//	EqualityCheck:    Left == Right within tolerance
//	RollforwardCheck: Left + Mid == Right within tolerance
//	RatioThreshold:   Left / Right Op Threshold
type Rule struct {
	Code     string          `validate:"required"`
	Name     string          `validate:"required"`
	Kind     Kind            `validate:"required,oneof=equality_check ratio_threshold rollforward_check"`
	Severity models.Severity `validate:"required,oneof=critical high medium low"`

	Left  Operand
	Mid   *Operand
	Right Operand

	// MidNegated subtracts the mid operand instead of adding it, for
	// rollforwards stated as begin - paydown = end.
	MidNegated bool

	// Tolerances for equality/rollforward kinds. Soft breaches produce a
	// WARNING, hard breaches a FAIL. PercentTolerance, when set, replaces the
	// absolute pair.
	SoftTolerance    decimal.Decimal
	HardTolerance    decimal.Decimal
	PercentTolerance *decimal.Decimal

	// Threshold comparison for ratio kinds.
	Op        CompareOp
	Threshold *decimal.Decimal

	Explanation string `validate:"required"`
}

var validate = validator.New()

// Validate rejects structurally broken rules: missing tolerances on
// tolerance kinds, missing thresholds on ratio kinds, operand shapes that do
// not fit the kind. Called once at library load so bad configuration fails
// at startup, never mid-evaluation.
func (r Rule) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &ToleranceConfigurationError{RuleCode: r.Code, Reason: err.Error()}
	}
	if err := validate.Struct(r.Left); err != nil {
		return &ToleranceConfigurationError{RuleCode: r.Code, Reason: "left operand: " + err.Error()}
	}
	if err := validate.Struct(r.Right); err != nil {
		return &ToleranceConfigurationError{RuleCode: r.Code, Reason: "right operand: " + err.Error()}
	}

	switch r.Kind {
	case EqualityCheck:
		if err := r.validateTolerances(); err != nil {
			return err
		}
	case RollforwardCheck:
		if r.Mid == nil {
			return &ToleranceConfigurationError{RuleCode: r.Code, Reason: "rollforward rule needs a mid operand"}
		}
		if err := validate.Struct(*r.Mid); err != nil {
			return &ToleranceConfigurationError{RuleCode: r.Code, Reason: "mid operand: " + err.Error()}
		}
		if err := r.validateTolerances(); err != nil {
			return err
		}
	case RatioThreshold:
		if r.Threshold == nil {
			return &ToleranceConfigurationError{RuleCode: r.Code, Reason: "ratio rule needs a threshold"}
		}
		if r.Op != OpGTE && r.Op != OpLTE {
			return &ToleranceConfigurationError{RuleCode: r.Code, Reason: fmt.Sprintf("invalid compare op %q", r.Op)}
		}
	}
	return nil
}

func (r Rule) validateTolerances() error {
	if r.PercentTolerance != nil {
		if r.PercentTolerance.IsNegative() {
			return &ToleranceConfigurationError{RuleCode: r.Code, Reason: "percent tolerance must not be negative"}
		}
		return nil
	}
	if r.HardTolerance.IsZero() && r.SoftTolerance.IsZero() {
		return &ToleranceConfigurationError{RuleCode: r.Code, Reason: "tolerance rule declares neither absolute nor percent tolerance"}
	}
	if r.HardTolerance.LessThan(r.SoftTolerance) {
		return &ToleranceConfigurationError{RuleCode: r.Code, Reason: "hard tolerance below soft tolerance"}
	}
	return nil
}

// RequiredDocumentTypes lists the document types the rule reads.
func (r Rule) RequiredDocumentTypes() []models.DocumentType {
	seen := make(map[models.DocumentType]bool)
	var out []models.DocumentType
	add := func(dt models.DocumentType) {
		if dt != "" && !seen[dt] {
			seen[dt] = true
			out = append(out, dt)
		}
	}
	add(r.Left.DocumentType)
	if r.Mid != nil {
		add(r.Mid.DocumentType)
	}
	add(r.Right.DocumentType)
	return out
}

// ToleranceConfigurationError reports a broken rule definition. Fatal at
// library load time.
type ToleranceConfigurationError struct {
	RuleCode string
	Reason   string
}

func (e *ToleranceConfigurationError) Error() string {
	return fmt.Sprintf("rule %s: %s", e.RuleCode, e.Reason)
}
