package rules

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"document-reconciliation-backend/internal/models"
)

// Outcome of one rule evaluation.
type Outcome string

const (
	OutcomePass          Outcome = "pass"
	OutcomeWarning       Outcome = "warning"
	OutcomeFail          Outcome = "fail"
	OutcomeNotApplicable Outcome = "not_applicable"
)

// Result carries everything a ForensicDiscrepancy row needs.
type Result struct {
	Rule              Rule
	Outcome           Outcome
	Expected          decimal.Decimal
	Actual            decimal.Decimal
	Difference        decimal.Decimal
	DifferencePercent decimal.Decimal
	Description       string
}

// Evaluator runs the rule library against an immutable line-item snapshot.
// Evaluation is pure: same items, same results, in library order.
type Evaluator struct {
	library []Rule
}

func NewEvaluator(library []Rule) *Evaluator {
	return &Evaluator{library: library}
}

// Evaluate runs every rule whose inputs are present. Rules with missing
// inputs become not_applicable results, never failures. A rule that panics
// mid-computation becomes a FAIL result with the panic message; the
// remaining rules still run.
func (e *Evaluator) Evaluate(items []models.LineItem) []Result {
	byDoc := make(map[models.DocumentType][]models.LineItem)
	for _, item := range items {
		byDoc[item.DocumentType] = append(byDoc[item.DocumentType], item)
	}

	results := make([]Result, 0, len(e.library))
	for _, rule := range e.library {
		results = append(results, e.evaluateOne(rule, byDoc))
	}
	return results
}

func (e *Evaluator) evaluateOne(rule Rule, byDoc map[models.DocumentType][]models.LineItem) (res Result) {
	res = Result{Rule: rule}
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFail
			res.Description = fmt.Sprintf("%s: evaluation error: %v", rule.Name, r)
		}
	}()

	for _, dt := range rule.RequiredDocumentTypes() {
		if len(byDoc[dt]) == 0 {
			res.Outcome = OutcomeNotApplicable
			res.Description = fmt.Sprintf("%s: no %s line items for this period", rule.Name, dt)
			return res
		}
	}

	switch rule.Kind {
	case EqualityCheck:
		return e.evaluateEquality(rule, byDoc)
	case RollforwardCheck:
		return e.evaluateRollforward(rule, byDoc)
	case RatioThreshold:
		return e.evaluateRatio(rule, byDoc)
	}
	res.Outcome = OutcomeFail
	res.Description = fmt.Sprintf("%s: unknown rule kind %q", rule.Name, rule.Kind)
	return res
}

func (e *Evaluator) evaluateEquality(rule Rule, byDoc map[models.DocumentType][]models.LineItem) Result {
	left, leftOK := resolveOperand(rule.Left, byDoc)
	right, rightOK := resolveOperand(rule.Right, byDoc)
	if !leftOK || !rightOK {
		return notApplicable(rule, rule.Left, leftOK, rule.Right, rightOK)
	}
	return compareWithTolerance(rule, right, left)
}

func (e *Evaluator) evaluateRollforward(rule Rule, byDoc map[models.DocumentType][]models.LineItem) Result {
	left, leftOK := resolveOperand(rule.Left, byDoc)
	mid, midOK := resolveOperand(*rule.Mid, byDoc)
	right, rightOK := resolveOperand(rule.Right, byDoc)
	if !leftOK || !midOK || !rightOK {
		res := notApplicable(rule, rule.Left, leftOK, rule.Right, rightOK)
		if !midOK {
			res.Description = fmt.Sprintf("%s: %s not found in %s", rule.Name, rule.Mid.Label, rule.Mid.DocumentType)
		}
		return res
	}
	expected := left.Add(mid)
	if rule.MidNegated {
		expected = left.Sub(mid)
	}
	return compareWithTolerance(rule, expected, right)
}

func (e *Evaluator) evaluateRatio(rule Rule, byDoc map[models.DocumentType][]models.LineItem) Result {
	num, numOK := resolveOperand(rule.Left, byDoc)
	den, denOK := resolveOperand(rule.Right, byDoc)
	if !numOK || !denOK {
		return notApplicable(rule, rule.Left, numOK, rule.Right, denOK)
	}
	if den.IsZero() {
		return Result{
			Rule:        rule,
			Outcome:     OutcomeNotApplicable,
			Description: fmt.Sprintf("%s: %s is zero, ratio undefined", rule.Name, rule.Right.Label),
		}
	}

	ratio := num.DivRound(den.Abs(), 4)
	res := Result{
		Rule:     rule,
		Expected: *rule.Threshold,
		Actual:   ratio,
	}
	res.Difference = ratio.Sub(*rule.Threshold).Abs()

	var pass bool
	switch rule.Op {
	case OpGTE:
		pass = ratio.GreaterThanOrEqual(*rule.Threshold)
	case OpLTE:
		pass = ratio.LessThanOrEqual(*rule.Threshold)
	}

	if pass {
		res.Outcome = OutcomePass
		res.Description = fmt.Sprintf("%s: %s / %s = %s meets threshold %s",
			rule.Name, rule.Left.Label, rule.Right.Label, ratio, rule.Threshold)
	} else {
		res.Outcome = OutcomeFail
		res.Description = fmt.Sprintf("%s: %s / %s = %s violates threshold %s %s. %s",
			rule.Name, rule.Left.Label, rule.Right.Label, ratio, rule.Op, rule.Threshold, rule.Explanation)
	}
	return res
}

func compareWithTolerance(rule Rule, expected, actual decimal.Decimal) Result {
	res := Result{
		Rule:       rule,
		Expected:   expected,
		Actual:     actual,
		Difference: actual.Sub(expected).Abs(),
	}
	if !expected.IsZero() {
		res.DifferencePercent = res.Difference.DivRound(expected.Abs(), 4).Mul(decimal.NewFromInt(100))
	}

	soft := rule.SoftTolerance
	hard := rule.HardTolerance
	if rule.PercentTolerance != nil {
		allowed := expected.Abs().Mul(*rule.PercentTolerance).DivRound(decimal.NewFromInt(100), 2)
		soft = allowed
		hard = allowed
	}

	switch {
	case res.Difference.LessThanOrEqual(soft):
		res.Outcome = OutcomePass
		res.Description = fmt.Sprintf("%s: expected %s, actual %s, difference %s within tolerance",
			rule.Name, expected, actual, res.Difference)
	case res.Difference.LessThanOrEqual(hard):
		res.Outcome = OutcomeWarning
		res.Description = fmt.Sprintf("%s: expected %s, actual %s, difference %s exceeds soft tolerance %s",
			rule.Name, expected, actual, res.Difference, soft)
	default:
		res.Outcome = OutcomeFail
		res.Description = fmt.Sprintf("%s: expected %s, actual %s, difference %s exceeds tolerance %s. %s",
			rule.Name, expected, actual, res.Difference, hard, rule.Explanation)
	}
	return res
}

func notApplicable(rule Rule, left Operand, leftOK bool, right Operand, rightOK bool) Result {
	missing := left.Label
	doc := left.DocumentType
	if leftOK && !rightOK {
		missing = right.Label
		doc = right.DocumentType
	}
	return Result{
		Rule:        rule,
		Outcome:     OutcomeNotApplicable,
		Description: fmt.Sprintf("%s: %s not found in %s", rule.Name, missing, doc),
	}
}

// resolveOperand sums the line items matched by the operand's first selector
// group that matches anything. Returns ok=false when no group matches.
func resolveOperand(op Operand, byDoc map[models.DocumentType][]models.LineItem) (decimal.Decimal, bool) {
	items := byDoc[op.DocumentType]
	for _, group := range op.Groups {
		sum := decimal.Zero
		matched := false
		for _, item := range items {
			if matchesAny(item, group) {
				sum = sum.Add(item.Amount)
				matched = true
			}
		}
		if matched {
			return sum, true
		}
	}
	return decimal.Zero, false
}

func matchesAny(item models.LineItem, selectors []AccountSelector) bool {
	for _, sel := range selectors {
		if matchesSelector(item, sel) {
			return true
		}
	}
	return false
}

func matchesSelector(item models.LineItem, sel AccountSelector) bool {
	if sel.Code != "" && !strings.EqualFold(strings.TrimSpace(item.AccountCode), sel.Code) {
		return false
	}
	if len(sel.NameAnyOf) > 0 {
		name := strings.ToLower(item.AccountName)
		hit := false
		for _, want := range sel.NameAnyOf {
			if strings.Contains(name, strings.ToLower(want)) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if sel.Category != "" && models.InferCategory(item.AccountName) != sel.Category {
		return false
	}
	return sel.Code != "" || len(sel.NameAnyOf) > 0 || sel.Category != ""
}

// ResolveOperand exposes operand resolution for diagnostics, which needs to
// know whether a rule's inputs would be found without running the rule.
func ResolveOperand(op Operand, items []models.LineItem) (decimal.Decimal, bool) {
	byDoc := map[models.DocumentType][]models.LineItem{}
	for _, item := range items {
		if item.DocumentType == op.DocumentType {
			byDoc[op.DocumentType] = append(byDoc[op.DocumentType], item)
		}
	}
	return resolveOperand(op, byDoc)
}

// Operands lists a rule's operands in evaluation order.
func (r Rule) Operands() []Operand {
	ops := []Operand{r.Left}
	if r.Mid != nil {
		ops = append(ops, *r.Mid)
	}
	return append(ops, r.Right)
}
