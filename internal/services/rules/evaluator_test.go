package rules

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"document-reconciliation-backend/internal/models"
)

func li(doc models.DocumentType, name, amount string) models.LineItem {
	return models.LineItem{
		DocumentType: doc,
		AccountName:  name,
		Amount:       decimal.RequireFromString(amount),
	}
}

func ruleByCode(t *testing.T, code string) Rule {
	t.Helper()
	for _, r := range Library() {
		if r.Code == code {
			return r
		}
	}
	t.Fatalf("rule %s not in library", code)
	return Rule{}
}

func evalOne(t *testing.T, code string, items []models.LineItem) Result {
	t.Helper()
	results := NewEvaluator([]Rule{ruleByCode(t, code)}).Evaluate(items)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	return results[0]
}

func TestAccountingEquationPass(t *testing.T) {
	res := evalOne(t, "BS-1", []models.LineItem{
		li(models.DocBalanceSheet, "Total Assets", "100.00"),
		li(models.DocBalanceSheet, "Total Liabilities", "60.00"),
		li(models.DocBalanceSheet, "Total Equity", "40.00"),
	})
	if res.Outcome != OutcomePass {
		t.Fatalf("outcome = %s, want pass: %s", res.Outcome, res.Description)
	}
	if !res.Difference.IsZero() {
		t.Errorf("difference = %s, want 0", res.Difference)
	}
}

func TestAccountingEquationFailReportsDifference(t *testing.T) {
	res := evalOne(t, "BS-1", []models.LineItem{
		li(models.DocBalanceSheet, "Total Assets", "100.00"),
		li(models.DocBalanceSheet, "Total Liabilities", "60.00"),
		li(models.DocBalanceSheet, "Total Equity", "39.90"),
	})
	if res.Outcome != OutcomeFail {
		t.Fatalf("outcome = %s, want fail: %s", res.Outcome, res.Description)
	}
	if !res.Difference.Equal(decimal.RequireFromString("0.10")) {
		t.Errorf("difference = %s, want 0.10", res.Difference)
	}
	if !res.Actual.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("actual = %s, want 100.00", res.Actual)
	}
}

func TestAccountingEquationCombinedTotalLayout(t *testing.T) {
	// Statements that carry a single combined total instead of separate
	// liability and equity totals resolve through the first selector group.
	res := evalOne(t, "BS-1", []models.LineItem{
		li(models.DocBalanceSheet, "Total Assets", "23976748.54"),
		li(models.DocBalanceSheet, "Total Liabilities and Capital", "23976748.54"),
	})
	if res.Outcome != OutcomePass {
		t.Fatalf("outcome = %s, want pass: %s", res.Outcome, res.Description)
	}
	if !res.Difference.IsZero() {
		t.Errorf("difference = %s, want 0", res.Difference)
	}
}

func TestCashTieWarningBetweenTolerances(t *testing.T) {
	res := evalOne(t, "BS-3", []models.LineItem{
		li(models.DocBalanceSheet, "Cash - Operating", "1005.00"),
		li(models.DocCashFlow, "Ending Cash Balance", "1000.00"),
	})
	if res.Outcome != OutcomeWarning {
		t.Fatalf("outcome = %s, want warning: %s", res.Outcome, res.Description)
	}
	if !res.Difference.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("difference = %s, want 5.00", res.Difference)
	}
	if !res.DifferencePercent.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("difference percent = %s, want 0.5", res.DifferencePercent)
	}
}

func TestCashRollforward(t *testing.T) {
	pass := evalOne(t, "CF-1", []models.LineItem{
		li(models.DocCashFlow, "Beginning Cash", "50.00"),
		li(models.DocCashFlow, "Net Change in Cash", "25.00"),
		li(models.DocCashFlow, "Ending Cash", "75.00"),
	})
	if pass.Outcome != OutcomePass {
		t.Errorf("outcome = %s, want pass: %s", pass.Outcome, pass.Description)
	}

	fail := evalOne(t, "CF-1", []models.LineItem{
		li(models.DocCashFlow, "Beginning Cash", "50.00"),
		li(models.DocCashFlow, "Net Change in Cash", "25.00"),
		li(models.DocCashFlow, "Ending Cash", "80.00"),
	})
	if fail.Outcome != OutcomeFail {
		t.Errorf("outcome = %s, want fail: %s", fail.Outcome, fail.Description)
	}
	if !fail.Difference.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("difference = %s, want 5.00", fail.Difference)
	}
}

func TestPrincipalRollforwardNegatesPaydown(t *testing.T) {
	res := evalOne(t, "MS-3", []models.LineItem{
		li(models.DocMortgageStatement, "Beginning Principal", "1000000.00"),
		li(models.DocMortgageStatement, "Principal Paid", "12000.00"),
		li(models.DocMortgageStatement, "Ending Principal", "988000.00"),
	})
	if res.Outcome != OutcomePass {
		t.Fatalf("outcome = %s, want pass: %s", res.Outcome, res.Description)
	}
}

func TestDebtServiceCoverageRatio(t *testing.T) {
	items := func(noi string) []models.LineItem {
		return []models.LineItem{
			li(models.DocIncomeStatement, "Net Operating Income", noi),
			li(models.DocMortgageStatement, "Annual Debt Service", "100000.00"),
		}
	}

	pass := evalOne(t, "MS-1", items("120000.00"))
	if pass.Outcome != OutcomePass {
		t.Errorf("DSCR 1.20 outcome = %s, want pass: %s", pass.Outcome, pass.Description)
	}
	if !pass.Actual.Equal(decimal.RequireFromString("1.2")) {
		t.Errorf("ratio = %s, want 1.2", pass.Actual)
	}

	fail := evalOne(t, "MS-1", items("100000.00"))
	if fail.Outcome != OutcomeFail {
		t.Errorf("DSCR 1.00 outcome = %s, want fail: %s", fail.Outcome, fail.Description)
	}
}

func TestRatioZeroDenominatorNotApplicable(t *testing.T) {
	res := evalOne(t, "MS-1", []models.LineItem{
		li(models.DocIncomeStatement, "Net Operating Income", "120000.00"),
		li(models.DocMortgageStatement, "Annual Debt Service", "0.00"),
	})
	if res.Outcome != OutcomeNotApplicable {
		t.Fatalf("outcome = %s, want not_applicable: %s", res.Outcome, res.Description)
	}
}

func TestPercentToleranceRentTie(t *testing.T) {
	items := func(rent string) []models.LineItem {
		return []models.LineItem{
			li(models.DocRentRoll, "Total Scheduled Rent", rent),
			li(models.DocIncomeStatement, "Rental Income", "97000.00"),
		}
	}

	// 3.1% off, inside the 5% band.
	pass := evalOne(t, "RR-1", items("100000.00"))
	if pass.Outcome != OutcomePass {
		t.Errorf("outcome = %s, want pass: %s", pass.Outcome, pass.Description)
	}

	// 13.4% off.
	fail := evalOne(t, "RR-1", items("110000.00"))
	if fail.Outcome != OutcomeFail {
		t.Errorf("outcome = %s, want fail: %s", fail.Outcome, fail.Description)
	}
}

func TestMissingDocumentIsNotApplicable(t *testing.T) {
	res := evalOne(t, "BS-3", []models.LineItem{
		li(models.DocBalanceSheet, "Cash - Operating", "1000.00"),
	})
	if res.Outcome != OutcomeNotApplicable {
		t.Fatalf("outcome = %s, want not_applicable: %s", res.Outcome, res.Description)
	}
	if !strings.Contains(res.Description, string(models.DocCashFlow)) {
		t.Errorf("description should name the missing document type: %s", res.Description)
	}
}

func TestMissingAccountIsNotApplicable(t *testing.T) {
	res := evalOne(t, "BS-1", []models.LineItem{
		li(models.DocBalanceSheet, "Cash - Operating", "1000.00"),
	})
	if res.Outcome != OutcomeNotApplicable {
		t.Fatalf("outcome = %s, want not_applicable: %s", res.Outcome, res.Description)
	}
	if !strings.Contains(res.Description, "Total Assets") {
		t.Errorf("description should name the missing operand: %s", res.Description)
	}
}

func TestEvaluateIsDeterministicAndOrdered(t *testing.T) {
	library, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	ev := NewEvaluator(library)

	items := []models.LineItem{
		li(models.DocBalanceSheet, "Total Assets", "500000.00"),
		li(models.DocBalanceSheet, "Total Liabilities", "300000.00"),
		li(models.DocBalanceSheet, "Total Equity", "200000.00"),
		li(models.DocCashFlow, "Beginning Cash", "10000.00"),
		li(models.DocCashFlow, "Net Change in Cash", "5000.00"),
		li(models.DocCashFlow, "Ending Cash", "15000.00"),
		li(models.DocIncomeStatement, "Net Operating Income", "80000.00"),
	}

	first := ev.Evaluate(items)
	second := ev.Evaluate(items)
	if !reflect.DeepEqual(first, second) {
		t.Error("evaluation is not deterministic for identical inputs")
	}
	if len(first) != len(library) {
		t.Fatalf("got %d results, want one per rule (%d)", len(first), len(library))
	}
	for i, res := range first {
		if res.Rule.Code != library[i].Code {
			t.Errorf("result %d is %s, want library order %s", i, res.Rule.Code, library[i].Code)
		}
	}
}
