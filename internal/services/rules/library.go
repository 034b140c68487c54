package rules

import (
	"github.com/shopspring/decimal"

	"document-reconciliation-backend/internal/models"
)

func pct(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func threshold(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func names(anyOf ...string) []AccountSelector {
	return []AccountSelector{{NameAnyOf: anyOf}}
}

func category(c models.Category) []AccountSelector {
	return []AccountSelector{{Category: c}}
}

// Library returns the versioned rule set. Tolerances come from the rule
// definitions, not from code paths, so tightening a check is a data change.
func Library() []Rule {
	penny := decimal.RequireFromString("0.01")
	ten := decimal.NewFromInt(10)

	return []Rule{
		{
			Code:     "BS-1",
			Name:     "Accounting equation",
			Kind:     EqualityCheck,
			Severity: models.SeverityCritical,
			Left: Operand{
				DocumentType: models.DocBalanceSheet,
				Label:        "Total Assets",
				Groups:       [][]AccountSelector{names("total assets")},
			},
			Right: Operand{
				DocumentType: models.DocBalanceSheet,
				Label:        "Total Liabilities + Equity",
				Groups: [][]AccountSelector{
					names("total liabilities and capital", "total liabilities & capital", "total liabilities and equity"),
					names("total liabilities", "total equity", "total capital"),
				},
			},
			SoftTolerance: penny,
			HardTolerance: penny,
			Explanation:   "Total assets must equal total liabilities plus equity",
		},
		{
			Code:     "BS-2",
			Name:     "Current ratio floor",
			Kind:     RatioThreshold,
			Severity: models.SeverityMedium,
			Left: Operand{
				DocumentType: models.DocBalanceSheet,
				Label:        "Current Assets",
				Groups: [][]AccountSelector{
					names("total current assets"),
					category(models.CategoryCurrentAssets),
				},
			},
			Right: Operand{
				DocumentType: models.DocBalanceSheet,
				Label:        "Current Liabilities",
				Groups: [][]AccountSelector{
					names("total current liabilities"),
					names("accounts payable", "accrued"),
				},
			},
			Op:          OpGTE,
			Threshold:   threshold("1.0"),
			Explanation: "Current assets should cover current liabilities",
		},
		{
			Code:     "BS-3",
			Name:     "Cash agrees with cash flow ending balance",
			Kind:     EqualityCheck,
			Severity: models.SeverityHigh,
			Left: Operand{
				DocumentType: models.DocBalanceSheet,
				Label:        "Cash",
				Groups: [][]AccountSelector{
					names("total cash"),
					names("cash"),
				},
			},
			Right: Operand{
				DocumentType: models.DocCashFlow,
				Label:        "Ending Cash",
				Groups:       [][]AccountSelector{names("ending cash", "cash at end")},
			},
			SoftTolerance: penny,
			HardTolerance: ten,
			Explanation:   "Balance sheet cash must tie to the cash flow ending balance",
		},
		{
			Code:     "CF-1",
			Name:     "Cash rollforward",
			Kind:     RollforwardCheck,
			Severity: models.SeverityCritical,
			Left: Operand{
				DocumentType: models.DocCashFlow,
				Label:        "Beginning Cash",
				Groups:       [][]AccountSelector{names("beginning cash", "cash at beginning")},
			},
			Mid: &Operand{
				DocumentType: models.DocCashFlow,
				Label:        "Net Change in Cash",
				Groups:       [][]AccountSelector{names("net change in cash", "net increase", "net decrease")},
			},
			Right: Operand{
				DocumentType: models.DocCashFlow,
				Label:        "Ending Cash",
				Groups:       [][]AccountSelector{names("ending cash", "cash at end")},
			},
			SoftTolerance: penny,
			HardTolerance: penny,
			Explanation:   "Beginning cash plus net change must equal ending cash",
		},
		{
			Code:     "CF-2",
			Name:     "Net income ties to income statement",
			Kind:     EqualityCheck,
			Severity: models.SeverityHigh,
			Left: Operand{
				DocumentType: models.DocCashFlow,
				Label:        "Net Income (cash flow)",
				Groups:       [][]AccountSelector{names("net income", "net operating income")},
			},
			Right: Operand{
				DocumentType: models.DocIncomeStatement,
				Label:        "Net Income (income statement)",
				Groups:       [][]AccountSelector{names("net income", "net operating income")},
			},
			SoftTolerance: penny,
			HardTolerance: ten,
			Explanation:   "Net income on the cash flow must tie to the income statement",
		},
		{
			Code:     "IS-1",
			Name:     "NOI computation",
			Kind:     RollforwardCheck,
			Severity: models.SeverityHigh,
			Left: Operand{
				DocumentType: models.DocIncomeStatement,
				Label:        "Total Income",
				Groups:       [][]AccountSelector{names("total income", "total revenue")},
			},
			Mid: &Operand{
				DocumentType: models.DocIncomeStatement,
				Label:        "Total Expenses (negated)",
				Groups:       [][]AccountSelector{names("total expenses", "total operating expenses")},
			},
			Right: Operand{
				DocumentType: models.DocIncomeStatement,
				Label:        "Net Operating Income",
				Groups:       [][]AccountSelector{names("net operating income", "noi")},
			},
			SoftTolerance: penny,
			HardTolerance: penny,
			MidNegated:    true,
			Explanation:   "Total income minus total expenses must equal NOI",
		},
		{
			Code:     "RR-1",
			Name:     "Rent roll ties to rental income",
			Kind:     EqualityCheck,
			Severity: models.SeverityMedium,
			Left: Operand{
				DocumentType: models.DocRentRoll,
				Label:        "Scheduled Rent",
				Groups: [][]AccountSelector{
					names("total rent", "total scheduled rent", "gross rent"),
					category(models.CategoryIncome),
				},
			},
			Right: Operand{
				DocumentType: models.DocIncomeStatement,
				Label:        "Rental Income",
				Groups:       [][]AccountSelector{names("rental income", "rent income", "gross potential rent")},
			},
			PercentTolerance: pct("5"),
			Explanation:      "Rent roll scheduled rent should tie to income statement rental income",
		},
		{
			Code:     "MS-1",
			Name:     "Debt service coverage",
			Kind:     RatioThreshold,
			Severity: models.SeverityCritical,
			Left: Operand{
				DocumentType: models.DocIncomeStatement,
				Label:        "NOI",
				Groups:       [][]AccountSelector{names("net operating income", "noi")},
			},
			Right: Operand{
				DocumentType: models.DocMortgageStatement,
				Label:        "Annual Debt Service",
				Groups: [][]AccountSelector{
					names("annual debt service", "total debt service"),
					names("principal paid", "interest paid"),
				},
			},
			Op:          OpGTE,
			Threshold:   threshold("1.20"),
			Explanation: "NOI must cover annual debt service at 1.20x",
		},
		{
			Code:     "MS-2",
			Name:     "Loan-to-value ceiling",
			Kind:     RatioThreshold,
			Severity: models.SeverityHigh,
			Left: Operand{
				DocumentType: models.DocMortgageStatement,
				Label:        "Outstanding Principal",
				Groups:       [][]AccountSelector{names("outstanding principal", "principal balance", "loan balance")},
			},
			Right: Operand{
				DocumentType: models.DocBalanceSheet,
				Label:        "Property Value",
				Groups: [][]AccountSelector{
					names("property value", "total fixed assets"),
					category(models.CategoryFixedAssets),
				},
			},
			Op:          OpLTE,
			Threshold:   threshold("0.80"),
			Explanation: "Outstanding principal should not exceed 80% of property value",
		},
		{
			Code:     "MS-3",
			Name:     "Principal rollforward",
			Kind:     RollforwardCheck,
			Severity: models.SeverityHigh,
			Left: Operand{
				DocumentType: models.DocMortgageStatement,
				Label:        "Beginning Principal",
				Groups:       [][]AccountSelector{names("beginning principal", "prior principal balance")},
			},
			Mid: &Operand{
				DocumentType: models.DocMortgageStatement,
				Label:        "Principal Paid (negated)",
				Groups:       [][]AccountSelector{names("principal paid", "principal payment")},
			},
			Right: Operand{
				DocumentType: models.DocMortgageStatement,
				Label:        "Ending Principal",
				Groups:       [][]AccountSelector{names("ending principal", "outstanding principal", "principal balance")},
			},
			SoftTolerance: penny,
			HardTolerance: penny,
			MidNegated:    true,
			Explanation:   "Beginning principal minus principal paid must equal ending principal",
		},
		{
			Code:     "MS-4",
			Name:     "Mortgage interest ties to interest expense",
			Kind:     EqualityCheck,
			Severity: models.SeverityMedium,
			Left: Operand{
				DocumentType: models.DocMortgageStatement,
				Label:        "Interest Paid",
				Groups:       [][]AccountSelector{names("interest paid", "interest payment")},
			},
			Right: Operand{
				DocumentType: models.DocIncomeStatement,
				Label:        "Interest Expense",
				Groups:       [][]AccountSelector{names("interest expense", "mortgage interest")},
			},
			SoftTolerance: penny,
			HardTolerance: ten,
			Explanation:   "Mortgage interest paid must tie to income statement interest expense",
		},
	}
}

// Load validates the full library. Any configuration error is fatal to the
// caller, so a bad rule never reaches evaluation.
func Load() ([]Rule, error) {
	lib := Library()
	for _, r := range lib {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return lib, nil
}
