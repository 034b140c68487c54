package models

import "strings"

// Category is a high-level account grouping used to narrow fuzzy match
// candidate pools. Inference is keyword-based on the account name because
// extracted documents carry no chart-of-accounts metadata.
type Category string

const (
	CategoryCurrentAssets Category = "current_assets"
	CategoryFixedAssets   Category = "fixed_assets"
	CategoryLiabilities   Category = "liabilities"
	CategoryEquity        Category = "equity"
	CategoryIncome        Category = "income"
	CategoryExpenses      Category = "expenses"
	CategoryDebtService   Category = "debt_service"
	CategoryUnknown       Category = "unknown"
)

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryDebtService, []string{"principal", "debt service", "interest payable", "mortgage interest"}},
	{CategoryCurrentAssets, []string{"cash", "receivable", "prepaid", "escrow", "deposit held", "a/r"}},
	{CategoryFixedAssets, []string{"land", "building", "improvement", "equipment", "furniture", "accumulated depreciation", "fixed asset"}},
	{CategoryLiabilities, []string{"payable", "accrued", "mortgage", "loan", "note", "security deposit", "liabilit"}},
	{CategoryEquity, []string{"equity", "capital", "retained", "distribution", "contribution", "partner"}},
	{CategoryIncome, []string{"rent", "income", "revenue", "recovery", "reimbursement", "fee income", "laundry", "parking"}},
	{CategoryExpenses, []string{"expense", "insurance", "utilities", "maintenance", "repair", "tax", "management", "payroll", "landscap", "depreciation", "amortization"}},
}

// InferCategory maps an account name onto a Category. First keyword hit wins;
// the keyword table is ordered so the more specific groups shadow the broad ones.
func InferCategory(accountName string) Category {
	name := strings.ToLower(accountName)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(name, kw) {
				return entry.category
			}
		}
	}
	return CategoryUnknown
}
