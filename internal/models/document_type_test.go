package models

import "testing"

func TestParseDocumentType(t *testing.T) {
	for _, dt := range AllDocumentTypes {
		got, err := ParseDocumentType(string(dt))
		if err != nil {
			t.Errorf("ParseDocumentType(%s) error: %v", dt, err)
		}
		if got != dt {
			t.Errorf("ParseDocumentType(%s) = %s", dt, got)
		}
	}

	for _, bad := range []string{"", "invoice", "Balance Sheet", "balance-sheet"} {
		if _, err := ParseDocumentType(bad); err == nil {
			t.Errorf("ParseDocumentType(%q) accepted, want error", bad)
		}
	}
}

func TestInferCategory(t *testing.T) {
	cases := []struct {
		name     string
		expected Category
	}{
		{"Cash - Operating", CategoryCurrentAssets},
		{"A/R Tenants", CategoryCurrentAssets},
		{"Accumulated Depreciation - Building", CategoryFixedAssets},
		{"Accounts Payable", CategoryLiabilities},
		{"Retained Earnings", CategoryEquity},
		{"Rental Income", CategoryIncome},
		{"Property Insurance", CategoryExpenses},
		// Debt service keywords shadow the broader liability and expense groups.
		{"Principal Paid", CategoryDebtService},
		{"Mortgage Interest Expense", CategoryDebtService},
		{"Total Assets", CategoryUnknown},
	}
	for _, tc := range cases {
		if got := InferCategory(tc.name); got != tc.expected {
			t.Errorf("InferCategory(%q) = %s, want %s", tc.name, got, tc.expected)
		}
	}
}
