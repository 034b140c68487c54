package models

import "fmt"

// DocumentType is the closed set of financial document types the engine
// reconciles. Anything else is rejected at the boundary.
type DocumentType string

const (
	DocBalanceSheet      DocumentType = "balance_sheet"
	DocIncomeStatement   DocumentType = "income_statement"
	DocCashFlow          DocumentType = "cash_flow"
	DocRentRoll          DocumentType = "rent_roll"
	DocMortgageStatement DocumentType = "mortgage_statement"
)

var AllDocumentTypes = []DocumentType{
	DocBalanceSheet,
	DocIncomeStatement,
	DocCashFlow,
	DocRentRoll,
	DocMortgageStatement,
}

func ParseDocumentType(s string) (DocumentType, error) {
	dt := DocumentType(s)
	if !dt.Valid() {
		return "", fmt.Errorf("unknown document type %q", s)
	}
	return dt, nil
}

func (d DocumentType) Valid() bool {
	switch d {
	case DocBalanceSheet, DocIncomeStatement, DocCashFlow, DocRentRoll, DocMortgageStatement:
		return true
	}
	return false
}

func (d DocumentType) String() string {
	return string(d)
}
