package discovery

import (
	"sort"
	"testing"

	"document-reconciliation-backend/internal/models"
)

func TestAggregateCountsAndOrders(t *testing.T) {
	items := []models.LineItem{
		{DocumentType: models.DocIncomeStatement, AccountCode: "4000", AccountName: "Rental Income"},
		{DocumentType: models.DocBalanceSheet, AccountCode: "1000", AccountName: "Cash - Operating"},
		{DocumentType: models.DocBalanceSheet, AccountCode: "1000", AccountName: "Cash - Operating"},
		{DocumentType: models.DocBalanceSheet, AccountCode: "1200", AccountName: "Accounts Receivable"},
	}

	rows := Aggregate(items)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	if !sort.SliceIsSorted(rows, func(i, j int) bool {
		if rows[i].DocumentType != rows[j].DocumentType {
			return rows[i].DocumentType < rows[j].DocumentType
		}
		return rows[i].AccountCode < rows[j].AccountCode
	}) {
		t.Error("rows are not in deterministic order")
	}

	if rows[0].AccountCode != "1000" || rows[0].OccurrenceCount != 2 {
		t.Errorf("first row = %s x%d, want 1000 x2", rows[0].AccountCode, rows[0].OccurrenceCount)
	}
	if rows[1].AccountCode != "1200" || rows[1].OccurrenceCount != 1 {
		t.Errorf("second row = %s x%d, want 1200 x1", rows[1].AccountCode, rows[1].OccurrenceCount)
	}
	if rows[2].DocumentType != models.DocIncomeStatement {
		t.Errorf("third row doc = %s, want %s", rows[2].DocumentType, models.DocIncomeStatement)
	}
}

func TestAggregateEmpty(t *testing.T) {
	if rows := Aggregate(nil); len(rows) != 0 {
		t.Errorf("got %d rows for empty input, want 0", len(rows))
	}
}
