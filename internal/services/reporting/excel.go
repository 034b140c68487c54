package reporting

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"document-reconciliation-backend/internal/services/reconciliation"
)

// SessionWorkbook renders one reconciliation session as an xlsx with a
// Matches and a Discrepancies sheet for reviewer download.
func SessionWorkbook(result *reconciliation.SessionResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "Matches")
	matchHeaders := []string{
		"Source Document", "Source Code", "Source Name", "Source Amount",
		"Target Document", "Target Code", "Target Name", "Target Amount",
		"Match Type", "Algorithm", "Confidence", "Difference", "Tier", "Status",
	}
	for col, h := range matchHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue("Matches", cell, h)
	}
	for i, m := range result.Matches {
		row := i + 2
		values := []interface{}{
			string(m.SourceDocumentType), m.SourceAccountCode, m.SourceAccountName, m.SourceAmount.InexactFloat64(),
			string(m.TargetDocumentType), m.TargetAccountCode, m.TargetAccountName, m.TargetAmount.InexactFloat64(),
			string(m.MatchType), m.MatchAlgorithm, m.ConfidenceScore, m.AmountDifference.InexactFloat64(),
			string(m.ExceptionTier), m.Status,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue("Matches", cell, v)
		}
	}

	if _, err := f.NewSheet("Discrepancies"); err != nil {
		return nil, err
	}
	discHeaders := []string{
		"Rule", "Type", "Outcome", "Expected", "Actual", "Difference",
		"Severity", "Material", "Tier", "Status", "Description",
	}
	for col, h := range discHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue("Discrepancies", cell, h)
	}
	for i, d := range result.Discrepancies {
		row := i + 2
		values := []interface{}{
			d.RuleCode, d.DiscrepancyType, d.Outcome,
			d.ExpectedValue.InexactFloat64(), d.ActualValue.InexactFloat64(), d.Difference.InexactFloat64(),
			string(d.Severity), d.IsMaterial, string(d.ExceptionTier), d.Status, d.Description,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue("Discrepancies", cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// Filename builds the download name for a session export.
func Filename(result *reconciliation.SessionResult) string {
	return fmt.Sprintf("reconciliation_%s_%s.xlsx", result.Session.PeriodID, result.Session.ID)
}
