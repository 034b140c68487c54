package handler

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"document-reconciliation-backend/internal/config"
	"document-reconciliation-backend/internal/models"
	"document-reconciliation-backend/internal/repository"
	"document-reconciliation-backend/internal/services/learning"
	service "document-reconciliation-backend/internal/services/reconciliation"
	"document-reconciliation-backend/internal/services/reporting"
)

type ReconciliationHandler struct {
	service   *service.Service
	lineItems *repository.LineItemRepository
}

func NewReconciliationHandler(s *service.Service, lineItems *repository.LineItemRepository) *ReconciliationHandler {
	return &ReconciliationHandler{service: s, lineItems: lineItems}
}

// Run executes a reconciliation for one (property, period).
func (h *ReconciliationHandler) Run(c *gin.Context) {
	propertyID, periodID, ok := scopeParams(c)
	if !ok {
		return
	}

	result, err := h.service.Run(propertyID, periodID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRunInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrRowBudgetExceeded):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSession returns a session with its matches and discrepancies.
func (h *ReconciliationHandler) GetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	result, err := h.service.GetSessionDetail(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportSession streams the session workbook as an xlsx download.
func (h *ReconciliationHandler) ExportSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	result, err := h.service.GetSessionDetail(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	buf, err := reporting.SessionWorkbook(result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+reporting.Filename(result))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ApproveMatch moves a pending match to approved.
func (h *ReconciliationHandler) ApproveMatch(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	var payload struct {
		Notes string `json:"notes"`
	}
	_ = c.BindJSON(&payload)

	match, err := h.service.ApproveMatch(matchID, payload.Notes)
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match approved", "match": match})
}

func (h *ReconciliationHandler) RejectMatch(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	var payload struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rejection reason is required"})
		return
	}

	match, err := h.service.RejectMatch(matchID, payload.Reason)
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match rejected", "match": match})
}

func (h *ReconciliationHandler) RemapMatch(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	var payload struct {
		NewTargetAccountCode string `json:"new_target_account_code" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new_target_account_code is required"})
		return
	}

	match, err := h.service.RemapMatch(matchID, payload.NewTargetAccountCode)
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match remapped", "match": match})
}

func (h *ReconciliationHandler) BulkApproveMatches(c *gin.Context) {
	var payload struct {
		MatchIDs []string `json:"match_ids" binding:"required,min=1"`
		Notes    string   `json:"notes"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "match_ids is required"})
		return
	}

	ids := make([]uuid.UUID, 0, len(payload.MatchIDs))
	for _, raw := range payload.MatchIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID " + raw})
			return
		}
		ids = append(ids, id)
	}

	results := h.service.BulkApproveMatches(ids, payload.Notes)
	approved := 0
	for _, r := range results {
		if r.OK {
			approved++
		}
	}
	c.JSON(http.StatusOK, gin.H{"approved": approved, "results": results})
}

func (h *ReconciliationHandler) ResolveDiscrepancy(c *gin.Context) {
	discrepancyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discrepancy ID"})
		return
	}

	var payload struct {
		Notes string `json:"notes"`
	}
	_ = c.BindJSON(&payload)

	d, err := h.service.ResolveDiscrepancy(discrepancyID, payload.Notes)
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "discrepancy resolved", "discrepancy": d})
}

// UploadLineItems ingests a CSV of extracted line items. Expected columns:
// property_id, period_id, document_type, account_code, account_name, amount
// with optional upload_id and page.
func (h *ReconciliationHandler) UploadLineItems(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read CSV header"})
		return
	}

	var items []models.LineItem
	rowNum := 1
	skipped := 0
	for {
		record, err := reader.Read()
		rowNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if len(record) < 6 {
			skipped++
			continue
		}

		item, ok := parseLineItemRecord(record)
		if !ok {
			skipped++
			continue
		}
		items = append(items, item)
	}

	if err := h.lineItems.CreateBatch(items); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	config.GetLogger().WithFields(logrus.Fields{
		"file":     header.Filename,
		"inserted": len(items),
		"skipped":  skipped,
	}).Info("line item upload completed")

	c.JSON(http.StatusOK, gin.H{
		"file":     header.Filename,
		"inserted": len(items),
		"skipped":  skipped,
	})
}

func parseLineItemRecord(record []string) (models.LineItem, bool) {
	propertyID, err := uuid.Parse(strings.TrimSpace(record[0]))
	if err != nil {
		return models.LineItem{}, false
	}
	periodID := strings.TrimSpace(record[1])
	docType, err := models.ParseDocumentType(strings.TrimSpace(record[2]))
	if err != nil {
		return models.LineItem{}, false
	}
	accountCode := strings.TrimSpace(record[3])
	accountName := strings.TrimSpace(record[4])
	if periodID == "" || accountName == "" {
		return models.LineItem{}, false
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(record[5]), ",", ""))
	if err != nil {
		return models.LineItem{}, false
	}

	item := models.LineItem{
		ID:           uuid.New(),
		PropertyID:   propertyID,
		PeriodID:     periodID,
		DocumentType: docType,
		AccountCode:  accountCode,
		AccountName:  accountName,
		Amount:       amount,
	}
	if len(record) > 6 && record[6] != "" {
		if uploadID, err := uuid.Parse(strings.TrimSpace(record[6])); err == nil {
			item.UploadID = &uploadID
		}
	}
	if len(record) > 7 && record[7] != "" {
		if page, err := strconv.Atoi(strings.TrimSpace(record[7])); err == nil {
			item.Page = &page
		}
	}
	return item, true
}

func scopeParams(c *gin.Context) (uuid.UUID, string, bool) {
	propertyID, err := uuid.Parse(c.Param("propertyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
		return uuid.Nil, "", false
	}
	periodID := c.Param("periodId")
	if periodID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period ID is required"})
		return uuid.Nil, "", false
	}
	return propertyID, periodID, true
}

func respondTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConcurrencyConflict), errors.Is(err, learning.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrReasonRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
