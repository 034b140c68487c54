package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"document-reconciliation-backend/internal/models"
	"document-reconciliation-backend/internal/services/diagnostics"
	"document-reconciliation-backend/internal/services/discovery"
)

type DiagnosticsHandler struct {
	reporter   *diagnostics.Reporter
	discoverer *discovery.Discoverer
}

func NewDiagnosticsHandler(reporter *diagnostics.Reporter, discoverer *discovery.Discoverer) *DiagnosticsHandler {
	return &DiagnosticsHandler{reporter: reporter, discoverer: discoverer}
}

// Report returns the diagnostics payload for a (property, period).
func (h *DiagnosticsHandler) Report(c *gin.Context) {
	propertyID, periodID, ok := scopeParams(c)
	if !ok {
		return
	}

	report, err := h.reporter.Report(propertyID, periodID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// DiscoverAccounts refreshes and returns the account catalog for a scope,
// optionally filtered by ?document_type=.
func (h *DiagnosticsHandler) DiscoverAccounts(c *gin.Context) {
	propertyID, periodID, ok := scopeParams(c)
	if !ok {
		return
	}

	var docType *models.DocumentType
	if raw := c.Query("document_type"); raw != "" {
		dt, err := models.ParseDocumentType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		docType = &dt
	}

	accounts, err := h.discoverer.Discover(propertyID, periodID, docType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts, "count": len(accounts)})
}
