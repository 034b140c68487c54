package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"document-reconciliation-backend/internal/models"
	"document-reconciliation-backend/internal/repository"
	"document-reconciliation-backend/internal/services/learning"
)

type PatternHandler struct {
	patterns *repository.PatternRepository
	learner  *learning.Learner
}

func NewPatternHandler(patterns *repository.PatternRepository, learner *learning.Learner) *PatternHandler {
	return &PatternHandler{patterns: patterns, learner: learner}
}

// List returns learned patterns filtered by ?source=&target=&min_success_rate=.
func (h *PatternHandler) List(c *gin.Context) {
	filter := repository.PatternFilter{MinSuccessRate: 70}

	if raw := c.Query("min_success_rate"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || rate < 0 || rate > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_success_rate must be between 0 and 100"})
			return
		}
		filter.MinSuccessRate = rate
	}
	if raw := c.Query("source"); raw != "" {
		dt, err := models.ParseDocumentType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.SourceDocumentType = &dt
	}
	if raw := c.Query("target"); raw != "" {
		dt, err := models.ParseDocumentType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.TargetDocumentType = &dt
	}

	patterns, err := h.patterns.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"patterns": patterns, "count": len(patterns)})
}

// Suggestions proposes candidate patterns from recurring unlearned matches,
// optionally scoped by ?property_id= and ?period_id=.
func (h *PatternHandler) Suggestions(c *gin.Context) {
	var propertyID *uuid.UUID
	if raw := c.Query("property_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
			return
		}
		propertyID = &id
	}
	var periodID *string
	if raw := c.Query("period_id"); raw != "" {
		periodID = &raw
	}

	suggestions, err := h.learner.SuggestRules(propertyID, periodID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "count": len(suggestions)})
}
