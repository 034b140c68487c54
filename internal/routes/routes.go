package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "document-reconciliation-backend/internal/handlers"
	"document-reconciliation-backend/internal/repository"
	"document-reconciliation-backend/internal/services/diagnostics"
	"document-reconciliation-backend/internal/services/discovery"
	"document-reconciliation-backend/internal/services/learning"
	"document-reconciliation-backend/internal/services/matching"
	service "document-reconciliation-backend/internal/services/reconciliation"
	"document-reconciliation-backend/internal/services/rules"
)

// RegisterRoutes wires repositories, services, and handlers. The rule
// library is validated by the caller before this runs.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, library []rules.Rule) {
	lineItemRepo := repository.NewLineItemRepository(db)
	discoveryRepo := repository.NewDiscoveryRepository(db)
	patternRepo := repository.NewPatternRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	discoverer := discovery.NewDiscoverer(lineItemRepo, discoveryRepo)
	learner := learning.NewLearner(db, learning.DefaultConfig())
	matcher := matching.NewMatcher(matching.ConfigFromEnv())
	evaluator := rules.NewEvaluator(library)

	reconService := service.NewService(
		lineItemRepo,
		sessionRepo,
		patternRepo,
		discoverer,
		learner,
		matcher,
		evaluator,
	)
	reporter := diagnostics.NewReporter(lineItemRepo, discoveryRepo, patternRepo, library)

	reconHandler := handler.NewReconciliationHandler(reconService, lineItemRepo)
	diagHandler := handler.NewDiagnosticsHandler(reporter, discoverer)
	patternHandler := handler.NewPatternHandler(patternRepo, learner)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Line item ingest
	api.POST("/line-items/upload", reconHandler.UploadLineItems)

	// Account discovery and diagnostics
	api.POST("/discovery/:propertyId/:periodId", diagHandler.DiscoverAccounts)
	api.GET("/diagnostics/:propertyId/:periodId", diagHandler.Report)

	// Reconciliation sessions
	recon := api.Group("/reconciliation")
	recon.POST("/:propertyId/:periodId/run", reconHandler.Run)
	recon.GET("/sessions/:sessionId", reconHandler.GetSession)
	recon.GET("/sessions/:sessionId/export", reconHandler.ExportSession)

	// Match and discrepancy workflow
	matches := api.Group("/matches")
	matches.POST("/:id/approve", reconHandler.ApproveMatch)
	matches.POST("/:id/reject", reconHandler.RejectMatch)
	matches.POST("/:id/remap", reconHandler.RemapMatch)
	matches.POST("/bulk-approve", reconHandler.BulkApproveMatches)

	api.POST("/discrepancies/:id/resolve", reconHandler.ResolveDiscrepancy)

	// Learned patterns
	patterns := api.Group("/patterns")
	{
		patterns.GET("", patternHandler.List)
		patterns.GET("/suggestions", patternHandler.Suggestions)
	}
}
