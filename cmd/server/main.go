package main

import (
	"log"
	"time"

	"document-reconciliation-backend/internal/config"
	"document-reconciliation-backend/internal/models"
	"document-reconciliation-backend/internal/routes"
	"document-reconciliation-backend/internal/services/rules"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm/clause"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	// A misconfigured rule library is fatal at startup, never at evaluation.
	library, err := rules.Load()
	if err != nil {
		log.Fatalf("rule library configuration error: %v", err)
	}

	db := config.InitDB()

	db.AutoMigrate(
		&models.LineItem{},
		&models.DiscoveredAccountCode{},
		&models.LearnedMatchPattern{},
		&models.AccountCodeSynonym{},
		&models.MatchFeedbackEvent{},
		&models.ReconciliationSession{},
		&models.ForensicMatch{},
		&models.ForensicDiscrepancy{},
		&models.MaterialityThreshold{},
	)

	// Seed materiality defaults; existing rows keep operator overrides.
	thresholds := models.DefaultMaterialityThresholds()
	db.Clauses(clause.OnConflict{DoNothing: true}).Create(&thresholds)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, library)

	r.Run(":8080")
}
