package main

import (
	"log"
	"time"

	"press-release-admin-backend/internal/config"
	"press-release-admin-backend/internal/models"
	"press-release-admin-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	db, err := cfg.OpenDB()
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	db.AutoMigrate(
		&models.Release{},
		&models.CategoryUsage{},
		&models.UploadLedger{},
	)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, cfg, logger)

	r.Run(":" + cfg.Port)
}
