package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"press-release-admin-backend/internal/config"
	handler "press-release-admin-backend/internal/handlers"
	"press-release-admin-backend/internal/repository"
	"press-release-admin-backend/internal/services/catalog"
	"press-release-admin-backend/internal/services/eviction"
	"press-release-admin-backend/internal/services/ingestion"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, log zerolog.Logger) {
	ledgerRepo := repository.NewLedgerRepository(db)
	releaseRepo := repository.NewReleaseRepository(db)
	index := catalog.NewIndex(db, log)

	coordinator := ingestion.NewCoordinator(db, ledgerRepo, releaseRepo, index, cfg.ChunkSize, log)
	evictor := eviction.NewService(db, ledgerRepo, releaseRepo, index, log)

	uploadHandler := handler.NewUploadHandler(coordinator, ledgerRepo, releaseRepo, index, evictor, log)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	uploads := api.Group("/uploads")
	uploads.POST("", uploadHandler.Upload)
	uploads.POST("/start", uploadHandler.StartUpload)
	uploads.GET("", uploadHandler.ListUploads)
	uploads.POST("/:batchId/rows", uploadHandler.IngestRow)
	uploads.POST("/:batchId/complete", uploadHandler.CompleteUpload)
	uploads.GET("/:batchId/progress", uploadHandler.GetProgress)
	uploads.GET("/:batchId/records", uploadHandler.ListRecords)
	uploads.DELETE("/:batchId", uploadHandler.DeleteBatch)

	api.GET("/categories", uploadHandler.ListCategories)
}
