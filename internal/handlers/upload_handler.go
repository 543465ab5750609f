package handler

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"press-release-admin-backend/internal/models"
	"press-release-admin-backend/internal/repository"
	"press-release-admin-backend/internal/services/catalog"
	"press-release-admin-backend/internal/services/eviction"
	"press-release-admin-backend/internal/services/ingestion"
	"press-release-admin-backend/pkg/checksum"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type UploadHandler struct {
	coordinator *ingestion.Coordinator
	ledger      *repository.LedgerRepository
	releases    *repository.ReleaseRepository
	index       *catalog.Index
	evictor     *eviction.Service
	log         zerolog.Logger
}

func NewUploadHandler(
	coordinator *ingestion.Coordinator,
	ledger *repository.LedgerRepository,
	releases *repository.ReleaseRepository,
	index *catalog.Index,
	evictor *eviction.Service,
	log zerolog.Logger,
) *UploadHandler {
	return &UploadHandler{
		coordinator: coordinator,
		ledger:      ledger,
		releases:    releases,
		index:       index,
		evictor:     evictor,
		log:         log,
	}
}

// StartUpload creates the ledger entry for a producer-driven batch and claims
// it for ingestion.
func (h *UploadHandler) StartUpload(c *gin.Context) {
	var payload struct {
		Filename     string `json:"filename"`
		TotalRecords int64  `json:"total_records"`
		UploadedBy   string `json:"uploaded_by"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename required"})
		return
	}
	if payload.TotalRecords < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "total_records must not be negative"})
		return
	}

	entry, err := h.ledger.Create(payload.Filename, "", payload.UploadedBy, payload.TotalRecords)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.coordinator.Start(entry.BatchID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	progress, err := h.ledger.GetProgress(entry.BatchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"batch_id": entry.BatchID.String(),
		"status":   progress.Status,
	})
}

// IngestRow accepts one parsed record for a claimed batch. Validation
// failures are counted on the ledger, not surfaced as HTTP errors.
func (h *UploadHandler) IngestRow(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	var row ingestion.Row
	if err := c.BindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.coordinator.Append(batchID, row); err != nil {
		h.renderIngestError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// CompleteUpload signals that the producer's sequence is exhausted.
func (h *UploadHandler) CompleteUpload(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}
	if err := h.coordinator.Finalize(batchID); err != nil {
		h.renderIngestError(c, err)
		return
	}

	progress, err := h.ledger.GetProgress(batchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// Upload handles a multipart CSV upload end to end: ledger creation, checksum,
// then background ingestion of the parsed rows.
func (h *UploadHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}

	rows, err := parseCSVRows(content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uploadedBy := c.PostForm("uploaded_by")
	entry, err := h.ledger.Create(header.Filename, checksum.SumBytes(content), uploadedBy, int64(len(rows)))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.coordinator.Start(entry.BatchID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go h.ingestRows(entry.BatchID, rows)

	c.JSON(http.StatusAccepted, gin.H{
		"batch_id":      entry.BatchID.String(),
		"total_records": len(rows),
		"status":        models.BatchStatusProcessing,
	})
}

func (h *UploadHandler) ingestRows(batchID uuid.UUID, rows []ingestion.Row) {
	for _, row := range rows {
		if err := h.coordinator.Append(batchID, row); err != nil {
			h.log.Error().Err(err).Str("batch_id", batchID.String()).Msg("ingestion aborted")
			return
		}
	}
	if err := h.coordinator.Finalize(batchID); err != nil {
		h.log.Error().Err(err).Str("batch_id", batchID.String()).Msg("finalize failed")
	}
}

// GetProgress is the pollable progress projection.
func (h *UploadHandler) GetProgress(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}
	progress, err := h.ledger.GetProgress(batchID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// ListUploads returns ledger summaries, newest first.
func (h *UploadHandler) ListUploads(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	entries, err := h.ledger.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// ListRecords pages through a batch's ingested records.
func (h *UploadHandler) ListRecords(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}
	if _, err := h.ledger.Get(batchID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cursor := c.Query("cursor")
	limit := 50
	items, nextCursor, hasMore, err := h.releases.ListByBatch(batchID, cursor, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

// DeleteBatch evicts a batch: records, ledger entry and the batch's own
// category-index contribution, atomically.
func (h *UploadHandler) DeleteBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}
	result, err := h.evictor.Evict(batchID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		case errors.Is(err, models.ErrBatchActive):
			c.JSON(http.StatusConflict, gin.H{"error": "batch is still processing"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deleted_records":        result.DeletedRecords,
		"deleted_ledger_entries": result.DeletedLedgerEntries,
	})
}

// ListCategories returns index entries, placeholder first, busiest next.
func (h *UploadHandler) ListCategories(c *gin.Context) {
	categoryType := c.Query("type")
	if categoryType != "" {
		entries, err := h.index.List(categoryType)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"type": categoryType, "items": entries})
		return
	}

	grouped, err := h.index.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": grouped})
}

func (h *UploadHandler) renderIngestError(c *gin.Context, err error) {
	var storageErr *models.StorageError
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
	case errors.Is(err, models.ErrBatchCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": "batch already completed"})
	case errors.As(err, &storageErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": storageErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseCSVRows(content []byte) ([]ingestion.Row, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.New("cannot read CSV header")
	}

	var rows []ingestion.Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed lines
		}
		if strings.Join(record, "") == "" {
			continue
		}
		rows = append(rows, rowFromRecord(record))
	}
	return rows, nil
}

// rowFromRecord maps a CSV line onto a producer row. Short lines still become
// rows; the coordinator's validation counts them as errors.
func rowFromRecord(record []string) ingestion.Row {
	col := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	intCol := func(i int) int {
		v, _ := strconv.Atoi(col(i))
		return v
	}
	capital, _ := strconv.ParseInt(col(11), 10, 64)

	return ingestion.Row{
		DeliveryDate:     col(0),
		SourceURL:        col(1),
		Title:            col(2),
		Category1:        col(3),
		Category2:        col(4),
		Industry:         col(5),
		CompanyName:      col(6),
		Address:          col(7),
		Phone:            col(8),
		Representative:   col(9),
		ListingStatus:    col(10),
		Capital:          capital,
		EstablishedYear:  intCol(12),
		EstablishedMonth: intCol(13),
	}
}
