package repository

import (
	"errors"
	"time"

	"press-release-admin-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Expose DB if needed
func (r *LedgerRepository) DB() *gorm.DB {
	return r.db
}

// Create inserts the ledger entry for a new batch in status pending. The
// batch identifier is generated here; its unique index is what makes
// single-writer-per-batch enforceable.
func (r *LedgerRepository) Create(filename, checksum, uploadedBy string, totalRecords int64) (*models.UploadLedger, error) {
	entry := &models.UploadLedger{
		BatchID:      uuid.New(),
		Filename:     filename,
		Checksum:     checksum,
		UploadedBy:   uploadedBy,
		TotalRecords: totalRecords,
		Status:       models.BatchStatusPending,
		UploadedAt:   time.Now(),
	}
	if err := r.db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *LedgerRepository) Get(batchID uuid.UUID) (*models.UploadLedger, error) {
	return r.GetTx(r.db, batchID)
}

func (r *LedgerRepository) GetTx(tx *gorm.DB, batchID uuid.UUID) (*models.UploadLedger, error) {
	var entry models.UploadLedger
	if err := tx.First(&entry, "batch_id = ?", batchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Claim flips a pending batch to processing. Exactly one coordinator can win
// the claim; a second attempt reports the batch as already taken.
func (r *LedgerRepository) Claim(batchID uuid.UUID) error {
	res := r.db.Model(&models.UploadLedger{}).
		Where("batch_id = ? AND status = ?", batchID, models.BatchStatusPending).
		Update("status", models.BatchStatusProcessing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		entry, err := r.Get(batchID)
		if err != nil {
			return err
		}
		if entry.TerminalStatus() {
			return models.ErrBatchCompleted
		}
		return models.ErrBatchClaimed
	}
	return nil
}

// AdvanceProgressTx adds one chunk's attempt counts to the ledger as a single
// additive UPDATE. Concurrent batches interleave on this table, so the
// arithmetic stays in SQL instead of read-modify-write.
func (r *LedgerRepository) AdvanceProgressTx(tx *gorm.DB, batchID uuid.UUID, successDelta, errorDelta int64) error {
	return tx.Model(&models.UploadLedger{}).
		Where("batch_id = ?", batchID).
		Updates(map[string]interface{}{
			"success_records": gorm.Expr("success_records + ?", successDelta),
			"error_records":   gorm.Expr("error_records + ?", errorDelta),
			"progress_count":  gorm.Expr("progress_count + ?", successDelta+errorDelta),
		}).Error
}

// CompleteIfDoneTx marks the batch completed once committed attempts have
// reached the declared total. Returns whether the transition happened.
func (r *LedgerRepository) CompleteIfDoneTx(tx *gorm.DB, batchID uuid.UUID) (bool, error) {
	now := time.Now()
	res := tx.Model(&models.UploadLedger{}).
		Where("batch_id = ? AND status = ? AND progress_count >= total_records",
			batchID, models.BatchStatusProcessing).
		Updates(map[string]interface{}{
			"status":       models.BatchStatusCompleted,
			"completed_at": &now,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkCompleted finalizes a processing batch whose input was exhausted before
// the declared total was reached. The declared total is not rewritten.
func (r *LedgerRepository) MarkCompleted(batchID uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.UploadLedger{}).
		Where("batch_id = ? AND status = ?", batchID, models.BatchStatusProcessing).
		Updates(map[string]interface{}{
			"status":       models.BatchStatusCompleted,
			"completed_at": &now,
		}).Error
}

func (r *LedgerRepository) MarkFailed(batchID uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.UploadLedger{}).
		Where("batch_id = ?", batchID).
		Updates(map[string]interface{}{
			"status":       models.BatchStatusFailed,
			"completed_at": &now,
		}).Error
}

// ForceFail moves a batch that never reached a terminal status to failed.
// Operator recovery for a coordinator that died mid-batch: the stranded
// processing entry becomes evictable. Terminal batches are left alone.
func (r *LedgerRepository) ForceFail(batchID uuid.UUID) error {
	now := time.Now()
	res := r.db.Model(&models.UploadLedger{}).
		Where("batch_id = ? AND status IN ?", batchID,
			[]string{models.BatchStatusPending, models.BatchStatusProcessing}).
		Updates(map[string]interface{}{
			"status":       models.BatchStatusFailed,
			"completed_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		entry, err := r.Get(batchID)
		if err != nil {
			return err
		}
		if entry.TerminalStatus() {
			return models.ErrBatchCompleted
		}
	}
	return nil
}

// StoreErrorSample attaches the bounded validation-failure sample collected
// during ingestion.
func (r *LedgerRepository) StoreErrorSample(batchID uuid.UUID, sample datatypes.JSON) error {
	return r.db.Model(&models.UploadLedger{}).
		Where("batch_id = ?", batchID).
		Update("error_sample", sample).Error
}

// Progress is the read-only projection polled by clients.
type Progress struct {
	Processed int64  `json:"processed"`
	Total     int64  `json:"total"`
	Success   int64  `json:"success"`
	Errors    int64  `json:"errors"`
	Status    string `json:"status"`
}

// GetProgress reads last-committed progress for a batch. Safe to poll at high
// frequency; it performs no writes and takes no locks.
func (r *LedgerRepository) GetProgress(batchID uuid.UUID) (*Progress, error) {
	entry, err := r.Get(batchID)
	if err != nil {
		return nil, err
	}
	return &Progress{
		Processed: entry.ProgressCount,
		Total:     entry.TotalRecords,
		Success:   entry.SuccessRecords,
		Errors:    entry.ErrorRecords,
		Status:    entry.Status,
	}, nil
}

// List returns ledger entries ordered by upload time, newest first.
func (r *LedgerRepository) List(limit int) ([]models.UploadLedger, error) {
	var entries []models.UploadLedger
	err := r.db.Order("uploaded_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// DeleteTx removes the ledger entry inside an eviction transaction.
func (r *LedgerRepository) DeleteTx(tx *gorm.DB, batchID uuid.UUID) (int64, error) {
	res := tx.Where("batch_id = ?", batchID).Delete(&models.UploadLedger{})
	return res.RowsAffected, res.Error
}
