package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	BatchStatusPending    = "pending"
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

// UploadLedger is the per-batch progress row. One entry per ingestion run;
// it is created before the first record write and destroyed only by batch
// eviction, in the same transaction as the batch's records.
type UploadLedger struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	BatchID        uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Filename       string
	Checksum       string
	UploadedBy     string
	TotalRecords   int64
	SuccessRecords int64
	ErrorRecords   int64
	// ProgressCount is success + error attempts committed so far.
	ProgressCount int64
	Status        string `gorm:"index"`
	// ErrorSample keeps a bounded sample of row validation failures so an
	// admin can see why rows were rejected without trawling logs.
	ErrorSample datatypes.JSON
	UploadedAt  time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TerminalStatus reports whether the batch can no longer advance. Eviction
// requires this.
func (l *UploadLedger) TerminalStatus() bool {
	return l.Status == BatchStatusCompleted || l.Status == BatchStatusFailed
}
