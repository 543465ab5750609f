// Package eviction removes one batch atomically: its records, its ledger
// entry, and exactly its own contribution to the shared category index.
package eviction

import (
	"sort"

	"press-release-admin-backend/internal/models"
	"press-release-admin-backend/internal/repository"
	"press-release-admin-backend/internal/services/catalog"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	ledger   *repository.LedgerRepository
	releases *repository.ReleaseRepository
	index    *catalog.Index
	log      zerolog.Logger
}

func NewService(
	db *gorm.DB,
	ledger *repository.LedgerRepository,
	releases *repository.ReleaseRepository,
	index *catalog.Index,
	log zerolog.Logger,
) *Service {
	return &Service{db: db, ledger: ledger, releases: releases, index: index, log: log}
}

// CategoryDelta is one per-value count the eviction subtracts from the index.
type CategoryDelta struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type Result struct {
	BatchID              uuid.UUID       `json:"batch_id"`
	DeletedRecords       int64           `json:"deleted_records"`
	DeletedLedgerEntries int64           `json:"deleted_ledger_entries"`
	CategoryDeltas       []CategoryDelta `json:"category_deltas"`
	DryRun               bool            `json:"dry_run"`
}

// Evict removes the batch's records and ledger entry and decrements the
// category index by the batch's own per-value counts, all in one
// transaction. A missing batch reports not-found with no side effects; a
// batch that is still pending or processing is rejected.
func (s *Service) Evict(batchID uuid.UUID) (*Result, error) {
	var result *Result
	err := s.db.Transaction(func(tx *gorm.DB) error {
		entry, err := s.ledger.GetTx(tx, batchID)
		if err != nil {
			return err
		}
		if !entry.TerminalStatus() {
			return models.ErrBatchActive
		}

		counts, err := s.releases.CategoryCountsByBatchTx(tx, batchID)
		if err != nil {
			return err
		}

		deletedRecords, err := s.releases.DeleteBatchTx(tx, batchID)
		if err != nil {
			return err
		}

		for key, n := range counts {
			if err := s.index.DecrementTx(tx, key.Type, key.Name, n); err != nil {
				return err
			}
		}

		deletedLedger, err := s.ledger.DeleteTx(tx, batchID)
		if err != nil {
			return err
		}

		result = &Result{
			BatchID:              batchID,
			DeletedRecords:       deletedRecords,
			DeletedLedgerEntries: deletedLedger,
			CategoryDeltas:       sortedDeltas(counts),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("batch_id", batchID.String()).
		Int64("deleted_records", result.DeletedRecords).
		Int("category_keys", len(result.CategoryDeltas)).
		Msg("batch evicted")
	return result, nil
}

// Preview computes what Evict would remove without touching anything. Backs
// the admin CLI's dry-run mode.
func (s *Service) Preview(batchID uuid.UUID) (*Result, error) {
	entry, err := s.ledger.Get(batchID)
	if err != nil {
		return nil, err
	}
	if !entry.TerminalStatus() {
		return nil, models.ErrBatchActive
	}

	counts, err := s.releases.CategoryCountsByBatchTx(s.db, batchID)
	if err != nil {
		return nil, err
	}
	records, err := s.releases.CountByBatch(batchID)
	if err != nil {
		return nil, err
	}

	return &Result{
		BatchID:              batchID,
		DeletedRecords:       records,
		DeletedLedgerEntries: 1,
		CategoryDeltas:       sortedDeltas(counts),
		DryRun:               true,
	}, nil
}

func sortedDeltas(counts map[models.CategoryKey]int64) []CategoryDelta {
	deltas := make([]CategoryDelta, 0, len(counts))
	for key, n := range counts {
		deltas = append(deltas, CategoryDelta{Type: key.Type, Name: key.Name, Count: n})
	}
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].Type != deltas[j].Type {
			return deltas[i].Type < deltas[j].Type
		}
		return deltas[i].Name < deltas[j].Name
	})
	return deltas
}
