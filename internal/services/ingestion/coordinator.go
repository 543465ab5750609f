// Package ingestion drives a batch end to end: it buffers producer rows into
// chunks, commits each chunk as one transaction (records, category upserts,
// ledger advance) and finalizes the ledger. Chunk boundaries are progress
// checkpoints; a failure loses only the in-flight chunk.
package ingestion

import (
	"encoding/json"
	"sync"

	"press-release-admin-backend/internal/models"
	"press-release-admin-backend/internal/repository"
	"press-release-admin-backend/internal/services/catalog"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxErrorSample bounds how many validation failures are retained per batch
// for admin review. Past that the counters still advance, details are only
// in logs.
const maxErrorSample = 20

// RowFailure is one retained validation failure.
type RowFailure struct {
	Row    int64  `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type batchState struct {
	mu        sync.Mutex
	total     int64
	attempted int64
	pending   []*models.Release
	errs      int64
	failures  []RowFailure
	failed    bool
	completed bool
}

type Coordinator struct {
	db       *gorm.DB
	ledger   *repository.LedgerRepository
	releases *repository.ReleaseRepository
	index    *catalog.Index

	chunkSize int
	log       zerolog.Logger

	// mu guards the batches map only. Each batchState carries its own lock
	// so chunk commits for unrelated batches never serialize on each other.
	mu      sync.Mutex
	batches map[uuid.UUID]*batchState
}

func NewCoordinator(
	db *gorm.DB,
	ledger *repository.LedgerRepository,
	releases *repository.ReleaseRepository,
	index *catalog.Index,
	chunkSize int,
	log zerolog.Logger,
) *Coordinator {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &Coordinator{
		db:        db,
		ledger:    ledger,
		releases:  releases,
		index:     index,
		chunkSize: chunkSize,
		log:       log,
		batches:   make(map[uuid.UUID]*batchState),
	}
}

// Start claims the batch for this coordinator. A batch identifier can only be
// claimed once; re-ingesting it requires evicting the old batch first. A
// zero-row batch completes immediately.
func (c *Coordinator) Start(batchID uuid.UUID) error {
	entry, err := c.ledger.Get(batchID)
	if err != nil {
		return err
	}
	if err := c.ledger.Claim(batchID); err != nil {
		return err
	}

	c.mu.Lock()
	c.batches[batchID] = &batchState{total: entry.TotalRecords}
	c.mu.Unlock()

	if entry.TotalRecords == 0 {
		return c.Finalize(batchID)
	}
	return nil
}

// Append ingests one row. A validation failure advances the error counter and
// never aborts the batch; valid rows are committed with the enclosing chunk.
// Once a chunk commit has failed, further appends for that batch are
// rejected.
func (c *Coordinator) Append(batchID uuid.UUID, row Row) error {
	c.mu.Lock()
	st, ok := c.batches[batchID]
	c.mu.Unlock()
	if !ok {
		entry, err := c.ledger.Get(batchID)
		if err != nil {
			return err
		}
		if entry.TerminalStatus() {
			return models.ErrBatchCompleted
		}
		return models.ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.completed {
		// Looked up just as the batch auto-completed.
		return models.ErrBatchCompleted
	}
	if st.failed {
		return &models.StorageError{Op: "append to failed batch", Err: models.ErrBatchActive}
	}

	release, verr := buildRelease(batchID, row)
	if verr != nil {
		st.errs++
		if len(st.failures) < maxErrorSample {
			st.failures = append(st.failures, RowFailure{
				Row:    st.attempted + int64(len(st.pending)) + st.errs,
				Field:  verr.Field,
				Reason: verr.Reason,
			})
		}
	} else {
		st.pending = append(st.pending, release)
	}

	// Flush at chunk boundaries, and as soon as the declared total is
	// reached so the batch completes without waiting for an explicit
	// finalize.
	buffered := int64(len(st.pending)) + st.errs
	if buffered >= int64(c.chunkSize) || st.attempted+buffered >= st.total {
		if err := c.flushLocked(batchID, st); err != nil {
			return err
		}
		if st.completed {
			c.storeFailures(batchID, st)
			c.forget(batchID)
		}
	}
	return nil
}

// Finalize flushes the in-flight chunk and marks the ledger completed. Called
// when the producer's sequence is exhausted; reaching the declared total
// completes the batch without it.
func (c *Coordinator) Finalize(batchID uuid.UUID) error {
	c.mu.Lock()
	st, ok := c.batches[batchID]
	c.mu.Unlock()
	if !ok {
		// The batch may have auto-completed when its declared total was
		// reached; finalizing it again is a no-op.
		entry, err := c.ledger.Get(batchID)
		if err != nil {
			return err
		}
		if entry.TerminalStatus() {
			return nil
		}
		return models.ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	defer c.forget(batchID)

	if !st.failed && !st.completed {
		if err := c.flushLocked(batchID, st); err != nil {
			c.storeFailures(batchID, st)
			return err
		}
		if !st.completed {
			if err := c.ledger.MarkCompleted(batchID); err != nil {
				return err
			}
		}
	}
	c.storeFailures(batchID, st)

	c.log.Info().
		Str("batch_id", batchID.String()).
		Int64("attempted", st.attempted).
		Int64("total", st.total).
		Bool("failed", st.failed).
		Msg("batch ingestion finished")
	return nil
}

// forget drops the in-memory state for a finished batch.
func (c *Coordinator) forget(batchID uuid.UUID) {
	c.mu.Lock()
	delete(c.batches, batchID)
	c.mu.Unlock()
}

// flushLocked commits the buffered chunk: record inserts, per-key category
// increments and the ledger advance run in one transaction. Caller holds the
// batch lock. On failure the chunk rolls back and the batch is marked failed;
// earlier chunks stay committed.
func (c *Coordinator) flushLocked(batchID uuid.UUID, st *batchState) error {
	successDelta := int64(len(st.pending))
	errorDelta := st.errs
	if successDelta+errorDelta == 0 {
		return nil
	}

	counts := make(map[models.CategoryKey]int64)
	for _, release := range st.pending {
		for _, key := range release.CategoryKeys() {
			counts[key]++
		}
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := c.releases.InsertChunkTx(tx, st.pending); err != nil {
			return err
		}
		for key, n := range counts {
			if err := c.index.UpsertTx(tx, key.Type, key.Name, n); err != nil {
				return err
			}
		}
		if err := c.ledger.AdvanceProgressTx(tx, batchID, successDelta, errorDelta); err != nil {
			return err
		}
		done, err := c.ledger.CompleteIfDoneTx(tx, batchID)
		if done {
			st.completed = true
		}
		return err
	})
	if err != nil {
		st.failed = true
		st.completed = false
		if markErr := c.ledger.MarkFailed(batchID); markErr != nil {
			c.log.Error().Err(markErr).
				Str("batch_id", batchID.String()).
				Msg("failed to mark batch failed after chunk rollback")
		}
		c.log.Error().Err(err).
			Str("batch_id", batchID.String()).
			Int64("chunk_success", successDelta).
			Int64("chunk_errors", errorDelta).
			Msg("chunk commit rolled back")
		return &models.StorageError{Op: "commit chunk", Err: err}
	}

	st.attempted += successDelta + errorDelta
	st.pending = nil
	st.errs = 0

	c.log.Debug().
		Str("batch_id", batchID.String()).
		Int64("chunk_success", successDelta).
		Int64("chunk_errors", errorDelta).
		Int64("attempted", st.attempted).
		Msg("chunk committed")
	return nil
}

func (c *Coordinator) storeFailures(batchID uuid.UUID, st *batchState) {
	if len(st.failures) == 0 {
		return
	}
	sample, err := json.Marshal(st.failures)
	if err != nil {
		c.log.Error().Err(err).Str("batch_id", batchID.String()).Msg("failed to marshal error sample")
		return
	}
	if err := c.ledger.StoreErrorSample(batchID, datatypes.JSON(sample)); err != nil {
		c.log.Error().Err(err).Str("batch_id", batchID.String()).Msg("failed to store error sample")
	}
}
