package eviction_test

import (
	"fmt"
	"testing"

	"press-release-admin-backend/internal/models"
	"press-release-admin-backend/internal/repository"
	"press-release-admin-backend/internal/services/catalog"
	"press-release-admin-backend/internal/services/eviction"
	"press-release-admin-backend/internal/services/ingestion"
	"press-release-admin-backend/internal/testdb"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	ledger      *repository.LedgerRepository
	releases    *repository.ReleaseRepository
	index       *catalog.Index
	coordinator *ingestion.Coordinator
	evictor     *eviction.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	logger := zerolog.New(zerolog.NewTestWriter(t))
	ledger := repository.NewLedgerRepository(db)
	releases := repository.NewReleaseRepository(db)
	index := catalog.NewIndex(db, logger)
	return &fixture{
		db:          db,
		ledger:      ledger,
		releases:    releases,
		index:       index,
		coordinator: ingestion.NewCoordinator(db, ledger, releases, index, 10, logger),
		evictor:     eviction.NewService(db, ledger, releases, index, logger),
	}
}

// ingestBatch runs a complete batch of n records sharing one category value.
func (f *fixture) ingestBatch(t *testing.T, n int, category string) uuid.UUID {
	t.Helper()
	entry, err := f.ledger.Create(fmt.Sprintf("%s.csv", category), "", "admin", int64(n))
	require.NoError(t, err)
	require.NoError(t, f.coordinator.Start(entry.BatchID))
	for i := 0; i < n; i++ {
		require.NoError(t, f.coordinator.Append(entry.BatchID, ingestion.Row{
			DeliveryDate: "2024-05-01",
			SourceURL:    fmt.Sprintf("https://example.com/%s/%d", category, i),
			Title:        fmt.Sprintf("release %d", i),
			CompanyName:  fmt.Sprintf("Company %d", i),
			Category1:    category,
		}))
	}
	return entry.BatchID
}

func (f *fixture) usageCount(t *testing.T, categoryType, name string) int64 {
	t.Helper()
	var entry models.CategoryUsage
	err := f.db.Where("category_type = ? AND category_name = ?", categoryType, name).
		First(&entry).Error
	require.NoError(t, err)
	return entry.UsageCount
}

func TestEvictRemovesOnlyOwnContribution(t *testing.T) {
	f := newFixture(t)

	batchA := f.ingestBatch(t, 3, "IT")
	batchB := f.ingestBatch(t, 2, "IT")
	require.Equal(t, int64(5), f.usageCount(t, models.CategoryTypeCategory, "IT"))

	result, err := f.evictor.Evict(batchB)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.DeletedRecords)
	assert.Equal(t, int64(1), result.DeletedLedgerEntries)

	// Batch A's contribution survives.
	assert.Equal(t, int64(5-2), f.usageCount(t, models.CategoryTypeCategory, "IT"))

	countA, err := f.releases.CountByBatch(batchA)
	require.NoError(t, err)
	assert.Equal(t, int64(3), countA)

	countB, err := f.releases.CountByBatch(batchB)
	require.NoError(t, err)
	assert.Equal(t, int64(0), countB)

	_, err = f.ledger.Get(batchB)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.ledger.Get(batchA)
	assert.NoError(t, err)
}

func TestEvictUnknownBatchLeavesEverythingUntouched(t *testing.T) {
	f := newFixture(t)
	f.ingestBatch(t, 3, "IT")

	var recordsBefore, usagesBefore, ledgersBefore int64
	require.NoError(t, f.db.Model(&models.Release{}).Count(&recordsBefore).Error)
	require.NoError(t, f.db.Model(&models.CategoryUsage{}).Count(&usagesBefore).Error)
	require.NoError(t, f.db.Model(&models.UploadLedger{}).Count(&ledgersBefore).Error)

	_, err := f.evictor.Evict(uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	var recordsAfter, usagesAfter, ledgersAfter int64
	require.NoError(t, f.db.Model(&models.Release{}).Count(&recordsAfter).Error)
	require.NoError(t, f.db.Model(&models.CategoryUsage{}).Count(&usagesAfter).Error)
	require.NoError(t, f.db.Model(&models.UploadLedger{}).Count(&ledgersAfter).Error)
	assert.Equal(t, recordsBefore, recordsAfter)
	assert.Equal(t, usagesBefore, usagesAfter)
	assert.Equal(t, ledgersBefore, ledgersAfter)
	assert.Equal(t, int64(3), f.usageCount(t, models.CategoryTypeCategory, "IT"))
}

func TestEvictRejectsProcessingBatch(t *testing.T) {
	f := newFixture(t)

	entry, err := f.ledger.Create("inflight.csv", "", "admin", 5)
	require.NoError(t, err)
	require.NoError(t, f.coordinator.Start(entry.BatchID))
	require.NoError(t, f.coordinator.Append(entry.BatchID, ingestion.Row{
		DeliveryDate: "2024-05-01",
		SourceURL:    "https://example.com/1",
		Title:        "release",
		CompanyName:  "Company",
	}))

	_, err = f.evictor.Evict(entry.BatchID)
	assert.ErrorIs(t, err, models.ErrBatchActive)

	// Nothing was removed.
	got, err := f.ledger.Get(entry.BatchID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusProcessing, got.Status)
}

func TestForceFailedBatchBecomesEvictable(t *testing.T) {
	f := newFixture(t)

	// One committed chunk, then the coordinator goes away: the ledger is
	// stuck in processing.
	entry, err := f.ledger.Create("crashed.csv", "", "admin", 30)
	require.NoError(t, err)
	require.NoError(t, f.coordinator.Start(entry.BatchID))
	for i := 0; i < 10; i++ {
		require.NoError(t, f.coordinator.Append(entry.BatchID, ingestion.Row{
			DeliveryDate: "2024-05-01",
			SourceURL:    fmt.Sprintf("https://example.com/crashed/%d", i),
			Title:        fmt.Sprintf("release %d", i),
			CompanyName:  fmt.Sprintf("Company %d", i),
			Category1:    "IT",
		}))
	}

	_, err = f.evictor.Evict(entry.BatchID)
	require.ErrorIs(t, err, models.ErrBatchActive)

	require.NoError(t, f.ledger.ForceFail(entry.BatchID))

	result, err := f.evictor.Evict(entry.BatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.DeletedRecords)
	assert.Equal(t, int64(1), result.DeletedLedgerEntries)
	assert.Equal(t, int64(0), f.usageCount(t, models.CategoryTypeCategory, "IT"))
}

func TestEvictZeroRecordBatch(t *testing.T) {
	f := newFixture(t)
	batchID := f.ingestBatch(t, 0, "empty")

	result, err := f.evictor.Evict(batchID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.DeletedRecords)
	assert.Equal(t, int64(1), result.DeletedLedgerEntries)
	assert.Empty(t, result.CategoryDeltas)
}

func TestPreviewDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	batchID := f.ingestBatch(t, 2, "IT")

	result, err := f.evictor.Preview(batchID)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, int64(2), result.DeletedRecords)
	assert.Equal(t, int64(1), result.DeletedLedgerEntries)
	require.NotEmpty(t, result.CategoryDeltas)

	// Everything is still there.
	count, err := f.releases.CountByBatch(batchID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	_, err = f.ledger.Get(batchID)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), f.usageCount(t, models.CategoryTypeCategory, "IT"))
}

func TestEvictDecrementsDerivedTypesToo(t *testing.T) {
	f := newFixture(t)
	batchID := f.ingestBatch(t, 2, "finance")

	require.Equal(t, int64(2), f.usageCount(t, models.CategoryTypeIndustry, "finance"))
	require.Equal(t, int64(2), f.usageCount(t, models.CategoryTypeCategory, models.PlaceholderCategory))

	_, err := f.evictor.Evict(batchID)
	require.NoError(t, err)

	assert.Equal(t, int64(0), f.usageCount(t, models.CategoryTypeIndustry, "finance"))
	assert.Equal(t, int64(0), f.usageCount(t, models.CategoryTypeCategory, models.PlaceholderCategory))
	assert.Equal(t, int64(0), f.usageCount(t, models.CategoryTypeListingStatus, models.PlaceholderCategory))
}
