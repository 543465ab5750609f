package catalog

import (
	"testing"

	"press-release-admin-backend/internal/models"
	"press-release-admin-backend/internal/testdb"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	db := testdb.Open(t)
	return NewIndex(db, zerolog.New(zerolog.NewTestWriter(t)))
}

func getEntry(t *testing.T, ix *Index, categoryType, name string) models.CategoryUsage {
	t.Helper()
	var entry models.CategoryUsage
	err := ix.db.Where("category_type = ? AND category_name = ?", categoryType, name).
		First(&entry).Error
	require.NoError(t, err)
	return entry
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "IT", Canonical("IT"))
	assert.Equal(t, "IT", Canonical("  IT  "))
	assert.Equal(t, models.PlaceholderCategory, Canonical(""))
	assert.Equal(t, models.PlaceholderCategory, Canonical("   "))
}

func TestUpsertCreatesThenIncrements(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeCategory, "IT", 1))
	entry := getEntry(t, ix, models.CategoryTypeCategory, "IT")
	assert.Equal(t, int64(1), entry.UsageCount)
	assert.True(t, entry.IsActive)

	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeCategory, "IT", 2))
	entry = getEntry(t, ix, models.CategoryTypeCategory, "IT")
	assert.Equal(t, int64(3), entry.UsageCount)
}

func TestUpsertKeysAreIndependent(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeCategory, "IT", 2))
	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeIndustry, "IT", 5))

	assert.Equal(t, int64(2), getEntry(t, ix, models.CategoryTypeCategory, "IT").UsageCount)
	assert.Equal(t, int64(5), getEntry(t, ix, models.CategoryTypeIndustry, "IT").UsageCount)
}

func TestDecrementFloorsAtZeroAndKeepsRow(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeCategory, "finance", 2))
	require.NoError(t, ix.DecrementTx(ix.db, models.CategoryTypeCategory, "finance", 5))

	entry := getEntry(t, ix, models.CategoryTypeCategory, "finance")
	assert.Equal(t, int64(0), entry.UsageCount)
	assert.True(t, entry.IsActive, "decrement must never deactivate an entry")
}

func TestDecrementMissingEntryIsNoop(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, ix.DecrementTx(ix.db, models.CategoryTypeCategory, "ghost", 3))

	var count int64
	require.NoError(t, ix.db.Model(&models.CategoryUsage{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestListOrderingPlaceholderFirst(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeCategory, "beta", 5))
	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeCategory, "alpha", 5))
	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeCategory, "zeta", 9))
	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeCategory, models.PlaceholderCategory, 1))

	entries, err := ix.List(models.CategoryTypeCategory)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	names := []string{entries[0].Name, entries[1].Name, entries[2].Name, entries[3].Name}
	assert.Equal(t, []string{models.PlaceholderCategory, "zeta", "alpha", "beta"}, names)
}

func TestListExcludesInactive(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeIndustry, "retail", 1))
	require.NoError(t, ix.db.Model(&models.CategoryUsage{}).
		Where("category_name = ?", "retail").
		Update("is_active", false).Error)

	entries, err := ix.List(models.CategoryTypeIndustry)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListAllGroupsByType(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeCategory, "IT", 1))
	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeIndustry, "IT", 1))
	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeListingStatus, "listed", 1))

	grouped, err := ix.ListAll()
	require.NoError(t, err)
	assert.Len(t, grouped, 3)
	assert.Len(t, grouped[models.CategoryTypeCategory], 1)
	assert.Len(t, grouped[models.CategoryTypeListingStatus], 1)
}

func TestPrune(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeCategory, "live", 3))
	require.NoError(t, ix.UpsertTx(ix.db, models.CategoryTypeCategory, "dead", 1))
	require.NoError(t, ix.DecrementTx(ix.db, models.CategoryTypeCategory, "dead", 1))

	affected, err := ix.Prune(true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.True(t, getEntry(t, ix, models.CategoryTypeCategory, "dead").IsActive,
		"dry run must not deactivate")

	affected, err = ix.Prune(false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.False(t, getEntry(t, ix, models.CategoryTypeCategory, "dead").IsActive)
	assert.True(t, getEntry(t, ix, models.CategoryTypeCategory, "live").IsActive)
}
