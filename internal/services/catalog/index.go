// Package catalog maintains the shared category index: a process-wide
// aggregate mapping (type, name) to the number of live records referencing
// that value. No batch owns an entry; counts move incrementally on ingest
// and eviction.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"press-release-admin-backend/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Index struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewIndex(db *gorm.DB, log zerolog.Logger) *Index {
	return &Index{db: db, log: log}
}

// Canonical returns the stored form of a categorizable value: trimmed, with
// empty mapped to the placeholder literal. Storage never sees empty or null
// category values.
func Canonical(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.PlaceholderCategory
	}
	return name
}

// UpsertTx adds n uses to (categoryType, name) inside tx, creating the entry
// at n when absent. The additive assignment runs as one statement so
// concurrent batches touching the same key cannot lose updates.
func (ix *Index) UpsertTx(tx *gorm.DB, categoryType, name string, n int64) error {
	entry := models.CategoryUsage{
		Type:       categoryType,
		Name:       name,
		UsageCount: n,
		IsActive:   true,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category_type"}, {Name: "category_name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + ?", n),
		}),
	}).Create(&entry).Error
}

// DecrementTx lowers (categoryType, name) by n, floored at zero. The entry is
// never removed and is_active is untouched. A floor event means the index
// drifted from the record store; it is logged, never fatal to the enclosing
// eviction transaction.
func (ix *Index) DecrementTx(tx *gorm.DB, categoryType, name string, n int64) error {
	var entry models.CategoryUsage
	err := tx.Where("category_type = ? AND category_name = ?", categoryType, name).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ix.log.Warn().
			Str("type", categoryType).
			Str("name", name).
			Int64("by", n).
			Msg("decrement addressed a missing category entry")
		return nil
	}
	if err != nil {
		return err
	}
	if entry.UsageCount < n {
		ix.log.Warn().
			Str("type", categoryType).
			Str("name", name).
			Int64("current", entry.UsageCount).
			Int64("by", n).
			Msg("category usage decrement floored at zero")
	}
	return tx.Model(&models.CategoryUsage{}).
		Where("category_type = ? AND category_name = ?", categoryType, name).
		Update("usage_count",
			gorm.Expr("CASE WHEN usage_count > ? THEN usage_count - ? ELSE 0 END", n, n)).
		Error
}

// listOrder puts the placeholder first, then busiest entries, then name.
// This ordering drives default option ordering in the admin UI and must not
// change.
func listOrder() string {
	return fmt.Sprintf(
		"CASE WHEN category_name = '%s' THEN 0 ELSE 1 END, usage_count DESC, category_name ASC",
		models.PlaceholderCategory,
	)
}

// List returns the active entries for one category type.
func (ix *Index) List(categoryType string) ([]models.CategoryUsage, error) {
	var entries []models.CategoryUsage
	err := ix.db.
		Where("category_type = ? AND is_active = ?", categoryType, true).
		Order(listOrder()).
		Find(&entries).Error
	return entries, err
}

// ListAll returns active entries for every type, each list ordered the same
// way as List.
func (ix *Index) ListAll() (map[string][]models.CategoryUsage, error) {
	var entries []models.CategoryUsage
	err := ix.db.
		Where("is_active = ?", true).
		Order("category_type ASC, " + listOrder()).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]models.CategoryUsage)
	for _, e := range entries {
		grouped[e.Type] = append(grouped[e.Type], e)
	}
	return grouped, nil
}

// Prune deactivates entries whose count has reached zero. With dryRun it only
// reports how many would be deactivated. This is the explicit cleanup step;
// ingestion and eviction never deactivate entries themselves.
func (ix *Index) Prune(dryRun bool) (int64, error) {
	if dryRun {
		var count int64
		err := ix.db.Model(&models.CategoryUsage{}).
			Where("usage_count = 0 AND is_active = ?", true).
			Count(&count).Error
		return count, err
	}
	res := ix.db.Model(&models.CategoryUsage{}).
		Where("usage_count = 0 AND is_active = ?", true).
		Update("is_active", false)
	if res.Error == nil && res.RowsAffected > 0 {
		ix.log.Info().Int64("deactivated", res.RowsAffected).Msg("pruned zero-count category entries")
	}
	return res.RowsAffected, res.Error
}
