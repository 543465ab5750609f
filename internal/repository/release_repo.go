package repository

import (
	"press-release-admin-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReleaseRepository struct {
	db *gorm.DB
}

func NewReleaseRepository(db *gorm.DB) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

func (r *ReleaseRepository) DB() *gorm.DB {
	return r.db
}

// InsertChunkTx writes one chunk of records inside the chunk transaction.
func (r *ReleaseRepository) InsertChunkTx(tx *gorm.DB, releases []*models.Release) error {
	if len(releases) == 0 {
		return nil
	}
	return tx.Create(&releases).Error
}

func (r *ReleaseRepository) CountByBatch(batchID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Release{}).Where("batch_id = ?", batchID).Count(&count).Error
	return count, err
}

// ListByBatch pages through a batch's records, cursor style.
func (r *ReleaseRepository) ListByBatch(batchID uuid.UUID, cursor string, limit int) ([]models.Release, string, bool, error) {
	var releases []models.Release
	query := r.db.
		Where("batch_id = ?", batchID).
		Order("id ASC").
		Limit(limit + 1)

	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	if err := query.Find(&releases).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := false
	var nextCursor string
	if len(releases) > limit {
		hasMore = true
		nextCursor = releases[limit-1].ID.String()
		releases = releases[:limit]
	}
	return releases, nextCursor, hasMore, nil
}

type categoryCountRow struct {
	CategoryType string
	CategoryName string
	Cnt          int64
}

// CategoryCountsByBatchTx aggregates how many of the batch's records
// reference each (type, name) pair, counting both free-text category columns
// plus the industry and listing-status labels. Eviction decrements the index
// by exactly these amounts.
func (r *ReleaseRepository) CategoryCountsByBatchTx(tx *gorm.DB, batchID uuid.UUID) (map[models.CategoryKey]int64, error) {
	var rows []categoryCountRow
	err := tx.Raw(`
		SELECT category_type, category_name, COUNT(*) AS cnt FROM (
			SELECT ? AS category_type, category1 AS category_name FROM releases WHERE batch_id = ?
			UNION ALL
			SELECT ?, category2 FROM releases WHERE batch_id = ?
			UNION ALL
			SELECT ?, industry FROM releases WHERE batch_id = ?
			UNION ALL
			SELECT ?, listing_status FROM releases WHERE batch_id = ?
		) AS batch_values
		GROUP BY category_type, category_name`,
		models.CategoryTypeCategory, batchID,
		models.CategoryTypeCategory, batchID,
		models.CategoryTypeIndustry, batchID,
		models.CategoryTypeListingStatus, batchID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.CategoryKey]int64, len(rows))
	for _, row := range rows {
		counts[models.CategoryKey{Type: row.CategoryType, Name: row.CategoryName}] = row.Cnt
	}
	return counts, nil
}

// DeleteBatchTx removes all of a batch's records inside the eviction
// transaction and reports how many went away.
func (r *ReleaseRepository) DeleteBatchTx(tx *gorm.DB, batchID uuid.UUID) (int64, error) {
	res := tx.Where("batch_id = ?", batchID).Delete(&models.Release{})
	return res.RowsAffected, res.Error
}
