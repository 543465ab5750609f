package models

import (
	"time"

	"github.com/google/uuid"
)

// Release is one ingested press-release company record. BatchID ties the
// record to its upload ledger entry and is immutable once written.
type Release struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	BatchID          uuid.UUID `gorm:"type:uuid;index"`
	DeliveryDate     time.Time `gorm:"column:delivery_date"`
	SourceURL        string
	Title            string
	Category1        string `gorm:"index"`
	Category2        string `gorm:"index"`
	Industry         string `gorm:"index"`
	CompanyName      string `gorm:"index"`
	Address          string
	Phone            string
	Representative   string
	ListingStatus    string
	Capital          int64
	EstablishedYear  int
	EstablishedMonth int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CategoryKeys returns every (type, name) pair this record contributes to
// the category index. Fields are expected to be canonicalized already, so
// the placeholder literal shows up here instead of empty strings.
func (r *Release) CategoryKeys() []CategoryKey {
	return []CategoryKey{
		{Type: CategoryTypeCategory, Name: r.Category1},
		{Type: CategoryTypeCategory, Name: r.Category2},
		{Type: CategoryTypeIndustry, Name: r.Industry},
		{Type: CategoryTypeListingStatus, Name: r.ListingStatus},
	}
}
