package models

import "time"

// PlaceholderCategory is the canonical stored value for an empty
// categorizable field. Rows never store empty or null category values, so
// the index and its ordering rule only ever deal with this one literal.
const PlaceholderCategory = "unspecified"

const (
	CategoryTypeCategory      = "category"
	CategoryTypeIndustry      = "industry"
	CategoryTypeListingStatus = "listing_status"
)

// CategoryUsage is one entry of the shared category index: how many live
// records currently reference (Type, Name) across all batches. Counts reach
// zero without the row being deleted; deactivation is a separate, explicit
// pruning step.
type CategoryUsage struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Type       string `gorm:"column:category_type;uniqueIndex:idx_category_type_name"`
	Name       string `gorm:"column:category_name;uniqueIndex:idx_category_type_name"`
	UsageCount int64  `gorm:"not null;default:0"`
	IsActive   bool   `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CategoryKey addresses one index entry.
type CategoryKey struct {
	Type string
	Name string
}
