package ingestion

import (
	"time"

	"press-release-admin-backend/internal/models"
	"press-release-admin-backend/internal/services/catalog"

	"github.com/google/uuid"
)

// Row is one parsed press-release record handed over by the upstream
// producer (CSV parser or scraper). All fields arrive as produced; required
// fields are checked and categorizable fields canonicalized here.
type Row struct {
	DeliveryDate     string `json:"delivery_date"`
	SourceURL        string `json:"source_url"`
	Title            string `json:"title"`
	Category1        string `json:"category1"`
	Category2        string `json:"category2"`
	Industry         string `json:"industry"`
	CompanyName      string `json:"company_name"`
	Address          string `json:"address"`
	Phone            string `json:"phone"`
	Representative   string `json:"representative"`
	ListingStatus    string `json:"listing_status"`
	Capital          int64  `json:"capital"`
	EstablishedYear  int    `json:"established_year"`
	EstablishedMonth int    `json:"established_month"`
}

var deliveryDateLayouts = []string{"2006-01-02", "02-01-2006"}

// buildRelease validates required fields and converts a producer row into a
// record bound to its batch. A failure here counts against the batch's error
// total; it never aborts ingestion.
func buildRelease(batchID uuid.UUID, row Row) (*models.Release, *models.ValidationError) {
	if row.DeliveryDate == "" {
		return nil, &models.ValidationError{Field: "delivery_date", Reason: "is required"}
	}
	var deliveryDate time.Time
	var err error
	for _, layout := range deliveryDateLayouts {
		deliveryDate, err = time.Parse(layout, row.DeliveryDate)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, &models.ValidationError{Field: "delivery_date", Reason: "is not a valid date"}
	}
	if row.Title == "" {
		return nil, &models.ValidationError{Field: "title", Reason: "is required"}
	}
	if row.SourceURL == "" {
		return nil, &models.ValidationError{Field: "source_url", Reason: "is required"}
	}
	if row.CompanyName == "" {
		return nil, &models.ValidationError{Field: "company_name", Reason: "is required"}
	}

	category1 := catalog.Canonical(row.Category1)
	industry := catalog.Canonical(row.Industry)
	if row.Industry == "" {
		// The industry label is derived from the primary category when the
		// producer does not supply one.
		industry = category1
	}

	return &models.Release{
		ID:               uuid.New(),
		BatchID:          batchID,
		DeliveryDate:     deliveryDate,
		SourceURL:        row.SourceURL,
		Title:            row.Title,
		Category1:        category1,
		Category2:        catalog.Canonical(row.Category2),
		Industry:         industry,
		CompanyName:      row.CompanyName,
		Address:          row.Address,
		Phone:            row.Phone,
		Representative:   row.Representative,
		ListingStatus:    catalog.Canonical(row.ListingStatus),
		Capital:          row.Capital,
		EstablishedYear:  row.EstablishedYear,
		EstablishedMonth: row.EstablishedMonth,
		CreatedAt:        time.Now(),
	}, nil
}
