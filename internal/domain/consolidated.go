package domain

import "time"

// PlatformRating is one platform's entry inside a ConsolidatedRecord.
type PlatformRating struct {
	Rating         float64        `json:"rating"`
	ReviewCount    int            `json:"review_count"`
	ScaleMax       float64        `json:"scale_max"`
	SourceStrategy SourceStrategy `json:"source_strategy"`
	ExtractedAt    time.Time      `json:"extracted_at"`
}

// ConsolidatedRecord is one hotel's merged view across platforms.
// A platform appears in Platforms only if it produced a result for the hotel.
type ConsolidatedRecord struct {
	HotelKey    string                      `json:"hotel_key"`
	DisplayName string                      `json:"display_name"`
	Platforms   map[Platform]PlatformRating `json:"platforms"`
}

// ConsolidatedMetadata is the header of a persisted consolidation run.
type ConsolidatedMetadata struct {
	GeneratedAt       time.Time  `json:"generated_at"`
	TotalHotels       int        `json:"total_hotels"`
	PlatformsIncluded []Platform `json:"platforms_included"`
}

// ConsolidatedReport is the persisted document of a consolidation run.
type ConsolidatedReport struct {
	Metadata ConsolidatedMetadata `json:"metadata"`
	Hotels   []ConsolidatedRecord `json:"hotels"`
}
