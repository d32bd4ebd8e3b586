package domain

import (
	"math"
	"time"
)

// SourceStrategy names the cascade tier that produced a value.
// Consumers should treat SourceStrategySynthetic values as placeholders.
type SourceStrategy string

const (
	SourceStrategyPrimaryAPI    SourceStrategy = "primary-api"
	SourceStrategyHTMLParse     SourceStrategy = "html-parse"
	SourceStrategyScriptExtract SourceStrategy = "script-extract"
	SourceStrategySynthetic     SourceStrategy = "synthetic-fallback"
)

// ExtractionResult is the output of one adapter invocation for one target.
type ExtractionResult struct {
	HotelKey       string         `json:"hotel_key"`
	Platform       Platform       `json:"platform"`
	Locator        string         `json:"locator,omitempty"`
	Rating         float64        `json:"rating"`
	ReviewCount    int            `json:"review_count"`
	ScaleMax       float64        `json:"scale_max"`
	SourceStrategy SourceStrategy `json:"source_strategy"`
	ExtractedAt    time.Time      `json:"extracted_at"`
}

// ReportMetadata is the header of a persisted platform report.
type ReportMetadata struct {
	Platform    Platform      `json:"platform"`
	TotalHotels int           `json:"total_hotels"`
	GeneratedAt time.Time     `json:"generated_at"`
	Summary     ReportSummary `json:"summary"`
}

// ReportSummary aggregates the results of one platform sweep.
type ReportSummary struct {
	AverageRating float64                `json:"average_rating"`
	TotalReviews  int                    `json:"total_reviews"`
	Strategies    map[SourceStrategy]int `json:"strategies"`
}

// PlatformRunReport is the full output of one platform's sweep in a job.
// It is immutable once built.
type PlatformRunReport struct {
	Metadata ReportMetadata     `json:"metadata"`
	Hotels   []ExtractionResult `json:"hotels"`
}

// NewPlatformRunReport builds a report over results in the order given.
func NewPlatformRunReport(platform Platform, results []ExtractionResult, generatedAt time.Time) *PlatformRunReport {
	hotels := make([]ExtractionResult, len(results))
	copy(hotels, results)

	return &PlatformRunReport{
		Metadata: ReportMetadata{
			Platform:    platform,
			TotalHotels: len(hotels),
			GeneratedAt: generatedAt,
			Summary:     summarize(hotels),
		},
		Hotels: hotels,
	}
}

// Platform returns the platform the report belongs to.
func (r *PlatformRunReport) Platform() Platform {
	return r.Metadata.Platform
}

// GeneratedAt returns when the sweep finished.
func (r *PlatformRunReport) GeneratedAt() time.Time {
	return r.Metadata.GeneratedAt
}

func summarize(results []ExtractionResult) ReportSummary {
	summary := ReportSummary{Strategies: make(map[SourceStrategy]int)}
	if len(results) == 0 {
		return summary
	}

	var ratingSum float64
	for _, r := range results {
		ratingSum += r.Rating
		summary.TotalReviews += r.ReviewCount
		summary.Strategies[r.SourceStrategy]++
	}
	summary.AverageRating = math.Round(ratingSum/float64(len(results))*100) / 100
	return summary
}
