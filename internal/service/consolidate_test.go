package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/logger"
	"github.com/timmy/hotelrank/internal/repository"
	"github.com/timmy/hotelrank/internal/storage"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func row(platform domain.Platform, key string, rating float64, reviews int) domain.ExtractionResult {
	return domain.ExtractionResult{
		HotelKey:       key,
		Platform:       platform,
		Rating:         rating,
		ReviewCount:    reviews,
		ScaleMax:       10,
		SourceStrategy: domain.SourceStrategyHTMLParse,
		ExtractedAt:    t0,
	}
}

func newConsolidator(t *testing.T) (*ConsolidationService, *repository.ReportRepository) {
	t.Helper()
	objects, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	reports := repository.NewReportRepository(objects)
	s := NewConsolidationService(testCatalog(), reports, logger.GetDefault())
	s.now = func() time.Time { return t0 }
	return s, reports
}

func TestConsolidateGroupsByHotelKey(t *testing.T) {
	s, _ := newConsolidator(t)

	records := s.Consolidate([]*domain.PlatformRunReport{
		domain.NewPlatformRunReport(domain.PlatformGoogle, []domain.ExtractionResult{
			row(domain.PlatformGoogle, "salinas", 4.6, 900),
		}, t0),
		domain.NewPlatformRunReport(domain.PlatformBooking, []domain.ExtractionResult{
			row(domain.PlatformBooking, "praia", 8.2, 300),
			row(domain.PlatformBooking, "salinas", 9.1, 1200),
		}, t0),
	})

	require.Len(t, records, 2)
	assert.Equal(t, "salinas", records[0].HotelKey)
	assert.Equal(t, "Hotel Salinas", records[0].DisplayName)
	assert.Equal(t, 9.1, records[0].Platforms[domain.PlatformBooking].Rating)
	assert.Equal(t, 900, records[0].Platforms[domain.PlatformGoogle].ReviewCount)

	// a platform without a row for the hotel is omitted, never zero-filled
	assert.Equal(t, "praia", records[1].HotelKey)
	assert.Len(t, records[1].Platforms, 1)
	_, hasGoogle := records[1].Platforms[domain.PlatformGoogle]
	assert.False(t, hasGoogle)
}

func TestConsolidateNewestReportWins(t *testing.T) {
	s, _ := newConsolidator(t)

	older := domain.NewPlatformRunReport(domain.PlatformBooking, []domain.ExtractionResult{
		row(domain.PlatformBooking, "salinas", 7.0, 10),
		row(domain.PlatformBooking, "brisa", 7.5, 20),
	}, t0)
	newer := domain.NewPlatformRunReport(domain.PlatformBooking, []domain.ExtractionResult{
		row(domain.PlatformBooking, "salinas", 9.0, 15),
	}, t0.Add(time.Hour))

	records := s.Consolidate([]*domain.PlatformRunReport{newer, older})
	require.Len(t, records, 1)
	assert.Equal(t, 9.0, records[0].Platforms[domain.PlatformBooking].Rating)
}

func TestConsolidateUnknownKeysFollowCatalog(t *testing.T) {
	s, _ := newConsolidator(t)

	records := s.Consolidate([]*domain.PlatformRunReport{
		domain.NewPlatformRunReport(domain.PlatformBooking, []domain.ExtractionResult{
			row(domain.PlatformBooking, "zeta", 8, 1),
			row(domain.PlatformBooking, "alpha", 8, 1),
			row(domain.PlatformBooking, "brisa", 8, 1),
		}, t0),
	})

	require.Len(t, records, 3)
	assert.Equal(t, []string{"brisa", "alpha", "zeta"}, []string{records[0].HotelKey, records[1].HotelKey, records[2].HotelKey})
	assert.Equal(t, "alpha", records[1].DisplayName)
}

func TestConsolidateIsDeterministic(t *testing.T) {
	s, _ := newConsolidator(t)
	reports := []*domain.PlatformRunReport{
		domain.NewPlatformRunReport(domain.PlatformTripAdvisor, []domain.ExtractionResult{
			row(domain.PlatformTripAdvisor, "brisa", 4.5, 50),
			row(domain.PlatformTripAdvisor, "salinas", 4.7, 80),
		}, t0),
		domain.NewPlatformRunReport(domain.PlatformBooking, []domain.ExtractionResult{
			row(domain.PlatformBooking, "salinas", 9.1, 1200),
		}, t0),
	}

	first, err := json.Marshal(s.Consolidate(reports))
	require.NoError(t, err)
	second, err := json.Marshal(s.Consolidate(reports))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestConsolidateLatest(t *testing.T) {
	ctx := context.Background()
	s, reports := newConsolidator(t)

	_, err := s.ConsolidateLatest(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrNoReports)

	_, err = reports.SaveReport(ctx, domain.NewPlatformRunReport(domain.PlatformBooking, []domain.ExtractionResult{
		row(domain.PlatformBooking, "salinas", 9.1, 1200),
	}, t0))
	require.NoError(t, err)

	result, err := s.ConsolidateLatest(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Platform{domain.PlatformBooking}, result.Report.Metadata.PlatformsIncluded)
	assert.Equal(t, 1, result.Report.Metadata.TotalHotels)
	assert.Equal(t, "consolidated/20260301T120000.000000000Z.json", result.Key)
	assert.NotEmpty(t, result.Location)

	_, err = s.ConsolidateLatest(ctx, []domain.Platform{domain.PlatformGoogle})
	assert.ErrorIs(t, err, domain.ErrNoReports)
}
