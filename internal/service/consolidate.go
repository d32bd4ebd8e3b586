package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/logger"
)

// ReportStore persists platform reports and consolidation runs.
type ReportStore interface {
	SaveReport(ctx context.Context, report *domain.PlatformRunReport) (string, error)
	LatestReport(ctx context.Context, platform domain.Platform) (*domain.PlatformRunReport, error)
	SaveConsolidated(ctx context.Context, report *domain.ConsolidatedReport) (string, error)
	URL(key string) string
}

// ConsolidationResult is a persisted consolidation run.
type ConsolidationResult struct {
	Report   *domain.ConsolidatedReport
	Key      string
	Location string
}

// ConsolidationService merges platform reports into one record per hotel.
type ConsolidationService struct {
	catalog *Catalog
	reports ReportStore
	logger  *logger.Logger
	now     func() time.Time
}

// NewConsolidationService creates a new consolidation service.
// Parameters:
//   - catalog: configured hotels, used for display names and output order.
//   - reports: store for loading platform reports and saving consolidation runs.
//   - log: logger instance.
//
// Returns:
//   - *ConsolidationService: initialized service.
func NewConsolidationService(catalog *Catalog, reports ReportStore, log *logger.Logger) *ConsolidationService {
	return &ConsolidationService{
		catalog: catalog,
		reports: reports,
		logger:  log,
		now:     time.Now,
	}
}

func (s *ConsolidationService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Consolidate groups report rows by hotel key. When two reports cover the
// same platform the one generated last wins. Hotels follow catalog order;
// keys unknown to the catalog come after, sorted, labelled with their key.
func (s *ConsolidationService) Consolidate(reports []*domain.PlatformRunReport) []domain.ConsolidatedRecord {
	latest := latestPerPlatform(reports)

	byKey := make(map[string]*domain.ConsolidatedRecord)
	for _, platform := range sortedPlatforms(latest) {
		for _, row := range latest[platform].Hotels {
			rec, ok := byKey[row.HotelKey]
			if !ok {
				rec = &domain.ConsolidatedRecord{
					HotelKey:    row.HotelKey,
					DisplayName: row.HotelKey,
					Platforms:   make(map[domain.Platform]domain.PlatformRating),
				}
				if name, known := s.catalog.DisplayName(row.HotelKey); known {
					rec.DisplayName = name
				}
				byKey[row.HotelKey] = rec
			}
			if _, seen := rec.Platforms[platform]; seen {
				continue
			}
			rec.Platforms[platform] = domain.PlatformRating{
				Rating:         row.Rating,
				ReviewCount:    row.ReviewCount,
				ScaleMax:       row.ScaleMax,
				SourceStrategy: row.SourceStrategy,
				ExtractedAt:    row.ExtractedAt,
			}
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, iKnown := s.catalog.position(keys[i])
		pj, jKnown := s.catalog.position(keys[j])
		switch {
		case iKnown && jKnown:
			return pi < pj
		case iKnown != jKnown:
			return iKnown
		default:
			return keys[i] < keys[j]
		}
	})

	records := make([]domain.ConsolidatedRecord, 0, len(keys))
	for _, k := range keys {
		records = append(records, *byKey[k])
	}
	return records
}

// ConsolidateLatest merges the most recent persisted report of each platform.
// An empty platforms list means every known platform. It returns
// domain.ErrNoReports when none of them has a persisted report.
func (s *ConsolidationService) ConsolidateLatest(ctx context.Context, platforms []domain.Platform) (*ConsolidationResult, error) {
	if len(platforms) == 0 {
		platforms = domain.AllPlatforms
	}

	var reports []*domain.PlatformRunReport
	for _, p := range platforms {
		report, err := s.reports.LatestReport(ctx, p)
		if errors.Is(err, domain.ErrNoReports) {
			s.log(ctx).WithField(logger.FieldPlatform, p).Debug("No persisted report")
			continue
		}
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return s.ConsolidateReports(ctx, reports)
}

// ConsolidateReports merges the given reports and persists the result.
func (s *ConsolidationService) ConsolidateReports(ctx context.Context, reports []*domain.PlatformRunReport) (*ConsolidationResult, error) {
	if len(reports) == 0 {
		return nil, domain.ErrNoReports
	}

	start := time.Now()
	records := s.Consolidate(reports)
	report := &domain.ConsolidatedReport{
		Metadata: domain.ConsolidatedMetadata{
			GeneratedAt:       s.now().UTC(),
			TotalHotels:       len(records),
			PlatformsIncluded: sortedPlatforms(latestPerPlatform(reports)),
		},
		Hotels: records,
	}

	key, err := s.reports.SaveConsolidated(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("failed to persist consolidation: %w", err)
	}

	logger.With(logger.Fields{
		"key": key,
	}).WithCount(len(records)).Since(start).Info(ctx, "Consolidated platform reports")

	return &ConsolidationResult{
		Report:   report,
		Key:      key,
		Location: s.reports.URL(key),
	}, nil
}

func latestPerPlatform(reports []*domain.PlatformRunReport) map[domain.Platform]*domain.PlatformRunReport {
	latest := make(map[domain.Platform]*domain.PlatformRunReport, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		cur, ok := latest[r.Platform()]
		if !ok || r.GeneratedAt().After(cur.GeneratedAt()) {
			latest[r.Platform()] = r
		}
	}
	return latest
}

// sortedPlatforms lists known platforms in their canonical order, then any others by name.
func sortedPlatforms(m map[domain.Platform]*domain.PlatformRunReport) []domain.Platform {
	out := make([]domain.Platform, 0, len(m))
	for _, p := range domain.AllPlatforms {
		if _, ok := m[p]; ok {
			out = append(out, p)
		}
	}
	var extra []domain.Platform
	for p := range m {
		if !p.IsKnown() {
			extra = append(extra, p)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
