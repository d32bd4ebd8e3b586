package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/storage"
)

const (
	reportsPrefix      = "reports/"
	consolidatedPrefix = "consolidated/"

	// keyTimeLayout sorts lexicographically in time order.
	keyTimeLayout = "20060102T150405.000000000Z"
)

// ReportRepository persists platform reports and consolidation runs as JSON
// documents in object storage.
type ReportRepository struct {
	storage storage.ObjectStorage
}

// NewReportRepository creates a report repository over the given storage.
func NewReportRepository(s storage.ObjectStorage) *ReportRepository {
	return &ReportRepository{storage: s}
}

// ReportKey returns the storage key of a platform report generated at t.
func ReportKey(platform domain.Platform, t time.Time) string {
	return reportsPrefix + string(platform) + "/" + t.UTC().Format(keyTimeLayout) + ".json"
}

// ConsolidatedKey returns the storage key of a consolidation run generated at t.
func ConsolidatedKey(t time.Time) string {
	return consolidatedPrefix + t.UTC().Format(keyTimeLayout) + ".json"
}

// SaveReport writes a platform report and returns its key.
func (r *ReportRepository) SaveReport(ctx context.Context, report *domain.PlatformRunReport) (string, error) {
	key := ReportKey(report.Platform(), report.GeneratedAt())
	if err := r.put(ctx, key, report); err != nil {
		return "", fmt.Errorf("failed to save %s report: %w", report.Platform(), err)
	}
	return key, nil
}

// LatestReport loads the most recent report of a platform.
// It returns domain.ErrNoReports when nothing was persisted for it.
func (r *ReportRepository) LatestReport(ctx context.Context, platform domain.Platform) (*domain.PlatformRunReport, error) {
	key, err := r.latestKey(ctx, reportsPrefix+string(platform)+"/")
	if err != nil {
		return nil, err
	}

	var report domain.PlatformRunReport
	if err := r.get(ctx, key, &report); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return &report, nil
}

// SaveConsolidated writes a consolidation run and returns its key.
func (r *ReportRepository) SaveConsolidated(ctx context.Context, report *domain.ConsolidatedReport) (string, error) {
	key := ConsolidatedKey(report.Metadata.GeneratedAt)
	if err := r.put(ctx, key, report); err != nil {
		return "", fmt.Errorf("failed to save consolidated report: %w", err)
	}
	return key, nil
}

// LatestConsolidated loads the most recent consolidation run.
func (r *ReportRepository) LatestConsolidated(ctx context.Context) (*domain.ConsolidatedReport, error) {
	key, err := r.latestKey(ctx, consolidatedPrefix)
	if err != nil {
		return nil, err
	}

	var report domain.ConsolidatedReport
	if err := r.get(ctx, key, &report); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return &report, nil
}

// URL returns where a stored document can be fetched from.
func (r *ReportRepository) URL(key string) string {
	return r.storage.URL(key)
}

func (r *ReportRepository) latestKey(ctx context.Context, prefix string) (string, error) {
	keys, err := r.storage.List(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		if path.Ext(keys[i]) == ".json" {
			return keys[i], nil
		}
	}
	return "", domain.ErrNoReports
}

func (r *ReportRepository) put(ctx context.Context, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return r.storage.Put(ctx, key, data, "application/json")
}

func (r *ReportRepository) get(ctx context.Context, key string, v interface{}) error {
	data, err := r.storage.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
