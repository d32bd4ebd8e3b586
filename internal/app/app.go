// Package app wires configuration into the services shared by the API
// server and the scrape CLI.
package app

import (
	"context"
	"fmt"

	"github.com/timmy/hotelrank/internal/config"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/fetch"
	"github.com/timmy/hotelrank/internal/logger"
	"github.com/timmy/hotelrank/internal/repository"
	"github.com/timmy/hotelrank/internal/service"
	"github.com/timmy/hotelrank/internal/source"
	"github.com/timmy/hotelrank/internal/source/booking"
	"github.com/timmy/hotelrank/internal/source/decolar"
	"github.com/timmy/hotelrank/internal/source/google"
	"github.com/timmy/hotelrank/internal/source/tripadvisor"
	"github.com/timmy/hotelrank/internal/storage"
)

// App holds the initialized services.
type App struct {
	Config        *config.Config
	Storage       storage.ObjectStorage
	Reports       *repository.ReportRepository
	Jobs          repository.JobStore
	Registry      *source.Registry
	Catalog       *service.Catalog
	Scrape        *service.ScrapeService
	Consolidation *service.ConsolidationService

	closers []func() error
}

// New initializes storage, the job store and the services.
// Parameters:
//   - ctx: context for backend initialization.
//   - cfg: validated configuration.
//   - log: logger instance.
// Returns:
//   - *App: wired application.
//   - error: non-nil if storage or database initialization fails.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg}

	objectStorage, err := storage.NewStorage(&storage.Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
		LocalPath: cfg.Storage.LocalPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
	}
	a.Storage = objectStorage
	a.Reports = repository.NewReportRepository(objectStorage)

	switch cfg.Jobs.Store {
	case "database":
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)
		a.Jobs = repository.NewJobRepository(db)
	default:
		a.Jobs = repository.NewMemoryJobStore()
	}

	a.Registry = NewRegistry(cfg)
	a.Catalog = service.CatalogFromConfig(cfg.Hotels)
	a.Consolidation = service.NewConsolidationService(a.Catalog, a.Reports, log)
	a.Scrape = service.NewScrapeService(a.Jobs, a.Reports, a.Registry, a.Catalog, a.Consolidation, log,
		&service.ScrapeConfig{AutoConsolidate: cfg.Scraper.AutoConsolidate})

	log.WithFields(logger.Fields{
		"storage":   cfg.Storage.Type,
		"job_store": cfg.Jobs.Store,
		"platforms": a.Registry.Platforms(),
		"hotels":    len(a.Catalog.Hotels()),
	}).Info("Application initialized")

	return a, nil
}

// NewRegistry builds one adapter per platform sharing a single request client.
func NewRegistry(cfg *config.Config) *source.Registry {
	client := fetch.NewClient(fetch.Config{
		Timeout:           cfg.Scraper.Timeout,
		MaxRetries:        cfg.Scraper.MaxRetries,
		RequestsPerSecond: cfg.Scraper.RequestsPerSecond,
	})
	taMin, taMax := cfg.Scraper.DelayFor(string(domain.PlatformTripAdvisor))
	bkMin, bkMax := cfg.Scraper.DelayFor(string(domain.PlatformBooking))
	ggMin, ggMax := cfg.Scraper.DelayFor(string(domain.PlatformGoogle))
	dcMin, dcMax := cfg.Scraper.DelayFor(string(domain.PlatformDecolar))

	return source.NewRegistry(
		tripadvisor.NewAdapter(client, tripadvisor.Config{
			BaseURL:  cfg.Platforms.TripAdvisor.BaseURL,
			GeoID:    cfg.Platforms.TripAdvisor.GeoID,
			MinDelay: taMin,
			MaxDelay: taMax,
		}),
		booking.NewAdapter(client, booking.Config{MinDelay: bkMin, MaxDelay: bkMax}),
		google.NewAdapter(client, google.Config{
			APIKey:    cfg.Platforms.Google.APIKey,
			PlacesURL: cfg.Platforms.Google.PlacesURL,
			MapsURL:   cfg.Platforms.Google.MapsURL,
			Language:  cfg.Platforms.Google.Language,
			MinDelay:  ggMin,
			MaxDelay:  ggMax,
		}),
		decolar.NewAdapter(client, decolar.Config{MinDelay: dcMin, MaxDelay: dcMax}),
	)
}

// Close releases database handles.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
