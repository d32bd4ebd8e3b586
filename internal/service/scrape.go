package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/logger"
	"github.com/timmy/hotelrank/internal/repository"
	"github.com/timmy/hotelrank/internal/source"
)

// ScrapeRequest names the platforms and hotels of a job.
// Empty lists mean every registered platform and every configured hotel.
type ScrapeRequest struct {
	Platforms []domain.Platform
	Hotels    []string
}

// ScrapeConfig holds configuration for the scrape service.
type ScrapeConfig struct {
	AutoConsolidate bool
}

// ScrapeService orchestrates scrape jobs: one goroutine per platform,
// hotels of a platform in catalog order.
type ScrapeService struct {
	jobs            repository.JobStore
	reports         ReportStore
	registry        *source.Registry
	catalog         *Catalog
	consolidator    *ConsolidationService
	logger          *logger.Logger
	autoConsolidate bool

	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	running sync.WaitGroup
	// persist is held shared while a report is saved and exclusively while a
	// job is canceled and deleted, so a deleted job never persists a report.
	persist sync.RWMutex
}

// NewScrapeService creates a new scrape service.
// Parameters:
//   - jobs: store holding job state.
//   - reports: store persisting finished platform reports.
//   - registry: platform adapters.
//   - catalog: configured hotels.
//   - consolidator: service used for auto-consolidation.
//   - log: logger instance.
//   - cfg: scrape configuration settings.
//
// Returns:
//   - *ScrapeService: initialized service.
func NewScrapeService(
	jobs repository.JobStore,
	reports ReportStore,
	registry *source.Registry,
	catalog *Catalog,
	consolidator *ConsolidationService,
	log *logger.Logger,
	cfg *ScrapeConfig,
) *ScrapeService {
	return &ScrapeService{
		jobs:            jobs,
		reports:         reports,
		registry:        registry,
		catalog:         catalog,
		consolidator:    consolidator,
		logger:          log,
		autoConsolidate: cfg.AutoConsolidate,
		now:             time.Now,
		newID:           uuid.NewString,
		cancels:         make(map[string]context.CancelFunc),
	}
}

func (s *ScrapeService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// StartJob validates req, records a new job and runs it in the background.
// The job outlives ctx; it stops only when deleted or on Shutdown.
func (s *ScrapeService) StartJob(ctx context.Context, req ScrapeRequest) (*domain.Job, error) {
	job, err := s.createJob(ctx, req)
	if err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(logger.SetJobID(context.WithoutCancel(ctx), job.ID))
	s.track(job.ID, cancel)

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		defer s.untrack(job.ID)
		s.execute(jobCtx, job.ID, req.Hotels)
	}()

	return job, nil
}

// RunJob validates req and runs the job to completion.
func (s *ScrapeService) RunJob(ctx context.Context, req ScrapeRequest) (*domain.Job, error) {
	job, err := s.createJob(ctx, req)
	if err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(logger.SetJobID(ctx, job.ID))
	s.track(job.ID, cancel)
	defer s.untrack(job.ID)

	s.execute(jobCtx, job.ID, req.Hotels)
	return s.jobs.Get(ctx, job.ID)
}

// GetJob returns a snapshot of a job.
func (s *ScrapeService) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return s.jobs.Get(ctx, id)
}

// ListJobs returns every job, newest first.
func (s *ScrapeService) ListJobs(ctx context.Context) ([]*domain.Job, error) {
	return s.jobs.List(ctx)
}

// DeleteJob removes a job. A running job is canceled and its results are discarded.
func (s *ScrapeService) DeleteJob(ctx context.Context, id string) error {
	s.persist.Lock()
	defer s.persist.Unlock()

	if _, err := s.jobs.Get(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}

	if err := s.jobs.Delete(ctx, id); err != nil {
		return err
	}

	s.log(ctx).WithField(logger.FieldJobID, id).Info("Job deleted")
	return nil
}

// Wait blocks until every background job has returned.
func (s *ScrapeService) Wait() {
	s.running.Wait()
}

// Shutdown cancels background jobs and waits for them until ctx is done.
func (s *ScrapeService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Platforms returns the registered platforms.
func (s *ScrapeService) Platforms() []domain.Platform {
	return s.registry.Platforms()
}

func (s *ScrapeService) track(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancels[id] = cancel
	s.mu.Unlock()
}

func (s *ScrapeService) untrack(id string) {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	delete(s.cancels, id)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *ScrapeService) createJob(ctx context.Context, req ScrapeRequest) (*domain.Job, error) {
	platforms, err := s.resolvePlatforms(req.Platforms)
	if err != nil {
		return nil, err
	}
	for _, key := range req.Hotels {
		if !s.catalog.Has(key) {
			return nil, fmt.Errorf("%w: unknown hotel %q", domain.ErrInvalidRequest, key)
		}
	}

	job := domain.NewJob(s.newID(), platforms, req.Hotels, s.now().UTC())
	if err := s.jobs.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID: job.ID,
		"platforms":       platforms,
		"hotels":          len(req.Hotels),
	}).Info("Job created")

	return job, nil
}

func (s *ScrapeService) resolvePlatforms(requested []domain.Platform) ([]domain.Platform, error) {
	if len(requested) == 0 {
		all := s.registry.Platforms()
		if len(all) == 0 {
			return nil, fmt.Errorf("%w: no platforms registered", domain.ErrInvalidRequest)
		}
		return all, nil
	}

	seen := make(map[domain.Platform]bool, len(requested))
	platforms := make([]domain.Platform, 0, len(requested))
	for _, p := range requested {
		if _, err := s.registry.Get(p); err != nil {
			return nil, fmt.Errorf("%w: unknown platform %q", domain.ErrInvalidRequest, p)
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		platforms = append(platforms, p)
	}
	return platforms, nil
}

// execute runs every platform of a job in parallel, then finishes the job.
func (s *ScrapeService) execute(ctx context.Context, jobID string, hotels []string) {
	start := time.Now()
	job, err := s.jobs.Update(ctx, jobID, func(job *domain.Job) error {
		startedAt := s.now().UTC()
		job.State = domain.JobStateRunning
		job.StartedAt = &startedAt
		return nil
	})
	if err != nil {
		s.log(ctx).WithError(err).Warn("Job vanished before it started")
		return
	}

	var wg sync.WaitGroup
	for _, platform := range job.Platforms {
		wg.Add(1)
		go func(platform domain.Platform) {
			defer wg.Done()
			s.runPlatform(logger.SetPlatform(ctx, string(platform)), jobID, platform, hotels)
		}(platform)
	}
	wg.Wait()

	if ctx.Err() != nil {
		if _, err := s.jobs.Get(context.WithoutCancel(ctx), jobID); errors.Is(err, domain.ErrJobNotFound) {
			s.log(ctx).Info("Job deleted while running, results discarded")
			return
		}
	}

	s.finish(context.WithoutCancel(ctx), jobID, start)
}

func (s *ScrapeService) finish(ctx context.Context, jobID string, start time.Time) {
	var consolidated domain.ConsolidatedRecords
	if s.autoConsolidate && s.consolidator != nil {
		current, err := s.jobs.Get(ctx, jobID)
		if err != nil {
			s.log(ctx).WithError(err).Warn("Job vanished before it finished")
			return
		}
		if reports := current.ReportList(); len(reports) > 0 {
			result, err := s.consolidator.ConsolidateReports(ctx, reports)
			if err != nil {
				s.log(ctx).WithError(err).Error("Auto-consolidation failed")
			} else {
				consolidated = result.Report.Hotels
			}
		}
	}

	job, err := s.jobs.Update(ctx, jobID, func(job *domain.Job) error {
		if consolidated != nil {
			job.Consolidated = consolidated
		}
		if !job.AllPlatformsDone() {
			for _, p := range job.Platforms {
				if !job.PlatformStatus[p].IsTerminal() {
					job.SetPlatformStatus(p, domain.PlatformStatusFailed, "sweep interrupted")
				}
			}
		}
		job.Finish(s.now().UTC())
		return nil
	})
	if err != nil {
		s.log(ctx).WithError(err).Warn("Failed to finish job")
		return
	}

	logger.With(logger.Fields{
		"state":    job.State,
		"reports":  len(job.Reports),
		"failures": len(job.PlatformErrors),
	}).Since(start).Info(ctx, "Job finished")
}

// runPlatform sweeps the job's hotels on one platform and records the outcome.
func (s *ScrapeService) runPlatform(ctx context.Context, jobID string, platform domain.Platform, hotels []string) {
	start := time.Now()
	s.setStatus(ctx, jobID, platform, domain.PlatformStatusRunning, nil)

	report, err := s.sweep(ctx, platform, hotels)
	if err != nil {
		s.log(ctx).WithError(err).Warn("Platform sweep failed")
		s.setStatus(ctx, jobID, platform, domain.PlatformStatusFailed, err)
		return
	}

	if !s.saveReport(ctx, jobID, platform, report) {
		return
	}

	_, err = s.jobs.Update(context.WithoutCancel(ctx), jobID, func(job *domain.Job) error {
		job.AttachReport(report)
		return nil
	})
	if err != nil {
		s.log(ctx).WithError(err).Debug("Dropping platform report")
		return
	}

	logger.With(logger.Fields{
		"average_rating": report.Metadata.Summary.AverageRating,
		"strategies":     report.Metadata.Summary.Strategies,
	}).WithCount(len(report.Hotels)).Since(start).Info(ctx, "Platform sweep finished")
}

// saveReport persists a finished sweep unless the job was canceled meanwhile.
// It reports whether the sweep result should still be attached to the job.
func (s *ScrapeService) saveReport(ctx context.Context, jobID string, platform domain.Platform, report *domain.PlatformRunReport) bool {
	s.persist.RLock()
	defer s.persist.RUnlock()

	if err := ctx.Err(); err != nil {
		s.log(ctx).Debug("Dropping platform report of canceled job")
		s.setStatus(ctx, jobID, platform, domain.PlatformStatusFailed, fmt.Errorf("sweep canceled: %w", err))
		return false
	}

	if key, err := s.reports.SaveReport(ctx, report); err != nil {
		s.log(ctx).WithError(err).Error("Failed to persist platform report")
	} else {
		s.log(ctx).WithField("key", key).Debug("Platform report persisted")
	}
	return true
}

func (s *ScrapeService) sweep(ctx context.Context, platform domain.Platform, hotels []string) (*domain.PlatformRunReport, error) {
	adapter, err := s.registry.Get(platform)
	if err != nil {
		return nil, &domain.ConfigurationError{Platform: platform, Reason: err.Error()}
	}

	targets := s.catalog.Targets(platform, hotels)
	if len(targets) == 0 {
		return nil, &domain.ConfigurationError{Platform: platform, Reason: "no hotels configured"}
	}
	for _, t := range targets {
		if err := adapter.ValidateLocator(t.Locator); err != nil {
			return nil, &domain.ConfigurationError{
				Platform: platform,
				Reason:   fmt.Sprintf("hotel %s: %v", t.HotelKey, err),
			}
		}
	}

	results := make([]domain.ExtractionResult, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sweep canceled: %w", err)
		}
		results = append(results, adapter.Extract(logger.SetHotelKey(ctx, t.HotelKey), t))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sweep canceled: %w", err)
	}

	return domain.NewPlatformRunReport(platform, results, s.now().UTC()), nil
}

func (s *ScrapeService) setStatus(ctx context.Context, jobID string, platform domain.Platform, status domain.PlatformStatus, cause error) {
	_, err := s.jobs.Update(context.WithoutCancel(ctx), jobID, func(job *domain.Job) error {
		msg := ""
		if cause != nil {
			msg = cause.Error()
		}
		job.SetPlatformStatus(platform, status, msg)
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrJobNotFound) {
		s.log(ctx).WithError(err).Warn("Failed to update platform status")
	}
}
