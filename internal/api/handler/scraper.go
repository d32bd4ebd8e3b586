package handler

import (
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/hotelrank/internal/api/middleware"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/logger"
	"github.com/timmy/hotelrank/internal/service"
)

// ScraperHandler handles the scrape job endpoints.
type ScraperHandler struct {
	scrapeService        *service.ScrapeService
	consolidationService *service.ConsolidationService
	now                  func() time.Time
}

// NewScraperHandler creates a new scraper handler.
// Parameters:
//   - scrapeService: job orchestrator.
//   - consolidationService: consolidator for persisted reports.
// Returns:
//   - *ScraperHandler: initialized handler.
func NewScraperHandler(scrapeService *service.ScrapeService, consolidationService *service.ConsolidationService) *ScraperHandler {
	return &ScraperHandler{
		scrapeService:        scrapeService,
		consolidationService: consolidationService,
		now:                  time.Now,
	}
}

// StartRequest is the body of POST /scraper/start.
type StartRequest struct {
	Sites  []domain.Platform `json:"sites"`
	Hotels []string          `json:"hotels"`
}

// ConsolidateRequest is the optional body of POST /scraper/consolidate.
type ConsolidateRequest struct {
	Sites []domain.Platform `json:"sites"`
}

// JobStatusResponse describes the progress of a job.
type JobStatusResponse struct {
	JobID          string                   `json:"job_id"`
	Status         domain.JobState          `json:"status"`
	Platforms      domain.PlatformList      `json:"platforms"`
	Hotels         domain.StringArray       `json:"hotels,omitempty"`
	PlatformStatus domain.PlatformStatusMap `json:"platform_status"`
	PlatformErrors domain.PlatformErrorMap  `json:"platform_errors,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	StartedAt      *time.Time               `json:"started_at,omitempty"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty"`
	ElapsedSeconds float64                  `json:"elapsed_time_seconds"`
}

// JobResultResponse carries the reports of a job. Complete is false while
// some platforms are still running.
type JobResultResponse struct {
	JobID        string                                        `json:"job_id"`
	Status       domain.JobState                               `json:"status"`
	Complete     bool                                          `json:"complete"`
	Results      map[domain.Platform]*domain.PlatformRunReport `json:"results"`
	Consolidated []domain.ConsolidatedRecord                   `json:"consolidated,omitempty"`
}

// JobSummary is one entry of GET /scraper/jobs.
type JobSummary struct {
	JobID       string              `json:"job_id"`
	Status      domain.JobState     `json:"status"`
	Platforms   domain.PlatformList `json:"platforms"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// Start handles POST /scraper/start.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ScraperHandler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	job, err := h.scrapeService.StartJob(c.Request.Context(), service.ScrapeRequest{
		Platforms: req.Sites,
		Hotels:    req.Hotels,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":     job.ID,
		"status":     job.State,
		"platforms":  job.Platforms,
		"created_at": job.CreatedAt,
	})
}

// Status handles GET /scraper/status/:job_id.
func (h *ScraperHandler) Status(c *gin.Context) {
	job, err := h.scrapeService.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, JobStatusResponse{
		JobID:          job.ID,
		Status:         job.State,
		Platforms:      job.Platforms,
		Hotels:         job.Hotels,
		PlatformStatus: job.PlatformStatus,
		PlatformErrors: job.PlatformErrors,
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
		ElapsedSeconds: h.elapsed(job),
	})
}

// Result handles GET /scraper/result/:job_id.
// A running job without any finished platform yields 409.
func (h *ScraperHandler) Result(c *gin.Context) {
	job, err := h.scrapeService.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if !job.State.IsTerminal() && len(job.Reports) == 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "job has no results yet",
			"status": job.State,
		})
		return
	}

	results := make(map[domain.Platform]*domain.PlatformRunReport, len(job.Reports))
	for _, r := range job.ReportList() {
		results[r.Platform()] = r
	}

	c.JSON(http.StatusOK, JobResultResponse{
		JobID:        job.ID,
		Status:       job.State,
		Complete:     job.State.IsTerminal(),
		Results:      results,
		Consolidated: job.Consolidated,
	})
}

// Consolidate handles POST /scraper/consolidate.
func (h *ScraperHandler) Consolidate(c *gin.Context) {
	var req ConsolidateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	for _, p := range req.Sites {
		if !p.IsKnown() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown site: " + string(p)})
			return
		}
	}

	result, err := h.consolidationService.ConsolidateLatest(c.Request.Context(), req.Sites)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "consolidation completed",
		"result_file": result.Key,
		"location":    result.Location,
		"metadata":    result.Report.Metadata,
		"hotels":      result.Report.Hotels,
	})
}

// ListJobs handles GET /scraper/jobs.
func (h *ScraperHandler) ListJobs(c *gin.Context) {
	jobs, err := h.scrapeService.ListJobs(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, JobSummary{
			JobID:       job.ID,
			Status:      job.State,
			Platforms:   job.Platforms,
			CreatedAt:   job.CreatedAt,
			CompletedAt: job.CompletedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_jobs": len(summaries),
		"jobs":       summaries,
	})
}

// DeleteJob handles DELETE /scraper/jobs/:job_id.
func (h *ScraperHandler) DeleteJob(c *gin.Context) {
	id := c.Param("job_id")
	if err := h.scrapeService.DeleteJob(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "job deleted",
		"job_id":  id,
	})
}

func (h *ScraperHandler) elapsed(job *domain.Job) float64 {
	from := job.CreatedAt
	if job.StartedAt != nil {
		from = *job.StartedAt
	}
	to := h.now()
	if job.CompletedAt != nil {
		to = *job.CompletedAt
	}
	secs := to.Sub(from).Seconds()
	if secs < 0 {
		secs = 0
	}
	return math.Round(secs*100) / 100
}

func (h *ScraperHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNoReports):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		middleware.GetLogger(c).WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "internal error",
			"request_id": logger.GetRequestID(c.Request.Context()),
		})
	}
}
