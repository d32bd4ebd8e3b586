package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/timmy/hotelrank/internal/domain"
	"gorm.io/gorm"
)

// JobRepository is a JobStore backed by the database, so job history
// survives restarts.
type JobRepository struct {
	db *gorm.DB
	// mu keeps Update single-writer on SQLite, which has no row locks.
	mu sync.Mutex
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Get retrieves a job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - *domain.Job: job record if found.
//   - error: domain.ErrJobNotFound when absent, or the lookup failure.
func (r *JobRepository) Get(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return &job, nil
}

// Put inserts a new job record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: job record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *JobRepository) Put(ctx context.Context, job *domain.Job) error {
	if err := r.db.WithContext(ctx).Create(job.Clone()).Error; err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.ID, err)
	}
	return nil
}

// Update loads a job, applies fn and saves it in one transaction.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
//   - fn: mutation applied to the loaded job; an error aborts the update.
// Returns:
//   - *domain.Job: the saved job.
//   - error: domain.ErrJobNotFound, the error from fn, or the save failure.
func (r *JobRepository) Update(ctx context.Context, id string, fn func(job *domain.Job) error) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var saved *domain.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job domain.Job
		if err := tx.First(&job, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrJobNotFound
			}
			return err
		}
		if err := fn(&job); err != nil {
			return err
		}
		if err := tx.Save(&job).Error; err != nil {
			return err
		}
		saved = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved.Clone(), nil
}

// Delete removes a job record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - error: domain.ErrJobNotFound when absent, or the delete failure.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.Job{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// List returns every job, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []*domain.Job: jobs ordered by creation time descending.
//   - error: non-nil if the query fails.
func (r *JobRepository) List(ctx context.Context) ([]*domain.Job, error) {
	var jobs []*domain.Job
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}
