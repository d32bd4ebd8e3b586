package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/timmy/hotelrank/internal/domain"
)

// JobStore keeps scrape jobs and serializes their mutation.
// Get and List return copies; callers change a job only through Update.
type JobStore interface {
	Get(ctx context.Context, id string) (*domain.Job, error)
	Put(ctx context.Context, job *domain.Job) error
	// Update applies fn to the stored job under the store's write lock.
	// The change is discarded when fn returns an error.
	Update(ctx context.Context, id string, fn func(job *domain.Job) error) (*domain.Job, error)
	Delete(ctx context.Context, id string) error
	// List returns every job, newest first.
	List(ctx context.Context) ([]*domain.Job, error)
}

// MemoryJobStore is a process-local JobStore. Jobs are lost on restart.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*domain.Job)}
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryJobStore) Put(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryJobStore) Update(_ context.Context, id string, fn func(job *domain.Job) error) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.jobs[id] = next
	return next.Clone(), nil
}

func (s *MemoryJobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryJobStore) List(_ context.Context) ([]*domain.Job, error) {
	s.mu.RLock()
	jobs := make([]*domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	s.mu.RUnlock()

	sortNewestFirst(jobs)
	return jobs, nil
}

func sortNewestFirst(jobs []*domain.Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].ID > jobs[j].ID
	})
}
