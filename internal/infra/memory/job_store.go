package memory

import (
	"context"
	"sync"

	"docquiz/internal/domain"
)

// JobStore is an in-memory implementation of app.JobStore. Jobs that
// reached a terminal status are frozen; further updates fail.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]domain.Job)}
}

func (s *JobStore) CreateJob(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = job
	return nil
}

func (s *JobStore) GetJob(_ context.Context, jobID string) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job, nil
}

func (s *JobStore) UpdateJob(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[job.JobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if current.Terminal() {
		return domain.ErrJobTerminal
	}
	s.jobs[job.JobID] = job
	return nil
}
