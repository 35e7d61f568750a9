// Package data contains the storage adapters behind the core ports: in-memory
// fakes for tests and development, Redis for production, Postgres for durable
// deployments.
package data

import (
	"context"
	"sync"
	"time"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
)

// MemoryJobStore is an in-memory JobStore used by unit tests and single-node
// development. Entries for terminal jobs expire lazily after the configured
// retention.
type MemoryJobStore struct {
	mu        sync.Mutex
	jobs      map[string]*model.PublishingJob
	expiresAt map[string]time.Time

	retention time.Duration
	tp        TimeProvider
}

// MemoryJobStoreOptions configures a MemoryJobStore.
type MemoryJobStoreOptions struct {
	CompletedTTL time.Duration // retention for terminal jobs; defaults to 24h
	TimeProvider TimeProvider  // defaults to real time
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore(opts MemoryJobStoreOptions) *MemoryJobStore {
	if opts.CompletedTTL <= 0 {
		opts.CompletedTTL = 24 * time.Hour
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = &RealTimeProvider{}
	}
	return &MemoryJobStore{
		jobs:      make(map[string]*model.PublishingJob),
		expiresAt: make(map[string]time.Time),
		retention: opts.CompletedTTL,
		tp:        opts.TimeProvider,
	}
}

var _ core.JobStore = (*MemoryJobStore)(nil)
var _ core.ExpiredJobDeleter = (*MemoryJobStore)(nil)

// Put writes the initial job snapshot.
func (s *MemoryJobStore) Put(_ context.Context, job *model.PublishingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()
	if _, ok := s.jobs[job.JobID]; ok {
		return apperrors.Conflict("job already exists: " + job.JobID)
	}
	s.storeLocked(job)
	return nil
}

// Get returns a snapshot of the job, or NotFound.
func (s *MemoryJobStore) Get(_ context.Context, jobID string) (*model.PublishingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, apperrors.NotFoundf("job not found: %s", jobID)
	}
	return job.Clone(), nil
}

// Update applies fn under the store lock, which serializes read-modify-write
// per job for in-process use.
func (s *MemoryJobStore) Update(
	_ context.Context,
	jobID string,
	fn func(*model.PublishingJob) error,
) (*model.PublishingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()
	current, ok := s.jobs[jobID]
	if !ok {
		return nil, apperrors.NotFoundf("job not found: %s", jobID)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.storeLocked(next)
	return next.Clone(), nil
}

// DeleteExpired removes terminal jobs completed before cutoff.
func (s *MemoryJobStore) DeleteExpired(_ context.Context, cutoff time.Time, batchSize int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, job := range s.jobs {
		if batchSize > 0 && deleted >= int64(batchSize) {
			break
		}
		if job.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			delete(s.expiresAt, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryJobStore) storeLocked(job *model.PublishingJob) {
	s.jobs[job.JobID] = job.Clone()
	if job.Terminal() {
		s.expiresAt[job.JobID] = s.tp.Now().Add(s.retention)
	} else {
		delete(s.expiresAt, job.JobID)
	}
}

func (s *MemoryJobStore) evictExpiredLocked() {
	now := s.tp.Now()
	for id, exp := range s.expiresAt {
		if !exp.After(now) {
			delete(s.jobs, id)
			delete(s.expiresAt, id)
		}
	}
}
