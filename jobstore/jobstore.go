// Package jobstore is the in-memory job registry the orchestrator reads
// and writes as a job moves through its stages, grounded on the
// teacher's JobInfo-over-cache.Cache pattern in pipeline/coordinator.go
// generalized from a single mutex-guarded struct to a typed Store
// interface over package cache's generic Cache.
package jobstore

import (
	"fmt"
	"sync"

	"github.com/clipmind/video-report/cache"
	"github.com/clipmind/video-report/config"
	"github.com/clipmind/video-report/model"
)

// Store is the facade every collaborator uses to create, read, and patch
// jobs. Create is idempotent under retry; AppendLog is not, since every
// call appends a new log entry.
type Store interface {
	Create(job *model.Job) (string, error)
	Read(id string) (*model.Job, error)
	Update(id string, patch func(*model.Job)) error
	AppendLog(id, message string) error
	Delete(id string)
}

// MemoryStore is the only Store implementation: a process-local registry
// backed by cache.Cache, each entry guarded by its own mutex so
// concurrent stage goroutines updating different fields of the same job
// never race.
type MemoryStore struct {
	jobs *cache.Cache[*entry]
}

type entry struct {
	mu  sync.Mutex
	job *model.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: cache.New[*entry]()}
}

func (s *MemoryStore) Create(job *model.Job) (string, error) {
	if job.ID == "" {
		return "", fmt.Errorf("job must have an id")
	}
	if _, exists := s.jobs.Get(job.ID); exists {
		return job.ID, nil // idempotent under retry
	}
	s.jobs.Store(job.ID, &entry{job: job})
	return job.ID, nil
}

func (s *MemoryStore) Read(id string) (*model.Job, error) {
	e, ok := s.jobs.Get(id)
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	clone := *e.job
	return &clone, nil
}

// Update applies patch to the stored job under its per-job lock,
// updated_at is always overwritten afterward regardless of what patch
// touches.
func (s *MemoryStore) Update(id string, patch func(*model.Job)) error {
	e, ok := s.jobs.Get(id)
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	patch(e.job)
	e.job.UpdatedAt = config.Clock.GetTime()
	return nil
}

// AppendLog atomically appends a log entry and sets current_action, the
// special-key update spec.md §4.6 calls out by name.
func (s *MemoryStore) AppendLog(id, message string) error {
	return s.Update(id, func(j *model.Job) {
		j.Log = append(j.Log, model.LogEntry{Message: message, Time: config.Clock.GetTime()})
		j.CurrentAction = message
	})
}

func (s *MemoryStore) Delete(id string) {
	s.jobs.Remove(id)
}
