package job

import (
	"errors"
	"sync"
	"time"

	"verenigingsloket.org/internal/ids"
)

// Status is the lifecycle state of a sensitive-data export job.
// Jobs start busy and end in exactly one of success or failed.
type Status string

const (
	StatusBusy    Status = "busy"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

var ErrNotFound = errors.New("job: not found")

// Job is one export run. ResultReference points at the stored artifact
// after success; ErrorMessage carries the cause after failure.
type Job struct {
	ID              string
	OwnerAccount    string
	Status          Status
	CreatedAt       time.Time
	ModifiedAt      time.Time
	ResultReference string
	ErrorMessage    string
}

// Terminal reports whether the job reached an end state.
func (j Job) Terminal() bool {
	return j.Status == StatusSuccess || j.Status == StatusFailed
}

// Store keeps jobs in memory. Only the task that created a job moves it
// to a terminal state, so transitions never race each other.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job), now: time.Now}
}

// Create registers a new busy job and returns a copy of it.
func (s *Store) Create(owner string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	j := &Job{
		ID:           ids.New(),
		OwnerAccount: owner,
		Status:       StatusBusy,
		CreatedAt:    now,
		ModifiedAt:   now,
	}
	s.jobs[j.ID] = j
	return *j
}

// Get returns a copy of the job, or ErrNotFound.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *j, nil
}

// Complete moves a busy job to its terminal state.
func (s *Store) Complete(id string, status Status, resultRef, errMsg string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	j.Status = status
	j.ResultReference = resultRef
	j.ErrorMessage = errMsg
	j.ModifiedAt = s.now().UTC()
	return *j, nil
}

// DeleteOlderThan removes terminal jobs last modified before the cutoff
// and returns the removed jobs so their artifacts can be cleaned up too.
func (s *Store) DeleteOlderThan(age time.Duration) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().UTC().Add(-age)
	var removed []Job
	for id, j := range s.jobs {
		if j.Terminal() && j.ModifiedAt.Before(cutoff) {
			removed = append(removed, *j)
			delete(s.jobs, id)
		}
	}
	return removed
}
