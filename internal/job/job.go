package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	StatusNotFound   Status = "not_found"
)

// Terminal reports whether s is a final status.
func Terminal(s Status) bool {
	return s == StatusComplete || s == StatusFailed
}

// ProofResult is the immutable artifact of a completed job. Proof is the
// file name relative to the assets directory, not the file content.
type ProofResult struct {
	PublicValues string `json:"public_values"`
	Proof        string `json:"proof"`
}

type Job struct {
	ID          string       `json:"job_id"`
	Status      Status       `json:"status"`
	Result      *ProofResult `json:"result,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// Summary is the coarse per-job view returned by List.
type Summary struct {
	JobID    string `json:"job_id"`
	Status   Status `json:"status"`
	HasProof bool   `json:"has_proof"`
}

// NewID returns a fresh job identifier.
func NewID() string {
	return uuid.NewString()
}

// Store is the in-memory job registry. Jobs are never removed; a job's
// status moves at most once from processing to complete or failed.
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string // creation order
}

func NewStore() *Store {
	return &Store{
		jobs:  make(map[string]*Job),
		order: make([]string, 0),
	}
}

// Create inserts a new job in processing state. The caller guarantees id
// uniqueness; a duplicate is a caller bug and is reported as an error.
func (s *Store) Create(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; ok {
		return fmt.Errorf("job already exists: %s", id)
	}
	s.jobs[id] = &Job{
		ID:        id,
		Status:    StatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	s.order = append(s.order, id)
	return nil
}

// Complete moves the job to its complete terminal state.
func (s *Store) Complete(id string, result *ProofResult) error {
	return s.finish(id, StatusComplete, result, "")
}

// Fail moves the job to its failed terminal state.
func (s *Store) Fail(id, errMsg string) error {
	return s.finish(id, StatusFailed, nil, errMsg)
}

func (s *Store) finish(id string, status Status, result *ProofResult, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	if j.Status != StatusProcessing {
		return fmt.Errorf("job %s already terminal: %s", id, j.Status)
	}
	j.Status = status
	j.Result = result
	j.Error = errMsg
	now := time.Now().UTC()
	j.CompletedAt = &now
	return nil
}

// Get returns a snapshot copy of the job, never a record that is mid
// transition.
func (s *Store) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	cp := *j
	return &cp, true
}

// List returns every known job, newest first by creation time.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		j := s.jobs[s.order[i]]
		out = append(out, Summary{
			JobID:    j.ID,
			Status:   j.Status,
			HasProof: j.Result != nil,
		})
	}
	return out
}

func (s *Store) Stats() (processing, complete, failed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.jobs {
		switch j.Status {
		case StatusProcessing:
			processing++
		case StatusComplete:
			complete++
		case StatusFailed:
			failed++
		}
	}
	return
}
