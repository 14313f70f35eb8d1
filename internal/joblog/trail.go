// Package joblog holds the per-job progress trails: capped, append-only
// sequences of text lines written by the runner and read by watchers.
package joblog

import "sync"

// DefaultCap is the maximum retained lines per trail. Once exceeded the
// oldest lines are dropped, so a trail is a sliding window, not a full
// history.
const DefaultCap = 100

type trail struct {
	lines   []string
	dropped int // lines trimmed from the front since creation
}

type Store struct {
	mu     sync.RWMutex
	cap    int
	trails map[string]*trail
}

func NewStore() *Store {
	return NewStoreWithCap(DefaultCap)
}

func NewStoreWithCap(n int) *Store {
	if n <= 0 {
		n = DefaultCap
	}
	return &Store{
		cap:    n,
		trails: make(map[string]*trail),
	}
}

// Append adds a line to the job's trail, creating the trail if absent,
// then trims the front so at most cap lines are retained.
func (s *Store) Append(id, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trails[id]
	if !ok {
		t = &trail{}
		s.trails[id] = t
	}
	t.lines = append(t.lines, line)
	if overflow := len(t.lines) - s.cap; overflow > 0 {
		t.lines = append([]string(nil), t.lines[overflow:]...)
		t.dropped += overflow
	}
}

// ReadAll returns a copy of the retained window, oldest first.
func (s *Store) ReadAll(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trails[id]
	if !ok {
		return nil
	}
	return append([]string(nil), t.lines...)
}

// ReadFrom returns the lines at positions >= offset, where positions count
// from the first line ever appended. Offsets that fall before the retained
// window are clamped to its start; offsets past the end yield nil.
func (s *Store) ReadFrom(id string, offset int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trails[id]
	if !ok {
		return nil
	}
	start := offset - t.dropped
	if start < 0 {
		start = 0
	}
	if start >= len(t.lines) {
		return nil
	}
	return append([]string(nil), t.lines[start:]...)
}

// Snapshot returns the retained window together with the count of lines
// ever appended, both read under one lock. A cursor initialized from the
// returned count is consistent with the returned lines: anything appended
// afterwards is at position >= count.
func (s *Store) Snapshot(id string) ([]string, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trails[id]
	if !ok {
		return nil, 0
	}
	return append([]string(nil), t.lines...), t.dropped + len(t.lines)
}

// Count returns the number of lines ever appended to the trail, including
// lines that have since been dropped.
func (s *Store) Count(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trails[id]
	if !ok {
		return 0
	}
	return t.dropped + len(t.lines)
}
