package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/obsidianstack/rangeshift/internal/compute"
)

// Entry is the latest result of one job and when the daemon last published
// it. Cached results refresh UpdatedAt too, so a job that keeps running
// never goes stale.
type Entry struct {
	Result    *compute.Result
	UpdatedAt time.Time
}

// Store holds the latest result per job ID. Results not republished within
// ttl are hidden from readers and dropped by Run. Store is safe for
// concurrent use.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.RWMutex
	jobs map[string]*Entry
}

// New returns an empty Store whose results expire after ttl.
func New(ttl time.Duration) *Store {
	return &Store{ttl: ttl, now: time.Now, jobs: make(map[string]*Entry)}
}

// TTL returns how long a result stays visible without being republished.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put publishes res as the latest result of res.JobID. res is shared with
// readers and must not be modified afterwards.
func (s *Store) Put(res *compute.Result) {
	e := &Entry{Result: res, UpdatedAt: s.now()}
	s.mu.Lock()
	s.jobs[res.JobID] = e
	s.mu.Unlock()
}

// Delete drops the result of jobID and reports whether there was one.
func (s *Store) Delete(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[jobID]
	delete(s.jobs, jobID)
	return ok
}

// Get returns the live entry of jobID.
func (s *Store) Get(jobID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[jobID]
	if !ok || !s.live(e, s.now()) {
		return nil, false
	}
	return e, true
}

// List returns the live entries ordered by job ID.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	now := s.now()
	out := make([]*Entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		if s.live(e, now) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Result.JobID < out[j].Result.JobID })
	return out
}

// Count returns the number of jobs held, expired ones included.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Evict drops every entry that has expired at now and returns how many
// were dropped.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.jobs {
		if !s.live(e, now) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// Run evicts expired results every half TTL, at most once a second, until
// ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	t := time.NewTicker(max(s.ttl/2, time.Second))
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: dropped expired results", "jobs", n)
			}
		}
	}
}

func (s *Store) live(e *Entry, now time.Time) bool {
	return e.UpdatedAt.After(now.Add(-s.ttl))
}
