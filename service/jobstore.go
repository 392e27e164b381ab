package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ehagey/cra-legal-matching/config"
	"github.com/ehagey/cra-legal-matching/model"
)

// JobStore is the in-memory registry of live jobs, keyed by job id. It is
// an owned object passed to the orchestrator and the progress transport,
// never ambient global state. Jobs do not survive a restart.
type JobStore struct {
	mu      sync.RWMutex
	jobs    map[string]*model.Job
	maxJobs int           // 0 = unlimited
	ttl     time.Duration // 0 = no expiry
}

func NewJobStore(cfg *config.StoreConfig) *JobStore {
	maxJobs := cfg.MaxJobs
	if maxJobs < 0 {
		maxJobs = 0
	}
	return &JobStore{
		jobs:    make(map[string]*model.Job),
		maxJobs: maxJobs,
		ttl:     time.Duration(cfg.JobTTLMinutes) * time.Minute,
	}
}

// Put inserts a job, evicting the oldest jobs when over capacity
func (s *JobStore) Put(job *model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	s.cleanupLocked()
}

// Get returns the job with the given id, or nil
func (s *JobStore) Get(id string) *model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// Delete removes a job. Called after the terminal event has been delivered
// to a subscriber; a reconnect afterwards finds nothing.
func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// Count returns the number of tracked jobs
func (s *JobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Sweep evicts finished jobs older than the TTL. Run periodically so jobs
// whose subscriber never returned do not accumulate.
func (s *JobStore) Sweep() {
	if s.ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) && job.Done() {
			slog.Info("evicting expired job", "job_id", id, "created_at", job.CreatedAt)
			delete(s.jobs, id)
		}
	}
}

// StartSweeper runs Sweep on a ticker until stop is closed
func (s *JobStore) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

// cleanupLocked removes the oldest jobs if the store exceeds maxJobs.
// Must be called with the lock held.
func (s *JobStore) cleanupLocked() {
	if s.maxJobs <= 0 || len(s.jobs) <= s.maxJobs {
		return
	}

	jobs := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	removeCount := len(jobs) - s.maxJobs
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old job",
			"job_id", jobs[i].ID,
			"created_at", jobs[i].CreatedAt,
		)
		delete(s.jobs, jobs[i].ID)
	}
}
