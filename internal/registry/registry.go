package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/linshen005/youtube-downloader-backend/internal/domain"
)

// Registry is the in-memory store of all job progress records. Each record has
// exactly one writer (the worker processing the job) and any number of
// polling readers.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		jobs: make(map[string]*domain.Job),
	}
}

// Create inserts a new record in the starting state. It must be called before
// any Update for the same id.
func (r *Registry) Create(id, language string) {
	now := time.Now()
	job := &domain.Job{
		ID:        id,
		Status:    domain.StatusStarting,
		Percent:   "0%",
		Message:   domain.Message(language, domain.MsgPreparing),
		Language:  language,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.jobs[id] = job
	r.mu.Unlock()

	slog.Debug("job registered", "download_id", id, "language", language)
}

// Update merges non-nil fields of update into the record for id. Updates for
// unknown ids are dropped silently; the external tool's callbacks may arrive
// late or reference a stale id.
func (r *Registry) Update(id string, update domain.JobUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[id]
	if !exists {
		slog.Debug("update for unknown job dropped", "download_id", id)
		return
	}

	if update.Status != nil {
		job.Status = *update.Status
	}
	if update.Percent != nil {
		job.Percent = *update.Percent
	}
	if update.Message != nil {
		job.Message = *update.Message
	}
	if update.Downloaded != nil {
		job.Downloaded = *update.Downloaded
	}
	if update.Total != nil {
		job.Total = *update.Total
	}
	if update.Speed != nil {
		job.Speed = *update.Speed
	}
	if update.ETA != nil {
		job.ETA = *update.ETA
	}
	if update.Result != nil {
		job.Result = update.Result
	}
	job.UpdatedAt = time.Now()
}

// Get returns a snapshot of the record for id, or a not_found sentinel when
// the id is unknown. The copy is taken while the lock is held; the returned
// value never aliases the live record.
func (r *Registry) Get(id string) domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, exists := r.jobs[id]
	if !exists {
		return domain.Job{
			ID:      id,
			Status:  domain.StatusNotFound,
			Message: "Download not found",
		}
	}
	return *job
}

// Len returns the number of records currently held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// EvictTerminal removes terminal records whose last update is older than ttl
// and returns how many were dropped.
func (r *Registry) EvictTerminal(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, job := range r.jobs {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			evicted++
		}
	}
	return evicted
}

// RunJanitor periodically evicts terminal records older than ttl until ctx is
// cancelled. It is only started when eviction is enabled.
func (r *Registry) RunJanitor(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictTerminal(ttl); n > 0 {
				slog.Info("evicted finished job records", "count", n)
			}
		}
	}
}
