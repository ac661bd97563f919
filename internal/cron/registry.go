package cron

import (
	"context"
	"sync"
	"time"
)

// Job is one unit of periodic work run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type scheduledJob struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry keeps jobs in registration order along with how often each may
// run. A job without a cadence runs on every cycle.
type Registry struct {
	mu      sync.Mutex
	entries []*scheduledJob
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds job to every cycle. Nil jobs are ignored.
func (r *Registry) Register(job Job) {
	r.RegisterEvery(job, 0)
}

// RegisterEvery adds job but runs it at most once per every. The cadence is
// tracked per process, so a lock handover can run the job early once.
func (r *Registry) RegisterEvery(job Job, every time.Duration) {
	if job == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &scheduledJob{job: job, every: max(every, 0)})
}

// Due returns the jobs that should run in a cycle starting at now and marks
// them as run.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Job
	for _, entry := range r.entries {
		if entry.every > 0 && !entry.lastRun.IsZero() && now.Sub(entry.lastRun) < entry.every {
			continue
		}
		entry.lastRun = now
		due = append(due, entry.job)
	}
	return due
}

// Jobs returns every registered job, due or not.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]Job, 0, len(r.entries))
	for _, entry := range r.entries {
		jobs = append(jobs, entry.job)
	}
	return jobs
}

// Names lists job names for startup logging.
func (r *Registry) Names() []string {
	jobs := r.Jobs()
	names := make([]string, 0, len(jobs))
	for _, job := range jobs {
		names = append(names, job.Name())
	}
	return names
}
