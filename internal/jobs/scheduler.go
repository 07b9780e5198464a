package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is a unit of background work that knows when it wants to run next.
type Job interface {
	Run(ctx context.Context) error
	GetNextRunTime() time.Time
}

// JobScheduler runs registered jobs at the times they ask for, arming the
// following run after each one finishes.
type JobScheduler struct {
	mu      sync.Mutex
	jobs    map[string]Job
	timers  map[string]*time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewJobScheduler creates an empty scheduler
func NewJobScheduler() *JobScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobScheduler{
		jobs:   make(map[string]Job),
		timers: make(map[string]*time.Timer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a job under a stable name. Jobs registered after Start are
// picked up on the next Start.
func (s *JobScheduler) Register(name string, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[name] = job
	slog.Info("job registered", "job", name)
}

// Start arms a timer for every registered job. Calling Start on a running
// scheduler is a no-op.
func (s *JobScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.started = true

	slog.Info("job scheduler starting", "jobs", len(s.jobs))
	for name, job := range s.jobs {
		s.arm(name, job)
	}

	return nil
}

// arm schedules the next run of one job. Caller holds the lock.
func (s *JobScheduler) arm(name string, job Job) {
	next := job.GetNextRunTime()
	slog.Info("job scheduled", "job", name, "next_run", next.Format(time.RFC3339))

	s.timers[name] = time.AfterFunc(time.Until(next), func() {
		s.run(name, job)
	})
}

// run executes a job once and arms the following run.
func (s *JobScheduler) run(name string, job Job) {
	s.wg.Add(1)
	defer s.wg.Done()

	started := time.Now()
	if err := job.Run(s.ctx); err != nil {
		slog.Error("job failed", "job", name, "error", err)
	} else {
		slog.Info("job completed", "job", name, "duration", time.Since(started).String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.arm(name, job)
	}
}

// Stop cancels pending timers, cancels the job context and waits for any
// in-flight run to return.
func (s *JobScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false

	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = make(map[string]*time.Timer)
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	slog.Info("job scheduler stopped")
}
