package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 5 * time.Second
)

// Job is one periodic unit of work. Runs are independent: a slow run never
// delays the next tick, and overlapping runs are tolerated because every
// write downstream is an idempotent per-station upsert.
type Job struct {
	Name     string
	Interval time.Duration
	// RunOnStart fires the job once immediately instead of waiting a full
	// interval for the first tick.
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Scheduler drives registered jobs with per-run bounded retry and
// exponential backoff.
type Scheduler struct {
	jobs        []Job
	logger      *zap.Logger
	maxAttempts int
	backoffBase time.Duration
	wg          sync.WaitGroup
}

// New returns a scheduler with default retry policy.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start launches one ticker goroutine per job and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, job)
	}
}

// Wait blocks until all job loops have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	defer s.wg.Done()

	s.logger.Info("job scheduled",
		zap.String("job", job.Name),
		zap.Duration("interval", job.Interval))

	if job.RunOnStart {
		s.launch(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.launch(ctx, job)
		}
	}
}

// launch executes one run in its own goroutine so a slow run cannot block
// the tick loop.
func (s *Scheduler) launch(ctx context.Context, job Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runWithRetry(ctx, job)
	}()
}

func (s *Scheduler) runWithRetry(ctx context.Context, job Job) {
	backoff := s.backoffBase
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := job.Run(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		if attempt == s.maxAttempts {
			s.logger.Error("job failed, giving up until next schedule",
				zap.String("job", job.Name),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return
		}

		s.logger.Warn("job failed, retrying",
			zap.String("job", job.Name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff *= 2
	}
}
