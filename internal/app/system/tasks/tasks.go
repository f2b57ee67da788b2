// Package tasks runs the engine's periodic background jobs on fixed
// intervals. Jobs are short, idempotent, and safe to overlap with a second
// process running the same job (every underlying mutation is compare-and-set
// or delete-by-filter).
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one periodic unit of background work.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds one run; defaults to 30s when zero.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Runner drives a set of jobs, one goroutine each.
type Runner struct {
	jobs   []Job
	log    *zap.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewRunner(logger *zap.Logger, jobs ...Job) *Runner {
	return &Runner{
		jobs:   jobs,
		log:    logger,
		stopCh: make(chan struct{}),
	}
}

// Start launches every job loop.
func (r *Runner) Start() {
	for i := range r.jobs {
		job := r.jobs[i]
		r.wg.Add(1)
		go r.loop(job)
		r.log.Info("background job started",
			zap.String("job", job.Name),
			zap.Duration("interval", job.Interval))
	}
}

// Stop signals every loop to exit and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	r.log.Info("background jobs stopped")
}

func (r *Runner) loop(job Job) {
	defer r.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runOnce(job)
		}
	}
}

func (r *Runner) runOnce(job Job) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := job.Run(ctx); err != nil {
		r.log.Error("background job failed",
			zap.String("job", job.Name),
			zap.Error(err))
	}
}
