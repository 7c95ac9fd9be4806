// internal/app/system/workers/runner.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/tasks"
	"go.uber.org/zap"
)

// Runner runs a tasks.Job on its interval until stopped.
type Runner struct {
	job     tasks.Job
	log     *zap.Logger
	timeout time.Duration
	stopCh  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewRunner creates a worker for job. Each run gets timeout to finish.
func NewRunner(job tasks.Job, timeout time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		job:     job,
		log:     logger,
		timeout: timeout,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *Runner) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("worker started",
		zap.String("job", w.job.Name),
		zap.Duration("interval", w.job.Interval))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *Runner) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("worker stopped", zap.String("job", w.job.Name))
	})
}

func (w *Runner) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.runOnce()
		}
	}
}

func (w *Runner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.job.Run(ctx); err != nil {
		w.log.Error("job failed", zap.String("job", w.job.Name), zap.Error(err))
	}
}
