// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Job is a unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// LoginLimiterSweepJob drops idle login-throttle buckets so the limiter's
// memory tracks active clients only.
func LoginLimiterSweepJob(ll *ratelimit.LoginLimiter, logger *zap.Logger) Job {
	return Job{
		Name:     "login-limiter-sweep",
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			ll.Sweep()
			logger.Debug("swept login limiter")
			return nil
		},
	}
}
