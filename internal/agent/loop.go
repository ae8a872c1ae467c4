package agent

import (
	"context"
	"errors"
	"time"

	"github.com/wolfslender/Media-Usage-Checker/pkg/batch"
	"github.com/wolfslender/Media-Usage-Checker/pkg/log"
)

type Stepper interface {
	Step(ctx context.Context, opts batch.StepOptions) (*batch.StepResult, error)
}

// Loop re-enters the walker: quickly while a run is incomplete, every
// Interval once it has completed.
type Loop struct {
	Walker      Stepper
	Logger      log.LoggerService
	Interval    time.Duration
	ResumeDelay time.Duration
}

// Run blocks until ctx is cancelled. Step failures are logged and retried
// on the next interval.
func (l *Loop) Run(ctx context.Context) error {
	for {
		delay := l.next(ctx)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (l *Loop) next(ctx context.Context) time.Duration {
	result, err := l.Walker.Step(ctx, batch.StepOptions{})
	switch {
	case errors.Is(err, batch.ErrBusy):
		l.Logger.Debug("Scan step skipped: %v", err)
		return l.ResumeDelay
	case err != nil:
		if ctx.Err() == nil {
			l.Logger.Error("Scan step failed: %v", err)
		}
		return l.Interval
	case !result.Completed:
		return l.ResumeDelay
	}

	l.Logger.Info("Scan run %s completed, next run in %s", result.RunID, l.Interval)
	return l.Interval
}
