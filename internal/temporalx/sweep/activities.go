package sweep

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/planadapt-backend/internal/jobs/runtime"
	"github.com/yungbote/planadapt-backend/internal/jobs/scheduler"
)

// JobRunner is satisfied by *scheduler.Scheduler.
type JobRunner interface {
	RunJob(ctx context.Context, name string) (runtime.Report, error)
}

type Activities struct {
	Runner JobRunner
}

// RunJob runs one sweep. Per-user failures stay in the report; only a failed
// job (or an unknown name) fails the activity.
func (a *Activities) RunJob(ctx context.Context, in Input) (runtime.Report, error) {
	info := activity.GetInfo(ctx)
	activity.GetLogger(ctx).Info("running sweep", "job", in.Job, "attempt", info.Attempt)

	rep, err := a.Runner.RunJob(ctx, in.Job)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		return rep, temporal.NewNonRetryableApplicationError(err.Error(), "unknown_job", err)
	case errors.Is(err, scheduler.ErrJobRunning):
		return rep, nil
	case err != nil:
		return rep, err
	}
	if rep.Error != "" {
		return rep, temporal.NewApplicationError(rep.Error, "job_failed", rep)
	}
	return rep, nil
}
