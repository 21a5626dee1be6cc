package sweep

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/planadapt-backend/internal/jobs/runtime"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

func ScheduleID(job string) string { return "planadapt-" + job }

// ScheduleOptions builds the interval schedule for one job. Overlapping runs
// are skipped.
func ScheduleOptions(h runtime.Handler, taskQueue string) temporalsdkclient.ScheduleOptions {
	id := ScheduleID(h.Name())
	return temporalsdkclient.ScheduleOptions{
		ID: id,
		Spec: temporalsdkclient.ScheduleSpec{
			Intervals: []temporalsdkclient.ScheduleIntervalSpec{{Every: h.Interval()}},
		},
		Action: &temporalsdkclient.ScheduleWorkflowAction{
			ID:        id,
			Workflow:  WorkflowName,
			Args:      []interface{}{Input{Job: h.Name()}},
			TaskQueue: taskQueue,
		},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	}
}

// EnsureSchedules creates a schedule per registered job, leaving existing ones
// untouched.
func EnsureSchedules(ctx context.Context, log *logger.Logger, c temporalsdkclient.Client, registry *runtime.Registry, taskQueue string) error {
	sc := c.ScheduleClient()
	for _, h := range registry.List() {
		opts := ScheduleOptions(h, taskQueue)
		_, err := sc.Create(ctx, opts)
		switch {
		case err == nil:
			log.Info("Created Temporal schedule", "schedule_id", opts.ID, "every", h.Interval().String())
		case errors.Is(err, temporal.ErrScheduleAlreadyRunning):
		default:
			return fmt.Errorf("create schedule %s: %w", opts.ID, err)
		}
	}
	return nil
}
