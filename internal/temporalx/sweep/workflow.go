package sweep

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/planadapt-backend/internal/jobs/runtime"
)

func Workflow(ctx workflow.Context, in Input) (runtime.Report, error) {
	if in.Job == "" {
		return runtime.Report{}, fmt.Errorf("sweep: missing job")
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Hour,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Minute,
			MaximumAttempts:    3,
		},
	})
	var rep runtime.Report
	err := workflow.ExecuteActivity(ctx, ActivityRunJob, in).Get(ctx, &rep)
	return rep, err
}
