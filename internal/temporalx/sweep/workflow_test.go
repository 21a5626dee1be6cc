package sweep

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"github.com/yungbote/planadapt-backend/internal/jobs/runtime"
	"github.com/yungbote/planadapt-backend/internal/jobs/scheduler"
)

type fakeRunner struct {
	reports map[string]runtime.Report
	calls   []string
}

func (f *fakeRunner) RunJob(_ context.Context, name string) (runtime.Report, error) {
	f.calls = append(f.calls, name)
	rep, ok := f.reports[name]
	if !ok {
		return runtime.Report{Job: name}, fmt.Errorf("%w: %s", scheduler.ErrUnknownJob, name)
	}
	return rep, nil
}

func newEnv(t *testing.T, runner JobRunner) *testsuite.TestWorkflowEnvironment {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Runner: runner}
	env.RegisterActivityWithOptions(acts.RunJob, activity.RegisterOptions{Name: ActivityRunJob})
	return env
}

func TestWorkflow_ReturnsJobReport(t *testing.T) {
	runner := &fakeRunner{reports: map[string]runtime.Report{
		scheduler.JobGracePeriodAutoApply: {Job: scheduler.JobGracePeriodAutoApply, Processed: 3, Succeeded: 2, Failed: 1, Changed: 2},
	}}
	env := newEnv(t, runner)

	env.ExecuteWorkflow(Workflow, Input{Job: scheduler.JobGracePeriodAutoApply})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var rep runtime.Report
	require.NoError(t, env.GetWorkflowResult(&rep))
	require.Equal(t, 3, rep.Processed)
	require.Equal(t, "partial", rep.Status())
	require.Equal(t, []string{scheduler.JobGracePeriodAutoApply}, runner.calls)
}

func TestWorkflow_UnknownJobIsNotRetried(t *testing.T) {
	runner := &fakeRunner{reports: map[string]runtime.Report{}}
	env := newEnv(t, runner)

	env.ExecuteWorkflow(Workflow, Input{Job: "compact_everything"})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	require.Len(t, runner.calls, 1)
}

func TestWorkflow_FailedJobIsRetried(t *testing.T) {
	runner := &fakeRunner{reports: map[string]runtime.Report{
		scheduler.JobDailyAdjustment: {Job: scheduler.JobDailyAdjustment, Error: "list active users: timeout"},
	}}
	env := newEnv(t, runner)

	env.ExecuteWorkflow(Workflow, Input{Job: scheduler.JobDailyAdjustment})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	require.Len(t, runner.calls, 3)
}

func TestWorkflow_RequiresJob(t *testing.T) {
	env := newEnv(t, &fakeRunner{})
	env.ExecuteWorkflow(Workflow, Input{})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}

type fixedHandler struct {
	name  string
	every time.Duration
}

func (h fixedHandler) Name() string               { return h.name }
func (h fixedHandler) Interval() time.Duration    { return h.every }
func (h fixedHandler) Run(*runtime.Context) error { return nil }

func TestScheduleOptions(t *testing.T) {
	opts := ScheduleOptions(fixedHandler{name: scheduler.JobNotificationCleanup, every: 168 * time.Hour}, "sweeps")
	require.Equal(t, "planadapt-notification_cleanup", opts.ID)
	require.Len(t, opts.Spec.Intervals, 1)
	require.Equal(t, 168*time.Hour, opts.Spec.Intervals[0].Every)
}
