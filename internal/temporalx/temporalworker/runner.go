package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/planadapt-backend/internal/jobs/runtime"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
	"github.com/yungbote/planadapt-backend/internal/temporalx"
	"github.com/yungbote/planadapt-backend/internal/temporalx/sweep"
)

// Runner hosts the sweep workflow and activity and keeps one schedule per
// registered job.
type Runner struct {
	log      *logger.Logger
	tc       temporalsdkclient.Client
	cfg      temporalx.Config
	registry *runtime.Registry
	runner   sweep.JobRunner
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, registry *runtime.Registry, runner sweep.JobRunner) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if registry == nil || runner == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:      log.With("component", "TemporalWorker"),
		tc:       tc,
		cfg:      cfg,
		registry: registry,
		runner:   runner,
	}, nil
}

// Start registers the schedules and starts polling. The worker stops when
// ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	deadline := time.Now().Add(r.cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			break
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.log, r.cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}
		if r.cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			return fmt.Errorf("temporal worker start (namespace=%s): %w", r.cfg.Namespace, startErr)
		}
		r.log.Warn("Temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)
		time.Sleep(r.cfg.DialBackoff)
	}

	return sweep.EnsureSchedules(ctx, r.log, r.tc, r.registry, r.cfg.TaskQueue)
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := r.cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	acts := &sweep.Activities{Runner: r.runner}
	w.RegisterWorkflowWithOptions(sweep.Workflow, workflow.RegisterOptions{Name: sweep.WorkflowName})
	w.RegisterActivityWithOptions(acts.RunJob, activity.RegisterOptions{Name: sweep.ActivityRunJob})
	return w
}
