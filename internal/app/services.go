package app

import (
	"github.com/yungbote/planadapt-backend/internal/clients/redis"
	"github.com/yungbote/planadapt-backend/internal/data/aggregates"
	"github.com/yungbote/planadapt-backend/internal/data/repos"
	"github.com/yungbote/planadapt-backend/internal/jobs/runtime"
	"github.com/yungbote/planadapt-backend/internal/jobs/scheduler"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/aggregator"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/approval"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/daily"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/matching"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/program"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/reassessment"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/triggers"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
	"github.com/yungbote/planadapt-backend/internal/services"
)

// Services is every long-lived domain collaborator.
type Services struct {
	Notifier     services.Notifier
	Locker       services.UserLocker
	Matching     *matching.Service
	Aggregator   *aggregator.Aggregator
	Detector     *triggers.Detector
	Approval     *approval.Workflow
	Daily        *daily.Orchestrator
	Reassessment *reassessment.Orchestrator
	Program      *program.Service

	Registry  *runtime.Registry
	Scheduler *scheduler.Scheduler
}

type serviceDeps struct {
	log     *logger.Logger
	cfg     Config
	params  params.Params
	repos   repos.Repos
	writer  *aggregates.Writer
	clk     clock.Clock
	metrics *observability.Metrics
	bus     redis.NotificationBus
	locker  services.UserLocker
}

func wireServices(d serviceDeps) (Services, error) {
	notifier := services.NewNotifier(d.log, d.repos.Notification, d.bus, d.clk, d.metrics)
	agg := aggregator.New(d.log, d.repos, d.metrics)
	detector := triggers.NewDetector(d.log, d.repos, d.clk, d.metrics, d.params.Triggers)
	workflow := approval.NewWorkflow(d.log, d.repos, d.writer, d.clk, notifier, d.metrics, d.params.Approval)
	matcher := matching.NewService(d.log, d.repos, d.writer, matching.NewEngine(d.params.Matching), d.clk, d.metrics)
	dailyOrch := daily.New(d.log, d.repos, agg, detector, workflow, matcher, d.metrics, d.params)
	reassess := reassessment.New(d.log, d.repos, d.writer, agg, d.clk, notifier, d.metrics, d.params)

	registry := runtime.NewRegistry()
	if err := scheduler.Register(registry, scheduler.Deps{
		Repos:        d.repos,
		Daily:        dailyOrch,
		Reassessment: reassess,
		Approval:     workflow,
		Matching:     matcher,
	}); err != nil {
		return Services{}, err
	}

	return Services{
		Notifier:     notifier,
		Locker:       d.locker,
		Matching:     matcher,
		Aggregator:   agg,
		Detector:     detector,
		Approval:     workflow,
		Daily:        dailyOrch,
		Reassessment: reassess,
		Program:      program.NewService(d.log, d.repos, d.writer, d.clk, d.params),
		Registry:     registry,
		Scheduler:    scheduler.New(d.log, d.clk, registry, d.locker, d.metrics, d.cfg.Scheduler),
	}, nil
}
