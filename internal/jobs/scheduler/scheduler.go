package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/planadapt-backend/internal/jobs/runtime"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/envutil"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
	"github.com/yungbote/planadapt-backend/internal/services"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobRunning = errors.New("job already running")
)

type Config struct {
	TickInterval time.Duration
	Concurrency  int
}

func ConfigFromEnv() Config {
	return Config{
		TickInterval: envutil.Duration("SCHEDULER_TICK_INTERVAL", time.Minute),
		Concurrency:  envutil.Int("SCHEDULER_CONCURRENCY", 8),
	}
}

type Scheduler struct {
	log      *logger.Logger
	clk      clock.Clock
	registry *runtime.Registry
	locker   services.UserLocker
	metrics  *observability.Metrics
	cfg      Config

	mu      sync.Mutex
	lastRun map[string]time.Time
	running map[string]bool
}

func New(baseLog *logger.Logger, clk clock.Clock, registry *runtime.Registry, locker services.UserLocker, metrics *observability.Metrics, cfg Config) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	return &Scheduler{
		log:      baseLog.With("component", "Scheduler"),
		clk:      clk,
		registry: registry,
		locker:   locker,
		metrics:  metrics,
		cfg:      cfg,
		lastRun:  make(map[string]time.Time),
		running:  make(map[string]bool),
	}
}

// Start runs Tick immediately and then on every tick interval until ctx is
// done.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("Starting scheduler", "tick_interval", s.cfg.TickInterval.String(), "concurrency", s.cfg.Concurrency)
	ticker := s.clk.Ticker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Due lists the jobs whose cadence has elapsed at now.
func (s *Scheduler) Due(now time.Time) []runtime.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []runtime.Handler
	for _, h := range s.registry.List() {
		last, ok := s.lastRun[h.Name()]
		if !ok || now.Sub(last) >= h.Interval() {
			due = append(due, h)
		}
	}
	return due
}

// Tick runs every due job in name order.
func (s *Scheduler) Tick(ctx context.Context) []runtime.Report {
	var reports []runtime.Report
	for _, h := range s.Due(clock.Now(s.clk)) {
		if ctx.Err() != nil {
			break
		}
		rep, err := s.run(ctx, h)
		if errors.Is(err, ErrJobRunning) {
			continue
		}
		reports = append(reports, rep)
	}
	return reports
}

// RunJob runs one job now regardless of its cadence.
func (s *Scheduler) RunJob(ctx context.Context, name string) (runtime.Report, error) {
	h, ok := s.registry.Get(name)
	if !ok {
		return runtime.Report{Job: name}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, h)
}

// LastRun reports when name last started.
func (s *Scheduler) LastRun(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastRun[name]
	return t, ok
}

func (s *Scheduler) run(ctx context.Context, h runtime.Handler) (runtime.Report, error) {
	name := h.Name()
	started := clock.Now(s.clk)

	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		return runtime.Report{Job: name}, ErrJobRunning
	}
	s.running[name] = true
	s.lastRun[name] = started
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, name)
		s.mu.Unlock()
	}()

	ctx, span := observability.StartSpan(ctx, "scheduler", name)
	defer span.End()

	rc := runtime.NewContext(ctx, name, started, s.log, s.locker, s.cfg.Concurrency, s.metrics)
	runErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("Job handler panic", "job", name, "panic", r)
				err = errFromRecover(r)
			}
		}()
		return h.Run(rc)
	}()

	finished := clock.Now(s.clk)
	rep := rc.Finish(finished, runErr)
	s.metrics.ObserveJob(name, rep.Status(), finished.Sub(started))
	if runErr != nil {
		s.log.Warn("Job failed", "job", name, "error", runErr)
	} else {
		s.log.Info("Job finished",
			"job", name,
			"processed", rep.Processed,
			"failed", rep.Failed,
			"changed", rep.Changed,
		)
	}
	return rep, nil
}

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
