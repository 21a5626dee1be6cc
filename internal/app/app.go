package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/planadapt-backend/internal/clients/redis"
	"github.com/yungbote/planadapt-backend/internal/data/aggregates"
	"github.com/yungbote/planadapt-backend/internal/data/db"
	"github.com/yungbote/planadapt-backend/internal/data/repos"
	apphttp "github.com/yungbote/planadapt-backend/internal/http"
	httpH "github.com/yungbote/planadapt-backend/internal/http/handlers"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
	"github.com/yungbote/planadapt-backend/internal/services"
	"github.com/yungbote/planadapt-backend/internal/temporalx"
	"github.com/yungbote/planadapt-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Store    *db.Service
	Repos    repos.Repos
	Services Services
	Server   *apphttp.Server

	rdb          *goredis.Client
	temporal     temporalsdkclient.Client
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(context.Background(), log, cfg.Otel)

	p, err := params.Load(cfg.ParamsFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := db.Open(cfg.DBDriver, cfg.SQLitePath, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	a.Store = store
	if err := store.AutoMigrateAll(); err != nil {
		a.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	var bus redis.NotificationBus
	locker := services.NewLocalUserLocker()
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(log, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.rdb = rdb
		bus = redis.NewNotificationBus(log, rdb, cfg.Redis.Channel)
		locker = services.NewRedisUserLocker(redis.NewLocker(rdb, "planadapt:lock:", cfg.LockTTL))
	}

	a.Repos = repos.New(store.DB(), log)
	a.Services, err = wireServices(serviceDeps{
		log:     log,
		cfg:     cfg,
		params:  p,
		repos:   a.Repos,
		writer:  aggregates.NewWriter(store.DB(), aggregates.NewObservabilityHooks(metrics)),
		clk:     clock.New(),
		metrics: metrics,
		bus:     bus,
		locker:  locker,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("wire services: %w", err)
	}

	a.temporal, err = temporalx.NewClient(log, cfg.Temporal)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Server = apphttp.NewServer(a.routerConfig(metrics))
	return a, nil
}

func (a *App) routerConfig(metrics *observability.Metrics) apphttp.RouterConfig {
	checks := map[string]httpH.Check{
		"database": func(context.Context) error { return a.Store.Ping() },
	}
	if a.rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return a.rdb.Ping(ctx).Err() }
	}
	rc := apphttp.RouterConfig{
		Log:           a.Log,
		Metrics:       metrics,
		HealthHandler: httpH.NewHealthHandler(checks),
		JobHandler:    httpH.NewJobHandler(a.Services.Scheduler),
	}
	if a.Cfg.Otel.Enabled {
		rc.ServiceName = a.Cfg.Otel.ServiceName
	}
	if metrics != nil {
		rc.MetricsHandler = metrics.Handler()
	}
	return rc
}

// Start launches the sweep driver: Temporal schedules when configured, the
// in-process ticker otherwise.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.temporal != nil {
		runner, err := temporalworker.NewRunner(a.Log, a.temporal, a.Cfg.Temporal, a.Services.Registry, a.Services.Scheduler)
		if err != nil {
			return err
		}
		return runner.Start(ctx)
	}
	go a.Services.Scheduler.Start(ctx)
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Serving ops HTTP", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run(a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("http shutdown", "error", err)
		}
	}
	if a.temporal != nil {
		a.temporal.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	a.Log.Sync()
}
