package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
	"github.com/yungbote/planadapt-backend/internal/services"
)

/*
Context is the execution handle for one sweep run. Handlers fan out per-user
work through ForEachUser, which owns the concurrency limit, the per-user lock,
panic isolation and failure bookkeeping. A failing user never aborts the
batch; the failure lands in the Report.
*/
type Context struct {
	Ctx context.Context
	Job string
	Now time.Time
	Log *logger.Logger

	locker  services.UserLocker
	limit   int
	metrics *observability.Metrics

	mu     sync.Mutex
	report Report
}

func NewContext(ctx context.Context, job string, now time.Time, log *logger.Logger, locker services.UserLocker, limit int, metrics *observability.Metrics) *Context {
	if limit < 1 {
		limit = 1
	}
	return &Context{
		Ctx:     ctx,
		Job:     job,
		Now:     now,
		Log:     log.With("job", job),
		locker:  locker,
		limit:   limit,
		metrics: metrics,
		report:  Report{Job: job, StartedAt: now},
	}
}

// ForEachUser runs fn for every user in a bounded pool, each under that
// user's lock.
func (c *Context) ForEachUser(users []uuid.UUID, fn func(ctx context.Context, userID uuid.UUID) error) {
	g, ctx := errgroup.WithContext(c.Ctx)
	g.SetLimit(c.limit)
	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			c.record(userID, c.runUser(ctx, userID, fn))
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Context) runUser(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context, userID uuid.UUID) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.Log.Error("sweep panic", "user_id", userID, "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if c.locker != nil {
		unlock, lerr := c.locker.Lock(ctx, userID)
		if lerr != nil {
			return fmt.Errorf("acquire user lock: %w", lerr)
		}
		defer unlock()
	}
	return fn(ctx, userID)
}

func (c *Context) record(userID uuid.UUID, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Processed++
	if err == nil {
		c.report.Succeeded++
		return
	}
	c.report.Failed++
	c.report.Failures = append(c.report.Failures, UserFailure{UserID: userID, Error: err.Error()})
	c.metrics.IncJobUserFailure(c.Job)
	c.Log.Warn("sweep user failed", "user_id", userID, "error", err)
}

// AddChanged counts domain changes made by the run (overrides proposed,
// records written, rows deleted).
func (c *Context) AddChanged(n int) {
	c.mu.Lock()
	c.report.Changed += n
	c.mu.Unlock()
}

// Finish seals the report.
func (c *Context) Finish(finishedAt time.Time, err error) Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.FinishedAt = finishedAt
	if err != nil {
		c.report.Error = err.Error()
	}
	return c.report
}

type UserFailure struct {
	UserID uuid.UUID `json:"user_id"`
	Error  string    `json:"error"`
}

// Report summarizes one sweep run.
type Report struct {
	Job        string        `json:"job"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Processed  int           `json:"processed"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Changed    int           `json:"changed"`
	Failures   []UserFailure `json:"failures,omitempty"`
	Error      string        `json:"error,omitempty"`
}

func (r Report) Status() string {
	switch {
	case r.Error != "":
		return "error"
	case r.Failed > 0:
		return "partial"
	default:
		return "ok"
	}
}
