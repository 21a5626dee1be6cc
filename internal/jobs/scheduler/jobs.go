package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/planadapt-backend/internal/data/repos"
	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/jobs/runtime"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/approval"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/daily"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/matching"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/reassessment"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
)

const (
	JobDailyAdjustment      = "daily_adjustment"
	JobReassessmentDue      = "reassessment_due"
	JobGracePeriodAutoApply = "grace_period_auto_apply"
	JobSkippedItemDetection = "skipped_item_detection"
	JobNotificationCleanup  = "notification_cleanup"
)

// Deps are the collaborators the built-in sweeps drive.
type Deps struct {
	Repos        repos.Repos
	Daily        *daily.Orchestrator
	Reassessment *reassessment.Orchestrator
	Approval     *approval.Workflow
	Matching     *matching.Service
}

type sweep struct {
	name     string
	interval time.Duration
	run      func(rc *runtime.Context) error
}

func (s sweep) Name() string                  { return s.name }
func (s sweep) Interval() time.Duration       { return s.interval }
func (s sweep) Run(rc *runtime.Context) error { return s.run(rc) }

// Jobs returns the five adaptation sweeps.
func Jobs(d Deps) []runtime.Handler {
	return []runtime.Handler{
		sweep{JobDailyAdjustment, 24 * time.Hour, d.dailyAdjustment},
		sweep{JobReassessmentDue, 24 * time.Hour, d.reassessmentDue},
		sweep{JobGracePeriodAutoApply, time.Hour, d.gracePeriodAutoApply},
		sweep{JobSkippedItemDetection, 24 * time.Hour, d.skippedItemDetection},
		sweep{JobNotificationCleanup, 7 * 24 * time.Hour, d.notificationCleanup},
	}
}

// Register adds every sweep to registry.
func Register(registry *runtime.Registry, d Deps) error {
	for _, h := range Jobs(d) {
		if err := registry.Register(h); err != nil {
			return err
		}
	}
	return nil
}

func (d Deps) dailyAdjustment(rc *runtime.Context) error {
	users, err := d.Repos.Program.ListActiveUserIDs(dbctx.Background(rc.Ctx))
	if err != nil {
		return fmt.Errorf("list active users: %w", err)
	}
	date := clock.DateString(rc.Now)
	rc.ForEachUser(users, func(ctx context.Context, userID uuid.UUID) error {
		res, err := d.Daily.Run(ctx, userID, date)
		if err != nil {
			return err
		}
		if res != nil && res.Outcome == daily.OutcomeProposed {
			rc.AddChanged(1)
		}
		return nil
	})
	return nil
}

func (d Deps) reassessmentDue(rc *runtime.Context) error {
	due, err := d.Repos.Program.ListDueForReassessment(dbctx.Background(rc.Ctx), clock.DateString(rc.Now))
	if err != nil {
		return fmt.Errorf("list due programs: %w", err)
	}
	users := make([]uuid.UUID, 0, len(due))
	for _, p := range due {
		users = append(users, p.UserID)
	}
	rc.ForEachUser(users, func(ctx context.Context, userID uuid.UUID) error {
		res, err := d.Reassessment.Run(ctx, userID, false)
		if err != nil {
			return err
		}
		if res != nil {
			rc.AddChanged(1)
		}
		return nil
	})
	return nil
}

func (d Deps) gracePeriodAutoApply(rc *runtime.Context) error {
	expired, err := d.Approval.ListGraceExpired(rc.Ctx)
	if err != nil {
		return fmt.Errorf("list grace-expired overrides: %w", err)
	}
	byUser := make(map[uuid.UUID][]*types.DayOverride)
	var users []uuid.UUID
	for _, o := range expired {
		if _, seen := byUser[o.UserID]; !seen {
			users = append(users, o.UserID)
		}
		byUser[o.UserID] = append(byUser[o.UserID], o)
	}
	rc.ForEachUser(users, func(ctx context.Context, userID uuid.UUID) error {
		for _, o := range byUser[userID] {
			ok, err := d.Approval.AutoApply(ctx, o.ID)
			if err != nil {
				return fmt.Errorf("override %s: %w", o.ID, err)
			}
			if ok {
				rc.AddChanged(1)
			}
		}
		return nil
	})
	return nil
}

func (d Deps) skippedItemDetection(rc *runtime.Context) error {
	users, err := d.Repos.Program.ListActiveUserIDs(dbctx.Background(rc.Ctx))
	if err != nil {
		return fmt.Errorf("list active users: %w", err)
	}
	yesterday := clock.DateString(rc.Now.AddDate(0, 0, -1))
	rc.ForEachUser(users, func(ctx context.Context, userID uuid.UUID) error {
		n, err := d.Matching.DetectSkipped(ctx, userID, yesterday)
		if err != nil {
			return err
		}
		rc.AddChanged(n)
		return nil
	})
	return nil
}

func (d Deps) notificationCleanup(rc *runtime.Context) error {
	users, err := d.Repos.Notification.ListUserIDs(dbctx.Background(rc.Ctx))
	if err != nil {
		return fmt.Errorf("list notification users: %w", err)
	}
	rc.ForEachUser(users, func(ctx context.Context, userID uuid.UUID) error {
		dbc := dbctx.Background(ctx)
		prefs, err := d.Repos.Preferences.GetOrCreate(dbc, userID)
		if err != nil {
			return fmt.Errorf("load preferences: %w", err)
		}
		n, err := d.Repos.Notification.DeleteExpired(dbc, userID, rc.Now, rc.Now.Add(-prefs.NotificationRetention()))
		if err != nil {
			return err
		}
		rc.AddChanged(int(n))
		return nil
	})
	return nil
}
