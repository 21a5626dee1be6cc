package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adherence"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/jobs/runtime"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/adaptationtest"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/aggregator"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/approval"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/daily"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/matching"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/reassessment"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/triggers"
	"github.com/yungbote/planadapt-backend/internal/services"
)

var now = time.Date(2026, 5, 11, 6, 0, 0, 0, time.UTC)

func newScheduler(t *testing.T, env *adaptationtest.Env, handlers ...runtime.Handler) *Scheduler {
	t.Helper()
	reg := runtime.NewRegistry()
	for _, h := range handlers {
		require.NoError(t, reg.Register(h))
	}
	return New(env.Log, env.Clock, reg, services.NewLocalUserLocker(), env.Metrics, Config{Concurrency: 4})
}

func adaptationDeps(env *adaptationtest.Env) Deps {
	notifier := services.NewNotifier(env.Log, env.Repos.Notification, nil, env.Clock, env.Metrics)
	agg := aggregator.New(env.Log, env.Repos, env.Metrics)
	wf := approval.NewWorkflow(env.Log, env.Repos, env.Writer, env.Clock, notifier, env.Metrics, env.Params.Approval)
	det := triggers.NewDetector(env.Log, env.Repos, env.Clock, env.Metrics, env.Params.Triggers)
	matcher := matching.NewService(env.Log, env.Repos, env.Writer, matching.NewEngine(env.Params.Matching), env.Clock, env.Metrics)
	return Deps{
		Repos:        env.Repos,
		Daily:        daily.New(env.Log, env.Repos, agg, det, wf, matcher, env.Metrics, env.Params),
		Reassessment: reassessment.New(env.Log, env.Repos, env.Writer, agg, env.Clock, notifier, env.Metrics, env.Params),
		Approval:     wf,
		Matching:     matcher,
	}
}

func byJob(reports []runtime.Report) map[string]runtime.Report {
	out := make(map[string]runtime.Report, len(reports))
	for _, r := range reports {
		out[r.Job] = r
	}
	return out
}

func TestTick_RunsAdaptationSweepsOnCadence(t *testing.T) {
	env := adaptationtest.New(t, now)
	sched := newScheduler(t, env, Jobs(adaptationDeps(env))...)

	sleeper, due := uuid.New(), uuid.New()
	env.SeedProgram(t, sleeper, adaptationtest.ProgramSpec{StartDate: "2026-05-04", Sessions: adaptationtest.DailySessions()})
	env.SeedProgram(t, due, adaptationtest.ProgramSpec{StartDate: "2026-04-27", NextReassessment: "2026-05-11", Sessions: adaptationtest.DailySessions()})
	env.LogContext(t, &types.ContextLog{UserID: sleeper, LoggedAt: now.Add(-30 * time.Minute), SleepHours: adaptationtest.Float(4.5)})

	reports := byJob(sched.Tick(context.Background()))
	require.Len(t, reports, 5)
	for name, r := range reports {
		require.Equal(t, "ok", r.Status(), name)
	}

	// both users skipped their 2026-05-10 session; the sleeper also slept badly
	require.Equal(t, 2, reports[JobDailyAdjustment].Processed)
	require.Equal(t, 2, reports[JobDailyAdjustment].Changed)
	require.Equal(t, 1, reports[JobReassessmentDue].Processed)
	require.Equal(t, 1, reports[JobReassessmentDue].Changed)
	require.Equal(t, 0, reports[JobGracePeriodAutoApply].Processed)
	// the daily run already closed out 2026-05-10
	require.Equal(t, 2, reports[JobSkippedItemDetection].Processed)
	require.Equal(t, 0, reports[JobSkippedItemDetection].Changed)

	for _, userID := range []uuid.UUID{sleeper, due} {
		rows, err := env.Repos.DayOverride.ListByUserDateRange(env.DBC(), userID, "2026-05-11", "2026-05-11")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Contains(t, triggerTypes(rows[0]), adjustment.TriggerMissedWorkout)
	}

	prog, err := env.Repos.Program.GetActive(env.DBC(), due)
	require.NoError(t, err)
	require.Equal(t, 2, prog.Version)
	require.Equal(t, "2026-05-25", prog.NextReassessmentDate)

	env.Clock.Add(30 * time.Minute)
	require.Empty(t, sched.Tick(context.Background()))

	env.Clock.Add(30 * time.Minute)
	again := sched.Tick(context.Background())
	require.Len(t, again, 1)
	require.Equal(t, JobGracePeriodAutoApply, again[0].Job)

	last, ok := sched.LastRun(JobDailyAdjustment)
	require.True(t, ok)
	require.Equal(t, now, last)
}

func TestTick_GraceSweepAutoAppliesExpiredOverrides(t *testing.T) {
	env := adaptationtest.New(t, now)
	deps := adaptationDeps(env)
	sched := newScheduler(t, env, Jobs(deps)...)

	userID := uuid.New()
	env.SeedProgram(t, userID, adaptationtest.ProgramSpec{StartDate: "2026-05-11", Sessions: adaptationtest.DailySessions()})
	_, err := deps.Approval.UpdatePreferences(context.Background(), userID, func(p *types.AdjustmentPreferences) error {
		p.TriggerActions[adjustment.PreferenceKey(adjustment.TriggerPoorSleep, adjustment.DomainTraining)] = adjustment.ActionAutoApply
		return nil
	})
	require.NoError(t, err)
	env.LogContext(t, &types.ContextLog{UserID: userID, LoggedAt: now.Add(-30 * time.Minute), SleepHours: adaptationtest.Float(4.5)})

	first := byJob(sched.Tick(context.Background()))
	require.Equal(t, 1, first[JobDailyAdjustment].Changed)
	require.Equal(t, 0, first[JobGracePeriodAutoApply].Changed)

	env.Clock.Add(time.Hour)
	second := byJob(sched.Tick(context.Background()))
	require.Equal(t, 0, second[JobGracePeriodAutoApply].Changed)

	env.Clock.Add(61 * time.Minute)
	third := byJob(sched.Tick(context.Background()))
	require.Equal(t, 1, third[JobGracePeriodAutoApply].Processed)
	require.Equal(t, 1, third[JobGracePeriodAutoApply].Changed)

	rows, err := env.Repos.DayOverride.ListByUserDateRange(env.DBC(), userID, "2026-05-11", "2026-05-11")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, adjustment.StatusAutoApplied, rows[0].Status)
}

func TestTick_SkippedSessionTriggersNextDailyRun(t *testing.T) {
	env := adaptationtest.New(t, now)
	deps := adaptationDeps(env)
	sched := newScheduler(t, env, Jobs(deps)...)

	userID := uuid.New()
	env.SeedProgram(t, userID, adaptationtest.ProgramSpec{StartDate: "2026-05-11", Sessions: adaptationtest.DailySessions()})
	_, err := deps.Approval.UpdatePreferences(context.Background(), userID, func(p *types.AdjustmentPreferences) error {
		p.TriggerActions[adjustment.PreferenceKey(adjustment.TriggerLowAdherence, adjustment.DomainNutrition)] = adjustment.ActionDisable
		return nil
	})
	require.NoError(t, err)

	first := byJob(sched.Tick(context.Background()))
	require.Equal(t, 0, first[JobDailyAdjustment].Changed)
	require.Equal(t, 0, first[JobSkippedItemDetection].Changed)

	env.Clock.Add(24 * time.Hour)
	second := byJob(sched.Tick(context.Background()))
	require.Equal(t, 1, second[JobDailyAdjustment].Changed)
	require.Equal(t, 0, second[JobSkippedItemDetection].Changed)

	skipped, err := env.Repos.Adherence.ListByUserDateRange(env.DBC(), userID, "2026-05-11", "2026-05-11", adherence.CategoryTraining)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	require.Equal(t, adherence.StatusSkipped, skipped[0].Status)

	rows, err := env.Repos.DayOverride.ListByUserDateRange(env.DBC(), userID, "2026-05-12", "2026-05-12")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, string(adjustment.TriggerMissedWorkout), rows[0].ReasonCode)
	require.Equal(t, []adjustment.TriggerType{adjustment.TriggerMissedWorkout}, triggerTypes(rows[0]))
	require.Equal(t, -240, rows[0].Nutrition.CalorieAdjustment)

	// a second run for the same day neither re-sweeps nor re-proposes
	res, err := deps.Daily.Run(context.Background(), userID, "2026-05-12")
	require.NoError(t, err)
	require.Equal(t, 0, res.Swept)
	require.Equal(t, daily.OutcomeExisting, res.Outcome)
}

func triggerTypes(o *types.DayOverride) []adjustment.TriggerType {
	out := make([]adjustment.TriggerType, 0, len(o.Triggers))
	for _, e := range o.Triggers {
		out = append(out, e.Type)
	}
	return out
}

func TestRunJob_IsolatesUserFailures(t *testing.T) {
	env := adaptationtest.New(t, now)
	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	var ran atomic.Int32
	h := sweep{name: "flaky", interval: time.Hour, run: func(rc *runtime.Context) error {
		rc.ForEachUser(users, func(ctx context.Context, userID uuid.UUID) error {
			ran.Add(1)
			switch userID {
			case users[0]:
				panic("boom")
			case users[1]:
				return errors.New("store unavailable")
			}
			rc.AddChanged(1)
			return nil
		})
		return nil
	}}
	sched := newScheduler(t, env, h)

	rep, err := sched.RunJob(context.Background(), "flaky")
	require.NoError(t, err)
	require.EqualValues(t, 4, ran.Load())
	require.Equal(t, 4, rep.Processed)
	require.Equal(t, 2, rep.Succeeded)
	require.Equal(t, 2, rep.Failed)
	require.Equal(t, 2, rep.Changed)
	require.Equal(t, "partial", rep.Status())
	require.Len(t, rep.Failures, 2)
}

func TestRunJob_HandlerErrorsAndPanics(t *testing.T) {
	env := adaptationtest.New(t, now)
	sched := newScheduler(t, env,
		sweep{name: "broken", interval: time.Hour, run: func(*runtime.Context) error { return errors.New("list users: timeout") }},
		sweep{name: "panicky", interval: time.Hour, run: func(*runtime.Context) error { panic("nil map") }},
	)

	rep, err := sched.RunJob(context.Background(), "broken")
	require.NoError(t, err)
	require.Equal(t, "error", rep.Status())
	require.Contains(t, rep.Error, "timeout")

	rep, err = sched.RunJob(context.Background(), "panicky")
	require.NoError(t, err)
	require.Equal(t, "error", rep.Status())
	require.Contains(t, rep.Error, "panic")

	_, err = sched.RunJob(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownJob)
}

func TestRunJob_SerializesSameUser(t *testing.T) {
	env := adaptationtest.New(t, now)
	userID := uuid.New()
	var inside, maxInside atomic.Int32
	h := sweep{name: "dup", interval: time.Hour, run: func(rc *runtime.Context) error {
		rc.ForEachUser([]uuid.UUID{userID, userID, userID}, func(ctx context.Context, _ uuid.UUID) error {
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inside.Add(-1)
			return nil
		})
		return nil
	}}
	sched := newScheduler(t, env, h)

	rep, err := sched.RunJob(context.Background(), "dup")
	require.NoError(t, err)
	require.Equal(t, 3, rep.Succeeded)
	require.EqualValues(t, 1, maxInside.Load())
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	reg := runtime.NewRegistry()
	h := sweep{name: "a", interval: time.Hour, run: func(*runtime.Context) error { return nil }}
	require.NoError(t, reg.Register(h))
	require.Error(t, reg.Register(h))
	require.Error(t, reg.Register(sweep{name: "b", run: h.run}))
	require.Len(t, reg.List(), 1)
}
