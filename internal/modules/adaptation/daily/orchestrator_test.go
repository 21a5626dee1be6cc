package daily

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adherence"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/adaptationtest"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/aggregator"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/approval"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/matching"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/triggers"
	"github.com/yungbote/planadapt-backend/internal/services"
)

const today = "2026-05-11"

var now = time.Date(2026, 5, 11, 6, 0, 0, 0, time.UTC)

type fixture struct {
	env      *adaptationtest.Env
	orch     *Orchestrator
	workflow *approval.Workflow
	userID   uuid.UUID
}

// setup starts the program today so no earlier day can produce adherence
// triggers.
func setup(t *testing.T, sessions []*types.PlannedSession) *fixture {
	return setupFrom(t, today, sessions)
}

func setupFrom(t *testing.T, start string, sessions []*types.PlannedSession) *fixture {
	env := adaptationtest.New(t, now)
	notifier := services.NewNotifier(env.Log, env.Repos.Notification, nil, env.Clock, env.Metrics)
	wf := approval.NewWorkflow(env.Log, env.Repos, env.Writer, env.Clock, notifier, env.Metrics, env.Params.Approval)
	det := triggers.NewDetector(env.Log, env.Repos, env.Clock, env.Metrics, env.Params.Triggers)
	matcher := matching.NewService(env.Log, env.Repos, env.Writer, matching.NewEngine(env.Params.Matching), env.Clock, env.Metrics)
	orch := New(env.Log, env.Repos, aggregator.New(env.Log, env.Repos, env.Metrics), det, wf, matcher, env.Metrics, env.Params)
	userID := uuid.New()
	env.SeedProgram(t, userID, adaptationtest.ProgramSpec{StartDate: start, Sessions: sessions})
	return &fixture{env: env, orch: orch, workflow: wf, userID: userID}
}

func (f *fixture) context(t *testing.T, c *types.ContextLog) {
	c.UserID = f.userID
	if c.LoggedAt.IsZero() {
		c.LoggedAt = now.Add(-30 * time.Minute)
	}
	f.env.LogContext(t, c)
}

func TestRun_PoorSleepProposesTrainingOnly(t *testing.T) {
	f := setup(t, adaptationtest.DailySessions())
	f.context(t, &types.ContextLog{SleepHours: adaptationtest.Float(4.5)})

	res, err := f.orch.Run(context.Background(), f.userID, today)
	require.NoError(t, err)
	require.Equal(t, OutcomeProposed, res.Outcome)

	o := res.Override
	require.Equal(t, adjustment.OverrideTraining, o.OverrideType)
	require.Equal(t, string(adjustment.TriggerPoorSleep), o.ReasonCode)
	require.Nil(t, o.Nutrition)
	require.Equal(t, 0.88, o.Training.VolumeMultiplier)
	require.NotNil(t, o.Training.SessionID)
	// confidence 0.69 stays below the auto-apply threshold
	require.Equal(t, adjustment.ActionAskMe, res.Action)
	require.Nil(t, o.GracePeriodExpiresAt)
	require.Equal(t, adjustment.StatusPending, o.Status)
}

func TestRun_SkipsDayWithOverride(t *testing.T) {
	f := setup(t, adaptationtest.DailySessions())
	f.context(t, &types.ContextLog{SleepHours: adaptationtest.Float(4.5)})

	first, err := f.orch.Run(context.Background(), f.userID, today)
	require.NoError(t, err)
	_, err = f.workflow.Reject(context.Background(), first.Override.ID, "")
	require.NoError(t, err)

	again, err := f.orch.Run(context.Background(), f.userID, today)
	require.NoError(t, err)
	require.Equal(t, OutcomeExisting, again.Outcome)
	require.Nil(t, again.Override)
}

func TestRun_MissedWorkoutAutoApplies(t *testing.T) {
	f := setupFrom(t, "2026-05-10", adaptationtest.DailySessions())
	ctx := context.Background()
	_, err := f.workflow.UpdatePreferences(ctx, f.userID, func(p *types.AdjustmentPreferences) error {
		p.TriggerActions[adjustment.PreferenceKey(adjustment.TriggerMissedWorkout, adjustment.DomainNutrition)] = adjustment.ActionAutoApply
		p.TriggerActions[adjustment.PreferenceKey(adjustment.TriggerLowAdherence, adjustment.DomainNutrition)] = adjustment.ActionDisable
		return nil
	})
	require.NoError(t, err)

	// nothing was logged for the 2026-05-10 session and no sweep has run yet
	res, err := f.orch.Run(ctx, f.userID, today)
	require.NoError(t, err)
	require.Equal(t, 1, res.Swept)
	require.Equal(t, OutcomeProposed, res.Outcome)
	require.Equal(t, adjustment.ActionAutoApply, res.Action)
	require.Len(t, res.Events, 1)
	require.Equal(t, adjustment.TriggerMissedWorkout, res.Events[0].Type)

	records, err := f.env.Repos.Adherence.ListByUserDateRange(f.env.DBC(), f.userID, "2026-05-10", "2026-05-10", adherence.CategoryTraining)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, adherence.StatusSkipped, records[0].Status)

	o := res.Override
	require.Equal(t, adjustment.OverrideNutrition, o.OverrideType)
	require.Equal(t, -240, o.Nutrition.CalorieAdjustment)
	require.Equal(t, 2100-240, o.Nutrition.TargetCalories)
	require.Equal(t, 0.85, o.Confidence)
	require.True(t, o.GracePeriodExpiresAt.Equal(now.Add(120*time.Minute)))

	f.env.Clock.Add(2*time.Hour + time.Minute)
	applied, err := f.workflow.AutoApply(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, applied)
}

func TestRun_LoggedSessionIsNotMissed(t *testing.T) {
	f := setupFrom(t, "2026-05-10", adaptationtest.DailySessions())
	sessions, err := f.env.Repos.PlannedItem.ListSessionsByDay(f.env.DBC(), mustProgram(t, f).ID, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	_, err = f.env.Repos.Adherence.InsertIfAbsent(f.env.DBC(), &types.AdherenceRecord{
		UserID:       f.userID,
		RecordDate:   "2026-05-10",
		Category:     adherence.CategoryTraining,
		PlannedRefID: sessions[0].ID,
		Status:       adherence.StatusCompleted,
		Score:        0.92,
		DedupeKey:    "activity:2026-05-10",
	})
	require.NoError(t, err)

	res, err := f.orch.Run(context.Background(), f.userID, today)
	require.NoError(t, err)
	require.Equal(t, 0, res.Swept)
	for _, e := range res.Events {
		require.NotEqual(t, adjustment.TriggerMissedWorkout, e.Type)
	}
}

func mustProgram(t *testing.T, f *fixture) *types.Program {
	t.Helper()
	prog, err := f.env.Repos.Program.GetActive(f.env.DBC(), f.userID)
	require.NoError(t, err)
	require.NotNil(t, prog)
	return prog
}

func TestRun_InjuryCancelsSession(t *testing.T) {
	f := setup(t, adaptationtest.DailySessions())
	f.context(t, &types.ContextLog{Injury: true, InjuryNote: "tweaked knee"})

	res, err := f.orch.Run(context.Background(), f.userID, today)
	require.NoError(t, err)
	require.True(t, res.Override.Training.SessionCancelled)
	require.Equal(t, string(adjustment.TriggerInjury), res.Override.ReasonCode)
}

func TestRun_NoOpOutcomes(t *testing.T) {
	t.Run("quiet day", func(t *testing.T) {
		f := setup(t, nil)
		f.context(t, &types.ContextLog{SleepHours: adaptationtest.Float(8)})
		res, err := f.orch.Run(context.Background(), f.userID, today)
		require.NoError(t, err)
		require.Equal(t, OutcomeNoAdjustment, res.Outcome)
	})

	t.Run("globally disabled", func(t *testing.T) {
		f := setup(t, adaptationtest.DailySessions())
		_, err := f.workflow.UpdatePreferences(context.Background(), f.userID, func(p *types.AdjustmentPreferences) error {
			p.DailyAdjustmentsEnabled = false
			return nil
		})
		require.NoError(t, err)
		f.context(t, &types.ContextLog{Injury: true})
		res, err := f.orch.Run(context.Background(), f.userID, today)
		require.NoError(t, err)
		require.Equal(t, OutcomeDisabled, res.Outcome)
	})

	t.Run("pair disabled", func(t *testing.T) {
		f := setup(t, adaptationtest.DailySessions())
		_, err := f.workflow.UpdatePreferences(context.Background(), f.userID, func(p *types.AdjustmentPreferences) error {
			p.TriggerActions[adjustment.PreferenceKey(adjustment.TriggerPoorSleep, adjustment.DomainTraining)] = adjustment.ActionDisable
			return nil
		})
		require.NoError(t, err)
		f.context(t, &types.ContextLog{SleepHours: adaptationtest.Float(4.5)})
		res, err := f.orch.Run(context.Background(), f.userID, today)
		require.NoError(t, err)
		require.Equal(t, OutcomeNoAdjustment, res.Outcome)
	})

	t.Run("no program", func(t *testing.T) {
		f := setup(t, nil)
		res, err := f.orch.Run(context.Background(), uuid.New(), today)
		require.NoError(t, err)
		require.Equal(t, OutcomeNoProgram, res.Outcome)
	})
}
