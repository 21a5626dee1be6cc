package reassessment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/domain/plan"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/adaptationtest"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/aggregator"
	"github.com/yungbote/planadapt-backend/internal/services"
)

var reassessDay = time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC)

func day(i int) time.Time { return time.Date(2026, 3, 2+i, 7, 0, 0, 0, time.UTC) }

func setup(t *testing.T, ps adaptationtest.ProgramSpec) (*adaptationtest.Env, *Orchestrator, uuid.UUID, *types.Program) {
	env := adaptationtest.New(t, reassessDay)
	notifier := services.NewNotifier(env.Log, env.Repos.Notification, nil, env.Clock, env.Metrics)
	o := New(env.Log, env.Repos, env.Writer, aggregator.New(env.Log, env.Repos, env.Metrics), env.Clock, notifier, env.Metrics, env.Params)
	userID := uuid.New()
	if ps.StartDate == "" {
		ps.StartDate = "2026-03-02"
	}
	if ps.Sessions == nil {
		ps.Sessions = adaptationtest.DailySessions()
	}
	return env, o, userID, env.SeedProgram(t, userID, ps)
}

func TestRun_NotDueIsNil(t *testing.T) {
	_, o, userID, _ := setup(t, adaptationtest.ProgramSpec{NextReassessment: "2026-03-20"})
	res, err := o.Run(context.Background(), userID, false)
	require.NoError(t, err)
	require.Nil(t, res)

	res, err = o.Run(context.Background(), uuid.New(), true)
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestRun_SlowLossCutsCalories(t *testing.T) {
	env, o, userID, prog := setup(t, adaptationtest.ProgramSpec{})
	for i := 0; i < 14; i++ {
		env.LogWeight(t, userID, day(i), 80-0.1*float64(i)/13)
	}

	res, err := o.Run(context.Background(), userID, false)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, aggregator.TierHigh, res.Window.Quality)
	require.InDelta(t, -0.455, res.TargetRateKgPerWeek, 1e-9)
	require.NotNil(t, res.Calorie)

	adj := res.Nutrition.Adjustment
	require.Negative(t, adj)
	require.Zero(t, adj%50)
	require.LessOrEqual(t, -adj, 500)

	// nothing was logged against the sessions, so volume drops by the full step
	require.Equal(t, -20, res.Training.Delta)
	require.True(t, res.NeedsNewProgram)
	require.Equal(t, "2026-03-30", res.NextReassessmentDate)

	updated, err := env.Repos.Program.GetByID(env.DBC(), prog.ID)
	require.NoError(t, err)
	require.Equal(t, 2, updated.Version)
	require.Equal(t, prog.TargetCalories+adj, updated.TargetCalories)
	require.Equal(t, prog.ProteinG, updated.ProteinG)
	require.Less(t, updated.CarbsG, prog.CarbsG)
	require.Equal(t, 40, updated.WeeklyVolumeSets)
	require.Equal(t, "2026-03-30", updated.NextReassessmentDate)
	sum := 0
	for _, v := range updated.VolumeByMuscle {
		sum += v
	}
	require.Equal(t, 40, sum)

	events, err := env.Repos.PlanChangeEvent.ListByUser(env.DBC(), userID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 1, events[0].FromVersion)
	require.Equal(t, 2, events[0].ToVersion)
	require.NotEmpty(t, events[0].Rationale)

	st, err := env.Repos.PIDState.Get(env.DBC(), userID, adjustment.ControllerCalorie)
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Equal(t, 1, st.Steps)
	require.NotZero(t, st.Integral)
}

func TestRun_InsufficientWeightHoldsCalories(t *testing.T) {
	env, o, userID, prog := setup(t, adaptationtest.ProgramSpec{})
	env.LogWeight(t, userID, day(3), 80)

	res, err := o.Run(context.Background(), userID, false)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Nil(t, res.Calorie)
	require.Zero(t, res.Nutrition.Adjustment)
	require.Equal(t, "2026-03-30", res.NextReassessmentDate)

	updated, err := env.Repos.Program.GetByID(env.DBC(), prog.ID)
	require.NoError(t, err)
	require.Equal(t, prog.TargetCalories, updated.TargetCalories)
	require.Equal(t, 2, updated.Version)

	st, err := env.Repos.PIDState.Get(env.DBC(), userID, adjustment.ControllerCalorie)
	require.NoError(t, err)
	require.Nil(t, st)
}

func TestRun_DeloadHalvesVolume(t *testing.T) {
	lastDeload := "2026-02-01"
	env, o, userID, prog := setup(t, adaptationtest.ProgramSpec{LastDeloadDate: &lastDeload})

	res, err := o.Run(context.Background(), userID, false)
	require.NoError(t, err)
	require.True(t, res.Volume.Deload)
	require.Equal(t, 30, res.Training.NewSets)
	require.True(t, res.Event.Deload)

	updated, err := env.Repos.Program.GetByID(env.DBC(), prog.ID)
	require.NoError(t, err)
	require.Equal(t, 30, updated.WeeklyVolumeSets)
	require.NotNil(t, updated.LastDeloadDate)
	require.Equal(t, "2026-03-16", *updated.LastDeloadDate)

	st, err := env.Repos.PIDState.Get(env.DBC(), userID, adjustment.ControllerVolume)
	require.NoError(t, err)
	require.Nil(t, st)
}

func TestRun_ForcedAdvancesFromStoredDate(t *testing.T) {
	env, o, userID, prog := setup(t, adaptationtest.ProgramSpec{NextReassessment: "2026-03-20"})
	res, err := o.Run(context.Background(), userID, true)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "2026-04-03", res.NextReassessmentDate)

	updated, err := env.Repos.Program.GetByID(env.DBC(), prog.ID)
	require.NoError(t, err)
	require.Equal(t, "2026-04-03", updated.NextReassessmentDate)
}

func TestRedistribute(t *testing.T) {
	m := plan.MacroSplit{ProteinG: 160, CarbsG: 220, FatG: 65}

	down := Redistribute(m, -200, 50, 40)
	require.Equal(t, plan.MacroSplit{ProteinG: 160, CarbsG: 170, FatG: 65}, down)

	up := Redistribute(m, 300, 50, 40)
	require.Equal(t, 295.0, up.CarbsG)

	// carbs bottom out, fat absorbs the rest
	deep := Redistribute(plan.MacroSplit{ProteinG: 160, CarbsG: 80, FatG: 70}, -300, 50, 40)
	require.Equal(t, 50.0, deep.CarbsG)
	require.Equal(t, 50.0, deep.FatG)
	require.Equal(t, 160.0, deep.ProteinG)

	require.Equal(t, m, Redistribute(m, 0, 50, 40))
}

func TestScaleMuscles(t *testing.T) {
	out := ScaleMuscles(map[string]int{"chest": 20, "back": 20, "legs": 20}, 40)
	sum := 0
	for _, v := range out {
		sum += v
	}
	require.Equal(t, 40, sum)
	require.Len(t, out, 3)

	require.Empty(t, ScaleMuscles(nil, 40))
}
