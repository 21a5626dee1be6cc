package triggers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/domain/tracking"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/control"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
)

func f(v float64) *float64 { return &v }

var now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func ctxLog(mut func(c *tracking.ContextLog)) *tracking.ContextLog {
	c := &tracking.ContextLog{LogDate: "2026-05-04", LoggedAt: now.Add(-2 * time.Hour)}
	mut(c)
	return c
}

func TestPoorSleepScenario(t *testing.T) {
	cfg := params.Default()
	events := Evaluate(cfg.Triggers, Input{Now: now, Context: ctxLog(func(c *tracking.ContextLog) { c.SleepHours = f(4.5) })})

	require.Len(t, events, 1)
	require.Equal(t, adjustment.TriggerPoorSleep, events[0].Type)
	require.Equal(t, 3.0, events[0].Severity)

	p := Map(cfg.Triggers, events, nil)
	require.Equal(t, 0.88, p.Multiplier)
	require.Zero(t, p.CalorieDelta)
	require.False(t, p.HasNutrition())
	require.True(t, p.HasTraining())

	tg := control.GateDailyTraining(cfg.Safety, p.Multiplier)
	require.Equal(t, 0.88, tg.Multiplier)
	require.Empty(t, tg.Rationale)
	ng := control.GateNutrition(cfg.Safety, 2100, 2600, p.CalorieDelta)
	require.Zero(t, ng.Adjustment)
	require.Empty(t, ng.Rationale)
}

func TestEvaluate_Table(t *testing.T) {
	cfg := params.Default().Triggers
	cases := []struct {
		name     string
		in       Input
		want     adjustment.TriggerType
		severity float64
	}{
		{"sleep floor", Input{Now: now, Context: ctxLog(func(c *tracking.ContextLog) { c.SleepHours = f(0) })}, adjustment.TriggerPoorSleep, 10},
		{"sleep quality", Input{Now: now, Context: ctxLog(func(c *tracking.ContextLog) { c.SleepQuality = f(3) })}, adjustment.TriggerPoorSleepQuality, 4},
		{"stress", Input{Now: now, Context: ctxLog(func(c *tracking.ContextLog) { c.StressLevel = f(8) })}, adjustment.TriggerHighStress, 8},
		{"soreness", Input{Now: now, Context: ctxLog(func(c *tracking.ContextLog) { c.SorenessLevel = f(9) })}, adjustment.TriggerHighSoreness, 9},
		{"injury", Input{Now: now, Context: ctxLog(func(c *tracking.ContextLog) { c.Injury = true })}, adjustment.TriggerInjury, 9},
		{"missed workout", Input{Now: now, MissedYesterday: 1}, adjustment.TriggerMissedWorkout, 6},
		{"low adherence", Input{Now: now, TrainingScheduled: 7, HasAdherenceData: true, TrainingAdherence: 0.2}, adjustment.TriggerLowAdherence, 6},
		{"high adherence", Input{Now: now, TrainingScheduled: 7, HasAdherenceData: true, TrainingAdherence: 1}, adjustment.TriggerHighAdherence, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := Evaluate(cfg, tc.in)
			require.Len(t, events, 1)
			require.Equal(t, tc.want, events[0].Type)
			require.InDelta(t, tc.severity, events[0].Severity, 1e-9)
			require.Greater(t, events[0].Confidence, 0.0)
			require.LessOrEqual(t, events[0].Confidence, 1.0)
		})
	}
}

func TestEvaluate_QuietDay(t *testing.T) {
	cfg := params.Default().Triggers
	in := Input{
		Now: now,
		Context: ctxLog(func(c *tracking.ContextLog) {
			c.SleepHours, c.SleepQuality, c.StressLevel, c.SorenessLevel = f(7.5), f(7), f(7), f(7)
		}),
		TrainingScheduled: 7,
		HasAdherenceData:  true,
		TrainingAdherence: 0.7,
	}
	require.Empty(t, Evaluate(cfg, in))

	// nothing scheduled, or nothing recorded, means no adherence signal
	require.Empty(t, Evaluate(cfg, Input{Now: now}))
	require.Empty(t, Evaluate(cfg, Input{Now: now, TrainingScheduled: 7}))
}

func TestEvaluate_StaleContextLowersConfidence(t *testing.T) {
	cfg := params.Default().Triggers
	fresh := Evaluate(cfg, Input{Now: now, Context: ctxLog(func(c *tracking.ContextLog) { c.StressLevel = f(9) })})
	stale := Evaluate(cfg, Input{Now: now, Context: ctxLog(func(c *tracking.ContextLog) {
		c.StressLevel = f(9)
		c.LoggedAt = now.Add(-40 * time.Hour)
	})})
	require.Less(t, stale[0].Confidence, fresh[0].Confidence)
}

func TestMap_CombinesAndFilters(t *testing.T) {
	cfg := params.Default().Triggers
	events := []adjustment.TriggerEvent{
		{Type: adjustment.TriggerHighStress, Severity: 8, Detail: "stress 8/10"},
		{Type: adjustment.TriggerHighSoreness, Severity: 9, Detail: "soreness 9/10"},
		{Type: adjustment.TriggerMissedWorkout, Severity: 6, Detail: "missed"},
		{Type: adjustment.TriggerHighAdherence, Severity: 2, Detail: "great week"},
	}

	p := Map(cfg, events, nil)
	require.Equal(t, 120-240+200, p.CalorieDelta)
	require.Equal(t, 50.0, p.CarbsDeltaG)
	require.InDelta(t, 0.85*0.75, p.Multiplier, 1e-3)
	require.Equal(t, -1, p.IntensityDelta)
	require.Len(t, p.Rationale, 5)

	noNutrition := Map(cfg, events, func(_ adjustment.TriggerType, d adjustment.Domain) bool {
		return d != adjustment.DomainNutrition
	})
	require.False(t, noNutrition.HasNutrition())
	require.Empty(t, noNutrition.Nutrition)
	require.ElementsMatch(t, []adjustment.TriggerType{adjustment.TriggerHighStress, adjustment.TriggerHighSoreness}, noNutrition.Training)
}

func TestMap_InjuryCancelsSession(t *testing.T) {
	p := Map(params.Default().Triggers, []adjustment.TriggerEvent{{Type: adjustment.TriggerInjury, Severity: 9}}, nil)
	require.True(t, p.CancelSession)
	require.True(t, p.HasTraining())
	require.Equal(t, 1.0, p.Multiplier)
}

func TestMissedWorkoutKcalIsCapped(t *testing.T) {
	p := Map(params.Default().Triggers, []adjustment.TriggerEvent{{Type: adjustment.TriggerMissedWorkout, Severity: 20}}, nil)
	require.Equal(t, -400, p.CalorieDelta)
}

func TestReasonCodeAndConfidence(t *testing.T) {
	events := []adjustment.TriggerEvent{
		{Type: adjustment.TriggerPoorSleep, Severity: 3, Confidence: 0.69},
		{Type: adjustment.TriggerInjury, Severity: 9, Confidence: 0.95},
		{Type: adjustment.TriggerHighSoreness, Severity: 9, Confidence: 0.87},
	}
	require.Equal(t, string(adjustment.TriggerInjury), ReasonCode(events))
	require.InDelta(t, (0.69+0.95+0.87)/3, Confidence(events), 0.01)
	require.Empty(t, ReasonCode(nil))
	require.Zero(t, Confidence(nil))
}
