package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adherence"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	domainagg "github.com/yungbote/planadapt-backend/internal/domain/aggregates"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/adaptationtest"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
)

const (
	windowStart = "2026-03-02"
	windowEnd   = "2026-03-15"
)

func day(i int) time.Time {
	return time.Date(2026, 3, 2+i, 7, 30, 0, 0, time.UTC)
}

func setup(t *testing.T) (*adaptationtest.Env, *Aggregator, uuid.UUID, *types.Program) {
	env := adaptationtest.New(t, time.Date(2026, 3, 16, 6, 0, 0, 0, time.UTC))
	userID := uuid.New()
	prog := env.SeedProgram(t, userID, adaptationtest.ProgramSpec{StartDate: windowStart, Sessions: adaptationtest.DailySessions()})
	return env, New(env.Log, env.Repos, env.Metrics), userID, prog
}

func addTrainingRecord(t *testing.T, env *adaptationtest.Env, userID, plannedID uuid.UUID, i int, status string) {
	t.Helper()
	actual := uuid.New()
	date := clock.DateString(day(i))
	_, err := env.Repos.Adherence.InsertIfAbsent(env.DBC(), &types.AdherenceRecord{
		UserID:       userID,
		RecordDate:   date,
		Category:     adherence.CategoryTraining,
		PlannedRefID: plannedID,
		ActualRefID:  &actual,
		Status:       status,
		Score:        0.9,
		DedupeKey:    adherence.MatchDedupeKey(actual),
	})
	require.NoError(t, err)
}

func sessionFor(t *testing.T, env *adaptationtest.Env, prog *types.Program, i int) uuid.UUID {
	t.Helper()
	sessions, err := env.Repos.PlannedItem.ListSessionsByDay(env.DBC(), prog.ID, i%7)
	require.NoError(t, err)
	require.NotEmpty(t, sessions)
	return sessions[0].ID
}

func TestAggregate_EmptyWindowIsInsufficientZero(t *testing.T) {
	_, agg, userID, _ := setup(t)

	out, err := agg.Aggregate(context.Background(), userID, windowStart, windowEnd)
	require.NoError(t, err)
	require.Equal(t, TierInsufficient, out.Quality)
	require.Zero(t, out.Confidence)
	require.Equal(t, 14, out.TrainingScheduled)
	require.Zero(t, out.TrainingAdherence)
	require.Zero(t, out.NutritionAdherence)
	require.Nil(t, out.WeightChangeKgPerWeek)

	_, err = out.WeightTrend()
	require.True(t, errors.Is(err, adjustment.ErrInsufficientData))
}

func TestAggregate_FullWindowIsHigh(t *testing.T) {
	env, agg, userID, prog := setup(t)
	for i := 0; i < 14; i++ {
		status := adherence.StatusCompleted
		if i%7 == 3 {
			status = adherence.StatusPartial
		}
		addTrainingRecord(t, env, userID, sessionFor(t, env, prog, i), i, status)
		env.LogWeight(t, userID, day(i), 80-float64(i)/13)
	}

	out, err := agg.Aggregate(context.Background(), userID, windowStart, windowEnd)
	require.NoError(t, err)
	require.Equal(t, TierHigh, out.Quality)
	require.InDelta(t, 0.9, out.Confidence, 1e-9)
	require.Equal(t, 14, out.TrainingScheduled)
	require.Equal(t, 12, out.TrainingAdherent)
	require.InDelta(t, 12.0/14.0, out.TrainingAdherence, 1e-3)
	require.Zero(t, out.NutritionScheduled)
	require.Zero(t, out.NutritionAdherence)

	trend, err := out.WeightTrend()
	require.NoError(t, err)
	require.InDelta(t, -1.0/(13.0/7.0), trend, 1e-3)
}

func TestAggregate_TiersFollowSampleRate(t *testing.T) {
	t.Run("medium", func(t *testing.T) {
		env, agg, userID, _ := setup(t)
		for i := 0; i < 14; i += 2 {
			env.LogWeight(t, userID, day(i), 80)
		}
		out, err := agg.Aggregate(context.Background(), userID, windowStart, windowEnd)
		require.NoError(t, err)
		require.Equal(t, TierMedium, out.Quality)
		require.InDelta(t, 0.7, out.Confidence, 1e-9)
	})

	t.Run("low without adherence", func(t *testing.T) {
		env, agg, userID, _ := setup(t)
		for _, i := range []int{0, 3, 6, 9, 12} {
			env.LogWeight(t, userID, day(i), 80)
		}
		out, err := agg.Aggregate(context.Background(), userID, windowStart, windowEnd)
		require.NoError(t, err)
		require.Equal(t, TierLow, out.Quality)
		require.InDelta(t, 0.4, out.Confidence, 1e-9)
	})

	t.Run("low with adherence", func(t *testing.T) {
		env, agg, userID, prog := setup(t)
		for _, i := range []int{0, 3, 6, 9, 12} {
			env.LogWeight(t, userID, day(i), 80)
		}
		addTrainingRecord(t, env, userID, sessionFor(t, env, prog, 3), 3, adherence.StatusCompleted)
		out, err := agg.Aggregate(context.Background(), userID, windowStart, windowEnd)
		require.NoError(t, err)
		require.Equal(t, TierLow, out.Quality)
		require.InDelta(t, 0.5, out.Confidence, 1e-9)
	})

	t.Run("one weight sample", func(t *testing.T) {
		env, agg, userID, _ := setup(t)
		for i := 0; i < 14; i++ {
			env.LogContext(t, &types.ContextLog{UserID: userID, LoggedAt: day(i), SleepHours: adaptationtest.Float(7)})
		}
		env.LogWeight(t, userID, day(5), 80)
		out, err := agg.Aggregate(context.Background(), userID, windowStart, windowEnd)
		require.NoError(t, err)
		require.Equal(t, TierInsufficient, out.Quality)
		require.InDelta(t, 0.2, out.Confidence, 1e-9)
	})

	t.Run("short weight span stays under ceiling", func(t *testing.T) {
		env, agg, userID, _ := setup(t)
		for i := 0; i < 14; i++ {
			env.LogContext(t, &types.ContextLog{UserID: userID, LoggedAt: day(i), SleepHours: adaptationtest.Float(7)})
		}
		env.LogWeight(t, userID, day(10), 80)
		env.LogWeight(t, userID, day(13), 79.8)
		out, err := agg.Aggregate(context.Background(), userID, windowStart, windowEnd)
		require.NoError(t, err)
		require.Equal(t, TierHigh, out.Quality)
		require.InDelta(t, 0.72, out.Confidence, 1e-9)
		require.LessOrEqual(t, out.Confidence, TierHigh.Ceiling(out.HasAdherenceData))
	})
}

func TestAggregate_ContextAveragesIgnoreMissingFields(t *testing.T) {
	env, agg, userID, _ := setup(t)
	env.LogContext(t, &types.ContextLog{UserID: userID, LoggedAt: day(0), SleepHours: adaptationtest.Float(6), StressLevel: adaptationtest.Float(8)})
	env.LogContext(t, &types.ContextLog{UserID: userID, LoggedAt: day(1), SleepHours: adaptationtest.Float(8)})
	env.LogContext(t, &types.ContextLog{UserID: userID, LoggedAt: day(2), SorenessLevel: adaptationtest.Float(4)})

	out, err := agg.Aggregate(context.Background(), userID, windowStart, windowEnd)
	require.NoError(t, err)
	require.Equal(t, 3, out.Context.Samples)
	require.NotNil(t, out.Context.SleepHours)
	require.InDelta(t, 7, *out.Context.SleepHours, 1e-9)
	require.InDelta(t, 8, *out.Context.Stress, 1e-9)
	require.InDelta(t, 4, *out.Context.Soreness, 1e-9)
	require.Nil(t, out.Context.SleepQuality)
	require.Nil(t, out.Context.Energy)
}

func TestAggregate_RejectsInvertedWindow(t *testing.T) {
	_, agg, userID, _ := setup(t)
	_, err := agg.Aggregate(context.Background(), userID, windowEnd, windowStart)
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
}
