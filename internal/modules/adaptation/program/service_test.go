package program

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	domainagg "github.com/yungbote/planadapt-backend/internal/domain/aggregates"
	"github.com/yungbote/planadapt-backend/internal/domain/plan"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/adaptationtest"
)

func request(userID uuid.UUID) StartRequest {
	return StartRequest{
		UserID:         userID,
		Name:           "cut phase",
		TDEE:           2700,
		TargetCalories: 2200,
		ProteinG:       170,
		CarbsG:         230,
		FatG:           65,
		VolumeByMuscle: map[string]int{"chest": 16, "back": 18, "legs": 20},
		Sessions:       adaptationtest.DailySessions(),
		Meals: []*types.PlannedMeal{
			{DayIndex: 0, MealType: plan.MealDinner, Name: "chicken and rice", Calories: 450, ProteinG: 95},
		},
	}
}

func TestStart_ArchivesPreviousAndResetsControllers(t *testing.T) {
	env := adaptationtest.New(t, time.Date(2026, 4, 6, 8, 0, 0, 0, time.UTC))
	svc := NewService(env.Log, env.Repos, env.Writer, env.Clock, env.Params)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Start(ctx, request(userID))
	require.NoError(t, err)
	require.Equal(t, "2026-04-06", first.StartDate)
	require.Equal(t, "2026-04-20", first.NextReassessmentDate)
	require.Equal(t, 54, first.WeeklyVolumeSets)

	require.NoError(t, env.Repos.PIDState.Upsert(env.DBC(), &types.PIDState{
		UserID: userID, ProgramID: first.ID, Controller: adjustment.ControllerCalorie, Integral: 7.5, PreviousError: 0.4, Steps: 3,
	}))

	env.Clock.Add(30 * 24 * time.Hour)
	second, err := svc.Start(ctx, request(userID))
	require.NoError(t, err)

	active, err := env.Repos.Program.GetActive(env.DBC(), userID)
	require.NoError(t, err)
	require.Equal(t, second.ID, active.ID)
	old, err := env.Repos.Program.GetByID(env.DBC(), first.ID)
	require.NoError(t, err)
	require.Equal(t, plan.ProgramStatusArchived, old.Status)

	for _, c := range []string{adjustment.ControllerCalorie, adjustment.ControllerVolume} {
		st, err := env.Repos.PIDState.Get(env.DBC(), userID, c)
		require.NoError(t, err)
		require.NotNil(t, st)
		require.Equal(t, second.ID, st.ProgramID)
		require.Zero(t, st.Integral)
		require.Zero(t, st.PreviousError)
		require.Zero(t, st.Steps)
	}

	sessions, err := env.Repos.PlannedItem.ListSessions(env.DBC(), second.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 7)
	meals, err := env.Repos.PlannedItem.ListMeals(env.DBC(), second.ID)
	require.NoError(t, err)
	require.Len(t, meals, 1)
}

func TestStart_Validation(t *testing.T) {
	env := adaptationtest.New(t, time.Date(2026, 4, 6, 8, 0, 0, 0, time.UTC))
	svc := NewService(env.Log, env.Repos, env.Writer, env.Clock, env.Params)

	bad := request(uuid.New())
	bad.TargetCalories = 1000
	_, err := svc.Start(context.Background(), bad)
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	bad = request(uuid.New())
	bad.Sessions[0].DayIndex = 7
	_, err = svc.Start(context.Background(), bad)
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	bad = request(uuid.Nil)
	_, err = svc.Start(context.Background(), bad)
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
}
