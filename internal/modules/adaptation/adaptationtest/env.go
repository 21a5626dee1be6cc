// Package adaptationtest builds SQLite-backed fixtures for adaptation tests.
package adaptationtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/planadapt-backend/internal/data/aggregates"
	"github.com/yungbote/planadapt-backend/internal/data/repos"
	"github.com/yungbote/planadapt-backend/internal/data/repos/testutil"
	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/plan"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type Env struct {
	Repos   repos.Repos
	Writer  *aggregates.Writer
	Clock   *clock.Mock
	Log     *logger.Logger
	Metrics *observability.Metrics
	Params  params.Params
}

// New returns a fresh database and a mock clock set to now.
func New(tb testing.TB, now time.Time) *Env {
	tb.Helper()
	db := testutil.DB(tb)
	log := testutil.Logger(tb)
	metrics := observability.NewMetrics()
	return &Env{
		Repos:   repos.New(db, log),
		Writer:  aggregates.NewWriter(db, aggregates.NewObservabilityHooks(metrics)),
		Clock:   clock.NewMock(now),
		Log:     log,
		Metrics: metrics,
		Params:  params.Default(),
	}
}

func (e *Env) DBC() dbctx.Context { return dbctx.Background(context.Background()) }

// ProgramSpec describes a program to seed. Zero values get sensible defaults.
type ProgramSpec struct {
	StartDate        string
	NextReassessment string
	TDEE             int
	TargetCalories   int
	ProteinG         float64
	CarbsG           float64
	FatG             float64
	WeeklyVolumeSets int
	VolumeByMuscle   map[string]int
	LastDeloadDate   *string
	Sessions         []*types.PlannedSession
	Meals            []*types.PlannedMeal
}

// SeedProgram inserts an active program plus its planned items for userID.
func (e *Env) SeedProgram(tb testing.TB, userID uuid.UUID, ps ProgramSpec) *types.Program {
	tb.Helper()
	if ps.StartDate == "" {
		ps.StartDate = clock.Today(e.Clock)
	}
	if ps.NextReassessment == "" {
		next, err := clock.AddDays(ps.StartDate, e.Params.Reassessment.PeriodDays)
		if err != nil {
			tb.Fatalf("next reassessment: %v", err)
		}
		ps.NextReassessment = next
	}
	if ps.TDEE == 0 {
		ps.TDEE = 2600
	}
	if ps.TargetCalories == 0 {
		ps.TargetCalories = 2100
	}
	if ps.ProteinG == 0 {
		ps.ProteinG = 160
	}
	if ps.CarbsG == 0 {
		ps.CarbsG = 220
	}
	if ps.FatG == 0 {
		ps.FatG = 65
	}
	if ps.WeeklyVolumeSets == 0 {
		ps.WeeklyVolumeSets = 60
	}
	if ps.VolumeByMuscle == nil {
		ps.VolumeByMuscle = map[string]int{"chest": 20, "back": 20, "legs": 20}
	}
	p := &types.Program{
		UserID:               userID,
		Name:                 "test program",
		Status:               plan.ProgramStatusActive,
		StartDate:            ps.StartDate,
		NextReassessmentDate: ps.NextReassessment,
		LastDeloadDate:       ps.LastDeloadDate,
		TDEE:                 ps.TDEE,
		TargetCalories:       ps.TargetCalories,
		ProteinG:             ps.ProteinG,
		CarbsG:               ps.CarbsG,
		FatG:                 ps.FatG,
		WeeklyVolumeSets:     ps.WeeklyVolumeSets,
		VolumeByMuscle:       ps.VolumeByMuscle,
		Version:              1,
	}
	if err := e.Repos.Program.Create(e.DBC(), p); err != nil {
		tb.Fatalf("seed program: %v", err)
	}
	for _, s := range ps.Sessions {
		s.ProgramID, s.UserID = p.ID, userID
	}
	for _, m := range ps.Meals {
		m.ProgramID, m.UserID = p.ID, userID
	}
	if err := e.Repos.PlannedItem.CreateSessions(e.DBC(), ps.Sessions); err != nil {
		tb.Fatalf("seed sessions: %v", err)
	}
	if err := e.Repos.PlannedItem.CreateMeals(e.DBC(), ps.Meals); err != nil {
		tb.Fatalf("seed meals: %v", err)
	}
	return p
}

// DailySessions returns one strength session for each of the seven program days.
func DailySessions() []*types.PlannedSession {
	out := make([]*types.PlannedSession, 0, 7)
	for d := 0; d < 7; d++ {
		out = append(out, &types.PlannedSession{
			DayIndex:  d,
			Name:      "full body",
			Modality:  "strength",
			TimeOfDay: plan.TimeOfDayMorning,
			Exercises: []plan.ExerciseSpec{
				{Name: "squat", Muscle: "legs", Sets: 4, Reps: 6, LoadKg: 100},
				{Name: "bench press", Muscle: "chest", Sets: 4, Reps: 8, LoadKg: 70},
			},
		})
	}
	return out
}

// LogWeight inserts a body-weight sample.
func (e *Env) LogWeight(tb testing.TB, userID uuid.UUID, at time.Time, kg float64) {
	tb.Helper()
	if err := e.Repos.BodyMetric.Create(e.DBC(), &types.BodyMetric{UserID: userID, MeasuredAt: at, WeightKg: kg}); err != nil {
		tb.Fatalf("log weight: %v", err)
	}
}

// LogContext inserts a context log.
func (e *Env) LogContext(tb testing.TB, c *types.ContextLog) {
	tb.Helper()
	if err := e.Repos.ContextLog.Create(e.DBC(), c); err != nil {
		tb.Fatalf("log context: %v", err)
	}
}

func Float(f float64) *float64 { return &f }
