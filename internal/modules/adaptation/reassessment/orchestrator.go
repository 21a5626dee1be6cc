// Package reassessment runs the bi-weekly structural re-targeting of a
// program: aggregate, step both controllers, gate, persist.
package reassessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/yungbote/planadapt-backend/internal/data/aggregates"
	"github.com/yungbote/planadapt-backend/internal/data/repos"
	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	domainagg "github.com/yungbote/planadapt-backend/internal/domain/aggregates"
	"github.com/yungbote/planadapt-backend/internal/domain/plan"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/aggregator"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/control"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
	"github.com/yungbote/planadapt-backend/internal/services"
)

type Result struct {
	UserID    uuid.UUID
	ProgramID uuid.UUID
	Window    *aggregator.AggregatedData

	TargetRateKgPerWeek float64
	ActualRateKgPerWeek *float64

	// Calorie is nil when the window lacked usable weight data.
	Calorie *control.CalorieResult
	Volume  *control.VolumeResult

	Nutrition control.NutritionGate
	Training  control.VolumeGate

	NeedsNewProgram      bool
	NextReassessmentDate string
	Event                *types.PlanChangeEvent
}

type Orchestrator struct {
	log      *logger.Logger
	repos    repos.Repos
	writer   *aggregates.Writer
	agg      *aggregator.Aggregator
	clk      clock.Clock
	notifier services.Notifier
	metrics  *observability.Metrics
	cfg      params.Params
}

func New(log *logger.Logger, r repos.Repos, writer *aggregates.Writer, agg *aggregator.Aggregator, clk clock.Clock, notifier services.Notifier, metrics *observability.Metrics, cfg params.Params) *Orchestrator {
	return &Orchestrator{
		log:      log.With("service", "ReassessmentOrchestrator"),
		repos:    r,
		writer:   writer,
		agg:      agg,
		clk:      clk,
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg,
	}
}

// IsDue reports whether p should be reassessed on today.
func IsDue(p *types.Program, today string) bool {
	return p != nil && p.NextReassessmentDate != "" && today >= p.NextReassessmentDate
}

// Run reassesses the user's active program. It returns nil without error when
// the user has no active program or the program is not yet due and forced is
// false.
func (o *Orchestrator) Run(ctx context.Context, userID uuid.UUID, forced bool) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "reassessment", "run", attribute.Bool("forced", forced))
	defer span.End()

	dbc := dbctx.Background(ctx)
	prog, err := o.repos.Program.GetActive(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load active program: %w", err)
	}
	today := clock.Today(o.clk)
	if prog == nil || (!forced && !IsDue(prog, today)) {
		return nil, nil
	}

	period := o.cfg.Reassessment.PeriodDays
	end, _ := clock.AddDays(today, -1)
	start, _ := clock.AddDays(today, -period)
	window, err := o.agg.Aggregate(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("aggregate window: %w", err)
	}

	res := &Result{UserID: userID, ProgramID: prog.ID, Window: window}
	var rationale []string

	// Deficit in kcal/day over the period, converted to kg and expressed per week.
	biweekly := -float64(prog.TDEE-prog.TargetCalories) * float64(period) / o.cfg.Reassessment.KcalPerKg
	res.TargetRateKgPerWeek = round3(biweekly * 7 / float64(period))

	calState, err := o.repos.PIDState.Get(dbc, userID, adjustment.ControllerCalorie)
	if err != nil {
		return nil, fmt.Errorf("load calorie state: %w", err)
	}
	volState, err := o.repos.PIDState.Get(dbc, userID, adjustment.ControllerVolume)
	if err != nil {
		return nil, fmt.Errorf("load volume state: %w", err)
	}
	calPID := control.NewCaloriePID(o.cfg.CaloriePID, control.StateFrom(calState))
	volPID := control.NewVolumePID(o.cfg.VolumePID, control.StateFrom(volState))

	calAdj := 0
	actual, trendErr := window.WeightTrend()
	switch {
	case trendErr == nil:
		res.ActualRateKgPerWeek = &actual
		step := calPID.Step(res.TargetRateKgPerWeek, actual, prog.TargetCalories, float64(period), window.Confidence)
		res.Calorie = &step
		calAdj = step.Adjustment
		o.metrics.ObservePIDOutput(adjustment.ControllerCalorie, float64(step.Adjustment))
		rationale = append(rationale, fmt.Sprintf("weight trend %.2f kg/week vs target %.2f kg/week", actual, res.TargetRateKgPerWeek))
	case errors.Is(trendErr, adjustment.ErrInsufficientData):
		rationale = append(rationale, "calories held: fewer than two usable weight samples")
	default:
		return nil, trendErr
	}

	weeks := weeksSinceDeload(prog, today)
	volDelta := 0
	if weeks >= o.cfg.VolumePID.DeloadIntervalWeeks || window.TrainingScheduled > 0 {
		step := volPID.Step(prog.WeeklyVolumeSets, o.cfg.VolumePID.TargetAdherence, window.TrainingAdherence, weeks, window.Confidence)
		res.Volume = &step
		volDelta = step.Delta
		o.metrics.ObservePIDOutput(adjustment.ControllerVolume, float64(step.Delta))
		switch {
		case step.Deload:
			rationale = append(rationale, fmt.Sprintf("deload: %d weeks since the last one", weeks))
		case step.Overload:
			rationale = append(rationale, fmt.Sprintf("training adherence %.0f%%: progressive overload", window.TrainingAdherence*100))
		default:
			rationale = append(rationale, fmt.Sprintf("training adherence %.0f%%", window.TrainingAdherence*100))
		}
	} else {
		rationale = append(rationale, "volume held: no sessions scheduled in the window")
	}

	res.Nutrition = control.GateNutrition(o.cfg.Safety, prog.TargetCalories, prog.TDEE, calAdj)
	res.Training = control.GateBiweeklyTraining(o.cfg.Safety, prog.WeeklyVolumeSets, volDelta)
	control.Report(o.log, o.metrics, res.Nutrition.Violations, "user_id", userID, "path", "reassessment")
	control.Report(o.log, o.metrics, res.Training.Violations, "user_id", userID, "path", "reassessment")
	rationale = append(rationale, res.Nutrition.Rationale...)
	rationale = append(rationale, res.Training.Rationale...)

	multiplier := 1.0
	if prog.WeeklyVolumeSets > 0 {
		multiplier = float64(res.Training.NewSets) / float64(prog.WeeklyVolumeSets)
	}
	rc := o.cfg.Reassessment
	res.NeedsNewProgram = abs(res.Nutrition.Adjustment) > rc.NewProgramKcal ||
		multiplier < rc.NewProgramMinMult || multiplier > rc.NewProgramMaxMult
	if res.NeedsNewProgram {
		rationale = append(rationale, "change is large enough to warrant a new program")
	}

	oldMacros := prog.Macros()
	newMacros := Redistribute(oldMacros, res.Nutrition.Adjustment, rc.MinCarbsG, rc.MinFatG)
	newMuscles := ScaleMuscles(prog.VolumeByMuscle, res.Training.NewSets)

	next, _ := clock.AddDays(prog.NextReassessmentDate, period)
	if prog.NextReassessmentDate == "" || next <= today {
		next, _ = clock.AddDays(today, period)
	}
	res.NextReassessmentDate = next

	terms, _ := json.Marshal(map[string]any{"calorie": res.Calorie, "volume": res.Volume})
	event := &types.PlanChangeEvent{
		UserID:          userID,
		ProgramID:       prog.ID,
		FromVersion:     prog.Version,
		ToVersion:       prog.Version + 1,
		OldCalories:     prog.TargetCalories,
		NewCalories:     res.Nutrition.Target,
		OldMacros:       oldMacros,
		NewMacros:       newMacros,
		OldWeeklyVolume: prog.WeeklyVolumeSets,
		NewWeeklyVolume: res.Training.NewSets,
		OldMuscleVolume: prog.VolumeByMuscle,
		NewMuscleVolume: newMuscles,
		Deload:          res.Volume != nil && res.Volume.Deload,
		NeedsNewProgram: res.NeedsNewProgram,
		Confidence:      window.Confidence,
		Terms:           datatypes.JSON(terms),
		Rationale:       rationale,
		CreatedAt:       clock.Now(o.clk),
	}
	muscleJSON, err := json.Marshal(newMuscles)
	if err != nil {
		return nil, fmt.Errorf("encode muscle volume: %w", err)
	}
	updates := map[string]interface{}{
		"target_calories":        res.Nutrition.Target,
		"protein_g":              newMacros.ProteinG,
		"carbs_g":                newMacros.CarbsG,
		"fat_g":                  newMacros.FatG,
		"weekly_volume_sets":     res.Training.NewSets,
		"volume_by_muscle":       string(muscleJSON),
		"next_reassessment_date": next,
		"version":                prog.Version + 1,
		"updated_at":             event.CreatedAt,
	}
	if event.Deload {
		updates["last_deload_date"] = today
	}

	const op = "reassessment.run"
	err = o.writer.Write(ctx, op, func(dbc dbctx.Context) error {
		ok, err := o.repos.Program.UpdateByVersion(dbc, prog.ID, prog.Version, updates)
		if err != nil {
			return err
		}
		if !ok {
			return domainagg.Conflict(op, nil, "program %s changed since version %d", prog.ID, prog.Version)
		}
		if res.Calorie != nil {
			row := calPID.State().Record(userID, prog.ID, adjustment.ControllerCalorie)
			row.UpdatedAt = event.CreatedAt
			if err := o.repos.PIDState.Upsert(dbc, row); err != nil {
				return err
			}
		}
		if res.Volume != nil && !res.Volume.Deload {
			row := volPID.State().Record(userID, prog.ID, adjustment.ControllerVolume)
			row.UpdatedAt = event.CreatedAt
			if err := o.repos.PIDState.Upsert(dbc, row); err != nil {
				return err
			}
		}
		return o.repos.PlanChangeEvent.Create(dbc, event)
	})
	if err != nil {
		return nil, err
	}
	res.Event = event

	span.SetAttributes(
		attribute.Int("calorie_adjustment", res.Nutrition.Adjustment),
		attribute.Int("volume_delta", res.Training.Delta),
		attribute.Bool("needs_new_program", res.NeedsNewProgram),
	)
	o.log.Info("program reassessed",
		"user_id", userID,
		"program_id", prog.ID,
		"version", prog.Version+1,
		"calorie_adjustment", res.Nutrition.Adjustment,
		"volume_delta", res.Training.Delta,
		"quality", window.Quality,
		"confidence", window.Confidence,
		"needs_new_program", res.NeedsNewProgram,
		"next", next,
	)
	o.notify(ctx, res)
	return res, nil
}

func (o *Orchestrator) notify(ctx context.Context, res *Result) {
	if o.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Daily calories now %d (%+d), weekly volume %d sets (%+d).",
		res.Nutrition.Target, res.Nutrition.Adjustment, res.Training.NewSets, res.Training.Delta)
	if res.NeedsNewProgram {
		msg += " Your progress suggests it is time for a new program."
	}
	ref := res.Event.ID
	if err := o.notifier.Notify(ctx, &types.Notification{
		UserID:  res.UserID,
		Title:   "Your plan was updated",
		Message: msg,
		RefType: adjustment.RefTypePlanChangeEvent,
		RefID:   &ref,
	}); err != nil {
		o.log.Warn("reassessment notification failed", "user_id", res.UserID, "error", err)
	}
}

// Redistribute moves a calorie change into carbohydrate, holding protein.
// Carbs stop at minCarbs; the remainder comes from fat down to minFat.
func Redistribute(m plan.MacroSplit, kcal int, minCarbs, minFat float64) plan.MacroSplit {
	out := m
	if kcal == 0 {
		return out
	}
	out.CarbsG = m.CarbsG + float64(kcal)/4
	if floor := math.Min(minCarbs, m.CarbsG); out.CarbsG < floor {
		shortKcal := (floor - out.CarbsG) * 4
		out.CarbsG = floor
		out.FatG = math.Max(math.Min(minFat, m.FatG), m.FatG-shortKcal/9)
	}
	out.CarbsG = math.Round(out.CarbsG)
	out.FatG = math.Round(out.FatG)
	return out
}

// ScaleMuscles scales a per-muscle split to total sets, keeping the sum exact.
func ScaleMuscles(split map[string]int, total int) map[string]int {
	if len(split) == 0 {
		return split
	}
	sum := 0
	for _, v := range split {
		sum += v
	}
	out := make(map[string]int, len(split))
	if sum == 0 {
		return out
	}
	names := make([]string, 0, len(split))
	for k := range split {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		if split[names[i]] != split[names[j]] {
			return split[names[i]] > split[names[j]]
		}
		return names[i] < names[j]
	})
	assigned := 0
	for _, k := range names {
		out[k] = int(math.Round(float64(split[k]) * float64(total) / float64(sum)))
		assigned += out[k]
	}
	out[names[0]] += total - assigned
	return out
}

func weeksSinceDeload(p *types.Program, today string) int {
	anchor := p.StartDate
	if p.LastDeloadDate != nil && *p.LastDeloadDate != "" {
		anchor = *p.LastDeloadDate
	}
	days, err := clock.DaysBetween(anchor, today)
	if err != nil || days < 0 {
		return 0
	}
	return days / 7
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
