// Package daily runs the tactical per-day adjustment: detect triggers,
// combine their effects, gate them and hand the result to the approval
// workflow.
package daily

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/planadapt-backend/internal/data/repos"
	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/aggregator"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/approval"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/control"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/matching"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/triggers"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type Outcome string

const (
	OutcomeProposed     Outcome = "proposed"
	OutcomeExisting     Outcome = "existing_override"
	OutcomeNoProgram    Outcome = "no_program"
	OutcomeDisabled     Outcome = "disabled"
	OutcomeNoAdjustment Outcome = "no_adjustment"
)

type Result struct {
	UserID  uuid.UUID
	Date    string
	Outcome Outcome
	// Swept counts the missed-item records written for the previous day.
	Swept    int
	Events   []adjustment.TriggerEvent
	Action   adjustment.Action
	Override *types.DayOverride
}

// SkipSweeper records the planned items of a past day that were never logged.
// It must be idempotent.
type SkipSweeper interface {
	DetectSkipped(ctx context.Context, userID uuid.UUID, date string) (int, error)
}

type Orchestrator struct {
	log      *logger.Logger
	repos    repos.Repos
	agg      *aggregator.Aggregator
	detector *triggers.Detector
	workflow *approval.Workflow
	skipped  SkipSweeper
	metrics  *observability.Metrics
	cfg      params.Params
}

func New(log *logger.Logger, r repos.Repos, agg *aggregator.Aggregator, detector *triggers.Detector, workflow *approval.Workflow, skipped SkipSweeper, metrics *observability.Metrics, cfg params.Params) *Orchestrator {
	return &Orchestrator{
		log:      log.With("service", "DailyAdjustmentOrchestrator"),
		repos:    r,
		agg:      agg,
		detector: detector,
		workflow: workflow,
		skipped:  skipped,
		metrics:  metrics,
		cfg:      cfg,
	}
}

// Run evaluates date for one user. The previous day is closed out first so
// its skipped sessions reach the detector no matter which sweep ran before.
// A day that already has an override of any status is left alone.
// Preferences are read once and that snapshot drives every decision in the
// run.
func (o *Orchestrator) Run(ctx context.Context, userID uuid.UUID, date string) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "daily", "run", attribute.String("date", date))
	defer span.End()

	res := &Result{UserID: userID, Date: date}
	dbc := dbctx.Background(ctx)

	yesterday, err := clock.AddDays(date, -1)
	if err != nil {
		return nil, fmt.Errorf("daily window: %w", err)
	}
	if res.Swept, err = o.skipped.DetectSkipped(ctx, userID, yesterday); err != nil {
		return nil, fmt.Errorf("close out %s: %w", yesterday, err)
	}

	exists, err := o.repos.DayOverride.ExistsForDate(dbc, userID, date)
	if err != nil {
		return nil, fmt.Errorf("check existing override: %w", err)
	}
	if exists {
		res.Outcome = OutcomeExisting
		return res, nil
	}
	prog, err := o.repos.Program.GetActive(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load active program: %w", err)
	}
	if prog == nil {
		res.Outcome = OutcomeNoProgram
		return res, nil
	}
	stored, err := o.repos.Preferences.GetOrCreate(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	prefs := stored.Snapshot()
	if !prefs.DailyAdjustmentsEnabled {
		res.Outcome = OutcomeDisabled
		return res, nil
	}

	lookback := o.cfg.Triggers.LookbackDays
	start, err := clock.AddDays(date, -lookback)
	if err != nil {
		return nil, fmt.Errorf("daily window: %w", err)
	}
	window, err := o.agg.Aggregate(ctx, userID, start, yesterday)
	if err != nil {
		return nil, fmt.Errorf("aggregate trailing window: %w", err)
	}
	events, err := o.detector.Detect(ctx, userID, date, window)
	if err != nil {
		return nil, err
	}

	keep := func(t adjustment.TriggerType, d adjustment.Domain) bool {
		return approval.Route(&prefs, t, d) != adjustment.ActionDisable
	}
	proposal := triggers.Map(o.cfg.Triggers, events, keep)

	var pairs []approval.Pair
	contributing := map[adjustment.TriggerType]bool{}
	if proposal.HasNutrition() {
		for _, t := range proposal.Nutrition {
			pairs = append(pairs, approval.Pair{Trigger: t, Domain: adjustment.DomainNutrition})
			contributing[t] = true
		}
	}
	if proposal.HasTraining() {
		for _, t := range proposal.Training {
			pairs = append(pairs, approval.Pair{Trigger: t, Domain: adjustment.DomainTraining})
			contributing[t] = true
		}
	}
	for _, e := range events {
		if contributing[e.Type] {
			res.Events = append(res.Events, e)
		}
	}
	if len(pairs) == 0 {
		res.Outcome = OutcomeNoAdjustment
		return res, nil
	}

	override := &types.DayOverride{
		UserID:       userID,
		OverrideDate: date,
		ReasonCode:   triggers.ReasonCode(res.Events),
		Confidence:   triggers.Confidence(res.Events),
		Triggers:     res.Events,
		Rationale:    append([]string(nil), proposal.Rationale...),
	}
	if proposal.HasNutrition() {
		g := control.GateNutrition(o.cfg.Safety, prog.TargetCalories, prog.TDEE, proposal.CalorieDelta)
		control.Report(o.log, o.metrics, g.Violations, "user_id", userID, "path", "daily")
		override.Nutrition = &adjustment.NutritionOverride{
			CalorieAdjustment: g.Adjustment,
			CarbsAdjustmentG:  proposal.CarbsDeltaG,
			BaseCalories:      prog.TargetCalories,
			TargetCalories:    g.Target,
		}
		override.Rationale = append(override.Rationale, g.Rationale...)
	}
	if proposal.HasTraining() {
		g := control.GateDailyTraining(o.cfg.Safety, proposal.Multiplier)
		control.Report(o.log, o.metrics, g.Violations, "user_id", userID, "path", "daily")
		t := &adjustment.TrainingOverride{
			VolumeMultiplier: control.RoundMultiplier(g.Multiplier),
			IntensityDelta:   proposal.IntensityDelta,
			SessionCancelled: proposal.CancelSession,
		}
		if sid, err := o.sessionFor(dbc, prog, date); err != nil {
			return nil, err
		} else if sid != "" {
			t.SessionID = &sid
		}
		override.Training = t
		override.Rationale = append(override.Rationale, g.Rationale...)
	}

	res.Action = o.workflow.Decide(&prefs, pairs, override.Confidence)
	created, err := o.workflow.Propose(ctx, override, &prefs, res.Action)
	if err != nil {
		return nil, err
	}
	res.Override = created
	res.Outcome = OutcomeProposed
	span.SetAttributes(attribute.String("reason", override.ReasonCode), attribute.String("action", string(res.Action)))
	return res, nil
}

// sessionFor returns the first planned session of the program day, if any.
func (o *Orchestrator) sessionFor(dbc dbctx.Context, prog *types.Program, date string) (string, error) {
	day, ok := matching.DayIndex(prog.StartDate, date)
	if !ok {
		return "", nil
	}
	sessions, err := o.repos.PlannedItem.ListSessionsByDay(dbc, prog.ID, day)
	if err != nil {
		return "", fmt.Errorf("load planned sessions: %w", err)
	}
	if len(sessions) == 0 {
		return "", nil
	}
	return sessions[0].ID.String(), nil
}
