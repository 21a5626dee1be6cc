// Package aggregator rolls adherence records, body metrics and context logs
// over a date window into an AggregatedData snapshot. Snapshots are never
// persisted; every call recomputes from the logs.
package aggregator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/planadapt-backend/internal/data/aggregates"
	"github.com/yungbote/planadapt-backend/internal/data/repos"
	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adherence"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/matching"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type Tier string

const (
	TierHigh         Tier = "HIGH"
	TierMedium       Tier = "MEDIUM"
	TierLow          Tier = "LOW"
	TierInsufficient Tier = "INSUFFICIENT"
)

// Ceiling is the highest confidence a tier may report.
func (t Tier) Ceiling(hasAdherence bool) float64 {
	switch t {
	case TierHigh:
		return 0.9
	case TierMedium:
		return 0.7
	case TierLow:
		if hasAdherence {
			return 0.5
		}
		return 0.4
	default:
		return 0.2
	}
}

// ContextAverages ignores missing fields; a nil average means no samples.
type ContextAverages struct {
	SleepHours   *float64 `json:"sleep_hours,omitempty"`
	SleepQuality *float64 `json:"sleep_quality,omitempty"`
	Stress       *float64 `json:"stress,omitempty"`
	Soreness     *float64 `json:"soreness,omitempty"`
	Energy       *float64 `json:"energy,omitempty"`
	Samples      int      `json:"samples"`
}

type AggregatedData struct {
	UserID    uuid.UUID `json:"user_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Days      int       `json:"days"`

	TrainingScheduled  int     `json:"training_scheduled"`
	TrainingAdherent   int     `json:"training_adherent"`
	TrainingAdherence  float64 `json:"training_adherence"`
	NutritionScheduled int     `json:"nutrition_scheduled"`
	NutritionAdherent  int     `json:"nutrition_adherent"`
	NutritionAdherence float64 `json:"nutrition_adherence"`
	HasAdherenceData   bool    `json:"has_adherence_data"`

	WeightSamples         int      `json:"weight_samples"`
	FirstWeightKg         float64  `json:"first_weight_kg,omitempty"`
	LastWeightKg          float64  `json:"last_weight_kg,omitempty"`
	WeightSpanDays        float64  `json:"weight_span_days"`
	WeightChangeKgPerWeek *float64 `json:"weight_change_kg_per_week,omitempty"`

	Context ContextAverages `json:"context"`

	LoggedItems  int     `json:"logged_items"`
	DaysWithData int     `json:"days_with_data"`
	SampleRate   float64 `json:"sample_rate"`

	Quality    Tier     `json:"quality"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// WeightTrend returns the weight change in kg/week, or ErrInsufficientData
// when fewer than two usable samples exist.
func (a *AggregatedData) WeightTrend() (float64, error) {
	if a == nil || a.WeightChangeKgPerWeek == nil {
		return 0, adjustment.ErrInsufficientData
	}
	return *a.WeightChangeKgPerWeek, nil
}

type Aggregator struct {
	log     *logger.Logger
	repos   repos.Repos
	metrics *observability.Metrics
}

func New(log *logger.Logger, r repos.Repos, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		log:     log.With("service", "DataAggregator"),
		repos:   r,
		metrics: metrics,
	}
}

// Aggregate summarizes [startDate, endDate] inclusive. A window without any
// data is a normal INSUFFICIENT result, never an error.
func (g *Aggregator) Aggregate(ctx context.Context, userID uuid.UUID, startDate, endDate string) (*AggregatedData, error) {
	ctx, span := observability.StartSpan(ctx, "aggregator", "aggregate",
		attribute.String("start", startDate), attribute.String("end", endDate))
	defer span.End()

	spanDays, err := clock.DaysBetween(startDate, endDate)
	if err != nil {
		return nil, aggregates.MapError("aggregator.aggregate", aggregates.ValidationError(err.Error()))
	}
	if spanDays < 0 {
		return nil, aggregates.MapError("aggregator.aggregate", aggregates.ValidationError("start date after end date"))
	}
	dbc := dbctx.Background(ctx)
	out := &AggregatedData{UserID: userID, StartDate: startDate, EndDate: endDate, Days: spanDays + 1}
	activeDays := map[string]bool{}

	records, err := g.repos.Adherence.ListByUserDateRange(dbc, userID, startDate, endDate, "")
	if err != nil {
		return nil, fmt.Errorf("load adherence: %w", err)
	}
	if err := g.adherence(dbc, out, records, activeDays); err != nil {
		return nil, err
	}

	activities, err := g.repos.ActivityLog.ListByUserDateRange(dbc, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("load activity logs: %w", err)
	}
	for _, a := range activities {
		activeDays[a.LogDate] = true
	}
	meals, err := g.repos.MealLog.ListByUserDateRange(dbc, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("load meal logs: %w", err)
	}
	for _, m := range meals {
		activeDays[m.LogDate] = true
	}

	from, _ := clock.ParseDate(startDate)
	to, _ := clock.ParseDate(endDate)
	weights, err := g.repos.BodyMetric.ListByUserRange(dbc, userID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load body metrics: %w", err)
	}
	weightTrend(out, weights)
	for _, m := range weights {
		activeDays[clock.DateString(m.MeasuredAt)] = true
	}

	contexts, err := g.repos.ContextLog.ListByUserDateRange(dbc, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("load context logs: %w", err)
	}
	out.Context = contextAverages(contexts)
	for _, c := range contexts {
		activeDays[c.LogDate] = true
	}

	out.LoggedItems = len(activities) + len(meals) + len(weights) + len(contexts)
	out.DaysWithData = len(activeDays)
	out.SampleRate = float64(out.DaysWithData) / float64(out.Days)
	classify(out)

	g.metrics.ObserveAggregation(string(out.Quality), out.Confidence)
	span.SetAttributes(attribute.String("quality", string(out.Quality)), attribute.Float64("confidence", out.Confidence))
	g.log.Debug("window aggregated",
		"user_id", userID,
		"start", startDate,
		"end", endDate,
		"quality", out.Quality,
		"confidence", out.Confidence,
		"training_adherence", out.TrainingAdherence,
	)
	return out, nil
}

// adherence fills rates. The denominator is the planned items of the active
// program inside the window; records that reference items outside it (an older
// program) still count. Several records for one planned item and date collapse
// to the best one.
func (g *Aggregator) adherence(dbc dbctx.Context, out *AggregatedData, records []*types.AdherenceRecord, activeDays map[string]bool) error {
	type slot struct {
		ref  uuid.UUID
		date string
	}
	best := map[string]map[slot]bool{
		adherence.CategoryTraining:  {},
		adherence.CategoryNutrition: {},
	}
	for _, r := range records {
		set, ok := best[r.Category]
		if !ok {
			continue
		}
		k := slot{r.PlannedRefID, r.RecordDate}
		set[k] = set[k] || adherence.IsAdherent(r.Status)
		if r.ActualRefID != nil {
			activeDays[r.RecordDate] = true
		}
	}
	out.HasAdherenceData = len(records) > 0

	sessionsPerDay, mealsPerDay, startDate, err := g.plannedPerDay(dbc, out.UserID)
	if err != nil {
		return err
	}
	var schedTraining, schedNutrition int
	if startDate != "" {
		for i := 0; i < out.Days; i++ {
			date, _ := clock.AddDays(out.StartDate, i)
			day, ok := matching.DayIndex(startDate, date)
			if !ok {
				continue
			}
			schedTraining += sessionsPerDay[day]
			schedNutrition += mealsPerDay[day]
		}
	}
	out.TrainingScheduled = maxInt(schedTraining, len(best[adherence.CategoryTraining]))
	out.NutritionScheduled = maxInt(schedNutrition, len(best[adherence.CategoryNutrition]))
	out.TrainingAdherent = countTrue(best[adherence.CategoryTraining])
	out.NutritionAdherent = countTrue(best[adherence.CategoryNutrition])
	out.TrainingAdherence = rate(out.TrainingAdherent, out.TrainingScheduled)
	out.NutritionAdherence = rate(out.NutritionAdherent, out.NutritionScheduled)
	return nil
}

func (g *Aggregator) plannedPerDay(dbc dbctx.Context, userID uuid.UUID) (map[int]int, map[int]int, string, error) {
	prog, err := g.repos.Program.GetActive(dbc, userID)
	if err != nil {
		return nil, nil, "", fmt.Errorf("load active program: %w", err)
	}
	if prog == nil {
		return nil, nil, "", nil
	}
	sessions, err := g.repos.PlannedItem.ListSessions(dbc, prog.ID)
	if err != nil {
		return nil, nil, "", fmt.Errorf("load planned sessions: %w", err)
	}
	meals, err := g.repos.PlannedItem.ListMeals(dbc, prog.ID)
	if err != nil {
		return nil, nil, "", fmt.Errorf("load planned meals: %w", err)
	}
	s := map[int]int{}
	for _, ps := range sessions {
		s[ps.DayIndex]++
	}
	m := map[int]int{}
	for _, pm := range meals {
		m[pm.DayIndex]++
	}
	return s, m, prog.StartDate, nil
}

func weightTrend(out *AggregatedData, samples []*types.BodyMetric) {
	out.WeightSamples = len(samples)
	if len(samples) < 2 {
		return
	}
	first, last := samples[0], samples[len(samples)-1]
	out.FirstWeightKg = first.WeightKg
	out.LastWeightKg = last.WeightKg
	span := last.MeasuredAt.Sub(first.MeasuredAt)
	out.WeightSpanDays = span.Hours() / 24
	if span < 24*time.Hour {
		return
	}
	weeks := span.Hours() / (24 * 7)
	r := round3((last.WeightKg - first.WeightKg) / weeks)
	out.WeightChangeKgPerWeek = &r
}

func contextAverages(logs []*types.ContextLog) ContextAverages {
	var sleep, quality, stress, soreness, energy []float64
	for _, c := range logs {
		sleep = appendIf(sleep, c.SleepHours)
		quality = appendIf(quality, c.SleepQuality)
		stress = appendIf(stress, c.StressLevel)
		soreness = appendIf(soreness, c.SorenessLevel)
		energy = appendIf(energy, c.EnergyLevel)
	}
	return ContextAverages{
		SleepHours:   mean(sleep),
		SleepQuality: mean(quality),
		Stress:       mean(stress),
		Soreness:     mean(soreness),
		Energy:       mean(energy),
		Samples:      len(logs),
	}
}

// classify assigns the data-quality tier and a confidence that never exceeds
// the tier ceiling.
func classify(out *AggregatedData) {
	switch {
	case out.LoggedItems == 0:
		out.Quality = TierInsufficient
		out.Confidence = 0
		out.Reasons = append(out.Reasons, "no logged items in window")
		return
	case out.SampleRate < 0.3:
		out.Quality = TierInsufficient
		out.Reasons = append(out.Reasons, fmt.Sprintf("data on %d of %d days", out.DaysWithData, out.Days))
	case out.WeightSamples < 2:
		out.Quality = TierInsufficient
		out.Reasons = append(out.Reasons, fmt.Sprintf("%d weight sample(s), need 2", out.WeightSamples))
	case out.SampleRate >= 0.8:
		out.Quality = TierHigh
	case out.SampleRate >= 0.5:
		out.Quality = TierMedium
	default:
		out.Quality = TierLow
		if !out.HasAdherenceData {
			out.Reasons = append(out.Reasons, "no adherence records in window")
		}
	}
	ceiling := out.Quality.Ceiling(out.HasAdherenceData)
	conf := ceiling
	if out.Quality != TierInsufficient && out.WeightSpanDays < 7 {
		conf *= 0.8
		out.Reasons = append(out.Reasons, fmt.Sprintf("weight samples span %.1f days", out.WeightSpanDays))
	}
	out.Confidence = round3(math.Min(conf, ceiling))
}

func appendIf(dst []float64, v *float64) []float64 {
	if v == nil {
		return dst
	}
	return append(dst, *v)
}

func mean(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	m := round3(sum / float64(len(xs)))
	return &m
}

func rate(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return round3(math.Min(1, float64(n)/float64(d)))
}

func countTrue[K comparable](m map[K]bool) int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
