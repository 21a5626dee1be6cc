// Package matching scores logged activities and meals against the planned items
// of the same program day and turns the best score into an adherence status.
package matching

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adherence"
	"github.com/yungbote/planadapt-backend/internal/domain/plan"
	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
)

// ActivityBreakdown holds the per-feature similarities in [0,1].
type ActivityBreakdown struct {
	Category  float64 `json:"category"`
	Exercises float64 `json:"exercises"`
	Volume    float64 `json:"volume"`
	TimeOfDay float64 `json:"time_of_day"`
}

type MealBreakdown struct {
	MealType string  `json:"meal_type"`
	Type     float64 `json:"type"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

type ActivityMatch struct {
	PlannedID uuid.UUID         `json:"planned_id"`
	Score     float64           `json:"score"`
	Status    string            `json:"status"`
	Breakdown ActivityBreakdown `json:"breakdown"`
}

type MealMatch struct {
	PlannedID uuid.UUID     `json:"planned_id"`
	Score     float64       `json:"score"`
	Status    string        `json:"status"`
	Breakdown MealBreakdown `json:"breakdown"`
}

// Engine is stateless; identical inputs always produce identical matches.
type Engine struct {
	p params.Matching
}

func NewEngine(p params.Matching) *Engine {
	return &Engine{p: p}
}

// MatchActivity picks the highest scoring candidate. Ties keep the earlier
// candidate. It returns false when no candidate reaches the minimum score.
func (e *Engine) MatchActivity(log *types.ActivityLog, candidates []*types.PlannedSession) (ActivityMatch, bool) {
	var best ActivityMatch
	found := false
	for _, c := range candidates {
		if c == nil {
			continue
		}
		b := e.ScoreActivity(log, c)
		score := e.activityScore(b)
		if !found || score > best.Score {
			best = ActivityMatch{PlannedID: c.ID, Score: score, Breakdown: b}
			found = true
		}
	}
	if !found || best.Score < e.p.MinScore {
		return ActivityMatch{}, false
	}
	best.Status = ActivityStatus(best.Score)
	return best, true
}

func (e *Engine) ScoreActivity(log *types.ActivityLog, planned *types.PlannedSession) ActivityBreakdown {
	b := ActivityBreakdown{
		Exercises: exerciseJaccard(log.Exercises, planned.Exercises),
		Volume:    ratio(totalWork(log.Exercises, log.DurationMin), totalWork(planned.Exercises, planned.DurationMin)),
		TimeOfDay: 1,
	}
	if normalize(log.Category) == normalize(planned.Modality) {
		b.Category = 1
	}
	if planned.TimeOfDay != "" && TimeBucket(log.LocalPerformedAt()) != planned.TimeOfDay {
		b.TimeOfDay = 0
	}
	return b
}

func (e *Engine) activityScore(b ActivityBreakdown) float64 {
	return round4(e.p.ActivityCategoryWeight*b.Category +
		e.p.ActivityExerciseWeight*b.Exercises +
		e.p.ActivityVolumeWeight*b.Volume +
		e.p.ActivityTimeWeight*b.TimeOfDay)
}

func (e *Engine) MatchMeal(log *types.MealLog, candidates []*types.PlannedMeal) (MealMatch, bool) {
	var best MealMatch
	found := false
	for _, c := range candidates {
		if c == nil {
			continue
		}
		b := e.ScoreMeal(log, c)
		score := e.mealScore(b)
		if !found || score > best.Score {
			best = MealMatch{PlannedID: c.ID, Score: score, Breakdown: b}
			found = true
		}
	}
	if !found || best.Score < e.p.MinScore {
		return MealMatch{}, false
	}
	best.Status = MealStatus(best.Score)
	return best, true
}

func (e *Engine) ScoreMeal(log *types.MealLog, planned *types.PlannedMeal) MealBreakdown {
	mealType := normalize(log.MealType)
	if mealType == "" {
		mealType = InferMealType(log.LocalEatenAt())
	}
	b := MealBreakdown{
		MealType: mealType,
		Calories: accuracy(log.Calories, planned.Calories),
		Protein:  accuracy(log.ProteinG, planned.ProteinG),
		Carbs:    accuracy(log.CarbsG, planned.CarbsG),
		Fat:      accuracy(log.FatG, planned.FatG),
	}
	if mealType == normalize(planned.MealType) {
		b.Type = 1
	}
	return b
}

func (e *Engine) mealScore(b MealBreakdown) float64 {
	return round4(e.p.MealTypeWeight*b.Type +
		e.p.MealCaloriesWeight*b.Calories +
		e.p.MealProteinWeight*b.Protein +
		e.p.MealCarbsWeight*b.Carbs +
		e.p.MealFatWeight*b.Fat)
}

func ActivityStatus(score float64) string {
	switch {
	case score >= 0.8:
		return adherence.StatusCompleted
	case score >= 0.6:
		return adherence.StatusSimilar
	case score >= 0.3:
		return adherence.StatusPartial
	default:
		return adherence.StatusSkipped
	}
}

func MealStatus(score float64) string {
	switch {
	case score >= 0.9:
		return adherence.StatusCompleted
	case score >= 0.7:
		return adherence.StatusSimilar
	case score >= 0.5:
		return adherence.StatusPartial
	default:
		return adherence.StatusOffPlan
	}
}

// TimeBucket maps the wall-clock hour of t, in t's own location, onto a
// planned time-of-day slot.
func TimeBucket(t time.Time) string {
	h := t.Hour()
	switch {
	case h >= 5 && h < 12:
		return plan.TimeOfDayMorning
	case h >= 12 && h < 17:
		return plan.TimeOfDayAfternoon
	case h >= 17 && h < 22:
		return plan.TimeOfDayEvening
	default:
		return plan.TimeOfDayNight
	}
}

// InferMealType guesses the meal slot from the wall-clock hour of t in t's
// own location.
func InferMealType(t time.Time) string {
	h := t.Hour()
	switch {
	case h >= 5 && h < 11:
		return plan.MealBreakfast
	case h >= 11 && h < 15:
		return plan.MealLunch
	case h >= 17 && h < 21:
		return plan.MealDinner
	default:
		return plan.MealSnack
	}
}

// accuracy is 1 - |actual-target|/target floored at 0. A zero target is met
// only by a zero actual.
func accuracy(actual, target float64) float64 {
	if target <= 0 {
		if actual <= 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, 1-math.Abs(actual-target)/target)
}

func ratio(a, b float64) float64 {
	switch {
	case a <= 0 && b <= 0:
		return 1
	case a <= 0 || b <= 0:
		return 0
	}
	return math.Min(a, b) / math.Max(a, b)
}

// totalWork is sets x reps x load (load floored at 1 for bodyweight work). When
// no exercise carries sets it falls back to the session duration.
func totalWork(exercises []plan.ExerciseSpec, durationMin float64) float64 {
	var work float64
	for _, ex := range exercises {
		if ex.Sets <= 0 {
			continue
		}
		reps := math.Max(float64(ex.Reps), 1)
		work += float64(ex.Sets) * reps * math.Max(ex.LoadKg, 1)
	}
	if work > 0 {
		return work
	}
	if durationMin > 0 {
		return durationMin
	}
	var total float64
	for _, ex := range exercises {
		total += ex.DurationMin
	}
	return total
}

func exerciseJaccard(a, b []plan.ExerciseSpec) float64 {
	sa := nameSet(a)
	sb := nameSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for k := range sa {
		if sb[k] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func nameSet(ex []plan.ExerciseSpec) map[string]bool {
	out := make(map[string]bool, len(ex))
	for _, e := range ex {
		if n := normalize(e.Name); n != "" {
			out[n] = true
		}
	}
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

// DayIndex resolves the weekly-repeating program day of date. It returns false
// for dates before the program started.
func DayIndex(startDate, date string) (int, bool) {
	days, err := clock.DaysBetween(startDate, date)
	if err != nil || days < 0 {
		return 0, false
	}
	return days % 7, true
}

// sortedNames is used for the record detail so identical inputs serialize identically.
func sortedNames(ex []plan.ExerciseSpec) []string {
	set := nameSet(ex)
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
