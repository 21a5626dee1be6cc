package control

import (
	"fmt"
	"math"

	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

const (
	RuleCalorieMagnitude = "calorie_magnitude"
	RuleCalorieFloor     = "calorie_floor"
	RuleCalorieCeiling   = "calorie_ceiling"
	RuleDailyVolumeMin   = "daily_volume_min"
	RuleDailyVolumeMax   = "daily_volume_max"
	RuleWeeklySetsFloor  = "weekly_sets_floor"
)

// Violation describes one clamp a gate applied. It is informational; gates
// never fail.
type Violation struct {
	Rule      string  `json:"rule"`
	Requested float64 `json:"requested"`
	Applied   float64 `json:"applied"`
}

type NutritionGate struct {
	Adjustment int         `json:"adjustment"`
	Target     int         `json:"target"`
	Rationale  []string    `json:"rationale,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

// GateNutrition bounds a calorie adjustment against base calories and TDEE.
// The floor is applied last and wins over the ceiling.
func GateNutrition(cfg params.Safety, baseCalories, tdee, adj int) NutritionGate {
	g := NutritionGate{Adjustment: adj}
	if abs(g.Adjustment) > cfg.MaxCalorieAdjustment {
		clamped := sign(g.Adjustment) * cfg.MaxCalorieAdjustment
		g.violate(RuleCalorieMagnitude, g.Adjustment, clamped,
			fmt.Sprintf("calorie change limited to %+d kcal (requested %+d)", clamped, g.Adjustment))
	}
	if ceiling := tdee + cfg.MaxAboveTDEE; baseCalories+g.Adjustment > ceiling {
		g.violate(RuleCalorieCeiling, g.Adjustment, ceiling-baseCalories,
			fmt.Sprintf("target capped at %d kcal (TDEE %d + %d)", ceiling, tdee, cfg.MaxAboveTDEE))
	}
	// The floor is applied last and wins over the magnitude limit.
	if baseCalories+g.Adjustment < cfg.MinCalories {
		raised := cfg.MinCalories - baseCalories
		reason := fmt.Sprintf("target raised to the %d kcal minimum", cfg.MinCalories)
		if abs(raised) > cfg.MaxCalorieAdjustment {
			reason = fmt.Sprintf("target raised to the %d kcal minimum (%+d kcal, beyond the %d kcal change limit)",
				cfg.MinCalories, raised, cfg.MaxCalorieAdjustment)
		}
		g.violate(RuleCalorieFloor, g.Adjustment, raised, reason)
	}
	g.Target = baseCalories + g.Adjustment
	return g
}

func (g *NutritionGate) violate(rule string, from, to int, reason string) {
	g.Violations = append(g.Violations, Violation{Rule: rule, Requested: float64(from), Applied: float64(to)})
	g.Rationale = append(g.Rationale, reason)
	g.Adjustment = to
}

type TrainingGate struct {
	Multiplier float64     `json:"multiplier"`
	Rationale  []string    `json:"rationale,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

// GateDailyTraining keeps a daily multiplier inside [min, max]; the daily path
// never increases volume.
func GateDailyTraining(cfg params.Safety, multiplier float64) TrainingGate {
	g := TrainingGate{Multiplier: multiplier}
	switch {
	case multiplier < cfg.MinDailyMultiplier:
		g.Multiplier = cfg.MinDailyMultiplier
		g.Violations = append(g.Violations, Violation{Rule: RuleDailyVolumeMin, Requested: multiplier, Applied: g.Multiplier})
		g.Rationale = append(g.Rationale, fmt.Sprintf("volume reduction limited to %.0f%% of plan", g.Multiplier*100))
	case multiplier > cfg.MaxDailyMultiplier:
		g.Multiplier = cfg.MaxDailyMultiplier
		g.Violations = append(g.Violations, Violation{Rule: RuleDailyVolumeMax, Requested: multiplier, Applied: g.Multiplier})
		g.Rationale = append(g.Rationale, "daily adjustments cannot add volume")
	}
	return g
}

type VolumeGate struct {
	Delta      int         `json:"delta"`
	NewSets    int         `json:"new_sets"`
	Rationale  []string    `json:"rationale,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

// GateBiweeklyTraining keeps the PID range but floors absolute weekly sets.
func GateBiweeklyTraining(cfg params.Safety, currentSets, delta int) VolumeGate {
	g := VolumeGate{Delta: delta, NewSets: currentSets + delta}
	if g.NewSets < cfg.MinWeeklySets {
		g.Violations = append(g.Violations, Violation{Rule: RuleWeeklySetsFloor, Requested: float64(g.NewSets), Applied: float64(cfg.MinWeeklySets)})
		g.Rationale = append(g.Rationale, fmt.Sprintf("weekly volume held at the %d-set minimum (requested %d)", cfg.MinWeeklySets, g.NewSets))
		g.NewSets = cfg.MinWeeklySets
		g.Delta = cfg.MinWeeklySets - currentSets
	}
	return g
}

// Report logs and counts clamps. Nothing is returned to the caller.
func Report(log *logger.Logger, metrics *observability.Metrics, violations []Violation, kv ...any) {
	for _, v := range violations {
		metrics.IncGateClamp(v.Rule)
		if log != nil {
			log.Info("safety gate clamped value",
				append([]any{"rule", v.Rule, "requested", v.Requested, "applied", v.Applied}, kv...)...)
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	if x < 0 {
		return -1
	}
	return 1
}

// RoundMultiplier keeps stored multipliers readable.
func RoundMultiplier(m float64) float64 {
	return math.Round(m*1000) / 1000
}
