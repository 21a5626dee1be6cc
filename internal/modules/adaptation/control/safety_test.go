package control

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/planadapt-backend/internal/modules/adaptation/params"
	"github.com/yungbote/planadapt-backend/internal/observability"
)

func TestGateNutrition_TargetStaysInBounds(t *testing.T) {
	cfg := params.Default().Safety
	for base := 1000; base <= 3600; base += 200 {
		for tdee := 1600; tdee <= 3600; tdee += 250 {
			for adj := -1500; adj <= 1500; adj += 125 {
				g := GateNutrition(cfg, base, tdee, adj)
				require.GreaterOrEqual(t, g.Target, cfg.MinCalories, "base=%d tdee=%d adj=%d", base, tdee, adj)
				require.LessOrEqual(t, g.Target, tdee+cfg.MaxAboveTDEE, "base=%d tdee=%d adj=%d", base, tdee, adj)
				require.Equal(t, base+g.Adjustment, g.Target)
				require.Len(t, g.Rationale, len(g.Violations))
				if g.Adjustment != adj {
					require.NotEmpty(t, g.Rationale)
				}
			}
		}
	}
}

func TestGateNutrition_Rules(t *testing.T) {
	cfg := params.Default().Safety

	g := GateNutrition(cfg, 2200, 2600, -800)
	require.Equal(t, -500, g.Adjustment)
	require.Equal(t, RuleCalorieMagnitude, g.Violations[0].Rule)

	g = GateNutrition(cfg, 1400, 2000, -400)
	require.Equal(t, -200, g.Adjustment)
	require.Equal(t, 1200, g.Target)
	require.Equal(t, RuleCalorieFloor, g.Violations[0].Rule)

	g = GateNutrition(cfg, 2900, 2600, 400)
	require.Equal(t, 3100, g.Target)
	require.Equal(t, RuleCalorieCeiling, g.Violations[0].Rule)

	g = GateNutrition(cfg, 2100, 2600, 0)
	require.Equal(t, 2100, g.Target)
	require.Empty(t, g.Rationale)
}

func TestGateNutrition_FloorOverridesChangeLimit(t *testing.T) {
	cfg := params.Default().Safety

	g := GateNutrition(cfg, 600, 2000, -300)
	require.Equal(t, cfg.MinCalories, g.Target)
	require.Equal(t, 600, g.Adjustment)
	require.Greater(t, g.Adjustment, cfg.MaxCalorieAdjustment)
	require.Len(t, g.Violations, 1)
	require.Equal(t, RuleCalorieFloor, g.Violations[0].Rule)
	require.Equal(t, -300.0, g.Violations[0].Requested)
	require.Equal(t, 600.0, g.Violations[0].Applied)
	require.Contains(t, g.Rationale[0], "beyond the 500 kcal change limit")

	// a requested cut past the limit is first clamped, then floored
	g = GateNutrition(cfg, 650, 2000, -900)
	require.Equal(t, cfg.MinCalories, g.Target)
	require.Equal(t, []string{RuleCalorieMagnitude, RuleCalorieFloor}, []string{g.Violations[0].Rule, g.Violations[1].Rule})
	require.Contains(t, g.Rationale[1], "+550 kcal")
}

func TestGateDailyTraining_Bounds(t *testing.T) {
	cfg := params.Default().Safety
	for m := 0.0; m <= 1.6; m += 0.04 {
		g := GateDailyTraining(cfg, m)
		require.GreaterOrEqual(t, g.Multiplier, 0.5)
		require.LessOrEqual(t, g.Multiplier, 1.0)
		if g.Multiplier != m {
			require.Len(t, g.Rationale, 1)
		}
	}

	g := GateDailyTraining(cfg, 0.88)
	require.Equal(t, 0.88, g.Multiplier)
	require.Empty(t, g.Violations)
}

func TestGateBiweeklyTraining_FloorsWeeklySets(t *testing.T) {
	cfg := params.Default().Safety

	g := GateBiweeklyTraining(cfg, 50, -25)
	require.Equal(t, 30, g.NewSets)
	require.Equal(t, -20, g.Delta)
	require.Len(t, g.Rationale, 1)

	g = GateBiweeklyTraining(cfg, 60, 10)
	require.Equal(t, 70, g.NewSets)
	require.Empty(t, g.Violations)
}

func TestReport_CountsClamps(t *testing.T) {
	m := observability.NewMetrics()
	g := GateNutrition(params.Default().Safety, 1300, 2000, -900)
	require.Len(t, g.Violations, 2)
	Report(nil, m, g.Violations)
	Report(nil, nil, g.Violations)
}
