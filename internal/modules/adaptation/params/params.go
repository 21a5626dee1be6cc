// Package params holds the named domain constants of the adaptation engine.
// Every value has a code default and may be overridden from a YAML file.
package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Matching struct {
	MinScore float64 `yaml:"min_score"`

	ActivityCategoryWeight float64 `yaml:"activity_category_weight"`
	ActivityExerciseWeight float64 `yaml:"activity_exercise_weight"`
	ActivityVolumeWeight   float64 `yaml:"activity_volume_weight"`
	ActivityTimeWeight     float64 `yaml:"activity_time_weight"`

	MealTypeWeight     float64 `yaml:"meal_type_weight"`
	MealCaloriesWeight float64 `yaml:"meal_calories_weight"`
	MealProteinWeight  float64 `yaml:"meal_protein_weight"`
	MealCarbsWeight    float64 `yaml:"meal_carbs_weight"`
	MealFatWeight      float64 `yaml:"meal_fat_weight"`
}

type CaloriePID struct {
	Kp            float64 `yaml:"kp"`
	Ki            float64 `yaml:"ki"`
	Kd            float64 `yaml:"kd"`
	WindupLimit   float64 `yaml:"windup_limit"`
	MaxAdjustment float64 `yaml:"max_adjustment"`
	RoundTo       float64 `yaml:"round_to"`
}

type VolumePID struct {
	Kp                  float64 `yaml:"kp"`
	Ki                  float64 `yaml:"ki"`
	Kd                  float64 `yaml:"kd"`
	WindupLimit         float64 `yaml:"windup_limit"`
	TargetAdherence     float64 `yaml:"target_adherence"`
	MinDelta            int     `yaml:"min_delta"`
	MaxDelta            int     `yaml:"max_delta"`
	RoundTo             int     `yaml:"round_to"`
	DeloadIntervalWeeks int     `yaml:"deload_interval_weeks"`
	DeloadFraction      float64 `yaml:"deload_fraction"`
	OverloadAdherence   float64 `yaml:"overload_adherence"`
	OverloadFloorSets   int     `yaml:"overload_floor_sets"`
}

type Safety struct {
	MaxCalorieAdjustment int     `yaml:"max_calorie_adjustment"`
	MinCalories          int     `yaml:"min_calories"`
	MaxAboveTDEE         int     `yaml:"max_above_tdee"`
	MinDailyMultiplier   float64 `yaml:"min_daily_multiplier"`
	MaxDailyMultiplier   float64 `yaml:"max_daily_multiplier"`
	MinWeeklySets        int     `yaml:"min_weekly_sets"`
}

type Triggers struct {
	PoorSleepHours          float64 `yaml:"poor_sleep_hours"`
	PoorSleepQuality        float64 `yaml:"poor_sleep_quality"`
	HighStress              float64 `yaml:"high_stress"`
	HighSoreness            float64 `yaml:"high_soreness"`
	LowAdherence            float64 `yaml:"low_adherence"`
	HighAdherence           float64 `yaml:"high_adherence"`
	LookbackDays            int     `yaml:"lookback_days"`
	SleepVolumeDivisor      float64 `yaml:"sleep_volume_divisor"`
	SleepMaxVolumeCut       float64 `yaml:"sleep_max_volume_cut"`
	MissedWorkoutKcalPerSev float64 `yaml:"missed_workout_kcal_per_severity"`
	MissedWorkoutMaxKcal    float64 `yaml:"missed_workout_max_kcal"`
	StressKcalPerSev        float64 `yaml:"stress_kcal_per_severity"`
	StressMaxKcal           float64 `yaml:"stress_max_kcal"`
	RefeedKcal              int     `yaml:"refeed_kcal"`
	RefeedCarbsG            float64 `yaml:"refeed_carbs_g"`
	LowAdherenceKcal        int     `yaml:"low_adherence_kcal"`
	StressMultiplier        float64 `yaml:"stress_multiplier"`
	SorenessMultiplier      float64 `yaml:"soreness_multiplier"`
	StaleContextHours       float64 `yaml:"stale_context_hours"`
}

type Approval struct {
	AutoApplyMinConfidence float64 `yaml:"auto_apply_min_confidence"`
	SweepBatchSize         int     `yaml:"sweep_batch_size"`
}

type Reassessment struct {
	PeriodDays        int     `yaml:"period_days"`
	KcalPerKg         float64 `yaml:"kcal_per_kg"`
	NewProgramKcal    int     `yaml:"new_program_kcal"`
	NewProgramMinMult float64 `yaml:"new_program_min_multiplier"`
	NewProgramMaxMult float64 `yaml:"new_program_max_multiplier"`
	MinFatG           float64 `yaml:"min_fat_g"`
	MinCarbsG         float64 `yaml:"min_carbs_g"`
}

type Params struct {
	Matching     Matching     `yaml:"matching"`
	CaloriePID   CaloriePID   `yaml:"calorie_pid"`
	VolumePID    VolumePID    `yaml:"volume_pid"`
	Safety       Safety       `yaml:"safety"`
	Triggers     Triggers     `yaml:"triggers"`
	Approval     Approval     `yaml:"approval"`
	Reassessment Reassessment `yaml:"reassessment"`
}

// Default returns the built-in parameter set.
func Default() Params {
	return Params{
		Matching: Matching{
			MinScore:               0.3,
			ActivityCategoryWeight: 0.40,
			ActivityExerciseWeight: 0.30,
			ActivityVolumeWeight:   0.20,
			ActivityTimeWeight:     0.10,
			MealTypeWeight:         0.30,
			MealCaloriesWeight:     0.25,
			MealProteinWeight:      0.20,
			MealCarbsWeight:        0.15,
			MealFatWeight:          0.10,
		},
		CaloriePID: CaloriePID{
			Kp:            500,
			Ki:            10,
			Kd:            100,
			WindupLimit:   20,
			MaxAdjustment: 500,
			RoundTo:       50,
		},
		VolumePID: VolumePID{
			Kp:                  40,
			Ki:                  2,
			Kd:                  10,
			WindupLimit:         5,
			TargetAdherence:     0.85,
			MinDelta:            -20,
			MaxDelta:            10,
			RoundTo:             2,
			DeloadIntervalWeeks: 5,
			DeloadFraction:      0.5,
			OverloadAdherence:   0.85,
			OverloadFloorSets:   2,
		},
		Safety: Safety{
			MaxCalorieAdjustment: 500,
			MinCalories:          1200,
			MaxAboveTDEE:         500,
			MinDailyMultiplier:   0.5,
			MaxDailyMultiplier:   1.0,
			MinWeeklySets:        30,
		},
		Triggers: Triggers{
			PoorSleepHours:          6,
			PoorSleepQuality:        5,
			HighStress:              7,
			HighSoreness:            7,
			LowAdherence:            0.5,
			HighAdherence:           0.95,
			LookbackDays:            7,
			SleepVolumeDivisor:      25,
			SleepMaxVolumeCut:       0.3,
			MissedWorkoutKcalPerSev: 40,
			MissedWorkoutMaxKcal:    400,
			StressKcalPerSev:        15,
			StressMaxKcal:           150,
			RefeedKcal:              200,
			RefeedCarbsG:            50,
			LowAdherenceKcal:        -100,
			StressMultiplier:        0.85,
			SorenessMultiplier:      0.75,
			StaleContextHours:       36,
		},
		Approval: Approval{
			AutoApplyMinConfidence: 0.8,
			SweepBatchSize:         500,
		},
		Reassessment: Reassessment{
			PeriodDays:        14,
			KcalPerKg:         7700,
			NewProgramKcal:    300,
			NewProgramMinMult: 0.9,
			NewProgramMaxMult: 1.1,
			MinFatG:           40,
			MinCarbsG:         50,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Params, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("parse params %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("params %s: %w", path, err)
	}
	return p, nil
}

func (p Params) Validate() error {
	if p.Reassessment.KcalPerKg <= 0 {
		return fmt.Errorf("reassessment.kcal_per_kg must be > 0")
	}
	if p.Reassessment.PeriodDays <= 0 {
		return fmt.Errorf("reassessment.period_days must be > 0")
	}
	if p.VolumePID.DeloadIntervalWeeks <= 0 {
		return fmt.Errorf("volume_pid.deload_interval_weeks must be > 0")
	}
	if p.VolumePID.RoundTo <= 0 || p.CaloriePID.RoundTo <= 0 {
		return fmt.Errorf("round_to must be > 0")
	}
	if p.Safety.MinDailyMultiplier > p.Safety.MaxDailyMultiplier {
		return fmt.Errorf("safety.min_daily_multiplier exceeds max_daily_multiplier")
	}
	if p.Triggers.SleepVolumeDivisor <= 0 {
		return fmt.Errorf("triggers.sleep_volume_divisor must be > 0")
	}
	return nil
}
