package domain

import (
	"github.com/yungbote/planadapt-backend/internal/domain/adherence"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/domain/plan"
	"github.com/yungbote/planadapt-backend/internal/domain/tracking"
)

type Program = plan.Program
type PlannedSession = plan.PlannedSession
type PlannedMeal = plan.PlannedMeal
type PlanChangeEvent = plan.PlanChangeEvent
type MacroSplit = plan.MacroSplit
type ExerciseSpec = plan.ExerciseSpec

type ActivityLog = tracking.ActivityLog
type MealLog = tracking.MealLog
type BodyMetric = tracking.BodyMetric
type ContextLog = tracking.ContextLog

type AdherenceRecord = adherence.AdherenceRecord

type DayOverride = adjustment.DayOverride
type NutritionOverride = adjustment.NutritionOverride
type TrainingOverride = adjustment.TrainingOverride
type AdjustmentPreferences = adjustment.AdjustmentPreferences
type AdjustmentFeedback = adjustment.AdjustmentFeedback
type PIDState = adjustment.PIDState
type Notification = adjustment.Notification
type TriggerEvent = adjustment.TriggerEvent

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&plan.Program{},
		&plan.PlannedSession{},
		&plan.PlannedMeal{},
		&plan.PlanChangeEvent{},

		&tracking.ActivityLog{},
		&tracking.MealLog{},
		&tracking.BodyMetric{},
		&tracking.ContextLog{},

		&adherence.AdherenceRecord{},

		&adjustment.DayOverride{},
		&adjustment.AdjustmentPreferences{},
		&adjustment.AdjustmentFeedback{},
		&adjustment.PIDState{},
		&adjustment.Notification{},
	}
}
