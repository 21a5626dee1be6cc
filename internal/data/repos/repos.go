package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/planadapt-backend/internal/data/repos/adherence"
	"github.com/yungbote/planadapt-backend/internal/data/repos/adjustment"
	"github.com/yungbote/planadapt-backend/internal/data/repos/plan"
	"github.com/yungbote/planadapt-backend/internal/data/repos/tracking"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type ProgramRepo = plan.ProgramRepo
type PlannedItemRepo = plan.PlannedItemRepo
type PlanChangeEventRepo = plan.PlanChangeEventRepo

type ActivityLogRepo = tracking.ActivityLogRepo
type MealLogRepo = tracking.MealLogRepo
type BodyMetricRepo = tracking.BodyMetricRepo
type ContextLogRepo = tracking.ContextLogRepo

type AdherenceRecordRepo = adherence.AdherenceRecordRepo

type DayOverrideRepo = adjustment.DayOverrideRepo
type PreferencesRepo = adjustment.PreferencesRepo
type FeedbackRepo = adjustment.FeedbackRepo
type PIDStateRepo = adjustment.PIDStateRepo
type NotificationRepo = adjustment.NotificationRepo

// Repos is the persistence collaborator handed to every service.
type Repos struct {
	Program         ProgramRepo
	PlannedItem     PlannedItemRepo
	PlanChangeEvent PlanChangeEventRepo

	ActivityLog ActivityLogRepo
	MealLog     MealLogRepo
	BodyMetric  BodyMetricRepo
	ContextLog  ContextLogRepo

	Adherence AdherenceRecordRepo

	DayOverride  DayOverrideRepo
	Preferences  PreferencesRepo
	Feedback     FeedbackRepo
	PIDState     PIDStateRepo
	Notification NotificationRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Program:         plan.NewProgramRepo(db, log),
		PlannedItem:     plan.NewPlannedItemRepo(db, log),
		PlanChangeEvent: plan.NewPlanChangeEventRepo(db, log),

		ActivityLog: tracking.NewActivityLogRepo(db, log),
		MealLog:     tracking.NewMealLogRepo(db, log),
		BodyMetric:  tracking.NewBodyMetricRepo(db, log),
		ContextLog:  tracking.NewContextLogRepo(db, log),

		Adherence: adherence.NewAdherenceRecordRepo(db, log),

		DayOverride:  adjustment.NewDayOverrideRepo(db, log),
		Preferences:  adjustment.NewPreferencesRepo(db, log),
		Feedback:     adjustment.NewFeedbackRepo(db, log),
		PIDState:     adjustment.NewPIDStateRepo(db, log),
		Notification: adjustment.NewNotificationRepo(db, log),
	}
}
