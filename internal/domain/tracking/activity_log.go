package tracking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/planadapt-backend/internal/domain/plan"
)

// ActivityLog is a training session as the user actually performed it.
type ActivityLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index:idx_activity_log_user_date,priority:1" json:"user_id"`
	LogDate     string    `gorm:"column:log_date;size:10;not null;index:idx_activity_log_user_date,priority:2" json:"log_date"`
	PerformedAt time.Time `gorm:"column:performed_at;not null" json:"performed_at"`
	// UTCOffsetMin is the offset PerformedAt was logged with.
	UTCOffsetMin int                 `gorm:"column:utc_offset_min;not null;default:0" json:"utc_offset_min"`
	Category     string              `gorm:"column:category;not null" json:"category"`
	Name         string              `gorm:"column:name" json:"name"`
	DurationMin  float64             `gorm:"column:duration_min" json:"duration_min"`
	Exercises    []plan.ExerciseSpec `gorm:"column:exercises;serializer:json" json:"exercises"`

	MatchedPlanItemID *uuid.UUID `gorm:"type:uuid;column:matched_plan_item_id;index" json:"matched_plan_item_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ActivityLog) TableName() string { return "activity_log" }

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.UTCOffsetMin == 0 {
		a.UTCOffsetMin = offsetMinutes(a.PerformedAt)
	}
	if a.LogDate == "" && !a.PerformedAt.IsZero() {
		a.LogDate = a.LocalPerformedAt().Format(dateLayout)
	}
	a.PerformedAt = a.PerformedAt.UTC()
	return nil
}

// LocalPerformedAt is PerformedAt on the user's wall clock.
func (a *ActivityLog) LocalPerformedAt() time.Time {
	return localTime(a.PerformedAt, a.UTCOffsetMin, !a.CreatedAt.IsZero())
}
