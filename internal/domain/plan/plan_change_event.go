package plan

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlanChangeEvent records one bi-weekly structural re-targeting.
type PlanChangeEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ProgramID   uuid.UUID `gorm:"type:uuid;not null;index" json:"program_id"`
	FromVersion int       `gorm:"column:from_version;not null" json:"from_version"`
	ToVersion   int       `gorm:"column:to_version;not null" json:"to_version"`

	OldCalories int        `gorm:"column:old_calories;not null" json:"old_calories"`
	NewCalories int        `gorm:"column:new_calories;not null" json:"new_calories"`
	OldMacros   MacroSplit `gorm:"column:old_macros;serializer:json" json:"old_macros"`
	NewMacros   MacroSplit `gorm:"column:new_macros;serializer:json" json:"new_macros"`

	OldWeeklyVolume int            `gorm:"column:old_weekly_volume;not null" json:"old_weekly_volume"`
	NewWeeklyVolume int            `gorm:"column:new_weekly_volume;not null" json:"new_weekly_volume"`
	OldMuscleVolume map[string]int `gorm:"column:old_muscle_volume;serializer:json" json:"old_muscle_volume"`
	NewMuscleVolume map[string]int `gorm:"column:new_muscle_volume;serializer:json" json:"new_muscle_volume"`

	Deload          bool           `gorm:"column:deload;not null;default:false" json:"deload"`
	NeedsNewProgram bool           `gorm:"column:needs_new_program;not null;default:false" json:"needs_new_program"`
	Confidence      float64        `gorm:"column:confidence;not null" json:"confidence"`
	Terms           datatypes.JSON `gorm:"column:terms;type:jsonb" json:"terms"`
	Rationale       []string       `gorm:"column:rationale;serializer:json" json:"rationale"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (PlanChangeEvent) TableName() string { return "plan_change_event" }

func (e *PlanChangeEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
