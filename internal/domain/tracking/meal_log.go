package tracking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MealLog is a meal as the user actually ate it. MealType may be empty, in which
// case matching infers it from the local hour of EatenAt.
type MealLog struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index:idx_meal_log_user_date,priority:1" json:"user_id"`
	LogDate string    `gorm:"column:log_date;size:10;not null;index:idx_meal_log_user_date,priority:2" json:"log_date"`
	EatenAt time.Time `gorm:"column:eaten_at;not null" json:"eaten_at"`
	// UTCOffsetMin is the offset EatenAt was logged with; LogDate and meal
	// slots are read on that wall clock.
	UTCOffsetMin int     `gorm:"column:utc_offset_min;not null;default:0" json:"utc_offset_min"`
	MealType     string  `gorm:"column:meal_type" json:"meal_type,omitempty"`
	Name         string  `gorm:"column:name" json:"name"`
	Calories     float64 `gorm:"column:calories;not null" json:"calories"`
	ProteinG     float64 `gorm:"column:protein_g;not null" json:"protein_g"`
	CarbsG       float64 `gorm:"column:carbs_g;not null" json:"carbs_g"`
	FatG         float64 `gorm:"column:fat_g;not null" json:"fat_g"`

	MatchedPlanItemID *uuid.UUID `gorm:"type:uuid;column:matched_plan_item_id;index" json:"matched_plan_item_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (MealLog) TableName() string { return "meal_log" }

func (m *MealLog) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.UTCOffsetMin == 0 {
		m.UTCOffsetMin = offsetMinutes(m.EatenAt)
	}
	if m.LogDate == "" && !m.EatenAt.IsZero() {
		m.LogDate = m.LocalEatenAt().Format(dateLayout)
	}
	m.EatenAt = m.EatenAt.UTC()
	return nil
}

// LocalEatenAt is EatenAt on the user's wall clock.
func (m *MealLog) LocalEatenAt() time.Time {
	return localTime(m.EatenAt, m.UTCOffsetMin, !m.CreatedAt.IsZero())
}
