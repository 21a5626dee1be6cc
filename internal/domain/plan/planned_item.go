package plan

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TimeOfDayMorning   = "morning"
	TimeOfDayAfternoon = "afternoon"
	TimeOfDayEvening   = "evening"
	TimeOfDayNight     = "night"
)

const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// ExerciseSpec describes one exercise either planned or performed.
type ExerciseSpec struct {
	Name        string  `json:"name"`
	Muscle      string  `json:"muscle,omitempty"`
	Sets        int     `json:"sets"`
	Reps        int     `json:"reps"`
	LoadKg      float64 `json:"load_kg,omitempty"`
	DurationMin float64 `json:"duration_min,omitempty"`
}

// PlannedSession is a training session scheduled on a program day (0-6).
type PlannedSession struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProgramID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_planned_session_program_day,priority:1" json:"program_id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	DayIndex    int            `gorm:"column:day_index;not null;index:idx_planned_session_program_day,priority:2" json:"day_index"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Modality    string         `gorm:"column:modality;not null" json:"modality"`
	TimeOfDay   string         `gorm:"column:time_of_day" json:"time_of_day,omitempty"`
	DurationMin float64        `gorm:"column:duration_min" json:"duration_min"`
	Exercises   []ExerciseSpec `gorm:"column:exercises;serializer:json" json:"exercises"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (PlannedSession) TableName() string { return "planned_session" }

func (s *PlannedSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// PlannedMeal is a meal target scheduled on a program day (0-6).
type PlannedMeal struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProgramID uuid.UUID `gorm:"type:uuid;not null;index:idx_planned_meal_program_day,priority:1" json:"program_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	DayIndex  int       `gorm:"column:day_index;not null;index:idx_planned_meal_program_day,priority:2" json:"day_index"`
	MealType  string    `gorm:"column:meal_type;not null" json:"meal_type"`
	Name      string    `gorm:"column:name" json:"name"`
	Calories  float64   `gorm:"column:calories;not null" json:"calories"`
	ProteinG  float64   `gorm:"column:protein_g;not null" json:"protein_g"`
	CarbsG    float64   `gorm:"column:carbs_g;not null" json:"carbs_g"`
	FatG      float64   `gorm:"column:fat_g;not null" json:"fat_g"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PlannedMeal) TableName() string { return "planned_meal" }

func (m *PlannedMeal) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
