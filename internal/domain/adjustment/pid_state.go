package adjustment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ControllerCalorie = "calorie"
	ControllerVolume  = "volume"
)

// PIDState is the persisted memory of one controller for one user.
type PIDState struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_pid_state_user_controller,priority:1" json:"user_id"`
	Controller     string    `gorm:"column:controller;not null;uniqueIndex:idx_pid_state_user_controller,priority:2" json:"controller"`
	ProgramID      uuid.UUID `gorm:"type:uuid;not null;index" json:"program_id"`
	Integral       float64   `gorm:"column:integral;not null" json:"integral"`
	PreviousError  float64   `gorm:"column:previous_error;not null" json:"previous_error"`
	LastAdjustment float64   `gorm:"column:last_adjustment;not null" json:"last_adjustment"`
	Steps          int       `gorm:"column:steps;not null;default:0" json:"steps"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (PIDState) TableName() string { return "pid_state" }

func (s *PIDState) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
