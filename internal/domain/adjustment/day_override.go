package adjustment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
	StatusAutoApplied = "auto_applied"
	StatusUndone      = "undone"
)

const (
	OverrideNutrition = "nutrition"
	OverrideTraining  = "training"
	OverrideBoth      = "both"
)

// NutritionOverride is the nutrition half of a daily adjustment.
type NutritionOverride struct {
	CalorieAdjustment int     `json:"calorie_adjustment"`
	CarbsAdjustmentG  float64 `json:"carbs_adjustment_g,omitempty"`
	BaseCalories      int     `json:"base_calories"`
	TargetCalories    int     `json:"target_calories"`
}

// TrainingOverride is the training half of a daily adjustment. IntensityDelta is
// in reps-in-reserve steps; -1 means one step easier.
type TrainingOverride struct {
	VolumeMultiplier float64 `json:"volume_multiplier"`
	IntensityDelta   int     `json:"intensity_delta,omitempty"`
	SessionCancelled bool    `json:"session_cancelled,omitempty"`
	SessionID        *string `json:"session_id,omitempty"`
}

// DayOverride is a proposed or applied daily adjustment. Rows are never deleted;
// status only moves through the approval workflow.
type DayOverride struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index:idx_day_override_user_date,priority:1" json:"user_id"`
	OverrideDate string    `gorm:"column:override_date;size:10;not null;index:idx_day_override_user_date,priority:2" json:"override_date"`
	OverrideType string    `gorm:"column:override_type;not null" json:"override_type"`
	ReasonCode   string    `gorm:"column:reason_code;not null" json:"reason_code"`
	Confidence   float64   `gorm:"column:confidence;not null" json:"confidence"`

	Nutrition *NutritionOverride `gorm:"column:nutrition_override;serializer:json" json:"nutrition_override,omitempty"`
	Training  *TrainingOverride  `gorm:"column:training_override;serializer:json" json:"training_override,omitempty"`
	Triggers  []TriggerEvent     `gorm:"column:triggers;serializer:json" json:"triggers"`
	Rationale []string           `gorm:"column:rationale;serializer:json" json:"rationale"`

	Status               string     `gorm:"column:status;not null;index" json:"status"`
	GracePeriodExpiresAt *time.Time `gorm:"column:grace_period_expires_at;index" json:"grace_period_expires_at,omitempty"`
	ApprovedAt           *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	RejectedAt           *time.Time `gorm:"column:rejected_at" json:"rejected_at,omitempty"`
	AutoAppliedAt        *time.Time `gorm:"column:auto_applied_at" json:"auto_applied_at,omitempty"`
	UndoneAt             *time.Time `gorm:"column:undone_at" json:"undone_at,omitempty"`
	UserOverridden       bool       `gorm:"column:user_overridden;not null;default:false" json:"user_overridden"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (DayOverride) TableName() string { return "day_override" }

func (o *DayOverride) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// AppliedAt is the moment the override took effect, used to anchor the undo window.
func (o *DayOverride) AppliedAt() time.Time {
	switch {
	case o.ApprovedAt != nil:
		return *o.ApprovedAt
	case o.AutoAppliedAt != nil:
		return *o.AutoAppliedAt
	default:
		return o.CreatedAt
	}
}

// TypeFor derives the override type from which payload halves are present.
func TypeFor(n *NutritionOverride, t *TrainingOverride) string {
	switch {
	case n != nil && t != nil:
		return OverrideBoth
	case n != nil:
		return OverrideNutrition
	case t != nil:
		return OverrideTraining
	default:
		return ""
	}
}
