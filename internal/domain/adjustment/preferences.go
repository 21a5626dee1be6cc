package adjustment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultGracePeriodMinutes        = 120
	DefaultUndoWindowHours           = 24
	DefaultNotificationRetentionDays = 30
)

// AdjustmentPreferences is the per-user policy for daily adjustments. Rows are
// created lazily with defaults on first access.
type AdjustmentPreferences struct {
	ID                        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                    uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	DailyAdjustmentsEnabled   bool              `gorm:"column:daily_adjustments_enabled;not null" json:"daily_adjustments_enabled"`
	TriggerActions            map[string]Action `gorm:"column:trigger_actions;serializer:json" json:"trigger_actions"`
	GracePeriodMinutes        int               `gorm:"column:grace_period_minutes;not null" json:"grace_period_minutes"`
	UndoWindowHours           int               `gorm:"column:undo_window_hours;not null" json:"undo_window_hours"`
	NotificationRetentionDays int               `gorm:"column:notification_retention_days;not null" json:"notification_retention_days"`
	CreatedAt                 time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt                 time.Time         `gorm:"not null" json:"updated_at"`
}

func (AdjustmentPreferences) TableName() string { return "adjustment_preferences" }

func (p *AdjustmentPreferences) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DefaultTriggerActions is the policy a new user starts with. Recovery-driven
// training reductions apply on their own; anything that changes food intake or
// cancels a session asks first.
func DefaultTriggerActions() map[string]Action {
	return map[string]Action{
		PreferenceKey(TriggerPoorSleep, DomainTraining):        ActionAutoApply,
		PreferenceKey(TriggerPoorSleepQuality, DomainTraining): ActionAutoApply,
		PreferenceKey(TriggerHighSoreness, DomainTraining):     ActionAutoApply,
		PreferenceKey(TriggerHighStress, DomainTraining):       ActionAskMe,
		PreferenceKey(TriggerHighStress, DomainNutrition):      ActionAskMe,
		PreferenceKey(TriggerInjury, DomainTraining):           ActionAskMe,
		PreferenceKey(TriggerMissedWorkout, DomainNutrition):   ActionAskMe,
		PreferenceKey(TriggerLowAdherence, DomainNutrition):    ActionAskMe,
		PreferenceKey(TriggerHighAdherence, DomainNutrition):   ActionAskMe,
	}
}

// NewDefaultPreferences builds the lazily created row for userID.
func NewDefaultPreferences(userID uuid.UUID) *AdjustmentPreferences {
	return &AdjustmentPreferences{
		UserID:                    userID,
		DailyAdjustmentsEnabled:   true,
		TriggerActions:            DefaultTriggerActions(),
		GracePeriodMinutes:        DefaultGracePeriodMinutes,
		UndoWindowHours:           DefaultUndoWindowHours,
		NotificationRetentionDays: DefaultNotificationRetentionDays,
	}
}

func (p *AdjustmentPreferences) GracePeriod() time.Duration {
	if p == nil || p.GracePeriodMinutes <= 0 {
		return DefaultGracePeriodMinutes * time.Minute
	}
	return time.Duration(p.GracePeriodMinutes) * time.Minute
}

func (p *AdjustmentPreferences) UndoWindow() time.Duration {
	if p == nil || p.UndoWindowHours <= 0 {
		return DefaultUndoWindowHours * time.Hour
	}
	return time.Duration(p.UndoWindowHours) * time.Hour
}

func (p *AdjustmentPreferences) NotificationRetention() time.Duration {
	if p == nil || p.NotificationRetentionDays <= 0 {
		return DefaultNotificationRetentionDays * 24 * time.Hour
	}
	return time.Duration(p.NotificationRetentionDays) * 24 * time.Hour
}

// Snapshot returns a deep copy so one decision chain never observes a
// concurrent preference update.
func (p *AdjustmentPreferences) Snapshot() AdjustmentPreferences {
	out := *p
	out.TriggerActions = make(map[string]Action, len(p.TriggerActions))
	for k, v := range p.TriggerActions {
		out.TriggerActions[k] = v
	}
	return out
}
