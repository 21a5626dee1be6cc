package tracking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContextLog is a self-report of recovery context. Every scale is 0-10 and every
// field is optional; aggregation ignores missing values rather than treating them
// as zero.
type ContextLog struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index:idx_context_log_user_date,priority:1" json:"user_id"`
	LogDate       string    `gorm:"column:log_date;size:10;not null;index:idx_context_log_user_date,priority:2" json:"log_date"`
	LoggedAt      time.Time `gorm:"column:logged_at;not null" json:"logged_at"`
	SleepHours    *float64  `gorm:"column:sleep_hours" json:"sleep_hours,omitempty"`
	SleepQuality  *float64  `gorm:"column:sleep_quality" json:"sleep_quality,omitempty"`
	StressLevel   *float64  `gorm:"column:stress_level" json:"stress_level,omitempty"`
	SorenessLevel *float64  `gorm:"column:soreness_level" json:"soreness_level,omitempty"`
	EnergyLevel   *float64  `gorm:"column:energy_level" json:"energy_level,omitempty"`
	Injury        bool      `gorm:"column:injury;not null;default:false" json:"injury"`
	InjuryNote    string    `gorm:"column:injury_note" json:"injury_note,omitempty"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (ContextLog) TableName() string { return "context_log" }

func (c *ContextLog) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.LogDate == "" && !c.LoggedAt.IsZero() {
		c.LogDate = c.LoggedAt.Format(dateLayout)
	}
	return nil
}
