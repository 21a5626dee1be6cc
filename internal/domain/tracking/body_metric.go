package tracking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BodyMetric struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_body_metric_user_measured,priority:1" json:"user_id"`
	MeasuredAt time.Time `gorm:"column:measured_at;not null;index:idx_body_metric_user_measured,priority:2" json:"measured_at"`
	WeightKg   float64   `gorm:"column:weight_kg;not null" json:"weight_kg"`
	BodyFatPct *float64  `gorm:"column:body_fat_pct" json:"body_fat_pct,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (BodyMetric) TableName() string { return "body_metric" }

func (b *BodyMetric) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
