package adherence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CategoryTraining  = "training"
	CategoryNutrition = "nutrition"
)

const (
	StatusCompleted = "completed"
	StatusSimilar   = "similar"
	StatusPartial   = "partial"
	StatusSkipped   = "skipped"
	StatusOffPlan   = "off_plan"
)

// AdherenceRecord is the immutable outcome of matching one logged item to one
// planned item, or of a planned item going unlogged. Corrections are new records.
type AdherenceRecord struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_adherence_user_date,priority:1" json:"user_id"`
	RecordDate   string         `gorm:"column:record_date;size:10;not null;index:idx_adherence_user_date,priority:2" json:"record_date"`
	Category     string         `gorm:"column:category;not null;index" json:"category"`
	PlannedRefID uuid.UUID      `gorm:"type:uuid;column:planned_ref_id;not null;index" json:"planned_ref_id"`
	ActualRefID  *uuid.UUID     `gorm:"type:uuid;column:actual_ref_id;index" json:"actual_ref_id,omitempty"`
	Status       string         `gorm:"column:status;not null" json:"status"`
	Score        float64        `gorm:"column:score;not null" json:"score"`
	Detail       datatypes.JSON `gorm:"column:detail;type:jsonb" json:"detail"`
	DedupeKey    string         `gorm:"column:dedupe_key;not null;uniqueIndex" json:"dedupe_key"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
}

func (AdherenceRecord) TableName() string { return "adherence_record" }

func (r *AdherenceRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// MatchDedupeKey identifies the record produced by matching a logged item.
func MatchDedupeKey(actualID uuid.UUID) string {
	return fmt.Sprintf("match:%s", actualID)
}

// MissedDedupeKey identifies the record produced for an unlogged planned item.
func MissedDedupeKey(plannedID uuid.UUID, date string) string {
	return fmt.Sprintf("missed:%s:%s", plannedID, date)
}

// Counts toward adherence.
func IsAdherent(status string) bool {
	return status == StatusCompleted || status == StatusSimilar
}
