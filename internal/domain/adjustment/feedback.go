package adjustment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FeedbackApproved = "approved"
	FeedbackRejected = "rejected"
	FeedbackUndone   = "undone"
)

type AdjustmentFeedback struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OverrideID            uuid.UUID `gorm:"type:uuid;not null;index" json:"override_id"`
	UserID                uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Action                string    `gorm:"column:action;not null" json:"action"`
	ReasonCode            string    `gorm:"column:reason_code" json:"reason_code"`
	TimeToDecisionSeconds int64     `gorm:"column:time_to_decision_seconds;not null" json:"time_to_decision_seconds"`
	Comment               string    `gorm:"column:comment" json:"comment,omitempty"`
	CreatedAt             time.Time `gorm:"not null" json:"created_at"`
}

func (AdjustmentFeedback) TableName() string { return "adjustment_feedback" }

func (f *AdjustmentFeedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
