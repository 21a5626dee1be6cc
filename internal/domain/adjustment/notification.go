package adjustment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RefTypeDayOverride     = "day_override"
	RefTypePlanChangeEvent = "plan_change_event"
)

// Notification is the in-app copy of a notify() call; it is swept once expired.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string     `gorm:"column:title;not null" json:"title"`
	Message   string     `gorm:"column:message;not null" json:"message"`
	RefType   string     `gorm:"column:ref_type" json:"ref_type,omitempty"`
	RefID     *uuid.UUID `gorm:"type:uuid;column:ref_id" json:"ref_id,omitempty"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index" json:"expires_at,omitempty"`
	ReadAt    *time.Time `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;index" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
