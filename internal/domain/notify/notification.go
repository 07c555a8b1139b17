package notify

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TypeBadge       = "badge"
	TypeCheckIn     = "check_in"
	TypeEncourage   = "encouragement"
	TypeSchedule    = "schedule"
	TypeAchievement = "achievement"

	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

type Notification struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"student_id"`
	NotificationType string         `gorm:"type:text;not null" json:"notification_type"`
	AgentType        string         `gorm:"type:text" json:"agent_type,omitempty"`
	Title            string         `gorm:"type:text;not null" json:"title"`
	Message          string         `gorm:"type:text;not null" json:"message"`
	ActionData       datatypes.JSON `json:"action_data,omitempty"`
	IsRead           bool           `gorm:"not null;index" json:"is_read"`
	ReadAt           *time.Time     `json:"read_at,omitempty"`
	Priority         string         `gorm:"type:text;not null" json:"priority"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }
