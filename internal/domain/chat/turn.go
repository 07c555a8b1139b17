package chat

import (
	"time"

	"github.com/google/uuid"
)

// ConversationTurn is one student message and the reply it produced. Rows
// are append-only; only IsFavorite is ever updated.
type ConversationTurn struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index:idx_turn_student_time,priority:1" json:"student_id"`
	SessionID string    `gorm:"type:text;index" json:"session_id"`

	Subject string `gorm:"type:text" json:"subject"`
	Topic   string `gorm:"type:text" json:"topic,omitempty"`

	StudentMessage string `gorm:"type:text;not null" json:"student_message"`
	AIResponse     string `gorm:"type:text;not null" json:"ai_response"`
	IsFavorite     bool   `gorm:"not null" json:"is_favorite"`

	Timestamp time.Time `gorm:"not null;index:idx_turn_student_time,priority:2" json:"timestamp"`
}

func (ConversationTurn) TableName() string { return "conversation_turn" }

// SessionSummary is a read model for the chat-session list.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Subject      string    `json:"subject"`
	TurnCount    int       `json:"turn_count"`
	FirstMessage string    `json:"first_message"`
	StartedAt    time.Time `json:"started_at"`
	LastAt       time.Time `json:"last_at"`
}
