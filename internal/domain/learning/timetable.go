package learning

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActivityStudy      = "study"
	ActivityBreak      = "break"
	ActivityReview     = "review"
	ActivityAssignment = "assignment"
)

// TimetableEntry is one slot of a student's weekly plan. Times are "HH:MM"
// in 24-hour form; DayOfWeek is the English weekday name.
type TimetableEntry struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID    uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	DayOfWeek    string    `gorm:"type:text;not null" json:"day_of_week"`
	StartTime    string    `gorm:"type:text;not null" json:"start_time"`
	EndTime      string    `gorm:"type:text;not null" json:"end_time"`
	Subject      string    `gorm:"type:text;not null" json:"subject"`
	FocusTopic   string    `gorm:"type:text" json:"focus_topic,omitempty"`
	ActivityType string    `gorm:"type:text;not null" json:"activity_type"`
	Priority     string    `gorm:"type:text" json:"priority,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (TimetableEntry) TableName() string { return "timetable_entry" }
