package learning

import (
	"time"

	"github.com/google/uuid"
)

type TestResult struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID        uuid.UUID `gorm:"type:uuid;not null;index:idx_test_student_time,priority:1" json:"student_id"`
	Subject          string    `gorm:"type:text;not null;index" json:"subject"`
	Topic            string    `gorm:"type:text" json:"topic"`
	Question         string    `gorm:"type:text;not null" json:"question"`
	StudentAnswer    string    `gorm:"type:text" json:"student_answer"`
	CorrectAnswer    string    `gorm:"type:text" json:"correct_answer"`
	IsCorrect        bool      `gorm:"not null" json:"is_correct"`
	AttemptNumber    int       `gorm:"not null" json:"attempt_number"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	Feedback         string    `gorm:"type:text" json:"feedback,omitempty"`
	CreatedAt        time.Time `gorm:"not null;index:idx_test_student_time,priority:2" json:"created_at"`
}

func (TestResult) TableName() string { return "test_result" }
