package school

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SupportNone         = "None"
	SupportDyslexia     = "Dyslexia"
	SupportDownSyndrome = "DownSyndrome"
	SupportAutism       = "Autism"

	PersonalityIntrovert = "Introvert"
	PersonalityExtrovert = "Extrovert"
)

type Student struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SchoolID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"school_id"`
	TeacherID *uuid.UUID `gorm:"type:uuid;index" json:"teacher_id,omitempty"`

	FullName     string `gorm:"type:text;not null" json:"full_name"`
	Age          int    `gorm:"not null" json:"age"`
	StudentClass string `gorm:"type:text;not null" json:"student_class"`
	Hobby        string `gorm:"type:text" json:"hobby"`
	Personality  string `gorm:"type:text" json:"personality"`
	// SupportType adapts how explanations are written. It is visible to staff
	// and never put into text addressed to the student.
	SupportType string `gorm:"type:text;not null" json:"support_type"`
	PIN         string `gorm:"type:text" json:"-"`

	ParentName       string                      `gorm:"type:text" json:"parent_name,omitempty"`
	ParentEmail      string                      `gorm:"type:text" json:"parent_email,omitempty"`
	FavoriteSubjects datatypes.JSONSlice[string] `json:"favorite_subjects"`

	CurrentStreak    int        `gorm:"not null" json:"current_streak"`
	LongestStreak    int        `gorm:"not null" json:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`
	LastActive       *time.Time `gorm:"index" json:"last_active,omitempty"`

	IsActive  bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Student) TableName() string { return "student" }

// FirstName is how agents address the student.
func (s *Student) FirstName() string {
	if s == nil {
		return ""
	}
	parts := strings.Fields(s.FullName)
	if len(parts) == 0 {
		return "there"
	}
	return parts[0]
}

// NeedsSupport reports whether explanations should be adapted.
func (s *Student) NeedsSupport() bool {
	return s != nil && s.SupportType != "" && s.SupportType != SupportNone
}
