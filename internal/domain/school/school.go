package school

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type School struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"type:text;not null;index" json:"name"`
	AppKey       string    `gorm:"type:text;not null;uniqueIndex" json:"app_key"`
	Location     string    `gorm:"type:text" json:"location"`
	ContactEmail string    `gorm:"type:text" json:"contact_email"`
	ContactPhone string    `gorm:"type:text" json:"contact_phone"`
	// GradeLevels lists the classes the school teaches, e.g. "JSS1".
	GradeLevels datatypes.JSONSlice[string] `json:"grade_levels"`
	// SyllabusText is free text pasted by the school; tutoring quotes the
	// relevant part of it when explaining a topic.
	SyllabusText string    `gorm:"type:text" json:"syllabus_text,omitempty"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (School) TableName() string { return "school" }
