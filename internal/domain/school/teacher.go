package school

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TeacherRoleAdmin       = "Admin"
	TeacherRoleHeadTeacher = "HeadTeacher"
	TeacherRoleTeacher     = "Teacher"
)

type Teacher struct {
	ID                uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	SchoolID          uuid.UUID                   `gorm:"type:uuid;not null;index" json:"school_id"`
	FullName          string                      `gorm:"type:text;not null" json:"full_name"`
	Email             string                      `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Phone             string                      `gorm:"type:text" json:"phone,omitempty"`
	Role              string                      `gorm:"type:text;not null" json:"role"`
	Subjects          datatypes.JSONSlice[string] `json:"subjects"`
	YearsOfExperience int                         `json:"years_of_experience"`
	IsActive          bool                        `gorm:"not null" json:"is_active"`
	CreatedAt         time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Teacher) TableName() string { return "teacher" }
