package agent

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Strategy struct {
	Strategy     string    `json:"strategy"`
	AddedAt      time.Time `json:"added_at"`
	SuccessCount int       `json:"success_count,omitempty"`
}

type RevisitTopic struct {
	Topic   string    `json:"topic"`
	Reason  string    `json:"reason,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

type MasteredTopic struct {
	Topic      string    `json:"topic"`
	MasteredAt time.Time `json:"mastered_at"`
}

const (
	GoalActive    = "active"
	GoalCompleted = "completed"
)

type Goal struct {
	Goal        string     `json:"goal"`
	Status      string     `json:"status"`
	AddedAt     time.Time  `json:"added_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Milestone struct {
	Milestone  string         `json:"milestone"`
	AchievedAt time.Time      `json:"achieved_at"`
	Data       map[string]any `json:"data"`
}

// Fact is something permanent the student told us about themselves.
type Fact struct {
	Category string    `json:"category"`
	Fact     string    `json:"fact"`
	AddedAt  time.Time `json:"added_at"`
}

// AgentMemory is the long-lived per-student record shared by every agent.
// One row per student; it is read, changed in Go and written back whole, so
// concurrent writers race and the last save wins.
type AgentMemory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"student_id"`

	EffectiveStrategies   datatypes.JSONSlice[Strategy]      `json:"effective_strategies"`
	IneffectiveStrategies datatypes.JSONSlice[Strategy]      `json:"ineffective_strategies"`
	TopicsToRevisit       datatypes.JSONSlice[RevisitTopic]  `json:"topics_to_revisit"`
	MasteredTopics        datatypes.JSONSlice[MasteredTopic] `json:"mastered_topics"`
	CurrentFocusTopics    datatypes.JSONSlice[string]        `json:"current_focus_topics"`
	AgentGoals            datatypes.JSONSlice[Goal]          `json:"agent_goals"`
	ProgressMilestones    datatypes.JSONSlice[Milestone]     `json:"progress_milestones"`
	PreferredExamples     datatypes.JSONSlice[string]        `json:"preferred_examples"`
	UserFacts             datatypes.JSONSlice[Fact]          `json:"user_facts"`

	LearningStyle        string     `gorm:"type:text" json:"learning_style,omitempty"`
	OptimalSessionLength int        `gorm:"not null" json:"optimal_session_length"`
	BestTimeOfDay        string     `gorm:"type:text" json:"best_time_of_day,omitempty"`
	InteractionCount     int        `gorm:"not null" json:"interaction_count"`
	LastInteraction      *time.Time `json:"last_interaction,omitempty"`
	// LastAssessmentAt is when a quiz was last offered in chat. Quiz timing
	// counts from here as well as from the last graded answer.
	LastAssessmentAt *time.Time `json:"last_assessment_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (AgentMemory) TableName() string { return "agent_memory" }
