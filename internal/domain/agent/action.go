package agent

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionMultiAgentCoordination = "multi_agent_coordination"
	ActionFastPathResponse       = "fast_path_response"
	ActionMultiAgentStream       = "multi_agent_stream"
	ActionExamPrepCoordination   = "exam_prep_coordination"
	ActionLowEngagement          = "low_engagement_intervention"
	ActionCheckIn                = "check_in"
	ActionDailyCheckIn           = "daily_check_in"
	ActionScheduleCreated        = "schedule_created"
	ActionQuizGenerated          = "quiz_generated"
	ActionMasteryEvaluated       = "mastery_evaluated"
	ActionParentNotified         = "parent_notified"
	ActionEncouragementSent      = "encouragement_sent"

	OutcomePending = "pending"
)

// AgentAction is the audit record of something the agents did. Written once;
// the outcome may be patched later.
type AgentAction struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"student_id"`
	ActionType         string         `gorm:"type:text;not null;index" json:"action_type"`
	ActionData         datatypes.JSON `json:"action_data"`
	Reasoning          string         `gorm:"type:text" json:"reasoning"`
	Outcome            string         `gorm:"type:text;not null" json:"outcome"`
	StudentResponse    string         `gorm:"type:text" json:"student_response,omitempty"`
	EffectivenessScore *float64       `json:"effectiveness_score,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;index" json:"created_at"`
}

func (AgentAction) TableName() string { return "agent_action" }
