package domain

import (
	"github.com/i-am-the-robot/Edulife/internal/domain/agent"
	"github.com/i-am-the-robot/Edulife/internal/domain/chat"
	"github.com/i-am-the-robot/Edulife/internal/domain/learning"
	"github.com/i-am-the-robot/Edulife/internal/domain/notify"
	"github.com/i-am-the-robot/Edulife/internal/domain/school"
)

type School = school.School
type Teacher = school.Teacher
type Student = school.Student

type ConversationTurn = chat.ConversationTurn
type SessionSummary = chat.SessionSummary

type AgentMemory = agent.AgentMemory
type AgentAction = agent.AgentAction
type Strategy = agent.Strategy
type RevisitTopic = agent.RevisitTopic
type MasteredTopic = agent.MasteredTopic
type Goal = agent.Goal
type Milestone = agent.Milestone
type Fact = agent.Fact

type TestResult = learning.TestResult
type TimetableEntry = learning.TimetableEntry

type Notification = notify.Notification

// All returns every persisted model, in migration order.
func All() []any {
	return []any{
		&School{},
		&Teacher{},
		&Student{},
		&ConversationTurn{},
		&AgentMemory{},
		&AgentAction{},
		&TestResult{},
		&TimetableEntry{},
		&Notification{},
	}
}
