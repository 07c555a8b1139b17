// Package coordinator fans a student message out to the responders, joins
// their results and merges them into one reply. It also runs the multi-agent
// campaigns: exam preparation, low-engagement recovery and the daily
// check-in.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/actions"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/assessment"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/memory"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/motivation"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/parentconnect"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/scheduling"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/tutoring"
	"github.com/i-am-the-robot/Edulife/internal/observability"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

const (
	DefaultBranchTimeout = 25 * time.Second
	DefaultSubject       = "General"

	historyLimit = 20
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrEmptyMessage    = errors.New("message is required")
)

// Agent names reported in contributing_agents.
const (
	AgentTutoring          = "tutoring"
	AgentFastPath          = "tutoring_fast_path"
	AgentAssessment        = "assessment"
	AgentScheduling        = "scheduling"
	AgentMotivation        = "motivation"
	AgentIntervention      = "motivation_intervention"
	AgentFatigueMonitor    = "scheduling_fatigue_monitor"
	AgentParentConnect     = "parent_connect"
	AgentProactiveSchedule = "scheduling_proactive"
)

type Request struct {
	StudentID uuid.UUID
	Message   string
	Subject   string
	SessionID string
}

// Reply is the merged answer to one student message.
type Reply struct {
	ReplyText          string                      `json:"reply_text"`
	Quiz               *assessment.Quiz            `json:"quiz,omitempty"`
	Schedule           *scheduling.Allocation      `json:"schedule,omitempty"`
	Encouragement      string                      `json:"encouragement,omitempty"`
	BreakSuggestion    string                      `json:"break_suggestion,omitempty"`
	NewBadges          []parentconnect.Badge       `json:"new_badges,omitempty"`
	ScheduleMessage    string                      `json:"schedule_message,omitempty"`
	Confusion          *tutoring.ConfusionAnalysis `json:"confusion_analysis,omitempty"`
	Intent             tutoring.IntentType         `json:"intent"`
	ContributingAgents []string                    `json:"contributing_agents"`
	ActionsTaken       []string                    `json:"actions_taken"`
}

// Deps are the collaborators a Coordinator needs. Metrics may be nil.
type Deps struct {
	Tutor     *tutoring.Tutor
	Assessor  *assessment.Assessor
	Scheduler *scheduling.Scheduler
	Motivator *motivation.Motivator
	Connector *parentconnect.Connector
	Memory    memory.Service
	Actions   actions.Logger
	Students  repos.StudentRepo
	Turns     repos.ConversationTurnRepo
	Results   repos.TestResultRepo
	Inbox     parentconnect.Inbox
	Metrics   *observability.Metrics
}

type Coordinator struct {
	log           *logger.Logger
	tutor         *tutoring.Tutor
	assessor      *assessment.Assessor
	scheduler     *scheduling.Scheduler
	motivator     *motivation.Motivator
	connector     *parentconnect.Connector
	memory        memory.Service
	actions       actions.Logger
	students      repos.StudentRepo
	turns         repos.ConversationTurnRepo
	results       repos.TestResultRepo
	inbox         parentconnect.Inbox
	metrics       *observability.Metrics
	tracer        trace.Tracer
	branchTimeout time.Duration
	now           func() time.Time
}

func New(log *logger.Logger, d Deps, branchTimeout time.Duration) *Coordinator {
	if branchTimeout <= 0 {
		branchTimeout = DefaultBranchTimeout
	}
	return &Coordinator{
		log:           log.With("service", "Coordinator"),
		tutor:         d.Tutor,
		assessor:      d.Assessor,
		scheduler:     d.Scheduler,
		motivator:     d.Motivator,
		connector:     d.Connector,
		memory:        d.Memory,
		actions:       d.Actions,
		students:      d.Students,
		turns:         d.Turns,
		results:       d.Results,
		inbox:         d.Inbox,
		metrics:       d.Metrics,
		tracer:        observability.Tracer("coordinator"),
		branchTimeout: branchTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (c *Coordinator) student(ctx context.Context, id uuid.UUID) (*types.Student, error) {
	st, err := c.students.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if st == nil {
		return nil, ErrStudentNotFound
	}
	return st, nil
}

func (c *Coordinator) audit(ctx context.Context, studentID uuid.UUID, actionType string, data any, reasoning string) {
	if c.actions == nil {
		return
	}
	if _, err := c.actions.Log(ctx, studentID, actionType, data, reasoning); err != nil {
		c.log.Warn("log coordination action failed", "student_id", studentID, "action_type", actionType, "error", err)
	}
}

func normalize(req Request) (Request, error) {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return req, ErrEmptyMessage
	}
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		req.Subject = DefaultSubject
	}
	return req, nil
}
