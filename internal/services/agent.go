package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/actions"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/memory"
	"github.com/i-am-the-robot/Edulife/internal/modules/coordinator"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

const maxExamSubjects = 10

// Campaigns are the multi-agent flows run outside a chat message.
type Campaigns interface {
	ExamPrep(ctx context.Context, studentID uuid.UUID, examDate time.Time, subjects []string) (*coordinator.ExamPlan, error)
	LowEngagement(ctx context.Context, studentID uuid.UUID) (*coordinator.EngagementPlan, error)
	DailyCheckIn(ctx context.Context, studentID uuid.UUID) (*coordinator.CheckIn, error)
	RunDailyCheckIns(ctx context.Context) (*coordinator.Sweep, error)
}

type OutcomeInput struct {
	Outcome            string
	StudentResponse    string
	EffectivenessScore *float64
}

type AgentService interface {
	MemorySummary(ctx context.Context, studentID uuid.UUID) (memory.Summary, error)
	Memory(ctx context.Context, studentID uuid.UUID) (*types.AgentMemory, error)
	Actions(ctx context.Context, studentID uuid.UUID, actionType string, limit int) ([]*types.AgentAction, error)
	UpdateOutcome(ctx context.Context, studentID, actionID uuid.UUID, in OutcomeInput) (*types.AgentAction, error)
	Stats(ctx context.Context, studentID uuid.UUID) (actions.Stats, error)

	CheckIn(ctx context.Context, studentID uuid.UUID) (*coordinator.CheckIn, error)
	ExamPrep(ctx context.Context, studentID uuid.UUID, examDate time.Time, subjects []string) (*coordinator.ExamPlan, error)
	LowEngagement(ctx context.Context, studentID uuid.UUID) (*coordinator.EngagementPlan, error)
	RunDailyCheckIns(ctx context.Context) (*coordinator.Sweep, error)
}

type agentService struct {
	log       *logger.Logger
	students  repos.StudentRepo
	history   repos.AgentActionRepo
	memory    memory.Service
	actions   actions.Service
	campaigns Campaigns
}

func NewAgentService(
	log *logger.Logger,
	students repos.StudentRepo,
	history repos.AgentActionRepo,
	mem memory.Service,
	acts actions.Service,
	campaigns Campaigns,
) AgentService {
	return &agentService{
		log:       log.With("service", "AgentService"),
		students:  students,
		history:   history,
		memory:    mem,
		actions:   acts,
		campaigns: campaigns,
	}
}

func (s *agentService) requireStudent(ctx context.Context, id uuid.UUID) error {
	st, err := s.students.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return fmt.Errorf("get student: %w", err)
	}
	if st == nil {
		return notFound("student")
	}
	return nil
}

func (s *agentService) MemorySummary(ctx context.Context, studentID uuid.UUID) (memory.Summary, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return memory.Summary{}, err
	}
	return s.memory.Summary(ctx, studentID)
}

func (s *agentService) Memory(ctx context.Context, studentID uuid.UUID) (*types.AgentMemory, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.memory.Load(ctx, studentID)
}

func (s *agentService) Actions(ctx context.Context, studentID uuid.UUID, actionType string, limit int) ([]*types.AgentAction, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.actions.List(ctx, studentID, strings.TrimSpace(actionType), limit)
}

func (s *agentService) UpdateOutcome(ctx context.Context, studentID, actionID uuid.UUID, in OutcomeInput) (*types.AgentAction, error) {
	outcome := strings.TrimSpace(in.Outcome)
	if outcome == "" {
		return nil, invalid("outcome_required", "outcome is required")
	}
	if sc := in.EffectivenessScore; sc != nil && (*sc < 0 || *sc > 1) {
		return nil, invalid("invalid_effectiveness_score", "effectiveness score must be between 0 and 1")
	}
	row, err := s.history.GetByID(dbctx.New(ctx), actionID)
	if err != nil {
		return nil, fmt.Errorf("get agent action: %w", err)
	}
	if row == nil || row.StudentID != studentID {
		return nil, notFound("agent_action")
	}
	return s.actions.UpdateOutcome(ctx, actionID, outcome, strings.TrimSpace(in.StudentResponse), in.EffectivenessScore)
}

func (s *agentService) Stats(ctx context.Context, studentID uuid.UUID) (actions.Stats, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return actions.Stats{}, err
	}
	return s.actions.Stats(ctx, studentID)
}

func campaignError(err error) error {
	if err == nil {
		return nil
	}
	return coordinationError(err)
}

func (s *agentService) CheckIn(ctx context.Context, studentID uuid.UUID) (*coordinator.CheckIn, error) {
	out, err := s.campaigns.DailyCheckIn(ctx, studentID)
	return out, campaignError(err)
}

func (s *agentService) ExamPrep(ctx context.Context, studentID uuid.UUID, examDate time.Time, subjects []string) (*coordinator.ExamPlan, error) {
	var clean []string
	seen := map[string]struct{}{}
	for _, sub := range subjects {
		sub = strings.TrimSpace(sub)
		if sub == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(sub)]; dup {
			continue
		}
		seen[strings.ToLower(sub)] = struct{}{}
		clean = append(clean, sub)
	}
	if len(clean) == 0 {
		return nil, invalid("subjects_required", "at least one subject is required")
	}
	if len(clean) > maxExamSubjects {
		return nil, invalid("too_many_subjects", fmt.Sprintf("at most %d subjects", maxExamSubjects))
	}
	if examDate.IsZero() || !examDate.After(time.Now()) {
		return nil, invalid("invalid_exam_date", "exam date must be in the future")
	}
	out, err := s.campaigns.ExamPrep(ctx, studentID, examDate, clean)
	return out, campaignError(err)
}

func (s *agentService) LowEngagement(ctx context.Context, studentID uuid.UUID) (*coordinator.EngagementPlan, error) {
	out, err := s.campaigns.LowEngagement(ctx, studentID)
	return out, campaignError(err)
}

func (s *agentService) RunDailyCheckIns(ctx context.Context) (*coordinator.Sweep, error) {
	return s.campaigns.RunDailyCheckIns(ctx)
}
