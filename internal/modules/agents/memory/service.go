package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

// Summary is the compact view served by the memory API.
type Summary struct {
	StudentID                uuid.UUID  `json:"student_id"`
	LearningStyle            string     `json:"learning_style,omitempty"`
	InteractionCount         int        `json:"interaction_count"`
	LastInteraction          *time.Time `json:"last_interaction,omitempty"`
	EffectiveStrategiesCount int        `json:"effective_strategies_count"`
	TopicsToRevisitCount     int        `json:"topics_to_revisit_count"`
	MasteredTopicsCount      int        `json:"mastered_topics_count"`
	ActiveGoalsCount         int        `json:"active_goals_count"`
	UserFactsCount           int        `json:"user_facts_count"`
	OptimalSessionLength     int        `json:"optimal_session_length"`
	BestTimeOfDay            string     `json:"best_time_of_day,omitempty"`
}

func Summarize(m *types.AgentMemory) Summary {
	return Summary{
		StudentID:                m.StudentID,
		LearningStyle:            m.LearningStyle,
		InteractionCount:         m.InteractionCount,
		LastInteraction:          m.LastInteraction,
		EffectiveStrategiesCount: len(m.EffectiveStrategies),
		TopicsToRevisitCount:     len(m.TopicsToRevisit),
		MasteredTopicsCount:      len(m.MasteredTopics),
		ActiveGoalsCount:         len(ActiveGoals(m)),
		UserFactsCount:           len(m.UserFacts),
		OptimalSessionLength:     m.OptimalSessionLength,
		BestTimeOfDay:            m.BestTimeOfDay,
	}
}

// Service loads and saves the per-student memory record. Every write is a
// read-modify-write of the whole record without a lock, so two concurrent
// updates for the same student can lose one of the changes.
type Service interface {
	Load(ctx context.Context, studentID uuid.UUID) (*types.AgentMemory, error)
	Save(ctx context.Context, m *types.AgentMemory) error
	// Update loads the record, applies fn and saves only when fn reports a
	// change.
	Update(ctx context.Context, studentID uuid.UUID, fn func(m *types.AgentMemory, now time.Time) bool) (*types.AgentMemory, error)
	Summary(ctx context.Context, studentID uuid.UUID) (Summary, error)

	RecordInteraction(ctx context.Context, studentID uuid.UUID) error
	AddEffectiveStrategy(ctx context.Context, studentID uuid.UUID, strategy string) error
	AddTopicToRevisit(ctx context.Context, studentID uuid.UUID, topic, reason string) error
	MarkTopicMastered(ctx context.Context, studentID uuid.UUID, topic string) error
	AddMilestone(ctx context.Context, studentID uuid.UUID, milestone string, data map[string]any) error
	AddFact(ctx context.Context, studentID uuid.UUID, category, fact string) error
}

type service struct {
	log  *logger.Logger
	repo repos.AgentMemoryRepo
	now  func() time.Time
}

func NewService(log *logger.Logger, repo repos.AgentMemoryRepo) Service {
	return &service{
		log:  log.With("service", "AgentMemoryService"),
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Load(ctx context.Context, studentID uuid.UUID) (*types.AgentMemory, error) {
	m, err := s.repo.GetOrCreate(dbctx.New(ctx), studentID)
	if err != nil {
		return nil, fmt.Errorf("load agent memory: %w", err)
	}
	return m, nil
}

func (s *service) Save(ctx context.Context, m *types.AgentMemory) error {
	if err := s.repo.Save(dbctx.New(ctx), m); err != nil {
		return fmt.Errorf("save agent memory: %w", err)
	}
	return nil
}

func (s *service) Update(ctx context.Context, studentID uuid.UUID, fn func(m *types.AgentMemory, now time.Time) bool) (*types.AgentMemory, error) {
	m, err := s.Load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !fn(m, s.now()) {
		return m, nil
	}
	if err := s.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) Summary(ctx context.Context, studentID uuid.UUID) (Summary, error) {
	m, err := s.Load(ctx, studentID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(m), nil
}

func (s *service) RecordInteraction(ctx context.Context, studentID uuid.UUID) error {
	_, err := s.Update(ctx, studentID, RecordInteraction)
	return err
}

func (s *service) AddEffectiveStrategy(ctx context.Context, studentID uuid.UUID, strategy string) error {
	_, err := s.Update(ctx, studentID, func(m *types.AgentMemory, now time.Time) bool {
		return AddEffectiveStrategy(m, strategy, now)
	})
	return err
}

func (s *service) AddTopicToRevisit(ctx context.Context, studentID uuid.UUID, topic, reason string) error {
	_, err := s.Update(ctx, studentID, func(m *types.AgentMemory, now time.Time) bool {
		return AddTopicToRevisit(m, topic, reason, now)
	})
	return err
}

func (s *service) MarkTopicMastered(ctx context.Context, studentID uuid.UUID, topic string) error {
	_, err := s.Update(ctx, studentID, func(m *types.AgentMemory, now time.Time) bool {
		return MarkTopicMastered(m, topic, now)
	})
	return err
}

func (s *service) AddMilestone(ctx context.Context, studentID uuid.UUID, milestone string, data map[string]any) error {
	_, err := s.Update(ctx, studentID, func(m *types.AgentMemory, now time.Time) bool {
		return AddMilestone(m, milestone, data, now)
	})
	return err
}

func (s *service) AddFact(ctx context.Context, studentID uuid.UUID, category, fact string) error {
	_, err := s.Update(ctx, studentID, func(m *types.AgentMemory, now time.Time) bool {
		added := AddFact(m, category, fact, now)
		if added {
			s.log.Debug("stored user fact", "student_id", studentID, "category", category)
		}
		return added
	})
	return err
}
