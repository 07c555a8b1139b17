package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

var (
	ErrNotFound     = errors.New("agent action not found")
	ErrInvalidScore = errors.New("effectiveness score must be between 0 and 1")
)

type suppressKey struct{}

// Suppress marks ctx so that Log becomes a no-op. The coordinator hands a
// suppressed context to responders so a coordinated call produces exactly one
// audit record, written by the coordinator itself.
func Suppress(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressKey{}, true)
}

func Suppressed(ctx context.Context) bool {
	v, _ := ctx.Value(suppressKey{}).(bool)
	return v
}

// Stats summarizes effectiveness scores recorded against a student's actions.
type Stats struct {
	TotalActions            int                `json:"total_actions"`
	AverageEffectiveness    float64            `json:"average_effectiveness"`
	MostEffectiveActionType *string            `json:"most_effective_action_type"`
	ByActionType            map[string]float64 `json:"by_action_type,omitempty"`
}

// Logger is the narrow view responders need.
type Logger interface {
	Log(ctx context.Context, studentID uuid.UUID, actionType string, data any, reasoning string) (*types.AgentAction, error)
}

type Service interface {
	Logger
	UpdateOutcome(ctx context.Context, id uuid.UUID, outcome, studentResponse string, score *float64) (*types.AgentAction, error)
	List(ctx context.Context, studentID uuid.UUID, actionType string, limit int) ([]*types.AgentAction, error)
	Stats(ctx context.Context, studentID uuid.UUID) (Stats, error)
}

type service struct {
	log  *logger.Logger
	repo repos.AgentActionRepo
}

func NewService(log *logger.Logger, repo repos.AgentActionRepo) Service {
	return &service{
		log:  log.With("service", "AgentActionService"),
		repo: repo,
	}
}

// Log appends an audit record with outcome "pending". It returns nil, nil
// when ctx is suppressed.
func (s *service) Log(ctx context.Context, studentID uuid.UUID, actionType string, data any, reasoning string) (*types.AgentAction, error) {
	if Suppressed(ctx) {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode action data: %w", err)
	}
	row := &types.AgentAction{
		StudentID:  studentID,
		ActionType: actionType,
		ActionData: datatypes.JSON(raw),
		Reasoning:  reasoning,
	}
	if err := s.repo.Create(dbctx.New(ctx), row); err != nil {
		return nil, fmt.Errorf("log agent action %s: %w", actionType, err)
	}
	s.log.Debug("agent action logged", "student_id", studentID, "action_type", actionType)
	return row, nil
}

func (s *service) UpdateOutcome(ctx context.Context, id uuid.UUID, outcome, studentResponse string, score *float64) (*types.AgentAction, error) {
	if score != nil && (*score < 0 || *score > 1 || math.IsNaN(*score)) {
		return nil, ErrInvalidScore
	}
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		return nil, fmt.Errorf("outcome required")
	}
	dbc := dbctx.New(ctx)
	if err := s.repo.UpdateOutcome(dbc, id, outcome, studentResponse, score); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update action outcome: %w", err)
	}
	row, err := s.repo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNotFound
	}
	return row, nil
}

func (s *service) List(ctx context.Context, studentID uuid.UUID, actionType string, limit int) ([]*types.AgentAction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByStudent(dbctx.New(ctx), studentID, strings.TrimSpace(actionType), limit)
}

func (s *service) Stats(ctx context.Context, studentID uuid.UUID) (Stats, error) {
	rows, err := s.repo.ListByStudent(dbctx.New(ctx), studentID, "", 0)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(rows), nil
}

// ComputeStats averages the scored actions overall and per type. Averages
// are rounded to two decimals; ties for the most effective type go to the
// alphabetically first type.
func ComputeStats(rows []*types.AgentAction) Stats {
	sums := map[string]float64{}
	counts := map[string]int{}
	total := 0
	var sum float64
	for _, r := range rows {
		if r == nil || r.EffectivenessScore == nil {
			continue
		}
		total++
		sum += *r.EffectivenessScore
		sums[r.ActionType] += *r.EffectivenessScore
		counts[r.ActionType]++
	}
	if total == 0 {
		return Stats{}
	}

	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	byType := make(map[string]float64, len(keys))
	best := ""
	bestAvg := math.Inf(-1)
	for _, k := range keys {
		avg := sums[k] / float64(counts[k])
		byType[k] = round2(avg)
		if avg > bestAvg {
			best, bestAvg = k, avg
		}
	}
	return Stats{
		TotalActions:            total,
		AverageEffectiveness:    round2(sum / float64(total)),
		MostEffectiveActionType: &best,
		ByActionType:            byType,
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
