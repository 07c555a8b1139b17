package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

type AgentActionRepo interface {
	Create(dbc dbctx.Context, row *types.AgentAction) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AgentAction, error)
	// ListByStudent returns newest first. An empty actionType matches all.
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID, actionType string, limit int) ([]*types.AgentAction, error)
	ListSince(dbc dbctx.Context, studentID uuid.UUID, since time.Time) ([]*types.AgentAction, error)
	CountByStudent(dbc dbctx.Context, studentID uuid.UUID) (int64, error)
	UpdateOutcome(dbc dbctx.Context, id uuid.UUID, outcome, studentResponse string, score *float64) error
}

type agentActionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentActionRepo(db *gorm.DB, baseLog *logger.Logger) AgentActionRepo {
	return &agentActionRepo{
		db:  db,
		log: baseLog.With("repo", "AgentActionRepo"),
	}
}

func (r *agentActionRepo) Create(dbc dbctx.Context, row *types.AgentAction) error {
	if row == nil || row.StudentID == uuid.Nil || row.ActionType == "" {
		return fmt.Errorf("invalid agent action")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Outcome == "" {
		row.Outcome = "pending"
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *agentActionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AgentAction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.AgentAction
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *agentActionRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID, actionType string, limit int) ([]*types.AgentAction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Where("student_id = ?", studentID)
	if actionType != "" {
		q = q.Where("action_type = ?", actionType)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.AgentAction
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *agentActionRepo) ListSince(dbc dbctx.Context, studentID uuid.UUID, since time.Time) ([]*types.AgentAction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AgentAction
	err := transaction.WithContext(dbc.Ctx).
		Where("student_id = ? AND created_at >= ?", studentID, since.UTC()).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *agentActionRepo) CountByStudent(dbc dbctx.Context, studentID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.AgentAction{}).
		Where("student_id = ?", studentID).
		Count(&n).Error
	return n, err
}

func (r *agentActionRepo) UpdateOutcome(dbc dbctx.Context, id uuid.UUID, outcome, studentResponse string, score *float64) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates := map[string]interface{}{"outcome": outcome}
	if studentResponse != "" {
		updates["student_response"] = studentResponse
	}
	if score != nil {
		updates["effectiveness_score"] = *score
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.AgentAction{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
