package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

type AgentMemoryRepo interface {
	GetByStudentID(dbc dbctx.Context, studentID uuid.UUID) (*types.AgentMemory, error)
	// GetOrCreate returns the student's record, inserting an empty one on
	// first access.
	GetOrCreate(dbc dbctx.Context, studentID uuid.UUID) (*types.AgentMemory, error)
	// Save writes the whole record back. Concurrent saves overwrite each other.
	Save(dbc dbctx.Context, row *types.AgentMemory) error
}

type agentMemoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentMemoryRepo(db *gorm.DB, baseLog *logger.Logger) AgentMemoryRepo {
	return &agentMemoryRepo{
		db:  db,
		log: baseLog.With("repo", "AgentMemoryRepo"),
	}
}

func (r *agentMemoryRepo) GetByStudentID(dbc dbctx.Context, studentID uuid.UUID) (*types.AgentMemory, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.AgentMemory
	err := transaction.WithContext(dbc.Ctx).Where("student_id = ?", studentID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *agentMemoryRepo) GetOrCreate(dbc dbctx.Context, studentID uuid.UUID) (*types.AgentMemory, error) {
	if studentID == uuid.Nil {
		return nil, fmt.Errorf("missing student id")
	}
	existing, err := r.GetByStudentID(dbc, studentID)
	if err != nil || existing != nil {
		return existing, err
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	row := &types.AgentMemory{
		ID:                   uuid.New(),
		StudentID:            studentID,
		OptimalSessionLength: 30,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	// two first-accesses can race; the unique index keeps one row
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "student_id"}}, DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.GetByStudentID(dbc, studentID)
}

func (r *agentMemoryRepo) Save(dbc dbctx.Context, row *types.AgentMemory) error {
	if row == nil || row.ID == uuid.Nil {
		return fmt.Errorf("invalid agent memory")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	row.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).Save(row).Error
}
