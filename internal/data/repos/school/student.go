package school

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

type StudentFilter struct {
	SchoolID   uuid.UUID
	TeacherID  uuid.UUID
	ActiveOnly bool
}

type StudentRepo interface {
	Create(dbc dbctx.Context, row *types.Student) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Student, error)
	List(dbc dbctx.Context, f StudentFilter) ([]*types.Student, error)
	// ListInactiveSince returns active students whose last activity is before
	// cutoff. Students who never chatted are excluded.
	ListInactiveSince(dbc dbctx.Context, cutoff time.Time) ([]*types.Student, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type studentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentRepo(db *gorm.DB, baseLog *logger.Logger) StudentRepo {
	return &studentRepo{
		db:  db,
		log: baseLog.With("repo", "StudentRepo"),
	}
}

func (r *studentRepo) Create(dbc dbctx.Context, row *types.Student) error {
	if row == nil || row.SchoolID == uuid.Nil || row.FullName == "" {
		return fmt.Errorf("invalid student")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.SupportType == "" {
		row.SupportType = "None"
	}
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *studentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Student, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Student
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *studentRepo) List(dbc dbctx.Context, f StudentFilter) ([]*types.Student, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Student{})
	if f.SchoolID != uuid.Nil {
		q = q.Where("school_id = ?", f.SchoolID)
	}
	if f.TeacherID != uuid.Nil {
		q = q.Where("teacher_id = ?", f.TeacherID)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []*types.Student
	if err := q.Order("full_name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *studentRepo) ListInactiveSince(dbc dbctx.Context, cutoff time.Time) ([]*types.Student, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Student
	err := transaction.WithContext(dbc.Ctx).
		Where("is_active = ? AND last_active IS NOT NULL AND last_active < ?", true, cutoff.UTC()).
		Order("last_active ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *studentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing student id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Student{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *studentRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.Student{}).Error
}
