package school

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

type TeacherRepo interface {
	Create(dbc dbctx.Context, row *types.Teacher) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Teacher, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.Teacher, error)
	ListBySchool(dbc dbctx.Context, schoolID uuid.UUID) ([]*types.Teacher, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type teacherRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTeacherRepo(db *gorm.DB, baseLog *logger.Logger) TeacherRepo {
	return &teacherRepo{
		db:  db,
		log: baseLog.With("repo", "TeacherRepo"),
	}
}

func (r *teacherRepo) Create(dbc dbctx.Context, row *types.Teacher) error {
	if row == nil || row.SchoolID == uuid.Nil || strings.TrimSpace(row.Email) == "" {
		return fmt.Errorf("invalid teacher")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Email = strings.ToLower(strings.TrimSpace(row.Email))
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *teacherRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Teacher, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Teacher
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *teacherRepo) GetByEmail(dbc dbctx.Context, email string) (*types.Teacher, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Teacher
	err := transaction.WithContext(dbc.Ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *teacherRepo) ListBySchool(dbc dbctx.Context, schoolID uuid.UUID) ([]*types.Teacher, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Teacher{})
	if schoolID != uuid.Nil {
		q = q.Where("school_id = ?", schoolID)
	}
	var out []*types.Teacher
	if err := q.Order("full_name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *teacherRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Teacher{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *teacherRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.Teacher{}).Error
}
