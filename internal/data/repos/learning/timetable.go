package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

type TimetableRepo interface {
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.TimetableEntry, error)
	ListByDay(dbc dbctx.Context, studentID uuid.UUID, day string) ([]*types.TimetableEntry, error)
	Count(dbc dbctx.Context, studentID uuid.UUID) (int64, error)
	// Replace swaps the student's whole timetable for rows. Pass a
	// transaction so readers never see a half-written week.
	Replace(dbc dbctx.Context, studentID uuid.UUID, rows []*types.TimetableEntry) error
}

type timetableRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTimetableRepo(db *gorm.DB, baseLog *logger.Logger) TimetableRepo {
	return &timetableRepo{
		db:  db,
		log: baseLog.With("repo", "TimetableRepo"),
	}
}

func (r *timetableRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.TimetableEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TimetableEntry
	err := transaction.WithContext(dbc.Ctx).
		Where("student_id = ?", studentID).
		Order("day_of_week ASC, start_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *timetableRepo) ListByDay(dbc dbctx.Context, studentID uuid.UUID, day string) ([]*types.TimetableEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TimetableEntry
	err := transaction.WithContext(dbc.Ctx).
		Where("student_id = ? AND day_of_week = ?", studentID, day).
		Order("start_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *timetableRepo) Count(dbc dbctx.Context, studentID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.TimetableEntry{}).
		Where("student_id = ?", studentID).
		Count(&n).Error
	return n, err
}

func (r *timetableRepo) Replace(dbc dbctx.Context, studentID uuid.UUID, rows []*types.TimetableEntry) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	tx := transaction.WithContext(dbc.Ctx)
	if err := tx.Where("student_id = ?", studentID).Delete(&types.TimetableEntry{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		row.StudentID = studentID
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		row.CreatedAt = now
	}
	return tx.Create(&rows).Error
}
