package learning

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

// Accuracy summarises graded answers.
type Accuracy struct {
	Total   int
	Correct int
}

// Rate is Correct/Total, or ok=false with no answers.
func (a Accuracy) Rate() (rate float64, ok bool) {
	if a.Total == 0 {
		return 0, false
	}
	return float64(a.Correct) / float64(a.Total), true
}

type TestResultRepo interface {
	Create(dbc dbctx.Context, rows []*types.TestResult) ([]*types.TestResult, error)
	// ListByStudent returns newest first. Empty subject and zero since match all.
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID, subject string, since time.Time, limit int) ([]*types.TestResult, error)
	Latest(dbc dbctx.Context, studentID uuid.UUID) (*types.TestResult, error)
	Accuracy(dbc dbctx.Context, studentID uuid.UUID, subject string, since time.Time) (Accuracy, error)
	AccuracyBySubject(dbc dbctx.Context, studentID uuid.UUID, since time.Time) (map[string]Accuracy, error)
}

type testResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTestResultRepo(db *gorm.DB, baseLog *logger.Logger) TestResultRepo {
	return &testResultRepo{
		db:  db,
		log: baseLog.With("repo", "TestResultRepo"),
	}
}

func (r *testResultRepo) Create(dbc dbctx.Context, rows []*types.TestResult) ([]*types.TestResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.TestResult{}, nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row == nil || row.StudentID == uuid.Nil || row.Subject == "" {
			return nil, fmt.Errorf("invalid test result")
		}
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.AttemptNumber == 0 {
			row.AttemptNumber = 1
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *testResultRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID, subject string, since time.Time, limit int) ([]*types.TestResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Where("student_id = ?", studentID)
	if subject != "" {
		q = q.Where("subject = ?", subject)
	}
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since.UTC())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.TestResult
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *testResultRepo) Latest(dbc dbctx.Context, studentID uuid.UUID) (*types.TestResult, error) {
	rows, err := r.ListByStudent(dbc, studentID, "", time.Time{}, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *testResultRepo) Accuracy(dbc dbctx.Context, studentID uuid.UUID, subject string, since time.Time) (Accuracy, error) {
	rows, err := r.ListByStudent(dbc, studentID, subject, since, 0)
	if err != nil {
		return Accuracy{}, err
	}
	var a Accuracy
	for _, row := range rows {
		a.Total++
		if row.IsCorrect {
			a.Correct++
		}
	}
	return a, nil
}

func (r *testResultRepo) AccuracyBySubject(dbc dbctx.Context, studentID uuid.UUID, since time.Time) (map[string]Accuracy, error) {
	rows, err := r.ListByStudent(dbc, studentID, "", since, 0)
	if err != nil {
		return nil, err
	}
	out := map[string]Accuracy{}
	for _, row := range rows {
		a := out[row.Subject]
		a.Total++
		if row.IsCorrect {
			a.Correct++
		}
		out[row.Subject] = a
	}
	return out, nil
}
