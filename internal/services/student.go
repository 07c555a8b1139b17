package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/school"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/parentconnect"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

const DefaultPIN = "0000"

var validSupportTypes = map[string]struct{}{
	school.SupportNone:         {},
	school.SupportDyslexia:     {},
	school.SupportDownSyndrome: {},
	school.SupportAutism:       {},
}

var validPersonalities = map[string]struct{}{
	school.PersonalityIntrovert: {},
	school.PersonalityExtrovert: {},
}

type StudentInput struct {
	SchoolID         uuid.UUID
	TeacherID        *uuid.UUID
	FullName         string
	Age              int
	StudentClass     string
	Hobby            string
	Personality      string
	SupportType      string
	PIN              string
	ParentName       string
	ParentEmail      string
	FavoriteSubjects []string
}

type StudentUpdate struct {
	TeacherID        *uuid.UUID
	FullName         *string
	Age              *int
	StudentClass     *string
	Hobby            *string
	Personality      *string
	SupportType      *string
	PIN              *string
	ParentName       *string
	ParentEmail      *string
	FavoriteSubjects []string
	IsActive         *bool
}

// StudentProfile is what the student sees about themselves. It leaves out
// the support type.
type StudentProfile struct {
	ID               uuid.UUID              `json:"id"`
	FullName         string                 `json:"full_name"`
	Age              int                    `json:"age"`
	StudentClass     string                 `json:"student_class"`
	Hobby            string                 `json:"hobby"`
	Personality      string                 `json:"personality"`
	FavoriteSubjects []string               `json:"favorite_subjects"`
	CurrentStreak    int                    `json:"current_streak"`
	LongestStreak    int                    `json:"longest_streak"`
	LastActive       *time.Time             `json:"last_active,omitempty"`
	Progress         parentconnect.Progress `json:"progress"`
	AccuracyPercent  float64                `json:"accuracy_percent"`
	Badges           []parentconnect.Badge  `json:"badges"`
}

// ProgressReader counts a student's all-time activity.
type ProgressReader interface {
	Progress(ctx context.Context, studentID uuid.UUID) (parentconnect.Progress, error)
}

type StudentService interface {
	Create(ctx context.Context, in StudentInput) (*types.Student, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Student, error)
	List(ctx context.Context, f repos.StudentFilter) ([]*types.Student, error)
	Update(ctx context.Context, id uuid.UUID, in StudentUpdate) (*types.Student, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Profile(ctx context.Context, id uuid.UUID) (*StudentProfile, error)
	VerifyPIN(ctx context.Context, id uuid.UUID, pin string) error
}

type studentService struct {
	log      *logger.Logger
	schools  repos.SchoolRepo
	teachers repos.TeacherRepo
	students repos.StudentRepo
	progress ProgressReader
}

func NewStudentService(
	log *logger.Logger,
	schools repos.SchoolRepo,
	teachers repos.TeacherRepo,
	students repos.StudentRepo,
	progress ProgressReader,
) StudentService {
	return &studentService{
		log:      log.With("service", "StudentService"),
		schools:  schools,
		teachers: teachers,
		students: students,
		progress: progress,
	}
}

func normalizeSupport(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return school.SupportNone, nil
	}
	if _, ok := validSupportTypes[v]; !ok {
		return "", invalid("invalid_support_type", "support type must be None, Dyslexia, DownSyndrome or Autism")
	}
	return v, nil
}

func normalizePersonality(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	if _, ok := validPersonalities[v]; !ok {
		return "", invalid("invalid_personality", "personality must be Introvert or Extrovert")
	}
	return v, nil
}

func (s *studentService) checkTeacher(dbc dbctx.Context, schoolID uuid.UUID, teacherID *uuid.UUID) error {
	if teacherID == nil || *teacherID == uuid.Nil {
		return nil
	}
	t, err := s.teachers.GetByID(dbc, *teacherID)
	if err != nil {
		return fmt.Errorf("get teacher: %w", err)
	}
	if t == nil {
		return notFound("teacher")
	}
	if t.SchoolID != schoolID {
		return invalid("teacher_school_mismatch", "teacher belongs to another school")
	}
	return nil
}

func (s *studentService) Create(ctx context.Context, in StudentInput) (*types.Student, error) {
	dbc := dbctx.New(ctx)
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, invalid("name_required", "full name is required")
	}
	if in.Age <= 0 {
		return nil, invalid("invalid_age", "age must be positive")
	}
	support, err := normalizeSupport(in.SupportType)
	if err != nil {
		return nil, err
	}
	personality, err := normalizePersonality(in.Personality)
	if err != nil {
		return nil, err
	}
	sc, err := s.schools.GetByID(dbc, in.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("get school: %w", err)
	}
	if sc == nil {
		return nil, notFound("school")
	}
	if !sc.IsActive {
		return nil, forbidden("school_inactive", "school is not active")
	}
	if err := s.checkTeacher(dbc, sc.ID, in.TeacherID); err != nil {
		return nil, err
	}
	pin := strings.TrimSpace(in.PIN)
	if pin == "" {
		pin = DefaultPIN
	}
	pinHash, err := hashPIN(pin)
	if err != nil {
		return nil, err
	}
	row := &types.Student{
		SchoolID:         sc.ID,
		TeacherID:        in.TeacherID,
		FullName:         name,
		Age:              in.Age,
		StudentClass:     strings.TrimSpace(in.StudentClass),
		Hobby:            strings.TrimSpace(in.Hobby),
		Personality:      personality,
		SupportType:      support,
		PIN:              pinHash,
		ParentName:       strings.TrimSpace(in.ParentName),
		ParentEmail:      strings.ToLower(strings.TrimSpace(in.ParentEmail)),
		FavoriteSubjects: datatypes.JSONSlice[string](in.FavoriteSubjects),
		IsActive:         true,
	}
	if err := s.students.Create(dbc, row); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	s.log.Info("Student created", "student_id", row.ID, "school_id", sc.ID)
	return row, nil
}

func (s *studentService) Get(ctx context.Context, id uuid.UUID) (*types.Student, error) {
	row, err := s.students.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if row == nil {
		return nil, notFound("student")
	}
	return row, nil
}

// VerifyPIN checks pin against the stored hash. Inactive students never match.
func (s *studentService) VerifyPIN(ctx context.Context, id uuid.UUID, pin string) error {
	row, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !row.IsActive {
		return forbidden("student_inactive", "student is not active")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PIN), []byte(strings.TrimSpace(pin))); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return unauthorized("invalid_pin", "pin does not match")
		}
		return fmt.Errorf("compare pin: %w", err)
	}
	return nil
}

func hashPIN(pin string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(h), nil
}

func (s *studentService) List(ctx context.Context, f repos.StudentFilter) ([]*types.Student, error) {
	rows, err := s.students.List(dbctx.New(ctx), f)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return rows, nil
}

func (s *studentService) Update(ctx context.Context, id uuid.UUID, in StudentUpdate) (*types.Student, error) {
	dbc := dbctx.New(ctx)
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.TeacherID != nil {
		if err := s.checkTeacher(dbc, current.SchoolID, in.TeacherID); err != nil {
			return nil, err
		}
		if *in.TeacherID == uuid.Nil {
			updates["teacher_id"] = nil
		} else {
			updates["teacher_id"] = *in.TeacherID
		}
	}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, invalid("name_required", "full name is required")
		}
		updates["full_name"] = name
	}
	if in.Age != nil {
		if *in.Age <= 0 {
			return nil, invalid("invalid_age", "age must be positive")
		}
		updates["age"] = *in.Age
	}
	if in.StudentClass != nil {
		updates["student_class"] = strings.TrimSpace(*in.StudentClass)
	}
	if in.Hobby != nil {
		updates["hobby"] = strings.TrimSpace(*in.Hobby)
	}
	if in.Personality != nil {
		p, err := normalizePersonality(*in.Personality)
		if err != nil {
			return nil, err
		}
		updates["personality"] = p
	}
	if in.SupportType != nil {
		v, err := normalizeSupport(*in.SupportType)
		if err != nil {
			return nil, err
		}
		updates["support_type"] = v
	}
	if in.PIN != nil {
		if strings.TrimSpace(*in.PIN) == "" {
			return nil, invalid("pin_required", "pin cannot be empty")
		}
		pinHash, err := hashPIN(strings.TrimSpace(*in.PIN))
		if err != nil {
			return nil, err
		}
		updates["pin"] = pinHash
	}
	if in.ParentName != nil {
		updates["parent_name"] = strings.TrimSpace(*in.ParentName)
	}
	if in.ParentEmail != nil {
		updates["parent_email"] = strings.ToLower(strings.TrimSpace(*in.ParentEmail))
	}
	if in.FavoriteSubjects != nil {
		updates["favorite_subjects"] = datatypes.JSONSlice[string](in.FavoriteSubjects)
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if len(updates) > 0 {
		if err := s.students.UpdateFields(dbc, id, updates); err != nil {
			return nil, fmt.Errorf("update student: %w", err)
		}
	}
	return s.Get(ctx, id)
}

func (s *studentService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.students.UpdateFields(dbctx.New(ctx), id, map[string]interface{}{"is_active": false}); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	s.log.Info("Student deactivated", "student_id", id)
	return nil
}

func (s *studentService) Profile(ctx context.Context, id uuid.UUID) (*StudentProfile, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.progress.Progress(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("student progress: %w", err)
	}
	badges := parentconnect.EarnedBadges(p)
	if badges == nil {
		badges = []parentconnect.Badge{}
	}
	favorites := []string(st.FavoriteSubjects)
	if favorites == nil {
		favorites = []string{}
	}
	return &StudentProfile{
		ID:               st.ID,
		FullName:         st.FullName,
		Age:              st.Age,
		StudentClass:     st.StudentClass,
		Hobby:            st.Hobby,
		Personality:      st.Personality,
		FavoriteSubjects: favorites,
		CurrentStreak:    st.CurrentStreak,
		LongestStreak:    st.LongestStreak,
		LastActive:       st.LastActive,
		Progress:         p,
		AccuracyPercent:  math.Round(p.Accuracy()*1000) / 10,
		Badges:           badges,
	}, nil
}
