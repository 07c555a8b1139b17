package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/school"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

var validTeacherRoles = map[string]struct{}{
	school.TeacherRoleAdmin:       {},
	school.TeacherRoleHeadTeacher: {},
	school.TeacherRoleTeacher:     {},
}

type TeacherInput struct {
	SchoolID          uuid.UUID
	FullName          string
	Email             string
	Phone             string
	Role              string
	Subjects          []string
	YearsOfExperience int
}

type TeacherUpdate struct {
	FullName          *string
	Phone             *string
	Role              *string
	Subjects          []string
	YearsOfExperience *int
	IsActive          *bool
}

type TeacherService interface {
	Create(ctx context.Context, in TeacherInput) (*types.Teacher, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Teacher, error)
	ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]*types.Teacher, error)
	Update(ctx context.Context, id uuid.UUID, in TeacherUpdate) (*types.Teacher, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type teacherService struct {
	log      *logger.Logger
	schools  repos.SchoolRepo
	teachers repos.TeacherRepo
}

func NewTeacherService(log *logger.Logger, schools repos.SchoolRepo, teachers repos.TeacherRepo) TeacherService {
	return &teacherService{
		log:      log.With("service", "TeacherService"),
		schools:  schools,
		teachers: teachers,
	}
}

func normalizeRole(role string) (string, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return school.TeacherRoleTeacher, nil
	}
	if _, ok := validTeacherRoles[role]; !ok {
		return "", invalid("invalid_role", "role must be Admin, HeadTeacher or Teacher")
	}
	return role, nil
}

func (s *teacherService) Create(ctx context.Context, in TeacherInput) (*types.Teacher, error) {
	dbc := dbctx.New(ctx)
	name := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" {
		return nil, invalid("name_and_email_required", "full name and email are required")
	}
	role, err := normalizeRole(in.Role)
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
	existing, err := s.teachers.GetByEmail(dbc, email)
	if err != nil {
		return nil, fmt.Errorf("lookup teacher email: %w", err)
	}
	if existing != nil {
		return nil, conflict("email_taken", "a teacher with this email already exists")
	}
	row := &types.Teacher{
		SchoolID:          sc.ID,
		FullName:          name,
		Email:             email,
		Phone:             strings.TrimSpace(in.Phone),
		Role:              role,
		Subjects:          datatypes.JSONSlice[string](in.Subjects),
		YearsOfExperience: in.YearsOfExperience,
		IsActive:          true,
	}
	if err := s.teachers.Create(dbc, row); err != nil {
		return nil, fmt.Errorf("create teacher: %w", err)
	}
	s.log.Info("Teacher created", "teacher_id", row.ID, "school_id", sc.ID)
	return row, nil
}

func (s *teacherService) Get(ctx context.Context, id uuid.UUID) (*types.Teacher, error) {
	row, err := s.teachers.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	if row == nil {
		return nil, notFound("teacher")
	}
	return row, nil
}

func (s *teacherService) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]*types.Teacher, error) {
	rows, err := s.teachers.ListBySchool(dbctx.New(ctx), schoolID)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return rows, nil
}

func (s *teacherService) Update(ctx context.Context, id uuid.UUID, in TeacherUpdate) (*types.Teacher, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, invalid("name_required", "full name is required")
		}
		updates["full_name"] = name
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Role != nil {
		role, err := normalizeRole(*in.Role)
		if err != nil {
			return nil, err
		}
		updates["role"] = role
	}
	if in.Subjects != nil {
		updates["subjects"] = datatypes.JSONSlice[string](in.Subjects)
	}
	if in.YearsOfExperience != nil {
		updates["years_of_experience"] = *in.YearsOfExperience
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if len(updates) > 0 {
		if err := s.teachers.UpdateFields(dbctx.New(ctx), id, updates); err != nil {
			return nil, fmt.Errorf("update teacher: %w", err)
		}
	}
	return s.Get(ctx, id)
}

func (s *teacherService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.teachers.UpdateFields(dbctx.New(ctx), id, map[string]interface{}{"is_active": false}); err != nil {
		return fmt.Errorf("deactivate teacher: %w", err)
	}
	return nil
}
