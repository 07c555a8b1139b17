package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

const appKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type SchoolInput struct {
	Name         string
	Location     string
	ContactEmail string
	ContactPhone string
	GradeLevels  []string
	SyllabusText string
}

// SchoolUpdate changes only the fields that are set.
type SchoolUpdate struct {
	Name         *string
	Location     *string
	ContactEmail *string
	ContactPhone *string
	GradeLevels  []string
	SyllabusText *string
	IsActive     *bool
}

type SchoolService interface {
	Create(ctx context.Context, in SchoolInput) (*types.School, error)
	Get(ctx context.Context, id uuid.UUID) (*types.School, error)
	List(ctx context.Context, activeOnly bool) ([]*types.School, error)
	Update(ctx context.Context, id uuid.UUID, in SchoolUpdate) (*types.School, error)
	// Deactivate hides the school; its rows stay for history.
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type schoolService struct {
	log     *logger.Logger
	schools repos.SchoolRepo
}

func NewSchoolService(log *logger.Logger, schools repos.SchoolRepo) SchoolService {
	return &schoolService{
		log:     log.With("service", "SchoolService"),
		schools: schools,
	}
}

// NewAppKey returns a random key of the form XXXX-XXXX-XXXX.
func NewAppKey() (string, error) {
	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	var b strings.Builder
	for i, c := range raw {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(appKeyAlphabet[int(c)%len(appKeyAlphabet)])
	}
	return b.String(), nil
}

func (s *schoolService) Create(ctx context.Context, in SchoolInput) (*types.School, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name_required", "school name is required")
	}
	key, err := NewAppKey()
	if err != nil {
		return nil, fmt.Errorf("generate app key: %w", err)
	}
	row := &types.School{
		Name:         name,
		AppKey:       key,
		Location:     strings.TrimSpace(in.Location),
		ContactEmail: strings.ToLower(strings.TrimSpace(in.ContactEmail)),
		ContactPhone: strings.TrimSpace(in.ContactPhone),
		GradeLevels:  datatypes.JSONSlice[string](in.GradeLevels),
		SyllabusText: in.SyllabusText,
		IsActive:     true,
	}
	if err := s.schools.Create(dbctx.New(ctx), row); err != nil {
		return nil, fmt.Errorf("create school: %w", err)
	}
	s.log.Info("School created", "school_id", row.ID)
	return row, nil
}

func (s *schoolService) Get(ctx context.Context, id uuid.UUID) (*types.School, error) {
	row, err := s.schools.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("get school: %w", err)
	}
	if row == nil {
		return nil, notFound("school")
	}
	return row, nil
}

func (s *schoolService) List(ctx context.Context, activeOnly bool) ([]*types.School, error) {
	rows, err := s.schools.List(dbctx.New(ctx), activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return rows, nil
}

func (s *schoolService) Update(ctx context.Context, id uuid.UUID, in SchoolUpdate) (*types.School, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name_required", "school name is required")
		}
		updates["name"] = name
	}
	if in.Location != nil {
		updates["location"] = strings.TrimSpace(*in.Location)
	}
	if in.ContactEmail != nil {
		updates["contact_email"] = strings.ToLower(strings.TrimSpace(*in.ContactEmail))
	}
	if in.ContactPhone != nil {
		updates["contact_phone"] = strings.TrimSpace(*in.ContactPhone)
	}
	if in.GradeLevels != nil {
		updates["grade_levels"] = datatypes.JSONSlice[string](in.GradeLevels)
	}
	if in.SyllabusText != nil {
		updates["syllabus_text"] = *in.SyllabusText
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if len(updates) > 0 {
		if err := s.schools.UpdateFields(dbctx.New(ctx), id, updates); err != nil {
			return nil, fmt.Errorf("update school: %w", err)
		}
	}
	return s.Get(ctx, id)
}

func (s *schoolService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.schools.UpdateFields(dbctx.New(ctx), id, map[string]interface{}{"is_active": false}); err != nil {
		return fmt.Errorf("deactivate school: %w", err)
	}
	s.log.Info("School deactivated", "school_id", id)
	return nil
}
