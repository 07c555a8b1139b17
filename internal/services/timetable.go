package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/scheduling"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

var weekdays = map[string]string{
	"monday": "Monday", "tuesday": "Tuesday", "wednesday": "Wednesday", "thursday": "Thursday",
	"friday": "Friday", "saturday": "Saturday", "sunday": "Sunday",
}

// ScheduleBuilder lays out and stores a weekly plan.
type ScheduleBuilder interface {
	CreateFullSchedule(ctx context.Context, st *types.Student) (scheduling.ScheduleResult, error)
}

type TimetableService interface {
	// Get returns the student's timetable, optionally for one weekday.
	Get(ctx context.Context, studentID uuid.UUID, day string) ([]*types.TimetableEntry, error)
	Generate(ctx context.Context, studentID uuid.UUID) (*scheduling.ScheduleResult, error)
}

type timetableService struct {
	log       *logger.Logger
	students  repos.StudentRepo
	timetable repos.TimetableRepo
	builder   ScheduleBuilder
}

func NewTimetableService(log *logger.Logger, students repos.StudentRepo, timetable repos.TimetableRepo, builder ScheduleBuilder) TimetableService {
	return &timetableService{
		log:       log.With("service", "TimetableService"),
		students:  students,
		timetable: timetable,
		builder:   builder,
	}
}

func (s *timetableService) Get(ctx context.Context, studentID uuid.UUID, day string) ([]*types.TimetableEntry, error) {
	dbc := dbctx.New(ctx)
	day = strings.ToLower(strings.TrimSpace(day))
	if day == "" {
		rows, err := s.timetable.ListByStudent(dbc, studentID)
		if err != nil {
			return nil, fmt.Errorf("list timetable: %w", err)
		}
		return rows, nil
	}
	name, ok := weekdays[day]
	if !ok {
		return nil, invalid("invalid_day", "day must be a weekday name")
	}
	rows, err := s.timetable.ListByDay(dbc, studentID, name)
	if err != nil {
		return nil, fmt.Errorf("list timetable for %s: %w", name, err)
	}
	return rows, nil
}

func (s *timetableService) Generate(ctx context.Context, studentID uuid.UUID) (*scheduling.ScheduleResult, error) {
	st, err := s.students.GetByID(dbctx.New(ctx), studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if st == nil {
		return nil, notFound("student")
	}
	res, err := s.builder.CreateFullSchedule(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	s.log.Info("Timetable generated", "student_id", st.ID, "source", res.Source, "entries", res.EntriesSaved)
	return &res, nil
}
