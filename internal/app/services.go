package app

import (
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/i-am-the-robot/Edulife/internal/modules/agents/actions"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/assessment"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/memory"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/motivation"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/parentconnect"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/prompts"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/rules"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/scheduling"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/tutoring"
	"github.com/i-am-the-robot/Edulife/internal/modules/coordinator"
	"github.com/i-am-the-robot/Edulife/internal/observability"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
	"github.com/i-am-the-robot/Edulife/internal/realtime"
	"github.com/i-am-the-robot/Edulife/internal/services"
)

type Agents struct {
	Memory      memory.Service
	Actions     actions.Service
	Tutor       *tutoring.Tutor
	Assessor    *assessment.Assessor
	Scheduler   *scheduling.Scheduler
	Motivator   *motivation.Motivator
	Connector   *parentconnect.Connector
	Coordinator *coordinator.Coordinator
}

type Services struct {
	School       services.SchoolService
	Teacher      services.TeacherService
	Student      services.StudentService
	Notification services.NotificationService
	Conversation services.ConversationService
	TestResult   services.TestResultService
	Timetable    services.TimetableService
	Agent        services.AgentService
}

func loadCurriculum(path string) (*scheduling.Curriculum, error) {
	if path == "" {
		return scheduling.DefaultCurriculum(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}
	return scheduling.ParseCurriculum(raw)
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	r Repos,
	clients Clients,
	publisher realtime.Publisher,
	metrics *observability.Metrics,
) (Services, Agents, error) {
	log.Info("Wiring services...")

	reg, err := prompts.Default()
	if err != nil {
		return Services{}, Agents{}, fmt.Errorf("load prompts: %w", err)
	}
	engine, err := rules.Default()
	if err != nil {
		return Services{}, Agents{}, fmt.Errorf("compile rules: %w", err)
	}
	curriculum, err := loadCurriculum(cfg.CurriculumPath)
	if err != nil {
		return Services{}, Agents{}, err
	}

	notifications := services.NewNotificationService(log, r.Notification, r.Student, publisher, metrics)

	var a Agents
	a.Memory = memory.NewService(log, r.AgentMemory)
	a.Actions = actions.NewService(log, r.AgentAction)
	a.Scheduler = scheduling.New(log, db, clients.LLM, reg, engine, curriculum, a.Memory, a.Actions, r.TestResult, r.Timetable)
	a.Tutor = tutoring.New(log, clients.LLM, reg, a.Memory, r.School, a.Scheduler)
	a.Assessor = assessment.New(log, clients.LLM, reg, engine, a.Memory, a.Actions, r.TestResult, r.Turn)
	a.Motivator = motivation.New(log, clients.LLM, reg, engine, a.Memory, a.Actions, r.Turn, clients.Gate)
	a.Connector = parentconnect.New(log, reg, a.Memory, a.Actions, r.AgentAction, r.Turn, r.TestResult, clients.Mailer, notifications)
	a.Coordinator = coordinator.New(log, coordinator.Deps{
		Tutor:     a.Tutor,
		Assessor:  a.Assessor,
		Scheduler: a.Scheduler,
		Motivator: a.Motivator,
		Connector: a.Connector,
		Memory:    a.Memory,
		Actions:   a.Actions,
		Students:  r.Student,
		Turns:     r.Turn,
		Results:   r.TestResult,
		Inbox:     notifications,
		Metrics:   metrics,
	}, cfg.BranchTimeout)

	return Services{
		School:       services.NewSchoolService(log, r.School),
		Teacher:      services.NewTeacherService(log, r.School, r.Teacher),
		Student:      services.NewStudentService(log, r.School, r.Teacher, r.Student, a.Connector),
		Notification: notifications,
		Conversation: services.NewConversationService(log, a.Coordinator, a.Tutor, a.Memory, r.Student, r.Turn),
		TestResult:   services.NewTestResultService(log, r.Student, r.TestResult, a.Assessor, a.Connector),
		Timetable:    services.NewTimetableService(log, r.Student, r.Timetable, a.Scheduler),
		Agent:        services.NewAgentService(log, r.Student, r.AgentAction, a.Memory, a.Actions, a.Coordinator),
	}, a, nil
}
