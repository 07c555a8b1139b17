package app

import (
	"gorm.io/gorm"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

type Repos struct {
	School       repos.SchoolRepo
	Teacher      repos.TeacherRepo
	Student      repos.StudentRepo
	Turn         repos.ConversationTurnRepo
	AgentMemory  repos.AgentMemoryRepo
	AgentAction  repos.AgentActionRepo
	TestResult   repos.TestResultRepo
	Timetable    repos.TimetableRepo
	Notification repos.NotificationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		School:       repos.NewSchoolRepo(db, log),
		Teacher:      repos.NewTeacherRepo(db, log),
		Student:      repos.NewStudentRepo(db, log),
		Turn:         repos.NewConversationTurnRepo(db, log),
		AgentMemory:  repos.NewAgentMemoryRepo(db, log),
		AgentAction:  repos.NewAgentActionRepo(db, log),
		TestResult:   repos.NewTestResultRepo(db, log),
		Timetable:    repos.NewTimetableRepo(db, log),
		Notification: repos.NewNotificationRepo(db, log),
	}
}
