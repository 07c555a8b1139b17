package repos

import (
	"gorm.io/gorm"

	"github.com/i-am-the-robot/Edulife/internal/data/repos/agent"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/chat"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/learning"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/notify"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/school"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

type SchoolRepo = school.SchoolRepo
type TeacherRepo = school.TeacherRepo
type StudentRepo = school.StudentRepo
type StudentFilter = school.StudentFilter

type ConversationTurnRepo = chat.ConversationTurnRepo

type AgentMemoryRepo = agent.AgentMemoryRepo
type AgentActionRepo = agent.AgentActionRepo

type TestResultRepo = learning.TestResultRepo
type TimetableRepo = learning.TimetableRepo
type Accuracy = learning.Accuracy

type NotificationRepo = notify.NotificationRepo

func NewSchoolRepo(db *gorm.DB, log *logger.Logger) SchoolRepo { return school.NewSchoolRepo(db, log) }
func NewTeacherRepo(db *gorm.DB, log *logger.Logger) TeacherRepo {
	return school.NewTeacherRepo(db, log)
}
func NewStudentRepo(db *gorm.DB, log *logger.Logger) StudentRepo {
	return school.NewStudentRepo(db, log)
}
func NewConversationTurnRepo(db *gorm.DB, log *logger.Logger) ConversationTurnRepo {
	return chat.NewConversationTurnRepo(db, log)
}
func NewAgentMemoryRepo(db *gorm.DB, log *logger.Logger) AgentMemoryRepo {
	return agent.NewAgentMemoryRepo(db, log)
}
func NewAgentActionRepo(db *gorm.DB, log *logger.Logger) AgentActionRepo {
	return agent.NewAgentActionRepo(db, log)
}
func NewTestResultRepo(db *gorm.DB, log *logger.Logger) TestResultRepo {
	return learning.NewTestResultRepo(db, log)
}
func NewTimetableRepo(db *gorm.DB, log *logger.Logger) TimetableRepo {
	return learning.NewTimetableRepo(db, log)
}
func NewNotificationRepo(db *gorm.DB, log *logger.Logger) NotificationRepo {
	return notify.NewNotificationRepo(db, log)
}
