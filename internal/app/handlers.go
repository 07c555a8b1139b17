package app

import (
	"gorm.io/gorm"

	apphttp "github.com/i-am-the-robot/Edulife/internal/http"
	httpH "github.com/i-am-the-robot/Edulife/internal/http/handlers"
	"github.com/i-am-the-robot/Edulife/internal/observability"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
	"github.com/i-am-the-robot/Edulife/internal/realtime"
)

const serviceName = "edulife"

type Handlers struct {
	Health       *httpH.HealthHandler
	Chat         *httpH.ChatHandler
	School       *httpH.SchoolHandler
	Teacher      *httpH.TeacherHandler
	Student      *httpH.StudentHandler
	Notification *httpH.NotificationHandler
	Realtime     *httpH.RealtimeHandler
	Learning     *httpH.LearningHandler
	Agent        *httpH.AgentHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, s Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:       httpH.NewHealthHandler(db),
		Chat:         httpH.NewChatHandler(log, s.Conversation),
		School:       httpH.NewSchoolHandler(s.School, s.Teacher, s.Student),
		Teacher:      httpH.NewTeacherHandler(s.Teacher, s.Student),
		Student:      httpH.NewStudentHandler(s.Student),
		Notification: httpH.NewNotificationHandler(s.Notification),
		Realtime:     httpH.NewRealtimeHandler(log, hub, s.Student),
		Learning:     httpH.NewLearningHandler(s.TestResult, s.Timetable),
		Agent:        httpH.NewAgentHandler(log, s.Agent),
	}
}

func wireServer(log *logger.Logger, cfg Config, h Handlers, metrics *observability.Metrics) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:                 log,
		Metrics:             metrics,
		ServiceName:         serviceName,
		CORSOrigins:         cfg.CORSOrigins,
		HealthHandler:       h.Health,
		ChatHandler:         h.Chat,
		SchoolHandler:       h.School,
		TeacherHandler:      h.Teacher,
		StudentHandler:      h.Student,
		NotificationHandler: h.Notification,
		RealtimeHandler:     h.Realtime,
		LearningHandler:     h.Learning,
		AgentHandler:        h.Agent,
	})
}
