package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/i-am-the-robot/Edulife/internal/http/handlers"
	httpMW "github.com/i-am-the-robot/Edulife/internal/http/middleware"
	"github.com/i-am-the-robot/Edulife/internal/observability"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	ChatHandler         *httpH.ChatHandler
	SchoolHandler       *httpH.SchoolHandler
	TeacherHandler      *httpH.TeacherHandler
	StudentHandler      *httpH.StudentHandler
	NotificationHandler *httpH.NotificationHandler
	RealtimeHandler     *httpH.RealtimeHandler
	LearningHandler     *httpH.LearningHandler
	AgentHandler        *httpH.AgentHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachRequestContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")

	// Chat
	if cfg.ChatHandler != nil {
		api.POST("/chat/messages", cfg.ChatHandler.SendMessage)
		api.POST("/chat/messages/stream", cfg.ChatHandler.StreamMessage)
	}

	// Schools
	if cfg.SchoolHandler != nil {
		api.POST("/schools", cfg.SchoolHandler.Create)
		api.GET("/schools", cfg.SchoolHandler.List)
		api.GET("/schools/:id", cfg.SchoolHandler.Get)
		api.PATCH("/schools/:id", cfg.SchoolHandler.Update)
		api.DELETE("/schools/:id", cfg.SchoolHandler.Delete)
		api.GET("/schools/:id/teachers", cfg.SchoolHandler.Teachers)
		api.GET("/schools/:id/students", cfg.SchoolHandler.Students)
	}

	// Teachers
	if cfg.TeacherHandler != nil {
		api.POST("/teachers", cfg.TeacherHandler.Create)
		api.GET("/teachers/:id", cfg.TeacherHandler.Get)
		api.PATCH("/teachers/:id", cfg.TeacherHandler.Update)
		api.DELETE("/teachers/:id", cfg.TeacherHandler.Delete)
		api.GET("/teachers/:id/students", cfg.TeacherHandler.Students)
	}

	// Students
	if cfg.StudentHandler != nil {
		api.POST("/students", cfg.StudentHandler.Create)
		api.GET("/students/:id", cfg.StudentHandler.Get)
		api.PATCH("/students/:id", cfg.StudentHandler.Update)
		api.DELETE("/students/:id", cfg.StudentHandler.Delete)
		api.GET("/students/:id/profile", cfg.StudentHandler.Profile)
		api.POST("/students/:id/verify-pin", cfg.StudentHandler.VerifyPIN)
	}

	student := api.Group("/students/:id")
	{
		if cfg.ChatHandler != nil {
			student.GET("/chat/history", cfg.ChatHandler.History)
			student.GET("/chat/sessions", cfg.ChatHandler.Sessions)
			student.PUT("/chat/turns/:turn_id/favorite", cfg.ChatHandler.SetFavorite)
		}

		// Notifications
		if cfg.NotificationHandler != nil {
			student.GET("/notifications", cfg.NotificationHandler.List)
			student.POST("/notifications", cfg.NotificationHandler.Create)
			student.POST("/notifications/read-all", cfg.NotificationHandler.MarkAllRead)
			student.POST("/notifications/:notification_id/read", cfg.NotificationHandler.MarkRead)
			student.DELETE("/notifications/:notification_id", cfg.NotificationHandler.Delete)
		}
		if cfg.RealtimeHandler != nil {
			student.GET("/notifications/stream", cfg.RealtimeHandler.Stream)
		}

		// Tests and timetable
		if cfg.LearningHandler != nil {
			student.POST("/test-results", cfg.LearningHandler.SubmitResults)
			student.GET("/test-results", cfg.LearningHandler.ListResults)
			student.GET("/timetable", cfg.LearningHandler.Timetable)
			student.POST("/timetable/generate", cfg.LearningHandler.GenerateTimetable)
		}

		// Agents
		if cfg.AgentHandler != nil {
			student.GET("/agent/memory", cfg.AgentHandler.Memory)
			student.GET("/agent/memory/summary", cfg.AgentHandler.MemorySummary)
			student.GET("/agent/actions", cfg.AgentHandler.Actions)
			student.PATCH("/agent/actions/:action_id", cfg.AgentHandler.UpdateOutcome)
			student.GET("/agent/stats", cfg.AgentHandler.Stats)
			student.POST("/agent/check-in", cfg.AgentHandler.CheckIn)
			student.POST("/agent/exam-prep", cfg.AgentHandler.ExamPrep)
			student.POST("/agent/low-engagement", cfg.AgentHandler.LowEngagement)
		}
	}

	if cfg.AgentHandler != nil {
		api.POST("/agent/daily-checkins", cfg.AgentHandler.RunDailyCheckIns)
	}

	return r
}
