package app

import (
	"time"

	"github.com/i-am-the-robot/Edulife/internal/db"
	"github.com/i-am-the-robot/Edulife/internal/platform/envutil"
	"github.com/i-am-the-robot/Edulife/internal/platform/llm"
	"github.com/i-am-the-robot/Edulife/internal/platform/sendgrid"
	"github.com/i-am-the-robot/Edulife/internal/realtime/bus"
)

type Config struct {
	Port            string
	LogMode         string
	Version         string
	CORSOrigins     []string
	MetricsEnabled  bool
	ShutdownTimeout time.Duration

	DB       db.Config
	LLM      llm.Config
	SendGrid sendgrid.Config

	RedisAddr    string
	RedisChannel string

	// BranchTimeout bounds each responder branch during coordination.
	BranchTimeout time.Duration
	// CurriculumPath optionally replaces the built-in curriculum table.
	CurriculumPath string
}

func LoadConfig() Config {
	return Config{
		Port:            envutil.String("PORT", "8080"),
		LogMode:         envutil.String("LOG_MODE", "development"),
		Version:         envutil.String("APP_VERSION", "dev"),
		CORSOrigins:     envutil.List("CORS_ORIGINS", nil),
		MetricsEnabled:  envutil.Bool("METRICS_ENABLED", true),
		ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		DB:              db.ConfigFromEnv(),
		LLM:             llm.ConfigFromEnv(),
		SendGrid:        sendgrid.ConfigFromEnv(),
		RedisAddr:       envutil.String("REDIS_ADDR", ""),
		RedisChannel:    envutil.String("REDIS_CHANNEL", bus.DefaultChannel),
		BranchTimeout:   envutil.Seconds("COORDINATOR_BRANCH_TIMEOUT_SECONDS", 0),
		CurriculumPath:  envutil.String("CURRICULUM_PATH", ""),
	}
}
