package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/i-am-the-robot/Edulife/internal/db"
	apphttp "github.com/i-am-the-robot/Edulife/internal/http"
	"github.com/i-am-the-robot/Edulife/internal/observability"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
	"github.com/i-am-the-robot/Edulife/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Agents   Agents
	Clients  Clients
	Metrics  *observability.Metrics
	SSEHub   *realtime.SSEHub
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := build(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.LogMode,
		Version:     cfg.Version,
	})
	if cfg.MetricsEnabled {
		a.Metrics = observability.New()
	}

	theDB, err := db.Open(log, cfg.DB)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = theDB

	a.Clients, err = wireClients(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.SSEHub = realtime.NewSSEHub(log)
	var publisher realtime.Publisher = a.SSEHub
	if a.Clients.Bus != nil {
		publisher = a.Clients.Bus
	}

	a.Repos = wireRepos(theDB, log)
	a.Services, a.Agents, err = wireServices(theDB, log, cfg, a.Repos, a.Clients, publisher, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Server = wireServer(log, cfg, wireHandlers(log, theDB, a.Services, a.SSEHub), a.Metrics)
	return a, nil
}

// Serve forwards bus messages into the hub and serves HTTP until ctx ends.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Clients.Bus != nil {
		if err := a.Clients.Bus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start notification forwarder: %w", err)
		}
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	return a.Server.Run(ctx, addr, a.Cfg.ShutdownTimeout)
}

// RunDailyCheckIns runs one daily check-in sweep over every active student.
func (a *App) RunDailyCheckIns(ctx context.Context) error {
	sweep, err := a.Services.Agent.RunDailyCheckIns(ctx)
	if err != nil {
		return err
	}
	a.Log.Info("Daily check-in sweep finished",
		"students", sweep.StudentsChecked,
		"check_ins", sweep.CheckInsSent,
		"failures", sweep.Failures,
	)
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.Conversation != nil {
		a.Services.Conversation.Close()
	}
	a.Clients.Close()
	if a.DB != nil {
		if err := db.Close(a.DB); err != nil {
			a.Log.Warn("Failed to close database", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
