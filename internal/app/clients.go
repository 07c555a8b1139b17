package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/i-am-the-robot/Edulife/internal/modules/agents/motivation"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/parentconnect"
	"github.com/i-am-the-robot/Edulife/internal/platform/llm"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
	"github.com/i-am-the-robot/Edulife/internal/platform/redisx"
	"github.com/i-am-the-robot/Edulife/internal/platform/sendgrid"
	"github.com/i-am-the-robot/Edulife/internal/realtime/bus"
)

type Clients struct {
	LLM    llm.Client
	Mailer parentconnect.Mailer
	Gate   motivation.Gate
	// Redis and Bus are nil when REDIS_ADDR is unset.
	Redis *goredis.Client
	Bus   bus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Model
	out.LLM = llm.New(log, cfg.LLM)

	// Parent email
	if strings.TrimSpace(cfg.SendGrid.APIKey) != "" {
		sg, err := sendgrid.New(log, cfg.SendGrid)
		if err != nil {
			return Clients{}, fmt.Errorf("init sendgrid client: %w", err)
		}
		out.Mailer = parentconnect.NewSendGridMailer(sg)
	} else {
		log.Warn("SENDGRID_API_KEY not set; parent emails are logged only")
		out.Mailer = parentconnect.NewLogMailer(log)
	}

	// Redis
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		out.Gate = motivation.NewMemoryGate()
		return out, nil
	}
	rdb, err := redisx.Open(ctx, cfg.RedisAddr)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	b, err := bus.NewRedisBus(log, rdb, cfg.RedisChannel)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init notification bus: %w", err)
	}
	out.Redis = rdb
	out.Bus = b
	out.Gate = motivation.NewRedisGate(rdb)
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
