package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
	"github.com/i-am-the-robot/Edulife/internal/platform/redisx"
	"github.com/i-am-the-robot/Edulife/internal/realtime"
)

func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := redisx.Open(ctx, addr)
	require.NoError(t, err)
	defer rdb.Close()

	b, err := NewRedisBus(logger.Nop(), rdb, "edulife:test:"+uuid.NewString())
	require.NoError(t, err)

	got := make(chan realtime.SSEMessage, 1)
	require.NoError(t, b.StartForwarder(ctx, func(m realtime.SSEMessage) { got <- m }))

	student := uuid.New()
	require.NoError(t, b.Publish(ctx, realtime.SSEMessage{
		Channel: realtime.StudentChannel(student),
		Event:   realtime.SSEEventNotification,
		Data:    map[string]any{"title": "Badge earned"},
	}))

	select {
	case m := <-got:
		require.Equal(t, realtime.StudentChannel(student), m.Channel)
		require.Equal(t, realtime.SSEEventNotification, m.Event)
	case <-ctx.Done():
		t.Fatal("message never arrived")
	}
}

func TestNewRedisBusRequiresClient(t *testing.T) {
	_, err := NewRedisBus(logger.Nop(), nil, "")
	require.Error(t, err)
}
