package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	student := uuid.New()
	channel := StudentChannel(student)

	clientA := hub.NewSSEClient(student)
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventNotification, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventNotificationRead, Data: map[string]any{"seq": 2}})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventNotification {
		t.Fatalf("first event: want=%s got=%s", SSEEventNotification, got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventNotificationRead {
		t.Fatalf("second event: want=%s got=%s", SSEEventNotificationRead, got.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("clientA outbound should be closed after disconnect")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers after close: want=0 got=%d", n)
	}

	clientB := hub.NewSSEClient(student)
	hub.AddChannel(clientB, channel)
	if err := hub.Publish(context.Background(), SSEMessage{Channel: channel, Event: SSEEventNotificationGone}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventNotificationGone {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventNotificationGone, got.Event)
	}
	hub.CloseClient(clientB)
}

func TestSSEHubIsolatesStudents(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	a, b := uuid.New(), uuid.New()
	clientA := hub.NewSSEClient(a)
	clientB := hub.NewSSEClient(b)
	hub.AddChannel(clientA, StudentChannel(a))
	hub.AddChannel(clientB, StudentChannel(b))
	defer hub.CloseClient(clientA)
	defer hub.CloseClient(clientB)

	hub.Broadcast(SSEMessage{Channel: StudentChannel(a), Event: SSEEventNotification})

	recvMessage(t, clientA.Outbound, time.Second)
	select {
	case msg := <-clientB.Outbound:
		t.Fatalf("student b received %s meant for a", msg.Event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHubDropsWhenBufferFull(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	student := uuid.New()
	client := hub.NewSSEClient(student)
	hub.AddChannel(client, StudentChannel(student))
	defer hub.CloseClient(client)

	for i := 0; i < outboundBuffer+5; i++ {
		hub.Broadcast(SSEMessage{Channel: StudentChannel(student), Event: SSEEventNotification, Data: i})
	}
	if n := len(client.Outbound); n != outboundBuffer {
		t.Fatalf("buffered: want=%d got=%d", outboundBuffer, n)
	}
}

func TestServeHTTPWritesEvents(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	student := uuid.New()
	client := hub.NewSSEClient(student)
	hub.AddChannel(client, StudentChannel(student))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		hub.ServeHTTP(rec, req, client)
		close(done)
	}()

	hub.Broadcast(SSEMessage{Channel: StudentChannel(student), Event: SSEEventNotification, Data: map[string]any{"title": "We miss you!"}})
	deadline := time.Now().Add(time.Second)
	for len(client.Outbound) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done
	hub.CloseClient(client)

	body := rec.Body.String()
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("content type: %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(body, "event: NotificationCreated\n") || !strings.Contains(body, `"title":"We miss you!"`) {
		t.Fatalf("unexpected body: %q", body)
	}
}
