package coordinator

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/agent"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/tutoring"
)

const (
	ChunkResponse = "response"
	ChunkControl  = "control"
)

// Chunk is one line of a streamed reply.
type Chunk struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Data    *Reply `json:"data,omitempty"`
}

func (c *Coordinator) fastPath(ctx context.Context, st *types.Student, intent tutoring.Intent) (*Reply, bool) {
	text, ok, err := c.tutor.HandleSpecialIntent(ctx, st, intent)
	if err != nil {
		c.log.Warn("special intent failed", "student_id", st.ID, "intent", intent.Type, "error", err)
	}
	if !ok {
		return nil, false
	}
	c.metrics.IncFastPath(string(intent.Type))
	c.audit(ctx, st.ID, agent.ActionFastPathResponse, map[string]any{
		"intent":   intent.Type,
		"response": text,
	}, "Handled special intent: "+string(intent.Type))
	return &Reply{
		ReplyText:          text,
		Intent:             intent.Type,
		ContributingAgents: []string{AgentFastPath},
		ActionsTaken:       []string{"handled_" + string(intent.Type)},
	}, true
}

// prepare validates the request, loads the student and detects the intent.
func (c *Coordinator) prepare(ctx context.Context, req Request) (Request, *types.Student, tutoring.Intent, error) {
	req, err := normalize(req)
	if err != nil {
		return req, nil, tutoring.Intent{}, err
	}
	st, err := c.student(ctx, req.StudentID)
	if err != nil {
		return req, nil, tutoring.Intent{}, err
	}
	return req, st, tutoring.DetectIntent(req.Message), nil
}

func (c *Coordinator) finish(ctx context.Context, st *types.Student, req Request, actionType string, out *contributions, reply *Reply, reasoning string) {
	if out.intervention != "" {
		c.metrics.IncIntervention()
	}
	c.audit(ctx, st.ID, actionType, map[string]any{
		"agents_involved": reply.ContributingAgents,
		"actions_taken":   reply.ActionsTaken,
		"subject":         req.Subject,
		"session_id":      req.SessionID,
	}, reasoning)
}

// HandleMessage answers one student message. Greetings and similar intents
// are answered from canned replies; everything else goes through every
// responder concurrently. Exactly one action log is written per call.
func (c *Coordinator) HandleMessage(ctx context.Context, req Request) (*Reply, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "coordinator.HandleMessage")
	defer span.End()

	req, st, intent, err := c.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("intent", string(intent.Type)))
	if reply, ok := c.fastPath(ctx, st, intent); ok {
		c.metrics.ObserveCoordination("fast_path", time.Since(start))
		return reply, nil
	}

	history, err := c.conversationContext(ctx, st.ID, req.SessionID, req.Message)
	if err != nil {
		return nil, err
	}
	out := c.dispatch(ctx, st, req, intent, history, nil)
	reply := merge(intent, out)
	// the audit row is written even when the caller has gone away
	c.finish(context.WithoutCancel(ctx), st, req, agent.ActionMultiAgentCoordination, out, reply, "Parallel coordination for "+req.Subject)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.metrics.ObserveCoordination("full", time.Since(start))
	return reply, nil
}

// HandleMessageStream is HandleMessage for streaming clients. emit receives a
// response chunk once the explanation and the intervention decision are
// ready, and a control chunk with the merged reply once every branch has
// finished. Errors before the first chunk are returned without emitting
// anything. If ctx ends after the response chunk went out, the reply is
// still returned alongside ctx.Err() so the caller can store what the
// student saw.
func (c *Coordinator) HandleMessageStream(ctx context.Context, req Request, emit func(Chunk) error) (*Reply, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "coordinator.HandleMessageStream", trace.WithAttributes(attribute.Bool("stream", true)))
	defer span.End()

	req, st, intent, err := c.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if reply, ok := c.fastPath(ctx, st, intent); ok {
		if err := emit(Chunk{Type: ChunkResponse, Content: reply.ReplyText}); err != nil {
			return reply, err
		}
		c.metrics.ObserveCoordination("fast_path", time.Since(start))
		return reply, emit(Chunk{Type: ChunkControl, Data: reply})
	}

	history, err := c.conversationContext(ctx, st.ID, req.SessionID, req.Message)
	if err != nil {
		return nil, err
	}

	var (
		once    sync.Once
		sent    bool
		emitErr error
	)
	respond := func(text string) {
		once.Do(func() {
			emitErr = emit(Chunk{Type: ChunkResponse, Content: text})
			sent = emitErr == nil
		})
	}
	out := c.dispatch(ctx, st, req, intent, history, respond)
	reply := merge(intent, out)
	bg := context.WithoutCancel(ctx)
	if err := ctx.Err(); err != nil {
		c.finish(bg, st, req, agent.ActionMultiAgentStream, out, reply, "Streamed coordination for "+req.Subject)
		if !sent {
			return nil, err
		}
		return reply, err
	}
	respond(reply.ReplyText)
	if emitErr != nil {
		c.log.Warn("stream response chunk failed", "student_id", st.ID, "error", emitErr)
	}
	c.finish(bg, st, req, agent.ActionMultiAgentStream, out, reply, "Streamed coordination for "+req.Subject)
	c.metrics.ObserveCoordination("stream", time.Since(start))
	return reply, emit(Chunk{Type: ChunkControl, Data: reply})
}
