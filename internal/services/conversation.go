package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/memory"
	"github.com/i-am-the-robot/Edulife/internal/modules/coordinator"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

const (
	factExtractionTimeout = 30 * time.Second
	defaultHistoryLimit   = 50
	maxHistoryLimit       = 200
)

var subjectKeywords = []struct {
	subject string
	words   []string
}{
	{"Mathematics", []string{"math", "number", "calculate", "add", "subtract", "algebra", "equation"}},
	{"Science", []string{"science", "experiment", "nature", "animal", "biology", "physics"}},
	{"English", []string{"read", "story", "write", "book", "grammar", "essay"}},
}

// InferSubject guesses the subject of a message from its words. A word
// matches a keyword when it starts with it, so "numbers" counts as
// "number".
func InferSubject(message string) string {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	for _, group := range subjectKeywords {
		for _, w := range words {
			for _, k := range group.words {
				if strings.HasPrefix(w, k) {
					return group.subject
				}
			}
		}
	}
	return coordinator.DefaultSubject
}

// NextStreak returns the streak counters after activity at now. Activity
// on the same day leaves them unchanged, the day after extends the streak,
// and any longer gap restarts it.
func NextStreak(current, longest int, last *time.Time, now time.Time) (int, int) {
	today := now.UTC().Truncate(24 * time.Hour)
	switch {
	case last == nil || current <= 0:
		current = 1
	default:
		day := last.UTC().Truncate(24 * time.Hour)
		switch {
		case day.Equal(today):
		case day.Equal(today.AddDate(0, 0, -1)):
			current++
		default:
			current = 1
		}
	}
	if current > longest {
		longest = current
	}
	return current, longest
}

// PersistedReply is the text stored for a turn: the reply plus any break
// suggestion.
func PersistedReply(r *coordinator.Reply) string {
	if r == nil {
		return ""
	}
	if r.BreakSuggestion == "" {
		return r.ReplyText
	}
	return r.ReplyText + "\n\n" + r.BreakSuggestion
}

type ChatRequest struct {
	StudentID uuid.UUID
	Message   string
	Subject   string
	SessionID string
}

// ChatReply is the merged reply plus the turn it was stored as.
type ChatReply struct {
	*coordinator.Reply
	SessionID string    `json:"session_id"`
	Subject   string    `json:"subject"`
	TurnID    uuid.UUID `json:"turn_id"`
}

// MessageHandler answers one chat message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, req coordinator.Request) (*coordinator.Reply, error)
	HandleMessageStream(ctx context.Context, req coordinator.Request, emit func(coordinator.Chunk) error) (*coordinator.Reply, error)
}

// FactExtractor pulls lasting facts about the student out of a message.
type FactExtractor interface {
	ExtractFacts(ctx context.Context, studentID uuid.UUID, message string) (int, error)
}

type ConversationService interface {
	// Prepare validates req and fills in the subject and session id.
	Prepare(req ChatRequest) (ChatRequest, error)
	Send(ctx context.Context, req ChatRequest) (*ChatReply, error)
	Stream(ctx context.Context, req ChatRequest, emit func(coordinator.Chunk) error) (*ChatReply, error)
	History(ctx context.Context, studentID uuid.UUID, sessionID string, favoritesOnly bool, limit, offset int) ([]*types.ConversationTurn, error)
	Sessions(ctx context.Context, studentID uuid.UUID, limit int) ([]*types.SessionSummary, error)
	SetFavorite(ctx context.Context, studentID, turnID uuid.UUID, favorite bool) (*types.ConversationTurn, error)
	// Close waits for background fact extraction to finish.
	Close()
}

type conversationService struct {
	log      *logger.Logger
	handler  MessageHandler
	facts    FactExtractor
	memory   memory.Service
	students repos.StudentRepo
	turns    repos.ConversationTurnRepo
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewConversationService(
	log *logger.Logger,
	handler MessageHandler,
	facts FactExtractor,
	mem memory.Service,
	students repos.StudentRepo,
	turns repos.ConversationTurnRepo,
) ConversationService {
	return &conversationService{
		log:      log.With("service", "ConversationService"),
		handler:  handler,
		facts:    facts,
		memory:   mem,
		students: students,
		turns:    turns,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *conversationService) Prepare(req ChatRequest) (ChatRequest, error) {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return req, invalid("message_required", "message is required")
	}
	if req.StudentID == uuid.Nil {
		return req, invalid("student_id_required", "student_id is required")
	}
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		req.Subject = InferSubject(req.Message)
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	return req, nil
}

func (s *conversationService) activeStudent(ctx context.Context, id uuid.UUID) (*types.Student, error) {
	st, err := s.students.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if st == nil {
		return nil, notFound("student")
	}
	if !st.IsActive {
		return nil, forbidden("student_inactive", "student account is not active")
	}
	return st, nil
}

func coordinationError(err error) error {
	switch {
	case errors.Is(err, coordinator.ErrStudentNotFound):
		return notFound("student")
	case errors.Is(err, coordinator.ErrEmptyMessage):
		return invalid("message_required", "message is required")
	}
	return err
}

func (s *conversationService) Send(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	req, err := s.Prepare(req)
	if err != nil {
		return nil, err
	}
	st, err := s.activeStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	reply, err := s.handler.HandleMessage(ctx, coordinator.Request{
		StudentID: st.ID,
		Message:   req.Message,
		Subject:   req.Subject,
		SessionID: req.SessionID,
	})
	if err != nil {
		return nil, coordinationError(err)
	}
	return s.record(ctx, st, req, reply)
}

func (s *conversationService) Stream(ctx context.Context, req ChatRequest, emit func(coordinator.Chunk) error) (*ChatReply, error) {
	req, err := s.Prepare(req)
	if err != nil {
		return nil, err
	}
	st, err := s.activeStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	reply, err := s.handler.HandleMessageStream(ctx, coordinator.Request{
		StudentID: st.ID,
		Message:   req.Message,
		Subject:   req.Subject,
		SessionID: req.SessionID,
	}, emit)
	if reply == nil {
		return nil, coordinationError(err)
	}
	// the client may have gone away after the reply was streamed; the turn is
	// still stored
	out, recErr := s.record(context.WithoutCancel(ctx), st, req, reply)
	if recErr != nil {
		return nil, recErr
	}
	if err != nil {
		s.log.Warn("Stream write failed", "student_id", st.ID, "error", err)
	}
	return out, nil
}

// record stores the turn, moves the streak on and starts fact extraction.
func (s *conversationService) record(ctx context.Context, st *types.Student, req ChatRequest, reply *coordinator.Reply) (*ChatReply, error) {
	now := s.now()
	turn := &types.ConversationTurn{
		StudentID:      st.ID,
		SessionID:      req.SessionID,
		Subject:        req.Subject,
		StudentMessage: req.Message,
		AIResponse:     PersistedReply(reply),
		Timestamp:      now,
	}
	if reply.Confusion != nil {
		turn.Topic = reply.Confusion.MainTopic
	}
	if err := s.turns.Create(dbctx.New(ctx), turn); err != nil {
		return nil, fmt.Errorf("store conversation turn: %w", err)
	}

	current, longest := NextStreak(st.CurrentStreak, st.LongestStreak, st.LastActivityDate, now)
	if err := s.students.UpdateFields(dbctx.New(ctx), st.ID, map[string]interface{}{
		"current_streak":     current,
		"longest_streak":     longest,
		"last_activity_date": now,
		"last_active":        now,
	}); err != nil {
		s.log.Warn("Update streak failed", "student_id", st.ID, "error", err)
	}
	if s.memory != nil {
		if err := s.memory.RecordInteraction(ctx, st.ID); err != nil {
			s.log.Warn("Record interaction failed", "student_id", st.ID, "error", err)
		}
	}
	s.extractFacts(ctx, st.ID, req.Message)

	return &ChatReply{
		Reply:     reply,
		SessionID: req.SessionID,
		Subject:   req.Subject,
		TurnID:    turn.ID,
	}, nil
}

func (s *conversationService) extractFacts(ctx context.Context, studentID uuid.UUID, message string) {
	if s.facts == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), factExtractionTimeout)
		defer cancel()
		n, err := s.facts.ExtractFacts(bg, studentID, message)
		if err != nil {
			s.log.Debug("Fact extraction failed", "student_id", studentID, "error", err)
			return
		}
		if n > 0 {
			s.log.Debug("Stored student facts", "student_id", studentID, "count", n)
		}
	}()
}

func (s *conversationService) Close() { s.wg.Wait() }

func (s *conversationService) History(ctx context.Context, studentID uuid.UUID, sessionID string, favoritesOnly bool, limit, offset int) ([]*types.ConversationTurn, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.turns.ListPage(dbctx.New(ctx), studentID, strings.TrimSpace(sessionID), favoritesOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list conversation turns: %w", err)
	}
	return rows, nil
}

func (s *conversationService) Sessions(ctx context.Context, studentID uuid.UUID, limit int) ([]*types.SessionSummary, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.turns.ListSessions(dbctx.New(ctx), studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return rows, nil
}

func (s *conversationService) SetFavorite(ctx context.Context, studentID, turnID uuid.UUID, favorite bool) (*types.ConversationTurn, error) {
	dbc := dbctx.New(ctx)
	turn, err := s.turns.GetByID(dbc, turnID)
	if err != nil {
		return nil, fmt.Errorf("get conversation turn: %w", err)
	}
	if turn == nil || turn.StudentID != studentID {
		return nil, notFound("conversation_turn")
	}
	if err := s.turns.SetFavorite(dbc, turnID, favorite); err != nil {
		return nil, fmt.Errorf("set favorite: %w", err)
	}
	turn.IsFavorite = favorite
	return turn, nil
}
