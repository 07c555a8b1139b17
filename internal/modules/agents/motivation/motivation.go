// Package motivation reads the student's mood, gates emotional
// interventions, measures engagement and writes encouragement.
package motivation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/agent"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/actions"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/memory"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/prompts"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/rules"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/llm"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

const (
	EngagementHigh   = "high"
	EngagementMedium = "medium"
	EngagementLow    = "low"

	SeverityHigh = "high"

	// BreakQuestion follows a support message that replaced an explanation.
	BreakQuestion = "Do you want to take a short break?"

	InactivityThresholdDays = 3

	engagementWindowDays = 7
	highEncourageChance  = 0.2
	defaultSupport       = "This feels hard right now, and that's okay. You've got this."
	encouragementError   = "You're doing amazing! Keep up the great work!"
)

type Sentiment struct {
	Emotion         string  `json:"emotion"`
	Confidence      float64 `json:"confidence"`
	IsDistress      bool    `json:"is_distress"`
	ShouldIntervene bool    `json:"should_intervene"`
	Severity        string  `json:"severity,omitempty"`
	SupportResponse string  `json:"support_response,omitempty"`
}

func Neutral() Sentiment {
	return Sentiment{Emotion: "neutral", Severity: "low"}
}

type Engagement struct {
	Level             string  `json:"engagement_level"`
	ActiveDays        int     `json:"active_days_last_week"`
	TotalMessages     int     `json:"total_messages"`
	AvgMessagesPerDay float64 `json:"avg_messages_per_day"`
}

// Occasion is what an encouragement message is about. All fields optional.
type Occasion struct {
	Achievement string `json:"achievement,omitempty"`
	Struggle    string `json:"struggle,omitempty"`
	Milestone   string `json:"milestone,omitempty"`
}

type Motivator struct {
	log     *logger.Logger
	client  llm.Client
	prompts *prompts.Registry
	rules   *rules.Engine
	memory  memory.Service
	actions actions.Logger
	turns   repos.ConversationTurnRepo
	gate    Gate
	now     func() time.Time
	chance  func() float64
}

func New(
	log *logger.Logger,
	client llm.Client,
	reg *prompts.Registry,
	engine *rules.Engine,
	mem memory.Service,
	acts actions.Logger,
	turns repos.ConversationTurnRepo,
	gate Gate,
) *Motivator {
	if gate == nil {
		gate = NewMemoryGate()
	}
	return &Motivator{
		log:     log.With("agent", "motivation"),
		client:  client,
		prompts: reg,
		rules:   engine,
		memory:  mem,
		actions: acts,
		turns:   turns,
		gate:    gate,
		now:     func() time.Time { return time.Now().UTC() },
		chance:  rand.Float64,
	}
}

// AnalyzeSentiment classifies the emotional tone of text. Text under three
// characters is neutral without a model call. On failure the neutral reading
// is returned with the error.
func (m *Motivator) AnalyzeSentiment(ctx context.Context, text string) (Sentiment, error) {
	if len(strings.TrimSpace(text)) < 3 {
		return Neutral(), nil
	}
	out, err := m.prompts.Complete(ctx, m.client, "motivation.sentiment", prompts.PromptSentimentAnalysis, prompts.Input{Message: text})
	if err != nil {
		return Neutral(), err
	}
	var s Sentiment
	if err := llm.DecodeJSON(out, &s); err != nil {
		return Neutral(), fmt.Errorf("decode sentiment: %w", err)
	}
	s.Severity = strings.ToLower(strings.TrimSpace(s.Severity))
	if s.Emotion == "" {
		s.Emotion = "neutral"
	}
	return s, nil
}

// Intervention returns the support message to show instead of the tutoring
// reply. Only distress of high severity qualifies, and the session gate must
// allow it.
func (m *Motivator) Intervention(ctx context.Context, sessionKey string, s Sentiment) (string, bool, error) {
	if !s.IsDistress {
		return "", false, nil
	}
	if s.Severity != SeverityHigh {
		return "", false, nil
	}
	ok, err := m.gate.Allow(ctx, sessionKey, m.now())
	if err != nil || !ok {
		return "", false, err
	}
	msg := strings.TrimSpace(s.SupportResponse)
	if msg == "" {
		msg = defaultSupport
	}
	return msg + "\n\n" + BreakQuestion, true, nil
}

// AssessEngagement grades the last seven days of chat activity.
func (m *Motivator) AssessEngagement(ctx context.Context, studentID uuid.UUID) (Engagement, error) {
	since := m.now().AddDate(0, 0, -engagementWindowDays)
	stamps, err := m.turns.Timestamps(dbctx.New(ctx), studentID, since)
	if err != nil {
		return Engagement{}, fmt.Errorf("turn timestamps: %w", err)
	}
	days := map[string]struct{}{}
	for _, ts := range stamps {
		days[ts.UTC().Format(time.DateOnly)] = struct{}{}
	}
	avg := float64(len(stamps)) / engagementWindowDays
	out := Engagement{
		Level:             EngagementLow,
		ActiveDays:        len(days),
		TotalMessages:     len(stamps),
		AvgMessagesPerDay: math.Round(avg*10) / 10,
	}
	match, ok, err := m.rules.First(rules.TableEngagement, map[string]any{
		"active_days":          out.ActiveDays,
		"avg_messages_per_day": avg,
	})
	if err != nil {
		return Engagement{}, err
	}
	if ok {
		out.Level = match.String("level")
	}
	return out, nil
}

// ShouldSendEncouragement is always true for low engagement and true one time
// in five for high engagement.
func (m *Motivator) ShouldSendEncouragement(e Engagement) bool {
	switch e.Level {
	case EngagementLow:
		return true
	case EngagementHigh:
		return m.chance() < highEncourageChance
	}
	return false
}

// fallbackEncouragement is used when the model is unreachable.
func fallbackEncouragement(o Occasion) string {
	switch {
	case o.Achievement != "":
		return fmt.Sprintf("Great job on %s! Keep it up!", o.Achievement)
	case o.Struggle != "":
		return fmt.Sprintf("Don't worry about %s. You're making progress!", o.Struggle)
	}
	return "You're doing great! Keep learning!"
}

// GenerateEncouragement writes a one-line encouragement. It never fails; a
// model error yields a stock message.
func (m *Motivator) GenerateEncouragement(ctx context.Context, st *types.Student, o Occasion) string {
	text, err := m.prompts.Complete(ctx, m.client, "motivation.encouragement", prompts.PromptEncouragement, prompts.Input{
		StudentName: st.FullName,
		Age:         st.Age,
		Personality: st.Personality,
		Hobby:       st.Hobby,
		Achievement: o.Achievement,
		Struggle:    o.Struggle,
		Milestone:   o.Milestone,
	})
	text = strings.TrimSpace(text)
	if llm.IsModelFailure(err) {
		m.log.Warn("encouragement generation failed", "student_id", st.ID, "error", err)
		return fallbackEncouragement(o)
	}
	if err != nil || text == "" {
		return encouragementError
	}
	if m.actions != nil {
		about := o.Achievement
		if about == "" {
			about = o.Struggle
		}
		if about == "" {
			about = "general motivation"
		}
		if _, err := m.actions.Log(ctx, st.ID, agent.ActionEncouragementSent, map[string]any{
			"context":        o,
			"message_length": len(text),
		}, "Sent encouragement for "+about); err != nil {
			m.log.Warn("log encouragement failed", "student_id", st.ID, "error", err)
		}
	}
	return text
}

// CelebrateMilestone writes a celebration and records the milestone in
// memory.
func (m *Motivator) CelebrateMilestone(ctx context.Context, st *types.Student, milestone string, data map[string]any) (string, error) {
	msg := m.GenerateEncouragement(ctx, st, Occasion{Achievement: milestone, Milestone: milestone})
	if err := m.memory.AddMilestone(ctx, st.ID, milestone, data); err != nil {
		return msg, err
	}
	return msg, nil
}

// CheckInactivity returns a "we miss you" message when the student's last
// message is at least three days old. Students with no messages are skipped.
func (m *Motivator) CheckInactivity(ctx context.Context, st *types.Student) (string, int, bool, error) {
	last, err := m.turns.ListRecent(dbctx.New(ctx), st.ID, "", 1)
	if err != nil {
		return "", 0, false, fmt.Errorf("last turn: %w", err)
	}
	if len(last) == 0 {
		return "", 0, false, nil
	}
	days := int(m.now().Sub(last[0].Timestamp).Hours() / 24)
	if days < InactivityThresholdDays {
		return "", days, false, nil
	}
	text, err := m.prompts.Complete(ctx, m.client, "motivation.inactivity", prompts.PromptInactivityCheckIn, prompts.Input{
		StudentName:  st.FullName,
		Hobby:        st.Hobby,
		DaysInactive: days,
	})
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		if ctx.Err() != nil {
			return "", days, false, ctx.Err()
		}
		text = fmt.Sprintf("Hey %s! Long time no see. Ready to learn something new?", st.FullName)
	}
	return text, days, true, nil
}
