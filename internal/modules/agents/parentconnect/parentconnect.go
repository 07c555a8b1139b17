// Package parentconnect awards badges and keeps parents informed by email.
package parentconnect

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/agent"
	"github.com/i-am-the-robot/Edulife/internal/domain/notify"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/actions"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/memory"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/prompts"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

const (
	MinSummaryActions  = 3
	MinAlertDays       = 3
	championMinTests   = 5
	championMinPercent = 0.9
)

type Badge struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Progress is the all-time activity badges are awarded from.
type Progress struct {
	Sessions   int `json:"total_sessions"`
	Tests      int `json:"total_tests"`
	Correct    int `json:"correct_tests"`
	ActiveDays int `json:"active_days"`
}

func (p Progress) Accuracy() float64 {
	if p.Tests == 0 {
		return 0
	}
	return float64(p.Correct) / float64(p.Tests)
}

var badgeTable = []struct {
	Badge
	earned func(Progress) bool
}{
	{Badge{"First Steps", "Completed first session"}, func(p Progress) bool { return p.Sessions >= 1 }},
	{Badge{"Curious Learner", "Completed 10 sessions"}, func(p Progress) bool { return p.Sessions >= 10 }},
	{Badge{"Chat Master", "Completed 50 sessions"}, func(p Progress) bool { return p.Sessions >= 50 }},
	{Badge{"Test Taker", "Completed 5 tests"}, func(p Progress) bool { return p.Tests >= 5 }},
	{Badge{"Getting Good", "Answered 10 questions correctly"}, func(p Progress) bool { return p.Correct >= 10 }},
	{Badge{"Test Champion", "90%+ success rate"}, func(p Progress) bool {
		return p.Tests >= championMinTests && p.Accuracy() >= championMinPercent
	}},
	{Badge{"Streak Keeper", "Active for 3 days"}, func(p Progress) bool { return p.ActiveDays >= 3 }},
	{Badge{"Week Warrior", "Active for 7 days"}, func(p Progress) bool { return p.ActiveDays >= 7 }},
}

// EarnedBadges lists every badge p qualifies for, in table order.
func EarnedBadges(p Progress) []Badge {
	var out []Badge
	for _, b := range badgeTable {
		if b.earned(p) {
			out = append(out, b.Badge)
		}
	}
	return out
}

// Inbox delivers an in-app notification to the student.
type Inbox interface {
	Deliver(ctx context.Context, n *types.Notification) error
}

// ActivityReport is a day of activity, as sent to parents.
type ActivityReport struct {
	TotalActions int      `json:"total_actions"`
	Messages     int      `json:"messages"`
	Subjects     []string `json:"subjects_studied"`
	QuizScore    *float64 `json:"average_quiz_score,omitempty"`
}

// Delivery reports whether a parent message went out, and why not.
type Delivery struct {
	Sent   bool   `json:"sent"`
	Reason string `json:"reason,omitempty"`
}

type Connector struct {
	log     *logger.Logger
	prompts *prompts.Registry
	memory  memory.Service
	actions actions.Logger
	history repos.AgentActionRepo
	turns   repos.ConversationTurnRepo
	results repos.TestResultRepo
	mailer  Mailer
	inbox   Inbox
}

func New(
	log *logger.Logger,
	reg *prompts.Registry,
	mem memory.Service,
	acts actions.Logger,
	history repos.AgentActionRepo,
	turns repos.ConversationTurnRepo,
	results repos.TestResultRepo,
	mailer Mailer,
	inbox Inbox,
) *Connector {
	if mailer == nil {
		mailer = NewLogMailer(log)
	}
	return &Connector{
		log:     log.With("agent", "parent_connect"),
		prompts: reg,
		memory:  mem,
		actions: acts,
		history: history,
		turns:   turns,
		results: results,
		mailer:  mailer,
		inbox:   inbox,
	}
}

func (c *Connector) Progress(ctx context.Context, studentID uuid.UUID) (Progress, error) {
	dbc := dbctx.New(ctx)
	sessions, err := c.turns.CountSessions(dbc, studentID)
	if err != nil {
		return Progress{}, fmt.Errorf("count sessions: %w", err)
	}
	acc, err := c.results.Accuracy(dbc, studentID, "", time.Time{})
	if err != nil {
		return Progress{}, fmt.Errorf("test accuracy: %w", err)
	}
	stamps, err := c.turns.Timestamps(dbc, studentID, time.Time{})
	if err != nil {
		return Progress{}, fmt.Errorf("turn timestamps: %w", err)
	}
	days := map[string]struct{}{}
	for _, ts := range stamps {
		days[ts.UTC().Format(time.DateOnly)] = struct{}{}
	}
	return Progress{
		Sessions:   int(sessions),
		Tests:      acc.Total,
		Correct:    acc.Correct,
		ActiveDays: len(days),
	}, nil
}

// CheckNewBadges awards badges the student has earned but not yet been
// told about. Each new badge is stored as a memory milestone of type badge,
// sent to the student's inbox and emailed to the parent.
func (c *Connector) CheckNewBadges(ctx context.Context, st *types.Student) ([]Badge, error) {
	p, err := c.Progress(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	m, err := c.memory.Load(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	have := memory.BadgeNames(m)
	var fresh []Badge
	for _, b := range EarnedBadges(p) {
		if _, ok := have[b.Name]; !ok {
			fresh = append(fresh, b)
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	_, err = c.memory.Update(ctx, st.ID, func(m *types.AgentMemory, now time.Time) bool {
		have := memory.BadgeNames(m)
		changed := false
		for _, b := range fresh {
			if _, ok := have[b.Name]; ok {
				continue
			}
			changed = memory.AddMilestone(m, b.Name, map[string]any{"type": "badge", "desc": b.Description}, now) || changed
		}
		return changed
	})
	if err != nil {
		return nil, fmt.Errorf("record badges: %w", err)
	}

	for _, b := range fresh {
		c.log.Info("badge earned", "student_id", st.ID, "badge", b.Name)
		if c.inbox != nil {
			n := &types.Notification{
				StudentID:        st.ID,
				NotificationType: notify.TypeBadge,
				AgentType:        "parent_connect",
				Title:            "New badge: " + b.Name,
				Message:          b.Description,
				ActionData:       jsonData(map[string]any{"badge": b.Name}),
				Priority:         notify.PriorityNormal,
			}
			if err := c.inbox.Deliver(ctx, n); err != nil {
				c.log.Warn("badge notification failed", "student_id", st.ID, "badge", b.Name, "error", err)
			}
		}
		if _, err := c.NotifyAchievement(ctx, st, b); err != nil {
			c.log.Warn("badge email failed", "student_id", st.ID, "badge", b.Name, "error", err)
		}
	}
	return fresh, nil
}

func jsonData(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func (c *Connector) send(ctx context.Context, st *types.Student, category string, subject, body string, data map[string]any, reasoning string) (Delivery, error) {
	if strings.TrimSpace(st.ParentEmail) == "" {
		return Delivery{Reason: "no parent email"}, nil
	}
	err := c.mailer.Send(ctx, Email{
		ToEmail:  st.ParentEmail,
		ToName:   st.ParentName,
		Subject:  subject,
		Body:     body,
		Category: category,
	})
	if err != nil {
		return Delivery{Reason: err.Error()}, err
	}
	if c.actions != nil {
		data["kind"] = category
		if _, err := c.actions.Log(ctx, st.ID, agent.ActionParentNotified, data, reasoning); err != nil {
			c.log.Warn("log parent notification failed", "student_id", st.ID, "error", err)
		}
	}
	return Delivery{Sent: true}, nil
}

func (c *Connector) render(subject, body prompts.MessageName, data map[string]any) (string, string, error) {
	s, err := c.prompts.Message(subject, data)
	if err != nil {
		return "", "", err
	}
	b, err := c.prompts.Message(body, data)
	if err != nil {
		return "", "", err
	}
	return s, b, nil
}

func (c *Connector) parentName(st *types.Student) string {
	if strings.TrimSpace(st.ParentName) != "" {
		return st.ParentName
	}
	return "Parent"
}

// NotifyAchievement emails the parent about one badge.
func (c *Connector) NotifyAchievement(ctx context.Context, st *types.Student, b Badge) (Delivery, error) {
	subject, body, err := c.render(prompts.MessageParentBadgeSubject, prompts.MessageParentBadgeBody, map[string]any{
		"StudentName": st.FullName,
		"FirstName":   st.FirstName(),
		"ParentName":  c.parentName(st),
		"Badge":       b.Name,
		"Description": b.Description,
	})
	if err != nil {
		return Delivery{}, err
	}
	return c.send(ctx, st, "achievement", subject, body, map[string]any{"title": b.Name}, "Sent achievement alert")
}

// DailyReport gathers activity since the start of since's day (UTC).
func (c *Connector) DailyReport(ctx context.Context, studentID uuid.UUID, since time.Time) (ActivityReport, error) {
	dbc := dbctx.New(ctx)
	acts, err := c.history.ListSince(dbc, studentID, since)
	if err != nil {
		return ActivityReport{}, fmt.Errorf("list actions: %w", err)
	}
	turns, err := c.turns.ListSince(dbc, studentID, since)
	if err != nil {
		return ActivityReport{}, fmt.Errorf("list turns: %w", err)
	}
	acc, err := c.results.Accuracy(dbc, studentID, "", since)
	if err != nil {
		return ActivityReport{}, fmt.Errorf("quiz accuracy: %w", err)
	}
	seen := map[string]struct{}{}
	subjects := []string{}
	for _, t := range turns {
		s := strings.TrimSpace(t.Subject)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			subjects = append(subjects, s)
		}
	}
	sort.Strings(subjects)
	out := ActivityReport{
		TotalActions: len(acts),
		Messages:     len(turns),
		Subjects:     subjects,
	}
	if r, ok := acc.Rate(); ok {
		pct := math.Round(r * 100)
		out.QuizScore = &pct
	}
	return out, nil
}

// NotifyDailySummary emails the day's report. Days with fewer than three
// recorded actions are skipped.
func (c *Connector) NotifyDailySummary(ctx context.Context, st *types.Student, r ActivityReport) (Delivery, error) {
	if strings.TrimSpace(st.ParentEmail) == "" {
		return Delivery{Reason: "no parent email"}, nil
	}
	if r.TotalActions < MinSummaryActions {
		return Delivery{Reason: "low activity, skipping daily summary"}, nil
	}
	subjects := "General"
	if len(r.Subjects) > 0 {
		subjects = strings.Join(r.Subjects, ", ")
	}
	score := "N/A"
	if r.QuizScore != nil {
		score = fmt.Sprintf("%.0f%%", *r.QuizScore)
	}
	subject, body, err := c.render(prompts.MessageParentSummarySubject, prompts.MessageParentSummaryBody, map[string]any{
		"StudentName":  st.FullName,
		"ParentName":   c.parentName(st),
		"TotalActions": r.TotalActions,
		"Messages":     r.Messages,
		"Subjects":     subjects,
		"QuizScore":    score,
	})
	if err != nil {
		return Delivery{}, err
	}
	return c.send(ctx, st, "daily_summary", subject, body, map[string]any{"report": r}, "Sent daily summary to parent")
}

// AlertLowEngagement emails the parent after three or more inactive days.
func (c *Connector) AlertLowEngagement(ctx context.Context, st *types.Student, inactiveDays int) (Delivery, error) {
	if inactiveDays < MinAlertDays {
		return Delivery{Reason: "not inactive long enough"}, nil
	}
	subject, body, err := c.render(prompts.MessageParentAlertSubject, prompts.MessageParentAlertBody, map[string]any{
		"StudentName": st.FullName,
		"ParentName":  c.parentName(st),
		"Days":        inactiveDays,
	})
	if err != nil {
		return Delivery{}, err
	}
	return c.send(ctx, st, "inactivity_alert", subject, body, map[string]any{"days": inactiveDays}, "Sent inactivity alert")
}
