// Package assessment decides when to quiz a student, at what difficulty, and
// grades mastery from stored test results.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"math"
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
	// NoQuizYet stands in for the hours since the last quiz when there has
	// never been one.
	NoQuizYet = 999.0

	recentWindow     = 7 * 24 * time.Hour
	DefaultQuestions = 3
	maxQuestions     = 10
)

var ErrNoQuestions = errors.New("assessment: model returned no usable questions")

// Signals are the conversation facts the quiz decision looks at.
type Signals struct {
	JustFinishedTutoring       bool
	ConversationsSinceLastQuiz int
	HoursSinceLastQuiz         float64
	LastUserMessage            string
	QuizRequested              bool
}

type Decision struct {
	ShouldAssess          bool     `json:"should_assess"`
	Reasons               []string `json:"reasons"`
	RecommendedDifficulty string   `json:"recommended_difficulty"`
}

type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Quiz is what the chat reply carries when a quiz is offered.
type Quiz struct {
	Subject    string     `json:"subject"`
	Topic      string     `json:"topic,omitempty"`
	Difficulty string     `json:"difficulty"`
	Questions  []Question `json:"questions"`
	Reasons    []string   `json:"reasons,omitempty"`
}

type Mastery struct {
	Topic          string  `json:"topic"`
	MasteryLevel   float64 `json:"mastery_level"`
	Status         string  `json:"status"`
	TestsTaken     int     `json:"tests_taken"`
	Recommendation string  `json:"recommendation,omitempty"`
}

type Assessor struct {
	log     *logger.Logger
	client  llm.Client
	prompts *prompts.Registry
	rules   *rules.Engine
	memory  memory.Service
	actions actions.Logger
	results repos.TestResultRepo
	turns   repos.ConversationTurnRepo
	now     func() time.Time
}

func New(
	log *logger.Logger,
	client llm.Client,
	reg *prompts.Registry,
	engine *rules.Engine,
	mem memory.Service,
	acts actions.Logger,
	results repos.TestResultRepo,
	turns repos.ConversationTurnRepo,
) *Assessor {
	return &Assessor{
		log:     log.With("agent", "assessment"),
		client:  client,
		prompts: reg,
		rules:   engine,
		memory:  mem,
		actions: acts,
		results: results,
		turns:   turns,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CollectSignals works out how long ago the last quiz was and how many
// messages have been exchanged since. The last quiz is whichever is newer of
// the last graded answer and the last quiz offered in chat.
func (a *Assessor) CollectSignals(ctx context.Context, studentID uuid.UUID, message string, quizRequested bool) (Signals, error) {
	dbc := dbctx.New(ctx)
	var last time.Time
	latest, err := a.results.Latest(dbc, studentID)
	if err != nil {
		return Signals{}, fmt.Errorf("latest test result: %w", err)
	}
	if latest != nil {
		last = latest.CreatedAt
	}
	m, err := a.memory.Load(ctx, studentID)
	if err != nil {
		return Signals{}, err
	}
	if m.LastAssessmentAt != nil && m.LastAssessmentAt.After(last) {
		last = *m.LastAssessmentAt
	}

	count, err := a.turns.CountSince(dbc, studentID, last)
	if err != nil {
		return Signals{}, fmt.Errorf("count turns since quiz: %w", err)
	}
	hours := NoQuizYet
	if !last.IsZero() {
		hours = a.now().Sub(last).Hours()
	}
	return Signals{
		ConversationsSinceLastQuiz: int(count),
		HoursSinceLastQuiz:         hours,
		LastUserMessage:            message,
		QuizRequested:              quizRequested,
	}, nil
}

// ShouldAssess runs the assessment rule table. Every rule that fires adds a
// reason; any reason means a quiz is due.
func (a *Assessor) ShouldAssess(ctx context.Context, studentID uuid.UUID, subject string, s Signals) (Decision, error) {
	acc, err := a.results.Accuracy(dbctx.New(ctx), studentID, subject, a.now().Add(-recentWindow))
	if err != nil {
		return Decision{}, fmt.Errorf("recent accuracy: %w", err)
	}
	rate, _ := acc.Rate()

	matches, err := a.rules.Eval(rules.TableAssessment, map[string]any{
		"just_finished_tutoring":        s.JustFinishedTutoring,
		"conversations_since_last_quiz": s.ConversationsSinceLastQuiz,
		"hours_since_last_quiz":         s.HoursSinceLastQuiz,
		"recent_tests":                  acc.Total,
		"recent_accuracy":               rate,
		"last_user_message":             strings.ToLower(s.LastUserMessage),
		"quiz_requested":                s.QuizRequested,
	})
	if err != nil {
		return Decision{}, err
	}
	level, err := a.difficulty(acc)
	if err != nil {
		return Decision{}, err
	}

	out := Decision{RecommendedDifficulty: level, Reasons: []string{}}
	for _, m := range matches {
		out.Reasons = append(out.Reasons, m.String("reason"))
	}
	out.ShouldAssess = len(out.Reasons) > 0
	return out, nil
}

// DetermineDifficulty picks easy, medium or hard from the student's last
// week of answers in subject.
func (a *Assessor) DetermineDifficulty(ctx context.Context, studentID uuid.UUID, subject string) (string, error) {
	acc, err := a.results.Accuracy(dbctx.New(ctx), studentID, subject, a.now().Add(-recentWindow))
	if err != nil {
		return "", err
	}
	return a.difficulty(acc)
}

func (a *Assessor) difficulty(acc repos.Accuracy) (string, error) {
	rate, _ := acc.Rate()
	m, ok, err := a.rules.First(rules.TableDifficulty, map[string]any{
		"recent_tests":    acc.Total,
		"recent_accuracy": rate,
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return "medium", nil
	}
	return m.String("level"), nil
}

func usable(q Question) bool {
	if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.CorrectAnswer) == "" {
		return false
	}
	if len(q.Options) != 4 {
		return false
	}
	lower := strings.ToLower(q.Question)
	if strings.Contains(lower, "true or false") || strings.Contains(lower, "true/false") {
		return false
	}
	for _, o := range q.Options {
		switch strings.ToLower(strings.TrimSpace(o)) {
		case "true", "false":
			return false
		}
	}
	return true
}

// GenerateQuestions asks the model for multiple-choice questions. True/false
// and malformed questions are dropped and the rest cut to n.
func (a *Assessor) GenerateQuestions(ctx context.Context, st *types.Student, subject, difficulty string, n int) ([]Question, error) {
	if n <= 0 {
		n = DefaultQuestions
	}
	if n > maxQuestions {
		n = maxQuestions
	}
	text, err := a.prompts.Complete(ctx, a.client, "assessment.questions", prompts.PromptQuizQuestions, prompts.Input{
		StudentClass: st.StudentClass,
		Subject:      subject,
		Difficulty:   difficulty,
		Hobby:        st.Hobby,
		NumQuestions: n,
	})
	if err != nil {
		return nil, err
	}
	var raw []Question
	if err := llm.DecodeJSON(text, &raw); err != nil {
		// some models wrap the array in an object
		var wrapped struct {
			Questions []Question `json:"questions"`
		}
		if err2 := llm.DecodeJSON(text, &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
		raw = wrapped.Questions
	}
	out := make([]Question, 0, n)
	for _, q := range raw {
		if !usable(q) {
			continue
		}
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	if len(out) == 0 {
		return nil, ErrNoQuestions
	}
	return out, nil
}

// BuildQuiz generates a quiz for the chat reply, stamps the offer time in
// memory and logs it.
func (a *Assessor) BuildQuiz(ctx context.Context, st *types.Student, subject, topic string, d Decision) (*Quiz, error) {
	qs, err := a.GenerateQuestions(ctx, st, subject, d.RecommendedDifficulty, DefaultQuestions)
	if err != nil {
		return nil, err
	}
	quiz := &Quiz{
		Subject:    subject,
		Topic:      topic,
		Difficulty: d.RecommendedDifficulty,
		Questions:  qs,
		Reasons:    d.Reasons,
	}
	if _, err := a.memory.Update(ctx, st.ID, func(m *types.AgentMemory, now time.Time) bool {
		m.LastAssessmentAt = &now
		return true
	}); err != nil {
		a.log.Warn("stamp last assessment failed", "student_id", st.ID, "error", err)
	}
	if a.actions != nil {
		if _, err := a.actions.Log(ctx, st.ID, agent.ActionQuizGenerated, map[string]any{
			"subject":       subject,
			"difficulty":    quiz.Difficulty,
			"num_questions": len(qs),
		}, fmt.Sprintf("Generated %d %s questions on %s", len(qs), quiz.Difficulty, subject)); err != nil {
			a.log.Warn("log quiz action failed", "student_id", st.ID, "error", err)
		}
	}
	return quiz, nil
}

// EvaluateMastery grades a topic from results. A mastered topic is recorded
// in memory; a struggling one is queued for revisiting.
func (a *Assessor) EvaluateMastery(ctx context.Context, studentID uuid.UUID, topic string, results []*types.TestResult) (Mastery, error) {
	if len(results) == 0 {
		return Mastery{Topic: topic, Status: "not_assessed"}, nil
	}
	correct := 0
	for _, r := range results {
		if r.IsCorrect {
			correct++
		}
	}
	acc := float64(correct) / float64(len(results))
	m, _, err := a.rules.First(rules.TableMastery, map[string]any{"accuracy": acc})
	if err != nil {
		return Mastery{}, err
	}
	out := Mastery{
		Topic:          topic,
		MasteryLevel:   acc,
		Status:         m.String("status"),
		TestsTaken:     len(results),
		Recommendation: m.String("recommendation"),
	}
	switch out.Status {
	case "mastered":
		err = a.memory.MarkTopicMastered(ctx, studentID, topic)
	case "struggling":
		err = a.memory.AddTopicToRevisit(ctx, studentID, topic, fmt.Sprintf("Low mastery: %d%%", int(math.Round(acc*100))))
	}
	if err != nil {
		return out, err
	}
	return out, nil
}

// EvaluateSubject grades a subject from the results recorded since since.
func (a *Assessor) EvaluateSubject(ctx context.Context, studentID uuid.UUID, subject string, since time.Time) (Mastery, error) {
	results, err := a.results.ListByStudent(dbctx.New(ctx), studentID, subject, since, 0)
	if err != nil {
		return Mastery{}, fmt.Errorf("list results for %s: %w", subject, err)
	}
	return a.EvaluateMastery(ctx, studentID, subject, results)
}
