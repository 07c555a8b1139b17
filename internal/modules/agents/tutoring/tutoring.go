// Package tutoring explains concepts and answers questions. It owns intent
// detection, confusion analysis, the explanation prompt and the background
// fact extraction that feeds agent memory.
package tutoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/memory"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/prompts"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/llm"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

// FallbackReply is sent when no explanation could be generated.
const FallbackReply = "I'm having trouble connecting right now. Can you try again in a moment?"

var ErrEmptyReply = errors.New("tutoring: empty reply")

// TimetableSuggester points a student at what their timetable says to study.
type TimetableSuggester interface {
	SuggestTopicFromTimetable(ctx context.Context, studentID uuid.UUID) (string, bool, error)
}

type ConfusionAnalysis struct {
	MainTopic            string   `json:"main_topic"`
	PrerequisitesMissing []string `json:"prerequisites_missing,omitempty"`
	ConfusionLevel       string   `json:"confusion_level"`
	RecommendedApproach  string   `json:"recommended_approach,omitempty"`
	MessageType          string   `json:"message_type,omitempty"`
	NeedClarification    bool     `json:"need_clarification"`
	ClarifyingQuestion   string   `json:"clarifying_question,omitempty"`
}

// Confused reports whether practice is worth scheduling.
func (c ConfusionAnalysis) Confused() bool {
	return c.ConfusionLevel == "medium" || c.ConfusionLevel == "high"
}

// Mood is the slice of a sentiment reading the explanation prompt uses.
type Mood struct {
	Emotion    string
	IsDistress bool
}

type ExplanationRequest struct {
	Student *types.Student
	Message string
	Subject string
	// History is the rendered conversation, SYSTEM_NOTE line included.
	History   string
	Confusion *ConfusionAnalysis
	Mood      *Mood
}

type Tutor struct {
	log       *logger.Logger
	client    llm.Client
	prompts   *prompts.Registry
	memory    memory.Service
	schools   repos.SchoolRepo
	timetable TimetableSuggester
}

func New(
	log *logger.Logger,
	client llm.Client,
	reg *prompts.Registry,
	mem memory.Service,
	schools repos.SchoolRepo,
	timetable TimetableSuggester,
) *Tutor {
	return &Tutor{
		log:       log.With("agent", "tutoring"),
		client:    client,
		prompts:   reg,
		memory:    mem,
		schools:   schools,
		timetable: timetable,
	}
}

// HandleSpecialIntent answers intents that need no explanation. handled is
// false when the message should go through the full pipeline.
func (t *Tutor) HandleSpecialIntent(ctx context.Context, st *types.Student, in Intent) (string, bool, error) {
	if in.FastPath() {
		reply, ok, err := t.prompts.FastPathReply(string(in.Type), map[string]any{"FirstName": st.FirstName()})
		if err != nil || !ok {
			return "", false, err
		}
		return reply, true, nil
	}
	if in.Type == IntentUnsure && t.timetable != nil {
		suggestion, ok, err := t.timetable.SuggestTopicFromTimetable(ctx, st.ID)
		if err != nil {
			t.log.Warn("timetable suggestion failed", "student_id", st.ID, "error", err)
			return "", false, nil
		}
		if ok {
			return suggestion, true, nil
		}
	}
	return "", false, nil
}

func fallbackConfusion(subject string) ConfusionAnalysis {
	return ConfusionAnalysis{
		MainTopic:           subject,
		ConfusionLevel:      "low",
		RecommendedApproach: "Direct answer",
		MessageType:         "learning",
	}
}

// AnalyzeConfusion asks the model where the student is stuck. On failure it
// returns a low-confusion reading together with the error.
func (t *Tutor) AnalyzeConfusion(ctx context.Context, st *types.Student, message, subject, history string) (ConfusionAnalysis, error) {
	text, err := t.prompts.Complete(ctx, t.client, "tutoring.confusion", prompts.PromptConfusionAnalysis, prompts.Input{
		Message:      message,
		Subject:      subject,
		History:      history,
		Age:          st.Age,
		StudentClass: st.StudentClass,
	})
	if err != nil {
		return fallbackConfusion(subject), err
	}
	var out ConfusionAnalysis
	if err := llm.DecodeJSON(text, &out); err != nil {
		return fallbackConfusion(subject), fmt.Errorf("decode confusion analysis: %w", err)
	}
	out.ConfusionLevel = strings.ToLower(strings.TrimSpace(out.ConfusionLevel))
	switch out.ConfusionLevel {
	case "low", "medium", "high":
	default:
		out.ConfusionLevel = "low"
	}
	if out.MainTopic == "" {
		out.MainTopic = subject
	}
	return out, nil
}

func moodNote(m *Mood) string {
	if m == nil {
		return ""
	}
	emotion := strings.ToLower(strings.TrimSpace(m.Emotion))
	switch {
	case m.IsDistress:
		return fmt.Sprintf("DETECTED DISTRESS: Student is feeling %s. Be extremely supportive, patient and validating.", emotion)
	case strings.Contains(emotion, "frustrated"), emotion == "confused", emotion == "anxious":
		return fmt.Sprintf("DETECTED NEGATIVE EMOTION: Student seems %s. Start with validation and slow down.", emotion)
	case emotion == "happy", emotion == "excited":
		return fmt.Sprintf("DETECTED POSITIVE EMOTION: Student seems %s. Match their energy!", emotion)
	}
	return ""
}

func titleFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func factsText(m *types.AgentMemory) string {
	if m == nil || len(m.UserFacts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.UserFacts))
	for _, f := range m.UserFacts {
		lines = append(lines, "- "+titleFirst(strings.ReplaceAll(f.Category, "_", " "))+": "+f.Fact)
	}
	return strings.Join(lines, "\n")
}

func strategiesText(m *types.AgentMemory) string {
	if m == nil {
		return ""
	}
	var names []string
	for _, s := range m.EffectiveStrategies {
		if len(names) == 3 {
			break
		}
		names = append(names, s.Strategy)
	}
	return strings.Join(names, ", ")
}

func (t *Tutor) syllabus(ctx context.Context, st *types.Student, subject string) string {
	if t.schools == nil {
		return ""
	}
	sch, err := t.schools.GetByID(dbctx.New(ctx), st.SchoolID)
	if err != nil {
		t.log.Warn("load school syllabus failed", "school_id", st.SchoolID, "error", err)
		return ""
	}
	if sch == nil {
		return ""
	}
	return SyllabusExcerpt(sch.SyllabusText, subject)
}

// GenerateExplanation writes the tutoring reply. Memory and syllabus lookups
// are best effort; a model failure is returned to the caller.
func (t *Tutor) GenerateExplanation(ctx context.Context, req ExplanationRequest) (string, error) {
	st := req.Student
	if st == nil {
		return "", fmt.Errorf("student required")
	}
	var mem *types.AgentMemory
	if t.memory != nil {
		m, err := t.memory.Load(ctx, st.ID)
		if err != nil {
			t.log.Warn("load memory for explanation failed", "student_id", st.ID, "error", err)
		} else {
			mem = m
		}
	}

	in := prompts.Input{
		StudentName:       st.FullName,
		FirstName:         st.FirstName(),
		Age:               st.Age,
		StudentClass:      st.StudentClass,
		Hobby:             st.Hobby,
		Personality:       st.Personality,
		SupportAdaptation: t.prompts.SupportAdaptation(st.SupportType),
		FactsText:         factsText(mem),
		StrategiesText:    strategiesText(mem),
		Message:           req.Message,
		Subject:           req.Subject,
		History:           req.History,
		SentimentNote:     moodNote(req.Mood),
		Syllabus:          t.syllabus(ctx, st, req.Subject),
	}
	if req.Confusion != nil && req.Confusion.NeedClarification && req.Confusion.ClarifyingQuestion != "" {
		in.History = strings.TrimSpace(in.History + "\nSYSTEM_NOTE: If the question is unclear, ask: " + req.Confusion.ClarifyingQuestion)
	}

	text, err := t.prompts.Complete(ctx, t.client, "tutoring.explanation", prompts.PromptTutoringExplanation, in)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// ExtractFacts pulls permanent facts out of a student message and stores
// them in memory. Messages under three words are skipped. It returns how
// many new facts were stored.
func (t *Tutor) ExtractFacts(ctx context.Context, studentID uuid.UUID, message string) (int, error) {
	if len(strings.Fields(message)) < 3 {
		return 0, nil
	}
	text, err := t.prompts.Complete(ctx, t.client, "tutoring.facts", prompts.PromptFactExtraction, prompts.Input{Message: message})
	if err != nil {
		return 0, err
	}
	var out struct {
		Facts []struct {
			Category string `json:"category"`
			Fact     string `json:"fact"`
		} `json:"facts"`
	}
	if err := llm.DecodeJSON(text, &out); err != nil {
		return 0, fmt.Errorf("decode facts: %w", err)
	}
	if len(out.Facts) == 0 {
		return 0, nil
	}
	added := 0
	_, err = t.memory.Update(ctx, studentID, func(m *types.AgentMemory, now time.Time) bool {
		for _, f := range out.Facts {
			if memory.AddFact(m, f.Category, f.Fact, now) {
				added++
			}
		}
		return added > 0
	})
	if err != nil {
		return 0, err
	}
	if added > 0 {
		t.log.Debug("stored user facts", "student_id", studentID, "count", added)
	}
	return added, nil
}

// RecommendNextTopic maps a mastery level in [0,1] to the next step.
func RecommendNextTopic(topic string, mastery float64) string {
	switch {
	case mastery >= 0.8:
		return "Advanced applications of " + topic
	case mastery >= 0.6:
		return "Practice problems on " + topic
	default:
		return "Review fundamentals of " + topic
	}
}
