package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/assessment"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/parentconnect"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

const maxAnswersPerSubmission = 50

type AnswerInput struct {
	Question         string
	Options          []string
	StudentAnswer    string
	CorrectAnswer    string
	TimeSpentSeconds int
}

type SubmitInput struct {
	StudentID uuid.UUID
	Subject   string
	Topic     string
	Answers   []AnswerInput
}

type Submission struct {
	Results   []*types.TestResult   `json:"results"`
	Correct   int                   `json:"correct"`
	Total     int                   `json:"total"`
	Score     float64               `json:"score"`
	Mastery   assessment.Mastery    `json:"mastery"`
	NewBadges []parentconnect.Badge `json:"new_badges,omitempty"`
}

// MasteryEvaluator grades a topic and records the outcome in memory.
type MasteryEvaluator interface {
	EvaluateMastery(ctx context.Context, studentID uuid.UUID, topic string, results []*types.TestResult) (assessment.Mastery, error)
}

// BadgeChecker awards badges the student has newly earned.
type BadgeChecker interface {
	CheckNewBadges(ctx context.Context, st *types.Student) ([]parentconnect.Badge, error)
}

type TestResultService interface {
	Submit(ctx context.Context, in SubmitInput) (*Submission, error)
	List(ctx context.Context, studentID uuid.UUID, subject string, since time.Time, limit int) ([]*types.TestResult, error)
}

type testResultService struct {
	log      *logger.Logger
	students repos.StudentRepo
	results  repos.TestResultRepo
	mastery  MasteryEvaluator
	badges   BadgeChecker
}

func NewTestResultService(
	log *logger.Logger,
	students repos.StudentRepo,
	results repos.TestResultRepo,
	mastery MasteryEvaluator,
	badges BadgeChecker,
) TestResultService {
	return &testResultService{
		log:      log.With("service", "TestResultService"),
		students: students,
		results:  results,
		mastery:  mastery,
		badges:   badges,
	}
}

// optionKey splits "A) text" or "A. text" into "A" and "text".
func optionKey(option string) (key, text string, ok bool) {
	option = strings.TrimSpace(option)
	i := strings.IndexAny(option, ").")
	if i <= 0 || i > 2 {
		return "", "", false
	}
	return strings.TrimSpace(option[:i]), strings.TrimSpace(option[i+1:]), true
}

// GradeAnswer accepts the option key, an answer carrying the option's text,
// or the literal correct answer, all case-insensitively.
func GradeAnswer(answer, correct string, options []string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	k := strings.ToLower(strings.TrimSpace(correct))
	if a == "" || k == "" {
		return false
	}
	if a == k {
		return true
	}
	if key, _, ok := optionKey(a); ok && key == k {
		return true
	}
	for _, opt := range options {
		key, text, ok := optionKey(opt)
		if !ok || strings.ToLower(key) != k || text == "" {
			continue
		}
		if strings.Contains(a, strings.ToLower(text)) {
			return true
		}
	}
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(correct))
}

func Feedback(st *types.Student, correct bool, answer string) string {
	if correct {
		return fmt.Sprintf("Great job %s! That's correct!", st.FirstName())
	}
	return fmt.Sprintf("Not quite. The answer was %s. Keep trying!", strings.TrimSpace(answer))
}

func (s *testResultService) Submit(ctx context.Context, in SubmitInput) (*Submission, error) {
	dbc := dbctx.New(ctx)
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return nil, invalid("subject_required", "subject is required")
	}
	if len(in.Answers) == 0 {
		return nil, invalid("answers_required", "at least one answer is required")
	}
	if len(in.Answers) > maxAnswersPerSubmission {
		return nil, invalid("too_many_answers", fmt.Sprintf("at most %d answers per submission", maxAnswersPerSubmission))
	}
	st, err := s.students.GetByID(dbc, in.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if st == nil {
		return nil, notFound("student")
	}

	previous, err := s.results.ListByStudent(dbc, st.ID, subject, time.Time{}, 0)
	if err != nil {
		return nil, fmt.Errorf("list previous results: %w", err)
	}
	attempts := map[string]int{}
	for _, r := range previous {
		attempts[strings.ToLower(strings.TrimSpace(r.Question))]++
	}

	topic := strings.TrimSpace(in.Topic)
	rows := make([]*types.TestResult, 0, len(in.Answers))
	correct := 0
	for i, a := range in.Answers {
		q := strings.TrimSpace(a.Question)
		if q == "" {
			return nil, invalid("question_required", fmt.Sprintf("answer %d has no question", i+1))
		}
		ok := GradeAnswer(a.StudentAnswer, a.CorrectAnswer, a.Options)
		if ok {
			correct++
		}
		qk := strings.ToLower(q)
		attempts[qk]++
		rows = append(rows, &types.TestResult{
			StudentID:        st.ID,
			Subject:          subject,
			Topic:            topic,
			Question:         q,
			StudentAnswer:    strings.TrimSpace(a.StudentAnswer),
			CorrectAnswer:    strings.TrimSpace(a.CorrectAnswer),
			IsCorrect:        ok,
			AttemptNumber:    attempts[qk],
			TimeSpentSeconds: a.TimeSpentSeconds,
			Feedback:         Feedback(st, ok, a.CorrectAnswer),
		})
	}
	saved, err := s.results.Create(dbc, rows)
	if err != nil {
		return nil, fmt.Errorf("store test results: %w", err)
	}

	out := &Submission{
		Results: saved,
		Correct: correct,
		Total:   len(saved),
		Score:   math.Round(float64(correct)/float64(len(saved))*10000) / 100,
	}
	masteryTopic := topic
	if masteryTopic == "" {
		masteryTopic = subject
	}
	if s.mastery != nil {
		m, err := s.mastery.EvaluateMastery(ctx, st.ID, masteryTopic, saved)
		if err != nil {
			s.log.Warn("Evaluate mastery failed", "student_id", st.ID, "error", err)
		}
		out.Mastery = m
	}
	if s.badges != nil {
		b, err := s.badges.CheckNewBadges(ctx, st)
		if err != nil {
			s.log.Warn("Badge check failed", "student_id", st.ID, "error", err)
		}
		out.NewBadges = b
	}
	return out, nil
}

func (s *testResultService) List(ctx context.Context, studentID uuid.UUID, subject string, since time.Time, limit int) ([]*types.TestResult, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.results.ListByStudent(dbctx.New(ctx), studentID, strings.TrimSpace(subject), since, limit)
	if err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	return rows, nil
}
