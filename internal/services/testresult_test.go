package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/testutil"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/assessment"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/parentconnect"
)

func TestGradeAnswer(t *testing.T) {
	options := []string{"A) 3/4", "B) 1/2", "C. two thirds"}
	cases := []struct {
		name    string
		answer  string
		correct string
		want    bool
	}{
		{"key", "a", "A", true},
		{"key with spaces", "  C ", "c", true},
		{"option label", "A) 3/4", "A", true},
		{"option text", "I think it is 3/4", "A", true},
		{"dotted option text", "Two Thirds", "C", true},
		{"wrong key", "B", "A", false},
		{"wrong text", "1/2", "A", false},
		{"literal", "Photosynthesis", "photosynthesis", true},
		{"empty", "", "A", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GradeAnswer(tc.answer, tc.correct, options); got != tc.want {
				t.Fatalf("GradeAnswer(%q, %q): want=%v got=%v", tc.answer, tc.correct, tc.want, got)
			}
		})
	}
}

type recordingMastery struct {
	topic string
	n     int
}

func (r *recordingMastery) EvaluateMastery(_ context.Context, _ uuid.UUID, topic string, results []*types.TestResult) (assessment.Mastery, error) {
	r.topic, r.n = topic, len(results)
	return assessment.Mastery{Topic: topic, Status: "developing", TestsTaken: len(results)}, nil
}

type staticBadges []parentconnect.Badge

func (b staticBadges) CheckNewBadges(context.Context, *types.Student) ([]parentconnect.Badge, error) {
	return b, nil
}

func TestSubmitGradesAndCountsAttempts(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	sc := testutil.SeedSchool(t, ctx, db)
	st := testutil.SeedStudent(t, ctx, db, sc.ID)
	mastery := &recordingMastery{}
	svc := NewTestResultService(log, repos.NewStudentRepo(db, log), repos.NewTestResultRepo(db, log), mastery,
		staticBadges{{Name: "Test Taker", Description: "Completed 5 tests"}})

	answers := []AnswerInput{
		{Question: "1/2 + 1/4?", Options: []string{"A) 3/4", "B) 1/2"}, StudentAnswer: "A", CorrectAnswer: "A"},
		{Question: "Largest?", Options: []string{"A) 0.5", "B) 0.75"}, StudentAnswer: "A", CorrectAnswer: "B"},
	}
	first, err := svc.Submit(ctx, SubmitInput{StudentID: st.ID, Subject: "Mathematics", Topic: "fractions", Answers: answers})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Correct)
	assert.Equal(t, 2, first.Total)
	assert.InDelta(t, 50.0, first.Score, 1e-9)
	assert.Equal(t, "Great job Ada! That's correct!", first.Results[0].Feedback)
	assert.Equal(t, "Not quite. The answer was B. Keep trying!", first.Results[1].Feedback)
	assert.Equal(t, "fractions", mastery.topic)
	assert.Equal(t, 2, mastery.n)
	require.Len(t, first.NewBadges, 1)
	assert.Equal(t, first.Results[0].CreatedAt, first.Results[1].CreatedAt)

	second, err := svc.Submit(ctx, SubmitInput{StudentID: st.ID, Subject: "Mathematics", Answers: answers[1:]})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Results[0].AttemptNumber)
	assert.Equal(t, "Mathematics", mastery.topic)

	listed, err := svc.List(ctx, st.ID, "Mathematics", time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestSubmitValidation(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewTestResultService(log, repos.NewStudentRepo(db, log), repos.NewTestResultRepo(db, log), nil, nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitInput{StudentID: uuid.New(), Answers: []AnswerInput{{Question: "q"}}})
	requireStatus(t, err, http.StatusBadRequest, "subject_required")
	_, err = svc.Submit(ctx, SubmitInput{StudentID: uuid.New(), Subject: "Science"})
	requireStatus(t, err, http.StatusBadRequest, "answers_required")
	_, err = svc.Submit(ctx, SubmitInput{StudentID: uuid.New(), Subject: "Science", Answers: []AnswerInput{{Question: "q"}}})
	requireStatus(t, err, http.StatusNotFound, "student_not_found")
}
