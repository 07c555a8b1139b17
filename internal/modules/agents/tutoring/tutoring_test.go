package tutoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/testutil"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/school"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/memory"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/prompts"
	"github.com/i-am-the-robot/Edulife/internal/platform/llm"
	"github.com/i-am-the-robot/Edulife/internal/platform/llm/llmtest"
)

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		in   string
		want IntentType
	}{
		{"hi", IntentGreeting},
		{"Hello!", IntentGreeting},
		{"good morning tutor", IntentGreeting},
		{"quiz me on fractions", IntentQuizRequest},
		{"can you test me", IntentQuizRequest},
		{"what did we cover yesterday", IntentSummary},
		{"thanks a lot", IntentGratitude},
		{"I'm tired", IntentTired},
		{"this is shit", IntentProfanity},
		{"why?", IntentSimpleQuestion},
		{"I don't know what to study", IntentUnsure},
		{"what should I learn today", IntentUnsure},
		{"show me how plants grow", IntentVisual},
		{"explain photosynthesis please", IntentLearning},
		// whole-word matching keeps these on the learning path
		{"this chapter is interesting", IntentLearning},
		{"give me examples of nouns", IntentLearning},
		{"which one is the highest mountain in Africa", IntentLearning},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := DetectIntent(tc.in)
			if got.Type != tc.want {
				t.Fatalf("DetectIntent(%q) = %s, want %s", tc.in, got.Type, tc.want)
			}
		})
	}
}

func TestFastPathIntents(t *testing.T) {
	for _, it := range []IntentType{IntentGreeting, IntentGratitude, IntentTired, IntentProfanity} {
		assert.True(t, Intent{Type: it}.FastPath(), it)
	}
	for _, it := range []IntentType{IntentQuizRequest, IntentUnsure, IntentLearning, IntentSimpleQuestion} {
		assert.False(t, Intent{Type: it}.FastPath(), it)
	}
}

func TestSyllabusExcerpt(t *testing.T) {
	syl := "Mathematics\nFractions and decimals.\n\nBasic Science\nPhotosynthesis.\n\nCivic Education\nRights and duties."
	assert.Equal(t, "Mathematics\nFractions and decimals.", SyllabusExcerpt(syl, "Mathematics"))
	assert.Equal(t, "Basic Science\nPhotosynthesis.", SyllabusExcerpt(syl, "science"))
	assert.Equal(t, "Civic Education\nRights and duties.", SyllabusExcerpt(syl, "Civic"))
	assert.Equal(t, syl, SyllabusExcerpt(syl, "French"))
	assert.Equal(t, "", SyllabusExcerpt("  ", "Mathematics"))

	long := strings.Repeat("a", 3000)
	assert.Len(t, SyllabusExcerpt(long, ""), maxSyllabusChars)
}

func TestRecommendNextTopic(t *testing.T) {
	assert.Equal(t, "Advanced applications of Algebra", RecommendNextTopic("Algebra", 0.85))
	assert.Equal(t, "Practice problems on Algebra", RecommendNextTopic("Algebra", 0.6))
	assert.Equal(t, "Review fundamentals of Algebra", RecommendNextTopic("Algebra", 0.2))
}

type stubTimetable struct {
	text string
	ok   bool
}

func (s stubTimetable) SuggestTopicFromTimetable(context.Context, uuid.UUID) (string, bool, error) {
	return s.text, s.ok, nil
}

type fixture struct {
	tutor   *Tutor
	fake    *llmtest.Fake
	mem     memory.Service
	student *types.Student
}

func newFixture(t *testing.T, fake *llmtest.Fake, tt TimetableSuggester, opts ...testutil.StudentOpt) fixture {
	t.Helper()
	db := testutil.DB(t)
	ctx := context.Background()
	log := testutil.Logger(t)
	sch := testutil.SeedSchool(t, ctx, db)
	st := testutil.SeedStudent(t, ctx, db, sch.ID, opts...)
	mem := memory.NewService(log, repos.NewAgentMemoryRepo(db, log))
	tutor := New(log, fake, prompts.MustDefault(), mem, repos.NewSchoolRepo(db, log), tt)
	return fixture{tutor: tutor, fake: fake, mem: mem, student: st}
}

func TestHandleSpecialIntent(t *testing.T) {
	f := newFixture(t, llmtest.New(), stubTimetable{text: "Time for Mathematics", ok: true})
	ctx := context.Background()

	reply, handled, err := f.tutor.HandleSpecialIntent(ctx, f.student, DetectIntent("hello"))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.NotEmpty(t, reply)

	reply, handled, err = f.tutor.HandleSpecialIntent(ctx, f.student, DetectIntent("not sure what to do"))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "Time for Mathematics", reply)

	_, handled, err = f.tutor.HandleSpecialIntent(ctx, f.student, DetectIntent("quiz me"))
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Zero(t, f.fake.CallCount())
}

func TestAnalyzeConfusion(t *testing.T) {
	fake := llmtest.New(llmtest.Rule{
		Contains: "identify confusion points",
		Reply:    "```json\n{\"main_topic\":\"fractions\",\"confusion_level\":\"HIGH\",\"message_type\":\"learning\"}\n```",
	})
	f := newFixture(t, fake, nil)

	got, err := f.tutor.AnalyzeConfusion(context.Background(), f.student, "I don't get fractions", "Mathematics", "")
	require.NoError(t, err)
	assert.Equal(t, "fractions", got.MainTopic)
	assert.Equal(t, "high", got.ConfusionLevel)
	assert.True(t, got.Confused())

	require.Len(t, fake.Calls(), 1)
	assert.Equal(t, float32(0.3), fake.Calls()[0].Temperature)
	assert.Equal(t, 300, fake.Calls()[0].MaxTokens)
}

func TestAnalyzeConfusionFallsBack(t *testing.T) {
	fake := llmtest.New().Default(llmtest.Rule{Err: llm.ErrModelTimeout})
	f := newFixture(t, fake, nil)

	got, err := f.tutor.AnalyzeConfusion(context.Background(), f.student, "help", "Science", "")
	assert.True(t, errors.Is(err, llm.ErrModelTimeout))
	assert.Equal(t, "low", got.ConfusionLevel)
	assert.Equal(t, "Science", got.MainTopic)
	assert.False(t, got.Confused())
}

func TestGenerateExplanationUsesMemoryAndSupport(t *testing.T) {
	fake := llmtest.New(llmtest.Rule{Contains: "friendly AI tutor", Reply: "  Fractions are parts of a whole.  "})
	f := newFixture(t, fake, nil, func(s *types.Student) { s.SupportType = school.SupportDyslexia })
	ctx := context.Background()

	require.NoError(t, f.mem.AddFact(ctx, f.student.ID, "pet", "Has a dog named Rex"))
	require.NoError(t, f.mem.AddEffectiveStrategy(ctx, f.student.ID, "football analogies"))

	got, err := f.tutor.GenerateExplanation(ctx, ExplanationRequest{
		Student: f.student,
		Message: "what is a fraction",
		Subject: "Mathematics",
		History: "SYSTEM_NOTE: [START OF SESSION]",
		Mood:    &Mood{Emotion: "Mildly Frustrated"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Fractions are parts of a whole.", got)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	p := calls[0].Prompt
	assert.Contains(t, p, "- Pet: Has a dog named Rex")
	assert.Contains(t, p, "football analogies")
	assert.Contains(t, p, "Bold** all key terms")
	assert.Contains(t, p, "fractions, decimals")
	assert.Contains(t, p, "DETECTED NEGATIVE EMOTION")
	assert.Contains(t, p, "[START OF SESSION]")
	assert.NotContains(t, p, "Dyslexia")
	assert.Equal(t, float32(0.8), calls[0].Temperature)
	assert.Equal(t, 1000, calls[0].MaxTokens)
}

func TestGenerateExplanationEmptyReply(t *testing.T) {
	fake := llmtest.New().Default(llmtest.Rule{Reply: "   "})
	f := newFixture(t, fake, nil)

	_, err := f.tutor.GenerateExplanation(context.Background(), ExplanationRequest{Student: f.student, Message: "explain verbs"})
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestExtractFacts(t *testing.T) {
	fake := llmtest.New(llmtest.Rule{
		Contains: "memory specialist",
		Reply:    `{"facts":[{"category":"hobby","fact":"Loves playing chess"},{"category":"","fact":"Has two sisters"}]}`,
	})
	f := newFixture(t, fake, nil)
	ctx := context.Background()

	n, err := f.tutor.ExtractFacts(ctx, f.student.ID, "hi there")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, fake.CallCount())

	n, err = f.tutor.ExtractFacts(ctx, f.student.ID, "I love playing chess with my two sisters")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.tutor.ExtractFacts(ctx, f.student.ID, "I love playing chess with my two sisters")
	require.NoError(t, err)
	assert.Zero(t, n)

	m, err := f.mem.Load(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, m.UserFacts, 2)
	assert.Equal(t, "general", m.UserFacts[1].Category)
}
