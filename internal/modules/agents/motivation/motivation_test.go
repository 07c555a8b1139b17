package motivation

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/testutil"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/actions"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/memory"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/prompts"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/rules"
	"github.com/i-am-the-robot/Edulife/internal/platform/llm"
	"github.com/i-am-the-robot/Edulife/internal/platform/llm/llmtest"
	"github.com/i-am-the-robot/Edulife/internal/platform/redisx"
)

type fixture struct {
	db      *gorm.DB
	m       *Motivator
	mem     memory.Service
	acts    actions.Service
	student *types.Student
}

func newFixture(t *testing.T, fake *llmtest.Fake) fixture {
	t.Helper()
	db := testutil.DB(t)
	ctx := context.Background()
	log := testutil.Logger(t)
	sch := testutil.SeedSchool(t, ctx, db)
	st := testutil.SeedStudent(t, ctx, db, sch.ID)
	mem := memory.NewService(log, repos.NewAgentMemoryRepo(db, log))
	acts := actions.NewService(log, repos.NewAgentActionRepo(db, log))
	m := New(log, fake, prompts.MustDefault(), rules.MustDefault(), mem, acts, repos.NewConversationTurnRepo(db, log), nil)
	return fixture{db: db, m: m, mem: mem, acts: acts, student: st}
}

func TestMemoryGateLimits(t *testing.T) {
	g := NewMemoryGate()
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	steps := []struct {
		after time.Duration
		want  bool
	}{
		{0, true},
		{time.Minute, false},
		{4*time.Minute + 59*time.Second, false},
		{5 * time.Minute, true},
		{9 * time.Minute, false},
		{10 * time.Minute, true},
		{30 * time.Minute, false},
		{3 * time.Hour, false},
	}
	for _, s := range steps {
		got, err := g.Allow(ctx, "s1", start.Add(s.after))
		require.NoError(t, err)
		if got != s.want {
			t.Fatalf("Allow at +%s = %v, want %v", s.after, got, s.want)
		}
	}

	got, err := g.Allow(ctx, "s2", start)
	require.NoError(t, err)
	assert.True(t, got, "sessions are independent")

	g.Reset("s1")
	got, err = g.Allow(ctx, "s1", start.Add(4*time.Hour))
	require.NoError(t, err)
	assert.True(t, got)
}

func TestMemoryGateForgetsIdleSessions(t *testing.T) {
	g := NewMemoryGate()
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := g.Allow(ctx, uuid.NewString(), start)
		require.NoError(t, err)
	}
	_, err := g.Allow(ctx, "recent", start.Add(11*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())

	ok, err := g.Allow(ctx, "later", start.Add(gateTTL+time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, g.Len(), "sessions idle past the ttl are dropped")
}

func TestMemoryGateConcurrent(t *testing.T) {
	g := NewMemoryGate()
	now := time.Now()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := g.Allow(context.Background(), "shared", now)
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, allowed)
}

func TestRedisGate(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := redisx.Open(ctx, addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	key := "test-" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(ctx, gateKeyPrefix+key) })
	g := NewRedisGate(rdb)
	start := time.Now()

	for i, want := range []bool{true, false, true, true, false} {
		at := start.Add(time.Duration(i) * 3 * time.Minute)
		if i >= 2 {
			at = start.Add(time.Duration(i-1) * 6 * time.Minute)
		}
		got, err := g.Allow(ctx, key, at)
		require.NoError(t, err)
		assert.Equal(t, want, got, "step %d", i)
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	fake := llmtest.New(llmtest.Rule{
		Contains: "emotional sentiment",
		Reply:    "```json\n{\"emotion\": \"Giving Up\", \"confidence\": 0.9, \"is_distress\": true, \"should_intervene\": true, \"severity\": \"HIGH\", \"support_response\": \"You are braver than you think.\"}\n```",
	})
	f := newFixture(t, fake)
	ctx := context.Background()

	s, err := f.m.AnalyzeSentiment(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, Neutral(), s)
	assert.Zero(t, fake.CallCount())

	s, err = f.m.AnalyzeSentiment(ctx, "I give up on fractions")
	require.NoError(t, err)
	assert.True(t, s.IsDistress)
	assert.Equal(t, SeverityHigh, s.Severity)
	assert.Equal(t, "Giving Up", s.Emotion)
}

func TestAnalyzeSentimentFailure(t *testing.T) {
	f := newFixture(t, llmtest.New().Default(llmtest.Rule{Err: llm.ErrModelTimeout}))
	s, err := f.m.AnalyzeSentiment(context.Background(), "this is so hard")
	require.ErrorIs(t, err, llm.ErrModelTimeout)
	assert.Equal(t, Neutral(), s)
}

func TestIntervention(t *testing.T) {
	f := newFixture(t, llmtest.New())
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f.m.now = func() time.Time { return now }

	distress := Sentiment{IsDistress: true, Severity: SeverityHigh, SupportResponse: "You can do hard things."}

	_, ok, err := f.m.Intervention(ctx, "k", Sentiment{IsDistress: true, Severity: "medium"})
	require.NoError(t, err)
	assert.False(t, ok, "medium severity never intervenes")

	_, ok, err = f.m.Intervention(ctx, "k", Sentiment{Severity: SeverityHigh})
	require.NoError(t, err)
	assert.False(t, ok, "no distress signal")

	_, ok, err = f.m.Intervention(ctx, "k", Sentiment{ShouldIntervene: true, Severity: SeverityHigh})
	require.NoError(t, err)
	assert.False(t, ok, "should_intervene without distress")

	msg, ok, err := f.m.Intervention(ctx, "k", distress)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "You can do hard things.\n\nDo you want to take a short break?", msg)

	_, ok, err = f.m.Intervention(ctx, "k", distress)
	require.NoError(t, err)
	assert.False(t, ok, "second intervention inside five minutes")

	fired := 1
	for i := 1; i <= 5; i++ {
		now = now.Add(6 * time.Minute)
		_, ok, err := f.m.Intervention(ctx, "k", Sentiment{IsDistress: true, Severity: SeverityHigh})
		require.NoError(t, err)
		if ok {
			fired++
		}
	}
	assert.Equal(t, MaxInterventionsPerSession, fired)
}

func TestAssessEngagement(t *testing.T) {
	f := newFixture(t, llmtest.New())
	ctx := context.Background()
	now := time.Now().UTC()

	e, err := f.m.AssessEngagement(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, EngagementLow, e.Level)
	assert.Zero(t, e.TotalMessages)

	for day := 0; day < 3; day++ {
		for i := 0; i < 3; i++ {
			testutil.SeedTurn(t, ctx, f.db, f.student.ID, "s", "q", "a", now.AddDate(0, 0, -day).Add(-time.Duration(i)*time.Minute))
		}
	}
	// too old to count
	testutil.SeedTurn(t, ctx, f.db, f.student.ID, "s", "q", "a", now.AddDate(0, 0, -10))

	e, err = f.m.AssessEngagement(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, EngagementMedium, e.Level)
	assert.Equal(t, 9, e.TotalMessages)
	assert.Equal(t, 1.3, e.AvgMessagesPerDay)

	for day := 3; day < 6; day++ {
		for i := 0; i < 4; i++ {
			testutil.SeedTurn(t, ctx, f.db, f.student.ID, "s", "q", "a", now.AddDate(0, 0, -day).Add(-time.Duration(i)*time.Minute))
		}
	}
	e, err = f.m.AssessEngagement(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, EngagementHigh, e.Level)
	assert.GreaterOrEqual(t, e.ActiveDays, 5)
}

func TestShouldSendEncouragement(t *testing.T) {
	f := newFixture(t, llmtest.New())
	roll := 0.5
	f.m.chance = func() float64 { return roll }

	assert.True(t, f.m.ShouldSendEncouragement(Engagement{Level: EngagementLow}))
	assert.False(t, f.m.ShouldSendEncouragement(Engagement{Level: EngagementMedium}))
	assert.False(t, f.m.ShouldSendEncouragement(Engagement{Level: EngagementHigh}))
	roll = 0.1
	assert.True(t, f.m.ShouldSendEncouragement(Engagement{Level: EngagementHigh}))
	assert.False(t, f.m.ShouldSendEncouragement(Engagement{Level: EngagementMedium}))
}

func TestGenerateEncouragement(t *testing.T) {
	fake := llmtest.New(llmtest.Rule{Contains: "encouraging message", Reply: "  Keep shining like Saturday football!  "})
	f := newFixture(t, fake)
	ctx := context.Background()

	msg := f.m.GenerateEncouragement(ctx, f.student, Occasion{Struggle: "fractions"})
	assert.Equal(t, "Keep shining like Saturday football!", msg)
	assert.Contains(t, fake.Calls()[0].Prompt, "Struggle: fractions")

	logged, err := f.acts.List(ctx, f.student.ID, "encouragement_sent", 0)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, "Sent encouragement for fractions", logged[0].Reasoning)

	_ = f.m.GenerateEncouragement(actions.Suppress(ctx), f.student, Occasion{})
	logged, err = f.acts.List(ctx, f.student.ID, "encouragement_sent", 0)
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}

func TestGenerateEncouragementFallbacks(t *testing.T) {
	cases := []struct {
		name string
		err  error
		o    Occasion
		want string
	}{
		{"achievement", llm.ErrModelUnavailable, Occasion{Achievement: "your quiz"}, "Great job on your quiz! Keep it up!"},
		{"struggle", llm.ErrModelTimeout, Occasion{Struggle: "algebra"}, "Don't worry about algebra. You're making progress!"},
		{"general", llm.ErrModelUnavailable, Occasion{}, "You're doing great! Keep learning!"},
		{"other error", context.Canceled, Occasion{Achievement: "x"}, "You're doing amazing! Keep up the great work!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, llmtest.New().Default(llmtest.Rule{Err: tc.err}))
			got := f.m.GenerateEncouragement(context.Background(), f.student, tc.o)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCelebrateMilestone(t *testing.T) {
	fake := llmtest.New(llmtest.Rule{Contains: "encouraging message", Reply: "Brilliant work!"})
	f := newFixture(t, fake)
	ctx := context.Background()

	msg, err := f.m.CelebrateMilestone(ctx, f.student, "Finished fractions", map[string]any{"subject": "Mathematics"})
	require.NoError(t, err)
	assert.Equal(t, "Brilliant work!", msg)
	assert.Contains(t, fake.Calls()[0].Prompt, "Milestone: Finished fractions")

	mem, err := f.mem.Load(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, mem.ProgressMilestones, 1)
	assert.Equal(t, "Finished fractions", mem.ProgressMilestones[0].Milestone)
	assert.Equal(t, "Mathematics", mem.ProgressMilestones[0].Data["subject"])
}

func TestCheckInactivity(t *testing.T) {
	fake := llmtest.New(llmtest.Rule{Contains: "we miss you", Reply: "We miss you! Your football team needs its captain back."})
	f := newFixture(t, fake)
	ctx := context.Background()
	now := time.Now().UTC()
	f.m.now = func() time.Time { return now }

	_, _, ok, err := f.m.CheckInactivity(ctx, f.student)
	require.NoError(t, err)
	assert.False(t, ok, "no history")

	testutil.SeedTurn(t, ctx, f.db, f.student.ID, "s", "q", "a", now.Add(-50*time.Hour))
	_, days, ok, err := f.m.CheckInactivity(ctx, f.student)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, days)

	now = now.Add(24 * time.Hour)
	msg, days, ok, err := f.m.CheckInactivity(ctx, f.student)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, days)
	assert.Equal(t, "We miss you! Your football team needs its captain back.", msg)
	assert.Contains(t, fake.Calls()[0].Prompt, "hasn't studied in 3 days")
}

func TestCheckInactivityFallback(t *testing.T) {
	f := newFixture(t, llmtest.New().Default(llmtest.Rule{Err: llm.ErrModelUnavailable}))
	ctx := context.Background()
	testutil.SeedTurn(t, ctx, f.db, f.student.ID, "s", "q", "a", time.Now().UTC().AddDate(0, 0, -5))

	msg, days, ok, err := f.m.CheckInactivity(ctx, f.student)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, days)
	assert.Equal(t, "Hey Ada Obi! Long time no see. Ready to learn something new?", msg)
}
