package parentconnect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/testutil"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/actions"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/memory"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/prompts"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (m *recordingMailer) Send(_ context.Context, e Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, e)
	return nil
}

type recordingInbox struct {
	got []*types.Notification
}

func (i *recordingInbox) Deliver(_ context.Context, n *types.Notification) error {
	i.got = append(i.got, n)
	return nil
}

type fixture struct {
	db      *gorm.DB
	c       *Connector
	mailer  *recordingMailer
	inbox   *recordingInbox
	mem     memory.Service
	acts    actions.Service
	student *types.Student
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.DB(t)
	ctx := context.Background()
	log := testutil.Logger(t)
	sch := testutil.SeedSchool(t, ctx, db)
	st := testutil.SeedStudent(t, ctx, db, sch.ID)
	mem := memory.NewService(log, repos.NewAgentMemoryRepo(db, log))
	history := repos.NewAgentActionRepo(db, log)
	acts := actions.NewService(log, history)
	mailer := &recordingMailer{}
	inbox := &recordingInbox{}
	c := New(log, prompts.MustDefault(), mem, acts, history,
		repos.NewConversationTurnRepo(db, log), repos.NewTestResultRepo(db, log), mailer, inbox)
	return fixture{db: db, c: c, mailer: mailer, inbox: inbox, mem: mem, acts: acts, student: st}
}

func names(bs []Badge) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Name)
	}
	return out
}

func TestEarnedBadges(t *testing.T) {
	cases := []struct {
		name string
		p    Progress
		want []string
	}{
		{"nothing yet", Progress{}, []string{}},
		{"first session", Progress{Sessions: 1}, []string{"First Steps"}},
		{"curious", Progress{Sessions: 10, ActiveDays: 3}, []string{"First Steps", "Curious Learner", "Streak Keeper"}},
		{"champion", Progress{Tests: 5, Correct: 5}, []string{"Test Taker", "Test Champion"}},
		{"good but not champion", Progress{Tests: 20, Correct: 17}, []string{"Test Taker", "Getting Good"}},
		{"champion needs five tests", Progress{Tests: 4, Correct: 4}, []string{}},
		{"everything", Progress{Sessions: 50, Tests: 10, Correct: 10, ActiveDays: 7},
			[]string{"First Steps", "Curious Learner", "Chat Master", "Test Taker", "Getting Good", "Test Champion", "Streak Keeper", "Week Warrior"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, names(EarnedBadges(tc.p)))
		})
	}
}

func TestCheckNewBadges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for d := 0; d < 3; d++ {
		testutil.SeedTurn(t, ctx, f.db, f.student.ID, fmt.Sprintf("s%d", d), "q", "a", now.AddDate(0, 0, -d))
	}

	got, err := f.c.CheckNewBadges(ctx, f.student)
	require.NoError(t, err)
	assert.Equal(t, []string{"First Steps", "Streak Keeper"}, names(got))

	m, err := f.mem.Load(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, memory.BadgeNames(m), 2)
	for _, ms := range m.ProgressMilestones {
		assert.Equal(t, "badge", ms.Data["type"])
	}

	require.Len(t, f.inbox.got, 2)
	assert.Equal(t, "New badge: First Steps", f.inbox.got[0].Title)
	require.Len(t, f.mailer.sent, 2)
	assert.Equal(t, "parent@example.com", f.mailer.sent[0].ToEmail)
	assert.Contains(t, f.mailer.sent[0].Body, `"First Steps" badge`)
	assert.Contains(t, f.mailer.sent[0].Body, "Hello Mrs Obi")

	logged, err := f.acts.List(ctx, f.student.ID, "parent_notified", 0)
	require.NoError(t, err)
	assert.Len(t, logged, 2)

	// already announced
	got, err = f.c.CheckNewBadges(ctx, f.student)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, f.mailer.sent, 2)

	for i := 0; i < 5; i++ {
		testutil.SeedTestResult(t, ctx, f.db, f.student.ID, "Mathematics", true, now)
	}
	got, err = f.c.CheckNewBadges(actions.Suppress(ctx), f.student)
	require.NoError(t, err)
	assert.Equal(t, []string{"Test Taker", "Test Champion"}, names(got))
	logged, err = f.acts.List(ctx, f.student.ID, "parent_notified", 0)
	require.NoError(t, err)
	assert.Len(t, logged, 2, "suppressed context writes no audit rows")
}

func TestCheckNewBadgesWithoutParentEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.student.ParentEmail = ""
	testutil.SeedTurn(t, ctx, f.db, f.student.ID, "s", "q", "a", time.Now())

	got, err := f.c.CheckNewBadges(ctx, f.student)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, f.inbox.got, 1)
	assert.Empty(t, f.mailer.sent)
}

func TestDailySummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now().UTC().Add(-time.Hour)

	for _, subject := range []string{"Science", "Mathematics", "Science"} {
		turn := &types.ConversationTurn{StudentID: f.student.ID, SessionID: "s", Subject: subject, StudentMessage: "q", AIResponse: "a", Timestamp: time.Now().UTC()}
		require.NoError(t, repos.NewConversationTurnRepo(f.db, testutil.Logger(t)).Create(dbctx.New(ctx), turn))
	}
	testutil.SeedTestResult(t, ctx, f.db, f.student.ID, "Mathematics", true, time.Now().UTC())
	testutil.SeedTestResult(t, ctx, f.db, f.student.ID, "Mathematics", false, time.Now().UTC())

	r, err := f.c.DailyReport(ctx, f.student.ID, start)
	require.NoError(t, err)
	assert.Equal(t, 0, r.TotalActions)
	assert.Equal(t, 3, r.Messages)
	assert.Equal(t, []string{"Mathematics", "Science"}, r.Subjects)
	require.NotNil(t, r.QuizScore)
	assert.Equal(t, 50.0, *r.QuizScore)

	d, err := f.c.NotifyDailySummary(ctx, f.student, r)
	require.NoError(t, err)
	assert.False(t, d.Sent)
	assert.Equal(t, "low activity, skipping daily summary", d.Reason)

	r.TotalActions = 3
	d, err = f.c.NotifyDailySummary(ctx, f.student, r)
	require.NoError(t, err)
	assert.True(t, d.Sent)
	require.Len(t, f.mailer.sent, 1)
	body := f.mailer.sent[0].Body
	assert.Contains(t, body, "Subjects studied: Mathematics, Science")
	assert.Contains(t, body, "Quiz score: 50%")
	assert.Equal(t, "Daily update for Ada Obi", f.mailer.sent[0].Subject)
}

func TestAlertLowEngagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.c.AlertLowEngagement(ctx, f.student, 2)
	require.NoError(t, err)
	assert.False(t, d.Sent)

	d, err = f.c.AlertLowEngagement(ctx, f.student, 4)
	require.NoError(t, err)
	assert.True(t, d.Sent)
	assert.Contains(t, f.mailer.sent[0].Body, "in 4 days")

	f.mailer.err = errors.New("smtp down")
	d, err = f.c.AlertLowEngagement(ctx, f.student, 5)
	require.Error(t, err)
	assert.False(t, d.Sent)
}

func TestLogMailerNeedsRecipient(t *testing.T) {
	m := NewLogMailer(testutil.Logger(t))
	require.ErrorIs(t, m.Send(context.Background(), Email{Subject: "x"}), ErrNoRecipient)
	require.NoError(t, m.Send(context.Background(), Email{ToEmail: "a@b.c", Subject: "x"}))
}
