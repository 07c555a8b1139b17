package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-am-the-robot/Edulife/internal/data/repos/testutil"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/notify"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/motivation"
)

func TestExamPrepPrioritisesWeakSubjects(t *testing.T) {
	f := newFixture(t, script())
	ctx := context.Background()
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	for i := 0; i < 4; i++ {
		testutil.SeedTestResult(t, ctx, f.db, f.student.ID, "Mathematics", i == 0, yesterday)
		testutil.SeedTestResult(t, ctx, f.db, f.student.ID, "English", true, yesterday)
	}
	// outside the 30 day window
	testutil.SeedTestResult(t, ctx, f.db, f.student.ID, "English", false, time.Now().UTC().AddDate(0, 0, -45))

	exam := time.Now().UTC().AddDate(0, 0, 14).Add(time.Hour)
	plan, err := f.c.ExamPrep(ctx, f.student.ID, exam, []string{"Mathematics", "English"})
	require.NoError(t, err)

	assert.Equal(t, 14, plan.DaysUntilExam)
	assert.Equal(t, []string{"Mathematics"}, plan.WeakSubjects)
	assert.InDelta(t, 0.25, plan.Knowledge["Mathematics"].MasteryLevel, 1e-9)
	assert.InDelta(t, 1.0, plan.Knowledge["English"].MasteryLevel, 1e-9)
	assert.Equal(t, map[string]int{"Mathematics": 72, "English": 108}, plan.StudySchedule.DailySchedule)
	assert.Equal(t, "Review fundamentals of Mathematics", plan.NextTopics["Mathematics"])
	assert.Equal(t, "Advanced applications of English", plan.NextTopics["English"])
	assert.Equal(t, encouragement, plan.MilestoneMessage)
	assert.Equal(t, []string{AgentAssessment, AgentScheduling, AgentTutoring, AgentMotivation}, plan.ContributingAgents)

	mem, err := f.mem.Load(ctx, f.student.ID)
	require.NoError(t, err)
	require.NotEmpty(t, mem.ProgressMilestones)

	logged, err := f.acts.List(ctx, f.student.ID, "exam_prep_coordination", 0)
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}

func TestExamPrepRequiresSubjects(t *testing.T) {
	f := newFixture(t, script())
	_, err := f.c.ExamPrep(context.Background(), f.student.ID, time.Now().AddDate(0, 0, 7), nil)
	require.Error(t, err)

	_, err = f.c.ExamPrep(context.Background(), uuid.New(), time.Now().AddDate(0, 0, 7), []string{"English"})
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestLowEngagementReachesStudentAndParent(t *testing.T) {
	f := newFixture(t, script())
	ctx := context.Background()
	testutil.SeedTurn(t, ctx, f.db, f.student.ID, "s", "hi", "hello", time.Now().UTC().AddDate(0, 0, -4))

	plan, err := f.c.LowEngagement(ctx, f.student.ID)
	require.NoError(t, err)

	assert.Equal(t, motivation.EngagementLow, plan.Engagement.Level)
	assert.Equal(t, encouragement, plan.Encouragement)
	require.NotNil(t, plan.ScheduleAdjustment)
	assert.Equal(t, "Explore how football relates to learning", plan.FunTopic)
	require.NotNil(t, plan.ParentAlert)
	assert.True(t, plan.ParentAlert.Sent)
	assert.Contains(t, plan.Actions, "alerted_parent")
	assert.Contains(t, plan.ContributingAgents, AgentParentConnect)

	sent := f.inbox.ofType(notify.TypeEncourage)
	require.Len(t, sent, 1)
	assert.Equal(t, "We miss you!", sent[0].Title)
	assert.Contains(t, string(sent[0].ActionData), "football")
	require.NotNil(t, sent[0].ExpiresAt)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "inactivity_alert", f.mailer.sent[0].Category)

	logged, err := f.acts.List(ctx, f.student.ID, "low_engagement_intervention", 0)
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}

func TestLowEngagementLeavesActiveStudentsAlone(t *testing.T) {
	f := newFixture(t, script())
	ctx := context.Background()
	now := time.Now().UTC()
	for day := 0; day < 6; day++ {
		for i := 0; i < 4; i++ {
			testutil.SeedTurn(t, ctx, f.db, f.student.ID, "s", "q", "a", now.AddDate(0, 0, -day).Add(-time.Duration(i)*time.Minute))
		}
	}

	plan, err := f.c.LowEngagement(ctx, f.student.ID)
	require.NoError(t, err)

	assert.Equal(t, motivation.EngagementHigh, plan.Engagement.Level)
	assert.Empty(t, plan.Encouragement)
	assert.Nil(t, plan.ParentAlert)
	assert.Empty(t, plan.Actions)
	assert.Empty(t, f.inbox.ofType(notify.TypeEncourage))
	assert.Empty(t, f.mailer.sent)
}

func TestDailyCheckInQuietDay(t *testing.T) {
	f := newFixture(t, script())
	ctx := context.Background()

	report, err := f.c.DailyCheckIn(ctx, f.student.ID)
	require.NoError(t, err)

	assert.Equal(t, "Send encouragement", report.Reports[AgentMotivation].Recommendation)
	assert.Equal(t, "low", report.Reports[AgentScheduling].BurnoutRisk)
	require.NotNil(t, report.Reports[AgentAssessment].Pending)
	assert.Equal(t, 0, *report.Reports[AgentAssessment].Pending)
	assert.Equal(t, "No review needed", report.Reports[AgentTutoring].Recommendation)
	assert.False(t, report.ParentReport.Sent)
	assert.Equal(t, "low activity, skipping daily summary", report.ParentReport.Reason)
	assert.Empty(t, f.mailer.sent)

	logged, err := f.acts.List(ctx, f.student.ID, "daily_check_in", 0)
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}

func TestDailyCheckInCountsTopicsToRevisit(t *testing.T) {
	f := newFixture(t, script())
	ctx := context.Background()
	require.NoError(t, f.mem.AddTopicToRevisit(ctx, f.student.ID, "Fractions", "Low mastery: 20%"))
	require.NoError(t, f.mem.AddTopicToRevisit(ctx, f.student.ID, "Decimals", "Low mastery: 40%"))

	report, err := f.c.DailyCheckIn(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Review 2 topics", report.Reports[AgentTutoring].Recommendation)
}

func TestRunDailyCheckIns(t *testing.T) {
	f := newFixture(t, script())
	ctx := context.Background()
	testutil.SeedTurn(t, ctx, f.db, f.student.ID, "s", "hi", "hello", time.Now().UTC().AddDate(0, 0, -4))
	ben := testutil.SeedStudent(t, ctx, f.db, f.school.ID, func(st *types.Student) {
		st.FullName = "Ben Eze"
		st.ParentEmail = "eze@example.com"
	})
	testutil.SeedStudent(t, ctx, f.db, f.school.ID, func(st *types.Student) {
		st.FullName = "Chi Okafor"
		st.IsActive = false
	})

	sweep, err := f.c.RunDailyCheckIns(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, sweep.StudentsChecked)
	assert.Len(t, sweep.Interventions, 2)
	assert.Equal(t, 1, sweep.CheckInsSent)
	assert.Zero(t, sweep.Failures)

	checkIns := f.inbox.ofType(notify.TypeCheckIn)
	require.Len(t, checkIns, 1)
	assert.Equal(t, f.student.ID, checkIns[0].StudentID)
	assert.Contains(t, string(checkIns[0].ActionData), `"days_inactive":4`)
	assert.Len(t, f.inbox.ofType(notify.TypeEncourage), 2)

	logged, err := f.acts.List(ctx, ben.ID, "check_in", 0)
	require.NoError(t, err)
	assert.Empty(t, logged)
	logged, err = f.acts.List(ctx, f.student.ID, "check_in", 0)
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}
