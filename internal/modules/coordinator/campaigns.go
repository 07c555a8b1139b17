package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/agent"
	"github.com/i-am-the-robot/Edulife/internal/domain/notify"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/assessment"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/motivation"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/parentconnect"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/scheduling"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/tutoring"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
)

const (
	examWindow         = 30 * 24 * time.Hour
	examHoursPerDay    = 3
	weakMastery        = 0.6
	checkInWorkers     = 4
	notificationTTL    = 72 * time.Hour
	engagementStruggle = "staying engaged"
)

type ExamPlan struct {
	ExamDate           time.Time                     `json:"exam_date"`
	Subjects           []string                      `json:"subjects"`
	DaysUntilExam      int                           `json:"days_until_exam"`
	Knowledge          map[string]assessment.Mastery `json:"knowledge_assessment"`
	WeakSubjects       []string                      `json:"weak_subjects"`
	StudySchedule      scheduling.Allocation         `json:"study_schedule"`
	NextTopics         map[string]string             `json:"topic_recommendations"`
	MilestoneMessage   string                        `json:"milestone_message"`
	ContributingAgents []string                      `json:"contributing_agents"`
}

// ExamPrep grades each subject over the last 30 days, gives weak subjects
// priority in a three-hour daily plan, picks the next topic per subject and
// celebrates the start of preparation.
func (c *Coordinator) ExamPrep(ctx context.Context, studentID uuid.UUID, examDate time.Time, subjects []string) (*ExamPlan, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.ExamPrep")
	defer span.End()

	st, err := c.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("at least one subject is required")
	}
	now := c.now()
	plan := &ExamPlan{
		ExamDate:      examDate.UTC(),
		Subjects:      subjects,
		DaysUntilExam: int(examDate.Sub(now).Hours() / 24),
		Knowledge:     make(map[string]assessment.Mastery, len(subjects)),
		WeakSubjects:  []string{},
		NextTopics:    make(map[string]string, len(subjects)),
	}

	for _, subject := range subjects {
		m, err := c.assessor.EvaluateSubject(ctx, st.ID, subject, now.Add(-examWindow))
		if err != nil {
			return nil, err
		}
		plan.Knowledge[subject] = m
		if m.MasteryLevel < weakMastery {
			plan.WeakSubjects = append(plan.WeakSubjects, subject)
		}
	}
	plan.ContributingAgents = append(plan.ContributingAgents, AgentAssessment)

	plan.StudySchedule, err = c.scheduler.OptimizeStudyTime(ctx, st.ID, subjects, examHoursPerDay, plan.WeakSubjects)
	if err != nil {
		return nil, err
	}
	plan.ContributingAgents = append(plan.ContributingAgents, AgentScheduling)

	for _, subject := range subjects {
		plan.NextTopics[subject] = tutoring.RecommendNextTopic(subject, plan.Knowledge[subject].MasteryLevel)
	}
	plan.ContributingAgents = append(plan.ContributingAgents, AgentTutoring)

	plan.MilestoneMessage, err = c.motivator.CelebrateMilestone(ctx, st,
		fmt.Sprintf("Started %d-day exam preparation", plan.DaysUntilExam),
		map[string]any{"subjects": subjects, "exam_date": plan.ExamDate.Format(time.RFC3339)})
	if err != nil {
		c.log.Warn("record exam milestone failed", "student_id", st.ID, "error", err)
	}
	plan.ContributingAgents = append(plan.ContributingAgents, AgentMotivation)

	c.audit(ctx, st.ID, agent.ActionExamPrepCoordination, map[string]any{
		"agents_involved": plan.ContributingAgents,
		"subjects":        subjects,
		"days_until_exam": plan.DaysUntilExam,
	}, fmt.Sprintf("Coordinated %d agents for exam preparation", len(plan.ContributingAgents)))
	return plan, nil
}

type EngagementPlan struct {
	Engagement         motivation.Engagement     `json:"engagement_assessment"`
	Encouragement      string                    `json:"encouragement,omitempty"`
	ScheduleAdjustment *scheduling.BurnoutReport `json:"schedule_adjustment,omitempty"`
	FunTopic           string                    `json:"fun_topic_suggestion,omitempty"`
	ParentAlert        *parentconnect.Delivery   `json:"parent_alert,omitempty"`
	ContributingAgents []string                  `json:"contributing_agents"`
	Actions            []string                  `json:"actions"`
}

// LowEngagement re-engages a quiet student: an encouragement, a lighter
// schedule, a topic tied to their hobby, an in-app notification and a note
// to the parent. Nothing is sent when engagement is not low.
func (c *Coordinator) LowEngagement(ctx context.Context, studentID uuid.UUID) (*EngagementPlan, error) {
	st, err := c.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return c.lowEngagement(ctx, st)
}

func (c *Coordinator) lowEngagement(ctx context.Context, st *types.Student) (*EngagementPlan, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.LowEngagement")
	defer span.End()

	e, err := c.motivator.AssessEngagement(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	plan := &EngagementPlan{
		Engagement:         e,
		ContributingAgents: []string{AgentMotivation},
		Actions:            []string{},
	}
	if e.Level == motivation.EngagementLow {
		plan.Encouragement = c.motivator.GenerateEncouragement(ctx, st, motivation.Occasion{Struggle: engagementStruggle})
		plan.Actions = append(plan.Actions, "sent_encouragement")

		burnout, err := c.scheduler.PreventBurnout(st, scheduling.Activity{})
		if err != nil {
			return nil, err
		}
		plan.ScheduleAdjustment = &burnout
		plan.ContributingAgents = append(plan.ContributingAgents, AgentScheduling)
		plan.Actions = append(plan.Actions, "adjusted_schedule")

		plan.FunTopic = fmt.Sprintf("Explore how %s relates to learning", hobbyOf(st))
		plan.ContributingAgents = append(plan.ContributingAgents, AgentTutoring)
		plan.Actions = append(plan.Actions, "suggested_fun_topic")

		if err := c.notify(ctx, st.ID, notify.TypeEncourage, AgentMotivation, "We miss you!", plan.Encouragement,
			map[string]any{"fun_topic": plan.FunTopic}); err != nil {
			c.log.Warn("engagement notification failed", "student_id", st.ID, "error", err)
		} else {
			plan.Actions = append(plan.Actions, "notified_student")
		}

		days, err := c.daysInactive(ctx, st)
		if err != nil {
			return nil, err
		}
		d, err := c.connector.AlertLowEngagement(ctx, st, days)
		if err != nil {
			c.log.Warn("parent alert failed", "student_id", st.ID, "error", err)
		}
		plan.ParentAlert = &d
		if d.Sent {
			plan.ContributingAgents = append(plan.ContributingAgents, AgentParentConnect)
			plan.Actions = append(plan.Actions, "alerted_parent")
		}
	}

	c.audit(ctx, st.ID, agent.ActionLowEngagement, map[string]any{
		"agents_involved":  plan.ContributingAgents,
		"engagement_level": e.Level,
		"actions":          plan.Actions,
	}, fmt.Sprintf("Coordinated %d agents to address low engagement", len(plan.ContributingAgents)))
	return plan, nil
}

func hobbyOf(st *types.Student) string {
	if h := strings.TrimSpace(st.Hobby); h != "" {
		return h
	}
	return "your interests"
}

// daysInactive counts whole days since the student's last message, falling
// back to the last-active stamp.
func (c *Coordinator) daysInactive(ctx context.Context, st *types.Student) (int, error) {
	last, err := c.turns.ListRecent(dbctx.New(ctx), st.ID, "", 1)
	if err != nil {
		return 0, fmt.Errorf("last turn: %w", err)
	}
	var at time.Time
	switch {
	case len(last) > 0:
		at = last[0].Timestamp
	case st.LastActive != nil:
		at = *st.LastActive
	default:
		return 0, nil
	}
	return int(c.now().Sub(at).Hours() / 24), nil
}

func (c *Coordinator) notify(ctx context.Context, studentID uuid.UUID, kind, agentType, title, message string, data map[string]any) error {
	if c.inbox == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	expires := c.now().Add(notificationTTL)
	return c.inbox.Deliver(ctx, &types.Notification{
		StudentID:        studentID,
		NotificationType: kind,
		AgentType:        agentType,
		Title:            title,
		Message:          message,
		ActionData:       datatypes.JSON(raw),
		Priority:         notify.PriorityNormal,
		ExpiresAt:        &expires,
	})
}

type AgentReport struct {
	Level           string   `json:"engagement_level,omitempty"`
	BurnoutRisk     string   `json:"burnout_risk,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Pending         *int     `json:"assessments_pending,omitempty"`
	Recommendation  string   `json:"recommendation,omitempty"`
}

type CheckIn struct {
	StudentID    uuid.UUID                    `json:"student_id"`
	Timestamp    time.Time                    `json:"timestamp"`
	Reports      map[string]AgentReport       `json:"agent_reports"`
	Activity     parentconnect.ActivityReport `json:"activity"`
	ParentReport parentconnect.Delivery       `json:"parent_connect"`
}

// DailyCheckIn collects a report from every agent and sends the parent a
// summary of today's activity.
func (c *Coordinator) DailyCheckIn(ctx context.Context, studentID uuid.UUID) (*CheckIn, error) {
	st, err := c.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return c.dailyCheckIn(ctx, st)
}

func (c *Coordinator) dailyCheckIn(ctx context.Context, st *types.Student) (*CheckIn, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.DailyCheckIn")
	defer span.End()

	now := c.now()
	out := &CheckIn{StudentID: st.ID, Timestamp: now, Reports: map[string]AgentReport{}}

	e, err := c.motivator.AssessEngagement(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	rec := "Continue monitoring"
	if e.Level == motivation.EngagementLow {
		rec = "Send encouragement"
	}
	out.Reports[AgentMotivation] = AgentReport{Level: e.Level, Recommendation: rec}

	burnout, err := c.scheduler.PreventBurnout(st, scheduling.Activity{})
	if err != nil {
		return nil, err
	}
	out.Reports[AgentScheduling] = AgentReport{BurnoutRisk: burnout.Risk, Recommendations: burnout.Recommendations}

	pending := 0
	out.Reports[AgentAssessment] = AgentReport{Pending: &pending, Recommendation: "Monitor activity"}

	mem, err := c.memory.Load(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	review := "No review needed"
	if n := len(mem.TopicsToRevisit); n > 0 {
		review = fmt.Sprintf("Review %d topics", n)
	}
	out.Reports[AgentTutoring] = AgentReport{Recommendation: review}

	out.Activity, err = c.connector.DailyReport(ctx, st.ID, startOfDay(now))
	if err != nil {
		return nil, err
	}
	out.ParentReport, err = c.connector.NotifyDailySummary(ctx, st, out.Activity)
	if err != nil {
		c.log.Warn("daily summary failed", "student_id", st.ID, "error", err)
	}

	c.audit(ctx, st.ID, agent.ActionDailyCheckIn, map[string]any{
		"engagement_level": e.Level,
		"burnout_risk":     burnout.Risk,
		"parent_notified":  out.ParentReport.Sent,
	}, "Daily check-in across all agents")
	return out, nil
}

type Intervention struct {
	StudentID   uuid.UUID       `json:"student_id"`
	StudentName string          `json:"student_name"`
	Plan        *EngagementPlan `json:"intervention"`
}

type Sweep struct {
	StudentsChecked int            `json:"students_checked"`
	Interventions   []Intervention `json:"interventions"`
	CheckInsSent    int            `json:"check_ins_sent"`
	Failures        int            `json:"failures"`
	Timestamp       time.Time      `json:"timestamp"`
}

// RunDailyCheckIns checks in on every active student, a few at a time. Low
// engagement triggers LowEngagement, and students quiet for three days or
// more get a "we miss you" message. One student's failure does not stop the
// sweep.
func (c *Coordinator) RunDailyCheckIns(ctx context.Context) (*Sweep, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.RunDailyCheckIns")
	defer span.End()

	students, err := c.students.List(dbctx.New(ctx), repos.StudentFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	sweep := &Sweep{StudentsChecked: len(students), Interventions: []Intervention{}, Timestamp: c.now()}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(checkInWorkers)
	for _, st := range students {
		st := st
		g.Go(func() error {
			iv, sent, err := c.checkInStudent(gctx, st)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sweep.Failures++
				c.log.Warn("daily check-in failed", "student_id", st.ID, "error", err)
				return gctx.Err()
			}
			if iv != nil {
				sweep.Interventions = append(sweep.Interventions, *iv)
			}
			if sent {
				sweep.CheckInsSent++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sweep, err
	}
	c.log.Info("daily check-ins complete",
		"students", sweep.StudentsChecked,
		"interventions", len(sweep.Interventions),
		"check_ins", sweep.CheckInsSent,
		"failures", sweep.Failures)
	return sweep, nil
}

func (c *Coordinator) checkInStudent(ctx context.Context, st *types.Student) (*Intervention, bool, error) {
	report, err := c.dailyCheckIn(ctx, st)
	if err != nil {
		return nil, false, err
	}
	var iv *Intervention
	if report.Reports[AgentMotivation].Level == motivation.EngagementLow {
		plan, err := c.lowEngagement(ctx, st)
		if err != nil {
			return nil, false, err
		}
		iv = &Intervention{StudentID: st.ID, StudentName: st.FullName, Plan: plan}
	}
	sent, err := c.ProactiveCheckIn(ctx, st)
	if err != nil {
		return iv, false, err
	}
	return iv, sent, nil
}

// ProactiveCheckIn sends a "we miss you" notification to a student who has
// been away for three days or more.
func (c *Coordinator) ProactiveCheckIn(ctx context.Context, st *types.Student) (bool, error) {
	msg, days, ok, err := c.motivator.CheckInactivity(ctx, st)
	if err != nil || !ok {
		return false, err
	}
	if err := c.notify(ctx, st.ID, notify.TypeCheckIn, AgentMotivation, "We miss you!", msg,
		map[string]any{"days_inactive": days}); err != nil {
		return false, fmt.Errorf("deliver check-in: %w", err)
	}
	c.audit(ctx, st.ID, agent.ActionCheckIn, map[string]any{
		"days_inactive":  days,
		"message_length": len(msg),
	}, fmt.Sprintf("Student inactive for %d days", days))
	return true, nil
}
