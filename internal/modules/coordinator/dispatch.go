package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/actions"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/assessment"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/motivation"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/parentconnect"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/scheduling"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/tutoring"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/llm"
)

const (
	branchExplanation = "explanation"
	branchConfusion   = "confusion"
	branchSentiment   = "sentiment"
	branchAssessment  = "assessment"
	branchPractice    = "practice"
	branchMotivation  = "motivation"
	branchFatigue     = "fatigue"
	branchBadges      = "badges"
	branchSchedule    = "schedule"

	defaultBreakTip = "Take a break!"
	encourageFor    = "asking great questions"
)

// contributions collects branch output. Each field has a single writer and
// is read only after the join.
type contributions struct {
	explanation   string
	explainErr    error
	confusion     *tutoring.ConfusionAnalysis
	quiz          *assessment.Quiz
	practice      *scheduling.Allocation
	intervention  string
	encouragement string
	breakTip      string
	badges        []parentconnect.Badge
	scheduleMsg   string
}

func branchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, llm.ErrModelTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "error"
}

func safely(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// branch wraps fn with the branch timeout, a span and metrics. The returned
// func never fails, so one branch cannot cancel the others.
func (c *Coordinator) branch(ctx context.Context, name string, fn func(context.Context) error) func() error {
	return func() error {
		bctx, cancel := context.WithTimeout(ctx, c.branchTimeout)
		defer cancel()
		bctx, span := c.tracer.Start(bctx, "coordinator.branch", trace.WithAttributes(attribute.String("branch", name)))
		defer span.End()

		err := safely(bctx, fn)
		outcome := branchOutcome(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			c.log.Warn("branch contributed nothing", "branch", name, "outcome", outcome, "error", err)
		}
		c.metrics.ObserveBranch(name, outcome)
		return nil
	}
}

func sessionKey(req Request) string {
	return req.StudentID.String() + ":" + req.SessionID
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dispatch runs every branch concurrently and waits for all of them.
// onExplanation, when set, is called from the explanation branch once the
// explanation and the intervention decision are both known, with whichever
// text the merge will put first.
func (c *Coordinator) dispatch(ctx context.Context, st *types.Student, req Request, intent tutoring.Intent, history string, onExplanation func(string)) *contributions {
	out := &contributions{}
	ctx = actions.Suppress(ctx)
	confusion := newFuture[tutoring.ConfusionAnalysis]()
	sentiment := newFuture[motivation.Sentiment]()
	support := newFuture[string]()
	// BuildQuiz and CheckNewBadges both rewrite the memory record; the quiz
	// stamp goes second so it cannot drop a badge milestone.
	badgesChecked := newFuture[struct{}]()

	var g errgroup.Group

	g.Go(c.branch(ctx, branchExplanation, func(ctx context.Context) error {
		text, err := c.tutor.GenerateExplanation(ctx, tutoring.ExplanationRequest{
			Student: st,
			Message: req.Message,
			Subject: req.Subject,
			History: history,
		})
		if err != nil {
			out.explainErr = err
			text = tutoring.FallbackReply
		}
		out.explanation = text
		if onExplanation != nil {
			if msg, werr := support.wait(ctx); werr == nil && msg != "" {
				text = msg
			}
			if ctx.Err() == nil {
				onExplanation(text)
			}
		}
		return err
	}))

	g.Go(c.branch(ctx, branchConfusion, func(ctx context.Context) error {
		defer confusion.resolve(tutoring.ConfusionAnalysis{}, errUnresolved)
		a, err := c.tutor.AnalyzeConfusion(ctx, st, req.Message, req.Subject, history)
		confusion.resolve(a, err)
		if err != nil {
			return err
		}
		out.confusion = &a
		return nil
	}))

	g.Go(c.branch(ctx, branchSentiment, func(ctx context.Context) error {
		defer sentiment.resolve(motivation.Sentiment{}, errUnresolved)
		s, err := c.motivator.AnalyzeSentiment(ctx, req.Message)
		sentiment.resolve(s, err)
		return err
	}))

	g.Go(c.branch(ctx, branchAssessment, func(ctx context.Context) error {
		a, aerr := confusion.wait(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		sig, err := c.assessor.CollectSignals(ctx, st.ID, req.Message, intent.Type == tutoring.IntentQuizRequest)
		if err != nil {
			return err
		}
		d, err := c.assessor.ShouldAssess(ctx, st.ID, req.Subject, sig)
		if err != nil || !d.ShouldAssess {
			return err
		}
		topic := req.Subject
		if aerr == nil && a.MainTopic != "" {
			topic = a.MainTopic
		}
		if _, err := badgesChecked.wait(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		quiz, err := c.assessor.BuildQuiz(ctx, st, req.Subject, topic, d)
		if err != nil {
			return err
		}
		out.quiz = quiz
		return nil
	}))

	g.Go(c.branch(ctx, branchPractice, func(ctx context.Context) error {
		a, aerr := confusion.wait(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if aerr != nil || !a.Confused() {
			return nil
		}
		subjects := []string{req.Subject}
		alloc, err := c.scheduler.OptimizeStudyTime(ctx, st.ID, subjects, 1, subjects)
		if err != nil {
			return err
		}
		out.practice = &alloc
		return nil
	}))

	g.Go(c.branch(ctx, branchMotivation, func(ctx context.Context) error {
		defer support.resolve("", errUnresolved)
		s, serr := sentiment.wait(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if serr == nil {
			msg, ok, err := c.motivator.Intervention(ctx, sessionKey(req), s)
			if err != nil {
				c.log.Warn("intervention gate failed", "student_id", st.ID, "error", err)
			}
			if ok {
				out.intervention = msg
				support.resolve(msg, nil)
				return nil
			}
		}
		support.resolve("", nil)
		e, err := c.motivator.AssessEngagement(ctx, st.ID)
		if err != nil {
			return err
		}
		if !c.motivator.ShouldSendEncouragement(e) {
			return nil
		}
		msg := c.motivator.GenerateEncouragement(ctx, st, motivation.Occasion{
			Achievement: encourageFor,
			Struggle:    req.Subject,
		})
		if err := ctx.Err(); err != nil {
			return err
		}
		out.encouragement = msg
		return nil
	}))

	g.Go(c.branch(ctx, branchFatigue, func(ctx context.Context) error {
		n, err := c.turns.CountSince(dbctx.New(ctx), st.ID, startOfDay(c.now()))
		if err != nil {
			return fmt.Errorf("count today's turns: %w", err)
		}
		days := st.CurrentStreak
		if days < 1 {
			days = 1
		}
		minutes := int(n) * 2
		r, err := c.scheduler.PreventBurnout(st, scheduling.Activity{
			SessionsToday:         1,
			MinutesToday:          minutes,
			CurrentSessionMinutes: minutes,
			ConsecutiveDays:       days,
			FatigueSigns:          utf8.RuneCountInString(req.Message) < 5,
		})
		if err != nil || !r.BreakNeeded {
			return err
		}
		out.breakTip = defaultBreakTip
		if len(r.Recommendations) > 0 {
			out.breakTip = r.Recommendations[0]
		}
		return nil
	}))

	g.Go(c.branch(ctx, branchBadges, func(ctx context.Context) error {
		defer badgesChecked.resolve(struct{}{}, errUnresolved)
		badges, err := c.connector.CheckNewBadges(ctx, st)
		badgesChecked.resolve(struct{}{}, err)
		if err != nil {
			return err
		}
		out.badges = badges
		return nil
	}))

	g.Go(c.branch(ctx, branchSchedule, func(ctx context.Context) error {
		due, err := c.scheduler.ShouldProactivelySchedule(ctx, st.ID)
		if err != nil || !due {
			return err
		}
		if _, err := c.scheduler.CreateFullSchedule(ctx, st); err != nil {
			return err
		}
		out.scheduleMsg = c.scheduler.CreatedMessage()
		return nil
	}))

	_ = g.Wait()
	return out
}

// merge assembles the reply. A distress intervention replaces the
// explanation; everything else is a separate field.
func merge(intent tutoring.Intent, out *contributions) *Reply {
	r := &Reply{
		ReplyText:          out.explanation,
		Intent:             intent.Type,
		Confusion:          out.confusion,
		ContributingAgents: []string{},
		ActionsTaken:       []string{},
	}
	if r.ReplyText == "" {
		r.ReplyText = tutoring.FallbackReply
	}
	if out.intervention != "" {
		r.ReplyText = out.intervention
		r.ContributingAgents = append(r.ContributingAgents, AgentIntervention)
		r.ActionsTaken = append(r.ActionsTaken, "offered_support")
	}
	r.ContributingAgents = append(r.ContributingAgents, AgentTutoring)
	r.ActionsTaken = append(r.ActionsTaken, "provided_explanation")

	if out.quiz != nil {
		r.Quiz = out.quiz
		r.ContributingAgents = append(r.ContributingAgents, AgentAssessment)
		r.ActionsTaken = append(r.ActionsTaken, "generated_quiz")
	}
	if out.practice != nil {
		r.Schedule = out.practice
		r.ContributingAgents = append(r.ContributingAgents, AgentScheduling)
		r.ActionsTaken = append(r.ActionsTaken, "scheduled_practice")
	}
	if out.intervention == "" && out.encouragement != "" {
		r.Encouragement = out.encouragement
		r.ContributingAgents = append(r.ContributingAgents, AgentMotivation)
		r.ActionsTaken = append(r.ActionsTaken, "sent_encouragement")
	}
	if out.breakTip != "" {
		r.BreakSuggestion = out.breakTip
		r.ContributingAgents = append(r.ContributingAgents, AgentFatigueMonitor)
		r.ActionsTaken = append(r.ActionsTaken, "suggested_break")
	}
	if len(out.badges) > 0 {
		r.NewBadges = out.badges
		r.ContributingAgents = append(r.ContributingAgents, AgentParentConnect)
		r.ActionsTaken = append(r.ActionsTaken, "awarded_badges")
	}
	if out.scheduleMsg != "" {
		r.ScheduleMessage = out.scheduleMsg
		r.ContributingAgents = append(r.ContributingAgents, AgentProactiveSchedule)
		r.ActionsTaken = append(r.ActionsTaken, "created_timetable")
	}
	return r
}
