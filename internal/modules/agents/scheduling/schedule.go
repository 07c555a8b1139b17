package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/agent"
	"github.com/i-am-the-robot/Edulife/internal/domain/learning"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/prompts"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/llm"
)

const (
	SourceModel   = "model"
	SourceDefault = "default"

	scheduleHoursPerDay = 1.5
)

// Weekdays are the days a generated plan covers, in order.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}

var fallbackSubjects = []string{"Mathematics", "English", "Science"}

// Slot is one block of a generated plan. Subject and Priority are null for
// breaks.
type Slot struct {
	Time     string  `json:"time"`
	Duration int     `json:"duration"`
	Subject  *string `json:"subject"`
	Topic    string  `json:"topic"`
	Type     string  `json:"type"`
	Priority *string `json:"priority"`
}

// WeeklyPlan is keyed by lower-case weekday.
type WeeklyPlan map[string][]Slot

func (p WeeklyPlan) Len() int {
	n := 0
	for _, day := range p {
		n += len(day)
	}
	return n
}

type ScheduleResult struct {
	Schedule          WeeklyPlan          `json:"schedule"`
	Source            string              `json:"source"`
	PerformanceLevels map[string][]string `json:"performance_levels"`
	WeakSubjects      []string            `json:"weak_subjects"`
	Allocation        Allocation          `json:"allocation"`
	BurnoutRisk       string              `json:"burnout_risk"`
	BestTime          string              `json:"best_time"`
	EntriesSaved      int                 `json:"entries_saved"`
}

func strp(s string) *string { return &s }

func block(at string, minutes int, subject, topic, kind, priority string) Slot {
	s := Slot{Time: at, Duration: minutes, Topic: topic, Type: kind}
	if subject != "" {
		s.Subject = strp(subject)
	}
	if priority != "" {
		s.Priority = strp(priority)
	}
	return s
}

// DefaultSchedule is the fixed plan used when no plan can be generated.
func DefaultSchedule() WeeklyPlan {
	brk := func(at string) Slot { return block(at, 15, "", "Break", learning.ActivityBreak, "") }
	return WeeklyPlan{
		"monday": {
			block("17:00", 30, "Mathematics", "Algebra Review", learning.ActivityStudy, "high"),
			brk("17:30"),
			block("17:45", 30, "Science", "Biology Basics", learning.ActivityStudy, "high"),
			brk("18:15"),
			block("18:30", 30, "English", "Reading Practice", learning.ActivityStudy, "medium"),
		},
		"tuesday": {
			block("17:00", 30, "History", "World History", learning.ActivityStudy, "medium"),
			brk("17:30"),
			block("17:45", 30, "Mathematics", "Geometry", learning.ActivityStudy, "high"),
			brk("18:15"),
			block("18:30", 30, "Science", "Chemistry", learning.ActivityStudy, "high"),
		},
		"wednesday": {
			block("17:00", 30, "English", "Grammar", learning.ActivityStudy, "medium"),
			brk("17:30"),
			block("17:45", 30, "Geography", "Physical Geography", learning.ActivityStudy, "low"),
			brk("18:15"),
			block("18:30", 30, "Mathematics", "Assignment Prep", learning.ActivityAssignment, "high"),
		},
		"thursday": {
			block("17:00", 30, "Science", "Physics", learning.ActivityStudy, "high"),
			brk("17:30"),
			block("17:45", 30, "History", "Local History", learning.ActivityStudy, "medium"),
			brk("18:15"),
			block("18:30", 30, "English", "Writing Practice", learning.ActivityStudy, "medium"),
		},
		"friday": {
			block("17:00", 30, "Mathematics", "Week Review", learning.ActivityReview, "medium"),
			brk("17:30"),
			block("17:45", 30, "Science", "Week Review", learning.ActivityReview, "medium"),
			block("18:15", 30, "", "Free Time / Hobbies", learning.ActivityBreak, ""),
		},
	}
}

var clockLayouts = []string{"15:04", "3:04 PM", "3:04PM", "3:04 pm", "3:04pm", "3 PM", "3PM", "3 pm", "3pm"}

// normalizeClock turns "5:00 PM" or "17:00" into "17:00".
func normalizeClock(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func activityType(s string) string {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case learning.ActivityStudy, learning.ActivityBreak, learning.ActivityReview, learning.ActivityAssignment:
		return s
	}
	return learning.ActivityStudy
}

// Entries flattens the plan into timetable rows. Slots with an unreadable
// time are skipped.
func (p WeeklyPlan) Entries() []*types.TimetableEntry {
	var out []*types.TimetableEntry
	for _, day := range Weekdays {
		for _, slot := range p[day] {
			start, ok := normalizeClock(slot.Time)
			if !ok {
				continue
			}
			minutes := slot.Duration
			if minutes <= 0 {
				minutes = 30
			}
			e := &types.TimetableEntry{
				DayOfWeek:    strings.ToUpper(day[:1]) + day[1:],
				StartTime:    start.Format("15:04"),
				EndTime:      start.Add(time.Duration(minutes) * time.Minute).Format("15:04"),
				Subject:      "Break",
				FocusTopic:   slot.Topic,
				ActivityType: activityType(slot.Type),
			}
			if slot.Subject != nil && strings.TrimSpace(*slot.Subject) != "" {
				e.Subject = strings.TrimSpace(*slot.Subject)
			}
			if slot.Priority != nil {
				e.Priority = *slot.Priority
			}
			out = append(out, e)
		}
	}
	return out
}

func decodePlan(text string) (WeeklyPlan, error) {
	var raw map[string][]Slot
	if err := llm.DecodeJSON(text, &raw); err != nil {
		return nil, err
	}
	plan := WeeklyPlan{}
	for day, slots := range raw {
		plan[strings.ToLower(strings.TrimSpace(day))] = slots
	}
	if len(plan.Entries()) == 0 {
		return nil, fmt.Errorf("schedule has no usable slots")
	}
	return plan, nil
}

// CreateFullSchedule builds a weekly timetable from the student's results,
// asks the model to lay it out and replaces the stored timetable. When the
// model fails the default plan is saved instead.
func (s *Scheduler) CreateFullSchedule(ctx context.Context, st *types.Student) (ScheduleResult, error) {
	dbc := dbctx.New(ctx)
	by, err := s.results.AccuracyBySubject(dbc, st.ID, time.Time{})
	if err != nil {
		return ScheduleResult{}, fmt.Errorf("subject accuracy: %w", err)
	}
	levels := PerformanceLevels(by)
	weak := append(append([]string{}, levels["struggling"]...), levels["developing"]...)

	var subjects []string
	for _, k := range []string{"struggling", "developing", "proficient", "mastery"} {
		subjects = append(subjects, levels[k]...)
	}
	if len(subjects) == 0 {
		subjects = fallbackSubjects
	}
	alloc, err := s.OptimizeStudyTime(ctx, st.ID, subjects, scheduleHoursPerDay, weak)
	if err != nil {
		return ScheduleResult{}, err
	}
	burnout, err := s.PreventBurnout(st, Activity{ConsecutiveDays: st.CurrentStreak})
	if err != nil {
		return ScheduleResult{}, err
	}
	best, err := s.SuggestBestStudyTime(ctx, st)
	if err != nil {
		return ScheduleResult{}, err
	}

	allocJSON, _ := json.Marshal(alloc.DailySchedule)
	res := ScheduleResult{
		Source:            SourceModel,
		PerformanceLevels: levels,
		WeakSubjects:      weak,
		Allocation:        alloc,
		BurnoutRisk:       burnout.Risk,
		BestTime:          best,
	}
	text, err := s.prompts.Complete(ctx, s.client, "scheduling.weekly", prompts.PromptWeeklySchedule, prompts.Input{
		StudentName:      st.FullName,
		Age:              st.Age,
		StudentClass:     st.StudentClass,
		Personality:      st.Personality,
		Hobby:            st.Hobby,
		WeakSubjects:     joinComma(weak),
		Allocations:      string(allocJSON),
		BurnoutRisk:      burnout.Risk,
		BestTime:         best,
		CurriculumTopics: s.curriculum.Render(st.StudentClass),
	})
	if err == nil {
		res.Schedule, err = decodePlan(text)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ScheduleResult{}, ctx.Err()
		}
		s.log.Warn("weekly schedule generation failed, using default", "student_id", st.ID, "error", err)
		res.Schedule = DefaultSchedule()
		res.Source = SourceDefault
	}

	entries := res.Schedule.Entries()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.timetable.Replace(dbc.WithTx(tx), st.ID, entries)
	})
	if err != nil {
		return ScheduleResult{}, fmt.Errorf("save timetable: %w", err)
	}
	res.EntriesSaved = len(entries)

	if s.actions != nil {
		if _, err := s.actions.Log(ctx, st.ID, agent.ActionScheduleCreated, map[string]any{
			"items_count": res.EntriesSaved,
			"source":      res.Source,
			"strategy":    "performance_adaptive",
		}, "Generated full weekly schedule"); err != nil {
			s.log.Warn("log schedule action failed", "student_id", st.ID, "error", err)
		}
	}
	return res, nil
}

// CreatedMessage is appended to a chat reply after a proactive schedule.
func (s *Scheduler) CreatedMessage() string {
	msg, err := s.prompts.Message(prompts.MessageScheduleCreated, nil)
	if err != nil {
		return ""
	}
	return msg
}
