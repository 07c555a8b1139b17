// Package scheduling plans study time: per-subject allocations, burnout
// checks, timetable suggestions and generated weekly timetables.
package scheduling

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/actions"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/memory"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/prompts"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/rules"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/llm"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

const (
	StrategyInversePerformance = "inverse_performance_weighting"

	performanceWindow = 30 * 24 * time.Hour
	defaultAccuracy   = 0.5
	priorityShare     = 0.4
)

type Allocation struct {
	DailySchedule        map[string]int `json:"daily_schedule"`
	TotalMinutes         int            `json:"total_minutes"`
	OptimizationStrategy string         `json:"optimization_strategy"`
}

// Allocate splits hoursPerDay across subjects. Priority subjects share 40%
// of the time evenly. The other subjects share the rest in proportion to
// 1 - accuracy, so weaker subjects get more time; missing accuracies count
// as 0.5. Every share is truncated to whole minutes.
func Allocate(subjects []string, hoursPerDay float64, priority []string, accuracy map[string]float64) Allocation {
	total := int(hoursPerDay * 60)
	out := Allocation{
		DailySchedule:        map[string]int{},
		TotalMinutes:         total,
		OptimizationStrategy: StrategyInversePerformance,
	}
	remaining := float64(total)
	isPriority := map[string]bool{}
	if len(priority) > 0 {
		share := float64(total) * priorityShare
		per := share / float64(len(priority))
		for _, p := range priority {
			isPriority[p] = true
			out.DailySchedule[p] = wholeMinutes(per)
		}
		remaining -= share
	}

	var others []string
	for _, s := range subjects {
		if !isPriority[s] {
			others = append(others, s)
		}
	}
	if len(others) == 0 {
		return out
	}
	weights := make(map[string]float64, len(others))
	var sum float64
	for _, s := range others {
		acc, ok := accuracy[s]
		if !ok {
			acc = defaultAccuracy
		}
		weights[s] = 1 - acc
		sum += weights[s]
	}
	for _, s := range others {
		if sum > 0 {
			out.DailySchedule[s] = wholeMinutes(weights[s] / sum * remaining)
		} else {
			out.DailySchedule[s] = wholeMinutes(remaining / float64(len(others)))
		}
	}
	return out
}

// wholeMinutes truncates, ignoring rounding noise such as 11.999999999.
func wholeMinutes(m float64) int {
	return int(math.Floor(m + 1e-9))
}

// Activity is what the burnout check knows about today's studying.
type Activity struct {
	SessionsToday         int
	MinutesToday          int
	CurrentSessionMinutes int
	ConsecutiveDays       int
	FatigueSigns          bool
}

type BurnoutReport struct {
	Risk            string         `json:"burnout_risk"`
	BreakNeeded     bool           `json:"is_break_needed"`
	Recommendations []string       `json:"recommendations"`
	MaxSession      int            `json:"max_session_minutes"`
	Metrics         map[string]int `json:"metrics"`
}

var riskRank = map[string]int{"low": 0, "medium": 1, "high": 2}

type Scheduler struct {
	log        *logger.Logger
	db         *gorm.DB
	client     llm.Client
	prompts    *prompts.Registry
	rules      *rules.Engine
	curriculum *Curriculum
	memory     memory.Service
	actions    actions.Logger
	results    repos.TestResultRepo
	timetable  repos.TimetableRepo
	now        func() time.Time
}

func New(
	log *logger.Logger,
	db *gorm.DB,
	client llm.Client,
	reg *prompts.Registry,
	engine *rules.Engine,
	curriculum *Curriculum,
	mem memory.Service,
	acts actions.Logger,
	results repos.TestResultRepo,
	timetable repos.TimetableRepo,
) *Scheduler {
	if curriculum == nil {
		curriculum = DefaultCurriculum()
	}
	return &Scheduler{
		log:        log.With("agent", "scheduling"),
		db:         db,
		client:     client,
		prompts:    reg,
		rules:      engine,
		curriculum: curriculum,
		memory:     mem,
		actions:    acts,
		results:    results,
		timetable:  timetable,
		now:        time.Now,
	}
}

func rates(by map[string]repos.Accuracy) map[string]float64 {
	out := make(map[string]float64, len(by))
	for s, a := range by {
		if r, ok := a.Rate(); ok {
			out[s] = r
		}
	}
	return out
}

// OptimizeStudyTime allocates daily minutes using the last 30 days of
// results.
func (s *Scheduler) OptimizeStudyTime(ctx context.Context, studentID uuid.UUID, subjects []string, hoursPerDay float64, priority []string) (Allocation, error) {
	by, err := s.results.AccuracyBySubject(dbctx.New(ctx), studentID, s.now().UTC().Add(-performanceWindow))
	if err != nil {
		return Allocation{}, fmt.Errorf("subject accuracy: %w", err)
	}
	return Allocate(subjects, hoursPerDay, priority, rates(by)), nil
}

// MaxSession is the longest continuous session suited to age, in minutes.
func (s *Scheduler) MaxSession(age int) (int, error) {
	m, ok, err := s.rules.First(rules.TableMaxSession, map[string]any{"age": age})
	if err != nil {
		return 0, err
	}
	if !ok {
		return 90, nil
	}
	return m.Int("minutes"), nil
}

// PreventBurnout runs the burnout table. The reported risk is the highest
// risk of any rule that fired.
func (s *Scheduler) PreventBurnout(st *types.Student, a Activity) (BurnoutReport, error) {
	maxSession, err := s.MaxSession(st.Age)
	if err != nil {
		return BurnoutReport{}, err
	}
	matches, err := s.rules.Eval(rules.TableBurnout, map[string]any{
		"max_session":             maxSession,
		"current_session_minutes": a.CurrentSessionMinutes,
		"minutes_today":           a.MinutesToday,
		"fatigue_signs":           a.FatigueSigns,
		"consecutive_days":        a.ConsecutiveDays,
	})
	if err != nil {
		return BurnoutReport{}, err
	}
	out := BurnoutReport{
		Risk:            "low",
		Recommendations: []string{},
		MaxSession:      maxSession,
		Metrics: map[string]int{
			"sessions_today":          a.SessionsToday,
			"current_session_minutes": a.CurrentSessionMinutes,
		},
	}
	for _, m := range matches {
		if r := m.String("risk"); riskRank[r] > riskRank[out.Risk] {
			out.Risk = r
		}
		if m.Bool("break_needed") {
			out.BreakNeeded = true
			out.Metrics["current_session_minutes"] = 0
		}
		out.Recommendations = append(out.Recommendations, m.Strings("recommendations")...)
	}
	return out, nil
}

// SuggestBestStudyTime returns the remembered best time of day, or a default
// by age.
func (s *Scheduler) SuggestBestStudyTime(ctx context.Context, st *types.Student) (string, error) {
	m, err := s.memory.Load(ctx, st.ID)
	if err != nil {
		return "", err
	}
	if m.BestTimeOfDay != "" {
		return m.BestTimeOfDay, nil
	}
	if st.Age < 12 {
		return "afternoon", nil
	}
	return "evening", nil
}

// SuggestTopicFromTimetable looks at today's timetable. A slot covering the
// current time wins; otherwise the next slot later today is suggested.
func (s *Scheduler) SuggestTopicFromTimetable(ctx context.Context, studentID uuid.UUID) (string, bool, error) {
	now := s.now()
	entries, err := s.timetable.ListByDay(dbctx.New(ctx), studentID, now.Weekday().String())
	if err != nil {
		return "", false, fmt.Errorf("list timetable: %w", err)
	}
	if len(entries) == 0 {
		return "", false, nil
	}
	clock := now.Format("15:04")
	for _, e := range entries {
		if e.StartTime <= clock && clock <= e.EndTime {
			subject := e.Subject
			if subject == "" {
				subject = "General"
			}
			name, data := prompts.MessageTimetableNow, map[string]any{"Subject": subject}
			if e.FocusTopic != "" {
				name, data["Topic"] = prompts.MessageTimetableNowTopic, e.FocusTopic
			}
			msg, err := s.prompts.Message(name, data)
			return msg, err == nil, err
		}
	}
	upcoming := make([]*types.TimetableEntry, 0, len(entries))
	for _, e := range entries {
		if e.StartTime > clock {
			upcoming = append(upcoming, e)
		}
	}
	if len(upcoming) == 0 {
		return "", false, nil
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].StartTime < upcoming[j].StartTime })
	next := upcoming[0]
	subject := next.Subject
	if subject == "" {
		subject = "General"
	}
	msg, err := s.prompts.Message(prompts.MessageTimetableNext, map[string]any{"Subject": subject, "Start": next.StartTime})
	return msg, err == nil, err
}

// ShouldProactivelySchedule is true while the student has no timetable.
func (s *Scheduler) ShouldProactivelySchedule(ctx context.Context, studentID uuid.UUID) (bool, error) {
	n, err := s.timetable.Count(dbctx.New(ctx), studentID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// PerformanceLevels buckets subjects by all-time accuracy: struggling below
// 40%, developing below 60%, proficient below 80%, mastery above.
func PerformanceLevels(by map[string]repos.Accuracy) map[string][]string {
	out := map[string][]string{"struggling": {}, "developing": {}, "proficient": {}, "mastery": {}}
	subjects := make([]string, 0, len(by))
	for s := range by {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	for _, s := range subjects {
		r, ok := by[s].Rate()
		if !ok {
			continue
		}
		switch {
		case r < 0.4:
			out["struggling"] = append(out["struggling"], s)
		case r < 0.6:
			out["developing"] = append(out["developing"], s)
		case r < 0.8:
			out["proficient"] = append(out["proficient"], s)
		default:
			out["mastery"] = append(out["mastery"], s)
		}
	}
	return out
}

func joinComma(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return strings.Join(ss, ", ")
}
