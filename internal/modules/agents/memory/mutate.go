package memory

import (
	"strings"
	"time"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/agent"
)

// The functions below change a loaded record in place and never touch the
// database. They report whether anything changed.

var validLearningStyles = map[string]struct{}{
	"visual":      {},
	"auditory":    {},
	"kinesthetic": {},
	"reading":     {},
}

func RecordInteraction(m *types.AgentMemory, now time.Time) bool {
	m.InteractionCount++
	m.LastInteraction = &now
	return true
}

// AddEffectiveStrategy adds a strategy or bumps its success count when it is
// already known.
func AddEffectiveStrategy(m *types.AgentMemory, strategy string, now time.Time) bool {
	strategy = strings.TrimSpace(strategy)
	if strategy == "" {
		return false
	}
	for i := range m.EffectiveStrategies {
		if strings.EqualFold(m.EffectiveStrategies[i].Strategy, strategy) {
			if m.EffectiveStrategies[i].SuccessCount < 1 {
				m.EffectiveStrategies[i].SuccessCount = 1
			}
			m.EffectiveStrategies[i].SuccessCount++
			return true
		}
	}
	m.EffectiveStrategies = append(m.EffectiveStrategies, agent.Strategy{Strategy: strategy, AddedAt: now, SuccessCount: 1})
	return true
}

func AddIneffectiveStrategy(m *types.AgentMemory, strategy string, now time.Time) bool {
	strategy = strings.TrimSpace(strategy)
	if strategy == "" {
		return false
	}
	for _, s := range m.IneffectiveStrategies {
		if strings.EqualFold(s.Strategy, strategy) {
			return false
		}
	}
	m.IneffectiveStrategies = append(m.IneffectiveStrategies, agent.Strategy{Strategy: strategy, AddedAt: now})
	return true
}

// AddTopicToRevisit queues a topic for review. A topic already queued keeps
// its original entry.
func AddTopicToRevisit(m *types.AgentMemory, topic, reason string, now time.Time) bool {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return false
	}
	for _, t := range m.TopicsToRevisit {
		if strings.EqualFold(t.Topic, topic) {
			return false
		}
	}
	m.TopicsToRevisit = append(m.TopicsToRevisit, agent.RevisitTopic{Topic: topic, Reason: reason, AddedAt: now})
	return true
}

// MarkTopicMastered records mastery and drops the topic from the review queue.
func MarkTopicMastered(m *types.AgentMemory, topic string, now time.Time) bool {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return false
	}
	changed := false
	known := false
	for _, t := range m.MasteredTopics {
		if strings.EqualFold(t.Topic, topic) {
			known = true
			break
		}
	}
	if !known {
		m.MasteredTopics = append(m.MasteredTopics, agent.MasteredTopic{Topic: topic, MasteredAt: now})
		changed = true
	}
	kept := m.TopicsToRevisit[:0]
	for _, t := range m.TopicsToRevisit {
		if strings.EqualFold(t.Topic, topic) {
			changed = true
			continue
		}
		kept = append(kept, t)
	}
	m.TopicsToRevisit = kept
	return changed
}

func SetLearningStyle(m *types.AgentMemory, style string) bool {
	style = strings.ToLower(strings.TrimSpace(style))
	if _, ok := validLearningStyles[style]; !ok || m.LearningStyle == style {
		return false
	}
	m.LearningStyle = style
	return true
}

func AddGoal(m *types.AgentMemory, goal string, now time.Time) bool {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return false
	}
	m.AgentGoals = append(m.AgentGoals, agent.Goal{Goal: goal, Status: agent.GoalActive, AddedAt: now})
	return true
}

func CompleteGoal(m *types.AgentMemory, goal string, now time.Time) bool {
	changed := false
	for i := range m.AgentGoals {
		if m.AgentGoals[i].Goal == goal && m.AgentGoals[i].Status != agent.GoalCompleted {
			m.AgentGoals[i].Status = agent.GoalCompleted
			done := now
			m.AgentGoals[i].CompletedAt = &done
			changed = true
		}
	}
	return changed
}

func AddMilestone(m *types.AgentMemory, milestone string, data map[string]any, now time.Time) bool {
	if strings.TrimSpace(milestone) == "" {
		return false
	}
	if data == nil {
		data = map[string]any{}
	}
	m.ProgressMilestones = append(m.ProgressMilestones, agent.Milestone{Milestone: milestone, AchievedAt: now, Data: data})
	return true
}

// AddFact stores a permanent fact, skipping exact duplicates.
func AddFact(m *types.AgentMemory, category, fact string, now time.Time) bool {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return false
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = "general"
	}
	for _, f := range m.UserFacts {
		if f.Fact == fact {
			return false
		}
	}
	m.UserFacts = append(m.UserFacts, agent.Fact{Category: category, Fact: fact, AddedAt: now})
	return true
}

func ActiveGoals(m *types.AgentMemory) []agent.Goal {
	out := make([]agent.Goal, 0, len(m.AgentGoals))
	for _, g := range m.AgentGoals {
		if g.Status == agent.GoalActive {
			out = append(out, g)
		}
	}
	return out
}

// BadgeNames lists the badges already recorded as milestones.
func BadgeNames(m *types.AgentMemory) map[string]struct{} {
	out := map[string]struct{}{}
	for _, ms := range m.ProgressMilestones {
		if t, _ := ms.Data["type"].(string); t == "badge" {
			out[ms.Milestone] = struct{}{}
		}
	}
	return out
}
