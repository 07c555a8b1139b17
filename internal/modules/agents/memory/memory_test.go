package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/testutil"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
)

var now = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func TestEffectiveStrategyDedupesByName(t *testing.T) {
	m := &types.AgentMemory{}
	assert.True(t, AddEffectiveStrategy(m, "football analogies", now))
	assert.True(t, AddEffectiveStrategy(m, "Football analogies", now))
	assert.False(t, AddEffectiveStrategy(m, "  ", now))
	require.Len(t, m.EffectiveStrategies, 1)
	assert.Equal(t, 2, m.EffectiveStrategies[0].SuccessCount)

	assert.True(t, AddIneffectiveStrategy(m, "long lectures", now))
	assert.False(t, AddIneffectiveStrategy(m, "long lectures", now))
}

func TestMasteryClearsRevisitQueue(t *testing.T) {
	m := &types.AgentMemory{}
	assert.True(t, AddTopicToRevisit(m, "fractions", "Low mastery: 40%", now))
	assert.False(t, AddTopicToRevisit(m, "Fractions", "again", now))
	assert.True(t, AddTopicToRevisit(m, "decimals", "", now))

	assert.True(t, MarkTopicMastered(m, "fractions", now))
	assert.False(t, MarkTopicMastered(m, "fractions", now))
	require.Len(t, m.MasteredTopics, 1)
	require.Len(t, m.TopicsToRevisit, 1)
	assert.Equal(t, "decimals", m.TopicsToRevisit[0].Topic)
}

func TestGoalsAndStyle(t *testing.T) {
	m := &types.AgentMemory{}
	AddGoal(m, "finish fractions unit", now)
	AddGoal(m, "daily practice", now)
	assert.Len(t, ActiveGoals(m), 2)
	assert.True(t, CompleteGoal(m, "daily practice", now))
	assert.False(t, CompleteGoal(m, "daily practice", now))
	assert.Len(t, ActiveGoals(m), 1)

	assert.True(t, SetLearningStyle(m, "Visual"))
	assert.Equal(t, "visual", m.LearningStyle)
	assert.False(t, SetLearningStyle(m, "telepathic"))
}

func TestFactsAndBadges(t *testing.T) {
	m := &types.AgentMemory{}
	assert.True(t, AddFact(m, "", "Has a dog named Rex", now))
	assert.False(t, AddFact(m, "pet", "Has a dog named Rex", now))
	assert.Equal(t, "general", m.UserFacts[0].Category)

	AddMilestone(m, "First Steps", map[string]any{"type": "badge"}, now)
	AddMilestone(m, "Started exam prep", nil, now)
	badges := BadgeNames(m)
	assert.Len(t, badges, 1)
	_, ok := badges["First Steps"]
	assert.True(t, ok)
}

func newService(t *testing.T) (Service, *types.Student) {
	t.Helper()
	db := testutil.DB(t)
	ctx := context.Background()
	sch := testutil.SeedSchool(t, ctx, db)
	st := testutil.SeedStudent(t, ctx, db, sch.ID)
	return NewService(testutil.Logger(t), repos.NewAgentMemoryRepo(db, testutil.Logger(t))), st
}

func TestServiceCreatesLazilyAndPersists(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordInteraction(ctx, st.ID))
	require.NoError(t, svc.RecordInteraction(ctx, st.ID))
	require.NoError(t, svc.AddFact(ctx, st.ID, "hobby", "Plays for the school team"))
	require.NoError(t, svc.AddTopicToRevisit(ctx, st.ID, "fractions", "quiz"))
	require.NoError(t, svc.MarkTopicMastered(ctx, st.ID, "fractions"))

	sum, err := svc.Summary(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.InteractionCount)
	assert.Equal(t, 1, sum.UserFactsCount)
	assert.Equal(t, 0, sum.TopicsToRevisitCount)
	assert.Equal(t, 1, sum.MasteredTopicsCount)
	assert.Equal(t, 30, sum.OptimalSessionLength)
	assert.NotNil(t, sum.LastInteraction)
}

// Two writers that both loaded the record before either saved: the second
// save wins and the first writer's change is lost.
func TestServiceLastWriteWins(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	a, err := svc.Load(ctx, st.ID)
	require.NoError(t, err)
	b, err := svc.Load(ctx, st.ID)
	require.NoError(t, err)

	AddFact(a, "pet", "Has a cat", now)
	require.NoError(t, svc.Save(ctx, a))

	AddTopicToRevisit(b, "decimals", "", now)
	require.NoError(t, svc.Save(ctx, b))

	got, err := svc.Load(ctx, st.ID)
	require.NoError(t, err)
	assert.Empty(t, got.UserFacts)
	require.Len(t, got.TopicsToRevisit, 1)
}
