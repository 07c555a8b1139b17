package actions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/testutil"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/agent"
)

func score(f float64) *float64 { return &f }

func TestComputeStats(t *testing.T) {
	rows := []*types.AgentAction{
		{ActionType: "check_in", EffectivenessScore: score(0.5)},
		{ActionType: "check_in", EffectivenessScore: score(0.7)},
		{ActionType: "quiz_generated", EffectivenessScore: score(0.9)},
		{ActionType: "multi_agent_coordination"},
	}
	st := ComputeStats(rows)
	assert.Equal(t, 3, st.TotalActions)
	assert.Equal(t, 0.7, st.AverageEffectiveness)
	require.NotNil(t, st.MostEffectiveActionType)
	assert.Equal(t, "quiz_generated", *st.MostEffectiveActionType)
	assert.Equal(t, map[string]float64{"check_in": 0.6, "quiz_generated": 0.9}, st.ByActionType)

	empty := ComputeStats(rows[3:])
	assert.Equal(t, 0, empty.TotalActions)
	assert.Nil(t, empty.MostEffectiveActionType)
}

func TestServiceLogAndOutcome(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	sch := testutil.SeedSchool(t, ctx, db)
	st := testutil.SeedStudent(t, ctx, db, sch.ID)
	svc := NewService(testutil.Logger(t), repos.NewAgentActionRepo(db, testutil.Logger(t)))

	row, err := svc.Log(ctx, st.ID, agent.ActionCheckIn, map[string]any{"days_inactive": 4}, "inactive")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "pending", row.Outcome)
	var data map[string]any
	require.NoError(t, json.Unmarshal(row.ActionData, &data))
	assert.Equal(t, float64(4), data["days_inactive"])

	skipped, err := svc.Log(Suppress(ctx), st.ID, "quiz_generated", nil, "")
	require.NoError(t, err)
	assert.Nil(t, skipped)

	_, err = svc.UpdateOutcome(ctx, row.ID, "success", "", score(1.5))
	assert.ErrorIs(t, err, ErrInvalidScore)
	_, err = svc.UpdateOutcome(ctx, uuid.New(), "success", "", nil)
	assert.True(t, errors.Is(err, ErrNotFound))

	updated, err := svc.UpdateOutcome(ctx, row.ID, "success", "thanks!", score(0.75))
	require.NoError(t, err)
	assert.Equal(t, "success", updated.Outcome)
	assert.Equal(t, "thanks!", updated.StudentResponse)

	list, err := svc.List(ctx, st.ID, "", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	stats, err := svc.Stats(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalActions)
	assert.Equal(t, 0.75, stats.AverageEffectiveness)
}
