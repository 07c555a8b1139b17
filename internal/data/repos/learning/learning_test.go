package learning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/testutil"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
)

func TestAccuracyBySubject(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewTestResultRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	school := testutil.SeedSchool(t, ctx, db)
	st := testutil.SeedStudent(t, ctx, db, school.ID)
	now := time.Now().UTC()
	testutil.SeedTestResult(t, ctx, db, st.ID, "Math", true, now.Add(-time.Hour))
	testutil.SeedTestResult(t, ctx, db, st.ID, "Math", false, now.Add(-2*time.Hour))
	testutil.SeedTestResult(t, ctx, db, st.ID, "Science", true, now.Add(-3*time.Hour))
	testutil.SeedTestResult(t, ctx, db, st.ID, "Science", false, now.Add(-40*24*time.Hour))

	by, err := repo.AccuracyBySubject(dbc, st.ID, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Accuracy{Total: 2, Correct: 1}, by["Math"])
	assert.Equal(t, Accuracy{Total: 1, Correct: 1}, by["Science"])

	latest, err := repo.Latest(dbc, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "Math", latest.Subject)
	assert.True(t, latest.IsCorrect)

	_, ok := Accuracy{}.Rate()
	assert.False(t, ok)
}

func TestTimetableReplace(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewTimetableRepo(db, testutil.Logger(t))

	school := testutil.SeedSchool(t, ctx, db)
	st := testutil.SeedStudent(t, ctx, db, school.ID)

	week := func(subject string) []*types.TimetableEntry {
		return []*types.TimetableEntry{
			{DayOfWeek: "Monday", StartTime: "17:00", EndTime: "17:30", Subject: subject, ActivityType: "study"},
			{DayOfWeek: "Monday", StartTime: "17:30", EndTime: "17:40", Subject: "Break", ActivityType: "break"},
		}
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.Replace(dbctx.Context{Ctx: ctx, Tx: tx}, st.ID, week("Math"))
	})
	require.NoError(t, err)
	err = db.Transaction(func(tx *gorm.DB) error {
		return repo.Replace(dbctx.Context{Ctx: ctx, Tx: tx}, st.ID, week("Science"))
	})
	require.NoError(t, err)

	rows, err := repo.ListByDay(dbctx.Context{Ctx: ctx}, st.ID, "Monday")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Science", rows[0].Subject)
	assert.Equal(t, "17:00", rows[0].StartTime)
}
