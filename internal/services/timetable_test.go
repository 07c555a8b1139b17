package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/testutil"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/scheduling"
)

type stubBuilder struct {
	calls []uuid.UUID
}

func (b *stubBuilder) CreateFullSchedule(_ context.Context, st *types.Student) (scheduling.ScheduleResult, error) {
	b.calls = append(b.calls, st.ID)
	return scheduling.ScheduleResult{Source: "rules", EntriesSaved: 5}, nil
}

func TestTimetableService(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	sc := testutil.SeedSchool(t, ctx, db)
	st := testutil.SeedStudent(t, ctx, db, sc.ID)

	table := repos.NewTimetableRepo(db, log)
	require.NoError(t, table.Replace(testDBC(ctx), st.ID, []*types.TimetableEntry{
		{StudentID: st.ID, DayOfWeek: "Monday", StartTime: "16:00", EndTime: "16:45", Subject: "Mathematics", ActivityType: "study"},
		{StudentID: st.ID, DayOfWeek: "Tuesday", StartTime: "16:00", EndTime: "16:45", Subject: "English", ActivityType: "study"},
	}))

	builder := &stubBuilder{}
	svc := NewTimetableService(log, repos.NewStudentRepo(db, log), table, builder)

	all, err := svc.Get(ctx, st.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	monday, err := svc.Get(ctx, st.ID, " MONDAY ")
	require.NoError(t, err)
	require.Len(t, monday, 1)
	assert.Equal(t, "Mathematics", monday[0].Subject)

	_, err = svc.Get(ctx, st.ID, "someday")
	requireStatus(t, err, http.StatusBadRequest, "invalid_day")

	res, err := svc.Generate(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, res.EntriesSaved)
	assert.Equal(t, []uuid.UUID{st.ID}, builder.calls)

	_, err = svc.Generate(ctx, uuid.New())
	requireStatus(t, err, http.StatusNotFound, "student_not_found")
}
