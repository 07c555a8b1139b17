package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/testutil"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/school"
	"github.com/i-am-the-robot/Edulife/internal/modules/agents/parentconnect"
	"github.com/i-am-the-robot/Edulife/internal/pkg/pointers"
)

type fixedProgress parentconnect.Progress

func (p fixedProgress) Progress(context.Context, uuid.UUID) (parentconnect.Progress, error) {
	return parentconnect.Progress(p), nil
}

func newStudentService(t *testing.T, p parentconnect.Progress) (StudentService, *types.School, repos.TeacherRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	teachers := repos.NewTeacherRepo(db, log)
	svc := NewStudentService(log, repos.NewSchoolRepo(db, log), teachers, repos.NewStudentRepo(db, log), fixedProgress(p))
	return svc, testutil.SeedSchool(t, context.Background(), db), teachers
}

func TestCreateStudentDefaults(t *testing.T) {
	svc, sc, _ := newStudentService(t, parentconnect.Progress{})
	ctx := context.Background()

	st, err := svc.Create(ctx, StudentInput{SchoolID: sc.ID, FullName: "Tomi Bello", Age: 11, StudentClass: "JSS1", ParentEmail: " Mum@Example.com "})
	require.NoError(t, err)
	assert.NotEqual(t, DefaultPIN, st.PIN)
	require.NoError(t, svc.VerifyPIN(ctx, st.ID, DefaultPIN))
	assert.Equal(t, school.SupportNone, st.SupportType)
	assert.Equal(t, "mum@example.com", st.ParentEmail)
	assert.True(t, st.IsActive)

	cases := []struct {
		name string
		in   StudentInput
		code string
	}{
		{"no name", StudentInput{SchoolID: sc.ID, Age: 10}, "name_required"},
		{"bad age", StudentInput{SchoolID: sc.ID, FullName: "A", Age: 0}, "invalid_age"},
		{"bad support", StudentInput{SchoolID: sc.ID, FullName: "A", Age: 10, SupportType: "Other"}, "invalid_support_type"},
		{"bad personality", StudentInput{SchoolID: sc.ID, FullName: "A", Age: 10, Personality: "Ambivert"}, "invalid_personality"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in)
			requireStatus(t, err, http.StatusBadRequest, tc.code)
		})
	}
}

func TestCreateStudentChecksSchoolAndTeacher(t *testing.T) {
	svc, sc, teachers := newStudentService(t, parentconnect.Progress{})
	ctx := context.Background()

	_, err := svc.Create(ctx, StudentInput{SchoolID: uuid.New(), FullName: "A", Age: 10})
	requireStatus(t, err, http.StatusNotFound, "school_not_found")

	outsider := &types.Teacher{SchoolID: uuid.New(), FullName: "Elsewhere", Email: "else@example.com", Role: school.TeacherRoleTeacher, IsActive: true}
	require.NoError(t, teachers.Create(testDBC(ctx), outsider))
	_, err = svc.Create(ctx, StudentInput{SchoolID: sc.ID, TeacherID: &outsider.ID, FullName: "A", Age: 10})
	requireStatus(t, err, http.StatusBadRequest, "teacher_school_mismatch")

	mine := &types.Teacher{SchoolID: sc.ID, FullName: "Mine", Email: "mine@example.com", Role: school.TeacherRoleTeacher, IsActive: true}
	require.NoError(t, teachers.Create(testDBC(ctx), mine))
	st, err := svc.Create(ctx, StudentInput{SchoolID: sc.ID, TeacherID: &mine.ID, FullName: "A", Age: 10})
	require.NoError(t, err)
	require.NotNil(t, st.TeacherID)
	assert.Equal(t, mine.ID, *st.TeacherID)

	listed, err := svc.List(ctx, repos.StudentFilter{TeacherID: mine.ID})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestUpdateAndDeactivateStudent(t *testing.T) {
	svc, sc, _ := newStudentService(t, parentconnect.Progress{})
	ctx := context.Background()
	st, err := svc.Create(ctx, StudentInput{SchoolID: sc.ID, FullName: "Tomi Bello", Age: 11})
	require.NoError(t, err)

	up, err := svc.Update(ctx, st.ID, StudentUpdate{
		Hobby:       pointers.String("chess"),
		SupportType: pointers.String(school.SupportDyslexia),
		PIN:         pointers.String("4321"),
	})
	require.NoError(t, err)
	assert.Equal(t, "chess", up.Hobby)
	assert.Equal(t, school.SupportDyslexia, up.SupportType)
	require.NoError(t, svc.VerifyPIN(ctx, up.ID, "4321"))
	err = svc.VerifyPIN(ctx, up.ID, DefaultPIN)
	requireStatus(t, err, http.StatusUnauthorized, "invalid_pin")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Update(ctx, st.ID, StudentUpdate{PIN: pointers.String(" ")})
	requireStatus(t, err, http.StatusBadRequest, "pin_required")

	require.NoError(t, svc.Deactivate(ctx, st.ID))
	active, err := svc.List(ctx, repos.StudentFilter{SchoolID: sc.ID, ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active)

	requireStatus(t, svc.Deactivate(ctx, uuid.New()), http.StatusNotFound, "student_not_found")
}

func TestProfileHidesSupportType(t *testing.T) {
	svc, sc, _ := newStudentService(t, parentconnect.Progress{Sessions: 12, Tests: 8, Correct: 6, ActiveDays: 4})
	ctx := context.Background()
	st, err := svc.Create(ctx, StudentInput{SchoolID: sc.ID, FullName: "Tomi Bello", Age: 11, SupportType: school.SupportAutism})
	require.NoError(t, err)

	p, err := svc.Profile(ctx, st.ID)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, p.AccuracyPercent, 1e-9)

	var names []string
	for _, b := range p.Badges {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"First Steps", "Curious Learner", "Test Taker", "Streak Keeper"}, names)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "support_type")
	assert.NotContains(t, string(raw), school.SupportAutism)
}
