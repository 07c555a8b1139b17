package notify

import (
	"context"
	"testing"
	"time"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/data/repos/testutil"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
)

func TestNotificationLifecycle(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewNotificationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	school := testutil.SeedSchool(t, ctx, db)
	st := testutil.SeedStudent(t, ctx, db, school.ID)

	past := time.Now().UTC().Add(-time.Hour)
	rows := []*types.Notification{
		{StudentID: st.ID, NotificationType: "badge", Title: "Badge", Message: "First Steps"},
		{StudentID: st.ID, NotificationType: "check_in", Title: "Hi", Message: "Missed you"},
		{StudentID: st.ID, NotificationType: "check_in", Title: "Old", Message: "expired", ExpiresAt: &past},
	}
	for _, r := range rows {
		if err := repo.Create(dbc, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	list, err := repo.ListByStudent(dbc, st.ID, false, 0)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByStudent len=%d err=%v, want 2 unexpired", len(list), err)
	}
	if err := repo.MarkRead(dbc, rows[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	unread, _ := repo.ListByStudent(dbc, st.ID, true, 0)
	if len(unread) != 1 {
		t.Fatalf("unread=%d, want 1", len(unread))
	}
	n, err := repo.MarkAllRead(dbc, st.ID)
	if err != nil || n != 2 {
		t.Fatalf("MarkAllRead=%d err=%v, want 2 (includes expired)", n, err)
	}
	if err := repo.Delete(dbc, rows[1].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(dbc, rows[1].ID); err == nil {
		t.Fatalf("second Delete should report not found")
	}
}
