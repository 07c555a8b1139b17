package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/school"
)

func SeedSchool(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.School {
	tb.Helper()
	s := &types.School{
		ID:           uuid.New(),
		Name:         "Unity Academy",
		AppKey:       "unity-" + uuid.NewString()[:8],
		SyllabusText: "Mathematics: fractions, decimals, percentages.\nScience: photosynthesis, states of matter.",
		IsActive:     true,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed school: %v", err)
	}
	return s
}

type StudentOpt func(*types.Student)

func SeedStudent(tb testing.TB, ctx context.Context, tx *gorm.DB, schoolID uuid.UUID, opts ...StudentOpt) *types.Student {
	tb.Helper()
	st := &types.Student{
		ID:           uuid.New(),
		SchoolID:     schoolID,
		FullName:     "Ada Obi",
		Age:          12,
		StudentClass: "JSS1",
		Hobby:        "football",
		Personality:  school.PersonalityExtrovert,
		SupportType:  school.SupportNone,
		ParentName:   "Mrs Obi",
		ParentEmail:  "parent@example.com",
		IsActive:     true,
	}
	for _, o := range opts {
		o(st)
	}
	if err := tx.WithContext(ctx).Create(st).Error; err != nil {
		tb.Fatalf("seed student: %v", err)
	}
	return st
}

func SeedTurn(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID uuid.UUID, sessionID, msg, reply string, at time.Time) *types.ConversationTurn {
	tb.Helper()
	t := &types.ConversationTurn{
		ID:             uuid.New(),
		StudentID:      studentID,
		SessionID:      sessionID,
		Subject:        "Mathematics",
		StudentMessage: msg,
		AIResponse:     reply,
		Timestamp:      at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed turn: %v", err)
	}
	return t
}

func SeedTestResult(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID uuid.UUID, subject string, correct bool, at time.Time) *types.TestResult {
	tb.Helper()
	r := &types.TestResult{
		ID:            uuid.New(),
		StudentID:     studentID,
		Subject:       subject,
		Topic:         "basics",
		Question:      "q",
		StudentAnswer: "a",
		CorrectAnswer: "a",
		IsCorrect:     correct,
		AttemptNumber: 1,
		CreatedAt:     at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed test result: %v", err)
	}
	return r
}
