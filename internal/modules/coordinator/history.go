package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
)

const (
	TagStartOfSession   = "[START OF SESSION]"
	TagReturnedAfter    = "[STUDENT RETURNED AFTER BREAK]"
	TagReturnedEarly    = "[RETURNED EARLY FROM BREAK]"
	TagContinuous       = "[CONTINUOUS CONVERSATION]"
	microAssessmentLine = "[MICRO_ASSESSMENT_TRIGGER]: Ask a quick, casual check-up question about the current topic to verify understanding."

	breakGap      = 15 * time.Minute
	earlyBreakGap = 3 * time.Minute
	microEvery    = 5
	correctionMax = 5
)

// sessionTag describes the gap between the last turn and now. turns are
// oldest first.
func sessionTag(turns []*types.ConversationTurn, now time.Time) string {
	if len(turns) == 0 {
		return TagStartOfSession
	}
	last := turns[len(turns)-1]
	gap := now.Sub(last.Timestamp)
	if gap > breakGap {
		return TagReturnedAfter
	}
	reply := strings.ToLower(last.AIResponse)
	offeredBreak := strings.Contains(reply, "break") || strings.Contains(reply, "pause") || strings.Contains(reply, "rest")
	if gap > earlyBreakGap && offeredBreak {
		return TagReturnedEarly
	}
	return TagContinuous
}

// renderHistory writes turns oldest first, then the session note and, every
// fifth turn, the micro-assessment prompt.
func renderHistory(turns []*types.ConversationTurn, now time.Time) string {
	var b strings.Builder
	for _, t := range turns {
		if t.StudentMessage != "" {
			fmt.Fprintf(&b, "Student: %s\n", t.StudentMessage)
		}
		if t.AIResponse != "" {
			fmt.Fprintf(&b, "AI: %s\n", t.AIResponse)
		}
	}
	b.WriteString("\nSYSTEM_NOTE: ")
	b.WriteString(sessionTag(turns, now))
	if n := len(turns); n > 0 && n%microEvery == 0 {
		b.WriteString("\n")
		b.WriteString(microAssessmentLine)
	}
	return strings.TrimLeft(b.String(), "\n")
}

func wantsCorrection(message string) bool {
	lower := strings.ToLower(message)
	for _, w := range []string{"correction", "wrong", "mistake"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// latestBatch keeps the results that share the newest timestamp. rows are
// newest first.
func latestBatch(rows []*types.TestResult) []*types.TestResult {
	if len(rows) == 0 {
		return nil
	}
	at := rows[0].CreatedAt
	out := make([]*types.TestResult, 0, len(rows))
	for _, r := range rows {
		if r.CreatedAt.Equal(at) {
			out = append(out, r)
		}
	}
	return out
}

func renderCorrections(batch []*types.TestResult) string {
	var b strings.Builder
	b.WriteString("[LAST_QUIZ_CORRECTION_DATA]:\n")
	for _, r := range batch {
		fmt.Fprintf(&b, "- Q: %s | Student: %s | Correct: %s | Correct?: %t\n", r.Question, r.StudentAnswer, r.CorrectAnswer, r.IsCorrect)
	}
	b.WriteString("INSTRUCTION: Explain WHY the wrong answers were wrong using this data.")
	return b.String()
}

// conversationContext loads the recent turns and renders the history the
// responders see. Failures here abort the request.
func (c *Coordinator) conversationContext(ctx context.Context, studentID uuid.UUID, sessionID, message string) (string, error) {
	dbc := dbctx.New(ctx)
	turns, err := c.turns.ListRecent(dbc, studentID, sessionID, historyLimit)
	if err != nil {
		return "", fmt.Errorf("recent turns: %w", err)
	}
	history := renderHistory(turns, c.now())
	if !wantsCorrection(message) {
		return history, nil
	}
	rows, err := c.results.ListByStudent(dbc, studentID, "", time.Time{}, correctionMax)
	if err != nil {
		return "", fmt.Errorf("last quiz: %w", err)
	}
	if batch := latestBatch(rows); len(batch) > 0 {
		history += "\n\n" + renderCorrections(batch)
	}
	return history, nil
}
