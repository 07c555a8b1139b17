package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"student_id", "7b0c2d0e",
		"parent_email", "parent@example.com",
		"pin", "1234",
		"mapping", "kept",
		"subject", "Math",
	})
	got := map[string]interface{}{}
	for i := 0; i+1 < len(out); i += 2 {
		got[out[i].(string)] = out[i+1]
	}

	if s, _ := got["student_id"].(string); !strings.HasPrefix(s, "hash:") || len(s) != len("hash:")+12 {
		t.Fatalf("student_id=%v, want hashed value", got["student_id"])
	}
	if got["parent_email"] != "[REDACTED]" {
		t.Fatalf("parent_email=%v, want redacted", got["parent_email"])
	}
	if got["pin"] != "[REDACTED]" {
		t.Fatalf("pin=%v, want redacted", got["pin"])
	}
	if got["mapping"] != "kept" {
		t.Fatalf("mapping=%v, want kept", got["mapping"])
	}
	if got["subject"] != "Math" {
		t.Fatalf("subject=%v, want Math", got["subject"])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"subject", "Math", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("sanitizeKVs dropped trailing key: %v", out)
	}
}

func TestHashValueStable(t *testing.T) {
	a := hashValue("student-1")
	b := hashValue("student-1")
	if a != b {
		t.Fatalf("hashValue not stable: %q vs %q", a, b)
	}
	if hashValue("") != "" {
		t.Fatalf("hashValue(\"\") should be empty")
	}
}
