package envutil

import (
	"testing"
	"time"
)

func TestReaders(t *testing.T) {
	t.Setenv("EDULIFE_TEST_INT", "42")
	t.Setenv("EDULIFE_TEST_BAD_INT", "forty")
	t.Setenv("EDULIFE_TEST_FLOAT", "0.25")
	t.Setenv("EDULIFE_TEST_BOOL", "off")
	t.Setenv("EDULIFE_TEST_LIST", "a, b,,c")
	t.Setenv("EDULIFE_TEST_SECONDS", "3")

	if got := Int("EDULIFE_TEST_INT", 1); got != 42 {
		t.Fatalf("Int=%d, want 42", got)
	}
	if got := Int("EDULIFE_TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("Int(bad)=%d, want default 7", got)
	}
	if got := Float("EDULIFE_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float=%v, want 0.25", got)
	}
	if got := Bool("EDULIFE_TEST_BOOL", true); got {
		t.Fatalf("Bool=%v, want false", got)
	}
	if got := Bool("EDULIFE_TEST_MISSING", true); !got {
		t.Fatalf("Bool(missing)=%v, want default true", got)
	}
	if got := List("EDULIFE_TEST_LIST", nil); len(got) != 3 || got[2] != "c" {
		t.Fatalf("List=%v, want [a b c]", got)
	}
	if got := Seconds("EDULIFE_TEST_SECONDS", time.Minute); got != 3*time.Second {
		t.Fatalf("Seconds=%v, want 3s", got)
	}
	if got := First("x", "EDULIFE_TEST_MISSING", "EDULIFE_TEST_INT"); got != "42" {
		t.Fatalf("First=%q, want 42", got)
	}
}
