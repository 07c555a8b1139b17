package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"rate limited", statusErr(429), true},
		{"server error", fmt.Errorf("send: %w", statusErr(503)), true},
		{"bad request", statusErr(400), false},
		{"network", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"plain", errors.New("nope"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryableError(tc.err); got != tc.want {
				t.Fatalf("want=%v got=%v", tc.want, got)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	if got := RetryAfter("3", time.Second, 10*time.Second); got != 3*time.Second {
		t.Fatalf("header seconds: got %v", got)
	}
	if got := RetryAfter("120", time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("capped: got %v", got)
	}
	if got := RetryAfter("Wed, 21 Oct 2026 07:28:00 GMT", 2*time.Second, 0); got != 2*time.Second {
		t.Fatalf("fallback: got %v", got)
	}
}

func TestJitterSleepStaysInBand(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := JitterSleep(time.Second)
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("out of band: %v", d)
		}
	}
	if JitterSleep(0) != 0 {
		t.Fatal("zero base should not sleep")
	}
}
