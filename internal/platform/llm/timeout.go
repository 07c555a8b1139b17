package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout bounds every call made through next. A call that runs past
// the deadline fails with ErrModelTimeout; any other failure is reported as
// ErrModelUnavailable. Cancellation of the parent context is passed through
// unchanged so callers can tell it apart from a slow model.
func WithTimeout(next Client, timeout time.Duration) Client {
	if timeout <= 0 {
		return next
	}
	return &timeoutClient{next: next, timeout: timeout}
}

func (c *timeoutClient) Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := c.next.Complete(callCtx, prompt, temperature, maxTokens)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			return r.text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(r.err, context.DeadlineExceeded) || errors.Is(r.err, ErrModelTimeout) {
			return "", fmt.Errorf("%w: %v", ErrModelTimeout, r.err)
		}
		if errors.Is(r.err, ErrModelUnavailable) {
			return "", r.err
		}
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, r.err)
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w after %s", ErrModelTimeout, c.timeout)
	}
}
