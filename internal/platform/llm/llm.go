// Package llm is the narrow boundary to the hosted language model. Every
// agent talks to the model through Client; nothing else in the tree imports
// the provider SDK.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrModelUnavailable covers transport failures, provider errors and
	// empty completions.
	ErrModelUnavailable = errors.New("llm: model unavailable")
	// ErrModelTimeout is returned when the per-call deadline elapses.
	ErrModelTimeout = errors.New("llm: model timeout")
)

// Client turns a prompt into generated text.
type Client interface {
	Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error)

func (f ClientFunc) Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	return f(ctx, prompt, temperature, maxTokens)
}

type callerKey struct{}

// WithCaller labels model calls made under ctx, for metrics and logs.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFrom(ctx context.Context) string {
	if s, ok := ctx.Value(callerKey{}).(string); ok {
		return s
	}
	return ""
}

// IsModelFailure reports whether err is one of the degradable model errors.
func IsModelFailure(err error) bool {
	return errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrModelTimeout)
}
