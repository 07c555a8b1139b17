// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/i-am-the-robot/Edulife/internal/platform/llm"
)

// Rule answers any prompt containing Contains. Rules are checked in order;
// the first match wins.
type Rule struct {
	Contains string
	Reply    string
	Err      error
	// Delay holds the call open; the call returns early with ctx.Err() if the
	// context ends first.
	Delay time.Duration
}

type Call struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

type Fake struct {
	mu       sync.Mutex
	rules    []Rule
	fallback Rule
	calls    []Call
}

func New(rules ...Rule) *Fake {
	return &Fake{rules: rules, fallback: Rule{Reply: "ok"}}
}

// Default sets the answer for prompts no rule matches.
func (f *Fake) Default(r Rule) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = r
	return f
}

func (f *Fake) On(r Rule) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, r)
	return f
}

func (f *Fake) Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Prompt: prompt, Temperature: temperature, MaxTokens: maxTokens})
	rule := f.fallback
	for _, r := range f.rules {
		if strings.Contains(prompt, r.Contains) {
			rule = r
			break
		}
	}
	f.mu.Unlock()

	if rule.Delay > 0 {
		t := time.NewTimer(rule.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	if rule.Err != nil {
		return "", rule.Err
	}
	return rule.Reply, nil
}

func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsContaining counts prompts that contain substr.
func (f *Fake) CallsContaining(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.Contains(c.Prompt, substr) {
			n++
		}
	}
	return n
}

var _ llm.Client = (*Fake)(nil)
