package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-am-the-robot/Edulife/internal/platform/llm"
	"github.com/i-am-the-robot/Edulife/internal/platform/llm/llmtest"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

func TestWithTimeoutMapsDeadline(t *testing.T) {
	slow := llmtest.New(llmtest.Rule{Contains: "", Reply: "late", Delay: time.Second})
	c := llm.WithTimeout(slow, 20*time.Millisecond)

	_, err := c.Complete(context.Background(), "explain", 0.5, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrModelTimeout)
	assert.True(t, llm.IsModelFailure(err))
}

func TestWithTimeoutWrapsOtherErrors(t *testing.T) {
	broken := llmtest.New(llmtest.Rule{Contains: "", Err: errors.New("boom")})
	c := llm.WithTimeout(broken, time.Second)

	_, err := c.Complete(context.Background(), "explain", 0.5, 10)
	assert.ErrorIs(t, err, llm.ErrModelUnavailable)
}

func TestWithTimeoutPassesParentCancel(t *testing.T) {
	slow := llmtest.New(llmtest.Rule{Contains: "", Reply: "late", Delay: time.Second})
	c := llm.WithTimeout(slow, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, "explain", 0.5, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, llm.IsModelFailure(err))
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"prose", `Sure! Here it is: {"a":{"b":2}} hope that helps`, `{"a":{"b":2}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := llm.ExtractJSON(tc.in); got != tc.want {
				t.Fatalf("ExtractJSON(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestOpenAIClientAgainstCompatibleServer(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Fractions are parts of a whole.  "},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":5,"total_tokens":8}}`))
	}))
	defer srv.Close()

	c := llm.New(logger.Nop(), llm.Config{APIKey: "k", BaseURL: srv.URL, Model: "test-model", Timeout: 5 * time.Second})
	out, err := c.Complete(context.Background(), "explain fractions", 0.8, 100)
	require.NoError(t, err)
	assert.Equal(t, "Fractions are parts of a whole.", out)
	assert.Equal(t, "test-model", gotModel)
}

func TestOpenAIClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := llm.New(logger.Nop(), llm.Config{APIKey: "k", BaseURL: srv.URL, Timeout: 5 * time.Second})
	_, err := c.Complete(context.Background(), "explain", 0.8, 100)
	assert.ErrorIs(t, err, llm.ErrModelUnavailable)
}

func TestNoKeyIsUnavailable(t *testing.T) {
	c := llm.New(logger.Nop(), llm.Config{})
	_, err := c.Complete(context.Background(), "explain", 0.8, 100)
	assert.ErrorIs(t, err, llm.ErrModelUnavailable)
}
