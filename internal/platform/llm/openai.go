package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/i-am-the-robot/Edulife/internal/observability"
	"github.com/i-am-the-robot/Edulife/internal/platform/envutil"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// RPS and Burst configure the client-side limiter. RPS <= 0 disables it.
	RPS   float64
	Burst int
	// Timeout bounds each call. Zero leaves calls unbounded.
	Timeout time.Duration
}

// ConfigFromEnv reads LLM_* settings, falling back to the GROQ_* names.
func ConfigFromEnv() Config {
	return Config{
		APIKey:  envutil.First("", "LLM_API_KEY", "GROQ_API_KEY"),
		BaseURL: envutil.String("LLM_BASE_URL", DefaultBaseURL),
		Model:   envutil.First(DefaultModel, "LLM_MODEL", "GROQ_MODEL"),
		RPS:     envutil.Float("LLM_RPS", 5),
		Burst:   envutil.Int("LLM_BURST", 10),
		Timeout: envutil.Seconds("LLM_TIMEOUT_SECONDS", 20*time.Second),
	}
}

type client struct {
	log     *logger.Logger
	api     *openai.Client
	model   string
	limiter *rate.Limiter
}

// New builds the OpenAI-compatible chat client wrapped in the timeout
// decorator. With no API key every call fails with ErrModelUnavailable, so
// the service still boots and degrades to fallback replies.
func New(log *logger.Logger, cfg Config) Client {
	log = log.With("client", "llm")
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn("no model API key configured; model calls will fail")
		return unavailable{}
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	c := &client{log: log, api: openai.NewClientWithConfig(oc), model: model}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return WithTimeout(c, cfg.Timeout)
}

func (c *client) Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	start := time.Now()
	caller := CallerFrom(ctx)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			observability.Current().ObserveLLMRequest(c.model, caller, "throttled", 0)
			return "", fmt.Errorf("llm rate limit wait: %w", err)
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	dur := time.Since(start)
	if err != nil {
		status := "unavailable"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			c.log.Warn("model call failed", "caller", caller, "status", apiErr.HTTPStatusCode, "error", apiErr.Message)
		} else {
			c.log.Warn("model call failed", "caller", caller, "error", err)
		}
		observability.Current().ObserveLLMRequest(c.model, caller, status, dur)
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		observability.Current().ObserveLLMRequest(c.model, caller, "empty", dur)
		return "", fmt.Errorf("%w: empty completion", ErrModelUnavailable)
	}
	observability.Current().ObserveLLMRequest(c.model, caller, "ok", dur)
	c.log.Debug("model call complete", "caller", caller, "duration_ms", dur.Milliseconds(), "usage", resp.Usage.TotalTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type unavailable struct{}

func (unavailable) Complete(context.Context, string, float32, int) (string, error) {
	return "", fmt.Errorf("%w: no API key configured", ErrModelUnavailable)
}
