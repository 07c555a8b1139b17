package prompts

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/i-am-the-robot/Edulife/internal/platform/llm"
)

//go:embed prompts.yaml
var embedded []byte

type file struct {
	Version            int                 `yaml:"version"`
	Prompts            []Spec              `yaml:"prompts"`
	SupportAdaptations map[string]string   `yaml:"support_adaptations"`
	FastPath           map[string][]string `yaml:"fast_path"`
	Messages           map[string]string   `yaml:"messages"`
}

// Prompt is a rendered prompt ready for llm.Client.Complete.
type Prompt struct {
	Name        string
	Version     int
	Text        string
	Temperature float32
	MaxTokens   int
}

func (p Prompt) Fingerprint() string {
	h := sha256.Sum256([]byte(
		strings.TrimSpace(p.Name) + "|" +
			strconv.Itoa(p.Version) + "|" +
			strings.TrimSpace(p.Text),
	))
	return hex.EncodeToString(h[:])
}

// Registry holds compiled prompts and message templates.
type Registry struct {
	version     int
	prompts     map[PromptName]Template
	adaptations map[string]string
	fastPath    map[string][]*template.Template
	messages    map[MessageName]*template.Template
}

// Parse compiles a prompts document. Every entry is checked up front so a
// broken template fails at startup rather than mid-conversation.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	r := &Registry{
		version:     f.Version,
		prompts:     make(map[PromptName]Template, len(f.Prompts)),
		adaptations: make(map[string]string, len(f.SupportAdaptations)),
		fastPath:    make(map[string][]*template.Template, len(f.FastPath)),
		messages:    make(map[MessageName]*template.Template, len(f.Messages)),
	}
	for _, s := range f.Prompts {
		if _, dup := r.prompts[s.Name]; dup {
			return nil, fmt.Errorf("duplicate prompt %s", s.Name)
		}
		t, err := MakeTemplate(s)
		if err != nil {
			return nil, err
		}
		r.prompts[s.Name] = t
	}
	for k, v := range f.SupportAdaptations {
		r.adaptations[strings.ToLower(k)] = strings.TrimSpace(v)
	}
	for intent, replies := range f.FastPath {
		for i, text := range replies {
			t, err := compileText(fmt.Sprintf("fast_path.%s.%d", intent, i), text)
			if err != nil {
				return nil, err
			}
			r.fastPath[intent] = append(r.fastPath[intent], t)
		}
	}
	for name, text := range f.Messages {
		t, err := compileText(name, text)
		if err != nil {
			return nil, err
		}
		r.messages[MessageName(name)] = t
	}
	return r, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the registry compiled from the embedded prompts.yaml.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Parse(embedded)
	})
	return defaultReg, defaultErr
}

// MustDefault panics when the embedded prompts do not compile.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Version() int { return r.version }

// Build validates the input and renders the named prompt.
func (r *Registry) Build(name PromptName, in Input) (Prompt, error) {
	t, ok := r.prompts[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", string(name))
	}
	if t.Validate != nil {
		if err := t.Validate(in); err != nil {
			return Prompt{}, fmt.Errorf("%s: %w", string(name), err)
		}
	}
	text, err := t.Render(in)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{
		Name:        string(t.Name),
		Version:     t.Version,
		Text:        text,
		Temperature: t.Temperature,
		MaxTokens:   t.MaxTokens,
	}, nil
}

// SupportAdaptation returns the silent teaching instructions for a support
// type. Unknown or empty types get the standard mode.
func (r *Registry) SupportAdaptation(supportType string) string {
	key := strings.ToLower(strings.TrimSpace(supportType))
	if key == "" {
		key = "none"
	}
	if s, ok := r.adaptations[key]; ok {
		return s
	}
	return r.adaptations["none"]
}

// FastPathReply renders one of the canned replies for intent, chosen at
// random. ok is false when the intent has no canned replies.
func (r *Registry) FastPathReply(intent string, data map[string]any) (string, bool, error) {
	replies := r.fastPath[intent]
	if len(replies) == 0 {
		return "", false, nil
	}
	out, err := execText(replies[rand.IntN(len(replies))], data)
	if err != nil {
		return "", true, fmt.Errorf("fast path %s: %w", intent, err)
	}
	return out, true, nil
}

// Message renders a fixed message template.
func (r *Registry) Message(name MessageName, data map[string]any) (string, error) {
	t, ok := r.messages[name]
	if !ok {
		return "", fmt.Errorf("unknown message: %s", string(name))
	}
	out, err := execText(t, data)
	if err != nil {
		return "", fmt.Errorf("message %s: %w", name, err)
	}
	return out, nil
}

// Complete builds the named prompt and sends it with its own temperature and
// token limit. caller labels the call for metrics and logs.
func (r *Registry) Complete(ctx context.Context, c llm.Client, caller string, name PromptName, in Input) (string, error) {
	p, err := r.Build(name, in)
	if err != nil {
		return "", err
	}
	return c.Complete(llm.WithCaller(ctx, caller), p.Text, p.Temperature, p.MaxTokens)
}
