package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Spec is one prompt as declared in prompts.yaml.
type Spec struct {
	Name        PromptName `yaml:"name"`
	Version     int        `yaml:"version"`
	Temperature float32    `yaml:"temperature"`
	MaxTokens   int        `yaml:"max_tokens"`
	Template    string     `yaml:"template"`
}

// Template is a compiled Spec.
type Template struct {
	Name        PromptName
	Version     int
	Temperature float32
	MaxTokens   int
	Render      func(Input) (string, error)
	Validate    Validator
}

// MakeTemplate compiles a Spec into a Template.
func MakeTemplate(s Spec) (Template, error) {
	if strings.TrimSpace(string(s.Name)) == "" {
		return Template{}, fmt.Errorf("missing prompt name")
	}
	if s.Version <= 0 {
		return Template{}, fmt.Errorf("invalid version for %s", s.Name)
	}
	if s.MaxTokens <= 0 {
		return Template{}, fmt.Errorf("invalid max_tokens for %s", s.Name)
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return Template{}, fmt.Errorf("invalid temperature for %s", s.Name)
	}
	t, err := template.New(string(s.Name)).Option("missingkey=zero").Parse(s.Template)
	if err != nil {
		return Template{}, fmt.Errorf("%s template parse: %w", s.Name, err)
	}
	return Template{
		Name:        s.Name,
		Version:     s.Version,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
		Render: func(in Input) (string, error) {
			var b bytes.Buffer
			if err := t.Execute(&b, in); err != nil {
				return "", fmt.Errorf("%s render: %w", s.Name, err)
			}
			return strings.TrimSpace(b.String()), nil
		},
		Validate: validators[s.Name],
	}, nil
}

// compileText parses a free-form message template. Unlike prompts these are
// rendered from maps, so a missing key is an error rather than "<no value>".
func compileText(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%s template parse: %w", name, err)
	}
	return t, nil
}

func execText(t *template.Template, data any) (string, error) {
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}
