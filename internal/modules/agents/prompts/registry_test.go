package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedPromptsCompile(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	names := []PromptName{
		PromptConfusionAnalysis,
		PromptTutoringExplanation,
		PromptFactExtraction,
		PromptQuizQuestions,
		PromptWeeklySchedule,
		PromptSentimentAnalysis,
		PromptEncouragement,
		PromptInactivityCheckIn,
	}
	for _, n := range names {
		_, ok := r.prompts[n]
		assert.Truef(t, ok, "prompt %s not registered", n)
	}
	for _, m := range []MessageName{
		MessageParentBadgeSubject, MessageParentBadgeBody,
		MessageParentSummarySubject, MessageParentSummaryBody,
		MessageParentAlertSubject, MessageParentAlertBody,
		MessageTimetableNow, MessageTimetableNowTopic, MessageTimetableNext,
		MessageScheduleCreated,
	} {
		_, ok := r.messages[m]
		assert.Truef(t, ok, "message %s not registered", m)
	}
}

func TestBuildExplanationCarriesCallSettings(t *testing.T) {
	r := MustDefault()
	p, err := r.Build(PromptTutoringExplanation, Input{
		StudentName:       "Ada Obi",
		Age:               12,
		Hobby:             "football",
		Message:           "explain fractions",
		Subject:           "Mathematics",
		FactsText:         "- Hobby: Plays in the school team",
		SupportAdaptation: r.SupportAdaptation("Dyslexia"),
	})
	require.NoError(t, err)
	assert.Equal(t, float32(0.8), p.Temperature)
	assert.Equal(t, 1000, p.MaxTokens)
	assert.Contains(t, p.Text, "Ada Obi")
	assert.Contains(t, p.Text, "Plays in the school team")
	assert.Contains(t, p.Text, "Bold")
	assert.Contains(t, p.Text, "None yet")
	assert.NotContains(t, p.Text, "<no value>")
	assert.Len(t, p.Fingerprint(), 64)

	c, err := r.Build(PromptConfusionAnalysis, Input{Message: "what is a fraction", Subject: "Mathematics"})
	require.NoError(t, err)
	assert.Equal(t, float32(0.3), c.Temperature)
	assert.Equal(t, 300, c.MaxTokens)
	assert.Contains(t, c.Text, "No prior context")
}

func TestBuildValidates(t *testing.T) {
	r := MustDefault()
	cases := []struct {
		name PromptName
		in   Input
	}{
		{PromptConfusionAnalysis, Input{Subject: "Math"}},
		{PromptQuizQuestions, Input{Subject: "Math", Difficulty: "easy"}},
		{PromptInactivityCheckIn, Input{StudentName: "Ada"}},
		{PromptName("nope"), Input{}},
	}
	for _, tc := range cases {
		t.Run(string(tc.name), func(t *testing.T) {
			if _, err := r.Build(tc.name, tc.in); err == nil {
				t.Fatalf("Build(%s) succeeded, want error", tc.name)
			}
		})
	}
}

func TestSupportAdaptation(t *testing.T) {
	r := MustDefault()
	std := r.SupportAdaptation("")
	if !strings.Contains(std, "STANDARD") {
		t.Fatalf("empty support type should map to standard mode, got %q", std)
	}
	if r.SupportAdaptation("Unknown") != std {
		t.Fatalf("unknown support type should fall back to standard mode")
	}
	for _, st := range []string{"Autism", "Dyslexia", "DownSyndrome"} {
		got := r.SupportAdaptation(st)
		if got == std || !strings.Contains(got, "SILENTLY") {
			t.Fatalf("SupportAdaptation(%s)=%q", st, got)
		}
	}
}

func TestFastPathReply(t *testing.T) {
	r := MustDefault()
	for _, intent := range []string{"greeting", "gratitude", "tired", "profanity"} {
		out, ok, err := r.FastPathReply(intent, map[string]any{"FirstName": "Ada"})
		require.NoError(t, err)
		require.True(t, ok, intent)
		assert.NotEmpty(t, out)
	}
	_, ok, err := r.FastPathReply("learning", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMessageMissingKeyFails(t *testing.T) {
	r := MustDefault()
	_, err := r.Message(MessageTimetableNext, map[string]any{"Subject": "Math"})
	require.Error(t, err)

	out, err := r.Message(MessageTimetableNext, map[string]any{"Subject": "Math", "Start": "16:00"})
	require.NoError(t, err)
	assert.Equal(t, "Your next scheduled topic is **Math** at 16:00. Want to get a head start?", out)
}

func TestParseRejectsBrokenTemplate(t *testing.T) {
	_, err := Parse([]byte(`
prompts:
  - name: broken
    version: 1
    temperature: 0.2
    max_tokens: 10
    template: "{{.Message"
`))
	require.Error(t, err)

	_, err = Parse([]byte(`
prompts:
  - name: dup
    version: 1
    temperature: 0.2
    max_tokens: 10
    template: "a"
  - name: dup
    version: 1
    temperature: 0.2
    max_tokens: 10
    template: "b"
`))
	require.Error(t, err)
}
