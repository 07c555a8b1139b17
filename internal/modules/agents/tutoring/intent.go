package tutoring

import (
	"strings"
	"unicode"
)

type IntentType string

const (
	IntentQuizRequest    IntentType = "quiz_request"
	IntentSummary        IntentType = "summary_request"
	IntentGreeting       IntentType = "greeting"
	IntentGratitude      IntentType = "gratitude"
	IntentTired          IntentType = "tired"
	IntentProfanity      IntentType = "profanity"
	IntentSimpleQuestion IntentType = "simple_question"
	IntentUnsure         IntentType = "unsure_what_to_learn"
	IntentVisual         IntentType = "visual_request"
	IntentLearning       IntentType = "learning"
)

type Intent struct {
	Type       IntentType `json:"type"`
	Confidence string     `json:"confidence"`
}

// FastPath reports whether the intent is answered with a canned reply and
// no model call.
func (i Intent) FastPath() bool {
	switch i.Type {
	case IntentGreeting, IntentGratitude, IntentTired, IntentProfanity:
		return true
	}
	return false
}

type intentRule struct {
	intent     IntentType
	confidence string
	// phrases match anywhere in the lowercased message; words must match a
	// whole word so "rest" does not fire on "interesting".
	phrases []string
	words   []string
	match   func(lower string, ws []string) bool
}

// Checked in order; the first rule that matches wins.
var intentTable = []intentRule{
	{intent: IntentQuizRequest, confidence: "high", phrases: []string{"test me", "practice questions"}, words: []string{"quiz", "exam"}},
	{intent: IntentSummary, confidence: "high", phrases: []string{"what did we", "what have we"}, words: []string{"summary", "recap"}},
	{intent: IntentGreeting, confidence: "high", match: isGreeting},
	{intent: IntentGratitude, confidence: "high", phrases: []string{"thank you", "thank u"}, words: []string{"thanks", "thx", "appreciate"}},
	{intent: IntentTired, confidence: "medium", words: []string{"tired", "sleepy", "break", "rest", "stop", "bye", "goodbye"}},
	{intent: IntentProfanity, confidence: "high", phrases: []string{"stupid ai"}, words: []string{"fuck", "shit", "damn"}},
	{intent: IntentSimpleQuestion, confidence: "medium", match: isBareQuestionWord},
	{intent: IntentUnsure, confidence: "high", phrases: []string{
		"what should i learn",
		"what to learn",
		"don't know what",
		"dont know what",
		"not sure what",
		"help me choose",
		"what topic",
		"suggest something",
	}},
	{intent: IntentVisual, confidence: "medium", phrases: []string{"show me"}, words: []string{"picture", "image", "diagram", "draw"}},
}

var (
	greetingWords = []string{"hi", "hello", "hey", "hy", "good morning", "good afternoon", "good evening"}
	questionWords = map[string]struct{}{"what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "who": {}}
)

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func containsWord(ws []string, w string) bool {
	for _, x := range ws {
		if x == w {
			return true
		}
	}
	return false
}

func containsPhrase(ws []string, phrase string) bool {
	parts := strings.Fields(phrase)
	if len(parts) == 1 {
		return containsWord(ws, parts[0])
	}
	for i := 0; i+len(parts) <= len(ws); i++ {
		match := true
		for j, p := range parts {
			if ws[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (r intentRule) matches(lower string, ws []string) bool {
	if r.match != nil {
		return r.match(lower, ws)
	}
	for _, p := range r.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, w := range r.words {
		if containsWord(ws, w) {
			return true
		}
	}
	return false
}

// DetectIntent classifies a raw student message with a keyword table. It
// never calls the model.
func DetectIntent(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	ws := words(lower)
	for _, r := range intentTable {
		if r.matches(lower, ws) {
			return Intent{Type: r.intent, Confidence: r.confidence}
		}
	}
	return Intent{Type: IntentLearning, Confidence: "low"}
}

func isBareQuestionWord(lower string, _ []string) bool {
	_, ok := questionWords[strings.TrimRight(lower, "?!. ")]
	return ok
}

func isGreeting(lower string, ws []string) bool {
	trimmed := strings.TrimRight(lower, "!.? ")
	for _, g := range greetingWords {
		if trimmed == g {
			return true
		}
	}
	if len(ws) > 3 {
		return false
	}
	for _, g := range greetingWords {
		if containsPhrase(ws, g) {
			return true
		}
	}
	return false
}
