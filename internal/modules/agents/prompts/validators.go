package prompts

import (
	"fmt"
	"strings"
)

type Validator func(Input) error

func RequireNonEmpty(field string, get func(Input) string) Validator {
	return func(in Input) error {
		if get == nil {
			return fmt.Errorf("validator for %s: getter is nil", field)
		}
		if strings.TrimSpace(get(in)) == "" {
			return fmt.Errorf("%s required", field)
		}
		return nil
	}
}

func RequirePositive(field string, get func(Input) int) Validator {
	return func(in Input) error {
		if get(in) <= 0 {
			return fmt.Errorf("%s must be positive", field)
		}
		return nil
	}
}

func all(vs ...Validator) Validator {
	return func(in Input) error {
		for _, v := range vs {
			if v == nil {
				continue
			}
			if err := v(in); err != nil {
				return err
			}
		}
		return nil
	}
}

var (
	needMessage = RequireNonEmpty("Message", func(in Input) string { return in.Message })
	needName    = RequireNonEmpty("StudentName", func(in Input) string { return in.StudentName })
	needSubject = RequireNonEmpty("Subject", func(in Input) string { return in.Subject })
)

var validators = map[PromptName]Validator{
	PromptConfusionAnalysis:   all(needMessage, needSubject),
	PromptTutoringExplanation: all(needMessage, needName),
	PromptFactExtraction:      needMessage,
	PromptQuizQuestions: all(
		needSubject,
		RequireNonEmpty("Difficulty", func(in Input) string { return in.Difficulty }),
		RequirePositive("NumQuestions", func(in Input) int { return in.NumQuestions }),
	),
	PromptWeeklySchedule:    needName,
	PromptSentimentAnalysis: needMessage,
	PromptEncouragement:     needName,
	PromptInactivityCheckIn: all(
		needName,
		RequirePositive("DaysInactive", func(in Input) int { return in.DaysInactive }),
	),
}
