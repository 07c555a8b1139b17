package tutoring

import (
	"strings"
)

const maxSyllabusChars = 2500

var subjectKeywords = map[string][]string{
	"mathematics": {"math", "mathematics", "arithmetic", "algebra", "geometry", "calculus"},
	"science":     {"science", "biology", "chemistry", "physics", "nature"},
	"english":     {"english", "language", "reading", "writing", "literature"},
	"history":     {"history", "social studies", "geography"},
	"art":         {"art", "music", "drama", "creative"},
}

// SyllabusExcerpt keeps the blank-line separated sections of a school
// syllabus that mention the subject. With no subject, or when nothing
// matches, the whole text is used. The result is capped in length.
func SyllabusExcerpt(syllabus, subject string) string {
	syllabus = strings.TrimSpace(syllabus)
	if syllabus == "" {
		return ""
	}
	subject = strings.ToLower(strings.TrimSpace(subject))
	out := syllabus
	if subject != "" {
		keywords, ok := subjectKeywords[subject]
		if !ok {
			keywords = []string{subject}
		}
		var keep []string
		for _, section := range strings.Split(syllabus, "\n\n") {
			lower := strings.ToLower(section)
			for _, k := range keywords {
				if strings.Contains(lower, k) {
					keep = append(keep, strings.TrimSpace(section))
					break
				}
			}
		}
		if len(keep) > 0 {
			out = strings.Join(keep, "\n\n")
		}
	}
	if r := []rune(out); len(r) > maxSyllabusChars {
		out = string(r[:maxSyllabusChars])
	}
	return out
}
