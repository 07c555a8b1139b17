package scheduling

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed curriculum.yaml
var curriculumYAML []byte

// Curriculum maps class levels to subject topic lists.
type Curriculum struct {
	levels map[string]map[string][]string
	// index is keyed by the upper-cased level name with spaces removed
	index map[string]string
}

var levelNumber = regexp.MustCompile(`\d+`)

func ParseCurriculum(data []byte) (*Curriculum, error) {
	var doc struct {
		Levels map[string]map[string][]string `yaml:"levels"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse curriculum: %w", err)
	}
	if len(doc.Levels) == 0 {
		return nil, fmt.Errorf("curriculum has no levels")
	}
	c := &Curriculum{levels: doc.Levels, index: map[string]string{}}
	for name := range doc.Levels {
		c.index[squash(name)] = name
	}
	return c, nil
}

func DefaultCurriculum() *Curriculum {
	c, err := ParseCurriculum(curriculumYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func squash(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

// Level resolves a free-form class name such as "jss1", "Primary 4" or
// "Senior Secondary 2" to a known level. Unknown classes fall back to JSS 1.
func (c *Curriculum) Level(studentClass string) string {
	key := squash(studentClass)
	if name, ok := c.index[key]; ok {
		return name
	}
	num := levelNumber.FindString(key)
	pick := func(prefix, fallback string) string {
		if num != "" {
			if name, ok := c.index[squash(prefix+num)]; ok {
				return name
			}
		}
		return fallback
	}
	switch {
	case strings.Contains(key, "PRIMARY"), strings.Contains(key, "PRY"),
		strings.Contains(key, "GRADE"), strings.Contains(key, "BASIC"):
		return pick("Primary", "Primary 1")
	case strings.Contains(key, "JSS"), strings.Contains(key, "JUNIOR"):
		return pick("JSS", "JSS 1")
	case strings.Contains(key, "SS"), strings.Contains(key, "SENIOR"):
		return pick("SS", "SS 1")
	}
	return "JSS 1"
}

func (c *Curriculum) Topics(studentClass string) map[string][]string {
	return c.levels[c.Level(studentClass)]
}

// Render lists a class's subjects alphabetically, one per line.
func (c *Curriculum) Render(studentClass string) string {
	topics := c.Topics(studentClass)
	subjects := make([]string, 0, len(topics))
	for s := range topics {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	var b strings.Builder
	for _, s := range subjects {
		fmt.Fprintf(&b, "- %s: %s\n", s, strings.Join(topics[s], ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
