package prompts

// Input is a superset of all fields any prompt might need.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	// Student profile
	StudentName  string
	FirstName    string
	Age          int
	StudentClass string
	Hobby        string
	Personality  string

	// SupportAdaptation is rendered from the support_adaptations table and is
	// never shown to the student.
	SupportAdaptation string

	// Memory
	FactsText      string
	StrategiesText string

	// Conversation
	Message       string
	Subject       string
	History       string
	ContextFlag   string
	SentimentNote string
	Syllabus      string

	// Assessment
	Difficulty   string
	NumQuestions int

	// Motivation
	Achievement  string
	Struggle     string
	Milestone    string
	DaysInactive int

	// Scheduling
	WeakSubjects     string
	Allocations      string
	BurnoutRisk      string
	BestTime         string
	CurriculumTopics string
}
