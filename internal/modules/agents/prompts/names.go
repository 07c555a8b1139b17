package prompts

type PromptName string

const (
	// Tutoring
	PromptConfusionAnalysis   PromptName = "confusion_analysis"
	PromptTutoringExplanation PromptName = "tutoring_explanation"
	PromptFactExtraction      PromptName = "fact_extraction"

	// Assessment
	PromptQuizQuestions PromptName = "quiz_questions"

	// Scheduling
	PromptWeeklySchedule PromptName = "weekly_schedule"

	// Motivation
	PromptSentimentAnalysis PromptName = "sentiment_analysis"
	PromptEncouragement     PromptName = "encouragement"
	PromptInactivityCheckIn PromptName = "inactivity_check_in"
)

type MessageName string

const (
	MessageParentBadgeSubject   MessageName = "parent_badge_subject"
	MessageParentBadgeBody      MessageName = "parent_badge_body"
	MessageParentSummarySubject MessageName = "parent_summary_subject"
	MessageParentSummaryBody    MessageName = "parent_summary_body"
	MessageParentAlertSubject   MessageName = "parent_alert_subject"
	MessageParentAlertBody      MessageName = "parent_alert_body"
	MessageTimetableNow         MessageName = "timetable_now"
	MessageTimetableNowTopic    MessageName = "timetable_now_topic"
	MessageTimetableNext        MessageName = "timetable_next"
	MessageScheduleCreated      MessageName = "schedule_created"
)
