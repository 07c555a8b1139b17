package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/i-am-the-robot/Edulife/internal/http/response"
	"github.com/i-am-the-robot/Edulife/internal/services"
)

type LearningHandler struct {
	results   services.TestResultService
	timetable services.TimetableService
}

func NewLearningHandler(results services.TestResultService, timetable services.TimetableService) *LearningHandler {
	return &LearningHandler{results: results, timetable: timetable}
}

type answerReq struct {
	Question         string   `json:"question" binding:"required"`
	Options          []string `json:"options"`
	StudentAnswer    string   `json:"student_answer"`
	CorrectAnswer    string   `json:"correct_answer" binding:"required"`
	TimeSpentSeconds int      `json:"time_spent_seconds" binding:"gte=0"`
}

type submitResultsReq struct {
	Subject string      `json:"subject" binding:"required,max=64"`
	Topic   string      `json:"topic" binding:"max=128"`
	Answers []answerReq `json:"answers" binding:"required,min=1,max=50,dive"`
}

// POST /api/students/:id/test-results
func (h *LearningHandler) SubmitResults(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	var req submitResultsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	answers := make([]services.AnswerInput, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, services.AnswerInput{
			Question:         a.Question,
			Options:          a.Options,
			StudentAnswer:    a.StudentAnswer,
			CorrectAnswer:    a.CorrectAnswer,
			TimeSpentSeconds: a.TimeSpentSeconds,
		})
	}
	out, err := h.results.Submit(c.Request.Context(), services.SubmitInput{
		StudentID: studentID,
		Subject:   req.Subject,
		Topic:     req.Topic,
		Answers:   answers,
	})
	if err != nil {
		response.RespondServiceError(c, "submit_results_failed", err)
		return
	}
	response.RespondCreated(c, out)
}

// GET /api/students/:id/test-results?subject=&since=&limit=100
func (h *LearningHandler) ListResults(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		t, ok := parseDate(raw)
		if !ok {
			response.RespondError(c, http.StatusBadRequest, "invalid_since", errInvalidDate)
			return
		}
		since = t
	}
	rows, err := h.results.List(c.Request.Context(), studentID, c.Query("subject"), since, queryInt(c, "limit", 100))
	if err != nil {
		response.RespondServiceError(c, "list_results_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"results": rows})
}

// GET /api/students/:id/timetable?day=Monday
func (h *LearningHandler) Timetable(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	entries, err := h.timetable.Get(c.Request.Context(), studentID, c.Query("day"))
	if err != nil {
		response.RespondServiceError(c, "get_timetable_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"timetable": entries})
}

// POST /api/students/:id/timetable/generate
func (h *LearningHandler) GenerateTimetable(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	out, err := h.timetable.Generate(c.Request.Context(), studentID)
	if err != nil {
		response.RespondServiceError(c, "generate_timetable_failed", err)
		return
	}
	response.RespondCreated(c, out)
}
