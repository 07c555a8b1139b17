package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/i-am-the-robot/Edulife/internal/http/response"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
	"github.com/i-am-the-robot/Edulife/internal/services"
)

type AgentHandler struct {
	log    *logger.Logger
	agents services.AgentService
}

func NewAgentHandler(log *logger.Logger, agents services.AgentService) *AgentHandler {
	return &AgentHandler{log: log.With("handler", "AgentHandler"), agents: agents}
}

// GET /api/students/:id/agent/memory/summary
func (h *AgentHandler) MemorySummary(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	summary, err := h.agents.MemorySummary(c.Request.Context(), studentID)
	if err != nil {
		response.RespondServiceError(c, "memory_summary_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"summary": summary})
}

// GET /api/students/:id/agent/memory
func (h *AgentHandler) Memory(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	mem, err := h.agents.Memory(c.Request.Context(), studentID)
	if err != nil {
		response.RespondServiceError(c, "memory_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"memory": mem})
}

// GET /api/students/:id/agent/actions?type=&limit=50
func (h *AgentHandler) Actions(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	rows, err := h.agents.Actions(c.Request.Context(), studentID, c.Query("type"), queryInt(c, "limit", 50))
	if err != nil {
		response.RespondServiceError(c, "list_actions_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"actions": rows})
}

type outcomeReq struct {
	Outcome            string   `json:"outcome" binding:"required,max=64"`
	StudentResponse    string   `json:"student_response" binding:"max=2000"`
	EffectivenessScore *float64 `json:"effectiveness_score"`
}

// PATCH /api/students/:id/agent/actions/:action_id
func (h *AgentHandler) UpdateOutcome(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	actionID, ok := uuidParam(c, "action_id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_action_id", errInvalidID)
		return
	}
	var req outcomeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	act, err := h.agents.UpdateOutcome(c.Request.Context(), studentID, actionID, services.OutcomeInput{
		Outcome:            req.Outcome,
		StudentResponse:    req.StudentResponse,
		EffectivenessScore: req.EffectivenessScore,
	})
	if err != nil {
		response.RespondServiceError(c, "update_outcome_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"action": act})
}

// GET /api/students/:id/agent/stats
func (h *AgentHandler) Stats(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	stats, err := h.agents.Stats(c.Request.Context(), studentID)
	if err != nil {
		response.RespondServiceError(c, "agent_stats_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}

// POST /api/students/:id/agent/check-in
func (h *AgentHandler) CheckIn(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	out, err := h.agents.CheckIn(c.Request.Context(), studentID)
	if err != nil {
		response.RespondServiceError(c, "check_in_failed", err)
		return
	}
	response.RespondOK(c, out)
}

type examPrepReq struct {
	ExamDate string   `json:"exam_date" binding:"required"`
	Subjects []string `json:"subjects" binding:"required,min=1"`
}

// POST /api/students/:id/agent/exam-prep
func (h *AgentHandler) ExamPrep(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	var req examPrepReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	examDate, ok := parseDate(req.ExamDate)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_exam_date", errInvalidDate)
		return
	}
	plan, err := h.agents.ExamPrep(c.Request.Context(), studentID, examDate, req.Subjects)
	if err != nil {
		response.RespondServiceError(c, "exam_prep_failed", err)
		return
	}
	response.RespondOK(c, plan)
}

// POST /api/students/:id/agent/low-engagement
func (h *AgentHandler) LowEngagement(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	plan, err := h.agents.LowEngagement(c.Request.Context(), studentID)
	if err != nil {
		response.RespondServiceError(c, "low_engagement_failed", err)
		return
	}
	response.RespondOK(c, plan)
}

// POST /api/agent/daily-checkins
func (h *AgentHandler) RunDailyCheckIns(c *gin.Context) {
	sweep, err := h.agents.RunDailyCheckIns(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, "daily_checkins_failed", err)
		return
	}
	h.log.Info("Daily check-in sweep finished", "students", sweep.StudentsChecked, "check_ins", sweep.CheckInsSent, "failures", sweep.Failures)
	response.RespondOK(c, sweep)
}
