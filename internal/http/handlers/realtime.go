package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/i-am-the-robot/Edulife/internal/http/response"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
	"github.com/i-am-the-robot/Edulife/internal/realtime"
	"github.com/i-am-the-robot/Edulife/internal/services"
)

type RealtimeHandler struct {
	log      *logger.Logger
	hub      *realtime.SSEHub
	students services.StudentService
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, students services.StudentService) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub, students: students}
}

// GET /api/students/:id/notifications/stream
func (h *RealtimeHandler) Stream(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	if _, err := h.students.Get(c.Request.Context(), studentID); err != nil {
		response.RespondServiceError(c, "stream_failed", err)
		return
	}

	client := h.hub.NewSSEClient(studentID)
	h.hub.AddChannel(client, realtime.StudentChannel(studentID))
	defer h.hub.CloseClient(client)

	h.log.Debug("Notification stream opened", "student_id", studentID, "client_id", client.ID)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
