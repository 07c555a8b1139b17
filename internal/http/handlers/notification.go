package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/i-am-the-robot/Edulife/internal/http/response"
	"github.com/i-am-the-robot/Edulife/internal/services"
)

type NotificationHandler struct {
	notifications services.NotificationService
}

func NewNotificationHandler(notifications services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GET /api/students/:id/notifications?unread=true&limit=50
func (h *NotificationHandler) List(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	items, err := h.notifications.List(c.Request.Context(), studentID, queryBool(c, "unread"), queryInt(c, "limit", 50))
	if err != nil {
		response.RespondServiceError(c, "list_notifications_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"notifications": items})
}

type createNotificationReq struct {
	NotificationType string         `json:"notification_type" binding:"omitempty,max=32"`
	AgentType        string         `json:"agent_type" binding:"omitempty,max=32"`
	Title            string         `json:"title" binding:"required,max=200"`
	Message          string         `json:"message" binding:"required,max=2000"`
	ActionData       map[string]any `json:"action_data"`
	Priority         string         `json:"priority"`
	ExpiresAt        *time.Time     `json:"expires_at"`
}

// POST /api/students/:id/notifications
func (h *NotificationHandler) Create(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	var req createNotificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	n, err := h.notifications.Create(c.Request.Context(), services.NotificationInput{
		StudentID:        studentID,
		NotificationType: req.NotificationType,
		AgentType:        req.AgentType,
		Title:            req.Title,
		Message:          req.Message,
		ActionData:       req.ActionData,
		Priority:         req.Priority,
		ExpiresAt:        req.ExpiresAt,
	})
	if err != nil {
		response.RespondServiceError(c, "create_notification_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"notification": n})
}

// POST /api/students/:id/notifications/:notification_id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	id, ok := uuidParam(c, "notification_id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_notification_id", errInvalidID)
		return
	}
	n, err := h.notifications.MarkRead(c.Request.Context(), studentID, id)
	if err != nil {
		response.RespondServiceError(c, "mark_read_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"notification": n})
}

// POST /api/students/:id/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	n, err := h.notifications.MarkAllRead(c.Request.Context(), studentID)
	if err != nil {
		response.RespondServiceError(c, "mark_all_read_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"updated": n})
}

// DELETE /api/students/:id/notifications/:notification_id
func (h *NotificationHandler) Delete(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	id, ok := uuidParam(c, "notification_id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_notification_id", errInvalidID)
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), studentID, id); err != nil {
		response.RespondServiceError(c, "delete_notification_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
