package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/i-am-the-robot/Edulife/internal/http/response"
	"github.com/i-am-the-robot/Edulife/internal/modules/coordinator"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
	"github.com/i-am-the-robot/Edulife/internal/services"
)

const HeaderSessionID = "X-Session-Id"

type ChatHandler struct {
	log  *logger.Logger
	chat services.ConversationService
}

func NewChatHandler(log *logger.Logger, chat services.ConversationService) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), chat: chat}
}

type sendMessageReq struct {
	StudentID uuid.UUID `json:"student_id" binding:"required"`
	Message   string    `json:"message" binding:"required,max=4000"`
	Subject   string    `json:"subject" binding:"omitempty,max=64"`
	SessionID string    `json:"session_id" binding:"omitempty,max=128"`
}

func (r sendMessageReq) toService() services.ChatRequest {
	return services.ChatRequest{
		StudentID: r.StudentID,
		Message:   r.Message,
		Subject:   r.Subject,
		SessionID: r.SessionID,
	}
}

// POST /api/chat/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	out, err := h.chat.Send(c.Request.Context(), req.toService())
	if err != nil {
		response.RespondServiceError(c, "chat_failed", err)
		return
	}
	c.Header(HeaderSessionID, out.SessionID)
	response.RespondOK(c, out)
}

type streamError struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// POST /api/chat/messages/stream
//
// The body is newline-delimited JSON: one response chunk with the
// explanation, then one control chunk with the merged reply. Errors found
// before the first chunk get a normal JSON error response.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	prepared, err := h.chat.Prepare(req.toService())
	if err != nil {
		response.RespondServiceError(c, "chat_failed", err)
		return
	}

	started := false
	enc := json.NewEncoder(c.Writer)
	emit := func(chunk coordinator.Chunk) error {
		if !started {
			started = true
			c.Header("Content-Type", "application/x-ndjson")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			c.Header(HeaderSessionID, prepared.SessionID)
			c.Status(http.StatusOK)
		}
		if err := enc.Encode(chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	if _, err := h.chat.Stream(c.Request.Context(), prepared, emit); err != nil {
		if !started {
			response.RespondServiceError(c, "chat_failed", err)
			return
		}
		h.log.Warn("Chat stream ended with error", "student_id", prepared.StudentID, "error", err)
		_ = enc.Encode(streamError{Type: "error", Content: "the reply could not be finished"})
		c.Writer.Flush()
	}
}

// GET /api/students/:id/chat/history?session_id=&favorites=&limit=50&offset=0
func (h *ChatHandler) History(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	turns, err := h.chat.History(c.Request.Context(), studentID, c.Query("session_id"), queryBool(c, "favorites"),
		queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		response.RespondServiceError(c, "list_history_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"turns": turns})
}

// GET /api/students/:id/chat/sessions?limit=50
func (h *ChatHandler) Sessions(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	sessions, err := h.chat.Sessions(c.Request.Context(), studentID, queryInt(c, "limit", 50))
	if err != nil {
		response.RespondServiceError(c, "list_sessions_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": sessions})
}

type favoriteReq struct {
	IsFavorite *bool `json:"is_favorite" binding:"required"`
}

// PUT /api/students/:id/chat/turns/:turn_id/favorite
func (h *ChatHandler) SetFavorite(c *gin.Context) {
	studentID, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	turnID, ok := uuidParam(c, "turn_id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_turn_id", errInvalidID)
		return
	}
	var req favoriteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	turn, err := h.chat.SetFavorite(c.Request.Context(), studentID, turnID, *req.IsFavorite)
	if err != nil {
		response.RespondServiceError(c, "set_favorite_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"turn": turn})
}
