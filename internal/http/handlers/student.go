package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/i-am-the-robot/Edulife/internal/http/response"
	"github.com/i-am-the-robot/Edulife/internal/services"
)

type StudentHandler struct {
	students services.StudentService
}

func NewStudentHandler(students services.StudentService) *StudentHandler {
	return &StudentHandler{students: students}
}

type createStudentReq struct {
	SchoolID         uuid.UUID  `json:"school_id" binding:"required"`
	TeacherID        *uuid.UUID `json:"teacher_id"`
	FullName         string     `json:"full_name" binding:"required,max=200"`
	Age              int        `json:"age" binding:"required,gte=3,lte=30"`
	StudentClass     string     `json:"student_class" binding:"required,max=32"`
	Hobby            string     `json:"hobby" binding:"max=100"`
	Personality      string     `json:"personality"`
	SupportType      string     `json:"support_type"`
	PIN              string     `json:"pin" binding:"omitempty,numeric,min=4,max=8"`
	ParentName       string     `json:"parent_name" binding:"max=200"`
	ParentEmail      string     `json:"parent_email" binding:"omitempty,email"`
	FavoriteSubjects []string   `json:"favorite_subjects"`
}

// POST /api/students
func (h *StudentHandler) Create(c *gin.Context) {
	var req createStudentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	st, err := h.students.Create(c.Request.Context(), services.StudentInput{
		SchoolID:         req.SchoolID,
		TeacherID:        req.TeacherID,
		FullName:         req.FullName,
		Age:              req.Age,
		StudentClass:     req.StudentClass,
		Hobby:            req.Hobby,
		Personality:      req.Personality,
		SupportType:      req.SupportType,
		PIN:              req.PIN,
		ParentName:       req.ParentName,
		ParentEmail:      req.ParentEmail,
		FavoriteSubjects: req.FavoriteSubjects,
	})
	if err != nil {
		response.RespondServiceError(c, "create_student_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"student": st})
}

// GET /api/students/:id
func (h *StudentHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	st, err := h.students.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, "get_student_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"student": st})
}

// GET /api/students/:id/profile
func (h *StudentHandler) Profile(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	profile, err := h.students.Profile(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, "get_profile_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"profile": profile})
}

type updateStudentReq struct {
	TeacherID        *uuid.UUID `json:"teacher_id"`
	FullName         *string    `json:"full_name" binding:"omitempty,min=1,max=200"`
	Age              *int       `json:"age" binding:"omitempty,gte=3,lte=30"`
	StudentClass     *string    `json:"student_class" binding:"omitempty,min=1,max=32"`
	Hobby            *string    `json:"hobby" binding:"omitempty,max=100"`
	Personality      *string    `json:"personality"`
	SupportType      *string    `json:"support_type"`
	PIN              *string    `json:"pin" binding:"omitempty,numeric,min=4,max=8"`
	ParentName       *string    `json:"parent_name" binding:"omitempty,max=200"`
	ParentEmail      *string    `json:"parent_email" binding:"omitempty,email"`
	FavoriteSubjects []string   `json:"favorite_subjects"`
	IsActive         *bool      `json:"is_active"`
}

// PATCH /api/students/:id
func (h *StudentHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	var req updateStudentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	st, err := h.students.Update(c.Request.Context(), id, services.StudentUpdate{
		TeacherID:        req.TeacherID,
		FullName:         req.FullName,
		Age:              req.Age,
		StudentClass:     req.StudentClass,
		Hobby:            req.Hobby,
		Personality:      req.Personality,
		SupportType:      req.SupportType,
		PIN:              req.PIN,
		ParentName:       req.ParentName,
		ParentEmail:      req.ParentEmail,
		FavoriteSubjects: req.FavoriteSubjects,
		IsActive:         req.IsActive,
	})
	if err != nil {
		response.RespondServiceError(c, "update_student_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"student": st})
}

// DELETE /api/students/:id
func (h *StudentHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	if err := h.students.Deactivate(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, "delete_student_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

type verifyPINReq struct {
	PIN string `json:"pin" binding:"required,numeric,min=4,max=8"`
}

// POST /api/students/:id/verify-pin
func (h *StudentHandler) VerifyPIN(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", errInvalidID)
		return
	}
	var req verifyPINReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	if err := h.students.VerifyPIN(c.Request.Context(), id, req.PIN); err != nil {
		response.RespondServiceError(c, "verify_pin_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"valid": true})
}
