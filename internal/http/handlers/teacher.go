package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	"github.com/i-am-the-robot/Edulife/internal/http/response"
	"github.com/i-am-the-robot/Edulife/internal/services"
)

type TeacherHandler struct {
	teachers services.TeacherService
	students services.StudentService
}

func NewTeacherHandler(teachers services.TeacherService, students services.StudentService) *TeacherHandler {
	return &TeacherHandler{teachers: teachers, students: students}
}

type createTeacherReq struct {
	SchoolID          uuid.UUID `json:"school_id" binding:"required"`
	FullName          string    `json:"full_name" binding:"required,max=200"`
	Email             string    `json:"email" binding:"required,email"`
	Phone             string    `json:"phone" binding:"max=32"`
	Role              string    `json:"role"`
	Subjects          []string  `json:"subjects"`
	YearsOfExperience int       `json:"years_of_experience" binding:"gte=0,lte=80"`
}

// POST /api/teachers
func (h *TeacherHandler) Create(c *gin.Context) {
	var req createTeacherReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	teacher, err := h.teachers.Create(c.Request.Context(), services.TeacherInput{
		SchoolID:          req.SchoolID,
		FullName:          req.FullName,
		Email:             req.Email,
		Phone:             req.Phone,
		Role:              req.Role,
		Subjects:          req.Subjects,
		YearsOfExperience: req.YearsOfExperience,
	})
	if err != nil {
		response.RespondServiceError(c, "create_teacher_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"teacher": teacher})
}

// GET /api/teachers/:id
func (h *TeacherHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_teacher_id", errInvalidID)
		return
	}
	teacher, err := h.teachers.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, "get_teacher_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"teacher": teacher})
}

type updateTeacherReq struct {
	FullName          *string  `json:"full_name" binding:"omitempty,min=1,max=200"`
	Phone             *string  `json:"phone" binding:"omitempty,max=32"`
	Role              *string  `json:"role"`
	Subjects          []string `json:"subjects"`
	YearsOfExperience *int     `json:"years_of_experience" binding:"omitempty,gte=0,lte=80"`
	IsActive          *bool    `json:"is_active"`
}

// PATCH /api/teachers/:id
func (h *TeacherHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_teacher_id", errInvalidID)
		return
	}
	var req updateTeacherReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	teacher, err := h.teachers.Update(c.Request.Context(), id, services.TeacherUpdate{
		FullName:          req.FullName,
		Phone:             req.Phone,
		Role:              req.Role,
		Subjects:          req.Subjects,
		YearsOfExperience: req.YearsOfExperience,
		IsActive:          req.IsActive,
	})
	if err != nil {
		response.RespondServiceError(c, "update_teacher_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"teacher": teacher})
}

// DELETE /api/teachers/:id
func (h *TeacherHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_teacher_id", errInvalidID)
		return
	}
	if err := h.teachers.Deactivate(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, "delete_teacher_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/teachers/:id/students
func (h *TeacherHandler) Students(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_teacher_id", errInvalidID)
		return
	}
	teacher, err := h.teachers.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, "list_students_failed", err)
		return
	}
	students, err := h.students.List(c.Request.Context(), repos.StudentFilter{
		SchoolID:   teacher.SchoolID,
		TeacherID:  teacher.ID,
		ActiveOnly: queryBool(c, "active"),
	})
	if err != nil {
		response.RespondServiceError(c, "list_students_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"students": students})
}
