package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	"github.com/i-am-the-robot/Edulife/internal/http/response"
	"github.com/i-am-the-robot/Edulife/internal/services"
)

type SchoolHandler struct {
	schools  services.SchoolService
	teachers services.TeacherService
	students services.StudentService
}

func NewSchoolHandler(schools services.SchoolService, teachers services.TeacherService, students services.StudentService) *SchoolHandler {
	return &SchoolHandler{schools: schools, teachers: teachers, students: students}
}

type createSchoolReq struct {
	Name         string   `json:"name" binding:"required,max=200"`
	Location     string   `json:"location" binding:"max=200"`
	ContactEmail string   `json:"contact_email" binding:"omitempty,email"`
	ContactPhone string   `json:"contact_phone" binding:"max=32"`
	GradeLevels  []string `json:"grade_levels"`
	SyllabusText string   `json:"syllabus_text"`
}

// POST /api/schools
func (h *SchoolHandler) Create(c *gin.Context) {
	var req createSchoolReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	school, err := h.schools.Create(c.Request.Context(), services.SchoolInput{
		Name:         req.Name,
		Location:     req.Location,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		GradeLevels:  req.GradeLevels,
		SyllabusText: req.SyllabusText,
	})
	if err != nil {
		response.RespondServiceError(c, "create_school_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"school": school})
}

// GET /api/schools?active=true
func (h *SchoolHandler) List(c *gin.Context) {
	schools, err := h.schools.List(c.Request.Context(), queryBool(c, "active"))
	if err != nil {
		response.RespondServiceError(c, "list_schools_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"schools": schools})
}

// GET /api/schools/:id
func (h *SchoolHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_school_id", errInvalidID)
		return
	}
	school, err := h.schools.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, "get_school_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"school": school})
}

type updateSchoolReq struct {
	Name         *string  `json:"name" binding:"omitempty,min=1,max=200"`
	Location     *string  `json:"location" binding:"omitempty,max=200"`
	ContactEmail *string  `json:"contact_email" binding:"omitempty,email"`
	ContactPhone *string  `json:"contact_phone" binding:"omitempty,max=32"`
	GradeLevels  []string `json:"grade_levels"`
	SyllabusText *string  `json:"syllabus_text"`
	IsActive     *bool    `json:"is_active"`
}

// PATCH /api/schools/:id
func (h *SchoolHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_school_id", errInvalidID)
		return
	}
	var req updateSchoolReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	school, err := h.schools.Update(c.Request.Context(), id, services.SchoolUpdate{
		Name:         req.Name,
		Location:     req.Location,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		GradeLevels:  req.GradeLevels,
		SyllabusText: req.SyllabusText,
		IsActive:     req.IsActive,
	})
	if err != nil {
		response.RespondServiceError(c, "update_school_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"school": school})
}

// DELETE /api/schools/:id
func (h *SchoolHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_school_id", errInvalidID)
		return
	}
	if err := h.schools.Deactivate(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, "delete_school_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/schools/:id/teachers
func (h *SchoolHandler) Teachers(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_school_id", errInvalidID)
		return
	}
	teachers, err := h.teachers.ListBySchool(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, "list_teachers_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"teachers": teachers})
}

// GET /api/schools/:id/students?active=true
func (h *SchoolHandler) Students(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_school_id", errInvalidID)
		return
	}
	students, err := h.students.List(c.Request.Context(), repos.StudentFilter{SchoolID: id, ActiveOnly: queryBool(c, "active")})
	if err != nil {
		response.RespondServiceError(c, "list_students_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"students": students})
}
