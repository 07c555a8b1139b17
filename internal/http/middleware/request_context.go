package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/i-am-the-robot/Edulife/internal/platform/ctxutil"
)

// AttachRequestContext records which student and chat session a request
// is about, taken from the :id path parameter of student routes and the
// session_id query parameter.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := &ctxutil.RequestData{
			SessionID: strings.TrimSpace(c.Query("session_id")),
		}
		if strings.HasPrefix(c.FullPath(), "/api/students/:id") {
			rd.StudentID = c.Param("id")
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}
