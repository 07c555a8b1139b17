package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/i-am-the-robot/Edulife/internal/platform/ctxutil"
)

func TestTraceAndRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext(), AttachRequestContext())

	var td *ctxutil.TraceData
	var rd *ctxutil.RequestData
	r.GET("/api/students/:id/chat/history", func(c *gin.Context) {
		td = ctxutil.GetTraceData(c.Request.Context())
		rd = ctxutil.GetRequestData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/students/abc/chat/history?session_id=s-1", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if td == nil || td.RequestID != "req-42" || td.TraceID == "" {
		t.Fatalf("trace data: %+v", td)
	}
	if rec.Header().Get(HeaderRequestID) != "req-42" || rec.Header().Get(HeaderTraceID) != td.TraceID {
		t.Fatalf("headers not echoed: %v", rec.Header())
	}
	if rd == nil || rd.StudentID != "abc" || rd.SessionID != "s-1" {
		t.Fatalf("request data: %+v", rd)
	}
}
