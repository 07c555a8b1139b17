package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/i-am-the-robot/Edulife/internal/platform/apierr"
)

type probe struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	Message   string `json:"message" binding:"required,max=10"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestRespondBindErrorListsFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var p probe
		if err := c.ShouldBindJSON(&p); err != nil {
			RespondBindError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"student_id":"nope","message":"far too long a message"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
	env := decode(t, rec)
	if env.Error.Code != "validation_failed" {
		t.Fatalf("code: %q", env.Error.Code)
	}
	if env.Error.Fields["student_id"] != "uuid" || env.Error.Fields["message"] != "max=10" {
		t.Fatalf("fields: %v", env.Error.Fields)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`)))
	if env := decode(t, rec); rec.Code != http.StatusBadRequest || env.Error.Code != "invalid_request" {
		t.Fatalf("malformed body: %d %+v", rec.Code, env)
	}
}

func TestRespondServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", apierr.New(http.StatusNotFound, "student_not_found", errors.New("student not found")), http.StatusNotFound, "student_not_found"},
		{"plain error", errors.New("pq: connection refused"), http.StatusInternalServerError, "chat_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			RespondServiceError(c, "chat_failed", tc.err)
			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d", tc.status, rec.Code)
			}
			env := decode(t, rec)
			if env.Error.Code != tc.code {
				t.Fatalf("code: want=%s got=%s", tc.code, env.Error.Code)
			}
			if strings.Contains(env.Error.Message, "pq:") {
				t.Fatalf("internal detail leaked: %q", env.Error.Message)
			}
		})
	}
}
