package sendgrid

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

func TestBuildRequiresSenderAndContent(t *testing.T) {
	c := &client{log: logger.Nop(), cfg: Config{APIKey: "k"}}
	_, err := c.Build(SendEmailRequest{To: []EmailAddress{{Email: "p@example.com"}}, Subject: "s", Text: "t"})
	require.Error(t, err)

	c.cfg.DefaultFromEmail = "noreply@edulife.test"
	_, err = c.Build(SendEmailRequest{To: []EmailAddress{{Email: "p@example.com"}}, Subject: "s"})
	require.Error(t, err)

	m, err := c.Build(SendEmailRequest{To: []EmailAddress{{Email: "p@example.com", Name: "Parent"}}, Subject: "Badge earned", Text: "Well done"})
	require.NoError(t, err)
	assert.Equal(t, "noreply@edulife.test", m.From.Address)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "Badge earned", m.Personalizations[0].Subject)
}

func TestSendPostsToMailEndpoint(t *testing.T) {
	var path, auth, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cl, err := New(logger.Nop(), Config{APIKey: "key", BaseURL: srv.URL, DefaultFromEmail: "noreply@edulife.test"})
	require.NoError(t, err)
	res, err := cl.Send(context.Background(), SendEmailRequest{
		To: []EmailAddress{{Email: "p@example.com"}}, Subject: "Hi", Text: "Progress",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Equal(t, "msg-1", res.MessageID)
	assert.Equal(t, "/v3/mail/send", path)
	assert.Equal(t, "Bearer key", auth)
	assert.True(t, strings.Contains(body, "p@example.com"))
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad"}]}`))
	}))
	defer srv.Close()

	cl, err := New(logger.Nop(), Config{APIKey: "key", BaseURL: srv.URL, DefaultFromEmail: "a@b.c", MaxRetries: 3})
	require.NoError(t, err)
	_, err = cl.Send(context.Background(), SendEmailRequest{To: []EmailAddress{{Email: "p@example.com"}}, Subject: "Hi", Text: "x"})
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.StatusCode)
	assert.Equal(t, 1, calls)
}
