package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := calendar.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	c := NewClientWithService(svc, "")
	c.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return c
}

func TestClient_CreateEvent(t *testing.T) {
	var got calendar.Event
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/calendars/team/events"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(&calendar.Event{Id: "e1", HtmlLink: "https://calendar.example/e1"}) //nolint:errcheck
	})

	msg, err := c.CreateEvent(context.Background(), EventInput{
		Summary:     "Review",
		Start:       "2026-03-02T10:00:00Z",
		End:         "2026-03-02T11:00:00Z",
		Description: "Quarterly review",
		CalendarID:  "team",
	})
	require.NoError(t, err)
	assert.Equal(t, "Event created: https://calendar.example/e1", msg)
	assert.Equal(t, "Review", got.Summary)
	assert.Equal(t, "Quarterly review", got.Description)
	assert.Equal(t, "2026-03-02T10:00:00Z", got.Start.DateTime)
	assert.Equal(t, "2026-03-02T11:00:00Z", got.End.DateTime)
}

func TestClient_CreateEventValidation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	ctx := context.Background()
	cases := []EventInput{
		{Summary: "", Start: "2026-03-02T10:00:00Z", End: "2026-03-02T11:00:00Z"},
		{Summary: "x", Start: "tomorrow", End: "2026-03-02T11:00:00Z"},
		{Summary: "x", Start: "2026-03-02T10:00:00Z", End: "later"},
		{Summary: "x", Start: "2026-03-02T11:00:00Z", End: "2026-03-02T10:00:00Z"},
	}
	for _, in := range cases {
		_, err := c.CreateEvent(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidEvent, "%+v", in)
	}
}

func TestClient_ListUpcoming(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.True(t, strings.HasSuffix(r.URL.Path, "/calendars/primary/events"), r.URL.Path)
		assert.Equal(t, "2026-03-01T09:00:00Z", q.Get("timeMin"))
		assert.Equal(t, "5", q.Get("maxResults"))
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))
		json.NewEncoder(w).Encode(&calendar.Events{Items: []*calendar.Event{ //nolint:errcheck
			{Summary: "Standup", Start: &calendar.EventDateTime{DateTime: "2026-03-02T09:00:00Z"}},
			{Summary: "Holiday", Start: &calendar.EventDateTime{Date: "2026-03-05"}},
		}})
	})

	got, err := c.ListUpcoming(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02T09:00:00Z — Standup\n2026-03-05 — Holiday", got)
}

func TestClient_ListUpcomingEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`)) //nolint:errcheck
	})
	got, err := c.ListUpcoming(context.Background(), "", 3)
	require.NoError(t, err)
	assert.Equal(t, NoEvents, got)
}

func TestClient_ErrorMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`)) //nolint:errcheck
	})
	_, err := c.ListUpcoming(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		err := WrapError(&googleapi.Error{Code: tt.code})
		assert.ErrorIs(t, err, tt.want)
		var gerr *googleapi.Error
		assert.True(t, errors.As(err, &gerr))
	}
	plain := errors.New("boom")
	assert.Equal(t, plain, WrapError(plain))
	assert.NoError(t, WrapError(nil))
	other := &googleapi.Error{Code: http.StatusInternalServerError}
	assert.Equal(t, error(other), WrapError(other))
}

func TestRateLimiter_Backoff(t *testing.T) {
	rl := NewRateLimiter(1000, 1)
	require.NoError(t, rl.Wait(context.Background()))

	rl.RecordRateLimitError(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}

func TestTokenSourceFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"token": "access-123",
		"refresh_token": "refresh-456",
		"token_uri": "https://oauth2.example/token",
		"client_id": "cid",
		"client_secret": "secret",
		"scopes": ["https://www.googleapis.com/auth/calendar"],
		"expiry": "2999-01-01T00:00:00.000000"
	}`), 0600))

	ts, err := TokenSourceFromFile(context.Background(), path)
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok.AccessToken)
	assert.Equal(t, 2999, tok.Expiry.Year())

	_, err = TokenSourceFromFile(context.Background(), filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))
	_, err = TokenSourceFromFile(context.Background(), path)
	assert.Error(t, err)
}
