package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnhub/internal/auth"
	"learnhub/internal/queue"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "learnhub-test"
)

func setupRouter(t *testing.T, store EventStore, now func() time.Time, q queue.Queue) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewService(store, time.UTC, now)
	h := NewHandler(svc, q)

	r := gin.New()
	h.Routes(r.Group("/api", auth.UserAuth(testKey, testIssuer)))

	token, _, err := auth.Issue("alice", "student", testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	return r, token
}

func doJSON(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPingEndpoint(t *testing.T) {
	store := newFakeStore()
	store.enroll("alice", "go-basics")
	q := queue.NewInMemory(8)
	r, token := setupRouter(t, store, fixedClock(t, "2026-03-10", 9), q)

	w := doJSON(r, http.MethodPost, "/api/progress/ping", token, `{"courseId":"go-basics"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "Study recorded for today", resp["message"])
	assert.NotEmpty(t, resp["progressId"])

	// Same day again: no new event, no new queue message.
	w = doJSON(r, http.MethodPost, "/api/progress/ping", token, `{"courseId":"go-basics"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Already recorded for today", resp["message"])
	assert.Equal(t, 1, store.eventCount())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	messages, err := q.Consume(ctx)
	require.NoError(t, err)
	act := <-messages
	assert.Equal(t, "go-basics", act.CourseID)
	assert.Equal(t, "2026-03-10", act.Day)
	select {
	case extra := <-messages:
		t.Fatalf("unexpected second message for course %s", extra.CourseID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPingNotEnrolled(t *testing.T) {
	r, token := setupRouter(t, newFakeStore(), fixedClock(t, "2026-03-10", 9), nil)

	w := doJSON(r, http.MethodPost, "/api/progress/ping", token, `{"courseId":"go-basics"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Not enrolled in this course")
}

func TestPingRequiresCourseID(t *testing.T) {
	r, token := setupRouter(t, newFakeStore(), fixedClock(t, "2026-03-10", 9), nil)

	w := doJSON(r, http.MethodPost, "/api/progress/ping", token, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreakEndpoint(t *testing.T) {
	store := newFakeStore()
	e := store.enroll("alice", "go-basics")
	store.events[e] = map[string]time.Time{
		"2026-03-09": at(t, "2026-03-09", 9),
		"2026-03-10": at(t, "2026-03-10", 8),
	}
	r, token := setupRouter(t, store, fixedClock(t, "2026-03-10", 12), nil)

	w := doJSON(r, http.MethodGet, "/api/progress/streak", token, "")
	require.Equal(t, http.StatusOK, w.Code)

	var sum Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, 2, sum.CurrentStreak)
	assert.Equal(t, 2, sum.LongestStreak)
	assert.Equal(t, 2, sum.TotalStudyDays)
	assert.True(t, sum.TodayStudied)
	assert.Equal(t, "2026-03-10", sum.LastStudyDate)
}

func TestCalendarEndpoint(t *testing.T) {
	store := newFakeStore()
	e := store.enroll("alice", "go-basics")
	store.events[e] = map[string]time.Time{
		"2026-03-08": at(t, "2026-03-08", 9),
		"2026-03-09": at(t, "2026-03-09", 9),
	}
	r, token := setupRouter(t, store, fixedClock(t, "2026-03-10", 12), nil)

	w := doJSON(r, http.MethodGet, "/api/progress/calendar?from=2026-03-01&to=2026-03-10", token, "")
	require.Equal(t, http.StatusOK, w.Code)

	var cal CalendarResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cal))
	assert.Equal(t, "2026-03-01", cal.From)
	assert.Equal(t, "2026-03-10", cal.To)
	require.Len(t, cal.Days, 2)
	assert.Equal(t, "2026-03-08", cal.Days[0].Date)
	assert.Equal(t, "2026-03-09", cal.Days[1].Date)
}

func TestProgressRequiresAuth(t *testing.T) {
	r, _ := setupRouter(t, newFakeStore(), fixedClock(t, "2026-03-10", 12), nil)

	for _, path := range []string{"/api/progress/streak", "/api/progress/calendar"} {
		w := doJSON(r, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}
