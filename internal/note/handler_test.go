package note

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnhub/internal/auth"
	"learnhub/internal/course"
	"learnhub/internal/uploads"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "learnhub-test"
)

// fakeStore keeps notes in a map, handing out copies the way the Postgres
// repo hands out fresh scans.
type fakeStore struct {
	notes map[string]*Note
}

func newFakeStore() *fakeStore { return &fakeStore{notes: map[string]*Note{}} }

func (f *fakeStore) Create(_ context.Context, n *Note) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	cp := *n
	f.notes[n.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*Note, error) {
	n, ok := f.notes[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (f *fakeStore) ListForCourse(_ context.Context, courseID string) ([]Note, error) {
	list := []Note{}
	for _, n := range f.notes {
		if n.CourseID == courseID {
			list = append(list, *n)
		}
	}
	return list, nil
}

func (f *fakeStore) Update(_ context.Context, n *Note) error {
	now := time.Now().UTC()
	n.UpdatedAt = &now
	cp := *n
	f.notes[n.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	delete(f.notes, id)
	return nil
}

func (f *fakeStore) AddAttachments(_ context.Context, noteID string, atts []Attachment) error {
	if n, ok := f.notes[noteID]; ok {
		n.Attachments = append(n.Attachments, atts...)
	}
	return nil
}

type fakeCourses struct {
	ids map[string]bool
}

func (f *fakeCourses) GetByID(_ context.Context, id string) (*course.Course, error) {
	if !f.ids[id] {
		return nil, nil
	}
	return &course.Course{ID: id, Title: "Go Basics"}, nil
}

func setupRouter(t *testing.T, store Store, courseIDs ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	storage, err := uploads.NewStorage(t.TempDir(), 1<<20)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, id := range courseIDs {
		ids[id] = true
	}
	h := NewHandler(store, &fakeCourses{ids: ids}, storage)

	r := gin.New()
	h.Routes(r.Group("/api", auth.UserAuth(testKey, testIssuer)))
	return r
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, _, err := auth.Issue(userID, "student", testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	return tok
}

func doForm(r *gin.Engine, method, path, tok string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedNote(t *testing.T, store *fakeStore, author, courseID, title string) string {
	t.Helper()
	n := &Note{CourseID: courseID, AuthorID: author, Title: title, Tags: []string{}, Attachments: []Attachment{}}
	require.NoError(t, store.Create(context.Background(), n))
	return n.ID
}

func TestCreateNote(t *testing.T) {
	store := newFakeStore()
	r := setupRouter(t, store, "go-basics")

	form := url.Values{
		"courseId": {"go-basics"},
		"title":    {"Pointers"},
		"content":  {"escape analysis notes"},
		"tags":     {"go, memory"},
	}
	w := doForm(r, http.MethodPost, "/api/notes", token(t, "alice"), form)
	require.Equal(t, http.StatusOK, w.Code)

	var n Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &n))
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "Pointers", n.Title)
	assert.Equal(t, []string{"go", "memory"}, n.Tags)
	assert.Len(t, store.notes, 1)
}

func TestCreateNoteUnknownCourse(t *testing.T) {
	r := setupRouter(t, newFakeStore())

	form := url.Values{"courseId": {"missing"}, "title": {"Pointers"}}
	w := doForm(r, http.MethodPost, "/api/notes", token(t, "alice"), form)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Course not found")
}

func TestCreateNoteRequiresTitle(t *testing.T) {
	r := setupRouter(t, newFakeStore(), "go-basics")

	form := url.Values{"courseId": {"go-basics"}}
	w := doForm(r, http.MethodPost, "/api/notes", token(t, "alice"), form)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateNoteOwnerOnly(t *testing.T) {
	store := newFakeStore()
	id := seedNote(t, store, "alice", "go-basics", "Pointers")
	r := setupRouter(t, store, "go-basics")

	form := url.Values{"title": {"Hijacked"}}
	w := doForm(r, http.MethodPatch, "/api/notes/"+id, token(t, "bob"), form)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Not allowed")
	assert.Equal(t, "Pointers", store.notes[id].Title)

	w = doForm(r, http.MethodPatch, "/api/notes/unknown", token(t, "alice"), form)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Note not found")

	form = url.Values{"title": {"Pointers and escape analysis"}}
	w = doForm(r, http.MethodPatch, "/api/notes/"+id, token(t, "alice"), form)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pointers and escape analysis", store.notes[id].Title)
	assert.NotNil(t, store.notes[id].UpdatedAt)
}

func TestTogglePin(t *testing.T) {
	store := newFakeStore()
	id := seedNote(t, store, "alice", "go-basics", "Pointers")
	r := setupRouter(t, store, "go-basics")

	w := doForm(r, http.MethodPatch, "/api/notes/"+id+"/pin", token(t, "alice"), url.Values{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, store.notes[id].Pinned)

	w = doForm(r, http.MethodPatch, "/api/notes/"+id+"/pin", token(t, "alice"), url.Values{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store.notes[id].Pinned)
}

func TestDeleteNoteOwnerOnly(t *testing.T) {
	store := newFakeStore()
	id := seedNote(t, store, "alice", "go-basics", "Pointers")
	r := setupRouter(t, store, "go-basics")

	w := doForm(r, http.MethodDelete, "/api/notes/"+id, token(t, "bob"), url.Values{})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Len(t, store.notes, 1)

	w = doForm(r, http.MethodDelete, "/api/notes/"+id, token(t, "alice"), url.Values{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.notes)
}

func TestListForCourse(t *testing.T) {
	store := newFakeStore()
	seedNote(t, store, "alice", "go-basics", "Pointers")
	seedNote(t, store, "alice", "databases", "Indexes")
	r := setupRouter(t, store, "go-basics", "databases")

	req := httptest.NewRequest(http.MethodGet, "/api/notes/course/go-basics", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "alice"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var notes []Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "Pointers", notes[0].Title)
}
