package uploads

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["file"][0]
}

func TestSaveWritesFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, 1<<20)
	require.NoError(t, err)

	stored, err := s.Save(fileHeader(t, "my notes.pdf", []byte("pdf bytes")))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored.URL, "/uploads/"))
	assert.True(t, strings.HasSuffix(stored.Filename, "my_notes.pdf"))

	data, err := os.ReadFile(filepath.Join(dir, stored.Filename))
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)
}

func TestSaveRejectsTooLarge(t *testing.T) {
	s, err := NewStorage(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = s.Save(fileHeader(t, "big.bin", []byte("more than four bytes")))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSaveSanitizesFilename(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, 1<<20)
	require.NoError(t, err)

	stored, err := s.Save(fileHeader(t, "../../evil.txt", []byte("x")))
	require.NoError(t, err)

	// The stored name must not escape the upload dir.
	assert.NotContains(t, stored.Filename, "..")
	_, err = os.Stat(filepath.Join(dir, stored.Filename))
	assert.NoError(t, err)
}

func TestAbsolute(t *testing.T) {
	req := httptest.NewRequest("GET", "http://api.example.com/api/users/me", nil)

	assert.Equal(t, "http://api.example.com/uploads/a.png", Absolute(req, "/uploads/a.png"))
	assert.Equal(t, "https://cdn.example.com/b.png", Absolute(req, "https://cdn.example.com/b.png"))
	assert.Equal(t, "", Absolute(req, ""))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://api.example.com/uploads/a.png", Absolute(req, "/uploads/a.png"))
}
