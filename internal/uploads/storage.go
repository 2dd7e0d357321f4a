package uploads

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrTooLarge is returned when an uploaded file exceeds the configured cap.
var ErrTooLarge = errors.New("file too large")

// Stored describes a file saved to disk.
type Stored struct {
	Filename string
	URL      string
	MimeType string
}

// Storage writes uploaded files to a local directory and hands back relative
// /uploads URLs. Handlers absolutize them against the request host.
type Storage struct {
	dir      string
	maxBytes int64
}

// NewStorage ensures the upload directory exists.
func NewStorage(dir string, maxBytes int64) (*Storage, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the directory files are written to, for static serving.
func (s *Storage) Dir() string { return s.dir }

// Save writes one multipart file under a collision-resistant name.
func (s *Storage) Save(fh *multipart.FileHeader) (Stored, error) {
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return Stored{}, ErrTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return Stored{}, err
	}
	defer src.Close()

	name := fmt.Sprintf("%d-%d-%s", time.Now().UnixNano(), rand.Int63n(1e9), sanitize(fh.Filename))
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return Stored{}, err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return Stored{}, err
	}

	return Stored{
		Filename: name,
		URL:      "/uploads/" + name,
		MimeType: fh.Header.Get("Content-Type"),
	}, nil
}

// Absolute rewrites a relative /uploads URL against the request host. URLs
// that are already absolute pass through untouched.
func Absolute(r *http.Request, url string) string {
	if url == "" || !strings.HasPrefix(url, "/uploads") {
		return url
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + url
}

// sanitize keeps only the base name and squeezes whitespace, so the stored
// name is safe to join under the upload dir.
func sanitize(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "file"
	}
	return name
}
