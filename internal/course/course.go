package course

import (
	"regexp"
	"strings"
	"time"
)

// Asset is a downloadable file attached to a course.
type Asset struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	MimeType string `json:"mimetype,omitempty"`
}

// Instructor is the subset of a user embedded in course payloads.
type Instructor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Course is a catalog entry.
type Course struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Slug            string      `json:"slug"`
	Description     string      `json:"description"`
	LongDescription string      `json:"longDescription,omitempty"`
	Duration        string      `json:"duration,omitempty"`
	Level           string      `json:"level"`
	Tags            []string    `json:"tags"`
	Price           float64     `json:"price"`
	Published       bool        `json:"published"`
	CoverURL        string      `json:"coverUrl,omitempty"`
	Assets          []Asset     `json:"assets"`
	Instructor      *Instructor `json:"instructor,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// Enrollment ties a user to a course; study events hang off it.
type Enrollment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	CourseID  string    `json:"course"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Enrolled pairs an enrollment with its course for profile listings.
type Enrolled struct {
	Enrollment
	Course Course `json:"course"`
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a course title.
func Slugify(title string) string {
	s := nonWord.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

// ParseTags splits a comma-separated tag string, dropping empties.
func ParseTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func joinTags(tags []string) string { return strings.Join(tags, ",") }
