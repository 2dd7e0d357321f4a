package note

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"learnhub/internal/course"
)

// Attachment is a file attached to a note.
type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Note is a study note attached to a course.
type Note struct {
	ID          string             `json:"id"`
	CourseID    string             `json:"course"`
	AuthorID    string             `json:"-"`
	Author      *course.Instructor `json:"author,omitempty"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	Tags        []string           `json:"tags"`
	Pinned      bool               `json:"pinned"`
	Attachments []Attachment       `json:"attachments"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   *time.Time         `json:"updatedAt,omitempty"`
}

// Repository persists notes in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a note and its attachments.
func (r *Repository) Create(ctx context.Context, n *Note) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notes (id, course_id, author_id, title, content, tags, pinned, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, n.ID, n.CourseID, n.AuthorID, n.Title, n.Content, joinTags(n.Tags), n.Pinned, n.CreatedAt)
	if err != nil {
		return err
	}
	return r.AddAttachments(ctx, n.ID, n.Attachments)
}

// AddAttachments appends attachments to an existing note.
func (r *Repository) AddAttachments(ctx context.Context, noteID string, atts []Attachment) error {
	for _, a := range atts {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO note_attachments (id, note_id, filename, url)
			VALUES ($1,$2,$3,$4)
		`, uuid.NewString(), noteID, a.Filename, a.URL)
		if err != nil {
			return err
		}
	}
	return nil
}

const noteColumns = `n.id, n.course_id, n.author_id, n.title, n.content, n.tags, n.pinned,
	n.created_at, n.updated_at, u.name, u.email`

func scanNote(scan func(...any) error) (Note, error) {
	var n Note
	var tags string
	var updated sql.NullTime
	var authorName, authorEmail sql.NullString
	err := scan(&n.ID, &n.CourseID, &n.AuthorID, &n.Title, &n.Content, &tags, &n.Pinned,
		&n.CreatedAt, &updated, &authorName, &authorEmail)
	if err != nil {
		return Note{}, err
	}
	n.Tags = course.ParseTags(tags)
	if n.Tags == nil {
		n.Tags = []string{}
	}
	n.Attachments = []Attachment{}
	if updated.Valid {
		n.UpdatedAt = &updated.Time
	}
	if authorName.Valid {
		n.Author = &course.Instructor{ID: n.AuthorID, Name: authorName.String, Email: authorEmail.String}
	}
	return n, nil
}

// GetByID returns one note with attachments, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*Note, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes n LEFT JOIN users u ON u.id = n.author_id
		WHERE n.id = $1
	`, id)
	n, err := scanNote(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadAttachments(ctx, map[string]*Note{n.ID: &n}); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListForCourse returns a course's notes, pinned first then newest.
func (r *Repository) ListForCourse(ctx context.Context, courseID string) ([]Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes n LEFT JOIN users u ON u.id = n.author_id
		WHERE n.course_id = $1
		ORDER BY n.pinned DESC, n.created_at DESC
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		n, err := scanNote(rows.Scan)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byID := map[string]*Note{}
	for i := range notes {
		byID[notes[i].ID] = &notes[i]
	}
	if err := r.loadAttachments(ctx, byID); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *Repository) loadAttachments(ctx context.Context, byID map[string]*Note) error {
	if len(byID) == 0 {
		return nil
	}
	query := `SELECT note_id, filename, url FROM note_attachments WHERE note_id IN (`
	args := make([]any, 0, len(byID))
	for id := range byID {
		if len(args) > 0 {
			query += ","
		}
		args = append(args, id)
		query += fmt.Sprintf("$%d", len(args))
	}
	query += ")"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var noteID string
		var a Attachment
		if err := rows.Scan(&noteID, &a.Filename, &a.URL); err != nil {
			return err
		}
		if n, ok := byID[noteID]; ok {
			n.Attachments = append(n.Attachments, a)
		}
	}
	return rows.Err()
}

// Update persists the editable note fields and stamps updated_at.
func (r *Repository) Update(ctx context.Context, n *Note) error {
	now := time.Now().UTC()
	n.UpdatedAt = &now
	_, err := r.db.ExecContext(ctx, `
		UPDATE notes SET title = $2, content = $3, tags = $4, pinned = $5, updated_at = $6
		WHERE id = $1
	`, n.ID, n.Title, n.Content, joinTags(n.Tags), n.Pinned, now)
	return err
}

// Delete removes a note; attachments cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	return err
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ","
		}
		out += t
	}
	return out
}
