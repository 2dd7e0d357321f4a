package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository persists courses and enrollments in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const courseColumns = `c.id, c.title, c.slug, c.description, c.long_description, c.duration,
	c.level, c.tags, c.price, c.published, c.cover_url, c.created_at,
	u.id, u.name, u.email`

func scanCourse(scan func(...any) error) (Course, error) {
	var crs Course
	var tags string
	var instID, instName, instEmail sql.NullString
	err := scan(&crs.ID, &crs.Title, &crs.Slug, &crs.Description, &crs.LongDescription,
		&crs.Duration, &crs.Level, &tags, &crs.Price, &crs.Published, &crs.CoverURL,
		&crs.CreatedAt, &instID, &instName, &instEmail)
	if err != nil {
		return Course{}, err
	}
	crs.Tags = ParseTags(tags)
	if crs.Tags == nil {
		crs.Tags = []string{}
	}
	crs.Assets = []Asset{}
	if instID.Valid {
		crs.Instructor = &Instructor{ID: instID.String, Name: instName.String, Email: instEmail.String}
	}
	return crs, nil
}

// Create inserts a course and its assets.
func (r *Repository) Create(ctx context.Context, crs *Course) error {
	if crs.ID == "" {
		crs.ID = uuid.NewString()
	}
	crs.CreatedAt = time.Now().UTC()
	instructorID := ""
	if crs.Instructor != nil {
		instructorID = crs.Instructor.ID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO courses (id, title, slug, description, long_description, duration,
			level, instructor_id, tags, price, published, cover_url, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, crs.ID, crs.Title, crs.Slug, crs.Description, crs.LongDescription, crs.Duration,
		crs.Level, nullable(instructorID), joinTags(crs.Tags), crs.Price, crs.Published,
		crs.CoverURL, crs.CreatedAt)
	if err != nil {
		return err
	}
	for _, a := range crs.Assets {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO course_assets (id, course_id, filename, url, mime_type)
			VALUES ($1,$2,$3,$4,$5)
		`, uuid.NewString(), crs.ID, a.Filename, a.URL, a.MimeType)
		if err != nil {
			return err
		}
	}
	return nil
}

// SlugExists reports whether a course already uses the slug.
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses WHERE slug = $1`, slug).Scan(&n)
	return n > 0, err
}

// GetBySlug returns one course with instructor and assets, or nil when absent.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Course, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+courseColumns+`
		FROM courses c LEFT JOIN users u ON u.id = c.instructor_id
		WHERE c.slug = $1
	`, slug)
	crs, err := scanCourse(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadAssets(ctx, map[string]*Course{crs.ID: &crs}); err != nil {
		return nil, err
	}
	return &crs, nil
}

// GetByID returns one course without assets, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*Course, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+courseColumns+`
		FROM courses c LEFT JOIN users u ON u.id = c.instructor_id
		WHERE c.id = $1
	`, id)
	crs, err := scanCourse(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &crs, nil
}

// Filter narrows the published-course listing.
type Filter struct {
	Tag          string
	Query        string
	InstructorID string
	Page         int
	Limit        int
}

// ListPublished returns published courses, newest first.
func (r *Repository) ListPublished(ctx context.Context, f Filter) ([]Course, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	query := `SELECT ` + courseColumns + `
		FROM courses c LEFT JOIN users u ON u.id = c.instructor_id
		WHERE c.published`
	args := []any{}
	if f.Tag != "" {
		args = append(args, "%,"+f.Tag+",%")
		query += fmt.Sprintf(" AND (',' || c.tags || ',') LIKE $%d", len(args))
	}
	if f.InstructorID != "" {
		args = append(args, f.InstructorID)
		query += fmt.Sprintf(" AND c.instructor_id = $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		query += fmt.Sprintf(" AND (c.title ILIKE $%d OR c.description ILIKE $%d)", len(args), len(args))
	}
	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query += fmt.Sprintf(" ORDER BY c.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []Course{}
	byID := map[string]*Course{}
	for rows.Next() {
		crs, err := scanCourse(rows.Scan)
		if err != nil {
			return nil, err
		}
		courses = append(courses, crs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range courses {
		byID[courses[i].ID] = &courses[i]
	}
	if err := r.loadAssets(ctx, byID); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *Repository) loadAssets(ctx context.Context, byID map[string]*Course) error {
	if len(byID) == 0 {
		return nil
	}
	query := `SELECT course_id, filename, url, mime_type FROM course_assets WHERE course_id IN (`
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
		var courseID string
		var a Asset
		if err := rows.Scan(&courseID, &a.Filename, &a.URL, &a.MimeType); err != nil {
			return err
		}
		if crs, ok := byID[courseID]; ok {
			crs.Assets = append(crs.Assets, a)
		}
	}
	return rows.Err()
}

// FindEnrollment returns the user's enrollment in a course, or nil.
func (r *Repository) FindEnrollment(ctx context.Context, userID, courseID string) (*Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, course_id, active, created_at
		FROM enrollments WHERE user_id = $1 AND course_id = $2
	`, userID, courseID)
	var e Enrollment
	if err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &e.Active, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// CreateEnrollment enrolls a user in a course, active from the start.
func (r *Repository) CreateEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error) {
	e := Enrollment{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  courseID,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO enrollments (id, user_id, course_id, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, e.ID, e.UserID, e.CourseID, e.Active, e.CreatedAt)
	if err != nil {
		return Enrollment{}, err
	}
	return e, nil
}

// ListEnrolled returns the user's active enrollments with course details.
func (r *Repository) ListEnrolled(ctx context.Context, userID string) ([]Enrolled, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.user_id, e.course_id, e.active, e.created_at, `+courseColumns+`
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		LEFT JOIN users u ON u.id = c.instructor_id
		WHERE e.user_id = $1 AND e.active
		ORDER BY e.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Enrolled{}
	for rows.Next() {
		var e Enrolled
		var tags string
		var instID, instName, instEmail sql.NullString
		err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.Active, &e.CreatedAt,
			&e.Course.ID, &e.Course.Title, &e.Course.Slug, &e.Course.Description,
			&e.Course.LongDescription, &e.Course.Duration, &e.Course.Level, &tags,
			&e.Course.Price, &e.Course.Published, &e.Course.CoverURL, &e.Course.CreatedAt,
			&instID, &instName, &instEmail)
		if err != nil {
			return nil, err
		}
		e.Course.Tags = ParseTags(tags)
		if e.Course.Tags == nil {
			e.Course.Tags = []string{}
		}
		e.Course.Assets = []Asset{}
		if instID.Valid {
			e.Course.Instructor = &Instructor{ID: instID.String, Name: instName.String, Email: instEmail.String}
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
