package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository persists study events in Postgres. It carries the uniqueness
// contract the streak engine depends on: the (enrollment_id, study_day) unique
// constraint makes same-day inserts collapse, and InsertEvent reports the
// conflict instead of failing.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ActiveEnrollment returns the id of the caller's active enrollment in the
// course, or "" when there is none.
func (r *Repository) ActiveEnrollment(ctx context.Context, userID, courseID string) (string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id FROM enrollments
		WHERE user_id = $1 AND course_id = $2 AND active
	`, userID, courseID)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return id, nil
}

// ActiveEnrollments returns ids of all of the user's active enrollments.
func (r *Repository) ActiveEnrollments(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM enrollments WHERE user_id = $1 AND active
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertEvent writes one study event unless the enrollment already has one for
// the given calendar day. The second return reports whether a row was written.
func (r *Repository) InsertEvent(ctx context.Context, enrollmentID string, at time.Time, day string) (string, bool, error) {
	id := uuid.NewString()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO study_events (id, enrollment_id, recorded_at, study_day)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (enrollment_id, study_day) DO NOTHING
	`, id, enrollmentID, at, day)
	if err != nil {
		return "", false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", false, err
	}
	if n == 0 {
		return "", false, nil
	}
	return id, true, nil
}

// EventTimes returns recorded_at for all events on the given enrollments,
// optionally bounded to [from, to]. Zero bounds mean full history.
func (r *Repository) EventTimes(ctx context.Context, enrollmentIDs []string, from, to time.Time) ([]time.Time, error) {
	if len(enrollmentIDs) == 0 {
		return nil, nil
	}
	query := `SELECT recorded_at FROM study_events WHERE enrollment_id IN (`
	args := make([]any, 0, len(enrollmentIDs)+2)
	for i, id := range enrollmentIDs {
		if i > 0 {
			query += ","
		}
		query += placeholder(len(args) + 1)
		args = append(args, id)
	}
	query += ")"
	if !from.IsZero() {
		query += " AND recorded_at >= " + placeholder(len(args)+1)
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND recorded_at <= " + placeholder(len(args)+1)
		args = append(args, to)
	}
	query += " ORDER BY recorded_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func placeholder(i int) string { return fmt.Sprintf("$%d", i) }
