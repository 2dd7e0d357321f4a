package admin

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ActivityPoint is one day of aggregated study activity across all courses.
type ActivityPoint struct {
	Day    string `json:"day"`
	Events int    `json:"events"`
}

// Repository answers platform-wide stat queries and maintains the activity
// rollups the worker feeds.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Counts returns the headline entity counts.
func (r *Repository) Counts(ctx context.Context) (users, courses, enrollments int, err error) {
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&users); err != nil {
		return
	}
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&courses); err != nil {
		return
	}
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM enrollments`).Scan(&enrollments)
	return
}

// BumpRollup increments the event count for one (day, course) cell.
func (r *Repository) BumpRollup(ctx context.Context, day, courseID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_rollups (day, course_id, events)
		VALUES ($1, $2, 1)
		ON CONFLICT (day, course_id) DO UPDATE SET events = activity_rollups.events + 1
	`, day, courseID)
	return err
}

// RecentActivity returns per-day event totals for the last n days.
func (r *Repository) RecentActivity(ctx context.Context, days int) ([]ActivityPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(day, 'YYYY-MM-DD'), SUM(events)
		FROM activity_rollups
		WHERE day >= CURRENT_DATE - $1::int
		GROUP BY day
		ORDER BY day
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	points := []ActivityPoint{}
	for rows.Next() {
		var p ActivityPoint
		if err := rows.Scan(&p.Day, &p.Events); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Handler exposes the admin stats endpoint.
type Handler struct {
	repo *Repository
}

// NewHandler creates a handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Stats returns entity counts plus the last 30 days of activity rollups.
func (h *Handler) Stats(c *gin.Context) {
	users, courses, enrollments, err := h.repo.Counts(c.Request.Context())
	if err != nil {
		log.Printf("stats counts failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	activity, err := h.repo.RecentActivity(c.Request.Context(), 30)
	if err != nil {
		log.Printf("stats activity failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users":       users,
		"courses":     courses,
		"enrollments": enrollments,
		"activity":    activity,
	})
}
