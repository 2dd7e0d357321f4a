package progress

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"learnhub/internal/auth"
	"learnhub/internal/queue"
)

// Handler exposes the streak endpoints over HTTP.
type Handler struct {
	svc *Service
	q   queue.Queue
}

// NewHandler creates a handler. q may be nil when no worker is wired.
func NewHandler(svc *Service, q queue.Queue) *Handler {
	return &Handler{svc: svc, q: q}
}

// Routes registers the progress endpoints on an authenticated group.
func (h *Handler) Routes(g *gin.RouterGroup) {
	g.POST("/progress/ping", h.Ping)
	g.GET("/progress/streak", h.Streak)
	g.GET("/progress/calendar", h.Calendar)
}

// Ping records today's study activity for one enrolled course.
func (h *Handler) Ping(c *gin.Context) {
	var req struct {
		CourseID string `json:"courseId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "courseId is required"})
		return
	}
	claims, _ := auth.FromContext(c)

	res, err := h.svc.RecordStudy(c.Request.Context(), claims.UserID, req.CourseID)
	if err != nil {
		if errors.Is(err, ErrNotEnrolled) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Not enrolled in this course"})
			return
		}
		log.Printf("record study failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if res.AlreadyRecorded {
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Already recorded for today"})
		return
	}

	if h.q != nil {
		act := queue.StudyActivity{CourseID: res.CourseID, Day: res.Day}
		if err := h.q.Publish(c.Request.Context(), act); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Study recorded for today", "progressId": res.EventID})
}

// Streak returns the caller's streak summary.
func (h *Handler) Streak(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	sum, err := h.svc.Streak(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Printf("streak query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Calendar returns the caller's activity heatmap for an optional day range.
func (h *Handler) Calendar(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	cal, err := h.svc.Calendar(c.Request.Context(), claims.UserID, c.Query("from"), c.Query("to"))
	if err != nil {
		log.Printf("calendar query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, cal)
}
