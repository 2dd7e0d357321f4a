package note

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"learnhub/internal/auth"
	"learnhub/internal/course"
	"learnhub/internal/uploads"
)

const maxAttachments = 5

// Store is the note persistence the handler runs against.
type Store interface {
	Create(ctx context.Context, n *Note) error
	GetByID(ctx context.Context, id string) (*Note, error)
	ListForCourse(ctx context.Context, courseID string) ([]Note, error)
	Update(ctx context.Context, n *Note) error
	Delete(ctx context.Context, id string) error
	AddAttachments(ctx context.Context, noteID string, atts []Attachment) error
}

// CourseFinder resolves the course a note is attached to.
type CourseFinder interface {
	GetByID(ctx context.Context, id string) (*course.Course, error)
}

// Handler exposes note endpoints.
type Handler struct {
	repo    Store
	courses CourseFinder
	storage *uploads.Storage
}

// NewHandler creates a handler.
func NewHandler(repo Store, courses CourseFinder, storage *uploads.Storage) *Handler {
	return &Handler{repo: repo, courses: courses, storage: storage}
}

// Routes registers note endpoints on an authenticated group.
func (h *Handler) Routes(g *gin.RouterGroup) {
	g.POST("/notes", h.Create)
	g.GET("/notes/course/:courseId", h.ListForCourse)
	g.PATCH("/notes/:id", h.Update)
	g.DELETE("/notes/:id", h.Delete)
	g.PATCH("/notes/:id/pin", h.TogglePin)
}

// Create adds a note (multipart: courseId, title, content, tags, attachments).
func (h *Handler) Create(c *gin.Context) {
	var req struct {
		CourseID string `form:"courseId" binding:"required"`
		Title    string `form:"title" binding:"required"`
		Content  string `form:"content"`
		Tags     string `form:"tags"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	crs, err := h.courses.GetByID(c.Request.Context(), req.CourseID)
	if err != nil {
		log.Printf("course lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if crs == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Course not found"})
		return
	}

	claims, _ := auth.FromContext(c)
	n := Note{
		CourseID:    req.CourseID,
		AuthorID:    claims.UserID,
		Title:       req.Title,
		Content:     req.Content,
		Tags:        course.ParseTags(req.Tags),
		Attachments: []Attachment{},
	}
	atts, ok := h.saveAttachments(c)
	if !ok {
		return
	}
	n.Attachments = atts

	if err := h.repo.Create(c.Request.Context(), &n); err != nil {
		log.Printf("create note failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, n)
}

// ListForCourse returns all notes for a course.
func (h *Handler) ListForCourse(c *gin.Context) {
	notes, err := h.repo.ListForCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		log.Printf("list notes failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, notes)
}

// Update edits a note the caller owns; new attachments append.
func (h *Handler) Update(c *gin.Context) {
	n := h.ownedNote(c)
	if n == nil {
		return
	}
	var req struct {
		Title   *string `form:"title"`
		Content *string `form:"content"`
		Tags    *string `form:"tags"`
		Pinned  *bool   `form:"pinned"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if req.Title != nil {
		n.Title = *req.Title
	}
	if req.Content != nil {
		n.Content = *req.Content
	}
	if req.Tags != nil {
		n.Tags = course.ParseTags(*req.Tags)
	}
	if req.Pinned != nil {
		n.Pinned = *req.Pinned
	}

	atts, ok := h.saveAttachments(c)
	if !ok {
		return
	}
	if len(atts) > 0 {
		if err := h.repo.AddAttachments(c.Request.Context(), n.ID, atts); err != nil {
			log.Printf("add attachments failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update note"})
			return
		}
		n.Attachments = append(n.Attachments, atts...)
	}

	if err := h.repo.Update(c.Request.Context(), n); err != nil {
		log.Printf("update note failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update note"})
		return
	}
	c.JSON(http.StatusOK, n)
}

// Delete removes a note the caller owns.
func (h *Handler) Delete(c *gin.Context) {
	n := h.ownedNote(c)
	if n == nil {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), n.ID); err != nil {
		log.Printf("delete note failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete note"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// TogglePin flips the pinned flag on a note the caller owns.
func (h *Handler) TogglePin(c *gin.Context) {
	n := h.ownedNote(c)
	if n == nil {
		return
	}
	n.Pinned = !n.Pinned
	if err := h.repo.Update(c.Request.Context(), n); err != nil {
		log.Printf("toggle pin failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update pin"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pinned": n.Pinned, "note": n})
}

// ownedNote loads the note in :id and enforces ownership. It writes the error
// response itself and returns nil when the caller may not proceed.
func (h *Handler) ownedNote(c *gin.Context) *Note {
	n, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("note lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return nil
	}
	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Note not found"})
		return nil
	}
	claims, _ := auth.FromContext(c)
	if n.AuthorID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"message": "Not allowed"})
		return nil
	}
	return n
}

func (h *Handler) saveAttachments(c *gin.Context) ([]Attachment, bool) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, true
	}
	files := form.File["attachments"]
	if len(files) > maxAttachments {
		files = files[:maxAttachments]
	}
	atts := make([]Attachment, 0, len(files))
	for _, fh := range files {
		stored, err := h.storage.Save(fh)
		if err != nil {
			log.Printf("attachment upload failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
			return nil, false
		}
		atts = append(atts, Attachment{Filename: stored.Filename, URL: stored.URL})
	}
	return atts, true
}
