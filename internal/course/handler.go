package course

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"learnhub/internal/auth"
	"learnhub/internal/uploads"
)

const maxAssetFiles = 5

// Handler exposes the course catalog over HTTP.
type Handler struct {
	repo    *Repository
	storage *uploads.Storage
}

// NewHandler creates a handler.
func NewHandler(repo *Repository, storage *uploads.Storage) *Handler {
	return &Handler{repo: repo, storage: storage}
}

// Routes registers public and authenticated course endpoints.
func (h *Handler) Routes(public, authed *gin.RouterGroup) {
	public.GET("/courses", h.List)
	public.GET("/courses/:slug", h.Get)
	authed.POST("/courses", auth.RequireRole("instructor"), h.Create)
	authed.POST("/courses/enroll", h.Enroll)
}

// Create handles a multipart course submission with an optional cover image
// and up to five asset files.
func (h *Handler) Create(c *gin.Context) {
	var req struct {
		Title           string  `form:"title" binding:"required"`
		Description     string  `form:"description"`
		LongDescription string  `form:"longDescription"`
		Duration        string  `form:"duration"`
		Level           string  `form:"level"`
		Tags            string  `form:"tags"`
		Price           float64 `form:"price"`
		Published       bool    `form:"published"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	slug := Slugify(req.Title)
	exists, err := h.repo.SlugExists(c.Request.Context(), slug)
	if err != nil {
		log.Printf("slug lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Course with similar title exists"})
		return
	}

	claims, _ := auth.FromContext(c)
	crs := Course{
		Title:           req.Title,
		Slug:            slug,
		Description:     req.Description,
		LongDescription: req.LongDescription,
		Duration:        req.Duration,
		Level:           defaultLevel(req.Level),
		Tags:            ParseTags(req.Tags),
		Price:           req.Price,
		Published:       req.Published,
		Instructor:      &Instructor{ID: claims.UserID},
		Assets:          []Asset{},
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		if covers := form.File["cover"]; len(covers) > 0 {
			stored, err := h.storage.Save(covers[0])
			if err != nil {
				h.uploadError(c, err)
				return
			}
			crs.CoverURL = stored.URL
		}
		assets := form.File["assets"]
		if len(assets) > maxAssetFiles {
			assets = assets[:maxAssetFiles]
		}
		for _, fh := range assets {
			stored, err := h.storage.Save(fh)
			if err != nil {
				h.uploadError(c, err)
				return
			}
			crs.Assets = append(crs.Assets, Asset{Filename: stored.Filename, URL: stored.URL, MimeType: stored.MimeType})
		}
	}

	if err := h.repo.Create(c.Request.Context(), &crs); err != nil {
		log.Printf("create course failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	h.absolutize(c, &crs)
	c.JSON(http.StatusOK, crs)
}

// List returns published courses with optional tag/instructor/text filters.
func (h *Handler) List(c *gin.Context) {
	f := Filter{
		Tag:          c.Query("tag"),
		Query:        c.Query("q"),
		InstructorID: c.Query("instructor"),
	}
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		f.Page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		f.Limit = v
	}
	courses, err := h.repo.ListPublished(c.Request.Context(), f)
	if err != nil {
		log.Printf("list courses failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	for i := range courses {
		h.absolutize(c, &courses[i])
	}
	c.JSON(http.StatusOK, courses)
}

// Get returns one course by slug.
func (h *Handler) Get(c *gin.Context) {
	crs, err := h.repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		log.Printf("get course failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if crs == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	h.absolutize(c, crs)
	c.JSON(http.StatusOK, crs)
}

// Enroll adds the caller to a course.
func (h *Handler) Enroll(c *gin.Context) {
	var req struct {
		CourseID string `json:"courseId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "courseId is required"})
		return
	}
	claims, _ := auth.FromContext(c)

	crs, err := h.repo.GetByID(c.Request.Context(), req.CourseID)
	if err != nil {
		log.Printf("course lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if crs == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Course not found"})
		return
	}

	existing, err := h.repo.FindEnrollment(c.Request.Context(), claims.UserID, req.CourseID)
	if err != nil {
		log.Printf("enrollment lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Already enrolled"})
		return
	}

	enrollment, err := h.repo.CreateEnrollment(c.Request.Context(), claims.UserID, req.CourseID)
	if err != nil {
		log.Printf("enroll failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollment": enrollment})
}

func (h *Handler) uploadError(c *gin.Context, err error) {
	if errors.Is(err, uploads.ErrTooLarge) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "File too large"})
		return
	}
	log.Printf("upload failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
}

func (h *Handler) absolutize(c *gin.Context, crs *Course) {
	crs.CoverURL = uploads.Absolute(c.Request, crs.CoverURL)
	for i := range crs.Assets {
		crs.Assets[i].URL = uploads.Absolute(c.Request, crs.Assets[i].URL)
	}
}

func defaultLevel(level string) string {
	if level == "" {
		return "beginner"
	}
	return level
}
