package user

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"learnhub/internal/auth"
	"learnhub/internal/course"
	"learnhub/internal/uploads"
)

// Store is the user persistence the handler runs against.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateName(ctx context.Context, id, name string) error
	UpdateAvatar(ctx context.Context, id, url string) error
}

// EnrollmentLister supplies the caller's enrollments with course details.
type EnrollmentLister interface {
	ListEnrolled(ctx context.Context, userID string) ([]course.Enrolled, error)
}

// Handler exposes registration, login and profile endpoints.
type Handler struct {
	repo       Store
	courses    EnrollmentLister
	storage    *uploads.Storage
	jwtIssuer  string
	signingKey string
	tokenTTL   time.Duration
}

// NewHandler creates a handler.
func NewHandler(repo Store, courses EnrollmentLister, storage *uploads.Storage, issuer, signingKey string, tokenTTL time.Duration) *Handler {
	return &Handler{
		repo:       repo,
		courses:    courses,
		storage:    storage,
		jwtIssuer:  issuer,
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
	}
}

// Routes registers auth and profile endpoints.
func (h *Handler) Routes(public, authed *gin.RouterGroup) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)
	authed.GET("/users/me", h.Me)
	authed.PATCH("/users/me", h.UpdateMe)
	authed.POST("/users/me/avatar", h.UploadAvatar)
	authed.GET("/users/me/enrollments", h.MyEnrollments)
	authed.GET("/users", h.List)
}

// Register creates an account and returns a session token.
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		log.Printf("email lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email in use"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("password hash failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	u := User{Name: req.Name, Email: req.Email, PasswordHash: hash, Role: req.Role}
	if u.Role != "instructor" && u.Role != "admin" {
		u.Role = "student"
	}
	if err := h.repo.Create(c.Request.Context(), &u); err != nil {
		log.Printf("create user failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	h.respondWithToken(c, &u)
}

// Login verifies credentials and returns a session token.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
		return
	}

	u, err := h.repo.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		log.Printf("login lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
		return
	}

	h.respondWithToken(c, u)
}

func (h *Handler) respondWithToken(c *gin.Context, u *User) {
	token, _, err := auth.Issue(u.ID, u.Role, h.jwtIssuer, h.signingKey, h.tokenTTL)
	if err != nil {
		log.Printf("token issue failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": h.publicUser(c, u)})
}

// Me returns the caller's profile.
func (h *Handler) Me(c *gin.Context) {
	u := h.currentUser(c)
	if u == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": h.publicUser(c, u)})
}

// UpdateMe changes the caller's display name.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name is required"})
		return
	}
	u := h.currentUser(c)
	if u == nil {
		return
	}
	u.Name = strings.TrimSpace(req.Name)
	if err := h.repo.UpdateName(c.Request.Context(), u.ID, u.Name); err != nil {
		log.Printf("update profile failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": h.publicUser(c, u)})
}

// UploadAvatar stores a new avatar image for the caller.
func (h *Handler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}
	u := h.currentUser(c)
	if u == nil {
		return
	}
	stored, err := h.storage.Save(fh)
	if err != nil {
		log.Printf("avatar upload failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to upload avatar"})
		return
	}
	if err := h.repo.UpdateAvatar(c.Request.Context(), u.ID, stored.URL); err != nil {
		log.Printf("avatar update failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to upload avatar"})
		return
	}
	u.AvatarURL = stored.URL
	c.JSON(http.StatusOK, gin.H{
		"avatarUrl": uploads.Absolute(c.Request, stored.URL),
		"user":      h.publicUser(c, u),
	})
}

// MyEnrollments lists the caller's active enrollments with course details.
func (h *Handler) MyEnrollments(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	list, err := h.courses.ListEnrolled(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Printf("list enrollments failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	for i := range list {
		list[i].Course.CoverURL = uploads.Absolute(c.Request, list[i].Course.CoverURL)
	}
	c.JSON(http.StatusOK, list)
}

// List returns all users.
func (h *Handler) List(c *gin.Context) {
	users, err := h.repo.List(c.Request.Context())
	if err != nil {
		log.Printf("list users failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) currentUser(c *gin.Context) *User {
	claims, _ := auth.FromContext(c)
	u, err := h.repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Printf("user lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return nil
	}
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
		return nil
	}
	return u
}

// publicUser shapes a user for responses, with an absolute avatar URL.
func (h *Handler) publicUser(c *gin.Context, u *User) gin.H {
	out := gin.H{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	}
	if u.AvatarURL != "" {
		out["avatarUrl"] = uploads.Absolute(c.Request, u.AvatarURL)
	}
	return out
}
