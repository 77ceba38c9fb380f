package handlers

import (
	"net/http"
	"strings"

	"buildtrack/internal/database"
	"buildtrack/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	TenantName string `json:"tenant_name"`
	TenantSlug string `json:"tenant_slug"`
}

// Register creates a user. With tenant_name a new company is created
// and the user becomes its admin; with tenant_slug the user joins an
// existing company as staff. Platform superusers come from seeding
// only.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.Email) < 3 || !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid email is required"})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}
	if req.TenantName == "" && req.TenantSlug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_name or tenant_slug is required"})
		return
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
		return
	}

	var tenant models.Tenant
	var roleName string
	if req.TenantSlug != "" {
		if err := h.db.Where("slug = ? AND is_active = ?", req.TenantSlug, true).First(&tenant).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
			return
		}
		roleName = "site_staff"
	} else {
		tenant = models.Tenant{
			Name: strings.TrimSpace(req.TenantName),
			Slug: slugify(req.TenantName),
		}
		if err := h.db.Create(&tenant).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not create tenant"})
			return
		}
		roleName = "company_admin"
	}

	var role models.Role
	if err := h.db.Where("name = ?", roleName).First(&role).Error; err != nil {
		h.respondError(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(c, err)
		return
	}
	user := models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		IsActive:     true,
		RoleID:       &role.ID,
		TenantID:     &tenant.ID,
	}
	if err := h.db.Create(&user).Error; err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     user.ID,
		"email":  user.Email,
		"tenant": tenant.Slug,
		"role":   role.Name,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	var user models.User
	err := h.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if err != nil || !user.IsActive ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	if err := sess.Save(); err != nil {
		h.respondError(c, err)
		return
	}

	uid := user.ID
	h.rec.Record(database.Entry{
		UserID:      &uid,
		Action:      models.AuditLogin,
		ModelName:   "User",
		ObjectID:    database.ObjectID(user.ID),
		Description: "Logged in",
		IPAddress:   c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "email": user.Email})
}

func (h *Handler) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	if uidRaw := sess.Get("user_id"); uidRaw != nil {
		if uid, ok := uidRaw.(uint); ok {
			h.rec.Record(database.Entry{
				UserID:      &uid,
				Action:      models.AuditLogout,
				ModelName:   "User",
				ObjectID:    database.ObjectID(uid),
				Description: "Logged out",
				IPAddress:   c.ClientIP(),
			})
		}
	}
	sess.Clear()
	_ = sess.Save()
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// slugify keeps it simple: lowercase, spaces to dashes, strip the rest.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '-' || r == '_':
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
