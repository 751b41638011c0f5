package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eventchat/internal/db"
	"eventchat/internal/user"
)

type SetupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// POST /setup creates the first (admin) account. Allowed only while no users
// exist.
func SetupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var count int64
		if err := db.DB.Model(&user.User{}).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "DB error"}})
			return
		}
		if count != 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "Setup not allowed; users already exist"}})
			return
		}
		var req SetupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request"}})
			return
		}
		u, status, msg := createUser(req, user.RoleAdmin)
		if u == nil {
			c.JSON(status, gin.H{"error": gin.H{"message": msg}})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id":       u.ID,
			"username": u.Username,
			"role":     u.Role,
		})
	}
}

// POST /auth/signup creates a regular account. Requires the admin account to
// exist already so setup is never bypassed.
func SignupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var count int64
		if err := db.DB.Model(&user.User{}).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "DB error"}})
			return
		}
		if count == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "Initial setup required", "need_setup": true}})
			return
		}
		var req SetupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request"}})
			return
		}
		u, status, msg := createUser(req, user.RoleUser)
		if u == nil {
			c.JSON(status, gin.H{"error": gin.H{"message": msg}})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id":       u.ID,
			"username": u.Username,
			"role":     u.Role,
		})
	}
}

func createUser(req SetupRequest, role user.Role) (*user.User, int, string) {
	if req.Username == "" || req.Password == "" {
		return nil, http.StatusBadRequest, "Username and password required"
	}
	if req.Email == "" {
		return nil, http.StatusBadRequest, "Email required"
	}
	pwHash, err := user.HashPassword(req.Password)
	if err != nil {
		return nil, http.StatusInternalServerError, "Password hash failed"
	}
	u := user.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         role,
	}
	if err := db.DB.Create(&u).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, http.StatusBadRequest, "Username or email already exists"
		}
		return nil, http.StatusInternalServerError, "DB error"
	}
	return &u, http.StatusCreated, ""
}
