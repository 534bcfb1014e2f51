package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"membercrm/db"
	"membercrm/logger"
	"membercrm/middleware"
	"membercrm/models"
	"membercrm/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

const userColumns = `id, name, email, password_hash, role, cover_url, created_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var cover sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &cover, &u.CreatedAt)
	if cover.Valid {
		u.CoverURL = &cover.String
	}
	return u, err
}

func (a *API) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindError(err)})
		return
	}
	email, _ := normalizeEmail(input.Email)

	user, err := scanUser(db.GetDB().QueryRowContext(c.Request.Context(),
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		services.LoginAttempts.WithLabelValues("failure").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	} else if err != nil {
		logger.FromGin(c).Error("login lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		services.LoginAttempts.WithLabelValues("failure").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, _, err := a.sessions.Issue(user)
	if err != nil {
		logger.FromGin(c).Error("issue session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	services.LoginAttempts.WithLabelValues("success").Inc()
	user.Role = services.NormalizeRole(user.Role)
	a.setAuthCookie(c, token, int(a.sessions.TTL().Seconds()))
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (a *API) Logout(c *gin.Context) {
	if err := a.sessions.Revoke(c.Request.Context(), middleware.Claims(c)); err != nil {
		logger.FromGin(c).Error("revoke session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end session"})
		return
	}
	a.setAuthCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) Me(c *gin.Context) {
	user, err := scanUser(db.GetDB().QueryRowContext(c.Request.Context(),
		`SELECT `+userColumns+` FROM users WHERE id = $1`, c.GetString("userID")))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	} else if err != nil {
		logger.FromGin(c).Error("load user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	user.Role = services.NormalizeRole(user.Role)
	c.JSON(http.StatusOK, user)
}

func (a *API) setAuthCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.cfg.Cookie.Name, token, maxAge, "/", a.cfg.Cookie.Domain, a.cfg.Cookie.Secure, true)
}
