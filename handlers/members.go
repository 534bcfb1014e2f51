package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"membercrm/db"
	"membercrm/logger"
	"membercrm/models"
	"membercrm/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

const memberColumns = `id, name, email, tier, joined_at`

func (a *API) ListMembers(c *gin.Context) {
	tier, err := services.ParseTierFilter(c.Query("tier"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tier. Must be BASIC, SILVER or GOLD"})
		return
	}

	members, err := queryMembers(c.Request.Context(), tier)
	if err != nil {
		logger.FromGin(c).Error("list members failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, members)
}

func (a *API) CreateMember(c *gin.Context) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Tier  string `json:"tier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and email are required"})
		return
	}
	email, ok := normalizeEmail(req.Email)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	m := models.Member{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Tier:  services.TierOrDefault(req.Tier),
	}
	err := db.GetDB().QueryRowContext(c.Request.Context(), `
		INSERT INTO members (id, name, email, tier)
		VALUES ($1, $2, $3, $4)
		RETURNING joined_at
	`, m.ID, m.Name, m.Email, m.Tier).Scan(&m.JoinedAt)
	if db.IsUniqueViolation(err) {
		err = ErrDuplicateEmail
	}
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
		return
	case err != nil:
		logger.FromGin(c).Error("create member failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create member"})
		return
	}

	a.invalidateReports()
	c.JSON(http.StatusCreated, m)
}

func (a *API) GetMember(c *gin.Context) {
	id, ok := idParam(c, "Member")
	if !ok {
		return
	}
	var m models.Member
	err := db.GetDB().QueryRowContext(c.Request.Context(),
		`SELECT `+memberColumns+` FROM members WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.Email, &m.Tier, &m.JoinedAt)

	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	} else if err != nil {
		logger.FromGin(c).Error("get member failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (a *API) UpdateMember(c *gin.Context) {
	id, ok := idParam(c, "Member")
	if !ok {
		return
	}
	var req struct {
		Tier string  `json:"tier" binding:"required,tier"`
		Name *string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindError(err)})
		return
	}
	tier, _ := services.ParseTier(req.Tier)

	var name sql.NullString
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name = sql.NullString{String: strings.TrimSpace(*req.Name), Valid: true}
	}

	res, err := db.GetDB().ExecContext(c.Request.Context(),
		`UPDATE members SET tier = $1, name = COALESCE($2, name) WHERE id = $3`,
		tier, name, id)
	if err == nil {
		err = requireRow(res)
	}
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	case err != nil:
		logger.FromGin(c).Error("update member failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update member"})
		return
	}

	a.invalidateReports()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) DeleteMember(c *gin.Context) {
	id, ok := idParam(c, "Member")
	if !ok {
		return
	}
	res, err := db.GetDB().ExecContext(c.Request.Context(), `DELETE FROM members WHERE id = $1`, id)
	if err == nil {
		err = requireRow(res)
	}
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	case err != nil:
		logger.FromGin(c).Error("delete member failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete member"})
		return
	}

	a.invalidateReports()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// queryMembers lists members by name; TierAll returns everyone.
func queryMembers(ctx context.Context, tier string) ([]models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members`
	var args []any
	if tier != services.TierAll {
		query += ` WHERE tier = $1`
		args = append(args, tier)
	}
	query += ` ORDER BY name ASC`

	rows, err := db.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Tier, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
