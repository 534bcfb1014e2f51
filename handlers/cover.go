package handlers

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"membercrm/db"
	"membercrm/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (a *API) GetCover(c *gin.Context) {
	var cover sql.NullString
	err := db.GetDB().QueryRowContext(c.Request.Context(),
		`SELECT cover_url FROM users WHERE id = $1`, c.GetString("userID")).Scan(&cover)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logger.FromGin(c).Error("load cover failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !cover.Valid {
		c.JSON(http.StatusOK, gin.H{"coverUrl": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coverUrl": cover.String})
}

func (a *API) SetCover(c *gin.Context) {
	var req struct {
		CoverURL string `json:"coverUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CoverURL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing coverUrl"})
		return
	}
	if !a.saveCover(c, strings.TrimSpace(req.CoverURL)) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "coverUrl": strings.TrimSpace(req.CoverURL)})
}

// UploadCover stores an image in object storage and makes it the user's cover.
func (a *API) UploadCover(c *gin.Context) {
	if a.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Uploads are not configured"})
		return
	}
	maxSize := a.cfg.Storage.MaxUploadSize

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	if fh.Size > maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("File exceeds %d MB", maxSize>>20)})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}
	if int64(len(data)) > maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("File exceeds %d MB", maxSize>>20)})
		return
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image uploads are allowed"})
		return
	}

	userID := c.GetString("userID")
	key := fmt.Sprintf("covers/%s/%s%s", userID, uuid.NewString(), mt.Extension())
	url, err := a.storage.Put(c.Request.Context(), key, mt.String(), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.FromGin(c).Error("cover upload failed", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upload failed"})
		return
	}

	if !a.saveCover(c, url) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"coverUrl": url})
}

func (a *API) saveCover(c *gin.Context, url string) bool {
	res, err := db.GetDB().ExecContext(c.Request.Context(),
		`UPDATE users SET cover_url = $1 WHERE id = $2`, url, c.GetString("userID"))
	if err == nil {
		err = requireRow(res)
	}
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return false
	case err != nil:
		logger.FromGin(c).Error("save cover failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return false
	}
	return true
}
