package handlers

import (
	"database/sql"
	"errors"
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

type templateInput struct {
	Name            string `json:"name" binding:"required"`
	Subject         string `json:"subject" binding:"required"`
	Body            string `json:"body" binding:"required"`
	Layout          string `json:"templateKey" binding:"layout"`
	BannerURL       string `json:"bannerUrl"`
	CTAText         string `json:"ctaText"`
	CTAURL          string `json:"ctaUrl"`
	LeftImageURL    string `json:"leftImageUrl"`
	LeftImageLabel  string `json:"leftImageLabel"`
	RightImageURL   string `json:"rightImageUrl"`
	RightImageLabel string `json:"rightImageLabel"`
}

func (in templateInput) fields() models.CampaignFields {
	return models.CampaignFields{
		Layout:          services.LayoutOrDefault(in.Layout),
		BannerURL:       strings.TrimSpace(in.BannerURL),
		CTAText:         strings.TrimSpace(in.CTAText),
		CTAURL:          strings.TrimSpace(in.CTAURL),
		LeftImageURL:    strings.TrimSpace(in.LeftImageURL),
		LeftImageLabel:  strings.TrimSpace(in.LeftImageLabel),
		RightImageURL:   strings.TrimSpace(in.RightImageURL),
		RightImageLabel: strings.TrimSpace(in.RightImageLabel),
	}
}

// bindTemplate rejects a name that is blank once trimmed.
func bindTemplate(c *gin.Context) (templateInput, bool) {
	var in templateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindError(err)})
		return in, false
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return in, false
	}
	return in, true
}

const templateColumns = `id, user_id, name, subject, body, layout, banner_url, cta_text, cta_url,
	left_image_url, left_image_label, right_image_url, right_image_label, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (models.EmailTemplate, error) {
	var t models.EmailTemplate
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Subject, &t.Body,
		&t.Layout, &t.BannerURL, &t.CTAText, &t.CTAURL,
		&t.LeftImageURL, &t.LeftImageLabel, &t.RightImageURL, &t.RightImageLabel,
		&t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (a *API) ListTemplates(c *gin.Context) {
	rows, err := db.GetDB().QueryContext(c.Request.Context(),
		`SELECT `+templateColumns+` FROM email_templates WHERE user_id = $1 ORDER BY created_at DESC`,
		c.GetString("userID"))
	if err != nil {
		logger.FromGin(c).Error("list templates failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	templates := []models.EmailTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			logger.FromGin(c).Error("scan template failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		logger.FromGin(c).Error("iterate templates failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (a *API) CreateTemplate(c *gin.Context) {
	in, ok := bindTemplate(c)
	if !ok {
		return
	}
	f := in.fields()

	t, err := scanTemplate(db.GetDB().QueryRowContext(c.Request.Context(), `
		INSERT INTO email_templates (id, user_id, name, subject, body, layout, banner_url, cta_text, cta_url,
			left_image_url, left_image_label, right_image_url, right_image_label)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+templateColumns,
		uuid.NewString(), c.GetString("userID"), in.Name, in.Subject, in.Body,
		f.Layout, f.BannerURL, f.CTAText, f.CTAURL,
		f.LeftImageURL, f.LeftImageLabel, f.RightImageURL, f.RightImageLabel))
	if err != nil {
		logger.FromGin(c).Error("create template failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (a *API) GetTemplate(c *gin.Context) {
	id, ok := idParam(c, "Template")
	if !ok {
		return
	}
	t, err := scanTemplate(db.GetDB().QueryRowContext(c.Request.Context(),
		`SELECT `+templateColumns+` FROM email_templates WHERE id = $1 AND user_id = $2`,
		id, c.GetString("userID")))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	} else if err != nil {
		logger.FromGin(c).Error("get template failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (a *API) UpdateTemplate(c *gin.Context) {
	id, ok := idParam(c, "Template")
	if !ok {
		return
	}
	in, ok := bindTemplate(c)
	if !ok {
		return
	}
	f := in.fields()

	t, err := scanTemplate(db.GetDB().QueryRowContext(c.Request.Context(), `
		UPDATE email_templates
		SET name = $1, subject = $2, body = $3, layout = $4, banner_url = $5, cta_text = $6, cta_url = $7,
			left_image_url = $8, left_image_label = $9, right_image_url = $10, right_image_label = $11,
			updated_at = NOW()
		WHERE id = $12 AND user_id = $13
		RETURNING `+templateColumns,
		in.Name, in.Subject, in.Body, f.Layout, f.BannerURL, f.CTAText, f.CTAURL,
		f.LeftImageURL, f.LeftImageLabel, f.RightImageURL, f.RightImageLabel,
		id, c.GetString("userID")))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	} else if err != nil {
		logger.FromGin(c).Error("update template failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (a *API) DeleteTemplate(c *gin.Context) {
	id, ok := idParam(c, "Template")
	if !ok {
		return
	}
	res, err := db.GetDB().ExecContext(c.Request.Context(),
		`DELETE FROM email_templates WHERE id = $1 AND user_id = $2`, id, c.GetString("userID"))
	if err == nil {
		err = requireRow(res)
	}
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	case err != nil:
		logger.FromGin(c).Error("delete template failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
