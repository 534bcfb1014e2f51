package handlers

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"membercrm/db"
	"membercrm/logger"
	"membercrm/models"
	"membercrm/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	segmentIndividual = "individual"
	segmentBulk       = "bulk"
)

type attachmentPayload struct {
	Filename string `json:"filename" binding:"required"`
	Content  string `json:"content" binding:"required"`
	MimeType string `json:"mimeType"`
}

type sendRequest struct {
	Segment string `json:"segment" binding:"required,oneof=individual bulk"`
	Tier    string `json:"tier"`
	To      string `json:"to"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
	models.CampaignFields
	Attachments []attachmentPayload `json:"attachments" binding:"dive"`
}

type previewRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	models.CampaignFields
}

func (a *API) campaign(subject, body string, fields models.CampaignFields) (string, error) {
	return services.BuildCampaignEmail(services.CampaignEmail{
		Subject:        subject,
		Body:           body,
		Brand:          a.cfg.Mail.FromName,
		UnsubscribeURL: a.cfg.Mail.UnsubscribeURL,
		CampaignFields: fields,
	})
}

// PreviewEmail renders the campaign document exactly as it would be sent.
func (a *API) PreviewEmail(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindError(err)})
		return
	}
	html, err := a.campaign(req.Subject, req.Body, req.CampaignFields)
	if err != nil {
		logger.FromGin(c).Error("render preview failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render email"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// SendEmail mails one campaign to an explicit list or a tier, one recipient
// at a time, and records a single log row for the whole operation.
func (a *API) SendEmail(c *gin.Context) {
	log := logger.FromGin(c)

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindError(err)})
		return
	}

	tierLabel := strings.ToUpper(strings.TrimSpace(req.Tier))
	if tierLabel == "" {
		tierLabel = services.TierAll
	}

	var recipients []string
	if req.Segment == segmentIndividual {
		if strings.TrimSpace(req.To) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing recipient"})
			return
		}
		recipients = services.SplitRecipients(req.To)
	} else {
		tier, err := services.ParseTierFilter(req.Tier)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tier. Must be all, basic, silver or gold"})
			return
		}
		members, err := queryMembers(c.Request.Context(), tier)
		if err != nil {
			log.Error("load recipients failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		for _, m := range members {
			recipients = append(recipients, m.Email)
		}
	}
	if len(recipients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No recipients"})
		return
	}

	attachments, err := decodeAttachments(req.Attachments)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Attachment content must be base64"})
		return
	}

	html, err := a.campaign(req.Subject, req.Body, req.CampaignFields)
	if err != nil {
		log.Error("render campaign failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render email"})
		return
	}

	result, sendErr := a.mailer.SendAll(c.Request.Context(), recipients, services.Message{
		Subject:     req.Subject,
		HTML:        html,
		Text:        req.Body,
		Attachments: attachments,
	})
	if sendErr != nil {
		log.Warn("send loop stopped early",
			zap.Int("attempted", result.Attempted),
			zap.Int("recipients", len(recipients)),
			zap.Error(sendErr),
		)
	}

	// the log row is written even if the client went away mid-loop
	ctx := context.WithoutCancel(c.Request.Context())

	logRecipient := segmentBulk
	var memberID *string
	if req.Segment == segmentIndividual {
		logRecipient = req.To
		if len(recipients) == 1 {
			memberID = lookupMemberID(ctx, log, recipients[0])
		}
	}

	if _, err := db.GetDB().ExecContext(ctx, `
		INSERT INTO email_logs (recipient, subject, tier, count, attempted, user_id, member_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, logRecipient, req.Subject, tierLabel, result.Sent, result.Attempted, c.GetString("userID"), memberID); err != nil {
		log.Error("write email log failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record send"})
		return
	}

	services.CampaignSends.WithLabelValues(req.Segment).Inc()
	a.invalidateReports()
	log.Info("campaign sent",
		zap.String("segment", req.Segment),
		zap.String("tier", tierLabel),
		zap.Int("sent", result.Sent),
		zap.Int("attempted", result.Attempted),
		zap.String("transport", a.mailer.TransportName()),
	)

	sentBy := c.GetString("userName")
	if sentBy == "" {
		sentBy = c.GetString("userEmail")
	}
	a.slack.NotifyCampaignAsync(services.CampaignSummary{
		Subject:   req.Subject,
		Segment:   req.Segment,
		Tier:      tierLabel,
		Sent:      result.Sent,
		Attempted: result.Attempted,
		SentBy:    sentBy,
	})

	c.JSON(http.StatusOK, gin.H{"ok": true, "count": result.Sent, "attempted": result.Attempted})
}

// lookupMemberID links an individual send to the member it went to, if any.
func lookupMemberID(ctx context.Context, log *zap.Logger, email string) *string {
	var id string
	err := db.GetDB().QueryRowContext(ctx, `SELECT id FROM members WHERE lower(email) = lower($1)`, email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		log.Warn("member lookup for email log failed", zap.Error(err))
		return nil
	}
	return &id
}

func decodeAttachments(in []attachmentPayload) ([]services.Attachment, error) {
	var out []services.Attachment
	for _, p := range in {
		content, err := base64.StdEncoding.DecodeString(p.Content)
		if err != nil {
			return nil, err
		}
		ct := p.MimeType
		if ct == "" {
			ct = "application/octet-stream"
		}
		out = append(out, services.Attachment{Filename: p.Filename, ContentType: ct, Content: content})
	}
	return out, nil
}
