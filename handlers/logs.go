package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"membercrm/db"
	"membercrm/logger"
	"membercrm/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

func (a *API) ListLogs(c *gin.Context) {
	limit, offset := defaultLogLimit, 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLogLimit)
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return
		}
		offset = n
	}

	rows, err := db.GetDB().QueryContext(c.Request.Context(), `
		SELECT l.id, l.recipient, l.subject, l.tier, l.count, l.attempted, l.sent_at, l.user_id, COALESCE(u.name, ''),
			l.member_id, m.name, m.tier
		FROM email_logs l
		LEFT JOIN users u ON u.id = l.user_id
		LEFT JOIN members m ON m.id = l.member_id
		ORDER BY l.sent_at DESC, l.id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		logger.FromGin(c).Error("list logs failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	logs := []models.EmailLog{}
	for rows.Next() {
		var l models.EmailLog
		var userID, memberID, memberName, memberTier sql.NullString
		if err := rows.Scan(&l.ID, &l.Recipient, &l.Subject, &l.Tier, &l.Count, &l.Attempted, &l.SentAt, &userID, &l.UserName,
			&memberID, &memberName, &memberTier); err != nil {
			logger.FromGin(c).Error("scan log failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		l.UserID = nullableString(userID)
		l.MemberID = nullableString(memberID)
		l.MemberName = nullableString(memberName)
		l.MemberTier = nullableString(memberTier)
		if l.UserName == "" {
			l.UserName = "Unknown"
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		logger.FromGin(c).Error("iterate logs failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs, "limit": limit, "offset": offset})
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
