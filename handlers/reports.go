package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"membercrm/db"
	"membercrm/logger"
	"membercrm/models"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	reportDays       = 30
	overviewCacheKey = "overview"
)

func (a *API) GetReportOverview(c *gin.Context) {
	if cached, ok := a.reports.Get(overviewCacheKey); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	report, err := a.buildOverview(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("build report failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	a.reports.Set(overviewCacheKey, report, gocache.DefaultExpiration)
	c.JSON(http.StatusOK, report)
}

func (a *API) buildOverview(ctx context.Context) (models.ReportOverview, error) {
	var report models.ReportOverview
	dbConn := db.GetDB()

	// 1. Members per tier
	rows, err := dbConn.QueryContext(ctx, `SELECT tier, COUNT(*) FROM members GROUP BY tier`)
	if err != nil {
		return report, fmt.Errorf("count tiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tc models.TierCount
		if err := rows.Scan(&tc.Tier, &tc.Count); err != nil {
			return report, fmt.Errorf("scan tier count: %w", err)
		}
		switch tc.Tier {
		case models.TierBasic:
			report.Basic = tc.Count
		case models.TierSilver:
			report.Silver = tc.Count
		case models.TierGold:
			report.Gold = tc.Count
		}
		report.TotalMembers += tc.Count
	}
	if err := rows.Err(); err != nil {
		return report, err
	}

	// 2. Sent per UTC day, zero-filled
	today := a.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(reportDays - 1))

	perDay := make(map[string]int, reportDays)
	dayRows, err := dbConn.QueryContext(ctx, `
		SELECT to_char((sent_at AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS day, COALESCE(SUM(count), 0)
		FROM email_logs
		WHERE sent_at >= $1
		GROUP BY day
	`, since)
	if err != nil {
		return report, fmt.Errorf("daily sends: %w", err)
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var day string
		var total int
		if err := dayRows.Scan(&day, &total); err != nil {
			return report, fmt.Errorf("scan daily sends: %w", err)
		}
		perDay[day] = total
	}
	if err := dayRows.Err(); err != nil {
		return report, err
	}

	report.Series = make([]models.DailyCount, 0, reportDays)
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		report.Series = append(report.Series, models.DailyCount{Date: key, Value: perDay[key]})
	}
	return report, nil
}
