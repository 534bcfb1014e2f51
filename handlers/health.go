package handlers

import (
	"context"
	"net/http"
	"time"

	"membercrm/db"
	"membercrm/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := db.GetDB().PingContext(ctx); err != nil {
		logger.FromGin(c).Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up", "mail": a.mailer.TransportName()})
}
