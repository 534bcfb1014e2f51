package handlers

import (
	"membercrm/middleware"
	"membercrm/services"

	"github.com/gin-gonic/gin"
)

// Register mounts every route. Login is throttled by limiter.
func (a *API) Register(r gin.IRouter, limiter services.Limiter) {
	r.GET("/healthz", a.Health)

	api := r.Group("/api")
	api.POST("/auth/login", middleware.LoginRateLimit(limiter), a.Login)

	authed := api.Group("", middleware.AuthRequired(a.sessions, a.cfg.Cookie.Name))
	{
		authed.POST("/auth/logout", a.Logout)
		authed.GET("/auth/me", a.Me)

		read := middleware.RequirePermission(services.ActionReadMembers)
		manage := middleware.RequirePermission(services.ActionManageMembers)
		authed.GET("/members", read, a.ListMembers)
		authed.POST("/members", manage, a.CreateMember)
		authed.GET("/members/:id", read, a.GetMember)
		authed.PUT("/members/:id", manage, a.UpdateMember)
		authed.DELETE("/members/:id", manage, a.DeleteMember)

		authed.GET("/templates", a.ListTemplates)
		authed.POST("/templates", a.CreateTemplate)
		authed.GET("/templates/:id", a.GetTemplate)
		authed.PUT("/templates/:id", a.UpdateTemplate)
		authed.DELETE("/templates/:id", a.DeleteTemplate)

		send := middleware.RequirePermission(services.ActionSendEmail)
		authed.POST("/email/preview", send, a.PreviewEmail)
		authed.POST("/email/send", send, a.SendEmail)

		logs := middleware.RequirePermission(services.ActionViewLogs)
		authed.GET("/logs", logs, a.ListLogs)
		authed.GET("/reports/overview", logs, a.GetReportOverview)

		authed.GET("/cover", a.GetCover)
		authed.POST("/cover", a.SetCover)
		authed.POST("/cover/upload", a.UploadCover)
	}
}
