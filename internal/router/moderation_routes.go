package router

import (
	"github.com/iliyamo/estate-market/internal/handler"
	"github.com/iliyamo/estate-market/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterModeration registers admin-scoped moderation endpoints under
// /v1/admin.  All routes require a valid JWT and the admin role.  Admins
// review the pending queue and approve or reject submissions; decisions are
// published to the notification queue by the handler.
func RegisterModeration(e *echo.Echo, h *handler.ModerationHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("admin"),
	)
	g.GET("/listings/pending", h.PendingQueue)
	g.POST("/listings/:id/approve", h.Approve)
	g.POST("/listings/:id/reject", h.Reject)
}
