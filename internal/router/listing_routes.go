package router // router defines how HTTP routes are registered for the API

import (
	"github.com/iliyamo/estate-market/internal/handler"    // listing, favorite and message handlers
	"github.com/iliyamo/estate-market/internal/middleware" // JWT + role middlewares
	"github.com/labstack/echo/v4"
)

// RegisterListings registers the authenticated listing-management endpoints
// under /v1.  All routes require a valid JWT; any known role may own
// listings, the quota and price-ceiling rules are enforced per role inside
// the handlers.
func RegisterListings(e *echo.Echo, l *handler.ListingHandler, f *handler.FavoriteHandler, m *handler.MessageHandler, jwtSecret string) {
	// Attach middlewares at group construction time for clarity.
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("user", "agent", "manager", "admin"),
	)

	// ---- Listings ----
	g.POST("/listings", l.CreateListing)
	// Allowance lets a client ask "can I create, and on what terms?"
	// before showing the submission form.
	g.GET("/listings/allowance", l.CreationAllowance)
	// NOTE: GET /v1/listings is the public search and lives on the public
	// router; the owner's own view (all statuses) is /v1/my/listings.
	g.GET("/my/listings", l.MyListings)
	g.PUT("/listings/:id", l.UpdateListing)
	g.PATCH("/listings/:id", l.UpdateListing) // allow partial updates via PATCH as well
	// Withdraw takes an active or approved listing off the market without
	// deleting it; delete is the terminal soft removal.
	g.POST("/listings/:id/withdraw", l.WithdrawListing)
	g.DELETE("/listings/:id", l.DeleteListing)
	// Per-device view records for the owner dashboard.
	g.GET("/listings/:id/views", l.ListingViews)

	// ---- Favorites ----
	g.POST("/listings/:id/favorite", f.AddFavorite)
	g.DELETE("/listings/:id/favorite", f.RemoveFavorite)
	g.GET("/my/favorites", f.ListFavorites)

	// ---- Messages ----
	g.POST("/listings/:id/messages", m.SendMessage)
	g.GET("/listings/:id/messages", m.ListMessages)
}
