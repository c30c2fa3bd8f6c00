package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/estate-market/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/estate-market/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Group for operations that do not require an existing session
	// (register, login, refresh).  Each of these handlers is responsible
	// for generating or exchanging tokens.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access issues a new access
	// token without rotating.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts a JSON body containing a `refresh_token` and
	// invalidates it.  No JWT is required so an expired session can still
	// be terminated.
	g.POST("/logout", a.Logout)

	// Group for routes that require a valid access token.  All handlers
	// registered on this group execute the JWTAuth middleware before being
	// invoked.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Any known role may call the generic authenticated endpoints.  The
	// middleware rejects requests with missing or unknown roles.
	auth.Use(middleware.RequireRole("user", "agent", "manager", "admin"))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated browse endpoints on the provided
// Echo instance.  The PublicHandler returns sanitized listing data for guest
// users: hidden listings are never served and street addresses are stripped
// from search results.  The optional middleware (response cache, rate
// limiter) applies to every public route.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mws ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mws...)
	// Search the public catalogue with filters, sorting and pagination.
	g.GET("/listings", p.SearchListings)
	// Listing detail page.  Sending an X-Device-ID header counts a
	// deduplicated view as a side effect.
	g.GET("/listings/:id", p.GetListing)
	// Explicit view registration for clients that load the page elsewhere.
	g.POST("/listings/:id/view", p.RecordView)
}
