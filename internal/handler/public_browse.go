// Package handler exposes HTTP handlers for both authenticated and public
// endpoints.  This file defines the public browsing API: unauthenticated
// visitors can search listings and open a listing's detail page.  Only
// publicly visible listings are served; the detail page also counts a
// view, deduplicated by the device the client identifies itself as.
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/estate-market/internal/engine"
	"github.com/iliyamo/estate-market/internal/repository"
)

// PublicHandler aggregates what the unauthenticated browse endpoints
// need.  Responses are sanitized: owner contact data and moderation
// details never leave this layer.
type PublicHandler struct {
	Engine   *engine.Engine
	Listings *repository.ListingRepo
}

// NewPublicHandler constructs a PublicHandler and panics on nil
// dependencies.
func NewPublicHandler(eng *engine.Engine, listings *repository.ListingRepo) *PublicHandler {
	if eng == nil || listings == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	return &PublicHandler{Engine: eng, Listings: listings}
}

// SearchListings handles GET /v1/listings.  Filters: city, offer_type,
// min_price, max_price; sort: newest (default), price, views with an
// order parameter; pagination via page/page_size.  Results are already
// restricted to publicly visible listings by the repository query.
func (h *PublicHandler) SearchListings(c echo.Context) error {
	q := repository.SearchQuery{
		City:      strings.TrimSpace(c.QueryParam("city")),
		OfferType: strings.TrimSpace(c.QueryParam("offer_type")),
		Sort:      c.QueryParam("sort"),
		Order:     c.QueryParam("order"),
	}
	if v := c.QueryParam("min_price"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.MinPrice = n
		}
	}
	if v := c.QueryParam("max_price"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.MaxPrice = n
		}
	}
	if v := c.QueryParam("page"); v != "" {
		q.Page, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("page_size"); v != "" {
		q.PageSize, _ = strconv.Atoi(v)
	}

	items, total, err := h.Listings.SearchPublic(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	out := make([]listingResp, 0, len(items))
	for _, l := range items {
		r := toListingResp(l)
		r.Address = "" // street address only on the detail page
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": out,
		"total": total,
	})
}

// GetListing handles GET /v1/listings/:id.  Listings outside the public
// visibility rule answer 404 here regardless of why they are hidden, so
// the browse surface leaks nothing about drafts, moderation or deletes.
// When the client identifies its device via the X-Device-ID header, a
// view is counted (at most once per device) and the response reports the
// resulting total.
func (h *PublicHandler) GetListing(c echo.Context) error {
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	ctx := c.Request().Context()
	l, err := h.Listings.GetListing(ctx, listingID)
	if err != nil {
		if engine.NotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	visible, err := h.Engine.IsPubliclyVisible(ctx, l)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !visible {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}

	resp := toListingResp(l)
	device := strings.TrimSpace(c.Request().Header.Get("X-Device-ID"))
	if device != "" {
		if res, err := h.Engine.RecordView(ctx, listingID, device); err == nil {
			resp.Views = res.Views
			return c.JSON(http.StatusOK, echo.Map{
				"item":           resp,
				"already_viewed": res.AlreadyViewed,
			})
		}
		// A failed view count never blocks the detail page.
	}
	return c.JSON(http.StatusOK, echo.Map{"item": resp})
}

// RecordView handles POST /v1/listings/:id/view.  Clients that render
// cached detail pages report the view explicitly.  The response carries
// the count after this call and whether the device had been counted
// before.  Hidden listings answer 404 without leaving a view record.
func (h *PublicHandler) RecordView(c echo.Context) error {
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	device := strings.TrimSpace(c.Request().Header.Get("X-Device-ID"))
	if device == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "X-Device-ID header required"})
	}
	ctx := c.Request().Context()
	l, err := h.Listings.GetListing(ctx, listingID)
	if err == nil {
		var visible bool
		visible, err = h.Engine.IsPubliclyVisible(ctx, l)
		if err == nil && !visible {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
	}
	if err != nil {
		if engine.NotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	res, err := h.Engine.RecordView(ctx, listingID, device)
	if err != nil {
		if engine.NotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, res)
}
