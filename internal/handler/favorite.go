package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/estate-market/internal/engine"
	"github.com/iliyamo/estate-market/internal/repository"
)

// FavoriteHandler serves the saved-listings endpoints.  Saving is
// idempotent: the favorites table has a unique (user, listing) key, so a
// repeat save simply reports that it was already there.
type FavoriteHandler struct {
	Engine    *engine.Engine
	Favorites *repository.FavoriteRepo
	Listings  *repository.ListingRepo
}

// NewFavoriteHandler constructs a FavoriteHandler and panics on nil
// dependencies.
func NewFavoriteHandler(eng *engine.Engine, favorites *repository.FavoriteRepo, listings *repository.ListingRepo) *FavoriteHandler {
	if eng == nil || favorites == nil || listings == nil {
		panic("nil dependency passed to NewFavoriteHandler")
	}
	return &FavoriteHandler{Engine: eng, Favorites: favorites, Listings: listings}
}

// AddFavorite handles POST /v1/listings/:id/favorite.  Only publicly
// visible listings can be saved; anything hidden answers 404 just like
// the public detail page does.
func (h *FavoriteHandler) AddFavorite(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
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
	created, err := h.Favorites.Add(ctx, userID, listingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save favorite"})
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	return c.JSON(status, echo.Map{"listing_id": listingID, "saved": true})
}

// RemoveFavorite handles DELETE /v1/listings/:id/favorite.
func (h *FavoriteHandler) RemoveFavorite(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	if err := h.Favorites.Remove(c.Request().Context(), userID, listingID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to remove favorite"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListFavorites handles GET /v1/my/favorites.
func (h *FavoriteHandler) ListFavorites(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	items, err := h.Favorites.ListByUser(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load favorites"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
