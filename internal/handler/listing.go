package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/estate-market/internal/engine"
	"github.com/iliyamo/estate-market/internal/model"
	"github.com/iliyamo/estate-market/internal/policy"
	"github.com/iliyamo/estate-market/internal/repository"
	"github.com/iliyamo/estate-market/internal/workflow"
)

// ListingHandler bundles the engine and repositories behind the
// authenticated listing endpoints: creation, the owner dashboard,
// edits, withdrawal and soft deletion.
type ListingHandler struct {
	Engine   *engine.Engine
	Listings *repository.ListingRepo
	Views    *repository.ViewRepo
}

// NewListingHandler constructs a ListingHandler and panics if any
// dependency is nil.
func NewListingHandler(eng *engine.Engine, listings *repository.ListingRepo, views *repository.ViewRepo) *ListingHandler {
	if eng == nil || listings == nil || views == nil {
		panic("nil dependency passed to NewListingHandler")
	}
	return &ListingHandler{Engine: eng, Listings: listings, Views: views}
}

// ----- DTOs -----

type listingReq struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	City            string `json:"city"`
	OfferType       string `json:"offer_type"`
	Address         string `json:"address"`
	Bedrooms        uint8  `json:"bedrooms"`
	Bathrooms       uint8  `json:"bathrooms"`
	RegularPrice    int64  `json:"regular_price"`
	Currency        string `json:"currency"`
	RequestApproval bool   `json:"request_approval"`
}

type listingResp struct {
	ID           uint64    `json:"id"`
	OwnerID      uint64    `json:"owner_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	City         string    `json:"city"`
	OfferType    string    `json:"offer_type"`
	Address      string    `json:"address,omitempty"`
	Bedrooms     uint8     `json:"bedrooms"`
	Bathrooms    uint8     `json:"bathrooms"`
	RegularPrice int64     `json:"regular_price"`
	Currency     string    `json:"currency"`
	Commission   int64     `json:"commission,omitempty"`
	Status       string    `json:"status"`
	Views        uint64    `json:"views"`
	CreatedAt    time.Time `json:"created_at"`
}

func toListingResp(l model.Listing) listingResp {
	return listingResp{
		ID:           l.ID,
		OwnerID:      l.OwnerID,
		Title:        l.Title,
		Description:  l.Description,
		City:         l.City,
		OfferType:    l.OfferType,
		Address:      l.Address,
		Bedrooms:     l.Bedrooms,
		Bathrooms:    l.Bathrooms,
		RegularPrice: l.RegularPrice,
		Currency:     l.Currency,
		Commission:   l.Commission,
		Status:       string(l.Status),
		Views:        l.Views,
		CreatedAt:    l.CreatedAt,
	}
}

func (req *listingReq) normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.City = strings.TrimSpace(req.City)
	req.OfferType = strings.ToLower(strings.TrimSpace(req.OfferType))
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = policy.ReferenceCurrency
	}
}

func (req *listingReq) validate() string {
	if req.Title == "" {
		return "title required"
	}
	if req.City == "" {
		return "city required"
	}
	switch req.OfferType {
	case "sale", "rent", "lease":
	default:
		return "offer_type must be sale, rent or lease"
	}
	if req.RegularPrice < 0 {
		return "regular_price must not be negative"
	}
	return ""
}

// writeRuleError translates the moderation-engine error taxonomy into
// HTTP responses.  Every rejection names the rule that was violated so
// clients can render an actionable message.
func writeRuleError(c echo.Context, err error) error {
	var quotaErr *policy.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "quota_exceeded",
			"message": quotaErr.Error(),
			"count":   quotaErr.Count,
			"limit":   quotaErr.Limit,
		})
	}
	var ceilErr *policy.PriceCeilingError
	if errors.As(err, &ceilErr) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":             "price_ceiling_exceeded",
			"message":           ceilErr.Error(),
			"price":             ceilErr.Price,
			"ceiling":           ceilErr.Ceiling,
			"requires_approval": ceilErr.RequiresApproval,
			"commission":        ceilErr.Commission,
		})
	}
	var transErr *workflow.InvalidTransitionError
	if errors.As(err, &transErr) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "invalid_transition",
			"message":   transErr.Error(),
			"current":   string(transErr.Current),
			"requested": string(transErr.Requested),
		})
	}
	if errors.Is(err, workflow.ErrForbidden) || errors.Is(err, repository.ErrForbidden) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if engine.NotFound(err) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

// CreateListing handles POST /v1/listings.  The pre-creation gate (quota
// and price ceiling) runs first; a high-value submission that set
// request_approval lands in the moderation queue instead of being
// rejected.  Returns 201 with the created listing.
func (h *ListingHandler) CreateListing(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.normalize()
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	draft := model.Listing{
		Title:        req.Title,
		Description:  req.Description,
		City:         req.City,
		OfferType:    req.OfferType,
		Address:      req.Address,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		RegularPrice: req.RegularPrice,
		Currency:     req.Currency,
	}
	created, err := h.Engine.CreateListing(c.Request().Context(), userID, draft, req.RequestApproval)
	if err != nil {
		return writeRuleError(c, err)
	}
	return c.JSON(http.StatusCreated, toListingResp(created))
}

// CreationAllowance handles GET /v1/listings/allowance.  It previews the
// pre-creation gate for the authenticated user and a candidate price so
// the client can route high-value submissions through the approval path
// before posting anything.
func (h *ListingHandler) CreationAllowance(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	price, err := strconv.ParseInt(c.QueryParam("price"), 10, 64)
	if err != nil || price < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid price"})
	}
	currency := strings.ToUpper(strings.TrimSpace(c.QueryParam("currency")))
	if currency == "" {
		currency = policy.ReferenceCurrency
	}
	decision, err := h.Engine.CheckCreationAllowed(c.Request().Context(), userID, price, currency, true)
	if err != nil {
		return writeRuleError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"allowed":           true,
		"requires_approval": decision.RequiresApproval,
		"commission":        decision.Commission,
	})
}

// MyListings handles GET /v1/my/listings.  It returns the owner's
// listings in every status, deleted included, newest first.
func (h *ListingHandler) MyListings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Listings.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load listings"})
	}
	out := make([]listingResp, 0, len(items))
	for _, l := range items {
		out = append(out, toListingResp(l))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// UpdateListing handles PUT/PATCH /v1/listings/:id.  Only the owner or
// an admin may edit; descriptive fields only, never status or views.
func (h *ListingHandler) UpdateListing(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.normalize()
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx := c.Request().Context()
	l, err := h.Listings.GetListing(ctx, listingID)
	if err != nil {
		return writeRuleError(c, err)
	}
	if err := h.Engine.AuthorizeMutation(l, userID, getRole(c)); err != nil {
		return writeRuleError(c, err)
	}
	l.Title = req.Title
	l.Description = req.Description
	l.City = req.City
	l.OfferType = req.OfferType
	l.Address = req.Address
	l.Bedrooms = req.Bedrooms
	l.Bathrooms = req.Bathrooms
	l.RegularPrice = req.RegularPrice
	l.Currency = req.Currency
	if err := h.Listings.UpdateFields(ctx, l); err != nil {
		return writeRuleError(c, err)
	}
	return c.JSON(http.StatusOK, toListingResp(l))
}

// WithdrawListing handles POST /v1/listings/:id/withdraw.  The owner
// pulls an active or approved listing from public view; it can only come
// back through a fresh submission.
func (h *ListingHandler) WithdrawListing(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	l, err := h.Engine.TransitionStatus(c.Request().Context(), listingID, userID, getRole(c), workflow.TransitionWithdraw)
	if err != nil {
		return writeRuleError(c, err)
	}
	return c.JSON(http.StatusOK, toListingResp(l))
}

// DeleteListing handles DELETE /v1/listings/:id.  Soft delete: the row
// is retained, hidden everywhere, and keeps counting toward the owner's
// lifetime quota.
func (h *ListingHandler) DeleteListing(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	if err := h.Engine.SoftDelete(c.Request().Context(), listingID, userID, getRole(c)); err != nil {
		return writeRuleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListingViews handles GET /v1/listings/:id/views.  The owner dashboard
// shows when distinct devices first opened the listing.
func (h *ListingHandler) ListingViews(c echo.Context) error {
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
		return writeRuleError(c, err)
	}
	if err := h.Engine.AuthorizeMutation(l, userID, getRole(c)); err != nil {
		return writeRuleError(c, err)
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	records, err := h.Views.ViewsFor(ctx, listingID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load views"})
	}
	type viewResp struct {
		DeviceID string    `json:"device_id"`
		SeenAt   time.Time `json:"seen_at"`
	}
	out := make([]viewResp, 0, len(records))
	for _, v := range records {
		out = append(out, viewResp{DeviceID: v.DeviceID, SeenAt: v.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"total": l.Views, "items": out})
}
