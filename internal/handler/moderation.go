package handler

// This file defines the moderation endpoints for administrators.  Admins
// review the queue of pending high-value submissions and either approve
// or reject them.  Decisions go through the status state machine with
// compare-and-swap semantics, so two admins racing on the same listing
// cannot both win.  Each decision publishes a listing.moderated event
// for the notification pipeline; publish failures are logged and
// ignored, the decision itself is already durable.

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/estate-market/internal/engine"
	"github.com/iliyamo/estate-market/internal/queue"
	"github.com/iliyamo/estate-market/internal/repository"
	queue_publisher "github.com/iliyamo/estate-market/internal/service"
	"github.com/iliyamo/estate-market/internal/workflow"
)

// ModerationHandler bundles what the admin review endpoints need.  The
// user repository resolves owner emails for the notification events.
type ModerationHandler struct {
	Engine   *engine.Engine
	Listings *repository.ListingRepo
	Users    *repository.UserRepo
}

// NewModerationHandler constructs a ModerationHandler and panics on nil
// dependencies.
func NewModerationHandler(eng *engine.Engine, listings *repository.ListingRepo, users *repository.UserRepo) *ModerationHandler {
	if eng == nil || listings == nil || users == nil {
		panic("nil dependency passed to NewModerationHandler")
	}
	return &ModerationHandler{Engine: eng, Listings: listings, Users: users}
}

// PendingQueue handles GET /v1/admin/listings/pending.  Oldest submissions
// come first so nothing starves at the back of the queue.
func (h *ModerationHandler) PendingQueue(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	items, err := h.Listings.ListPending(c.Request().Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load queue"})
	}
	out := make([]listingResp, 0, len(items))
	for _, l := range items {
		out = append(out, toListingResp(l))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Approve handles POST /v1/admin/listings/:id/approve.
func (h *ModerationHandler) Approve(c echo.Context) error {
	return h.decide(c, workflow.TransitionApprove)
}

// Reject handles POST /v1/admin/listings/:id/reject.
func (h *ModerationHandler) Reject(c echo.Context) error {
	return h.decide(c, workflow.TransitionReject)
}

func (h *ModerationHandler) decide(c echo.Context, tr workflow.Transition) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	ctx := c.Request().Context()
	l, err := h.Engine.TransitionStatus(ctx, listingID, adminID, getRole(c), tr)
	if err != nil {
		return writeRuleError(c, err)
	}

	// Notify the owner.  Best effort: the decision already committed.
	if owner, err := h.Users.GetUser(ctx, l.OwnerID); err == nil {
		ev := queue.ListingModeratedEvent{
			ListingID:   l.ID,
			OwnerID:     l.OwnerID,
			OwnerEmail:  owner.Email,
			Title:       l.Title,
			Decision:    string(tr),
			NewStatus:   string(l.Status),
			Commission:  l.Commission,
			ModeratedAt: time.Now().UTC().Format("2006-01-02 15:04:05"),
		}
		if err := queue_publisher.PublishListingModerated(ctx, ev); err != nil {
			log.Printf("moderation: publish event failed for listing %d: %v", l.ID, err)
		}
	}
	return c.JSON(http.StatusOK, toListingResp(l))
}
