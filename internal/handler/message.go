package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/estate-market/internal/engine"
	"github.com/iliyamo/estate-market/internal/model"
	"github.com/iliyamo/estate-market/internal/repository"
)

// MessageHandler serves the conversation endpoints between interested
// users and listing owners.
type MessageHandler struct {
	Engine   *engine.Engine
	Messages *repository.MessageRepo
	Listings *repository.ListingRepo
}

// NewMessageHandler constructs a MessageHandler and panics on nil
// dependencies.
func NewMessageHandler(eng *engine.Engine, messages *repository.MessageRepo, listings *repository.ListingRepo) *MessageHandler {
	if eng == nil || messages == nil || listings == nil {
		panic("nil dependency passed to NewMessageHandler")
	}
	return &MessageHandler{Engine: eng, Messages: messages, Listings: listings}
}

type messageResp struct {
	ID        uint64 `json:"id"`
	SenderID  uint64 `json:"sender_id"`
	FromOwner bool   `json:"from_owner"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// SendMessage handles POST /v1/listings/:id/messages.  Interested users
// write to the owner; the owner replies in the same thread.  Writing to
// a hidden listing is allowed for the owner only, so withdrawn listings
// keep their conversations readable.
func (h *MessageHandler) SendMessage(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "body required"})
	}

	ctx := c.Request().Context()
	l, err := h.Listings.GetListing(ctx, listingID)
	if err != nil {
		if engine.NotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if l.OwnerID != userID {
		visible, err := h.Engine.IsPubliclyVisible(ctx, l)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if !visible {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
	}

	m := model.Message{ListingID: listingID, SenderID: userID, OwnerID: l.OwnerID, Body: req.Body}
	if err := h.Messages.Create(ctx, &m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
	}
	return c.JSON(http.StatusCreated, messageResp{
		ID:        m.ID,
		SenderID:  m.SenderID,
		FromOwner: m.SenderID == m.OwnerID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	})
}

// ListMessages handles GET /v1/listings/:id/messages.  Only the owner
// and users who wrote in the thread may read it.
func (h *MessageHandler) ListMessages(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	msgs, err := h.Messages.Thread(c.Request().Context(), listingID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		if engine.NotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load messages"})
	}
	out := make([]messageResp, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResp{
			ID:        m.ID,
			SenderID:  m.SenderID,
			FromOwner: m.SenderID == m.OwnerID,
			Body:      m.Body,
			CreatedAt: m.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
