// Package engine implements the listing moderation and visibility
// operations on top of small store interfaces.  The pure rules live in
// the policy and workflow packages; the engine sequences them against
// storage.  Stores are interfaces so the concurrency-sensitive contracts
// (dedup view counting, compare-and-swap status writes) can be exercised
// in tests with in-memory fakes; the MySQL repositories are the
// production implementations.
package engine

import (
	"context"
	"errors"

	"github.com/iliyamo/estate-market/internal/model"
	"github.com/iliyamo/estate-market/internal/policy"
	"github.com/iliyamo/estate-market/internal/repository"
	"github.com/iliyamo/estate-market/internal/workflow"
)

// UserStore provides the user lookups the engine needs: the owner's role
// for visibility checks and the lifetime listing count for quota
// enforcement.  Absent users yield repository.ErrUserNotFound.
type UserStore interface {
	GetUser(ctx context.Context, id uint64) (model.User, error)
}

// ListingStore persists listings.  InsertListing must also bump the
// owner's lifetime listing counter in the same unit of work.
// UpdateStatus must be a conditional write: it sets the new status only
// if the row still carries the expected one, and reports whether the
// swap happened.  Absent listings yield repository.ErrListingNotFound.
type ListingStore interface {
	GetListing(ctx context.Context, id uint64) (model.Listing, error)
	InsertListing(ctx context.Context, l *model.Listing) error
	UpdateStatus(ctx context.Context, id uint64, from, to workflow.Status) (bool, error)
}

// ViewStore owns the per-device view dedup.  RecordView must treat the
// unique (listing, device) insert as the serialization point: the counter
// is incremented only when the insert landed, and a duplicate insert
// means "already viewed", not an error.  Absent listings yield
// repository.ErrListingNotFound and leave no dedup record behind.
type ViewStore interface {
	RecordView(ctx context.Context, listingID uint64, deviceID string) (views uint64, alreadyViewed bool, err error)
}

// Engine bundles the stores behind the moderation and visibility
// operations.  It holds no state of its own; every call is an
// independent unit of work.
type Engine struct {
	Users    UserStore
	Listings ListingStore
	Views    ViewStore
}

// New returns an Engine over the given stores and panics if any is nil.
func New(users UserStore, listings ListingStore, views ViewStore) *Engine {
	if users == nil || listings == nil || views == nil {
		panic("nil store passed to engine.New")
	}
	return &Engine{Users: users, Listings: listings, Views: views}
}

// CheckCreationAllowed runs the pre-creation gate for the given user and
// requested price without creating anything.  It returns the decision
// (approval routing, display commission) or one of the policy errors.
func (e *Engine) CheckCreationAllowed(ctx context.Context, ownerID uint64, price int64, currency string, viaApproval bool) (policy.CreationDecision, error) {
	owner, err := e.Users.GetUser(ctx, ownerID)
	if err != nil {
		return policy.CreationDecision{}, err
	}
	return policy.CheckCreation(owner.Role, int(owner.ListingsCreated), price, currency, viaApproval)
}

// CreateListing applies the pre-creation gate and the initial-state rule,
// then persists the listing.  The draft carries the user-supplied fields;
// owner, status, commission and views are set here.
//
// The quota check and the insert are one logical unit but not a single
// conditional write: two concurrent creations by the same user right at
// the quota boundary can let one extra listing slip through.  That
// relaxation is deliberate; the counter itself never loses updates
// because the store bumps it atomically with the insert.
func (e *Engine) CreateListing(ctx context.Context, ownerID uint64, draft model.Listing, viaApproval bool) (model.Listing, error) {
	owner, err := e.Users.GetUser(ctx, ownerID)
	if err != nil {
		return model.Listing{}, err
	}
	decision, err := policy.CheckCreation(owner.Role, int(owner.ListingsCreated), draft.RegularPrice, draft.Currency, viaApproval)
	if err != nil {
		return model.Listing{}, err
	}
	draft.OwnerID = ownerID
	draft.Status = workflow.InitialStatus(decision.RequiresApproval)
	draft.Commission = decision.Commission
	draft.Views = 0
	if err := e.Listings.InsertListing(ctx, &draft); err != nil {
		return model.Listing{}, err
	}
	return draft, nil
}

// TransitionStatus validates a requested transition for the actor and
// applies it behind a compare-and-swap on the status that was validated.
// A swap that loses against a concurrent change fails with
// InvalidTransitionError rather than overwriting the newer status.
func (e *Engine) TransitionStatus(ctx context.Context, listingID, actorID uint64, actorRole policy.Role, requested workflow.Transition) (model.Listing, error) {
	l, err := e.Listings.GetListing(ctx, listingID)
	if err != nil {
		return model.Listing{}, err
	}
	actor := workflow.Actor{Role: actorRole, IsOwner: l.OwnerID == actorID}
	next, err := workflow.Apply(l.Status, requested, actor)
	if err != nil {
		return model.Listing{}, err
	}
	swapped, err := e.Listings.UpdateStatus(ctx, listingID, l.Status, next)
	if err != nil {
		return model.Listing{}, err
	}
	if !swapped {
		// Lost a race: the status moved between validation and the write.
		return model.Listing{}, &workflow.InvalidTransitionError{Current: l.Status, Requested: requested}
	}
	l.Status = next
	return l, nil
}

// SoftDelete marks a listing deleted on behalf of its owner or an admin.
// The record is retained and keeps counting toward the owner's lifetime
// quota.
func (e *Engine) SoftDelete(ctx context.Context, listingID, actorID uint64, actorRole policy.Role) error {
	_, err := e.TransitionStatus(ctx, listingID, actorID, actorRole, workflow.TransitionDelete)
	return err
}

// AuthorizeMutation checks that the actor may update or delete the
// listing: the owner always may, admins may, everyone else is forbidden.
func (e *Engine) AuthorizeMutation(l model.Listing, actorID uint64, actorRole policy.Role) error {
	if l.OwnerID == actorID || actorRole == policy.RoleAdmin {
		return nil
	}
	return workflow.ErrForbidden
}

// IsPubliclyVisible reports whether the listing may be shown to
// unauthenticated visitors, resolving the owner's role for the manager
// exclusion.
func (e *Engine) IsPubliclyVisible(ctx context.Context, l model.Listing) (bool, error) {
	owner, err := e.Users.GetUser(ctx, l.OwnerID)
	if err != nil {
		return false, err
	}
	return workflow.PubliclyVisible(l.Status, owner.Role), nil
}

// ViewResult is returned by RecordView.
type ViewResult struct {
	Views         uint64 `json:"views"`
	AlreadyViewed bool   `json:"already_viewed"`
}

// RecordView counts a view for the listing, at most once per device.
// The second and later calls for the same device return the current
// count with AlreadyViewed set.
func (e *Engine) RecordView(ctx context.Context, listingID uint64, deviceID string) (ViewResult, error) {
	views, already, err := e.Views.RecordView(ctx, listingID, deviceID)
	if err != nil {
		return ViewResult{}, err
	}
	return ViewResult{Views: views, AlreadyViewed: already}, nil
}

// NotFound reports whether err is the listing- or user-missing sentinel
// from the store layer.
func NotFound(err error) bool {
	return errors.Is(err, repository.ErrListingNotFound) || errors.Is(err, repository.ErrUserNotFound)
}
