package workflow

import (
	"errors"
	"fmt"

	"github.com/iliyamo/estate-market/internal/policy"
)

// Transition enumerates the operations that move a listing between
// statuses.  Handlers translate HTTP verbs into these values; nothing
// else mutates `listings.status`.
type Transition string

const (
	TransitionApprove  Transition = "approve"  // pending -> approved, moderators only
	TransitionReject   Transition = "reject"   // pending -> rejected, moderators only
	TransitionWithdraw Transition = "withdraw" // active/approved -> inactive, owner only
	TransitionDelete   Transition = "delete"   // any non-deleted -> deleted, owner or moderator
)

// ErrForbidden is returned when the transition edge exists but the actor
// is not allowed to take it.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// InvalidTransitionError reports a request for an edge that does not
// exist in the state machine, or a compare-and-swap that lost against a
// concurrent status change.  It names both sides so the caller can render
// an actionable message.
type InvalidTransitionError struct {
	Current   Status
	Requested Transition
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s a listing in status %q", e.Requested, e.Current)
}

// Actor describes who is requesting a transition, reduced to the two
// facts the state machine cares about.
type Actor struct {
	Role    policy.Role
	IsOwner bool
}

// edge is one row of the transition table.
type edge struct {
	from          Status
	to            Status
	needModerator bool // actor's capability table must have CanModerate
	needOwner     bool // actor must own the listing (moderators pass for delete)
	ownerOrMod    bool // owner or moderator may take the edge
}

// transitions is the explicit transition table.  Deletion edges exist
// from every non-deleted state; the remaining edges are enumerated.
var transitions = map[Transition][]edge{
	TransitionApprove: {
		{from: StatusPending, to: StatusApproved, needModerator: true},
	},
	TransitionReject: {
		{from: StatusPending, to: StatusRejected, needModerator: true},
	},
	TransitionWithdraw: {
		{from: StatusActive, to: StatusInactive, needOwner: true},
		{from: StatusApproved, to: StatusInactive, needOwner: true},
	},
	TransitionDelete: {
		{from: StatusDraft, to: StatusDeleted, ownerOrMod: true},
		{from: StatusPending, to: StatusDeleted, ownerOrMod: true},
		{from: StatusApproved, to: StatusDeleted, ownerOrMod: true},
		{from: StatusActive, to: StatusDeleted, ownerOrMod: true},
		{from: StatusRejected, to: StatusDeleted, ownerOrMod: true},
		{from: StatusInactive, to: StatusDeleted, ownerOrMod: true},
	},
}

// Apply validates a requested transition against the table and returns
// the next status.  The edge is checked before the actor: requesting a
// non-existent edge yields InvalidTransitionError for every actor
// including admins, while an existing edge taken by the wrong actor
// yields ErrForbidden.
func Apply(current Status, requested Transition, actor Actor) (Status, error) {
	var match *edge
	for i := range transitions[requested] {
		if transitions[requested][i].from == current {
			match = &transitions[requested][i]
			break
		}
	}
	if match == nil {
		return "", &InvalidTransitionError{Current: current, Requested: requested}
	}
	cap := policy.CapabilityFor(actor.Role)
	switch {
	case match.needModerator:
		if !cap.CanModerate {
			return "", ErrForbidden
		}
	case match.needOwner:
		if !actor.IsOwner {
			return "", ErrForbidden
		}
	case match.ownerOrMod:
		if !actor.IsOwner && !cap.CanModerate {
			return "", ErrForbidden
		}
	}
	return match.to, nil
}
