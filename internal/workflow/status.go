// Package workflow owns the listing status state machine.  The transition
// table is explicit data keyed on (current status, requested transition)
// so the machine can be tested in isolation from storage; repositories
// only ever write a status that came out of Apply, and always behind a
// compare-and-swap on the status that was validated.
package workflow

import "github.com/iliyamo/estate-market/internal/policy"

// Status enumerates the listing lifecycle states as stored in the
// `listings.status` column.
type Status string

const (
	StatusDraft    Status = "draft"    // composed but not yet submitted
	StatusPending  Status = "pending"  // awaiting a moderator decision
	StatusApproved Status = "approved" // moderator-approved, publicly visible
	StatusActive   Status = "active"   // auto-approved creation, publicly visible
	StatusRejected Status = "rejected" // moderator-denied, visible to owner only
	StatusInactive Status = "inactive" // withdrawn by the owner
	StatusDeleted  Status = "deleted"  // soft-deleted, hidden from everyone
)

// Valid reports whether s is a recognised listing status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusActive,
		StatusRejected, StatusInactive, StatusDeleted:
		return true
	}
	return false
}

// InitialStatus applies the creation rule: listings start active unless
// the submission was routed through the high-value approval path, in
// which case they wait in the moderation queue.
func InitialStatus(requiresApproval bool) Status {
	if requiresApproval {
		return StatusPending
	}
	return StatusActive
}

// PubliclyVisible reports whether a listing in the given status, owned by
// an account with the given role, may appear in public browse results.
//
// The second clause looks redundant next to the first but is kept as an
// explicit exclusion: moderation applies only to some roles, and the
// wider system reads this rule as "in-moderation and rejected manager
// listings are never public" independently of the allow list.
func PubliclyVisible(s Status, owner policy.Role) bool {
	if !(s == StatusActive || s == StatusApproved) {
		return false
	}
	if (s == StatusPending || s == StatusRejected) && owner == policy.RoleManager {
		return false
	}
	return true
}
