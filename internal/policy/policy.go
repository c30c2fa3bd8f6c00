// Package policy contains the role capability table and the pre-creation
// gate for listings.  All rules in this package are pure functions over
// their inputs so they can be tested without a database.  The capability
// table replaces scattered per-role conditionals: every operation consults
// it once instead of re-deriving what a role may do.
package policy

import (
	"fmt"
	"math"
)

// Role enumerates the account roles recognised by the marketplace.  The
// values match the `users.role` column.
type Role string

const (
	RoleUser    Role = "user"    // regular account, quota and price ceiling apply
	RoleAgent   Role = "agent"   // professional agent, unlimited listings
	RoleManager Role = "manager" // agency manager, unlimited but moderated
	RoleAdmin   Role = "admin"   // platform administrator
)

// Valid reports whether r is one of the recognised roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Capability describes what a role is allowed to do.  It is consulted
// once per operation rather than branching on the role name ad hoc.
//
// Fields:
//  HasQuota        – lifetime listing count is capped at ListingQuota.
//  HasPriceCeiling – regular price is capped at PriceCeiling unless the
//                    submission goes through the approval path.
//  CanModerate     – may approve or reject pending listings.
type Capability struct {
	HasQuota        bool
	HasPriceCeiling bool
	CanModerate     bool
}

// capabilities is the single source of truth for role behaviour.
var capabilities = map[Role]Capability{
	RoleUser:    {HasQuota: true, HasPriceCeiling: true},
	RoleAgent:   {},
	RoleManager: {},
	RoleAdmin:   {CanModerate: true},
}

// CapabilityFor returns the capability row for a role.  Unknown roles get
// the most restrictive treatment, same as RoleUser.
func CapabilityFor(r Role) Capability {
	if c, ok := capabilities[r]; ok {
		return c
	}
	return capabilities[RoleUser]
}

const (
	// ListingQuota is the maximum number of listings a quota-bound role may
	// ever create.  Soft-deleted listings still count.
	ListingQuota = 3
	// PriceCeiling is the maximum regular price, in reference currency
	// units, that a ceiling-bound role may set without moderation.
	PriceCeiling = 15000
	// CommissionRate is the fraction of the price shown as commission when
	// a high-value submission is routed through the approval path.  It is
	// informational only and never stored as a charge.
	CommissionRate = 0.03
)

// QuotaExceededError reports that a user has used up their lifetime
// listing quota.  Count includes soft-deleted listings.
type QuotaExceededError struct {
	Count int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("listing quota exceeded: %d of %d listings already created", e.Count, e.Limit)
}

// PriceCeilingError reports that a requested price is above the ceiling
// for the role.  When RequiresApproval is true the submission can still
// proceed into the pending queue; Commission carries the informational
// 3%% figure for display.
type PriceCeilingError struct {
	Price            int64 // requested price converted to reference currency
	Ceiling          int64
	RequiresApproval bool
	Commission       int64
}

func (e *PriceCeilingError) Error() string {
	return fmt.Sprintf("price %d exceeds ceiling %d (reference currency)", e.Price, e.Ceiling)
}

// Commission returns the informational commission for a price, rounded to
// the nearest whole reference unit.
func Commission(price int64) int64 {
	return int64(math.Round(float64(price) * CommissionRate))
}

// CreationDecision is the outcome of the pre-creation gate.
//
// Fields:
//  RequiresApproval – the listing must start in the pending status and
//                     wait for an admin decision.
//  Commission       – informational commission attached to high-value
//                     submissions (zero otherwise).
type CreationDecision struct {
	RequiresApproval bool
	Commission       int64
}

// CheckCreation is the quota and price-ceiling gate that runs before a
// listing record is created.  lifetimeCount must include soft-deleted
// listings.  price and currency describe the requested regular price;
// viaApproval marks a submission explicitly routed through the high-value
// approval path.
//
// Quota violations always fail, regardless of price.  Ceiling violations
// fail unless the caller opted into the approval path, in which case the
// decision carries RequiresApproval and the display commission.
func CheckCreation(role Role, lifetimeCount int, price int64, currency string, viaApproval bool) (CreationDecision, error) {
	cap := CapabilityFor(role)
	if cap.HasQuota && lifetimeCount >= ListingQuota {
		return CreationDecision{}, &QuotaExceededError{Count: lifetimeCount, Limit: ListingQuota}
	}
	if cap.HasPriceCeiling {
		ref := ToReference(price, currency)
		if ref > PriceCeiling {
			if viaApproval {
				return CreationDecision{RequiresApproval: true, Commission: Commission(ref)}, nil
			}
			return CreationDecision{}, &PriceCeilingError{
				Price:            ref,
				Ceiling:          PriceCeiling,
				RequiresApproval: true,
				Commission:       Commission(ref),
			}
		}
	}
	return CreationDecision{}, nil
}
