// Package queue defines message payloads exchanged over the message broker.
package queue

// ListingModeratedEvent is published when an admin decides on a pending
// listing.  It carries enough information for downstream consumers to
// render an owner notification without querying the primary database.
type ListingModeratedEvent struct {
	ListingID   uint64 `json:"listing_id"`
	OwnerID     uint64 `json:"owner_id"`
	OwnerEmail  string `json:"owner_email"`
	Title       string `json:"title"`
	Decision    string `json:"decision"`   // approve | reject
	NewStatus   string `json:"new_status"` // approved | rejected
	Commission  int64  `json:"commission"` // informational, zero unless high-value
	ModeratedAt string `json:"moderated_at"`
}
