package model

import "time"

// Message is one entry in the conversation between an interested user
// and a listing's owner.  Messages are grouped per listing and per
// interested user; the owner side shares the same thread.
//
// Fields:
//  ID        – primary key identifier.
//  ListingID – listing the conversation is about.
//  SenderID  – user who wrote the message.
//  OwnerID   – owner of the listing (denormalized for thread lookups).
//  Body      – message text.
//  CreatedAt – when the message was sent.
type Message struct {
	ID        uint64    // messages.id
	ListingID uint64    // messages.listing_id
	SenderID  uint64    // messages.sender_id
	OwnerID   uint64    // messages.owner_id
	Body      string    // messages.body
	CreatedAt time.Time // messages.created_at
}
