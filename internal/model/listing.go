package model

import (
	"time"

	"github.com/iliyamo/estate-market/internal/workflow"
)

// Listing represents a property record offered for sale, rent or lease
// as stored in the `listings` table.  The json tags are omitted; handlers
// define their own response types with the fields they expose.
//
// Fields:
//  ID           – primary key identifier.
//  OwnerID      – user who created the listing.
//  Title        – short headline shown in search results.
//  Description  – free-form body text.
//  City         – city the property is located in.
//  OfferType    – "sale", "rent" or "lease".
//  Address      – street address, shown only on the detail page.
//  Bedrooms     – number of bedrooms.
//  Bathrooms    – number of bathrooms.
//  RegularPrice – asking price in whole units of Currency; never negative.
//  Currency     – ISO code of the price currency.
//  Commission   – informational 3% commission attached to high-value
//                 submissions; zero for everything else.  Display only,
//                 never charged.
//  Status       – lifecycle state; only workflow.Apply outcomes are
//                 ever written here.
//  Views        – distinct-device view counter; monotonically
//                 non-decreasing, bumped only through the dedup insert.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last modification timestamp.
type Listing struct {
	ID           uint64          // listings.id
	OwnerID      uint64          // listings.owner_id
	Title        string          // listings.title
	Description  string          // listings.description
	City         string          // listings.city
	OfferType    string          // listings.offer_type
	Address      string          // listings.address
	Bedrooms     uint8           // listings.bedrooms
	Bathrooms    uint8           // listings.bathrooms
	RegularPrice int64           // listings.regular_price
	Currency     string          // listings.currency
	Commission   int64           // listings.commission
	Status       workflow.Status // listings.status
	Views        uint64          // listings.views
	CreatedAt    time.Time       // listings.created_at
	UpdatedAt    time.Time       // listings.updated_at
}

// ViewRecord marks that a device has already been counted toward a
// listing's view total.  The pair (ListingID, DeviceID) is unique; the
// row is created at most once per device and never updated.  Inserting
// it is the serialization point for the view counter.
//
// Fields:
//  ListingID – listing that was viewed.
//  DeviceID  – opaque client-supplied device identifier.
//  CreatedAt – when the first view happened.
type ViewRecord struct {
	ListingID uint64    // listing_views.listing_id
	DeviceID  string    // listing_views.device_id
	CreatedAt time.Time // listing_views.created_at
}
