package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/estate-market/internal/model"
)

// ViewRepo persists the per-device view dedup records and the listing
// view counters.  The listing_views table carries a unique key on
// (listing_id, device_id); that insert is the serialization point for
// counting, so two concurrent first views from the same device can never
// double-count.
type ViewRepo struct {
	db *sql.DB
}

// NewViewRepo returns a new ViewRepo bound to the given database.
func NewViewRepo(db *sql.DB) *ViewRepo { return &ViewRepo{db: db} }

// RecordView counts a view for a listing, deduplicated by device.
//
// Inside one transaction it (1) verifies the listing exists, (2) tries
// INSERT IGNORE into listing_views, and (3) increments listings.views
// only when the insert landed.  A duplicate-key outcome (zero rows
// affected) means the device was already counted; the current count is
// returned with alreadyViewed set.  A missing listing fails with
// ErrListingNotFound and leaves no dedup record behind.
func (r *ViewRepo) RecordView(ctx context.Context, listingID uint64, deviceID string) (uint64, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM listings WHERE id = ?)`, listingID).Scan(&exists); err != nil {
		return 0, false, err
	}
	if !exists {
		return 0, false, ErrListingNotFound
	}

	res, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO listing_views (listing_id, device_id) VALUES (?, ?)`,
		listingID, deviceID)
	if err != nil {
		return 0, false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}

	already := inserted == 0
	if !already {
		// The dedup row landed, so this device's view is counted exactly
		// once.  The increment is relative, not read-modify-write.
		if _, err := tx.ExecContext(ctx,
			`UPDATE listings SET views = views + 1 WHERE id = ?`, listingID); err != nil {
			return 0, false, err
		}
	}

	var views uint64
	if err := tx.QueryRowContext(ctx,
		`SELECT views FROM listings WHERE id = ?`, listingID).Scan(&views); err != nil {
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	committed = true
	return views, already, nil
}

// ViewsFor returns the dedup records for a listing, newest first.  Used
// by the owner dashboard to show when interest arrived.
func (r *ViewRepo) ViewsFor(ctx context.Context, listingID uint64, limit int) ([]model.ViewRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT listing_id, device_id, created_at
		 FROM listing_views WHERE listing_id = ? ORDER BY created_at DESC LIMIT ?`,
		listingID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ViewRecord{}
	for rows.Next() {
		var v model.ViewRecord
		if err := rows.Scan(&v.ListingID, &v.DeviceID, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
