package repository

import (
	"context"
	"database/sql"
)

// FavoriteRepo persists saved listings.  The favorites table carries a
// unique key on (user_id, listing_id), so saving is naturally
// idempotent.
type FavoriteRepo struct {
	db *sql.DB
}

// NewFavoriteRepo returns a new FavoriteRepo bound to the given database.
func NewFavoriteRepo(db *sql.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// Add saves a listing for a user.  A repeat save is a no-op; the boolean
// result reports whether a new row was created.
func (r *FavoriteRepo) Add(ctx context.Context, userID, listingID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO favorites (user_id, listing_id) VALUES (?, ?)`,
		userID, listingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Remove deletes a saved listing.  Removing something that was never
// saved is not an error.
func (r *FavoriteRepo) Remove(ctx context.Context, userID, listingID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND listing_id = ?`,
		userID, listingID)
	return err
}

// FavoriteDetail is a saved listing joined with the fields the
// favorites page renders.
type FavoriteDetail struct {
	ListingID    uint64 `json:"listing_id"`
	Title        string `json:"title"`
	City         string `json:"city"`
	RegularPrice int64  `json:"regular_price"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	SavedAt      string `json:"saved_at"`
}

// ListByUser returns the user's saved listings, newest first.  Deleted
// listings drop out of the join; withdrawn or rejected ones stay, with
// their status exposed so the client can mark them unavailable.
func (r *FavoriteRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]FavoriteDetail, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT l.id, l.title, l.city, l.regular_price, l.currency, l.status,
		        DATE_FORMAT(f.created_at, '%Y-%m-%d %T')
		 FROM favorites f
		 JOIN listings l ON l.id = f.listing_id
		 WHERE f.user_id = ? AND l.status <> 'deleted'
		 ORDER BY f.created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []FavoriteDetail{}
	for rows.Next() {
		var d FavoriteDetail
		if err := rows.Scan(&d.ListingID, &d.Title, &d.City, &d.RegularPrice,
			&d.Currency, &d.Status, &d.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
