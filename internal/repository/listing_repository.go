package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/estate-market/internal/model"
	"github.com/iliyamo/estate-market/internal/workflow"
)

// ListingRepo provides persistence for listings.  All timestamps are
// stored in UTC.  Status writes go through UpdateStatus, which is a
// conditional update on the previously validated status; nothing in this
// repository writes a status unconditionally.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo returns a new ListingRepo bound to the given database.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

const listingColumns = `id, owner_id, title, description, city, offer_type, address,
	bedrooms, bathrooms, regular_price, currency, commission, status, views,
	created_at, updated_at`

func scanListing(row interface{ Scan(...any) error }) (model.Listing, error) {
	var l model.Listing
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.City, &l.OfferType, &l.Address,
		&l.Bedrooms, &l.Bathrooms, &l.RegularPrice, &l.Currency, &l.Commission, &l.Status, &l.Views,
		&l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// GetListing fetches a listing by id.  Soft-deleted listings are
// returned like any other; callers decide what the deleted status means
// for them.  Missing rows yield ErrListingNotFound.
func (r *ListingRepo) GetListing(ctx context.Context, id uint64) (model.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Listing{}, ErrListingNotFound
	}
	return l, err
}

// InsertListing creates the listing row and bumps the owner's lifetime
// listing counter in the same transaction, so the counter never misses a
// creation even when requests race.  The generated id and DB-side
// timestamps are populated on the passed listing.
func (r *ListingRepo) InsertListing(ctx context.Context, l *model.Listing) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO listings
			(owner_id, title, description, city, offer_type, address,
			 bedrooms, bathrooms, regular_price, currency, commission, status, views)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		l.OwnerID, l.Title, l.Description, l.City, l.OfferType, l.Address,
		l.Bedrooms, l.Bathrooms, l.RegularPrice, l.Currency, l.Commission, string(l.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	// Lifetime counter: only ever incremented, including for listings that
	// are later soft-deleted.
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET listings_created = listings_created + 1 WHERE id = ?`,
		l.OwnerID); err != nil {
		return err
	}
	// Query back timestamps populated by column defaults.
	if err := tx.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM listings WHERE id = ?`, l.ID).
		Scan(&l.CreatedAt, &l.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdateStatus performs the compare-and-swap status write: the new
// status lands only if the row still carries the expected one.  The
// boolean result distinguishes "swapped" from "stale or missing"; callers
// treat a false result as a lost race, not as corruption.
func (r *ListingRepo) UpdateStatus(ctx context.Context, id uint64, from, to workflow.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE listings SET status = ? WHERE id = ? AND status = ?`,
		string(to), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateFields applies an owner edit to the mutable descriptive columns.
// Status, views and commission are not touched here.  Missing rows yield
// ErrListingNotFound.
func (r *ListingRepo) UpdateFields(ctx context.Context, l model.Listing) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE listings
		 SET title = ?, description = ?, city = ?, offer_type = ?, address = ?,
		     bedrooms = ?, bathrooms = ?, regular_price = ?, currency = ?
		 WHERE id = ?`,
		l.Title, l.Description, l.City, l.OfferType, l.Address,
		l.Bedrooms, l.Bathrooms, l.RegularPrice, l.Currency, l.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	// RowsAffected is 0 both for a missing row and for a no-op edit, so
	// distinguish via an existence probe only when nothing changed.
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM listings WHERE id = ?)`, l.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrListingNotFound
		}
	}
	return nil
}

// ListByOwner returns every listing owned by the user, newest first,
// in any status including deleted.  This backs the owner dashboard.
func (r *ListingRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListPending returns the moderation queue, oldest submissions first.
func (r *ListingRepo) ListPending(ctx context.Context, limit, offset int) ([]model.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE status = ? ORDER BY created_at ASC LIMIT ? OFFSET ?`,
		string(workflow.StatusPending), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SearchQuery defines filters, sorting and pagination for the public
// browse endpoint.  Zero values mean "no filter".
type SearchQuery struct {
	City      string
	OfferType string
	MinPrice  int64
	MaxPrice  int64
	Sort      string // "price", "views" or "newest" (default)
	Order     string // "asc" or "desc"
	Page      int
	PageSize  int
}

// SearchPublic returns publicly visible listings matching the query plus
// the total match count for pagination.  The visibility rule is applied
// in SQL: the listing must be active or approved, and not a pending or
// rejected listing owned by a manager.  The second clause mirrors the
// exclusion the moderation rules are written in terms of, even though
// the allow list already excludes those statuses.
func (r *ListingRepo) SearchPublic(ctx context.Context, q SearchQuery) ([]model.Listing, int64, error) {
	where := []string{
		`l.status IN ('active', 'approved')`,
		`NOT (l.status IN ('pending', 'rejected') AND u.role = 'manager')`,
	}
	args := []any{}

	if q.City != "" {
		where = append(where, "LOWER(l.city) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.City)+"%")
	}
	if q.OfferType != "" {
		where = append(where, "l.offer_type = ?")
		args = append(args, strings.ToLower(q.OfferType))
	}
	if q.MinPrice > 0 {
		where = append(where, "l.regular_price >= ?")
		args = append(args, q.MinPrice)
	}
	if q.MaxPrice > 0 {
		where = append(where, "l.regular_price <= ?")
		args = append(args, q.MaxPrice)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*)
		FROM listings l
		JOIN users u ON u.id = l.owner_id
		WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// Sort column comes from a fixed allow list; user input never reaches
	// the SQL text directly.
	orderBy := "l.created_at"
	switch strings.ToLower(q.Sort) {
	case "price":
		orderBy = "l.regular_price"
	case "views":
		orderBy = "l.views"
	}
	dir := "DESC"
	if strings.EqualFold(q.Order, "asc") {
		dir = "ASC"
	}

	limit := q.PageSize
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	dataSQL := `SELECT
			l.id, l.owner_id, l.title, l.description, l.city, l.offer_type, l.address,
			l.bedrooms, l.bathrooms, l.regular_price, l.currency, l.commission, l.status, l.views,
			l.created_at, l.updated_at
		FROM listings l
		JOIN users u ON u.id = l.owner_id
		WHERE ` + cond + `
		ORDER BY ` + orderBy + ` ` + dir + `
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Listing, 0, limit)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
