package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/estate-market/internal/model"
)

// MessageRepo persists the conversations between interested users and
// listing owners.  A thread is identified by (listing_id, interested
// user); the owner participates in every thread of their listing.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo returns a new MessageRepo bound to the given database.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// Create inserts a message and populates its generated id and
// timestamp.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (listing_id, sender_id, owner_id, body) VALUES (?, ?, ?, ?)`,
		m.ListingID, m.SenderID, m.OwnerID, m.Body)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at FROM messages WHERE id = ?`, m.ID).Scan(&m.CreatedAt)
}

// Thread returns the conversation about a listing as seen by the given
// participant, oldest first.  Only the listing owner and users who wrote
// in the thread may read it; anyone else gets ErrForbidden.
func (r *MessageRepo) Thread(ctx context.Context, listingID, participantID uint64) ([]model.Message, error) {
	var ownerID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id FROM listings WHERE id = ?`, listingID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	if participantID != ownerID {
		var wrote bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM messages WHERE listing_id = ? AND sender_id = ?)`,
			listingID, participantID).Scan(&wrote); err != nil {
			return nil, err
		}
		if !wrote {
			return nil, ErrForbidden
		}
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, listing_id, sender_id, owner_id, body, created_at
		 FROM messages WHERE listing_id = ? ORDER BY created_at ASC`,
		listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ListingID, &m.SenderID, &m.OwnerID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
