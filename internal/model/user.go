package model

import (
	"time"

	"github.com/iliyamo/estate-market/internal/policy"
)

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column.  The json tags are omitted
// because these structs are used by the repository layer; handlers define
// separate response types with appropriate tags.
//
// Fields:
//  ID              – primary key identifier of the user.
//  Email           – unique email address.
//  PasswordHash    – bcrypt hashed password.
//  Role            – account role (user, agent, manager, admin).
//  ListingsCreated – lifetime count of listings ever created, including
//                    soft-deleted ones.  Quota enforcement reads this
//                    column; it only ever increases.
//  IsActive        – whether the account is active.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type User struct {
	ID              uint64      // users.id
	Email           string      // users.email
	PasswordHash    string      // users.password_hash
	Role            policy.Role // users.role
	ListingsCreated uint32      // users.listings_created
	IsActive        bool        // users.is_active
	CreatedAt       time.Time   // users.created_at
	UpdatedAt       time.Time   // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user; only the SHA-256 hash of the token is
// stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null while active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
