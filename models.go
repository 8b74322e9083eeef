package authapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record owned by the credential store.
// PasswordHash is never serialized into any response.
type User struct {
	bun.BaseModel        `bun:"table:users,alias:usr"`
	ID                   uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name                 string     `bun:"name,notnull" json:"name,omitempty"`
	Email                string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone                string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash         string     `bun:"password_hash" json:"-"`
	PasswordResetPending bool       `bun:"password_reset_pending" json:"password_reset_pending,omitempty"`
	CreatedAt            *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt            *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt            *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Audit subjects recorded for session events.
const (
	AuditUserLoggedIn  = "User Logged In"
	AuditUserLoggedOut = "User Logged Out"
)

// AuditLog is an append-only record of an authentication event. Entries are
// created once per login/logout and never mutated or deleted.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:alg"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Subject       string     `bun:"subject,notnull" json:"subject"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id"`
	IPAddress     string     `bun:"ip_address" json:"ip_address,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// TokenRevocation pins an invalidated token id until the token's natural
// expiry, after which the row is eligible for purging.
type TokenRevocation struct {
	bun.BaseModel `bun:"table:token_revocations,alias:trv"`
	TokenID       string     `bun:"token_id,pk" json:"token_id"`
	UserID        uuid.UUID  `bun:"user_id,type:uuid" json:"user_id,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	RevokedAt     *time.Time `bun:"revoked_at,nullzero,default:current_timestamp" json:"revoked_at,omitempty"`
}
