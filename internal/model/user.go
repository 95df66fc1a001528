package model

import "time"

// User is an account in the coaching program. Email is the identity
// address; ContactEmail is the profile-replicated fallback used when the
// identity address has not been synced to this table.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Name         string    `json:"name"`
	Timezone     string    `json:"timezone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is a bearer API session. Token issuance belongs to the
// identity provider; this table only resolves tokens to users.
type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
