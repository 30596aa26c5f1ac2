package types

import "time"

// User represents a storefront account.
// It owns the user's cart; cart lines have no lifecycle of their own.
type User struct {
	// ID is the unique identifier of the user (UUID).
	ID string `json:"id" db:"id"`

	// Username is the unique display/login name chosen by the user.
	// Stored trimmed.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address, stored trimmed and lower-cased.
	// It is the login key.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// IsAdmin grants access to catalog management. It can only be changed
	// out of band (see the "users promote" command).
	IsAdmin bool `json:"is_admin" db:"is_admin"`

	// Cart is the user's current cart in insertion order. It is populated
	// on read by joining cart lines with products.
	Cart []CartItem `json:"cart" db:"-"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
