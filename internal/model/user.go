// Package model defines the data structures used throughout the application.
package model

import "time"

// Preferences are the per-user notification and display settings.
// New accounts start with DefaultPreferences.
type Preferences struct {
	Notifications bool   `json:"notifications"`
	EmailUpdates  bool   `json:"emailUpdates"`
	Theme         string `json:"theme"`
}

// DefaultPreferences returns the settings applied to newly created accounts.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: true,
		EmailUpdates:  true,
		Theme:         "light",
	}
}

// Profile holds the optional, user-editable parts of an account.
type Profile struct {
	Location    string      `json:"location,omitempty"`
	Avatar      string      `json:"avatar,omitempty"`
	Preferences Preferences `json:"preferences"`
}

// User represents a registered account.
//
// Email is unique across all users and is the identifier the identity
// providers hand us; ID is our own xid so primary keys are never tied to a
// third party's numbering scheme.
//
// AuthMethod records how the account was created ("email" or "google").
// PasswordHash is only set for email accounts and is never serialized.
type User struct {
	ID           string    `json:"id"         db:"id"`
	Name         string    `json:"name"       db:"name"`
	Email        string    `json:"email"      db:"email"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	AuthMethod   string    `json:"authMethod" db:"auth_method"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	IsActive     bool      `json:"isActive"   db:"is_active"`
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"createdAt"  db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"  db:"updated_at"`
}

// UserUpdate is a partial update to a user record. Nil fields are left
// unchanged; UpdatedAt is refreshed whenever an update is applied.
type UserUpdate struct {
	Name        *string      `json:"name,omitempty"`
	Phone       *string      `json:"phone,omitempty"`
	IsActive    *bool        `json:"isActive,omitempty"`
	Location    *string      `json:"location,omitempty"`
	Avatar      *string      `json:"avatar,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
}
