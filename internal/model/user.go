package model

import (
	"strings"
	"time"
)

// User is the stored user record. PasswordHash never leaves the process.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PublicUser is the client-facing view of a User.
type PublicUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserField names a column that FindBy may match on.
type UserField string

const (
	FieldEmail    UserField = "email"
	FieldUsername UserField = "username"
)

func (f UserField) Valid() bool {
	return f == FieldEmail || f == FieldUsername
}

// UserPatch carries the fields of a partial update. Nil means unchanged.
type UserPatch struct {
	Email        *string
	Username     *string
	PasswordHash *string
}

func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.Username == nil && p.PasswordHash == nil
}

// Apply merges the patch into u and stamps UpdatedAt.
func (p UserPatch) Apply(u *User, now time.Time) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	u.UpdatedAt = now
}

// NormalizeEmail returns the canonical uniqueness key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
