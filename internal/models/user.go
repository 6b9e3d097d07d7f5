package models

import "time"

type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRolePublisher UserRole = "publisher"
	UserRoleReader    UserRole = "reader"
)

// ValidRole reports whether a role may be self-assigned at registration.
// Admin is excluded on purpose; admins are promoted out of band.
func ValidRole(role UserRole) bool {
	return role == UserRolePublisher || role == UserRoleReader
}

type User struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	HashedPassword []byte
	Role           UserRole
	PhoneNumber    *string
	Address        *string
	AvatarImage    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RefreshToken is one issued refresh credential. The plaintext secret is
// never persisted; TokenHash holds its argon2id encoding. Revoked only
// ever transitions false to true, and ReplacedBy links a rotated record
// to its successor.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  []byte
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}

// Active reports whether the record can still be exchanged at the given
// instant: not revoked and not past its expiry.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
