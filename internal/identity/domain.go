// Package identity manages principal accounts and their credentials.
package identity

import "time"

// User represents a principal account. Accounts are soft-deleted: IsActive is
// cleared and the row is kept.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	MiddleName   string
	PasswordHash string
	IsStaff      bool
	IsSuperuser  bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PrincipalID returns the unique account ID.
func (u *User) PrincipalID() int64 {
	if u == nil {
		return 0
	}
	return u.ID
}

// IsAuthenticated reports whether the principal is a real signed-in account.
func (u *User) IsAuthenticated() bool {
	return u != nil && u.ID != 0
}

// Active reports whether the account has not been soft-deleted.
func (u *User) Active() bool {
	return u != nil && u.IsActive
}

// IsSystemAdmin is a computed predicate, never a stored column: an account is
// a system administrator when it is both staff and superuser.
func (u *User) IsSystemAdmin() bool {
	return u != nil && u.IsStaff && u.IsSuperuser
}

// FullName joins first and last name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ProfileUpdate carries the mutable profile fields. Email is immutable once
// registered; nil fields keep their current value.
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	MiddleName *string
}
