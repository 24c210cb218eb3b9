// Package assignments maps principals to their roles.
package assignments

import (
	"time"

	"github.com/accessgate/accessgate/internal/roles"
)

// Assignment ties one role to one principal. The (user, role) pair is unique;
// a principal cannot hold the same role twice.
type Assignment struct {
	ID        int64
	UserID    int64
	UserEmail string
	Role      roles.Role
	CreatedAt time.Time
}

// AssignmentListFilters narrows assignment listings.
type AssignmentListFilters struct {
	// Search matches against the assignee's email.
	Search string
	// Page and PerPage select the listing window; zero values fall back to
	// the first page of twenty.
	Page    int
	PerPage int
}

// UserRef is the slice of a principal the assignment rules need.
type UserRef struct {
	ID     int64
	Email  string
	Active bool
}
