// Package catalog manages the business elements protected by access control.
package catalog

import "time"

// Element is a protected resource category, addressed by its slug.
type Element struct {
	ID        int64
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ElementListFilters narrows element listings.
type ElementListFilters struct {
	// Search matches against name and slug.
	Search string
}
