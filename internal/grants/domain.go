// Package grants stores the per-(element, role) permission matrix.
package grants

import (
	"time"

	"github.com/accessgate/accessgate/internal/roles"
)

// Capabilities holds the independent CRUD flags of one matrix cell. A flag set
// to false, or a missing grant row altogether, means the capability is denied.
type Capabilities struct {
	List          bool `json:"list"`
	Create        bool `json:"create"`
	Retrieve      bool `json:"retrieve"`
	Update        bool `json:"update"`
	PartialUpdate bool `json:"partial_update"`
	Delete        bool `json:"delete"`

	// OwnerOverride marks that an object's creator gets implicit access to it
	// regardless of role grants. Persisted but not evaluated by the engine;
	// object-level ownership checks are an extension point.
	OwnerOverride bool `json:"owner_override"`
}

// Grant is one row of the access matrix.
type Grant struct {
	ID           int64
	ElementID    int64
	ElementSlug  string
	Role         roles.Role
	Capabilities Capabilities
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GrantListFilters narrows grant listings.
type GrantListFilters struct {
	ElementSlug string
	Role        roles.Role
}
