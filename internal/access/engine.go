// Package access holds the permission evaluation engine: the mapping from
// (principal, business element, operation) to an allow/deny decision.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/accessgate/accessgate/internal/roles"
	"github.com/accessgate/accessgate/internal/shared"
)

// Principal describes the authenticated actor under evaluation.
type Principal interface {
	PrincipalID() int64
	IsAuthenticated() bool
	Active() bool
	IsSystemAdmin() bool
}

// ElementRef identifies a resolved business element. The engine needs no more
// of the catalog entry than this.
type ElementRef struct {
	ID   int64
	Slug string
}

// Capabilities is one access-matrix cell as the engine sees it: the six
// per-operation flags for a (element, role) pair.
type Capabilities struct {
	List          bool
	Create        bool
	Retrieve      bool
	Update        bool
	PartialUpdate bool
	Delete        bool
}

// ElementResolver resolves a business element by slug. An unknown slug must be
// reported as shared.ErrNotFound.
type ElementResolver interface {
	ElementBySlug(ctx context.Context, slug string) (ElementRef, error)
}

// GrantSource looks up one access-matrix cell. A missing row must be reported
// as shared.ErrNotFound; the engine reads it as all-false capabilities.
type GrantSource interface {
	Grant(ctx context.Context, elementID int64, role roles.Role) (Capabilities, error)
}

// RoleSource returns the role set assigned to a principal, in no particular
// order; the decision never depends on ordering.
type RoleSource interface {
	RolesOf(ctx context.Context, userID int64) ([]roles.Role, error)
}

// Decision is the outcome of one evaluation. Deny is a value, not an error.
type Decision struct {
	Allow bool
	// Role records which assigned role granted the operation. Zero on deny
	// and on system-administrator overrides.
	Role roles.Role
}

// Engine evaluates access decisions. It is stateless and reentrant: every
// call re-reads roles and grants, so concurrent decisions need no locking and
// policy changes take effect on the next request.
type Engine struct {
	elements ElementResolver
	grants   GrantSource
	roles    RoleSource
}

// NewEngine constructs an Engine over the given stores.
func NewEngine(elements ElementResolver, grantSource GrantSource, roleSource RoleSource) *Engine {
	return &Engine{elements: elements, grants: grantSource, roles: roleSource}
}

// Decide reports whether the principal may perform op on the element named by
// slug. A principal with several roles gets the union of their capabilities:
// the operation is allowed when ANY assigned role's grant row has the flag
// set. Unauthenticated or deactivated principals are denied outright, and a
// role without a grant row for the element contributes nothing.
//
// An unknown slug is a configuration error and surfaces as shared.ErrNotFound
// instead of a silent deny.
func (e *Engine) Decide(ctx context.Context, p Principal, slug string, op Operation) (Decision, error) {
	if !op.Valid() {
		panic(fmt.Sprintf("access: unknown operation %q", op))
	}
	if p == nil || !p.IsAuthenticated() || !p.Active() {
		return Decision{}, nil
	}

	elem, err := e.elements.ElementBySlug(ctx, slug)
	if err != nil {
		return Decision{}, err
	}

	assigned, err := e.roles.RolesOf(ctx, p.PrincipalID())
	if err != nil {
		return Decision{}, err
	}

	for _, role := range assigned {
		allowed, err := e.roleAllows(ctx, elem.ID, role, op)
		if err != nil {
			return Decision{}, err
		}
		if allowed {
			return Decision{Allow: true, Role: role}, nil
		}
	}
	return Decision{}, nil
}

// DecideAdmin gates operations reserved for the admin role, such as managing
// the catalog or the grant matrix itself. Only the admin role's grant row is
// consulted; principals without the admin role fall through to the
// system-administrator override, which bypasses the matrix entirely.
func (e *Engine) DecideAdmin(ctx context.Context, p Principal, slug string, op Operation) (Decision, error) {
	if !op.Valid() {
		panic(fmt.Sprintf("access: unknown operation %q", op))
	}
	if p == nil || !p.IsAuthenticated() || !p.Active() {
		return Decision{}, nil
	}

	elem, err := e.elements.ElementBySlug(ctx, slug)
	if err != nil {
		return Decision{}, err
	}

	assigned, err := e.roles.RolesOf(ctx, p.PrincipalID())
	if err != nil {
		return Decision{}, err
	}

	for _, role := range assigned {
		if role != roles.Admin {
			continue
		}
		allowed, err := e.roleAllows(ctx, elem.ID, role, op)
		if err != nil {
			return Decision{}, err
		}
		if allowed {
			return Decision{Allow: true, Role: role}, nil
		}
		// The admin role is held but its grant denies: no override.
		return Decision{}, nil
	}

	if p.IsSystemAdmin() {
		return Decision{Allow: true}, nil
	}
	return Decision{}, nil
}

func (e *Engine) roleAllows(ctx context.Context, elementID int64, role roles.Role, op Operation) (bool, error) {
	caps, err := e.grants.Grant(ctx, elementID, role)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// No matrix row for this (element, role): all-false, not an error.
			return false, nil
		}
		return false, err
	}
	return capabilityFor(caps, op), nil
}

func capabilityFor(caps Capabilities, op Operation) bool {
	switch op {
	case OpList:
		return caps.List
	case OpCreate:
		return caps.Create
	case OpRetrieve:
		return caps.Retrieve
	case OpUpdate:
		return caps.Update
	case OpPartialUpdate:
		return caps.PartialUpdate
	case OpDelete:
		return caps.Delete
	}
	panic(fmt.Sprintf("access: unknown operation %q", op))
}
