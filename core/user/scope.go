package user

import (
	"fmt"

	"github.com/trezcool/davomat/core"
)

// Scope is the set of groups a session may read and write.
// The zero Scope allows nothing.
type Scope struct {
	UserID        string
	Role          Role
	CanSeeAll     bool
	AllowedGroups map[string]struct{}
}

// ResolveScope derives the visibility scope of usr.
// Admins see everything. Teachers see exactly their assigned groups; no groups means nobody.
// Inactive users and unknown roles get the empty scope.
func ResolveScope(usr User) Scope {
	scope := Scope{UserID: usr.ID, Role: usr.Role, AllowedGroups: map[string]struct{}{}}
	if !usr.IsActive {
		return scope
	}
	switch usr.Role {
	case RoleAdmin:
		scope.CanSeeAll = true
	case RoleTeacher:
		for _, g := range usr.AssignedGroups {
			scope.AllowedGroups[g] = struct{}{}
		}
	}
	return scope
}

// Allows reports whether group is visible to the scope.
func (s Scope) Allows(group string) bool {
	if s.CanSeeAll {
		return true
	}
	_, ok := s.AllowedGroups[group]
	return ok
}

// Authorize returns a *core.AuthorizationError when group is out of the scope.
func (s Scope) Authorize(group string) error {
	if s.Allows(group) {
		return nil
	}
	return core.NewAuthorizationError(fmt.Sprintf("group %q is not assigned to you", group))
}

// AuthorizeAdmin returns a *core.AuthorizationError unless the scope is unrestricted.
func (s Scope) AuthorizeAdmin() error {
	if s.CanSeeAll {
		return nil
	}
	return core.NewAuthorizationError("administrator rights required")
}

// Groups lists the allowed groups. It is nil for unrestricted scopes.
func (s Scope) Groups() []string {
	if s.CanSeeAll {
		return nil
	}
	groups := make([]string, 0, len(s.AllowedGroups))
	for g := range s.AllowedGroups {
		groups = append(groups, g)
	}
	return CleanGroups(groups)
}
