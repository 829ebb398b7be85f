// Package access decides whether an authenticated actor may act on a resource.
//
// The functions here only return decisions; callers perform the mutation
// after a nil error.
package access

import (
	"errors"

	"github.com/notesapp/apiserver/types"
)

var (
	// ErrForbidden is returned when the actor is authenticated but not allowed.
	ErrForbidden = errors.New("permission denied")
	// ErrInvalidRole is returned for role strings outside the known roles.
	ErrInvalidRole = errors.New("invalid role")
	// ErrSelfDemotion is returned when an admin tries to drop their own admin role.
	ErrSelfDemotion = errors.New("admins cannot demote themselves")
	// ErrSelfDeactivation is returned when an admin tries to deactivate their own account.
	ErrSelfDeactivation = errors.New("admins cannot deactivate themselves")
)

// Actor is the identity making a request.
type Actor struct {
	ID   int
	Role types.Role
}

// ActorFromUser builds an Actor from a stored user.
func ActorFromUser(user types.User) Actor {
	return Actor{ID: user.ID, Role: user.Role}
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

// CanAccessNote reports whether the actor may read, update, or delete a
// note owned by ownerID.
func CanAccessNote(actor Actor, ownerID int) bool {
	return actor.ID == ownerID || actor.IsAdmin()
}

// AuthorizeNote returns ErrForbidden when the actor may not touch the note.
func AuthorizeNote(actor Actor, note types.Note) error {
	if !CanAccessNote(actor, note.OwnerID) {
		return ErrForbidden
	}
	return nil
}

// RequireAdmin returns ErrForbidden unless the actor is an admin.
func RequireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// AuthorizeRoleChange validates a role change of targetID to the raw
// requested role and returns the parsed role.
func AuthorizeRoleChange(actor Actor, targetID int, requested string) (types.Role, error) {
	if err := RequireAdmin(actor); err != nil {
		return "", err
	}
	role, err := types.ParseRole(requested)
	if err != nil {
		return "", ErrInvalidRole
	}
	if targetID == actor.ID && role != types.RoleAdmin {
		return "", ErrSelfDemotion
	}
	return role, nil
}

// AuthorizeStatusChange validates setting the active flag of targetID.
func AuthorizeStatusChange(actor Actor, targetID int, active bool) error {
	if err := RequireAdmin(actor); err != nil {
		return err
	}
	if targetID == actor.ID && !active {
		return ErrSelfDeactivation
	}
	return nil
}
