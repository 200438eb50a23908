// ABOUTME: Effective-role resolution for workspaces and boards from pre-fetched rows.
// ABOUTME: Pure functions — no I/O; the store layer fetches the inputs.
package authz

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the workspace or board being resolved does not
// exist. Callers must map it to 404, never to a deny (403) — a non-member and a
// missing resource are different outcomes.
var ErrNotFound = errors.New("resource not found")

// Workspace is the resolver's view of a workspace row.
type Workspace struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Visibility string // "private" or "public"
}

// Board is the resolver's view of a board row.
type Board struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	OwnerID     uuid.UUID
	Visibility  string // "private", "workspace", or "public"
}

// Member is one membership row: a principal and their stored role.
type Member struct {
	PrincipalID uuid.UUID
	Role        Role
}

// BoardAccess is the result of resolving a principal against a board.
//
// Role and HasAccess are deliberately separate: a principal can hold access to a
// workspace-visible board without any board membership row. That implicit access
// is enough for collaboration actions (commenting, assigning members) but it is
// not an administrative role — Evaluate's per-action rules declare which of the
// two they consume.
type BoardAccess struct {
	// Role is the principal's explicit role on the board (owner, admin, member),
	// or RoleNone when access is only implicit.
	Role Role
	// HasAccess reports whether the principal may collaborate on the board.
	HasAccess bool
	// CanView additionally covers public boards, which are world-readable but
	// not world-writable.
	CanView bool
}

// ResolveWorkspaceRole determines principal's effective role on ws.
//
// The owner check runs before any membership lookup: ownership always implies
// full rights, and a conflicting membership row (say, a stale "guest" row for
// the owner) is ignored. A missing membership row resolves to RoleNone, not an
// error; a nil workspace returns ErrNotFound.
func ResolveWorkspaceRole(principal uuid.UUID, ws *Workspace, members []Member) (Role, error) {
	if ws == nil {
		return RoleNone, ErrNotFound
	}
	if principal == ws.OwnerID {
		return RoleOwner, nil
	}
	for _, m := range members {
		if m.PrincipalID == principal {
			return m.Role, nil
		}
	}
	return RoleNone, nil
}

// ResolveBoardRole determines principal's access to b, which belongs to ws.
//
// Resolution order: board ownership, then explicit board membership, then
// implicit access through a workspace-visible board when the principal belongs
// to the workspace. boardMembers and workspaceMembers are the pre-fetched
// membership rows for b and ws respectively.
func ResolveBoardRole(principal uuid.UUID, b *Board, ws *Workspace, boardMembers, workspaceMembers []Member) (BoardAccess, error) {
	if b == nil || ws == nil {
		return BoardAccess{}, ErrNotFound
	}

	if principal == b.OwnerID {
		return BoardAccess{Role: RoleOwner, HasAccess: true, CanView: true}, nil
	}

	for _, m := range boardMembers {
		if m.PrincipalID == principal {
			return BoardAccess{Role: m.Role, HasAccess: true, CanView: true}, nil
		}
	}

	if b.Visibility == "workspace" {
		wsRole, err := ResolveWorkspaceRole(principal, ws, workspaceMembers)
		if err != nil {
			return BoardAccess{}, err
		}
		if wsRole != RoleNone {
			// Implicit access: collaboration-level rights without a board role.
			return BoardAccess{Role: RoleNone, HasAccess: true, CanView: true}, nil
		}
	}

	return BoardAccess{CanView: b.Visibility == "public"}, nil
}
