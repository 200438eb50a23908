// ABOUTME: Role type with ordered integer constants for permission comparison.
// ABOUTME: ParseRole converts a membership row's role string to a Role value.
package authz

// Role represents a principal's permission level on a workspace or board.
// Higher integer values grant more permissions.
type Role int

// Role permission level constants, ordered from least to most privileged.
const (
	RoleNone   Role = 0 // no relationship to the resource
	RoleGuest  Role = 1 // invited guest; read and comment only
	RoleMember Role = 2 // standard member
	RoleAdmin  Role = 3 // administrator
	RoleOwner  Role = 4 // full control; always set by ownership, never by a membership row
)

// ParseRole converts a role string from the database to a Role.
// Unknown or empty values map to RoleNone (least privilege).
func ParseRole(s string) Role {
	switch s {
	case "owner":
		return RoleOwner
	case "admin":
		return RoleAdmin
	case "member":
		return RoleMember
	case "guest":
		return RoleGuest
	default:
		return RoleNone
	}
}

// String returns the database spelling of the role.
func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	case RoleMember:
		return "member"
	case RoleGuest:
		return "guest"
	default:
		return "none"
	}
}
