// ABOUTME: Pure permission evaluator: action + resolved role + normalized settings → decision.
// ABOUTME: Never errors and never logs; unknown actions fail closed with "unknown action".
package authz

// Action identifies a gated mutation. Handlers pass one of the constants below;
// anything else is denied.
type Action string

const (
	ActionCreateBoard      Action = "create_board"
	ActionDeleteBoard      Action = "delete_board"
	ActionInviteMember     Action = "invite_member"
	ActionRemoveMember     Action = "remove_member"
	ActionChangeMemberRole Action = "change_member_role"
	ActionUpdateSettings   Action = "update_settings"

	// Collaboration actions: gated on board access, not on role thresholds.
	ActionAddCardMember Action = "add_card_member"
	ActionAssignLabel   Action = "assign_label"
	ActionComment       Action = "comment"

	// Editing or deleting content the principal authored (own comment, own
	// attachment). Board admins may act on anyone's content.
	ActionEditOwnContent Action = "edit_own_content"
)

// Request carries everything Evaluate needs. Role resolution and settings
// normalization happen before evaluation; Evaluate itself touches nothing
// outside this struct.
type Request struct {
	Action Action

	// Role is the effective role on the acted-on resource (workspace role for
	// workspace actions, board role for board actions).
	Role Role

	// WorkspaceRole is the parent workspace role; only board-scoped actions
	// consult it (a workspace owner may delete any board in the workspace).
	WorkspaceRole Role

	// HasAccess reports collaboration access to the board, including implicit
	// access through workspace-visible boards.
	HasAccess bool

	// IsSelf reports whether the principal is acting on themself or on content
	// they authored.
	IsSelf bool

	// TargetRole is the acted-on member's role, for member-management actions.
	TargetRole Role

	// OwnerCount is the number of owner-equivalent principals in the workspace.
	// remove_member uses it to protect the last owner.
	OwnerCount int

	Settings NormalizedSettings
}

// Decision is the evaluation result. Reason is a complete, user-displayable
// sentence on deny; the API layer returns it verbatim rather than inventing a
// generic message.
type Decision struct {
	Allowed       bool
	Reason        string
	EffectiveRole Role
}

func allow(r Role) Decision {
	return Decision{Allowed: true, EffectiveRole: r}
}

func deny(r Role, reason string) Decision {
	return Decision{Allowed: false, Reason: reason, EffectiveRole: r}
}

// Evaluate decides whether the request's action is permitted. It is pure: no
// side effects, no storage, no logging, and it always returns a decision.
func Evaluate(req Request) Decision {
	switch req.Action {
	case ActionCreateBoard:
		return evalCreateBoard(req)
	case ActionDeleteBoard:
		return evalDeleteBoard(req)
	case ActionInviteMember:
		return evalInviteMember(req)
	case ActionRemoveMember:
		return evalRemoveMember(req)
	case ActionChangeMemberRole:
		return evalChangeMemberRole(req)
	case ActionUpdateSettings:
		return evalUpdateSettings(req)
	case ActionAddCardMember, ActionAssignLabel, ActionComment:
		return evalCollaboration(req)
	case ActionEditOwnContent:
		return evalEditOwnContent(req)
	default:
		// Fail closed: a misconfigured call site must deny, not panic or allow.
		return deny(req.Role, "unknown action")
	}
}

func evalCreateBoard(req Request) Decision {
	if req.Role == RoleOwner {
		return allow(req.Role)
	}
	if req.Settings.BoardCreation.Allows(req.Role) {
		return allow(req.Role)
	}
	switch req.Settings.BoardCreation {
	case ThresholdAdminsOnly:
		return deny(req.Role, "Only admins and owner can create boards in this workspace")
	case ThresholdOwnerOnly:
		return deny(req.Role, "Only the workspace owner can create boards")
	default:
		return deny(req.Role, "Only workspace members can create boards")
	}
}

func evalDeleteBoard(req Request) Decision {
	// Board owner and workspace owner may always delete.
	if req.Role == RoleOwner || req.WorkspaceRole == RoleOwner {
		return allow(req.Role)
	}
	if req.Role < RoleAdmin {
		return deny(req.Role, "Only board admins can delete this board")
	}
	// The deletion threshold is checked against the workspace role; a board
	// admin with no workspace membership counts as member-level for the
	// most permissive setting.
	wsRole := req.WorkspaceRole
	if wsRole < RoleMember {
		wsRole = RoleMember
	}
	if req.Settings.BoardDeletion.Allows(wsRole) {
		return allow(req.Role)
	}
	switch req.Settings.BoardDeletion {
	case ThresholdAdminsOnly:
		return deny(req.Role, "Only admins and owner can delete boards in this workspace")
	default:
		return deny(req.Role, "Only the workspace owner can delete boards")
	}
}

func evalInviteMember(req Request) Decision {
	if req.Role == RoleOwner {
		return allow(req.Role)
	}
	if req.Settings.MembershipRestriction.Allows(req.Role) {
		return allow(req.Role)
	}
	switch req.Settings.MembershipRestriction {
	case ThresholdAdminsOnly:
		return deny(req.Role, "Only admins and owner can invite members")
	case ThresholdOwnerOnly:
		return deny(req.Role, "Only the workspace owner can invite members")
	default:
		return deny(req.Role, "Only workspace members can invite members")
	}
}

func evalRemoveMember(req Request) Decision {
	// Last-owner protection comes first: not even the owner removing themself
	// may leave the workspace ownerless.
	if req.TargetRole == RoleOwner && req.OwnerCount <= 1 {
		return deny(req.Role, "Cannot remove the last owner from the workspace")
	}
	if req.Role == RoleOwner {
		return allow(req.Role)
	}
	if req.Role == RoleAdmin {
		if req.TargetRole >= RoleAdmin {
			return deny(req.Role, "Admins cannot remove other admins or the owner")
		}
		return allow(req.Role)
	}
	if req.IsSelf {
		return allow(req.Role)
	}
	return deny(req.Role, "Only admins and owner can remove other members")
}

func evalChangeMemberRole(req Request) Decision {
	if req.IsSelf {
		return deny(req.Role, "You cannot change your own role")
	}
	if req.TargetRole == RoleOwner {
		return deny(req.Role, "The workspace owner's role cannot be changed")
	}
	if req.Role >= RoleAdmin {
		return allow(req.Role)
	}
	return deny(req.Role, "Only admins and owner can change member roles")
}

func evalUpdateSettings(req Request) Decision {
	if req.Role >= RoleAdmin {
		return allow(req.Role)
	}
	return deny(req.Role, "Only admins and owner can update settings")
}

func evalCollaboration(req Request) Decision {
	if req.HasAccess {
		return allow(req.Role)
	}
	return deny(req.Role, "You do not have access to this board")
}

func evalEditOwnContent(req Request) Decision {
	if req.IsSelf || req.Role >= RoleAdmin {
		return allow(req.Role)
	}
	return deny(req.Role, "Only the author or a board admin can modify this content")
}
