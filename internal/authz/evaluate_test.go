// ABOUTME: Tests for the permission evaluator: threshold ordering, member management,
// ABOUTME: last-owner protection, collaboration gating, unknown-action fail-closed.
package authz_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/authz"
)

func newPrincipal() uuid.UUID { return uuid.New() }

func settingsWith(boardCreation, boardDeletion, membership authz.Threshold) authz.NormalizedSettings {
	s := authz.DefaultSettings()
	s.BoardCreation = boardCreation
	s.BoardDeletion = boardDeletion
	s.MembershipRestriction = membership
	return s
}

func TestEvaluate_CreateBoardThresholds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		threshold authz.Threshold
		role      authz.Role
		want      bool
	}{
		{"owner_only denies admin", authz.ThresholdOwnerOnly, authz.RoleAdmin, false},
		{"owner_only allows owner", authz.ThresholdOwnerOnly, authz.RoleOwner, true},
		{"admins_only allows admin", authz.ThresholdAdminsOnly, authz.RoleAdmin, true},
		{"admins_only denies member", authz.ThresholdAdminsOnly, authz.RoleMember, false},
		{"any_member allows admin", authz.ThresholdAnyMember, authz.RoleAdmin, true},
		{"any_member allows member", authz.ThresholdAnyMember, authz.RoleMember, true},
		{"any_member denies guest", authz.ThresholdAnyMember, authz.RoleGuest, false},
		{"any_member denies non-member", authz.ThresholdAnyMember, authz.RoleNone, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := authz.Evaluate(authz.Request{
				Action:   authz.ActionCreateBoard,
				Role:     tc.role,
				Settings: settingsWith(tc.threshold, authz.ThresholdAnyMember, authz.ThresholdAnyMember),
			})
			if d.Allowed != tc.want {
				t.Errorf("allowed = %v, want %v (reason %q)", d.Allowed, tc.want, d.Reason)
			}
			if !d.Allowed && d.Reason == "" {
				t.Error("deny decision must carry a reason")
			}
			if d.EffectiveRole != tc.role {
				t.Errorf("effective role = %v, want %v", d.EffectiveRole, tc.role)
			}
		})
	}
}

func TestEvaluate_DeleteBoard(t *testing.T) {
	t.Parallel()
	anyMember := settingsWith(authz.ThresholdAnyMember, authz.ThresholdAnyMember, authz.ThresholdAnyMember)
	ownerOnly := settingsWith(authz.ThresholdAnyMember, authz.ThresholdOwnerOnly, authz.ThresholdAnyMember)

	tests := []struct {
		name     string
		role     authz.Role // board role
		wsRole   authz.Role
		settings authz.NormalizedSettings
		want     bool
	}{
		{"board owner always", authz.RoleOwner, authz.RoleNone, ownerOnly, true},
		{"workspace owner always", authz.RoleNone, authz.RoleOwner, ownerOnly, true},
		{"board admin under any_member", authz.RoleAdmin, authz.RoleMember, anyMember, true},
		{"board admin under owner_only", authz.RoleAdmin, authz.RoleAdmin, ownerOnly, false},
		{"board member never", authz.RoleMember, authz.RoleMember, anyMember, false},
		{"implicit access never", authz.RoleNone, authz.RoleMember, anyMember, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := authz.Evaluate(authz.Request{
				Action:        authz.ActionDeleteBoard,
				Role:          tc.role,
				WorkspaceRole: tc.wsRole,
				Settings:      tc.settings,
			})
			if d.Allowed != tc.want {
				t.Errorf("allowed = %v, want %v (reason %q)", d.Allowed, tc.want, d.Reason)
			}
		})
	}
}

func TestEvaluate_InviteMemberThresholds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		threshold authz.Threshold
		role      authz.Role
		want      bool
	}{
		{"anyone allows member", authz.ThresholdAnyMember, authz.RoleMember, true},
		{"anyone denies guest", authz.ThresholdAnyMember, authz.RoleGuest, false},
		{"admins_only denies member", authz.ThresholdAdminsOnly, authz.RoleMember, false},
		{"admins_only allows admin", authz.ThresholdAdminsOnly, authz.RoleAdmin, true},
		{"owner_only denies admin", authz.ThresholdOwnerOnly, authz.RoleAdmin, false},
		{"owner_only allows owner", authz.ThresholdOwnerOnly, authz.RoleOwner, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := authz.Evaluate(authz.Request{
				Action:   authz.ActionInviteMember,
				Role:     tc.role,
				Settings: settingsWith(authz.ThresholdAnyMember, authz.ThresholdAnyMember, tc.threshold),
			})
			if d.Allowed != tc.want {
				t.Errorf("allowed = %v, want %v (reason %q)", d.Allowed, tc.want, d.Reason)
			}
		})
	}
}

func TestEvaluate_RemoveMember(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		role       authz.Role
		targetRole authz.Role
		isSelf     bool
		ownerCount int
		want       bool
		reason     string
	}{
		{"owner removes member", authz.RoleOwner, authz.RoleMember, false, 1, true, ""},
		{"owner removes admin", authz.RoleOwner, authz.RoleAdmin, false, 1, true, ""},
		{"admin removes member", authz.RoleAdmin, authz.RoleMember, false, 1, true, ""},
		{"admin removes guest", authz.RoleAdmin, authz.RoleGuest, false, 1, true, ""},
		{"admin cannot remove admin", authz.RoleAdmin, authz.RoleAdmin, false, 1, false, "Admins cannot remove other admins or the owner"},
		{"member leaves", authz.RoleMember, authz.RoleMember, true, 1, true, ""},
		{"member cannot remove others", authz.RoleMember, authz.RoleMember, false, 1, false, "Only admins and owner can remove other members"},
		{"sole owner cannot leave", authz.RoleOwner, authz.RoleOwner, true, 1, false, "Cannot remove the last owner from the workspace"},
		{"sole owner cannot be removed", authz.RoleOwner, authz.RoleOwner, false, 1, false, "Cannot remove the last owner from the workspace"},
		{"co-owner may be removed", authz.RoleOwner, authz.RoleOwner, false, 2, true, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := authz.Evaluate(authz.Request{
				Action:     authz.ActionRemoveMember,
				Role:       tc.role,
				TargetRole: tc.targetRole,
				IsSelf:     tc.isSelf,
				OwnerCount: tc.ownerCount,
				Settings:   authz.DefaultSettings(),
			})
			if d.Allowed != tc.want {
				t.Errorf("allowed = %v, want %v (reason %q)", d.Allowed, tc.want, d.Reason)
			}
			if tc.reason != "" && d.Reason != tc.reason {
				t.Errorf("reason = %q, want %q", d.Reason, tc.reason)
			}
		})
	}
}

func TestEvaluate_ChangeMemberRole(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		role       authz.Role
		targetRole authz.Role
		isSelf     bool
		want       bool
	}{
		{"admin promotes member", authz.RoleAdmin, authz.RoleMember, false, true},
		{"owner demotes admin", authz.RoleOwner, authz.RoleAdmin, false, true},
		{"member denied", authz.RoleMember, authz.RoleMember, false, false},
		{"cannot act on self", authz.RoleAdmin, authz.RoleAdmin, true, false},
		{"cannot change owner", authz.RoleAdmin, authz.RoleOwner, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := authz.Evaluate(authz.Request{
				Action:     authz.ActionChangeMemberRole,
				Role:       tc.role,
				TargetRole: tc.targetRole,
				IsSelf:     tc.isSelf,
				Settings:   authz.DefaultSettings(),
			})
			if d.Allowed != tc.want {
				t.Errorf("allowed = %v, want %v (reason %q)", d.Allowed, tc.want, d.Reason)
			}
		})
	}
}

func TestEvaluate_UpdateSettings(t *testing.T) {
	t.Parallel()
	d := authz.Evaluate(authz.Request{Action: authz.ActionUpdateSettings, Role: authz.RoleMember, Settings: authz.DefaultSettings()})
	if d.Allowed {
		t.Error("member should not update settings")
	}
	if d.Reason != "Only admins and owner can update settings" {
		t.Errorf("reason = %q", d.Reason)
	}
	if d = authz.Evaluate(authz.Request{Action: authz.ActionUpdateSettings, Role: authz.RoleAdmin, Settings: authz.DefaultSettings()}); !d.Allowed {
		t.Error("admin should update settings")
	}
}

func TestEvaluate_CollaborationActionsGateOnAccess(t *testing.T) {
	t.Parallel()
	for _, action := range []authz.Action{authz.ActionAddCardMember, authz.ActionAssignLabel, authz.ActionComment} {
		// Implicit access with no board role is sufficient.
		d := authz.Evaluate(authz.Request{Action: action, Role: authz.RoleNone, HasAccess: true, Settings: authz.DefaultSettings()})
		if !d.Allowed {
			t.Errorf("%s: implicit access should allow, reason %q", action, d.Reason)
		}
		// No access denies regardless of settings.
		d = authz.Evaluate(authz.Request{Action: action, Role: authz.RoleNone, HasAccess: false, Settings: authz.DefaultSettings()})
		if d.Allowed {
			t.Errorf("%s: no access should deny", action)
		}
	}
}

func TestEvaluate_EditOwnContent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		role   authz.Role
		isSelf bool
		want   bool
	}{
		{"author edits own", authz.RoleNone, true, true},
		{"board admin edits any", authz.RoleAdmin, false, true},
		{"board owner edits any", authz.RoleOwner, false, true},
		{"member cannot edit others", authz.RoleMember, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := authz.Evaluate(authz.Request{
				Action:    authz.ActionEditOwnContent,
				Role:      tc.role,
				IsSelf:    tc.isSelf,
				HasAccess: true,
				Settings:  authz.DefaultSettings(),
			})
			if d.Allowed != tc.want {
				t.Errorf("allowed = %v, want %v (reason %q)", d.Allowed, tc.want, d.Reason)
			}
		})
	}
}

func TestEvaluate_UnknownActionFailsClosed(t *testing.T) {
	t.Parallel()
	d := authz.Evaluate(authz.Request{Action: "transfer_ownership", Role: authz.RoleOwner, Settings: authz.DefaultSettings()})
	if d.Allowed {
		t.Error("unknown action must deny")
	}
	if d.Reason != "unknown action" {
		t.Errorf("reason = %q, want %q", d.Reason, "unknown action")
	}
}

// End to end: resolve a role and settings, then evaluate board creation —
// mirrors what the create-board handler does per request.
func TestEvaluate_EndToEndCreateBoard(t *testing.T) {
	t.Parallel()
	u1, u2, u3 := newPrincipal(), newPrincipal(), newPrincipal()
	ws := &authz.Workspace{ID: newPrincipal(), OwnerID: u1, Visibility: "private"}
	members := []authz.Member{
		{PrincipalID: u2, Role: authz.RoleAdmin},
		{PrincipalID: u3, Role: authz.RoleMember},
	}
	settings := authz.ResolveSettings([]authz.SettingRecord{
		{Type: authz.SettingBoardCreation, Value: "admins_only"},
	})

	role2, err := authz.ResolveWorkspaceRole(u2, ws, members)
	if err != nil {
		t.Fatalf("resolve u2: %v", err)
	}
	d := authz.Evaluate(authz.Request{Action: authz.ActionCreateBoard, Role: role2, Settings: settings})
	if !d.Allowed {
		t.Errorf("admin should create board, reason %q", d.Reason)
	}

	role3, err := authz.ResolveWorkspaceRole(u3, ws, members)
	if err != nil {
		t.Fatalf("resolve u3: %v", err)
	}
	d = authz.Evaluate(authz.Request{Action: authz.ActionCreateBoard, Role: role3, Settings: settings})
	if d.Allowed {
		t.Error("member should not create board under admins_only")
	}
	if d.Reason != "Only admins and owner can create boards in this workspace" {
		t.Errorf("reason = %q", d.Reason)
	}
}
