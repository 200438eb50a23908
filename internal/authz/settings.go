// ABOUTME: Workspace settings normalization: defaults, legacy-shape migration,
// ABOUTME: and tolerant decoding of string-or-object jsonb values.
package authz

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Threshold expresses the minimum role a workspace setting requires for an
// action, ordered by restrictiveness. Comparison goes through Allows — never
// duplicate string equality checks at call sites.
type Threshold int

const (
	ThresholdOwnerOnly  Threshold = 1 // only the workspace owner
	ThresholdAdminsOnly Threshold = 2 // admins and the owner
	ThresholdAnyMember  Threshold = 3 // members, admins, and the owner
)

// Allows reports whether r satisfies the threshold. Guests never satisfy any
// threshold — "any member" means member or above.
func (t Threshold) Allows(r Role) bool {
	switch t {
	case ThresholdAnyMember:
		return r >= RoleMember
	case ThresholdAdminsOnly:
		return r >= RoleAdmin
	default:
		return r >= RoleOwner
	}
}

// String returns the current-shape spelling of the threshold.
func (t Threshold) String() string {
	switch t {
	case ThresholdAnyMember:
		return "any_member"
	case ThresholdAdminsOnly:
		return "admins_only"
	default:
		return "owner_only"
	}
}

// ParseThreshold maps both current and legacy spellings to a Threshold.
// Legacy restriction objects used "admin_only" and "nobody"; the current
// simplified scalars use "admins_only" and "owner_only"; the membership
// restriction uses "anyone" for its most permissive value.
func ParseThreshold(s string) (Threshold, bool) {
	switch strings.TrimSpace(s) {
	case "any_member", "anyone":
		return ThresholdAnyMember, true
	case "admins_only", "admin_only":
		return ThresholdAdminsOnly, true
	case "owner_only", "nobody":
		return ThresholdOwnerOnly, true
	default:
		return 0, false
	}
}

// Setting type names as stored in workspace_settings.setting_type.
const (
	SettingMembershipRestriction = "membership_restriction"
	SettingBoardCreation         = "board_creation_simplified"
	SettingBoardDeletion         = "board_deletion_simplified"
	SettingBoardSharing          = "board_sharing_restriction"

	// Legacy per-visibility restriction objects, superseded by the simplified
	// scalars but still present in persisted data.
	SettingBoardCreationLegacy = "board_creation_restriction"
	SettingBoardDeletionLegacy = "board_deletion_restriction"
)

// NormalizedSettings is the fully-populated, typed view of a workspace's
// persisted settings rows.
type NormalizedSettings struct {
	MembershipRestriction Threshold
	BoardCreation         Threshold
	BoardDeletion         Threshold
	// BoardSharing is recognized and migrated for backward compatibility but
	// no permission rule consults it.
	BoardSharing Threshold
}

// DefaultSettings returns the configuration used when a workspace has no
// settings rows at all.
func DefaultSettings() NormalizedSettings {
	return NormalizedSettings{
		MembershipRestriction: ThresholdAnyMember,
		BoardCreation:         ThresholdAnyMember,
		BoardDeletion:         ThresholdAnyMember,
		BoardSharing:          ThresholdAnyMember,
	}
}

// SettingRecord is one raw workspace_settings row. Value may be a string (raw
// or JSON-encoded) or an already-decoded object, depending on the driver and
// the age of the row — ResolveSettings accepts either transparently.
type SettingRecord struct {
	Type  string
	Value any
}

// ResolveSettings normalizes rawRecords into a NormalizedSettings.
//
// Two passes guarantee order independence: current-shape scalars are applied
// first; legacy restriction objects are then applied only to fields no
// current-shape row has set in this batch, taking the workspace_visible_boards
// sub-value. Malformed values are logged and fall back to the field's current
// value — partial settings corruption never blocks authorization.
func ResolveSettings(records []SettingRecord) NormalizedSettings {
	out := DefaultSettings()

	var creationSet, deletionSet bool
	for _, rec := range records {
		switch rec.Type {
		case SettingMembershipRestriction:
			if t, ok := decodeScalar(rec); ok {
				out.MembershipRestriction = t
			}
		case SettingBoardCreation:
			if t, ok := decodeScalar(rec); ok {
				out.BoardCreation = t
				creationSet = true
			}
		case SettingBoardDeletion:
			if t, ok := decodeScalar(rec); ok {
				out.BoardDeletion = t
				deletionSet = true
			}
		case SettingBoardSharing:
			if t, ok := decodeScalar(rec); ok {
				out.BoardSharing = t
			}
		}
	}

	for _, rec := range records {
		switch rec.Type {
		case SettingBoardCreationLegacy:
			if !creationSet {
				if t, ok := decodeLegacyRestriction(rec); ok {
					out.BoardCreation = t
				}
			}
		case SettingBoardDeletionLegacy:
			if !deletionSet {
				if t, ok := decodeLegacyRestriction(rec); ok {
					out.BoardDeletion = t
				}
			}
		}
	}

	return out
}

// decodeScalar extracts a Threshold from a scalar setting value. The value may
// be a plain string, a JSON-encoded string, or (from pre-decoded rows) any
// other JSON scalar.
func decodeScalar(rec SettingRecord) (Threshold, bool) {
	s, ok := rec.Value.(string)
	if ok {
		// Accept both the bare value and its JSON-quoted form.
		if t, ok := ParseThreshold(s); ok {
			return t, true
		}
		var unquoted string
		if err := json.Unmarshal([]byte(s), &unquoted); err == nil {
			if t, ok := ParseThreshold(unquoted); ok {
				return t, true
			}
		}
		slog.Warn("malformed workspace setting value, keeping default",
			"setting_type", rec.Type, "value", s)
		return 0, false
	}
	slog.Warn("workspace setting value is not a scalar, keeping default",
		"setting_type", rec.Type)
	return 0, false
}

// decodeLegacyRestriction extracts the workspace_visible_boards sub-value from
// a legacy restriction object, which may arrive as a JSON string or as an
// already-decoded map. An absent or unparseable sub-value migrates to
// any_member, matching the legacy default.
func decodeLegacyRestriction(rec SettingRecord) (Threshold, bool) {
	var obj map[string]any
	switch v := rec.Value.(type) {
	case map[string]any:
		obj = v
	case string:
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			slog.Warn("malformed legacy workspace setting, keeping default",
				"setting_type", rec.Type, "error", err)
			return 0, false
		}
	default:
		slog.Warn("unexpected legacy workspace setting value type, keeping default",
			"setting_type", rec.Type)
		return 0, false
	}

	sub, _ := obj["workspace_visible_boards"].(string)
	if t, ok := ParseThreshold(sub); ok {
		return t, true
	}
	return ThresholdAnyMember, true
}
