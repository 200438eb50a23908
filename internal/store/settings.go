// ABOUTME: Store methods for workspace_settings rows.
// ABOUTME: Values stay raw jsonb here; normalization lives in internal/authz.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SettingRow is one raw workspace_settings row. Value is the jsonb bytes as
// stored — a quoted scalar for current-shape rows, an object for legacy rows.
type SettingRow struct {
	Type  string
	Value json.RawMessage
}

// ListWorkspaceSettings returns all settings rows for the workspace.
func (s *Store) ListWorkspaceSettings(ctx context.Context, workspaceID uuid.UUID) ([]SettingRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT setting_type, setting_value
		FROM workspace_settings WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list workspace settings: %w", err)
	}
	defer rows.Close()

	var out []SettingRow
	for rows.Next() {
		var r SettingRow
		if err := rows.Scan(&r.Type, &r.Value); err != nil {
			return nil, fmt.Errorf("scan workspace setting: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertWorkspaceSetting writes one settings row, replacing any existing row
// of the same type.
func (s *Store) UpsertWorkspaceSetting(ctx context.Context, workspaceID uuid.UUID, settingType string, value json.RawMessage) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO workspace_settings (workspace_id, setting_type, setting_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (workspace_id, setting_type)
		DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = now()`,
		workspaceID, settingType, value,
	); err != nil {
		return fmt.Errorf("upsert workspace setting: %w", err)
	}
	return nil
}
