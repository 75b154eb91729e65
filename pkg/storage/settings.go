package storage

import "strings"

// Setting keys the web layer is allowed to persist.
const (
	SettingRemoteToken     = "remote.token"
	SettingRemoteURL       = "remote.url"
	SettingRemoteNamespace = "remote.namespace_id"
	SettingRemoteUsername  = "remote.username"
)

// AllowedSettingKeys enumerates every persistable setting.
var AllowedSettingKeys = []string{
	SettingRemoteToken,
	SettingRemoteURL,
	SettingRemoteNamespace,
	SettingRemoteUsername,
}

// GetSettings loads settings for the provided keys. Missing keys are simply
// absent from the result.
func (s *Store) GetSettings(keys []string) (map[string]string, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}
	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	query := "SELECT key, value FROM settings WHERE key IN (?" + strings.Repeat(",?", len(keys)-1) + ")"
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, rows.Err()
}

// SetSetting upserts a setting value. Empty value deletes the row.
func (s *Store) SetSetting(key, value string) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}
