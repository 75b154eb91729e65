package storage

import (
	"strings"
	"time"
)

// AuditEntry mirrors an audit record reported to the platform, kept locally
// for review even when the remote call fails.
type AuditEntry struct {
	ID          int64     `json:"id"`
	NamespaceID string    `json:"namespaceId"`
	Username    string    `json:"username"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Module      string    `json:"module"`
	RemoteCode  string    `json:"remoteCode,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RecordAuditLog stores an operator action for later review.
func (s *Store) RecordAuditLog(entry *AuditEntry) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	result, err := s.db.Exec(`
		INSERT INTO audit_logs (namespace_id, username, action, description, module, remote_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		strings.TrimSpace(entry.NamespaceID), strings.TrimSpace(entry.Username),
		strings.TrimSpace(entry.Action), entry.Description,
		strings.TrimSpace(entry.Module), entry.RemoteCode, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// ListAuditLogs returns the most recent audit entries, newest first.
func (s *Store) ListAuditLogs(limit int) ([]*AuditEntry, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, namespace_id, username, action, description, module, remote_code, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(
			&e.ID, &e.NamespaceID, &e.Username, &e.Action,
			&e.Description, &e.Module, &e.RemoteCode, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
