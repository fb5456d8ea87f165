package db

import (
	"database/sql"
	"fmt"
	"time"
)

// DownloadDict is the structured output for download history queries.
type DownloadDict struct {
	FileKey     string `json:"file_key"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Ext         string `json:"ext"`
	MediaType   string `json:"media_type"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// ServerDict is the structured output for registry queries.
type ServerDict struct {
	ID         int64  `json:"id"`
	URL        string `json:"url"`
	AuthMethod string `json:"auth_method"`
	Phone      string `json:"phone,omitempty"`
	Active     bool   `json:"active"`
	Enabled    bool   `json:"enabled"`
	AddedAt    string `json:"added_at"`
}

// RecordDownload inserts or replaces a download history row.
func (s *Store) RecordDownload(d DownloadDict) error {
	createdAt := d.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.DB.Exec(
		`INSERT OR REPLACE INTO downloads
		(file_key, url, title, ext, media_type, size, download_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FileKey, d.URL, d.Title, d.Ext, d.MediaType, d.Size, d.DownloadURL, createdAt,
	)
	return err
}

// ListDownloads returns download history, newest first.
func (s *Store) ListDownloads(limit, page int) ([]DownloadDict, error) {
	if limit <= 0 {
		limit = 20
	}
	if page < 0 {
		page = 0
	}

	rows, err := s.DB.Query(
		`SELECT file_key, url, title, ext, media_type, size, download_url, created_at
		 FROM downloads ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, page*limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DownloadDict
	for rows.Next() {
		var d DownloadDict
		var downloadURL sql.NullString
		if err := rows.Scan(&d.FileKey, &d.URL, &d.Title, &d.Ext, &d.MediaType, &d.Size, &downloadURL, &d.CreatedAt); err != nil {
			return nil, err
		}
		if downloadURL.Valid {
			d.DownloadURL = downloadURL.String
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// GetDownload returns a single history row by file key, or nil.
func (s *Store) GetDownload(fileKey string) (*DownloadDict, error) {
	var d DownloadDict
	var downloadURL sql.NullString
	err := s.DB.QueryRow(
		`SELECT file_key, url, title, ext, media_type, size, download_url, created_at
		 FROM downloads WHERE file_key = ?`, fileKey,
	).Scan(&d.FileKey, &d.URL, &d.Title, &d.Ext, &d.MediaType, &d.Size, &downloadURL, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if downloadURL.Valid {
		d.DownloadURL = downloadURL.String
	}
	return &d, nil
}

// DeleteDownload removes a history row. Missing rows are not an error.
func (s *Store) DeleteDownload(fileKey string) error {
	_, err := s.DB.Exec("DELETE FROM downloads WHERE file_key = ?", fileKey)
	return err
}

// --- Server registry ---

// AddServer registers an MCP server and returns its assigned ID.
func (s *Store) AddServer(url, authMethod, token, phone string) (int64, error) {
	res, err := s.DB.Exec(
		"INSERT INTO servers (url, auth_method, token, phone, active, enabled, added_at) VALUES (?, ?, ?, ?, 0, 1, ?)",
		url, authMethod, token, phone, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetServer returns a registered server by ID, or nil.
func (s *Store) GetServer(id int64) (*ServerDict, error) {
	var d ServerDict
	var phone sql.NullString
	err := s.DB.QueryRow(
		"SELECT id, url, auth_method, phone, active, enabled, added_at FROM servers WHERE id = ?", id,
	).Scan(&d.ID, &d.URL, &d.AuthMethod, &phone, &d.Active, &d.Enabled, &d.AddedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		d.Phone = phone.String
	}
	return &d, nil
}

// ListServers returns all registered servers in registration order.
func (s *Store) ListServers() ([]ServerDict, error) {
	rows, err := s.DB.Query("SELECT id, url, auth_method, phone, active, enabled, added_at FROM servers ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ServerDict
	for rows.Next() {
		var d ServerDict
		var phone sql.NullString
		if err := rows.Scan(&d.ID, &d.URL, &d.AuthMethod, &phone, &d.Active, &d.Enabled, &d.AddedAt); err != nil {
			return nil, err
		}
		if phone.Valid {
			d.Phone = phone.String
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// RemoveServer deregisters a server.
func (s *Store) RemoveServer(id int64) error {
	res, err := s.DB.Exec("DELETE FROM servers WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("server not found: %d", id)
	}
	return nil
}

// SetServerActive toggles the active flag of a server.
func (s *Store) SetServerActive(id int64, active bool) error {
	res, err := s.DB.Exec("UPDATE servers SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("server not found: %d", id)
	}
	return nil
}

// SetServerEnabled toggles the enabled flag of a server.
func (s *Store) SetServerEnabled(id int64, enabled bool) error {
	res, err := s.DB.Exec("UPDATE servers SET enabled = ? WHERE id = ?", enabled, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("server not found: %d", id)
	}
	return nil
}

// CountActiveServers returns the number of currently active servers.
func (s *Store) CountActiveServers() (int, error) {
	var n int
	err := s.DB.QueryRow("SELECT COUNT(*) FROM servers WHERE active = 1").Scan(&n)
	return n, err
}

// DeactivateAllServers clears the active flag on every server.
func (s *Store) DeactivateAllServers() error {
	_, err := s.DB.Exec("UPDATE servers SET active = 0")
	return err
}

// --- Settings ---

// GetSetting returns a persisted setting value, or "" if unset.
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.DB.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting upserts a persisted setting.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.DB.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	return err
}
