package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/pagefs/internal/models"
)

// Export kinds.
const (
	KindSave = "save"
	KindDump = "dump"
)

const defaultListLimit = 50

// RecordExport inserts one ledger row. Missing ID and timestamp are filled in.
func (db *DB) RecordExport(e models.Export) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.ExportedAt.IsZero() {
		e.ExportedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO exports (id, name, path, kind, checksum, pages, size, exported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Name, e.Path, e.Kind, e.Checksum, e.Pages, e.Size, e.ExportedAt)
	if err != nil {
		return fmt.Errorf("index: record export: %w", err)
	}
	return nil
}

// ListExports returns the most recent exports first, optionally filtered by file name.
func (db *DB) ListExports(name string, limit int) ([]models.Export, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var (
		rows *sql.Rows
		err  error
	)
	const cols = `SELECT id, name, path, kind, checksum, pages, size, exported_at FROM exports`
	if name == "" {
		rows, err = db.conn.Query(cols+` ORDER BY exported_at DESC, rowid DESC LIMIT ?`, limit)
	} else {
		rows, err = db.conn.Query(cols+` WHERE name = ? ORDER BY exported_at DESC, rowid DESC LIMIT ?`, name, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("index: list exports: %w", err)
	}
	defer rows.Close()

	out := []models.Export{}
	for rows.Next() {
		var e models.Export
		if err := rows.Scan(&e.ID, &e.Name, &e.Path, &e.Kind, &e.Checksum, &e.Pages, &e.Size, &e.ExportedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LastExport returns the newest export of name, or nil if it was never exported.
func (db *DB) LastExport(name string) (*models.Export, error) {
	var e models.Export
	err := db.conn.QueryRow(`
		SELECT id, name, path, kind, checksum, pages, size, exported_at
		FROM exports WHERE name = ?
		ORDER BY exported_at DESC, rowid DESC LIMIT 1
	`, name).Scan(&e.ID, &e.Name, &e.Path, &e.Kind, &e.Checksum, &e.Pages, &e.Size, &e.ExportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: last export: %w", err)
	}
	return &e, nil
}
