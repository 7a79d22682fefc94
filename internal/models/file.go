// Package models defines the domain types for pagefs.
package models

import (
	"strings"
	"time"
)

// FileInfo summarises a virtual file.
type FileInfo struct {
	Name  string `json:"name"`
	Pages int    `json:"pages"`
	Size  int    `json:"size"` // characters, not bytes
}

// FileEntry is a snapshot of one virtual file: its name and ordered pages.
// It is what persistence collaborators receive; the pages are copies.
type FileEntry struct {
	Name  string   `json:"name" msgpack:"name"`
	Pages []string `json:"pages" msgpack:"pages"`
}

// Content returns the concatenation of all pages.
func (e FileEntry) Content() string {
	return strings.Join(e.Pages, "")
}

// SourceFile is a lightweight representation of a real file returned by list operations.
type SourceFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Export represents a single file written to disk by save or dump.
type Export struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Kind       string    `json:"kind"` // "save" or "dump"
	Checksum   string    `json:"checksum"`
	Pages      int       `json:"pages"`
	Size       int       `json:"size"`
	ExportedAt time.Time `json:"exported_at"`
}
