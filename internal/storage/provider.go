// Package storage is the real-filesystem collaborator that virtual files are
// written to and seed files are read from.
package storage

import (
	"strings"

	"github.com/starford/pagefs/internal/models"
)

// Provider is the interface for workspace file operations. All paths are
// relative to the provider's root.
type Provider interface {
	// List returns metadata for every regular file directly inside dir.
	List(dir string) ([]models.SourceFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
}

// WritePages writes the concatenation of pages to path.
func WritePages(p Provider, path string, pages []string) error {
	return p.Write(path, []byte(strings.Join(pages, "")))
}
