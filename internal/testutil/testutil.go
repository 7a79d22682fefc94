// Package testutil provides shared test helpers for setting up workspaces,
// ledgers and services.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/pagefs/internal/fileservice"
	"github.com/starford/pagefs/internal/index"
	"github.com/starford/pagefs/internal/pagestore"
	"github.com/starford/pagefs/internal/storage"
)

// TestDB creates a temporary SQLite ledger that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "pagefs-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary workspace directory with a storage.Provider.
func TestWorkspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// TestService builds a Service over a fresh store and workspace.
func TestService(t *testing.T, pageSize int, opts ...fileservice.Option) (*fileservice.Service, string) {
	t.Helper()
	store, err := pagestore.New(pageSize)
	if err != nil {
		t.Fatal(err)
	}
	dir, fs := TestWorkspace(t)
	return fileservice.NewService(store, fs, opts...), dir
}
