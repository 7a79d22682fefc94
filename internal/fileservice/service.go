// Package fileservice coordinates the paged store with disk exports, the
// export ledger, snapshots, and change notifications.
package fileservice

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"unicode/utf8"

	"github.com/starford/pagefs/internal/apperr"
	"github.com/starford/pagefs/internal/checksum"
	"github.com/starford/pagefs/internal/index"
	"github.com/starford/pagefs/internal/models"
	"github.com/starford/pagefs/internal/pagestore"
	"github.com/starford/pagefs/internal/storage"
)

// DefaultDumpDir is used by DumpAll when no directory is given.
const DefaultDumpDir = "dump"

// Event kinds passed to EventCallback.
const (
	EventCreated     = "created"
	EventUpdated     = "updated"
	EventAppended    = "appended"
	EventRenamed     = "renamed"
	EventDeleted     = "deleted"
	EventReorganized = "reorganized"
	EventRestored    = "restored"
)

// EventCallback is called after a successful mutation of a virtual file,
// while the service lock is held. It must not call back into the Service.
type EventCallback func(kind, name string)

// Snapshotter saves and loads the full file set.
type Snapshotter interface {
	Save(ctx context.Context, entries []models.FileEntry, pageSize int) error
	// Load returns the saved entries and the page size they were split with.
	Load(ctx context.Context) ([]models.FileEntry, int, error)
}

// Option configures a Service.
type Option func(*Service)

// WithLedger records every disk export in l.
func WithLedger(l index.Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithSnapshots enables Snapshot and Restore.
func WithSnapshots(sn Snapshotter) Option {
	return func(s *Service) { s.snapshots = sn }
}

// WithEvents registers a change callback.
func WithEvents(cb EventCallback) Option {
	return func(s *Service) { s.onEvent = cb }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDumpDir overrides DefaultDumpDir.
func WithDumpDir(dir string) Option {
	return func(s *Service) { s.dumpDir = dir }
}

// Service serialises access to one pagestore.Store and connects it to the
// real filesystem. It is safe for concurrent use.
type Service struct {
	mu    sync.Mutex
	store *pagestore.Store
	disk  storage.Provider

	ledger    index.Ledger
	snapshots Snapshotter
	onEvent   EventCallback
	logger    *slog.Logger
	dumpDir   string
}

// NewService creates a new file service.
func NewService(store *pagestore.Store, disk storage.Provider, opts ...Option) *Service {
	s := &Service{store: store, disk: disk, logger: slog.Default(), dumpDir: DefaultDumpDir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PageSize returns the page size of the underlying store.
func (s *Service) PageSize() int {
	return s.store.PageSize()
}

// emit must be called with s.mu held so subscribers see events in mutation
// order.
func (s *Service) emit(kind, name string) {
	if s.onEvent != nil {
		s.onEvent(kind, name)
	}
}

// CreateFile adds a new virtual file.
func (s *Service) CreateFile(_ context.Context, name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Create(name, content); err != nil {
		return err
	}
	s.emit(EventCreated, name)
	return nil
}

// PutFile creates or replaces a virtual file and reports whether it was created.
func (s *Service) PutFile(_ context.Context, name, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := s.store.Put(name, content)
	if created {
		s.emit(EventCreated, name)
	} else {
		s.emit(EventUpdated, name)
	}
	return created
}

// ReadFile returns one page, optionally with surrounding context.
func (s *Service) ReadFile(_ context.Context, name string, page int, includeSurrounding bool, surroundingChars int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Read(name, page, includeSurrounding, surroundingChars)
}

// UpdateFile replaces one page and reorganizes the file.
func (s *Service) UpdateFile(_ context.Context, name string, page int, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Update(name, page, content); err != nil {
		return err
	}
	s.emit(EventUpdated, name)
	return nil
}

// AppendToFile adds content after the last page without reorganizing.
func (s *Service) AppendToFile(_ context.Context, name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Append(name, content); err != nil {
		return err
	}
	s.emit(EventAppended, name)
	return nil
}

// RenameFile moves a virtual file to a new name.
func (s *Service) RenameFile(_ context.Context, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Rename(oldName, newName); err != nil {
		return err
	}
	s.emit(EventDeleted, oldName)
	s.emit(EventRenamed, newName)
	return nil
}

// DeleteFile removes a virtual file.
func (s *Service) DeleteFile(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(name); err != nil {
		return err
	}
	s.emit(EventDeleted, name)
	return nil
}

// FileInfo reports page count and size.
func (s *Service) FileInfo(_ context.Context, name string) (models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Info(name)
}

// ReorganizePages re-paginates a file at page-size boundaries.
func (s *Service) ReorganizePages(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Reorganize(name); err != nil {
		return err
	}
	s.emit(EventReorganized, name)
	return nil
}

// ListFiles returns all file names in ascending order.
func (s *Service) ListFiles(_ context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.List()
}

// Pages returns a copy of a file's pages.
func (s *Service) Pages(_ context.Context, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Pages(name)
}

// SaveToDisk writes one file's full content to target (default: the file
// name) and returns the path written.
func (s *Service) SaveToDisk(ctx context.Context, name, target string) (string, error) {
	s.mu.Lock()
	entry, err := s.store.Export(name)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	if target == "" {
		target = name
	}
	if err := s.write(ctx, entry, target, index.KindSave); err != nil {
		return "", err
	}
	return target, nil
}

// DumpAll writes every file into dir (default: the configured dump dir),
// creating the directory if needed, and returns the directory used.
func (s *Service) DumpAll(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		dir = s.dumpDir
	}
	s.mu.Lock()
	entries := s.store.ExportAll()
	s.mu.Unlock()

	if err := s.disk.MkdirAll(dir); err != nil {
		return "", err
	}
	for _, e := range entries {
		if err := s.write(ctx, e, path.Join(dir, e.Name), index.KindDump); err != nil {
			return "", err
		}
	}
	s.logger.Info("dump: complete", slog.String("dir", dir), slog.Int("files", len(entries)))
	return dir, nil
}

func (s *Service) write(_ context.Context, e models.FileEntry, target, kind string) error {
	if err := storage.WritePages(s.disk, target, e.Pages); err != nil {
		return fmt.Errorf("fileservice: write %s: %w", target, err)
	}
	if s.ledger == nil {
		return nil
	}
	content := e.Content()
	rec := models.Export{
		Name:     e.Name,
		Path:     target,
		Kind:     kind,
		Checksum: checksum.SumString(content),
		Pages:    len(e.Pages),
		Size:     utf8.RuneCountInString(content),
	}
	if err := s.ledger.RecordExport(rec); err != nil {
		s.logger.Warn("ledger: record failed", slog.String("name", e.Name), slog.String("error", err.Error()))
	}
	return nil
}

// Exports lists ledger entries, newest first.
func (s *Service) Exports(_ context.Context, name string, limit int) ([]models.Export, error) {
	if s.ledger == nil {
		return nil, fmt.Errorf("fileservice: export ledger: %w", apperr.ErrNotConfigured)
	}
	return s.ledger.ListExports(name, limit)
}

// LastExport returns the newest ledger entry for name. It fails with
// apperr.ErrNotFound when name was never written to disk.
func (s *Service) LastExport(_ context.Context, name string) (models.Export, error) {
	if s.ledger == nil {
		return models.Export{}, fmt.Errorf("fileservice: export ledger: %w", apperr.ErrNotConfigured)
	}
	last, err := s.ledger.LastExport(name)
	if err != nil {
		return models.Export{}, err
	}
	if last == nil {
		return models.Export{}, fmt.Errorf("fileservice: export of %q: %w", name, apperr.ErrNotFound)
	}
	return *last, nil
}

// Snapshot saves every file and returns how many were saved.
func (s *Service) Snapshot(ctx context.Context) (int, error) {
	if s.snapshots == nil {
		return 0, fmt.Errorf("fileservice: snapshots: %w", apperr.ErrNotConfigured)
	}
	s.mu.Lock()
	entries := s.store.ExportAll()
	s.mu.Unlock()
	if err := s.snapshots.Save(ctx, entries, s.store.PageSize()); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Restore replaces every file with the last snapshot and returns how many
// files were restored. Files saved under a different page size are
// re-paginated. With no saved snapshot it fails with apperr.ErrNoSnapshot
// and leaves the store unchanged.
func (s *Service) Restore(ctx context.Context) (int, error) {
	if s.snapshots == nil {
		return 0, fmt.Errorf("fileservice: snapshots: %w", apperr.ErrNotConfigured)
	}
	entries, pageSize, err := s.snapshots.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("fileservice: restore: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Replace(entries, pageSize); err != nil {
		return 0, err
	}
	if pageSize != s.store.PageSize() {
		s.logger.Info("restore: re-paginated snapshot",
			slog.Int("saved_page_size", pageSize), slog.Int("page_size", s.store.PageSize()))
	}
	for _, e := range entries {
		s.emit(EventRestored, e.Name)
	}
	return len(entries), nil
}
