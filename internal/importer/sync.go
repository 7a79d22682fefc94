// Package importer seeds the virtual store from a directory on disk and
// optionally keeps it in step with that directory.
//
// Only regular top-level files are imported; each becomes a virtual file
// named after its base name.
package importer

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/starford/pagefs/internal/apperr"
	"github.com/starford/pagefs/internal/checksum"
	"github.com/starford/pagefs/internal/storage"
)

// Target is the part of the file service the importer writes to.
type Target interface {
	PutFile(ctx context.Context, name, content string) bool
	DeleteFile(ctx context.Context, name string) error
}

// Importer mirrors a source directory into a Target.
type Importer struct {
	target Target
	src    storage.Provider
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // name -> checksum of last imported content
}

// New creates an Importer reading from src.
func New(target Target, src storage.Provider, logger *slog.Logger) *Importer {
	return &Importer{
		target: target,
		src:    src,
		logger: logger,
		seen:   make(map[string]string),
	}
}

// Sync brings the target up to date with the source directory:
//   - new/changed files are put into the store
//   - previously imported files that vanished from disk are deleted
func (im *Importer) Sync(ctx context.Context) error {
	files, err := im.src.List("")
	if err != nil {
		return err
	}

	onDisk := make(map[string]struct{}, len(files))
	for _, f := range files {
		onDisk[f.Path] = struct{}{}
		if im.checksum(f.Path) == f.Checksum {
			continue
		}
		if err := im.importFile(ctx, f.Path); err != nil {
			im.logger.Warn("import: read failed", slog.String("name", f.Path), slog.String("error", err.Error()))
		}
	}

	for _, name := range im.names() {
		if _, ok := onDisk[name]; !ok {
			im.remove(ctx, name)
		}
	}
	return nil
}

// Imported returns how many files are currently mirrored.
func (im *Importer) Imported() int {
	im.mu.Lock()
	defer im.mu.Unlock()
	return len(im.seen)
}

func (im *Importer) importFile(ctx context.Context, name string) error {
	data, err := im.src.Read(name)
	if err != nil {
		return err
	}
	sum := checksum.Sum(data)
	if im.checksum(name) == sum {
		return nil
	}
	created := im.target.PutFile(ctx, name, string(data))

	im.mu.Lock()
	im.seen[name] = sum
	im.mu.Unlock()

	op := "updated"
	if created {
		op = "created"
	}
	im.logger.Debug("import: loaded", slog.String("name", name), slog.String("op", op))
	return nil
}

func (im *Importer) remove(ctx context.Context, name string) {
	im.mu.Lock()
	_, ok := im.seen[name]
	delete(im.seen, name)
	im.mu.Unlock()
	if !ok {
		return
	}
	if err := im.target.DeleteFile(ctx, name); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		im.logger.Warn("import: delete failed", slog.String("name", name), slog.String("error", err.Error()))
		return
	}
	im.logger.Debug("import: removed", slog.String("name", name))
}

func (im *Importer) checksum(name string) string {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.seen[name]
}

func (im *Importer) names() []string {
	im.mu.Lock()
	defer im.mu.Unlock()
	out := make([]string, 0, len(im.seen))
	for name := range im.seen {
		out = append(out, name)
	}
	return out
}
