package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on dir (the source root) and applies file
// changes to the target until ctx is cancelled.
//
// fsnotify reports a rename on the old path only; the new path arrives as a
// separate Create. Renames therefore schedule a debounced Sync that removes
// whatever no longer exists on disk.
func (im *Importer) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	im.logger.Info("import watcher: started", slog.String("dir", dir))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			im.logger.Info("import watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := im.Sync(ctx); err != nil {
				im.logger.Warn("import watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				info, statErr := os.Stat(ev.Name)
				if statErr != nil || !info.Mode().IsRegular() {
					continue
				}
				if err := im.importFile(ctx, name); err != nil {
					im.logger.Warn("import watcher: read failed", slog.String("name", name), slog.String("error", err.Error()))
				}

			case ev.Op&fsnotify.Remove != 0:
				im.remove(ctx, name)

			case ev.Op&fsnotify.Rename != 0:
				im.remove(ctx, name)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("import watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
