package importer

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/siyuanflow/internal/storage"
)

// DefaultDebounce is how long Watch waits after the last file event before
// running a sync pass.
const DefaultDebounce = 500 * time.Millisecond

// SyncCallback is called after every watcher-driven sync pass.
type SyncCallback func(report *Report, err error)

// Watch runs a sync pass, then watches the vault and re-syncs after file
// changes settle, until ctx is cancelled. New directories created at runtime
// are added to the watch list.
func (im *Importer) Watch(ctx context.Context, debounce time.Duration, cb SyncCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := im.store.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	im.logger.Info("watcher: started", slog.String("root", root))
	im.runPass(ctx, cb)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			im.logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			im.runPass(ctx, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						im.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					timer.Reset(debounce)
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, storage.MarkdownExt) || ev.Op == fsnotify.Chmod {
				continue
			}
			im.logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			timer.Reset(debounce)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (im *Importer) runPass(ctx context.Context, cb SyncCallback) {
	report, err := im.Sync(ctx)
	if err != nil {
		im.logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
	}
	if cb != nil {
		cb(report, err)
	}
}

// addDirsRecursive adds root and all its subdirectories except dot-directories
// to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
