package vocab

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch drops the cached rows whenever the workbook is written, replaced or
// removed, until ctx is done. Without a watcher the cache still notices
// changes through the file's mod time once it is next read.
func (s *Source) Watch(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("workbook watcher unavailable", "error", err)
		return nil
	}
	defer watcher.Close()

	// Watch the directory: editors often save by replacing the file.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		logger.Warn("cannot watch workbook directory", "path", s.path, "error", err)
		return nil
	}
	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("workbook changed, dropping cache", "op", event.Op.String())
			s.cache.Invalidate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("workbook watcher error", "error", err)
		}
	}
}
